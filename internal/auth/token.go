package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/farmer-dashboard/internal/domain"
)

// ErrMissingSecret is returned when a TokenManager is built without a signing secret.
var ErrMissingSecret = errors.New("auth: signing secret is empty")

// Verification failure reasons, reported to callers in the 401 body.
const (
	ReasonExpired          = "expired"
	ReasonSignatureInvalid = "signature_invalid"
	ReasonMalformed        = "malformed"
	ReasonUnverifiable     = "unverifiable"
	ReasonUnknownRole      = "unknown_role"
	ReasonInvalidClaims    = "invalid_claims"
)

// VerifyError describes why a candidate token was refused.
type VerifyError struct {
	Reason string
	Err    error
}

func (e *VerifyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token %s: %v", e.Reason, e.Err)
	}
	return "token " + e.Reason
}

func (e *VerifyError) Unwrap() error { return e.Err }

// TokenManager validates HS256 JWTs and, for tooling and tests, signs them.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a new manager. ttlMinutes only affects Issue.
func NewTokenManager(secret string, ttlMinutes int) (*TokenManager, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	return &TokenManager{
		secret: []byte(secret),
		ttl:    time.Duration(ttlMinutes) * time.Minute,
		now:    time.Now,
	}, nil
}

// Claims describes the JWT payload.
type Claims struct {
	UserID string `json:"id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Issue signs a token for the identity expiring after the configured TTL.
func (tm *TokenManager) Issue(identity domain.Identity) (string, time.Time, error) {
	return tm.IssueWithTTL(identity, tm.ttl)
}

// IssueWithTTL signs a token expiring after ttl. A negative ttl yields an
// already expired token.
func (tm *TokenManager) IssueWithTTL(identity domain.Identity, ttl time.Duration) (string, time.Time, error) {
	now := tm.now()
	expiresAt := now.Add(ttl)
	claims := &Claims{
		UserID: identity.UserID,
		Role:   string(identity.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Parse checks signature and expiry and decodes the identity.
// Every failure is a *VerifyError.
func (tm *TokenManager) Parse(tokenStr string) (domain.Identity, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		return domain.Identity{}, &VerifyError{Reason: classify(err), Err: err}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return domain.Identity{}, &VerifyError{Reason: ReasonInvalidClaims}
	}
	if claims.UserID == "" {
		return domain.Identity{}, &VerifyError{Reason: ReasonInvalidClaims, Err: errors.New("missing id claim")}
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return domain.Identity{}, &VerifyError{Reason: ReasonUnknownRole, Err: err}
	}
	return domain.Identity{UserID: claims.UserID, Role: role}, nil
}

func classify(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ReasonSignatureInvalid
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ReasonMalformed
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return ReasonUnverifiable
	default:
		return ReasonInvalidClaims
	}
}
