package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/farmer-dashboard/internal/domain"
	"github.com/spec-kit/farmer-dashboard/internal/events"
	"github.com/spec-kit/farmer-dashboard/internal/observability"
	apperrors "github.com/spec-kit/farmer-dashboard/pkg/util/errorutil"
)

const (
	// DefaultCookieName is the cookie the issuer stores the token in.
	DefaultCookieName = "token"
	bearerPrefix      = "Bearer "
)

// RejectionKind classifies gate refusals.
type RejectionKind string

const (
	MissingToken RejectionKind = "MissingToken"
	InvalidToken RejectionKind = "InvalidToken"
)

// Rejection is produced by the gate instead of an Identity.
type Rejection struct {
	Kind   RejectionKind
	Status int
	Detail string
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return string(r.Kind)
	}
	return string(r.Kind) + ": " + r.Detail
}

// DomainError converts the rejection into the API error envelope.
func (r *Rejection) DomainError() error {
	if r.Kind == MissingToken {
		return apperrors.NewTokenMissing()
	}
	return apperrors.NewTokenInvalid(r.Detail)
}

// GateOptions configures optional gate collaborators.
type GateOptions struct {
	CookieName string
	Audit      events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// Gate verifies the request credential and attaches the decoded identity.
type Gate struct {
	tokens     *TokenManager
	cookieName string
	audit      events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewGate constructs the gate. A nil token manager is a configuration error.
func NewGate(tokens *TokenManager, opts GateOptions) (*Gate, error) {
	if tokens == nil || len(tokens.secret) == 0 {
		return nil, ErrMissingSecret
	}
	cookieName := opts.CookieName
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		tokens:     tokens,
		cookieName: cookieName,
		audit:      opts.Audit,
		metrics:    opts.Metrics,
		logger:     logger,
	}, nil
}

// Extract picks the candidate token. The cookie wins; the Authorization
// header is consulted only when the cookie is empty and must start with the
// exact "Bearer " prefix.
func Extract(cookieValue, authorization string) (string, domain.TokenChannel) {
	if cookieValue != "" {
		return cookieValue, domain.ChannelCookie
	}
	if strings.HasPrefix(authorization, bearerPrefix) {
		if token := authorization[len(bearerPrefix):]; token != "" {
			return token, domain.ChannelHeader
		}
	}
	return "", domain.ChannelNone
}

// Verify decides a request without side effects.
func (g *Gate) Verify(c *fiber.Ctx) (domain.Identity, *Rejection) {
	identity, _, _, rejection := g.verify(c)
	return identity, rejection
}

func (g *Gate) verify(c *fiber.Ctx) (domain.Identity, domain.TokenChannel, string, *Rejection) {
	token, channel := Extract(c.Cookies(g.cookieName), c.Get(fiber.HeaderAuthorization))
	if channel == domain.ChannelNone {
		return domain.Identity{}, channel, "", &Rejection{Kind: MissingToken, Status: http.StatusForbidden}
	}

	ref := TokenRef(token)
	identity, err := g.tokens.Parse(token)
	if err != nil {
		reason := ReasonInvalidClaims
		var verr *VerifyError
		if errors.As(err, &verr) {
			reason = verr.Reason
		}
		return domain.Identity{}, channel, ref, &Rejection{Kind: InvalidToken, Status: http.StatusUnauthorized, Detail: reason}
	}
	return identity, channel, ref, nil
}

// Handle enforces authentication for protected routes.
func (g *Gate) Handle(c *fiber.Ctx) error {
	identity, channel, ref, rejection := g.verify(c)
	g.record(c, identity, channel, ref, rejection)

	if rejection != nil {
		return rejection.DomainError()
	}

	c.Locals(identityKey, identity)
	c.SetUserContext(WithIdentity(c.UserContext(), identity))
	return c.Next()
}

func (g *Gate) record(c *fiber.Ctx, identity domain.Identity, channel domain.TokenChannel, ref string, rejection *Rejection) {
	decision := events.AuthDecision{
		Outcome:  events.OutcomeAccepted,
		Channel:  channel,
		TokenRef: ref,
		Method:   strings.Clone(c.Method()),
		Path:     strings.Clone(c.Path()),
	}
	if rejection != nil {
		decision.Outcome = events.OutcomeRejected
		decision.Kind = string(rejection.Kind)
		decision.Reason = rejection.Detail
	} else {
		decision.UserID = identity.UserID
		decision.Role = identity.Role
	}

	g.metrics.RecordAuthDecision(string(decision.Outcome), decision.Reason)

	if g.audit == nil {
		return
	}
	if err := g.audit.Publish(c.UserContext(), events.NewAuthDecisionEvent(decision, time.Now().UTC())); err != nil {
		g.logger.Warn("audit publish failed", zap.Error(err))
	}
}
