package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/farmer-dashboard/internal/domain"
)

const defaultTimeout = 15 * time.Second

// Client wraps HTTP calls to the dashboard API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	token      string
	channel    domain.TokenChannel
	cookieName string
	logger     *zap.Logger
}

// Options overrides client dependencies. Token is sent on Channel
// (header by default); an empty Token relies on the HTTP client's cookie jar.
type Options struct {
	HTTPClient *http.Client
	Logger     *zap.Logger
	Token      string
	Channel    domain.TokenChannel
	CookieName string
}

// New creates an API client.
func New(baseURL string, opts Options) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is empty")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse baseURL: %w", err)
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	channel := opts.Channel
	if channel == "" || channel == domain.ChannelNone {
		channel = domain.ChannelHeader
	}
	cookieName := opts.CookieName
	if cookieName == "" {
		cookieName = "token"
	}
	return &Client{
		baseURL:    parsed,
		httpClient: client,
		token:      opts.Token,
		channel:    channel,
		cookieName: cookieName,
		logger:     logger,
	}, nil
}

// Error describes a failed API call.
type Error struct {
	Op     string
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return "api client error"
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Unauthenticated reports whether the server refused the credential.
func (e *Error) Unauthenticated() bool {
	return e != nil && (e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden)
}

type identityEnvelope struct {
	Data struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	} `json:"data"`
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CurrentIdentity calls the identity-check endpoint.
func (c *Client) CurrentIdentity(ctx context.Context) (domain.Identity, error) {
	const op = "CurrentIdentity"
	resp, err := c.do(ctx, http.MethodGet, "/api/auth/me", nil)
	if err != nil {
		return domain.Identity{}, &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.Identity{}, statusError(op, resp)
	}

	var body identityEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.Identity{}, &Error{Op: op, Status: resp.StatusCode, Err: err}
	}
	if strings.TrimSpace(body.Data.ID) == "" {
		return domain.Identity{}, &Error{Op: op, Status: resp.StatusCode, Err: errors.New("empty id")}
	}
	role, err := domain.ParseRole(body.Data.Role)
	if err != nil {
		return domain.Identity{}, &Error{Op: op, Status: resp.StatusCode, Err: err}
	}
	return domain.Identity{UserID: body.Data.ID, Role: role}, nil
}

type regionPayload struct {
	Region string `json:"region"`
}

// Region fetches the saved profile region.
func (c *Client) Region(ctx context.Context) (string, error) {
	const op = "Region"
	resp, err := c.do(ctx, http.MethodGet, "/api/profile/region", nil)
	if err != nil {
		return "", &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", statusError(op, resp)
	}
	var body regionPayload
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", &Error{Op: op, Status: resp.StatusCode, Err: err}
	}
	return body.Region, nil
}

// SetRegion saves the profile region and returns the stored value.
func (c *Client) SetRegion(ctx context.Context, region string) (string, error) {
	const op = "SetRegion"
	resp, err := c.do(ctx, http.MethodPut, "/api/profile/region", regionPayload{Region: region})
	if err != nil {
		return "", &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", statusError(op, resp)
	}
	var body regionPayload
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", &Error{Op: op, Status: resp.StatusCode, Err: err}
	}
	return body.Region, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	endpoint := c.baseURL.ResolveReference(&url.URL{Path: path})

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		switch c.channel {
		case domain.ChannelCookie:
			req.AddCookie(&http.Cookie{Name: c.cookieName, Value: c.token})
		default:
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
	}

	c.logger.Debug("api request", zap.String("method", method), zap.String("path", path))
	return c.httpClient.Do(req)
}

func statusError(op string, resp *http.Response) error {
	apiErr := &Error{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	var envelope errorEnvelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&envelope); err == nil && envelope.Error.Code != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Err = errors.New(envelope.Error.Message)
	}
	return apiErr
}
