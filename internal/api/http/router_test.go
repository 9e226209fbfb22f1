package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/farmer-dashboard/internal/api/http/handlers"
	"github.com/spec-kit/farmer-dashboard/internal/auth"
	"github.com/spec-kit/farmer-dashboard/internal/domain"
	"github.com/spec-kit/farmer-dashboard/internal/observability"
	"github.com/spec-kit/farmer-dashboard/internal/service"
)

type memoryProfiles struct {
	regions map[string]string
}

func (m *memoryProfiles) GetByUserID(_ context.Context, userID string) (*domain.Profile, error) {
	return &domain.Profile{UserID: userID, Region: m.regions[userID]}, nil
}

func (m *memoryProfiles) UpsertRegion(_ context.Context, userID, region string) (*domain.Profile, error) {
	m.regions[userID] = region
	return &domain.Profile{UserID: userID, Region: region}, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type testServer struct {
	app    *fiber.App
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T, deps map[string]handlers.Pinger) *testServer {
	t.Helper()
	tokens, err := auth.NewTokenManager("router-secret", 60)
	if err != nil {
		t.Fatal(err)
	}
	metrics := observability.NewMetrics()
	gate, err := auth.NewGate(tokens, auth.GateOptions{Metrics: metrics})
	if err != nil {
		t.Fatal(err)
	}

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:  handlers.NewHealthHandler(handlers.HealthOptions{Service: "test", Version: "v0", Dependencies: deps, Metrics: metrics}),
		Auth:    handlers.NewAuthHandler(""),
		Profile: handlers.NewProfileHandler(service.NewProfileService(&memoryProfiles{regions: map[string]string{}})),
		Gate:    gate,
	})
	return &testServer{app: app, tokens: tokens}
}

func (s *testServer) token(t *testing.T, identity domain.Identity) string {
	t.Helper()
	token, _, err := s.tokens.Issue(identity)
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func (s *testServer) do(t *testing.T, req *nethttp.Request) (*nethttp.Response, map[string]any) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	body := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Fatalf("decode %q: %v", raw, err)
		}
	}
	return resp, body
}

func errorCode(body map[string]any) string {
	envelope, _ := body["error"].(map[string]any)
	code, _ := envelope["code"].(string)
	return code
}

func TestIdentityCheckEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.token(t, domain.Identity{UserID: "u-5", Role: domain.RoleFarmer})

	req := httptest.NewRequest(nethttp.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&nethttp.Cookie{Name: "token", Value: token})
	resp, body := s.do(t, req)

	if resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("status %d body %v", resp.StatusCode, body)
	}
	data := body["data"].(map[string]any)
	if data["id"] != "u-5" || data["role"] != "farmer" {
		t.Fatalf("data = %v", data)
	}
	if resp.Header.Get(observability.RequestIDHeader) == "" {
		t.Fatal("missing request id header")
	}
}

func TestIdentityCheckRejections(t *testing.T) {
	s := newTestServer(t, nil)

	resp, body := s.do(t, httptest.NewRequest(nethttp.MethodGet, "/api/auth/me", nil))
	if resp.StatusCode != nethttp.StatusForbidden || errorCode(body) != "TOKEN_MISSING" {
		t.Fatalf("missing: %d %v", resp.StatusCode, body)
	}

	req := httptest.NewRequest(nethttp.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer nope")
	resp, body = s.do(t, req)
	if resp.StatusCode != nethttp.StatusUnauthorized || errorCode(body) != "TOKEN_INVALID" {
		t.Fatalf("invalid: %d %v", resp.StatusCode, body)
	}
	details := body["error"].(map[string]any)["details"].(map[string]any)
	if details["reason"] != auth.ReasonMalformed {
		t.Fatalf("details = %v", details)
	}
}

func TestProfileRegionRoundTrip(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.token(t, domain.Identity{UserID: "u-1", Role: domain.RoleFarmer})

	put := httptest.NewRequest(nethttp.MethodPut, "/api/profile/region", bytes.NewBufferString(`{"region":" Multan "}`))
	put.Header.Set("Content-Type", "application/json")
	put.Header.Set("Authorization", "Bearer "+token)
	resp, body := s.do(t, put)
	if resp.StatusCode != nethttp.StatusOK || body["region"] != "Multan" {
		t.Fatalf("put: %d %v", resp.StatusCode, body)
	}

	get := httptest.NewRequest(nethttp.MethodGet, "/api/profile/region", nil)
	get.Header.Set("Authorization", "Bearer "+token)
	resp, body = s.do(t, get)
	if resp.StatusCode != nethttp.StatusOK || body["region"] != "Multan" {
		t.Fatalf("get: %d %v", resp.StatusCode, body)
	}

	bad := httptest.NewRequest(nethttp.MethodPut, "/api/profile/region", strings.NewReader(`{"region":"  "}`))
	bad.Header.Set("Content-Type", "application/json")
	bad.Header.Set("Authorization", "Bearer "+token)
	resp, body = s.do(t, bad)
	if resp.StatusCode != nethttp.StatusBadRequest || errorCode(body) != "VALIDATION_FAILED" {
		t.Fatalf("blank: %d %v", resp.StatusCode, body)
	}
}

func TestProfileRequiresFarmer(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.token(t, domain.Identity{UserID: "a-1", Role: domain.RoleAdmin})

	req := httptest.NewRequest(nethttp.MethodGet, "/api/profile/region", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, body := s.do(t, req)
	if resp.StatusCode != nethttp.StatusForbidden || errorCode(body) != "FORBIDDEN" {
		t.Fatalf("admin: %d %v", resp.StatusCode, body)
	}
}

func TestLogoutExpiresCookie(t *testing.T) {
	s := newTestServer(t, nil)

	resp, _ := s.do(t, httptest.NewRequest(nethttp.MethodPost, "/api/auth/logout", nil))
	if resp.StatusCode != nethttp.StatusNoContent {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == "token" {
			found = true
			if c.Value != "" || !c.Expires.Before(time.Now()) {
				t.Fatalf("cookie not cleared: %+v", c)
			}
		}
	}
	if !found {
		t.Fatal("no token cookie in response")
	}
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	s := newTestServer(t, nil)
	resp, body := s.do(t, httptest.NewRequest(nethttp.MethodGet, "/nowhere", nil))
	if resp.StatusCode != nethttp.StatusNotFound || errorCode(body) != "NOT_FOUND" {
		t.Fatalf("status %d body %v", resp.StatusCode, body)
	}
}

func TestReadiness(t *testing.T) {
	s := newTestServer(t, map[string]handlers.Pinger{"postgres": stubPinger{}, "redis": stubPinger{}})
	resp, _ := s.do(t, httptest.NewRequest(nethttp.MethodGet, "/health/ready", nil))
	if resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("ready status %d", resp.StatusCode)
	}

	s = newTestServer(t, map[string]handlers.Pinger{"redis": stubPinger{err: errors.New("down")}})
	resp, body := s.do(t, httptest.NewRequest(nethttp.MethodGet, "/health/ready", nil))
	if resp.StatusCode != nethttp.StatusServiceUnavailable || errorCode(body) != "DEPENDENCY_UNAVAILABLE" {
		t.Fatalf("not ready: %d %v", resp.StatusCode, body)
	}
}

func TestMetricsSnapshotCountsGateDecisions(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(t, httptest.NewRequest(nethttp.MethodGet, "/api/auth/me", nil))

	resp, body := s.do(t, httptest.NewRequest(nethttp.MethodGet, "/health/metrics", nil))
	if resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	decisions, _ := body["auth_decisions"].(map[string]any)
	if decisions["rejected"] != float64(1) {
		t.Fatalf("auth_decisions = %v", decisions)
	}
}
