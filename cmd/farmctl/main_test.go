package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spec-kit/farmer-dashboard/internal/auth"
	"github.com/spec-kit/farmer-dashboard/internal/domain"
)

func fakeAPI(t *testing.T, token, role string) *httptest.Server {
	t.Helper()
	region := ""
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer "+token {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":{"code":"TOKEN_MISSING","message":"access denied, token missing"}}`))
			return
		}
		switch r.URL.Path {
		case "/api/auth/me":
			_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"id": "u-1", "role": role}})
		case "/api/profile/region":
			if r.Method == http.MethodPut {
				var body struct {
					Region string `json:"region"`
				}
				_ = json.NewDecoder(r.Body).Decode(&body)
				region = body.Region
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"region": region})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestWhoami(t *testing.T) {
	srv := fakeAPI(t, "good", "farmer")

	out, err := run(t, "whoami", "--api", srv.URL, "--token", "good")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "u-1 (farmer)" {
		t.Fatalf("output = %q", out)
	}

	out, err = run(t, "whoami", "--api", srv.URL, "--token", "stale")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "not logged in" {
		t.Fatalf("output = %q", out)
	}
}

func TestRouteDecisions(t *testing.T) {
	srv := fakeAPI(t, "good", "admin")

	out, err := run(t, "route", "--api", srv.URL, "--token", "good", "/admin/dashboard", "/farmer/profile", "/login", "/nowhere")
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{
		"/admin/dashboard\trender",
		"/farmer/profile\tredirect\t/admin/dashboard",
		"/login\tredirect\t/admin/dashboard",
		"/nowhere\tredirect\t/",
	}, "\n") + "\n"
	if out != want {
		t.Fatalf("output =\n%s\nwant\n%s", out, want)
	}
}

func TestRouteFollowLoggedOut(t *testing.T) {
	srv := fakeAPI(t, "good", "farmer")

	out, err := run(t, "route", "--follow", "--api", srv.URL, "/farmer/dashboard")
	if err != nil {
		t.Fatal(err)
	}
	want := "/farmer/dashboard\tredirect\t/login\n/login\trender\n"
	if out != want {
		t.Fatalf("output = %q, want %q", out, want)
	}
}

func TestRegionGetAndSet(t *testing.T) {
	srv := fakeAPI(t, "good", "farmer")

	out, err := run(t, "region", "--api", srv.URL, "--token", "good")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "(no region set)" {
		t.Fatalf("output = %q", out)
	}

	out, err = run(t, "region", "--api", srv.URL, "--token", "good", "Rift Valley")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "Rift Valley" {
		t.Fatalf("output = %q", out)
	}
}

func TestRegionRequiresFarmer(t *testing.T) {
	srv := fakeAPI(t, "good", "admin")

	if _, err := run(t, "region", "--api", srv.URL, "--token", "good"); err == nil {
		t.Fatal("expected error for admin session")
	}
}

func TestTokenMint(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")
	out, err := run(t, "token", "mint", "--secret", "dev-secret", "--id", "u-9", "--role", "admin", "--ttl", "10m")
	if err != nil {
		t.Fatal(err)
	}

	tm, err := auth.NewTokenManager("dev-secret", 0)
	if err != nil {
		t.Fatal(err)
	}
	identity, err := tm.Parse(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("minted token rejected: %v", err)
	}
	if identity != (domain.Identity{UserID: "u-9", Role: domain.RoleAdmin}) {
		t.Fatalf("identity = %+v", identity)
	}
}

func TestTokenMintValidation(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("FARMCTL_SECRET", "")

	if _, err := run(t, "token", "mint", "--id", "u-1"); err == nil {
		t.Fatal("expected missing secret error")
	}
	if _, err := run(t, "token", "mint", "--secret", "s", "--id", "u-1", "--role", "root"); err == nil {
		t.Fatal("expected unknown role error")
	}
	if _, err := run(t, "token", "mint", "--secret", "s"); err == nil {
		t.Fatal("expected missing id error")
	}
}
