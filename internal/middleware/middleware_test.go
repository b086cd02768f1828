package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/fluentpal/tutor/backend/internal/metrics"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func whoAmI() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("user=" + UserID(r.Context())))
	})
}

func TestAuthGate(t *testing.T) {
	valid := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), Claims{
		UserID:           "alice",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	subjectOnly := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{Subject: "bob"})
	expired := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), Claims{
		UserID:           "alice",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))},
	})
	wrongKey := signToken(t, jwt.SigningMethodHS256, []byte("other"), Claims{UserID: "mallory"})
	noUser := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{})

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"anonymous", "", http.StatusOK, "user="},
		{"valid", "Bearer " + valid, http.StatusOK, "user=alice"},
		{"subject fallback", "Bearer " + subjectOnly, http.StatusOK, "user=bob"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, ""},
		{"wrong key", "Bearer " + wrongKey, http.StatusUnauthorized, ""},
		{"no user", "Bearer " + noUser, http.StatusUnauthorized, ""},
		{"not bearer", "Basic abc", http.StatusUnauthorized, ""},
		{"garbage", "Bearer not-a-token", http.StatusUnauthorized, ""},
	}

	handler := Auth(testSecret)(whoAmI())
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != tt.status {
			t.Fatalf("%s: expected %d got %d", tt.name, tt.status, rec.Code)
		}
		if tt.body != "" && rec.Body.String() != tt.body {
			t.Fatalf("%s: unexpected body %q", tt.name, rec.Body.String())
		}
	}
}

func TestAuthRejectsTokensWhenSecretMissing(t *testing.T) {
	token := signToken(t, jwt.SigningMethodHS256, []byte("x"), Claims{UserID: "alice"})
	if _, err := VerifyToken("Bearer "+token, ""); err == nil {
		t.Fatal("tokens must not verify without a configured secret")
	}
}

func TestRequireUser(t *testing.T) {
	handler := RequireUser(whoAmI())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous request should be rejected, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUserID(req.Context(), "alice"))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "user=alice" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Body.String())
	}
}

func TestCORS(t *testing.T) {
	handler := CORS([]string{"https://app.example.com"})(whoAmI())

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("preflight should succeed, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://app.example.com" {
		t.Fatal("allowed origin should be echoed")
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatal("explicit origin should allow credentials")
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Headers"), "Authorization") {
		t.Fatal("Authorization header must be allowed")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("unknown origin must not be allowed")
	}

	wildcard := CORS([]string{"*"})(whoAmI())
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://any.example.com")
	rec = httptest.NewRecorder()
	wildcard.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://any.example.com" {
		t.Fatal("wildcard should allow any origin")
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Fatal("wildcard must not allow credentials")
	}
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	m := metrics.New("mw")
	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Get("/api/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/sessions/abc", nil))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	want := `mw_http_requests_total{method="GET",route="/api/sessions/{id}",status="404"} 1`
	if !strings.Contains(rec.Body.String(), want) {
		t.Fatalf("expected %q in metrics output", want)
	}
}
