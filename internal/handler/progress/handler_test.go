package progress

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fluentpal/tutor/backend/internal/middleware"
	progressmodel "github.com/fluentpal/tutor/backend/internal/model/progress"
	chatservice "github.com/fluentpal/tutor/backend/internal/service/chat"
	progressservice "github.com/fluentpal/tutor/backend/internal/service/progress"
)

func setupRouter() *chi.Mux {
	clock := func() time.Time { return time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC) }
	updater := progressservice.NewUpdater(progressservice.NewMemoryStore(), chatservice.NewMemoryStore(), progressservice.WithClock(clock))

	r := chi.NewRouter()
	New(updater).RegisterRoutes(r)
	return r
}

func as(req *http.Request, user string) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), user))
}

func TestProgressRequiresUser(t *testing.T) {
	resp := httptest.NewRecorder()
	setupRouter().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/progress", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestProgressSummaryForNewUser(t *testing.T) {
	resp := httptest.NewRecorder()
	setupRouter().ServeHTTP(resp, as(httptest.NewRequest(http.MethodGet, "/progress", nil), "alice"))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var summary progressservice.Summary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary.Profile.Level != 1 || summary.Profile.XP != 0 {
		t.Fatalf("unexpected profile: %+v", summary.Profile)
	}
	if len(summary.Missions) != len(progressmodel.SeedMissions()) {
		t.Fatalf("missions should be assigned, got %d", len(summary.Missions))
	}
}

func TestAddProgress(t *testing.T) {
	r := setupRouter()

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, as(httptest.NewRequest(http.MethodPost, "/progress", strings.NewReader(`{"xp":150,"time":12}`)), "alice"))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var profile progressmodel.Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// 150 manual + 50 for the ten-minute mission
	if profile.XP != 200 || profile.Level != 3 || profile.TotalMinutes != 12 {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestAddProgressValidation(t *testing.T) {
	r := setupRouter()
	for _, body := range []string{`{"xp":-5,"time":1}`, `{"xp":5,"time":1000}`, `not json`} {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, as(httptest.NewRequest(http.MethodPost, "/progress", strings.NewReader(body)), "alice"))
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, resp.Code)
		}
	}
}
