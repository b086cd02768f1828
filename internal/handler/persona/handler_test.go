package persona

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/fluentpal/tutor/backend/internal/model/lesson"
	"github.com/fluentpal/tutor/backend/internal/model/persona"
)

func setupRouter() *chi.Mux {
	r := chi.NewRouter()
	New(persona.NewMemoryStore(persona.Seed()), lesson.NewRegistry(lesson.Seed())).RegisterRoutes(r)
	return r
}

func TestListPersonasHidesPrompts(t *testing.T) {
	resp := httptest.NewRecorder()
	setupRouter().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/personas", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if strings.Contains(resp.Body.String(), "You are a") {
		t.Fatal("system prompts must not be exposed")
	}
	var personas []persona.Persona
	if err := json.NewDecoder(resp.Body).Decode(&personas); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(personas) != len(persona.Seed()) || personas[0].ID != persona.DefaultID {
		t.Fatalf("unexpected personas: %+v", personas)
	}
}

func TestListLessons(t *testing.T) {
	resp := httptest.NewRecorder()
	setupRouter().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/lessons", nil))

	var lessons []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&lessons); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(lessons) != 4 || lessons[0]["mode"] != "feedback" {
		t.Fatalf("unexpected lessons: %v", lessons)
	}
	if _, ok := lessons[0]["response"]; ok {
		t.Fatal("canned responses stay server side")
	}
}
