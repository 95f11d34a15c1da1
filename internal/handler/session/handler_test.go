package session

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Dhvanitmonpara/interview.ai/internal/handler/channel"
	"github.com/Dhvanitmonpara/interview.ai/internal/model/interview"
	"github.com/Dhvanitmonpara/interview.ai/internal/model/role"
	sessionService "github.com/Dhvanitmonpara/interview.ai/internal/service/session"
	"github.com/Dhvanitmonpara/interview.ai/internal/storage"
)

type fakeLive map[string]bool

func (f fakeLive) WithLive(connectionID string, fn func() error) error {
	if !f[connectionID] {
		return channel.ErrConnectionNotLive
	}
	return fn()
}

func setupRouter(live fakeLive) (*chi.Mux, *sessionService.MemoryRegistry, *storage.MemoryArchive) {
	registry := sessionService.NewMemoryRegistry()
	archive := storage.NewMemoryArchive()
	handler := New(registry, archive, role.NewMemoryStore(role.Seed()), live)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, registry, archive
}

func postCandidate(r http.Handler, connectionID string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/session/"+connectionID, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func validCandidate() map[string]any {
	return map[string]any{
		"name":              "Alice",
		"yearsOfExperience": 3,
		"jobRole":           "Frontend Developer",
		"skills":            []string{"react"},
	}
}

func TestCreateSessionForLiveConnection(t *testing.T) {
	r, registry, _ := setupRouter(fakeLive{"conn-1": true})

	resp := postCandidate(r, "conn-1", validCandidate())
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	s, err := registry.Get(context.Background(), "conn-1")
	if err != nil {
		t.Fatalf("expected session to exist: %v", err)
	}
	if s.Candidate.JobRole != "front-end" {
		t.Fatalf("expected canonical role id, got %q", s.Candidate.JobRole)
	}
}

func TestCreateSessionDuplicate(t *testing.T) {
	r, _, _ := setupRouter(fakeLive{"conn-1": true})

	if resp := postCandidate(r, "conn-1", validCandidate()); resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	if resp := postCandidate(r, "conn-1", validCandidate()); resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}

func TestCreateSessionUnknownConnection(t *testing.T) {
	r, registry, _ := setupRouter(fakeLive{})

	resp := postCandidate(r, "ghost", validCandidate())
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if registry.Len() != 0 {
		t.Fatalf("expected no session to be created, got %d", registry.Len())
	}
}

func TestCreateSessionInvalidCandidate(t *testing.T) {
	r, _, _ := setupRouter(fakeLive{"conn-1": true})

	invalid := validCandidate()
	invalid["jobRole"] = "astronaut"
	if resp := postCandidate(r, "conn-1", invalid); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/session/conn-1", bytes.NewReader([]byte(`{`)))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestGetSessionData(t *testing.T) {
	r, registry, _ := setupRouter(fakeLive{})

	req := httptest.NewRequest(http.MethodGet, "/session/data/conn-1", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}

	candidate := interview.Candidate{Name: "Alice", YearsOfExperience: 3, JobRole: "front-end", Skills: []string{"react"}}
	if _, err := registry.Create(context.Background(), "conn-1", candidate); err != nil {
		t.Fatalf("create: %v", err)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/session/data/conn-1", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body struct {
		Success bool              `json:"success"`
		Data    interview.Session `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !body.Success || body.Data.Candidate.Name != "Alice" {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.Data.EndTime != nil {
		t.Fatalf("expected open session, got end time %v", body.Data.EndTime)
	}
}

func TestListSessionsByUser(t *testing.T) {
	r, _, archive := setupRouter(fakeLive{})

	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b"} {
		s := interview.Session{
			ConnectionID: id,
			Candidate:    interview.Candidate{Name: "Alice", UserID: "user-1"},
			StartTime:    start.Add(time.Duration(i) * time.Hour),
			Status:       interview.StatusCompleted,
		}
		if err := archive.Save(context.Background(), s); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/session/all/user-1", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body struct {
		Data []interview.Session `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Data) != 2 || body.Data[0].ConnectionID != "b" {
		t.Fatalf("expected newest first, got %+v", body.Data)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/session/all/%20", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank user, got %d", resp.Code)
	}
}
