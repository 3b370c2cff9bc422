package server_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cicerone-ai/cicerone/internal/persona"
	"github.com/cicerone-ai/cicerone/internal/server"
	"github.com/cicerone-ai/cicerone/internal/session"
	"github.com/cicerone-ai/cicerone/pkg/audio"
	audiomock "github.com/cicerone-ai/cicerone/pkg/audio/mock"
	livemock "github.com/cicerone-ai/cicerone/pkg/live/mock"
)

func newTestServer(t *testing.T, provider *livemock.Provider) (*httptest.Server, *session.Controller) {
	t.Helper()

	catalog := persona.NewCatalog()
	ctrl, err := session.NewController(session.Config{
		Provider:   provider,
		OpenInput:  func() (audio.InputDevice, error) { return audiomock.NewInput(), nil },
		OpenOutput: func() (audio.OutputDevice, error) { return audiomock.NewOutput(), nil },
		Catalog:    catalog,
		City:       "London",
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	t.Cleanup(func() { _ = ctrl.Stop() })

	mux := http.NewServeMux()
	server.New(ctrl, catalog, nil).Register(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, ctrl
}

func doJSON[T any](t *testing.T, method, url string, wantStatus int) T {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s status = %d, want %d (body %s)", method, url, resp.StatusCode, wantStatus, body)
	}
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

type sessionView struct {
	State   string `json:"state"`
	Persona string `json:"persona"`
}

func TestSessionLifecycle(t *testing.T) {
	ts, _ := newTestServer(t, &livemock.Provider{})

	got := doJSON[sessionView](t, http.MethodGet, ts.URL+"/api/session", http.StatusOK)
	if got.State != "idle" || got.Persona != "david" {
		t.Fatalf("initial session = %+v", got)
	}

	got = doJSON[sessionView](t, http.MethodPost, ts.URL+"/api/session/start", http.StatusOK)
	if got.State != "live" {
		t.Fatalf("state after start = %q, want live", got.State)
	}

	// Starting twice conflicts.
	doJSON[map[string]string](t, http.MethodPost, ts.URL+"/api/session/start", http.StatusConflict)

	got = doJSON[sessionView](t, http.MethodPost, ts.URL+"/api/session/stop", http.StatusOK)
	if got.State != "idle" {
		t.Fatalf("state after stop = %q, want idle", got.State)
	}
}

func TestToggle(t *testing.T) {
	ts, _ := newTestServer(t, &livemock.Provider{})

	got := doJSON[sessionView](t, http.MethodPost, ts.URL+"/api/session/toggle", http.StatusOK)
	if got.State != "live" {
		t.Fatalf("state after toggle = %q, want live", got.State)
	}
	got = doJSON[sessionView](t, http.MethodPost, ts.URL+"/api/session/toggle", http.StatusOK)
	if got.State != "idle" {
		t.Fatalf("state after second toggle = %q, want idle", got.State)
	}
}

func TestStartFailureMapsToBadGateway(t *testing.T) {
	provider := &livemock.Provider{ConnectErr: io.ErrUnexpectedEOF}
	ts, _ := newTestServer(t, provider)

	doJSON[map[string]string](t, http.MethodPost, ts.URL+"/api/session/start", http.StatusBadGateway)
}

func TestPersonas(t *testing.T) {
	ts, _ := newTestServer(t, &livemock.Provider{})

	type personaView struct {
		ID     string `json:"id"`
		Voice  string `json:"voice"`
		Active bool   `json:"active"`
	}
	personas := doJSON[[]personaView](t, http.MethodGet, ts.URL+"/api/personas", http.StatusOK)
	if len(personas) != 5 {
		t.Fatalf("personas = %d, want 5", len(personas))
	}
	for _, p := range personas {
		if p.Active != (p.ID == "david") {
			t.Errorf("persona %s active = %v", p.ID, p.Active)
		}
	}

	got := doJSON[sessionView](t, http.MethodPost, ts.URL+"/api/personas/amelia/activate", http.StatusOK)
	if got.Persona != "amelia" {
		t.Fatalf("persona after activate = %q, want amelia", got.Persona)
	}

	doJSON[map[string]string](t, http.MethodPost, ts.URL+"/api/personas/nobody/activate", http.StatusNotFound)
}

func TestMessagesIncludeGreeting(t *testing.T) {
	ts, _ := newTestServer(t, &livemock.Provider{})

	type messageView struct {
		Role string `json:"role"`
		Text string `json:"text"`
	}
	msgs := doJSON[[]messageView](t, http.MethodGet, ts.URL+"/api/messages", http.StatusOK)
	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want the seeded greeting", len(msgs))
	}
	if msgs[0].Role != "agent" {
		t.Errorf("greeting role = %q, want agent", msgs[0].Role)
	}
}

func TestMapStateEmptyBeforeAnyChange(t *testing.T) {
	ts, _ := newTestServer(t, &livemock.Provider{})

	got := doJSON[map[string]any](t, http.MethodGet, ts.URL+"/api/map", http.StatusOK)
	if got["kind"] != "" {
		t.Fatalf("map kind = %v, want empty", got["kind"])
	}
}
