package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"langstory/internal/app"
	"langstory/internal/server"
	"langstory/pkg/store"
)

type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func newTestServer(t *testing.T) (http.Handler, store.SessionStore) {
	t.Helper()
	sessions, err := store.NewJWTSessionStore("test-secret", 0, store.NewMemoryTokenRevoker())
	if err != nil {
		t.Fatalf("session store: %v", err)
	}
	a, err := app.New(app.Config{
		Store:    store.NewMemoryStore(),
		Sessions: sessions,
	})
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	srv, err := server.New(server.Config{App: a})
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	return srv.Router(), sessions
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) (*httptest.ResponseRecorder, testEnvelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env testEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: response is not an envelope: %v (%s)", method, path, err, rec.Body.String())
	}
	return rec, env
}

func signupToken(t *testing.T, h http.Handler, email string) string {
	t.Helper()
	rec, env := doJSON(t, h, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": email, "password": "password123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status %d: %s", rec.Code, rec.Body.String())
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Token == "" {
		t.Fatalf("signup returned no token: %s", env.Data)
	}
	return data.Token
}

func TestStatusEndpoint(t *testing.T) {
	h, _ := newTestServer(t)
	rec, env := doJSON(t, h, http.MethodGet, "/", "", nil)
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("status %d success=%v", rec.Code, env.Success)
	}
	if env.Message == "" {
		t.Fatal("status endpoint has no message")
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("missing X-Request-Id header")
	}
}

func TestUnknownPathReturns404Envelope(t *testing.T) {
	h, _ := newTestServer(t)
	rec, env := doJSON(t, h, http.MethodGet, "/nope", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rec.Code)
	}
	if env.Success || env.Message != "Not found" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestAuthGate(t *testing.T) {
	h, _ := newTestServer(t)

	rec, env := doJSON(t, h, http.MethodGet, "/api/user/profile", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no header: status %d, want 401", rec.Code)
	}
	if env.Success || env.Message != "Unauthorized: No token provided" {
		t.Fatalf("no header envelope: %+v", env)
	}

	rec, env = doJSON(t, h, http.MethodGet, "/api/user/profile", "garbage-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status %d, want 401", rec.Code)
	}
	if env.Success || env.Message != "Unauthorized: Invalid token" {
		t.Fatalf("bad token envelope: %+v", env)
	}
}

func TestProfileForVanishedUser(t *testing.T) {
	h, sessions := newTestServer(t)

	// A well-formed token whose subject was never stored.
	token, err := sessions.NewSession("ghost-user")
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	rec, env := doJSON(t, h, http.MethodGet, "/api/user/profile", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rec.Code)
	}
	if env.Success || env.Message != "User not found" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestSignupValidationOverHTTP(t *testing.T) {
	h, _ := newTestServer(t)
	rec, env := doJSON(t, h, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": "not-an-email", "password": "password123",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
	if env.Success || env.Message == "" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestProfileOmitsPasswordHash(t *testing.T) {
	h, _ := newTestServer(t)
	token := signupToken(t, h, "alice@example.com")

	rec, env := doJSON(t, h, http.MethodGet, "/api/user/profile", token, nil)
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("profile status %d: %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(string(env.Data), "password") {
		t.Fatalf("profile leaks password material: %s", env.Data)
	}
	var profile struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(env.Data, &profile); err != nil || profile.Email != "alice@example.com" {
		t.Fatalf("unexpected profile data: %s", env.Data)
	}
}

func TestStoryFlowOverHTTP(t *testing.T) {
	h, _ := newTestServer(t)
	token := signupToken(t, h, "bob@example.com")

	rec, env := doJSON(t, h, http.MethodPost, "/api/stories/es", token, map[string]any{
		"title":   "La Tormenta",
		"content": "Había una vez...",
		"level":   "A2",
		"genre":   "adventure",
	})
	if rec.Code != http.StatusCreated || !env.Success {
		t.Fatalf("add story status %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID       string `json:"id"`
		Language string `json:"language"`
	}
	if err := json.Unmarshal(env.Data, &created); err != nil || created.ID == "" {
		t.Fatalf("add story data: %s", env.Data)
	}
	if created.Language != "es" {
		t.Fatalf("story language %q, want es", created.Language)
	}

	// summaries never carry the story text
	rec, env = doJSON(t, h, http.MethodGet, "/api/stories/es", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status %d", rec.Code)
	}
	if strings.Contains(string(env.Data), "Había una vez") {
		t.Fatalf("summary list contains story content: %s", env.Data)
	}

	rec, env = doJSON(t, h, http.MethodGet, "/api/stories/es/"+created.ID+"/content", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("content status %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(string(env.Data), "Había una vez") {
		t.Fatalf("content lookup missing story text: %s", env.Data)
	}

	rec, env = doJSON(t, h, http.MethodDelete, "/api/stories/es/"+created.ID, token, nil)
	if rec.Code != http.StatusOK || env.Message != "Story deleted successfully" {
		t.Fatalf("delete status %d envelope %+v", rec.Code, env)
	}

	rec, env = doJSON(t, h, http.MethodDelete, "/api/stories/es/"+created.ID, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status %d, want 404", rec.Code)
	}
	if env.Message != "No stories found for this language" {
		t.Fatalf("second delete message %q", env.Message)
	}
}

func TestWordFlowOverHTTP(t *testing.T) {
	h, _ := newTestServer(t)
	token := signupToken(t, h, "carol@example.com")

	rec, env := doJSON(t, h, http.MethodPost, "/api/words/ko", token, map[string]string{
		"word": "사과", "meaning": "apple",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add word status %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &created); err != nil || created.ID == "" {
		t.Fatalf("add word data: %s", env.Data)
	}

	rec, _ = doJSON(t, h, http.MethodPost, "/api/words/ko", token, map[string]string{"word": "배"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing meaning status %d, want 400", rec.Code)
	}

	rec, env = doJSON(t, h, http.MethodDelete, "/api/words/ko/"+created.ID, token, nil)
	if rec.Code != http.StatusOK || env.Message != "Word deleted successfully" {
		t.Fatalf("delete word status %d envelope %+v", rec.Code, env)
	}
}

func TestCoinOverHTTP(t *testing.T) {
	h, _ := newTestServer(t)
	token := signupToken(t, h, "dan@example.com")

	rec, env := doJSON(t, h, http.MethodGet, "/api/user/coin", token, nil)
	if rec.Code != http.StatusOK || string(env.Data) != `{"coin":0}` {
		t.Fatalf("initial coin: status %d data %s", rec.Code, env.Data)
	}

	rec, env = doJSON(t, h, http.MethodPatch, "/api/user/coin", token, map[string]any{"coin": 2.5})
	if rec.Code != http.StatusBadRequest || env.Message != "Invalid coin value" {
		t.Fatalf("fractional coin: status %d envelope %+v", rec.Code, env)
	}

	rec, env = doJSON(t, h, http.MethodPatch, "/api/user/coin", token, map[string]any{"coin": nil})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("null coin: status %d, want 400", rec.Code)
	}

	rec, env = doJSON(t, h, http.MethodPatch, "/api/user/coin", token, map[string]any{"coin": 7})
	if rec.Code != http.StatusOK || string(env.Data) != `{"coin":7}` {
		t.Fatalf("set coin: status %d data %s", rec.Code, env.Data)
	}
}

func TestLogoutOverHTTP(t *testing.T) {
	h, _ := newTestServer(t)
	token := signupToken(t, h, "eve@example.com")

	rec, env := doJSON(t, h, http.MethodPost, "/api/auth/logout", token, nil)
	if rec.Code != http.StatusOK || env.Message != "Logged out successfully" {
		t.Fatalf("logout status %d envelope %+v", rec.Code, env)
	}

	rec, _ = doJSON(t, h, http.MethodGet, "/api/user/profile", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token status %d, want 401", rec.Code)
	}

	rec, env = doJSON(t, h, http.MethodPost, "/api/auth/logout", "", nil)
	if rec.Code != http.StatusUnauthorized || env.Message != "Unauthorized: No token provided" {
		t.Fatalf("logout without token: status %d envelope %+v", rec.Code, env)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h, _ := newTestServer(t)
	token := signupToken(t, h, "frank@example.com")

	rec, _ := doJSON(t, h, http.MethodPut, "/api/stories/es", token, nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status %d, want 405", rec.Code)
	}
}
