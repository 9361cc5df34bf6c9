package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/snapguess/api/internal/config"
	"github.com/snapguess/api/internal/database"
	"github.com/snapguess/api/internal/migrations"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Run(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	return NewSQLiteStore(db)
}

func newTestServer(t *testing.T) (*chi.Mux, *SQLiteStore, *Dispatcher) {
	t.Helper()

	store := newTestStore(t)
	dispatcher := NewDispatcher(slog.Default())
	t.Cleanup(func() { dispatcher.Close() })

	cfg := &config.Config{
		BaseURL:     "http://localhost:8080",
		TokenSecret: "test-secret",
	}

	r := chi.NewRouter()
	addRoutes(r, slog.Default(), cfg, store, dispatcher, dispatcher, store.db, nil)
	return r, store, dispatcher
}

// doJSON runs one request against the router and returns the recorder.
func doJSON(t *testing.T, r http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// registerAndLogin creates an account through the API and returns its id
// and a bearer token.
func registerAndLogin(t *testing.T, r http.Handler, username, password string) (id, token string) {
	t.Helper()

	w := doJSON(t, r, http.MethodPost, "/api/users", RegisterUserRequest{Username: username, Password: password}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d: %s", username, w.Code, w.Body.String())
	}
	var user UserResponse
	json.NewDecoder(w.Body).Decode(&user)

	w = doJSON(t, r, http.MethodPost, "/api/users/login", LoginRequest{Username: username, Password: password}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d: %s", username, w.Code, w.Body.String())
	}
	var login LoginResponse
	json.NewDecoder(w.Body).Decode(&login)

	return user.ID, login.Token
}
