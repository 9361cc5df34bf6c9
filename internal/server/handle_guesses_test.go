package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

// guessFixture registers a user and a thumbnail to guess against.
func guessFixture(t *testing.T) (r http.Handler, store *SQLiteStore, dispatcher *Dispatcher, token string, thumbnailID string) {
	t.Helper()

	router, store, dispatcher := newTestServer(t)
	_, token = registerAndLogin(t, router, "guesser", "pw1234")
	th := mustCreateThumbnail(t, store)
	return router, store, dispatcher, token, th.ID
}

func TestCreateGuessBroadcastsToClients(t *testing.T) {
	r, _, dispatcher, token, thumbnailID := guessFixture(t)

	listener := &mockConn{id: "listener"}
	dispatcher.Register(listener)

	w := doJSON(t, r, http.MethodPost, "/api/guesses", CreateGuessRequest{
		ThumbnailID: thumbnailID,
		Latitude:    46.52,
		Longitude:   6.63,
		Score:       100,
	}, token)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if location := w.Header().Get("Location"); !strings.Contains(location, "/api/guesses/") {
		t.Errorf("Location = %q, want a guess URL", location)
	}

	var created GuessResponse
	json.NewDecoder(w.Body).Decode(&created)
	if created.ID == "" {
		t.Fatal("expected a generated id")
	}
	if created.Score != 100 {
		t.Errorf("score = %v, want 100", created.Score)
	}

	received := listener.getReceived()
	if len(received) != 1 {
		t.Fatalf("expected 1 broadcast payload, got %d", len(received))
	}

	var event GuessEvent
	if err := json.Unmarshal(received[0], &event); err != nil {
		t.Fatalf("decoding broadcast payload: %v", err)
	}
	if event.Type != "guess_created" {
		t.Errorf("event type = %q, want guess_created", event.Type)
	}
	if event.Guess.ID != created.ID {
		t.Errorf("event guess id = %q, want %q", event.Guess.ID, created.ID)
	}
	if event.Guess.Score != 100 {
		t.Errorf("event score = %v, want 100", event.Guess.Score)
	}
}

func TestCreateGuessNoBroadcastOnFailure(t *testing.T) {
	r, _, dispatcher, token, _ := guessFixture(t)

	listener := &mockConn{id: "listener"}
	dispatcher.Register(listener)

	w := doJSON(t, r, http.MethodPost, "/api/guesses", CreateGuessRequest{
		ThumbnailID: "does-not-exist",
		Latitude:    1,
		Longitude:   1,
		Score:       10,
	}, token)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	if got := listener.getReceived(); len(got) != 0 {
		t.Errorf("expected no broadcast for a failed creation, got %d payloads", len(got))
	}
}

func TestCreateGuessValidation(t *testing.T) {
	r, _, _, token, thumbnailID := guessFixture(t)

	tests := []struct {
		name string
		req  CreateGuessRequest
		want int
	}{
		{"negative score", CreateGuessRequest{ThumbnailID: thumbnailID, Latitude: 1, Longitude: 1, Score: -5}, http.StatusUnprocessableEntity},
		{"latitude out of range", CreateGuessRequest{ThumbnailID: thumbnailID, Latitude: 91, Longitude: 1, Score: 5}, http.StatusUnprocessableEntity},
		{"longitude out of range", CreateGuessRequest{ThumbnailID: thumbnailID, Latitude: 1, Longitude: 181, Score: 5}, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := doJSON(t, r, http.MethodPost, "/api/guesses", tt.req, token); w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestCreateGuessUnauthorized(t *testing.T) {
	r, _, _, _, thumbnailID := guessFixture(t)

	w := doJSON(t, r, http.MethodPost, "/api/guesses", CreateGuessRequest{
		ThumbnailID: thumbnailID,
		Latitude:    1,
		Longitude:   1,
		Score:       10,
	}, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestListGuesses(t *testing.T) {
	r, store, _, token, thumbnailID := guessFixture(t)
	_ = token

	u, err := store.UserByUsername(context.Background(), "guesser")
	if err != nil {
		t.Fatalf("looking up user: %v", err)
	}
	mustCreateGuess(t, store, u.ID, thumbnailID, 10)
	mustCreateGuess(t, store, u.ID, thumbnailID, 20)

	w := doJSON(t, r, http.MethodGet, "/api/guesses", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var guesses []GuessResponse
	json.NewDecoder(w.Body).Decode(&guesses)
	if len(guesses) != 2 {
		t.Errorf("expected 2 guesses, got %d", len(guesses))
	}
}

func TestDeleteGuess(t *testing.T) {
	r, _, _, token, thumbnailID := guessFixture(t)

	w := doJSON(t, r, http.MethodPost, "/api/guesses", CreateGuessRequest{
		ThumbnailID: thumbnailID,
		Latitude:    1,
		Longitude:   1,
		Score:       10,
	}, token)
	var created GuessResponse
	json.NewDecoder(w.Body).Decode(&created)

	// Another user cannot delete it.
	_, otherToken := registerAndLogin(t, r, "intruder", "pw1234")
	if w := doJSON(t, r, http.MethodDelete, "/api/guesses/"+created.ID, nil, otherToken); w.Code != http.StatusForbidden {
		t.Errorf("other user: expected 403, got %d", w.Code)
	}

	if w := doJSON(t, r, http.MethodDelete, "/api/guesses/"+created.ID, nil, token); w.Code != http.StatusNoContent {
		t.Errorf("owner: expected 204, got %d", w.Code)
	}

	if w := doJSON(t, r, http.MethodDelete, "/api/guesses/"+created.ID, nil, token); w.Code != http.StatusNotFound {
		t.Errorf("already deleted: expected 404, got %d", w.Code)
	}
}
