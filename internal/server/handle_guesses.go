package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// CreateGuessRequest is the request body for POST /api/guesses. The owner
// comes from the bearer token, not the body.
type CreateGuessRequest struct {
	ThumbnailID string  `json:"thumbnailId"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Score       float64 `json:"score"`
}

// GuessResponse is a stored guess with its references rendered as ids.
type GuessResponse struct {
	ID          string  `json:"id"`
	UserID      string  `json:"userId"`
	ThumbnailID string  `json:"thumbnailId"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Score       float64 `json:"score"`
	CreatedAt   string  `json:"createdAt"`
}

// GuessEvent is the payload broadcast to connected clients when a guess is
// recorded.
type GuessEvent struct {
	Type  string        `json:"type"`
	Guess GuessResponse `json:"guess"`
}

func guessResponse(g Guess) GuessResponse {
	return GuessResponse{
		ID:          g.ID,
		UserID:      g.UserID,
		ThumbnailID: g.ThumbnailID,
		Latitude:    g.Latitude,
		Longitude:   g.Longitude,
		Score:       g.Score,
		CreatedAt:   g.CreatedAt,
	}
}

func handleCreateGuess(logger *slog.Logger, store Store, notifier Broadcaster, secret, baseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userFromRequest(r, secret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}

		var req CreateGuessRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if req.Score < 0 {
			writeError(w, http.StatusUnprocessableEntity, "score must be non-negative")
			return
		}
		if !validCoordinates(req.Longitude, req.Latitude) {
			writeError(w, http.StatusUnprocessableEntity, "invalid longitude/latitude coordinates")
			return
		}

		if _, err := store.ThumbnailByID(r.Context(), req.ThumbnailID); err != nil {
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusUnprocessableEntity, "thumbnail does not exist")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		saved, err := store.CreateGuess(r.Context(), Guess{
			UserID:      userID,
			ThumbnailID: req.ThumbnailID,
			Latitude:    req.Latitude,
			Longitude:   req.Longitude,
			Score:       req.Score,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		// Fire-and-forget: the response never depends on delivery.
		if payload, err := json.Marshal(GuessEvent{Type: "guess_created", Guess: guessResponse(saved)}); err == nil {
			notifier.Broadcast(payload)
		} else {
			logger.Error("encoding guess event", "guessId", saved.ID, "error", err)
		}

		w.Header().Set("Location", fmt.Sprintf("%s/api/guesses/%s", baseURL, saved.ID))
		writeJSON(w, http.StatusCreated, guessResponse(saved))
	}
}

func handleListGuesses(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guesses, err := store.ListGuesses(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		resp := make([]GuessResponse, 0, len(guesses))
		for _, g := range guesses {
			resp = append(resp, guessResponse(g))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleDeleteGuess(store Store, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userFromRequest(r, secret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}

		id := chi.URLParam(r, "id")
		g, err := store.GuessByID(r.Context(), id)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "guess not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if g.UserID != userID {
			writeError(w, http.StatusForbidden, "cannot delete another user's guess")
			return
		}

		if err := store.DeleteGuess(r.Context(), id); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
