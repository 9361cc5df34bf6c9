package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

// RegisterUserRequest is the request body for POST /api/users.
type RegisterUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserResponse is a user with aggregated score statistics. MaxScore and
// AverageScore are null until the user has made at least one guess.
type UserResponse struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	CreatedAt    string   `json:"createdAt"`
	TotalScore   float64  `json:"totalScore"`
	MaxScore     *float64 `json:"maxScore"`
	AverageScore *float64 `json:"averageScore"`
}

// UpdateUserRequest is the request body for PATCH /api/users/{id}. Only the
// fields present are updated.
type UpdateUserRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
}

// LoginRequest is the request body for POST /api/users/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	Token string `json:"token"`
}

func userStatsResponse(st UserStats) UserResponse {
	return UserResponse{
		ID:           st.ID,
		Username:     st.Username,
		CreatedAt:    st.CreatedAt,
		TotalScore:   st.TotalScore,
		MaxScore:     st.MaxScore,
		AverageScore: st.AverageScore,
	}
}

func validUsername(username string) bool {
	return len(username) >= 3 && len(username) <= 20
}

func handleCreateUser(store Store, baseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterUserRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Username = strings.TrimSpace(req.Username)
		if !validUsername(req.Username) {
			writeError(w, http.StatusUnprocessableEntity, "username must be 3-20 characters")
			return
		}
		if req.Password == "" {
			writeError(w, http.StatusUnprocessableEntity, "password is required")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		user, err := store.CreateUser(r.Context(), req.Username, string(hash))
		if errors.Is(err, ErrDuplicateUsername) {
			writeError(w, http.StatusConflict, "username already exists")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		w.Header().Set("Location", fmt.Sprintf("%s/api/users/%s", baseURL, user.ID))
		writeJSON(w, http.StatusCreated, UserResponse{
			ID:         user.ID,
			Username:   user.Username,
			CreatedAt:  user.CreatedAt,
			TotalScore: 0,
		})
	}
}

func handleListUsers(store Store, baseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, pageSize, err := paginationParams(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid pagination parameters")
			return
		}

		filter := UserFilter{Username: r.URL.Query().Get("username")}

		stats, total, err := store.ListUserStats(r.Context(), filter, page, pageSize)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if links := linkHeader(baseURL, "/api/users", page, pageSize, total); links != "" {
			w.Header().Set("Link", links)
		}

		users := make([]UserResponse, 0, len(stats))
		for _, st := range stats {
			users = append(users, userStatsResponse(st))
		}
		writeJSON(w, http.StatusOK, users)
	}
}

func handleGetUser(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := store.UserStatsByID(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, userStatsResponse(st))
	}
}

func handleUpdateUser(store Store, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authedID, err := userFromRequest(r, secret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}

		id := chi.URLParam(r, "id")
		if id != authedID {
			writeError(w, http.StatusForbidden, "cannot modify another user")
			return
		}

		var req UpdateUserRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if req.Username != nil {
			trimmed := strings.TrimSpace(*req.Username)
			if !validUsername(trimmed) {
				writeError(w, http.StatusUnprocessableEntity, "username must be 3-20 characters")
				return
			}
			req.Username = &trimmed
		}

		var passwordHash *string
		if req.Password != nil {
			if *req.Password == "" {
				writeError(w, http.StatusUnprocessableEntity, "password cannot be empty")
				return
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcryptCost)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			s := string(hash)
			passwordHash = &s
		}

		if _, err := store.UpdateUser(r.Context(), id, req.Username, passwordHash); err != nil {
			switch {
			case errors.Is(err, ErrNotFound):
				writeError(w, http.StatusNotFound, "user not found")
			case errors.Is(err, ErrDuplicateUsername):
				writeError(w, http.StatusConflict, "username already exists")
			default:
				writeError(w, http.StatusInternalServerError, "internal error")
			}
			return
		}

		st, err := store.UserStatsByID(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, userStatsResponse(st))
	}
}

func handleDeleteUser(store Store, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authedID, err := userFromRequest(r, secret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}

		id := chi.URLParam(r, "id")
		if id != authedID {
			writeError(w, http.StatusForbidden, "cannot delete another user")
			return
		}

		err = store.DeleteUser(r.Context(), id)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleLogin(store Store, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		user, err := store.UserByUsername(r.Context(), strings.TrimSpace(req.Username))
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		token, err := issueToken(secret, user.ID, time.Now())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, LoginResponse{Token: token})
	}
}
