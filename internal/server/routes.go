package server

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/swaggest/swgui/v5emb"

	"github.com/snapguess/api/internal/config"
)

func addRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config, store Store, dispatcher *Dispatcher, notifier Broadcaster, db *sql.DB, rdb *redis.Client) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Snapguess API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, db, rdb))

	r.Route("/api", func(r chi.Router) {
		// Persistent connections for guess notifications.
		r.Get("/events", handleEvents(logger, dispatcher))

		r.Post("/users", handleCreateUser(store, cfg.BaseURL))
		r.Get("/users", handleListUsers(store, cfg.BaseURL))
		r.Post("/users/login", handleLogin(store, cfg.TokenSecret))
		r.Get("/users/{id}", handleGetUser(store))
		r.Patch("/users/{id}", handleUpdateUser(store, cfg.TokenSecret))
		r.Delete("/users/{id}", handleDeleteUser(store, cfg.TokenSecret))

		r.Get("/thumbnails", handleListThumbnails(store))
		r.Post("/thumbnails", handleCreateThumbnail(store, cfg.TokenSecret, cfg.BaseURL))
		r.Get("/thumbnails/{id}", handleGetThumbnail(store))

		r.Get("/guesses", handleListGuesses(store))
		r.Post("/guesses", handleCreateGuess(logger, store, notifier, cfg.TokenSecret, cfg.BaseURL))
		r.Delete("/guesses/{id}", handleDeleteGuess(store, cfg.TokenSecret))
	})
}
