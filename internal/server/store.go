package server

import (
	"context"
	"errors"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateUsername = errors.New("username already exists")
)

// User is a stored account. PasswordHash never leaves the store layer.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    string
}

// UserStats is the aggregated per-user score tuple. MaxScore and
// AverageScore are nil for users without any guesses; TotalScore folds to 0.
type UserStats struct {
	ID           string
	Username     string
	CreatedAt    string
	TotalScore   float64
	MaxScore     *float64
	AverageScore *float64
}

// UserFilter narrows the user collection before aggregation and counting.
type UserFilter struct {
	Username string
}

type Thumbnail struct {
	ID             string
	Title          string
	Img            []byte
	ImgContentType string
	Longitude      float64
	Latitude       float64
	CreatedAt      string
}

type Guess struct {
	ID          string
	UserID      string
	ThumbnailID string
	Latitude    float64
	Longitude   float64
	Score       float64
	CreatedAt   string
}

type Store interface {
	CreateUser(ctx context.Context, username, passwordHash string) (User, error)
	UserByID(ctx context.Context, id string) (User, error)
	UserByUsername(ctx context.Context, username string) (User, error)
	UpdateUser(ctx context.Context, id string, username, passwordHash *string) (User, error)
	DeleteUser(ctx context.Context, id string) error
	UserStatsByID(ctx context.Context, id string) (UserStats, error)
	ListUserStats(ctx context.Context, filter UserFilter, page, pageSize int) ([]UserStats, int, error)

	CreateThumbnail(ctx context.Context, t Thumbnail) (Thumbnail, error)
	ThumbnailByID(ctx context.Context, id string) (Thumbnail, error)
	ListThumbnails(ctx context.Context) ([]Thumbnail, error)

	CreateGuess(ctx context.Context, g Guess) (Guess, error)
	GuessByID(ctx context.Context, id string) (Guess, error)
	ListGuesses(ctx context.Context) ([]Guess, error)
	DeleteGuess(ctx context.Context, id string) error
}
