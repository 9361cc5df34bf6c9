package server

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash)
		VALUES (?, ?)
		RETURNING id, username, password_hash, created_at
	`, username, passwordHash).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return User{}, ErrDuplicateUsername
	}
	return u, err
}

func (s *SQLiteStore) UserByID(ctx context.Context, id string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at FROM users WHERE id = ?
	`, id).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (s *SQLiteStore) UserByUsername(ctx context.Context, username string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at FROM users WHERE username = ?
	`, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (s *SQLiteStore) UpdateUser(ctx context.Context, id string, username, passwordHash *string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `
		UPDATE users
		SET username = COALESCE(?, username),
			password_hash = COALESCE(?, password_hash)
		WHERE id = ?
		RETURNING id, username, password_hash, created_at
	`, username, passwordHash, id).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return User{}, ErrDuplicateUsername
	}
	return u, err
}

func (s *SQLiteStore) DeleteUser(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// userStatsQuery left-joins users to their guesses so that users without
// any guesses keep exactly one row, then folds the group into the derived
// statistics. SUM over an empty group is NULL in SQLite, hence the COALESCE;
// MAX and AVG stay NULL on purpose to distinguish "no guesses" from a zero
// score.
const userStatsQuery = `
	SELECT u.id, u.username, u.created_at,
		COALESCE(SUM(g.score), 0),
		MAX(g.score),
		AVG(g.score)
	FROM users u
	LEFT JOIN guesses g ON g.user_id = u.id
`

func scanUserStats(rows interface {
	Scan(dest ...any) error
}, st *UserStats) error {
	var maxScore, avgScore sql.NullFloat64
	if err := rows.Scan(&st.ID, &st.Username, &st.CreatedAt, &st.TotalScore, &maxScore, &avgScore); err != nil {
		return err
	}
	if maxScore.Valid {
		st.MaxScore = &maxScore.Float64
	}
	if avgScore.Valid {
		st.AverageScore = &avgScore.Float64
	}
	return nil
}

func (s *SQLiteStore) UserStatsByID(ctx context.Context, id string) (UserStats, error) {
	var st UserStats
	row := s.db.QueryRowContext(ctx, userStatsQuery+`
		WHERE u.id = ?
		GROUP BY u.id
	`, id)
	err := scanUserStats(row, &st)
	if errors.Is(err, sql.ErrNoRows) {
		return UserStats{}, ErrNotFound
	}
	return st, err
}

// ListUserStats returns one page of aggregated user statistics, sorted by
// username (id as tie-break), plus the pre-pagination count of users
// matching the filter. Either both queries succeed or the call fails with
// no partial page.
func (s *SQLiteStore) ListUserStats(ctx context.Context, filter UserFilter, page, pageSize int) ([]UserStats, int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM users WHERE (? = '' OR username = ?)
	`, filter.Username, filter.Username).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, userStatsQuery+`
		WHERE (? = '' OR u.username = ?)
		GROUP BY u.id
		ORDER BY u.username, u.id
		LIMIT ? OFFSET ?
	`, filter.Username, filter.Username, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	stats := []UserStats{}
	for rows.Next() {
		var st UserStats
		if err := scanUserStats(rows, &st); err != nil {
			return nil, 0, err
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return stats, total, nil
}

func (s *SQLiteStore) CreateThumbnail(ctx context.Context, t Thumbnail) (Thumbnail, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO thumbnails (title, img, img_content_type, longitude, latitude)
		VALUES (?, ?, NULLIF(?, ''), ?, ?)
		RETURNING id, created_at
	`, t.Title, t.Img, t.ImgContentType, t.Longitude, t.Latitude).Scan(&t.ID, &t.CreatedAt)
	return t, err
}

func (s *SQLiteStore) ThumbnailByID(ctx context.Context, id string) (Thumbnail, error) {
	var t Thumbnail
	var contentType sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, img, img_content_type, longitude, latitude, created_at
		FROM thumbnails WHERE id = ?
	`, id).Scan(&t.ID, &t.Title, &t.Img, &contentType, &t.Longitude, &t.Latitude, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Thumbnail{}, ErrNotFound
	}
	t.ImgContentType = contentType.String
	return t, err
}

func (s *SQLiteStore) ListThumbnails(ctx context.Context) ([]Thumbnail, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, img, img_content_type, longitude, latitude, created_at
		FROM thumbnails
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	thumbnails := []Thumbnail{}
	for rows.Next() {
		var t Thumbnail
		var contentType sql.NullString
		if err := rows.Scan(&t.ID, &t.Title, &t.Img, &contentType, &t.Longitude, &t.Latitude, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.ImgContentType = contentType.String
		thumbnails = append(thumbnails, t)
	}
	return thumbnails, rows.Err()
}

func (s *SQLiteStore) CreateGuess(ctx context.Context, g Guess) (Guess, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO guesses (user_id, thumbnail_id, latitude, longitude, score)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id, created_at
	`, g.UserID, g.ThumbnailID, g.Latitude, g.Longitude, g.Score).Scan(&g.ID, &g.CreatedAt)
	return g, err
}

func (s *SQLiteStore) GuessByID(ctx context.Context, id string) (Guess, error) {
	var g Guess
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, thumbnail_id, latitude, longitude, score, created_at
		FROM guesses WHERE id = ?
	`, id).Scan(&g.ID, &g.UserID, &g.ThumbnailID, &g.Latitude, &g.Longitude, &g.Score, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Guess{}, ErrNotFound
	}
	return g, err
}

func (s *SQLiteStore) ListGuesses(ctx context.Context) ([]Guess, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, thumbnail_id, latitude, longitude, score, created_at
		FROM guesses
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	guesses := []Guess{}
	for rows.Next() {
		var g Guess
		if err := rows.Scan(&g.ID, &g.UserID, &g.ThumbnailID, &g.Latitude, &g.Longitude, &g.Score, &g.CreatedAt); err != nil {
			return nil, err
		}
		guesses = append(guesses, g)
	}
	return guesses, rows.Err()
}

func (s *SQLiteStore) DeleteGuess(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM guesses WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
