// Package sqldb provides the PostgreSQL backed store for the feed service.
package sqldb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/Royleong31/Blog-APIs/internal/sdk/models"
	"github.com/Royleong31/Blog-APIs/internal/sdk/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

var ErrForeignKeyViolation = errors.New("foreign key violation")

const schemaSQL = `
	CREATE TABLE IF NOT EXISTS users (
		id       UUID PRIMARY KEY,
		email    TEXT NOT NULL UNIQUE,
		password BYTEA NOT NULL,
		name     TEXT NOT NULL,
		status   TEXT NOT NULL DEFAULT 'I am new!',
		post_ids TEXT[] NOT NULL DEFAULT '{}'
	);
	CREATE TABLE IF NOT EXISTS posts (
		id         UUID PRIMARY KEY,
		title      TEXT NOT NULL,
		content    TEXT NOT NULL,
		image_url  TEXT NOT NULL,
		creator_id UUID NOT NULL REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS posts_created_at_idx ON posts (created_at DESC);
	CREATE TABLE IF NOT EXISTS uploads (
		key        TEXT PRIMARY KEY,
		account_id UUID NOT NULL REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
`

// Store implements store.Store on a pgx connection pool.
type Store struct {
	pool     *pgxpool.Pool
	database string
	log      *slog.Logger
}

var _ store.Store = (*Store)(nil)

// New connects using DATABASE_URL, or the BLUEPRINT_DB_* variables when it
// is unset, and creates the schema if needed.
func New(ctx context.Context, log *slog.Logger) (*Store, error) {
	database := os.Getenv("BLUEPRINT_DB_DATABASE")
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
			os.Getenv("BLUEPRINT_DB_USERNAME"),
			os.Getenv("BLUEPRINT_DB_PASSWORD"),
			os.Getenv("BLUEPRINT_DB_HOST"),
			os.Getenv("BLUEPRINT_DB_PORT"),
			database,
			os.Getenv("BLUEPRINT_DB_SCHEMA"),
		)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 20
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if _, err := pool.Exec(ctx, schemaSQL, pgx.QueryExecModeSimpleProtocol); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{pool: pool, database: cfg.ConnConfig.Database, log: log}, nil
}

// Health pings the database and reports pool statistics.
func (s *Store) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	stats := map[string]string{"driver": "postgres"}

	if err := s.pool.Ping(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"

	ps := s.pool.Stat()
	stats["total_connections"] = strconv.Itoa(int(ps.TotalConns()))
	stats["acquired"] = strconv.Itoa(int(ps.AcquiredConns()))
	stats["idle"] = strconv.Itoa(int(ps.IdleConns()))
	stats["empty_acquire_count"] = strconv.FormatInt(ps.EmptyAcquireCount(), 10)
	stats["acquire_duration"] = ps.AcquireDuration().String()

	if ps.AcquiredConns() > ps.MaxConns()*4/5 {
		stats["message"] = "The database is experiencing heavy load."
	}

	return stats
}

// Close closes the pool.
func (s *Store) Close(context.Context) error {
	s.log.Info("disconnected from database", "database", s.database)
	s.pool.Close()
	return nil
}

// ---------------------------------------------
// Accounts
// ---------------------------------------------

const accountColumns = `id::text, email, password, name, status, post_ids`

// GetAccountByID retrieves an account by its id
func (s *Store) GetAccountByID(ctx context.Context, accountID string) (models.Account, error) {
	if !validID(accountID) {
		return models.Account{}, store.ErrNotFound
	}
	const query = `SELECT ` + accountColumns + ` FROM users WHERE id = $1`
	return s.scanAccount(s.pool.QueryRow(ctx, query, accountID), "selecting account")
}

// GetAccountByEmail retrieves an account by its email address
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (models.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM users WHERE email = $1`
	return s.scanAccount(s.pool.QueryRow(ctx, query, email), "selecting account by email")
}

// CreateAccount inserts a new account
func (s *Store) CreateAccount(ctx context.Context, na models.NewAccount) (models.Account, error) {
	const query = `
		INSERT INTO users (id, email, password, name, status)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		RETURNING ` + accountColumns

	a, err := s.scanAccount(s.pool.QueryRow(ctx, query, na.Email, na.Password, na.Name, models.DefaultStatus), "creating account")
	if err != nil && isPgError(err, uniqueViolation) {
		return models.Account{}, store.ErrDuplicate
	}
	return a, err
}

func (s *Store) UpdateAccountStatus(ctx context.Context, accountID, status string) (models.Account, error) {
	if !validID(accountID) {
		return models.Account{}, store.ErrNotFound
	}
	const query = `UPDATE users SET status = $2 WHERE id = $1 RETURNING ` + accountColumns
	return s.scanAccount(s.pool.QueryRow(ctx, query, accountID, status), "updating account status")
}

func (s *Store) AddAccountPost(ctx context.Context, accountID, postID string) error {
	if !validID(accountID) {
		return store.ErrNotFound
	}
	const query = `
		UPDATE users
		SET post_ids = array_append(post_ids, $2)
		WHERE id = $1 AND NOT ($2 = ANY(post_ids))
	`
	tag, err := s.pool.Exec(ctx, query, accountID, postID)
	if err != nil {
		return fmt.Errorf("adding account post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the account is missing or the post is already in the set.
		if _, err := s.GetAccountByID(ctx, accountID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) RemoveAccountPost(ctx context.Context, accountID, postID string) error {
	if !validID(accountID) {
		return store.ErrNotFound
	}
	const query = `UPDATE users SET post_ids = array_remove(post_ids, $2) WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, accountID, postID)
	if err != nil {
		return fmt.Errorf("removing account post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) scanAccount(row pgx.Row, op string) (models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Email, &a.Password, &a.Name, &a.Status, &a.Posts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, store.ErrNotFound
		}
		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}
	if a.Posts == nil {
		a.Posts = []string{}
	}
	return a, nil
}

// ---------------------------------------------
// Posts
// ---------------------------------------------

const postColumns = `id::text, title, content, image_url, creator_id::text, created_at, updated_at`

// CreatePost inserts a new post
func (s *Store) CreatePost(ctx context.Context, np models.NewPost) (models.Post, error) {
	const query = `
		INSERT INTO posts (id, title, content, image_url, creator_id)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		RETURNING ` + postColumns

	p, err := scanPost(s.pool.QueryRow(ctx, query, np.Title, np.Content, np.ImageURL, np.CreatorID), "creating post")
	if err != nil && isPgError(err, foreignKeyViolation) {
		return models.Post{}, ErrForeignKeyViolation
	}
	return p, err
}

func (s *Store) GetPostByID(ctx context.Context, postID string) (models.Post, error) {
	if !validID(postID) {
		return models.Post{}, store.ErrNotFound
	}
	const query = `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	return scanPost(s.pool.QueryRow(ctx, query, postID), "selecting post")
}

func (s *Store) UpdatePost(ctx context.Context, post models.Post) (models.Post, error) {
	if !validID(post.ID) {
		return models.Post{}, store.ErrNotFound
	}
	const query = `
		UPDATE posts
		SET title = $2,
		    content = $3,
		    image_url = $4,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING ` + postColumns

	return scanPost(s.pool.QueryRow(ctx, query, post.ID, post.Title, post.Content, post.ImageURL), "updating post")
}

func (s *Store) DeletePost(ctx context.Context, postID string) error {
	if !validID(postID) {
		return store.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, postID)
	if err != nil {
		return fmt.Errorf("deleting post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListPosts(ctx context.Context, page, perPage int) ([]models.Post, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM posts`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting posts: %w", err)
	}

	const query = `
		SELECT ` + postColumns + `
		FROM posts
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := s.pool.Query(ctx, query, perPage, store.Offset(page, perPage))
	if err != nil {
		return nil, 0, fmt.Errorf("listing posts: %w", err)
	}
	defer rows.Close()

	posts := make([]models.Post, 0, perPage)
	for rows.Next() {
		p, err := scanPost(rows, "scanning post")
		if err != nil {
			return nil, 0, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating posts: %w", err)
	}

	return posts, total, nil
}

// ---------------------------------------------
// Uploads
// ---------------------------------------------

func (s *Store) RecordUpload(ctx context.Context, key, accountID string) error {
	if !validID(accountID) {
		return store.ErrNotFound
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO uploads (key, account_id) VALUES ($1, $2)`, key, accountID)
	switch {
	case err == nil:
		return nil
	case isPgError(err, uniqueViolation):
		return store.ErrDuplicate
	case isPgError(err, foreignKeyViolation):
		return store.ErrNotFound
	default:
		return fmt.Errorf("recording upload: %w", err)
	}
}

func (s *Store) ClaimUpload(ctx context.Context, key, accountID string) error {
	if !validID(accountID) {
		return store.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM uploads WHERE key = $1 AND account_id = $2`, key, accountID)
	if err != nil {
		return fmt.Errorf("claiming upload: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanPost(row pgx.Row, op string) (models.Post, error) {
	var p models.Post
	err := row.Scan(&p.ID, &p.Title, &p.Content, &p.ImageURL, &p.CreatorID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Post{}, store.ErrNotFound
		}
		return models.Post{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// ---------------------------------------------
// Helpers
// ---------------------------------------------

// isPgError checks if the error is a PostgreSQL error with the given code
func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

// validID reports whether id can be compared against a UUID column. Anything
// else cannot match a row.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
