// Package store defines the persistence contract for accounts and posts.
package store

import (
	"context"
	"errors"

	"github.com/Royleong31/Blog-APIs/internal/sdk/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicated entry")
)

// Store is implemented by every persistence backend. Writes are atomic per
// record only; the caller owns cross-record ordering.
type Store interface {
	// Health returns backend specific status information.
	Health(ctx context.Context) map[string]string

	// Close releases the backend connection.
	Close(ctx context.Context) error

	// Account operations
	GetAccountByID(ctx context.Context, accountID string) (models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (models.Account, error)
	CreateAccount(ctx context.Context, account models.NewAccount) (models.Account, error)
	UpdateAccountStatus(ctx context.Context, accountID, status string) (models.Account, error)
	AddAccountPost(ctx context.Context, accountID, postID string) error
	RemoveAccountPost(ctx context.Context, accountID, postID string) error

	// Post operations
	CreatePost(ctx context.Context, post models.NewPost) (models.Post, error)
	GetPostByID(ctx context.Context, postID string) (models.Post, error)
	UpdatePost(ctx context.Context, post models.Post) (models.Post, error)
	DeletePost(ctx context.Context, postID string) error

	// Upload operations. An image uploaded ahead of a post mutation is held
	// for its uploader until one post claims it.
	RecordUpload(ctx context.Context, key, accountID string) error
	// ClaimUpload removes the hold on key. It returns ErrNotFound unless key
	// is held by accountID.
	ClaimUpload(ctx context.Context, key, accountID string) error

	// ListPosts returns one 1-based page ordered by creation time, newest
	// first, together with the total number of posts.
	ListPosts(ctx context.Context, page, perPage int) ([]models.Post, int, error)
}

// Offset converts a 1-based page into a row offset. Pages below 1 are
// treated as the first page.
func Offset(page, perPage int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * perPage
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicate checks if the error is a duplicate entry error.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
