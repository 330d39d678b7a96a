// Package feed implements the account and post operations behind both the
// REST and GraphQL surfaces.
//
// Every mutation runs the same ordered stages: authenticate, validate, load,
// authorize, apply, persist, clean up, broadcast. A failure at any stage
// stops the later ones, so a change is only broadcast once it is stored.
package feed

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/Royleong31/Blog-APIs/internal/sdk/jwt"
	"github.com/Royleong31/Blog-APIs/internal/sdk/models"
	"github.com/Royleong31/Blog-APIs/internal/sdk/store"
	"github.com/Royleong31/Blog-APIs/internal/services/blob"
	"github.com/Royleong31/Blog-APIs/internal/services/sentry"
)

const (
	defaultPerPage = 2
	cleanupTimeout = 30 * time.Second
)

// Hasher hashes and checks passwords.
type Hasher interface {
	HashPassword(password string) ([]byte, error)
	CheckPasswordHash(password string, hash []byte) bool
}

// TokenIssuer signs login tokens.
type TokenIssuer interface {
	GenerateToken(accountID, email string) (string, error)
}

// Publisher receives committed post changes.
type Publisher interface {
	Publish(ev models.Event)
}

// Config holds tunables read from the environment.
type Config struct {
	PerPage int
}

// ConfigFromEnv reads POSTS_PER_PAGE, defaulting to 2.
func ConfigFromEnv() Config {
	perPage, _ := strconv.Atoi(os.Getenv("POSTS_PER_PAGE"))
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	return Config{PerPage: perPage}
}

// Service is safe for concurrent use. It holds no locks of its own: two
// concurrent updates of one post race and the last write wins.
type Service struct {
	cfg       Config
	store     store.Store
	blobs     blob.Store
	hasher    Hasher
	tokens    TokenIssuer
	publisher Publisher
	sentry    *sentry.SentryService
	log       *slog.Logger

	cleanups sync.WaitGroup
}

func NewService(
	cfg Config,
	st store.Store,
	blobs blob.Store,
	hasher Hasher,
	tokens TokenIssuer,
	publisher Publisher,
	sentry *sentry.SentryService,
	log *slog.Logger,
) *Service {
	if cfg.PerPage <= 0 {
		cfg.PerPage = defaultPerPage
	}
	return &Service{
		cfg:       cfg,
		store:     st,
		blobs:     blobs,
		hasher:    hasher,
		tokens:    tokens,
		publisher: publisher,
		sentry:    sentry,
		log:       log,
	}
}

// Wait blocks until scheduled blob cleanups have finished.
func (s *Service) Wait() {
	s.cleanups.Wait()
}

// discardBlob deletes key in the background. Failures are logged only: a
// leftover file never fails the mutation that superseded it.
func (s *Service) discardBlob(ctx context.Context, op, key string) {
	if key == "" {
		return
	}
	ctx = context.WithoutCancel(ctx)

	s.cleanups.Add(1)
	go func() {
		defer s.cleanups.Done()
		ctx, cancel := context.WithTimeout(ctx, cleanupTimeout)
		defer cancel()
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.log.Warn("removing image failed", "operation", op, "key", key, "error", err)
			return
		}
		s.log.Debug("image removed", "operation", op, "key", key)
	}()
}

// authenticate is the first stage of every protected operation.
func authenticate(actor jwt.Identity) error {
	if actor.Anonymous() {
		return errNotAuthenticated
	}
	return nil
}
