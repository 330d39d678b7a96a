package app

import (
	"log/slog"
	"net/http"

	"github.com/Royleong31/Blog-APIs/internal/feed"
	"github.com/Royleong31/Blog-APIs/internal/sdk/middleware"
	"github.com/Royleong31/Blog-APIs/internal/sdk/store"
	"github.com/Royleong31/Blog-APIs/internal/services/blob"
	"github.com/Royleong31/Blog-APIs/internal/services/sentry"
)

type App struct {
	feed     *feed.Service
	store    store.Store
	blobs    blob.Store
	verifier middleware.Verifier
	socket   http.Handler
	graphql  http.Handler
	sentry   *sentry.SentryService
	log      *slog.Logger
}

// NewApp wires the REST surface. socket serves the live post channel and
// graphql the single GraphQL endpoint; either may be nil to leave the route
// out.
func NewApp(
	feedSvc *feed.Service,
	st store.Store,
	blobs blob.Store,
	verifier middleware.Verifier,
	socket http.Handler,
	graphql http.Handler,
	sentry *sentry.SentryService,
	log *slog.Logger,
) *App {
	return &App{
		feed:     feedSvc,
		store:    st,
		blobs:    blobs,
		verifier: verifier,
		socket:   socket,
		graphql:  graphql,
		sentry:   sentry,
		log:      log,
	}
}
