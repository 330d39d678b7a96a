package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/Royleong31/Blog-APIs/internal/app"
	"github.com/Royleong31/Blog-APIs/internal/feed"
	"github.com/Royleong31/Blog-APIs/internal/graph"
	"github.com/Royleong31/Blog-APIs/internal/sdk/docdb"
	"github.com/Royleong31/Blog-APIs/internal/sdk/jwt"
	"github.com/Royleong31/Blog-APIs/internal/sdk/sqldb"
	"github.com/Royleong31/Blog-APIs/internal/sdk/store"
	"github.com/Royleong31/Blog-APIs/internal/services/blob"
	"github.com/Royleong31/Blog-APIs/internal/services/broadcast"
	"github.com/Royleong31/Blog-APIs/internal/services/hash"
	"github.com/Royleong31/Blog-APIs/internal/services/sentry"
	_ "github.com/joho/godotenv/autoload"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application failed: %v", err)
	}
}

func run() error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	logger.Info("GOMAXPROCS", "cpu", runtime.GOMAXPROCS(0))

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 1. Initialize Storage
	st, err := openStore(startCtx, logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}

	blobs, err := openBlobs(startCtx, logger)
	if err != nil {
		return fmt.Errorf("opening blob store: %w", err)
	}

	// 2. Initialize Services
	sentryService := sentry.NewSentryService(logger)
	defer sentryService.Close()

	hub := broadcast.NewHub(logger)
	jwtService := jwt.NewTokenService()

	feedService := feed.NewService(
		feed.ConfigFromEnv(),
		st,
		blobs,
		hash.NewHashService(),
		jwtService,
		hub,
		sentryService,
		logger,
	)

	// 3. Initialize App
	a := app.NewApp(feedService, st, blobs, jwtService, hub, graph.NewHandler(feedService), sentryService, logger)

	// 4. Configure Server
	port, _ := strconv.Atoi(os.Getenv("PORT"))
	if port == 0 {
		port = 8080
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      a.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// 5. Graceful Shutdown Logic
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down gracefully, press Ctrl+C again to force")
		signal.Stop(sigChan)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		hub.Close()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server forced to shutdown", "error", err)
		}

		feedService.Wait()
		if err := st.Close(ctx); err != nil {
			logger.Error("closing store", "error", err)
		}
	}()

	// 6. Start Server
	logger.Info("Starting server", "port", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}

	<-done
	logger.Info("Graceful shutdown complete")
	return nil
}

// openStore picks the persistence backend from STORE_DRIVER.
func openStore(ctx context.Context, logger *slog.Logger) (store.Store, error) {
	switch driver := os.Getenv("STORE_DRIVER"); driver {
	case "", "mongo":
		return docdb.New(ctx, logger)
	case "postgres":
		return sqldb.New(ctx, logger)
	case "memory":
		logger.Warn("using in-memory store, data is lost on restart")
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", driver)
	}
}

// openBlobs picks the image backend from BLOB_DRIVER.
func openBlobs(ctx context.Context, logger *slog.Logger) (blob.Store, error) {
	switch driver := os.Getenv("BLOB_DRIVER"); driver {
	case "", "disk":
		return blob.NewDisk(os.Getenv("IMAGES_DIR"))
	case "minio":
		m, err := blob.NewMinio(logger)
		if err != nil {
			return nil, err
		}
		if err := m.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		logger.Info("storing images in minio")
		return m, nil
	default:
		return nil, fmt.Errorf("unknown BLOB_DRIVER %q", driver)
	}
}
