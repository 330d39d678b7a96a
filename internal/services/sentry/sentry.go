// Package sentry reports unexpected failures to Sentry and the process log.
package sentry

import (
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
)

type (
	Level = sentry.Level
	Scope = sentry.Scope
)

const (
	LevelError   = sentry.LevelError
	LevelWarning = sentry.LevelWarning
)

// SentryService is a no-op for Sentry when SENTRY_DSN is unset; reports are
// still written to the logger.
type SentryService struct {
	initialized bool
	log         *slog.Logger
}

func NewSentryService(log *slog.Logger) *SentryService {
	dsn := os.Getenv("SENTRY_DSN")
	if dsn == "" {
		log.Info("SENTRY_DSN not set, Sentry disabled")
		return &SentryService{log: log}
	}

	environment := os.Getenv("SENTRY_ENVIRONMENT")
	if environment == "" {
		environment = "development"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		TracesSampleRate: 1.0,
		EnableTracing:    true,
	})
	if err != nil {
		log.Error("Sentry initialization failed", "error", err)
		return &SentryService{log: log}
	}

	log.Info("Sentry initialized successfully", "environment", environment)
	return &SentryService{initialized: true, log: log}
}

// Report logs err and captures it with the operation and stage as tags.
func (s *SentryService) Report(op, stage string, level Level, err error) {
	if level == LevelWarning {
		s.log.Warn(op+" failed", "stage", stage, "error", err)
	} else {
		s.log.Error(op+" failed", "stage", stage, "error", err)
	}

	s.WithScope(func(scope *Scope) {
		scope.SetTag("operation", op)
		scope.SetTag("stage", stage)
		scope.SetLevel(level)
		sentry.CaptureException(err)
	})
}

// Flush waits for buffered events to be sent.
func (s *SentryService) Flush(timeout time.Duration) bool {
	if !s.initialized {
		return true
	}
	return sentry.Flush(timeout)
}

// Close flushes the Sentry client.
func (s *SentryService) Close() {
	s.Flush(2 * time.Second)
}

// CaptureException sends err to Sentry when it is enabled.
func (s *SentryService) CaptureException(err error) {
	if !s.initialized {
		return
	}
	sentry.CaptureException(err)
}

// WithScope executes fn with a new Sentry scope.
func (s *SentryService) WithScope(fn func(scope *Scope)) {
	if !s.initialized {
		return
	}
	sentry.WithScope(fn)
}
