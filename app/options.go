package app

import (
	"time"

	"github.com/kbukum/stepflow/llm"
	"github.com/kbukum/stepflow/logger"
	"github.com/kbukum/stepflow/workflow"
)

// Option configures the App during creation.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	completer       llm.Completer
	fetcher         workflow.PageFetcher
	gracefulTimeout time.Duration
}

func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{gracefulTimeout: 15 * time.Second}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets a custom logger for the application.
// If not set, the logger is initialized from the config's Logging section.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) { o.logger = l }
}

// WithCompleter replaces the provider adapter built from the llm section.
// The response cache still wraps it when redis is enabled.
func WithCompleter(c llm.Completer) Option {
	return func(o *appOptions) { o.completer = c }
}

// WithFetcher replaces the web fetcher built from the web section.
func WithFetcher(f workflow.PageFetcher) Option {
	return func(o *appOptions) { o.fetcher = f }
}

// WithGracefulTimeout sets the maximum duration for graceful shutdown.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) { o.gracefulTimeout = d }
}
