// Package engine talks to remote text-generation services.
package engine

import (
	"context"
	"errors"
	"fmt"
	"iter"
	log "log/slog"
	"net/http"
	"strings"

	"jarvis/internal/prompt"
)

var (
	// ErrBlocked is returned when the service refuses to produce text.
	ErrBlocked = errors.New("response blocked")

	ErrUnknownProvider = errors.New("unknown provider")
	ErrMissingAPIKey   = errors.New("missing API key")
)

// ServiceError wraps transport, quota and API failures.
type ServiceError struct {
	Provider string
	Err      error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Engine generates model replies for a prompt payload.
//
// GenerateStream yields text chunks in order. A chunk paired with ErrBlocked
// is skipped by callers and the sequence continues; a *ServiceError ends it.
type Engine interface {
	Generate(ctx context.Context, p prompt.Payload) (string, error)
	GenerateStream(ctx context.Context, p prompt.Payload) iter.Seq2[string, error]
}

type Options struct {
	Provider   string
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	// Logger defaults to slog.Default.
	Logger     *log.Logger
}

func (o Options) logger() *log.Logger {
	if o.Logger == nil {
		return log.Default()
	}
	return o.Logger
}

// New builds the engine for o.Provider ("gemini" or "openai").
func New(ctx context.Context, o Options) (Engine, error) {
	if o.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	switch strings.ToLower(o.Provider) {
	case "", "gemini":
		return NewGemini(ctx, o)
	case "openai":
		return NewOpenAI(o), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, o.Provider)
	}
}
