//go:build !voice

package voice

import (
	"context"
	log "log/slog"
)

type Mic struct{}

func NewMic(string, func(), *log.Logger) (*Mic, error) {
	return nil, ErrUnavailable
}

func (*Mic) Listen(context.Context) (string, error) { return "", ErrUnavailable }
func (*Mic) Close() error                           { return nil }

type FileListener struct{}

func NewFileListener(string, []string) (*FileListener, error) {
	return nil, ErrUnavailable
}

func (*FileListener) Listen(context.Context) (string, error) { return "", ErrUnavailable }
func (*FileListener) Close() error                           { return nil }

type Espeak struct{}

func NewEspeak() (*Espeak, error) {
	return nil, ErrUnavailable
}

func (*Espeak) Speak(string) error { return ErrUnavailable }
