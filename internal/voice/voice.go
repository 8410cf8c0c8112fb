// Package voice captures utterances and speaks replies. The console
// implementations are always available; microphone capture and speech
// synthesis need the voice build tag.
package voice

import (
	"context"
	"errors"
	"time"
)

var ErrUnavailable = errors.New("voice support not compiled in (build with -tags voice)")

// Listener captures one utterance. It returns "" when nothing intelligible
// was heard and io.EOF when the input is exhausted.
type Listener interface {
	Listen(ctx context.Context) (string, error)
}

type Speaker interface {
	Speak(text string) error
}

// Ducker lowers and restores the volume of other audio streams.
type Ducker interface {
	Duck(ctx context.Context, factor float64, duration time.Duration) error
	Restore(ctx context.Context, duration time.Duration) error
}

// DuckingSpeaker lowers other audio while the wrapped speaker talks.
type DuckingSpeaker struct {
	Speaker
	Ducker Ducker
	Factor float64
	Fade   time.Duration
}

func NewDuckingSpeaker(s Speaker, d Ducker) *DuckingSpeaker {
	return &DuckingSpeaker{Speaker: s, Ducker: d, Factor: 0.2, Fade: 300 * time.Millisecond}
}

// Speak always restores the volume, even when speaking fails.
func (d *DuckingSpeaker) Speak(text string) error {
	ctx := context.Background()
	if err := d.Ducker.Duck(ctx, d.Factor, d.Fade); err != nil {
		return errors.Join(err, d.Speaker.Speak(text))
	}
	err := d.Speaker.Speak(text)
	return errors.Join(err, d.Ducker.Restore(ctx, d.Fade))
}
