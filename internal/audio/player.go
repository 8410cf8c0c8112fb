package audio

import (
	"fmt"
	log "log/slog"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

const DefaultSampleRate beep.SampleRate = 44100

// Player plays mp3 files through the default output device. The speaker is
// initialised on first use and resampled streams are mixed at a fixed rate.
type Player struct {
	mu    sync.Mutex
	rate  beep.SampleRate
	ready bool
	log   *log.Logger
}

func NewPlayer(logger *log.Logger) *Player {
	if logger == nil {
		logger = log.Default()
	}
	return &Player{rate: DefaultSampleRate, log: logger}
}

func (p *Player) init() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ready {
		return nil
	}
	if err := speaker.Init(p.rate, p.rate.N(time.Second/10)); err != nil {
		return fmt.Errorf("speaker init: %w", err)
	}
	p.ready = true
	return nil
}

func (p *Player) open(path string) (beep.StreamSeekCloser, beep.Streamer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("decode %s: %w", path, err)
	}

	var out beep.Streamer = streamer
	if format.SampleRate != p.rate {
		out = beep.Resample(4, format.SampleRate, p.rate, streamer)
	}
	return streamer, out, nil
}

// Play starts playback of path and returns immediately.
func (p *Player) Play(path string) error {
	done, err := p.start(path)
	if err != nil {
		return err
	}
	go func() {
		<-done
		p.log.Debug("Playback finished", "path", path)
	}()
	return nil
}

// Cue plays path and waits until it has finished.
func (p *Player) Cue(path string) error {
	done, err := p.start(path)
	if err != nil {
		return err
	}
	<-done
	return nil
}

// Stop drops everything currently playing.
func (p *Player) Stop() {
	p.mu.Lock()
	ready := p.ready
	p.mu.Unlock()
	if ready {
		speaker.Clear()
	}
}

func (p *Player) start(path string) (<-chan struct{}, error) {
	if err := p.init(); err != nil {
		return nil, err
	}

	src, stream, err := p.open(path)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(stream, beep.Callback(func() {
		src.Close()
		close(done)
	})))

	p.log.Info("Playing", "path", path)
	return done, nil
}
