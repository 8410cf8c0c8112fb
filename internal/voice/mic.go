//go:build voice

package voice

import (
	"context"
	"fmt"
	"io"
	log "log/slog"
	"strings"

	"jarvis/internal/audio"
	"jarvis/pkg/audioconv"
	"jarvis/pkg/stt"
)

// Mic listens on the default input device and transcribes with whisper.
type Mic struct {
	rec *audio.Recorder
	stt *stt.Transcriber
	cue func()
	log *log.Logger
}

// NewMic opens the input device and loads the whisper model. cue, when set,
// runs before each capture.
func NewMic(modelPath string, cue func(), logger *log.Logger) (*Mic, error) {
	if logger == nil {
		logger = log.Default()
	}

	rec := audio.NewRecorder()
	if err := rec.Init(); err != nil {
		return nil, fmt.Errorf("init audio: %w", err)
	}

	t, err := stt.NewTranscriber(modelPath, stt.Options{Language: "en"})
	if err != nil {
		rec.Close()
		return nil, fmt.Errorf("init whisper: %w", err)
	}

	return &Mic{rec: rec, stt: t, cue: cue, log: logger}, nil
}

func (m *Mic) Listen(ctx context.Context) (string, error) {
	if m.cue != nil {
		m.cue()
	}

	m.log.Info("Listening for voice command")
	samples, err := m.rec.Record(ctx, audio.NewSegmenter())
	if err != nil {
		return "", fmt.Errorf("record: %w", err)
	}
	if len(samples) == 0 {
		m.log.Info("No speech detected within the time limit")
		return "", nil
	}

	text, err := m.stt.Transcribe(ctx, samples)
	if err != nil {
		m.log.Error("Speech recognition failed", "err", err)
		return "", nil
	}
	text = strings.ToLower(text)
	m.log.Info("User said", "text", text)
	return text, nil
}

func (m *Mic) Close() error {
	m.rec.Close()
	return m.stt.Close()
}

// FileListener transcribes audio files one per Listen call, then reports io.EOF.
type FileListener struct {
	paths []string
	stt   *stt.Transcriber
}

func NewFileListener(modelPath string, paths []string) (*FileListener, error) {
	t, err := stt.NewTranscriber(modelPath, stt.Options{Language: "en"})
	if err != nil {
		return nil, fmt.Errorf("init whisper: %w", err)
	}
	return &FileListener{paths: paths, stt: t}, nil
}

func (f *FileListener) Listen(ctx context.Context) (string, error) {
	if len(f.paths) == 0 {
		return "", io.EOF
	}
	path := f.paths[0]
	f.paths = f.paths[1:]

	pcm, err := audioconv.DecodeFile(ctx, path, audioconv.Options{})
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}
	text, err := f.stt.Transcribe(ctx, pcm)
	if err != nil {
		return "", err
	}
	return strings.ToLower(text), nil
}

func (f *FileListener) Close() error {
	return f.stt.Close()
}
