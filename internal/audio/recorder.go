//go:build voice

package audio

import (
	"context"

	"github.com/gordonklaus/portaudio"
)

type Recorder struct{}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// Record captures one utterance from the default input device as mono 16 kHz
// samples. It returns nil samples when no speech was heard.
func (r *Recorder) Record(ctx context.Context, seg *Segmenter) ([]float32, error) {
	if seg == nil {
		seg = NewSegmenter()
	}

	buf := make([]float32, FrameSize)

	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := stream.Read(); err != nil {
			return nil, err
		}
		if seg.Push(buf) {
			return seg.Samples(), nil
		}
	}
}
