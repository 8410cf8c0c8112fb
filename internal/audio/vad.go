package audio

import (
	"math"
	"time"
)

const (
	SampleRate = 16000
	FrameSize  = 320 // 20ms at 16 kHz
)

// Segmenter cuts one utterance out of a stream of fixed size frames using an
// RMS energy threshold.
type Segmenter struct {
	Threshold float64
	Silence   time.Duration // trailing silence that ends the utterance
	Wait      time.Duration // give up when nobody speaks for this long
	Limit     time.Duration // hard cap on the utterance length

	speaking bool
	silent   int
	frames   int
	out      []float32
}

func NewSegmenter() *Segmenter {
	return &Segmenter{
		Threshold: 0.015,
		Silence:   time.Second,
		Wait:      5 * time.Second,
		Limit:     10 * time.Second,
	}
}

func framesIn(d time.Duration) int {
	return max(int(d/(20*time.Millisecond)), 1)
}

// Push feeds one frame and reports whether the utterance is complete.
func (s *Segmenter) Push(frame []float32) bool {
	s.frames++

	if frameRMS(frame) > s.Threshold {
		s.speaking = true
		s.silent = 0
		s.out = append(s.out, frame...)
	} else if s.speaking {
		s.silent++
		s.out = append(s.out, frame...)
		if s.silent >= framesIn(s.Silence) {
			return true
		}
	}

	if !s.speaking && s.frames >= framesIn(s.Wait) {
		return true
	}
	return s.speaking && s.frames >= framesIn(s.Wait)+framesIn(s.Limit)
}

// Samples returns the captured utterance, nil when no speech was heard.
func (s *Segmenter) Samples() []float32 {
	if !s.speaking {
		return nil
	}
	return s.out
}

func frameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
