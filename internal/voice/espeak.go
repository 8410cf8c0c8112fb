//go:build voice

package voice

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <espeak-ng/speak_lib.h>

static int
jarvis_say(const char *text, const char *lang, int rate)
{
	if (!text)
	{ return -1; }

	if (espeak_Initialize(AUDIO_OUTPUT_SYNCH_PLAYBACK, 500, NULL, 0) < 0)
	{ return -2; }

	espeak_VOICE v = { .languages = lang };
	espeak_SetVoiceByProperties(&v);
	espeak_SetParameter(espeakRATE, rate, 0);

	espeak_Synth(text, 500, 0, 0, 0, espeakCHARS_AUTO, NULL, NULL);
	espeak_Synchronize();
	espeak_Terminate();

	return 0;
}
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"
)

// Espeak speaks through espeak-ng on the default output device.
type Espeak struct {
	mu       sync.Mutex
	Language string
	Rate     int
}

func NewEspeak() (*Espeak, error) {
	return &Espeak{Language: "en", Rate: 180}, nil
}

func (e *Espeak) Speak(text string) error {
	if text == "" {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))
	clang := C.CString(e.Language)
	defer C.free(unsafe.Pointer(clang))

	if rc := C.jarvis_say(ctext, clang, C.int(e.Rate)); rc != 0 {
		return fmt.Errorf("espeak: %d", int(rc))
	}
	return nil
}
