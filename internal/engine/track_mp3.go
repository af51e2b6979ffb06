// ABOUTME: MP3 track source
// ABOUTME: Decodes MP3 files to PCM via hajimehoshi/go-mp3

package engine

import (
	"fmt"
	"os"

	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/mediarec/mediarec-go/pkg/protocol"
)

// newMP3Track opens an MP3 file as a streaming PCM track. go-mp3 always
// produces 16-bit stereo at the file's sample rate.
func newMP3Track(src string) (track, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open source: %w", err)
	}

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", errSourceNotSupported, err)
	}

	durationMs := float64(protocol.DurationUnknown)
	if n := dec.Length(); n > 0 {
		durationMs = float64(n) / float64(bytesPerFrame*dec.SampleRate()) * 1000.0
	}

	return newPCMTrack(dec, dec.SampleRate(), durationMs, f.Close)
}
