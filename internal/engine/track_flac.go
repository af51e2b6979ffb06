// ABOUTME: FLAC track source
// ABOUTME: Decodes FLAC files to an in-memory PCM buffer via mewkiz/flac

package engine

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/mewkiz/flac"

	"github.com/mediarec/mediarec-go/pkg/protocol"
)

// newFLACTrack decodes a whole FLAC file into 16-bit stereo PCM and plays it
// from memory. FLAC frames are not independently seekable through oto, so
// the full decode keeps seeking cheap.
func newFLACTrack(src string) (track, error) {
	stream, err := flac.ParseFile(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errSourceNotSupported, err)
	}
	defer stream.Close()

	info := stream.Info
	pcm, err := decodeFLACStream(stream)
	if err != nil {
		return nil, fmt.Errorf("flac decode error: %w", err)
	}

	durationMs := float64(protocol.DurationUnknown)
	if info.NSamples > 0 {
		durationMs = float64(info.NSamples) / float64(info.SampleRate) * 1000.0
	}

	return newPCMTrack(bytes.NewReader(pcm), int(info.SampleRate), durationMs, nil)
}

// decodeFLACStream renders all frames as interleaved 16-bit stereo
// little-endian PCM. Mono input is duplicated to both channels; extra
// channels beyond two are dropped.
func decodeFLACStream(stream *flac.Stream) ([]byte, error) {
	shift := int(stream.Info.BitsPerSample) - 16

	var buf bytes.Buffer
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		n := int(frame.BlockSize)
		channels := len(frame.Subframes)
		for i := 0; i < n; i++ {
			left := scaleSample(frame.Subframes[0].Samples[i], shift)
			right := left
			if channels > 1 {
				right = scaleSample(frame.Subframes[1].Samples[i], shift)
			}

			var sample [4]byte
			binary.LittleEndian.PutUint16(sample[0:], uint16(left))
			binary.LittleEndian.PutUint16(sample[2:], uint16(right))
			buf.Write(sample[:])
		}
	}

	return buf.Bytes(), nil
}

func scaleSample(s int32, shift int) int16 {
	if shift > 0 {
		s >>= shift
	} else if shift < 0 {
		s <<= -shift
	}
	if s > 32767 {
		s = 32767
	}
	if s < -32768 {
		s = -32768
	}
	return int16(s)
}
