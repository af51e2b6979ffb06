// ABOUTME: Track abstraction and oto-backed PCM playback
// ABOUTME: Shared player plumbing for all decoded sources

package engine

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// track is one playable media resource. Implementations report positions and
// durations in milliseconds.
type track interface {
	play() error
	pause() error
	seek(ms float64) error
	position() float64
	duration() float64
	setVolume(level float64)
	setOnEnd(fn func())
	close() error
}

// trackFactory builds a track for a source reference.
type trackFactory func(src string) (track, error)

// errSourceNotSupported marks sources no decoder can handle.
var errSourceNotSupported = errors.New("source not supported")

// newFileTrack is the default factory, selecting a decoder by extension.
func newFileTrack(src string) (track, error) {
	switch strings.ToLower(filepath.Ext(src)) {
	case ".mp3":
		return newMP3Track(src)
	case ".flac":
		return newFLACTrack(src)
	default:
		return nil, fmt.Errorf("%w: %s", errSourceNotSupported, src)
	}
}

// oto allows a single context per process. The first track fixes the sample
// rate; later tracks reuse the context.
var (
	otoMu  sync.Mutex
	otoCtx *oto.Context
)

func sharedContext(sampleRate int) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		return otoCtx, nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	otoCtx = ctx
	return ctx, nil
}

const bytesPerFrame = 4 // 16-bit stereo

// pcmTrack plays 16-bit stereo PCM from a seekable source through oto.
type pcmTrack struct {
	mu         sync.Mutex
	src        io.ReadSeeker
	cleanup    func() error
	player     *oto.Player
	sampleRate int
	durationMs float64
	playing    bool
	watching   bool
	onEnd      func()
	done       chan struct{}
	closeOnce  sync.Once
}

func newPCMTrack(src io.ReadSeeker, sampleRate int, durationMs float64, cleanup func() error) (*pcmTrack, error) {
	ctx, err := sharedContext(sampleRate)
	if err != nil {
		if cleanup != nil {
			cleanup()
		}
		return nil, err
	}

	return &pcmTrack{
		src:        src,
		cleanup:    cleanup,
		player:     ctx.NewPlayer(src),
		sampleRate: sampleRate,
		durationMs: durationMs,
		done:       make(chan struct{}),
	}, nil
}

func (t *pcmTrack) play() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.playing = true
	t.player.Play()
	if !t.watching {
		t.watching = true
		go t.watchEnd()
	}
	return t.player.Err()
}

func (t *pcmTrack) pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.playing = false
	t.player.Pause()
	return t.player.Err()
}

func (t *pcmTrack) seek(ms float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ms < 0 {
		ms = 0
	}
	offset := int64(ms / 1000.0 * float64(t.sampleRate))
	offset *= bytesPerFrame

	if _, err := t.player.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek failed: %w", err)
	}
	return nil
}

func (t *pcmTrack) position() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	read, err := t.src.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0
	}

	// The source offset runs ahead of the speaker by the unplayed buffer.
	pos := read - int64(t.player.BufferedSize())
	if pos < 0 {
		pos = 0
	}
	return float64(pos) / float64(bytesPerFrame*t.sampleRate) * 1000.0
}

func (t *pcmTrack) duration() float64 {
	return t.durationMs
}

func (t *pcmTrack) setVolume(level float64) {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	t.player.SetVolume(level)
}

func (t *pcmTrack) setOnEnd(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onEnd = fn
}

// watchEnd detects natural completion: oto stops the player once the source
// is exhausted and the buffer drained, while an explicit pause clears the
// playing flag first.
func (t *pcmTrack) watchEnd() {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			t.mu.Lock()
			ended := t.playing && !t.player.IsPlaying()
			if ended {
				t.playing = false
			}
			fn := t.onEnd
			t.mu.Unlock()

			if ended && fn != nil {
				fn()
			}
		}
	}
}

func (t *pcmTrack) close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		err = t.player.Close()
		if t.cleanup != nil {
			if cerr := t.cleanup(); err == nil {
				err = cerr
			}
		}
	})
	return err
}
