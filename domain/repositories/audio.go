package repositories

import (
	"context"

	"github.com/lazypandaa/gramvaani-client/domain/entities"
)

// AudioConfig describes how microphone audio is captured.
type AudioConfig struct {
	SampleRate int
	Channels   int
}

// CaptureSession is a live microphone session. Fragments are delivered in
// device order. Stop requests the device to stop; the stop is confirmed when
// the fragment channel closes. Callers must treat those as distinct events.
type CaptureSession interface {
	Fragments() <-chan []byte
	Stop() error
}

// CaptureDevice acquires the microphone. A denied or failed acquisition
// returns an error wrapping entities.ErrPermissionDenied and no session.
type CaptureDevice interface {
	Start(ctx context.Context, cfg AudioConfig) (CaptureSession, error)
}

// PlaybackHandle controls one in-flight playback of a resource.
type PlaybackHandle interface {
	Pause() error
	Resume() error
	// Done is closed when the playback completes, whether it reached its
	// natural end or was closed. Waiters must never block past Close.
	Done() <-chan struct{}
	Close() error
}

// AudioOutput starts playback of a resource, local or remote.
type AudioOutput interface {
	Play(ctx context.Context, resource *entities.PlayableResource) (PlaybackHandle, error)
}
