package usecase

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/lazypandaa/gramvaani-client/domain/entities"
	"github.com/lazypandaa/gramvaani-client/domain/repositories"
)

// PlaybackState models the answer-audio lifecycle.
type PlaybackState string

const (
	PlaybackEmpty   PlaybackState = "empty"
	PlaybackIdle    PlaybackState = "idle"
	PlaybackPlaying PlaybackState = "playing"
	PlaybackPaused  PlaybackState = "paused"
	PlaybackEnded   PlaybackState = "ended"
)

// PlaybackController owns the single current playable resource. Loading a
// replacement releases the previous resource and stops its playback; an
// ended resource stays loaded so the user can replay it.
type PlaybackController struct {
	output repositories.AudioOutput
	logger *zap.Logger

	mu         sync.Mutex
	state      PlaybackState
	resource   *entities.PlayableResource
	handle     repositories.PlaybackHandle
	generation int
}

func NewPlaybackController(output repositories.AudioOutput, logger *zap.Logger) *PlaybackController {
	return &PlaybackController{
		output: output,
		logger: logger,
		state:  PlaybackEmpty,
	}
}

func (p *PlaybackController) State() PlaybackState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *PlaybackController) IsPlaying() bool {
	return p.State() == PlaybackPlaying
}

// Resource returns the currently loaded resource, or nil.
func (p *PlaybackController) Resource() *entities.PlayableResource {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resource
}

// Load installs a new resource, releasing whatever was loaded before.
func (p *PlaybackController) Load(resource *entities.PlayableResource) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dropLocked()
	if resource == nil {
		p.state = PlaybackEmpty
		return
	}
	p.resource = resource
	p.state = PlaybackIdle
}

// Play starts or resumes playback of the loaded resource. With nothing
// loaded it is a no-op.
func (p *PlaybackController) Play(ctx context.Context) error {
	p.mu.Lock()
	switch p.state {
	case PlaybackEmpty:
		p.mu.Unlock()
		return nil
	case PlaybackPlaying:
		p.mu.Unlock()
		return nil
	case PlaybackPaused:
		handle := p.handle
		p.state = PlaybackPlaying
		p.mu.Unlock()
		return handle.Resume()
	}

	// Idle or ended, start a fresh playback of the loaded resource.
	resource := p.resource
	if p.handle != nil {
		_ = p.handle.Close()
		p.handle = nil
	}
	p.generation++
	generation := p.generation
	p.mu.Unlock()

	handle, err := p.output.Play(ctx, resource)
	if err != nil {
		p.logger.Warn("Playback failed to start", zap.Error(err))
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if generation != p.generation {
		// The resource changed while the output was starting.
		_ = handle.Close()
		return nil
	}
	p.handle = handle
	p.state = PlaybackPlaying
	go p.watch(handle, generation)
	return nil
}

// Pause suspends an active playback. Any other state is a no-op.
func (p *PlaybackController) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != PlaybackPlaying {
		return nil
	}
	p.state = PlaybackPaused
	return p.handle.Pause()
}

// Clear releases the loaded resource and returns to the empty state.
func (p *PlaybackController) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dropLocked()
	p.state = PlaybackEmpty
}

// watch marks the playback ended when its handle completes. A stale handle,
// replaced while we were waiting, is ignored.
func (p *PlaybackController) watch(handle repositories.PlaybackHandle, generation int) {
	<-handle.Done()
	p.mu.Lock()
	defer p.mu.Unlock()
	if generation != p.generation {
		return
	}
	p.state = PlaybackEnded
	p.logger.Debug("Playback ended")
}

// dropLocked stops and releases the current handle and resource. Callers
// hold the mutex.
func (p *PlaybackController) dropLocked() {
	p.generation++
	if p.handle != nil {
		_ = p.handle.Close()
		p.handle = nil
	}
	if p.resource != nil {
		if err := p.resource.Release(); err != nil {
			p.logger.Warn("Failed to release audio resource", zap.Error(err))
		}
		p.resource = nil
	}
}
