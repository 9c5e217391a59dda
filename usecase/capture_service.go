package usecase

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/lazypandaa/gramvaani-client/domain/entities"
	"github.com/lazypandaa/gramvaani-client/domain/repositories"
	"github.com/lazypandaa/gramvaani-client/internal/wav"
)

// CaptureService drives the microphone lifecycle. At most one recording is
// live at a time; a start while recording is ignored, and a stop waits for
// the device's close confirmation before finalizing.
type CaptureService struct {
	device repositories.CaptureDevice
	cfg    repositories.AudioConfig
	logger *zap.Logger

	mu       sync.Mutex
	state    entities.RecordingState
	starting bool
	session  *entities.RecordingSession
	live     repositories.CaptureSession
	done     chan struct{}
}

func NewCaptureService(device repositories.CaptureDevice, cfg repositories.AudioConfig, logger *zap.Logger) *CaptureService {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	return &CaptureService{
		device: device,
		cfg:    cfg,
		logger: logger,
		state:  entities.RecordingStateIdle,
	}
}

// State returns the current capture state.
func (c *CaptureService) State() entities.RecordingState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Recording reports whether a capture is live.
func (c *CaptureService) Recording() bool {
	return c.State() == entities.RecordingStateRecording
}

// Start acquires the microphone and begins accumulating fragments. Starting
// while already recording is a no-op. A device failure leaves the service
// idle with no session.
func (c *CaptureService) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state == entities.RecordingStateRecording || c.starting {
		c.mu.Unlock()
		c.logger.Debug("Start ignored, already recording")
		return nil
	}
	if c.state != entities.RecordingStateIdle {
		c.mu.Unlock()
		return fmt.Errorf("cannot start capture in state %s", c.state)
	}
	// The starting flag stays set across the acquisition so a concurrent
	// Start cannot grab the device a second time.
	c.starting = true
	c.mu.Unlock()

	live, err := c.device.Start(ctx, c.cfg)

	c.mu.Lock()
	c.starting = false
	if err != nil {
		c.mu.Unlock()
		c.logger.Warn("Microphone acquisition failed", zap.Error(err))
		return err
	}
	session := entities.NewRecordingSession()
	done := make(chan struct{})
	c.state = entities.RecordingStateRecording
	c.session = session
	c.live = live
	c.done = done
	c.mu.Unlock()

	go c.pump(live, session, done)
	c.logger.Info("Recording started")
	return nil
}

// pump drains device fragments into the session. The range ends when the
// device closes its channel, which is the stop confirmation.
func (c *CaptureService) pump(live repositories.CaptureSession, session *entities.RecordingSession, done chan struct{}) {
	defer close(done)
	for fragment := range live.Fragments() {
		c.mu.Lock()
		err := session.AppendFragment(fragment)
		c.mu.Unlock()
		if err != nil {
			c.logger.Debug("Fragment discarded", zap.Error(err))
		}
	}
}

// Stop requests the device to stop, waits for the close confirmation and
// finalizes the accumulated fragments into a WAV payload. An empty recording
// returns entities.ErrNoAudioCaptured.
func (c *CaptureService) Stop(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	if c.state != entities.RecordingStateRecording {
		c.mu.Unlock()
		return nil, entities.ErrNotRecording
	}
	c.state = entities.RecordingStateStopped
	live := c.live
	session := c.session
	done := c.done
	c.live = nil
	c.session = nil
	c.done = nil
	c.mu.Unlock()

	if err := live.Stop(); err != nil {
		c.logger.Warn("Device stop reported an error", zap.Error(err))
	}

	select {
	case <-done:
	case <-ctx.Done():
		c.resetIdle()
		return nil, ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = entities.RecordingStateIdle

	if err := session.MarkStopped(); err != nil {
		return nil, err
	}
	pcm, err := session.Finalize()
	if err != nil {
		return nil, err
	}

	payload, err := wav.Encode(pcm, c.cfg.SampleRate, c.cfg.Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to encode recording: %w", err)
	}
	c.logger.Info("Recording finalized",
		zap.Int("pcmBytes", len(pcm)),
		zap.Int("wavBytes", len(payload)))
	return payload, nil
}

func (c *CaptureService) resetIdle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = entities.RecordingStateIdle
}
