// Package audio provides the platform capture and playback adapters: a malgo
// microphone device and an oto speaker output.
package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"

	"github.com/lazypandaa/gramvaani-client/domain/entities"
	"github.com/lazypandaa/gramvaani-client/domain/repositories"
)

const (
	defaultSampleRate = 16000
	defaultChannels   = 1
	fragmentQueueSize = 64
)

// MalgoCapture records microphone input through the miniaudio bindings. The
// device emits PCM-16 fragments from its own callback thread.
type MalgoCapture struct {
	logger *zap.Logger
}

// Ensure MalgoCapture implements the CaptureDevice interface
var _ repositories.CaptureDevice = (*MalgoCapture)(nil)

func NewMalgoCapture(logger *zap.Logger) *MalgoCapture {
	return &MalgoCapture{logger: logger}
}

// Start acquires the microphone. Any acquisition failure is reported as a
// permission error and leaves no session behind.
func (c *MalgoCapture) Start(ctx context.Context, cfg repositories.AudioConfig) (repositories.CaptureSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaultSampleRate
	}
	if cfg.Channels <= 0 {
		cfg.Channels = defaultChannels
	}

	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrPermissionDenied, err)
	}

	session := &malgoSession{
		fragments: make(chan []byte, fragmentQueueSize),
		malgoCtx:  malgoCtx,
		logger:    c.logger,
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.PeriodSizeInMilliseconds = 20

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, inputSamples []byte, _ uint32) {
			fragment := make([]byte, len(inputSamples))
			copy(fragment, inputSamples)
			session.deliver(fragment)
		},
	}

	device, err := malgo.InitDevice(malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
		return nil, fmt.Errorf("%w: %v", entities.ErrPermissionDenied, err)
	}
	session.device = device

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = malgoCtx.Uninit()
		malgoCtx.Free()
		return nil, fmt.Errorf("%w: %v", entities.ErrPermissionDenied, err)
	}

	c.logger.Info("Microphone capture started",
		zap.Int("sampleRate", cfg.SampleRate),
		zap.Int("channels", cfg.Channels))
	return session, nil
}

type malgoSession struct {
	fragments chan []byte
	device    *malgo.Device
	malgoCtx  *malgo.AllocatedContext
	logger    *zap.Logger

	mu      sync.Mutex
	stopped bool
}

func (s *malgoSession) Fragments() <-chan []byte { return s.fragments }

// Stop halts the device and releases it. The device blocks until its callback
// loop has drained, so closing the channel afterwards is the stop
// confirmation consumers wait on.
func (s *malgoSession) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	err := s.device.Stop()
	s.device.Uninit()
	if uninitErr := s.malgoCtx.Uninit(); uninitErr != nil && err == nil {
		err = uninitErr
	}
	s.malgoCtx.Free()
	close(s.fragments)
	return err
}

func (s *malgoSession) deliver(fragment []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	select {
	case s.fragments <- fragment:
	default:
		s.logger.Warn("Dropping audio fragment, consumer too slow",
			zap.Int("size", len(fragment)))
	}
}
