package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"go.uber.org/zap"

	"github.com/lazypandaa/gramvaani-client/domain/entities"
	"github.com/lazypandaa/gramvaani-client/domain/repositories"
	"github.com/lazypandaa/gramvaani-client/internal/wav"
)

// OtoOutput plays answer audio through the speaker. oto allows a single
// context per process, so the output is constructed once and reused across
// playbacks.
type OtoOutput struct {
	otoCtx     *oto.Context
	sampleRate int
	httpClient *http.Client
	logger     *zap.Logger
}

// Ensure OtoOutput implements the AudioOutput interface
var _ repositories.AudioOutput = (*OtoOutput)(nil)

func NewOtoOutput(sampleRate, channels int, logger *zap.Logger) (*OtoOutput, error) {
	if sampleRate <= 0 {
		sampleRate = defaultSampleRate
	}
	if channels <= 0 {
		channels = defaultChannels
	}
	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio output: %w", err)
	}
	<-ready
	return &OtoOutput{
		otoCtx:     otoCtx,
		sampleRate: sampleRate,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}, nil
}

// Play loads the resource, strips the WAV container when present and starts a
// player over the raw PCM stream.
func (o *OtoOutput) Play(ctx context.Context, resource *entities.PlayableResource) (repositories.PlaybackHandle, error) {
	data, err := o.loadBytes(ctx, resource)
	if err != nil {
		return nil, err
	}
	if wav.Validate(data) == nil {
		if info, err := wav.Probe(data); err == nil && info.SampleRate != o.sampleRate {
			o.logger.Warn("Audio sample rate differs from output device",
				zap.Int("audio", info.SampleRate),
				zap.Int("device", o.sampleRate))
		}
		data = data[wav.HeaderSize:]
	}

	player := o.otoCtx.NewPlayer(bytes.NewReader(data))
	player.Play()
	handle := &otoHandle{
		player: player,
		done:   make(chan struct{}),
	}
	go handle.watch(ctx)
	return handle, nil
}

func (o *OtoOutput) loadBytes(ctx context.Context, resource *entities.PlayableResource) ([]byte, error) {
	if resource == nil {
		return nil, fmt.Errorf("no playable resource")
	}
	if !resource.Remote() {
		data, err := os.ReadFile(resource.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read audio file: %w", err)
		}
		return data, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resource.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build audio request: %w", err)
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch audio: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch audio: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio body: %w", err)
	}
	return data, nil
}

type otoHandle struct {
	player *oto.Player
	done   chan struct{}
	once   sync.Once

	mu     sync.Mutex
	closed bool
}

func (h *otoHandle) Pause() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.player.Pause()
	return nil
}

func (h *otoHandle) Resume() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.player.Play()
	return nil
}

func (h *otoHandle) Done() <-chan struct{} { return h.done }

// Close stops the playback and completes the done channel so that anyone
// waiting on Done is released.
func (h *otoHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	h.once.Do(func() { close(h.done) })
	return h.player.Close()
}

// watch polls the player until it has drained. A paused player still holds
// buffered data, so pausing does not trip the completion signal.
func (h *otoHandle) watch(ctx context.Context) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.mu.Lock()
			if h.closed {
				h.mu.Unlock()
				return
			}
			finished := !h.player.IsPlaying() && h.player.BufferedSize() == 0
			h.mu.Unlock()
			if finished {
				h.once.Do(func() { close(h.done) })
				return
			}
		}
	}
}
