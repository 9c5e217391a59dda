package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lazypandaa/gramvaani-client/domain/entities"
	"github.com/lazypandaa/gramvaani-client/domain/repositories"
)

const genericErrorMessage = "Sorry, something went wrong. Please try again."

// AssistantSnapshot is a point-in-time view of the pipeline for rendering.
type AssistantSnapshot struct {
	Processing   bool
	Recording    bool
	Transcript   string
	AnswerText   string
	ErrorMessage string
	Playback     PlaybackState
}

// AssistantService runs the query pipeline end to end: capture, submission,
// decoding and playback. Each new query supersedes the previous one; a late
// result from a superseded query is discarded, never surfaced.
type AssistantService struct {
	session  *SessionService
	backend  repositories.Backend
	capture  *CaptureService
	playback *PlaybackController
	logger   *zap.Logger

	mu         sync.Mutex
	generation uint64
	processing bool
	transcript string
	answerText string
	errMessage string
}

func NewAssistantService(
	session *SessionService,
	backend repositories.Backend,
	capture *CaptureService,
	playback *PlaybackController,
	logger *zap.Logger,
) *AssistantService {
	return &AssistantService{
		session:  session,
		backend:  backend,
		capture:  capture,
		playback: playback,
		logger:   logger,
	}
}

// Snapshot returns the current pipeline state.
func (a *AssistantService) Snapshot() AssistantSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return AssistantSnapshot{
		Processing:   a.processing,
		Recording:    a.capture.Recording(),
		Transcript:   a.transcript,
		AnswerText:   a.answerText,
		ErrorMessage: a.errMessage,
		Playback:     a.playback.State(),
	}
}

// Playback exposes the controller for replay and pause commands.
func (a *AssistantService) Playback() *PlaybackController { return a.playback }

// StartRecording begins a voice query's capture phase.
func (a *AssistantService) StartRecording(ctx context.Context) error {
	if !a.session.Authenticated() {
		return entities.ErrNotAuthenticated
	}
	if err := a.capture.Start(ctx); err != nil {
		a.mu.Lock()
		a.errMessage = "Microphone access is required for voice queries."
		a.mu.Unlock()
		return err
	}
	return nil
}

// StopAndAsk finishes the capture phase and submits the recording.
func (a *AssistantService) StopAndAsk(ctx context.Context, language string) (*entities.QueryResponse, error) {
	payload, err := a.capture.Stop(ctx)
	if err != nil {
		a.mu.Lock()
		if errors.Is(err, entities.ErrNoAudioCaptured) {
			a.errMessage = "No audio was captured. Please try again."
		} else {
			a.errMessage = genericErrorMessage
		}
		a.mu.Unlock()
		return nil, err
	}
	req := entities.QueryRequest{
		ID:       uuid.New().String(),
		Mode:     entities.QueryModeVoice,
		Audio:    payload,
		Language: language,
	}
	return a.run(ctx, req, func(ctx context.Context) (*entities.QueryResponse, error) {
		return a.backend.ProcessAudio(ctx, payload, language)
	})
}

// AskText submits a typed question.
func (a *AssistantService) AskText(ctx context.Context, text string, language string) (*entities.QueryResponse, error) {
	req := entities.QueryRequest{
		ID:       uuid.New().String(),
		Mode:     entities.QueryModeText,
		Text:     text,
		Language: language,
	}
	return a.run(ctx, req, func(ctx context.Context) (*entities.QueryResponse, error) {
		return a.backend.ProcessText(ctx, text, language)
	})
}

// Weather asks for a city's weather report.
func (a *AssistantService) Weather(ctx context.Context, city string, language string) (*entities.QueryResponse, error) {
	req := entities.QueryRequest{
		ID:       uuid.New().String(),
		Mode:     entities.QueryModeWeather,
		Text:     city,
		Language: language,
	}
	return a.run(ctx, req, func(ctx context.Context) (*entities.QueryResponse, error) {
		return a.backend.Weather(ctx, city, language)
	})
}

// CropPrices asks for a crop's market price.
func (a *AssistantService) CropPrices(ctx context.Context, crop string, market string, language string) (*entities.QueryResponse, error) {
	req := entities.QueryRequest{
		ID:       uuid.New().String(),
		Mode:     entities.QueryModeCrop,
		Text:     crop,
		Language: language,
	}
	return a.run(ctx, req, func(ctx context.Context) (*entities.QueryResponse, error) {
		return a.backend.CropPrices(ctx, crop, market, language)
	})
}

// GovSchemes asks about government schemes on a topic.
func (a *AssistantService) GovSchemes(ctx context.Context, topic string, language string) (*entities.QueryResponse, error) {
	req := entities.QueryRequest{
		ID:       uuid.New().String(),
		Mode:     entities.QueryModeScheme,
		Text:     topic,
		Language: language,
	}
	return a.run(ctx, req, func(ctx context.Context) (*entities.QueryResponse, error) {
		return a.backend.GovSchemes(ctx, topic, language)
	})
}

// run executes one query against the backend and applies its outcome unless
// a newer query superseded it meanwhile.
func (a *AssistantService) run(ctx context.Context, req entities.QueryRequest, call func(context.Context) (*entities.QueryResponse, error)) (*entities.QueryResponse, error) {
	if !a.session.Authenticated() {
		a.mu.Lock()
		a.errMessage = "Please log in first."
		a.mu.Unlock()
		return nil, entities.ErrNotAuthenticated
	}

	generation := a.begin(req)
	resp, err := call(ctx)
	return a.finish(generation, req, resp, err)
}

// begin marks a new query current. Previous transcript, answer and playback
// are cleared immediately so stale output never lingers on screen.
func (a *AssistantService) begin(req entities.QueryRequest) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.generation++
	a.processing = true
	a.transcript = ""
	a.answerText = ""
	a.errMessage = ""
	a.playback.Clear()
	a.logger.Info("Query started",
		zap.String("id", req.ID),
		zap.String("mode", string(req.Mode)))
	return a.generation
}

func (a *AssistantService) finish(generation uint64, req entities.QueryRequest, resp *entities.QueryResponse, err error) (*entities.QueryResponse, error) {
	a.mu.Lock()
	if generation != a.generation {
		a.mu.Unlock()
		a.logger.Info("Discarding superseded query result", zap.String("id", req.ID))
		if resp != nil && resp.Audio != nil {
			_ = resp.Audio.Release()
		}
		return nil, nil
	}
	a.processing = false

	if err != nil {
		var decodeErr *entities.DecodeError
		if resp != nil && errors.As(err, &decodeErr) {
			// The textual answer survived; audio is best effort.
			a.logger.Warn("Answer audio unusable", zap.Error(err))
			err = nil
		} else {
			a.errMessage = userMessage(err)
			a.mu.Unlock()
			if errors.Is(err, entities.ErrAuthExpired) {
				a.session.Invalidate()
			}
			a.logger.Warn("Query failed", zap.String("id", req.ID), zap.Error(err))
			return nil, err
		}
	}

	a.transcript = resp.Transcript
	a.answerText = resp.AnswerText
	audio := resp.Audio
	a.mu.Unlock()

	if audio != nil {
		a.playback.Load(audio)
		if playErr := a.playback.Play(context.Background()); playErr != nil {
			a.logger.Warn("Failed to start answer playback", zap.Error(playErr))
		}
	}
	a.logger.Info("Query completed", zap.String("id", req.ID))
	return resp, nil
}

// userMessage maps a pipeline error to the string shown to the user. Backend
// detail text is surfaced verbatim; everything else collapses to a generic
// message.
func userMessage(err error) string {
	var apiErr *entities.APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	if errors.Is(err, entities.ErrAuthExpired) {
		return "Your session has expired. Please log in again."
	}
	if errors.Is(err, context.Canceled) {
		return ""
	}
	return genericErrorMessage
}
