package entities

import (
	"errors"
	"time"
)

// RecordingState models the capture lifecycle.
type RecordingState string

const (
	RecordingStateIdle      RecordingState = "idle"
	RecordingStateRecording RecordingState = "recording"
	RecordingStateStopped   RecordingState = "stopped"
)

var (
	ErrNotRecording     = errors.New("no active recording session")
	ErrAlreadyFinalized = errors.New("recording session already finalized")
	ErrNoAudioCaptured  = errors.New("no audio captured")
)

// RecordingSession accumulates audio fragments emitted by the capture device.
// Fragments arrive in device order and are never re-sorted. The session is
// not safe for concurrent use; the capture controller serializes access.
type RecordingSession struct {
	state     RecordingState
	fragments [][]byte
	totalSize int
	startedAt time.Time
}

// NewRecordingSession starts a session in the recording state.
func NewRecordingSession() *RecordingSession {
	return &RecordingSession{
		state:     RecordingStateRecording,
		startedAt: time.Now(),
	}
}

func (s *RecordingSession) State() RecordingState { return s.state }

func (s *RecordingSession) FragmentCount() int { return len(s.fragments) }

func (s *RecordingSession) Size() int { return s.totalSize }

func (s *RecordingSession) StartedAt() time.Time { return s.startedAt }

// AppendFragment adds one device fragment in arrival order.
func (s *RecordingSession) AppendFragment(fragment []byte) error {
	if s.state != RecordingStateRecording {
		return ErrNotRecording
	}
	if len(fragment) == 0 {
		return nil
	}
	s.fragments = append(s.fragments, fragment)
	s.totalSize += len(fragment)
	return nil
}

// MarkStopped records that the device confirmed the stop. Further fragments
// are rejected.
func (s *RecordingSession) MarkStopped() error {
	if s.state != RecordingStateRecording {
		return ErrNotRecording
	}
	s.state = RecordingStateStopped
	return nil
}

// Finalize concatenates all fragments into a single payload. It may only be
// called once, after the stop confirmation.
func (s *RecordingSession) Finalize() ([]byte, error) {
	switch s.state {
	case RecordingStateStopped:
	case RecordingStateIdle:
		return nil, ErrAlreadyFinalized
	default:
		return nil, ErrNotRecording
	}
	if s.totalSize == 0 {
		s.state = RecordingStateIdle
		return nil, ErrNoAudioCaptured
	}
	payload := make([]byte, 0, s.totalSize)
	for _, fragment := range s.fragments {
		payload = append(payload, fragment...)
	}
	s.fragments = nil
	s.state = RecordingStateIdle
	return payload, nil
}
