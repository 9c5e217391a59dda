package backend

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/lazypandaa/gramvaani-client/domain/entities"
)

// rawQueryResponse tolerates every answer shape the backend emits: the answer
// may arrive under response_text, response, or text, either as a direct
// string or as a nested object.
type rawQueryResponse struct {
	Transcript   string          `json:"transcript"`
	ResponseText json.RawMessage `json:"response_text"`
	Response     json.RawMessage `json:"response"`
	Text         string          `json:"text"`
	AudioData    string          `json:"audio_data"`
	AudioURL     string          `json:"audio_url"`
}

// DecodeQueryResponse normalizes a backend response into a QueryResponse.
//
// Embedded base64 audio is decoded into a temp file and wrapped as a local
// PlayableResource; a remote audio_url is wrapped as-is. Audio is best
// effort: a malformed audio_data field returns the textual answer together
// with a *entities.DecodeError.
func DecodeQueryResponse(raw []byte, baseURL string) (*entities.QueryResponse, error) {
	var payload rawQueryResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	answer := answerText(payload.ResponseText)
	if answer == "" {
		answer = answerText(payload.Response)
	}
	if answer == "" {
		answer = payload.Text
	}

	resp := &entities.QueryResponse{
		Transcript: payload.Transcript,
		AnswerText: answer,
	}

	switch {
	case payload.AudioData != "":
		resource, err := mintAudioResource(payload.AudioData)
		if err != nil {
			return resp, &entities.DecodeError{Field: "audio_data", Err: err}
		}
		resp.Audio = resource
	case payload.AudioURL != "":
		resp.Audio = &entities.PlayableResource{URL: resolveURL(baseURL, payload.AudioURL)}
	}
	return resp, nil
}

// answerText accepts the answer field as either a direct string or a nested
// object carrying the string under a known key.
func answerText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var direct string
	if err := json.Unmarshal(raw, &direct); err == nil {
		return direct
	}
	var nested struct {
		ResponseText string `json:"response_text"`
		Response     string `json:"response"`
		Text         string `json:"text"`
	}
	if err := json.Unmarshal(raw, &nested); err != nil {
		return ""
	}
	for _, candidate := range []string{nested.ResponseText, nested.Response, nested.Text} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

// mintAudioResource decodes text-encoded audio bytes into a temp file and
// returns a file-backed resource. The Playback Controller releases the file.
func mintAudioResource(encoded string) (*entities.PlayableResource, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 audio: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty audio payload")
	}
	file, err := os.CreateTemp("", "gramvaani-*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create audio file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(file.Name())
		return nil, fmt.Errorf("failed to write audio file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return nil, fmt.Errorf("failed to close audio file: %w", err)
	}
	return &entities.PlayableResource{Path: file.Name()}, nil
}

// resolveURL makes relative audio URLs absolute against the API base URL.
func resolveURL(baseURL string, audioURL string) string {
	if strings.HasPrefix(audioURL, "http://") || strings.HasPrefix(audioURL, "https://") {
		return audioURL
	}
	if !strings.HasPrefix(audioURL, "/") {
		audioURL = "/" + audioURL
	}
	return strings.TrimRight(baseURL, "/") + audioURL
}
