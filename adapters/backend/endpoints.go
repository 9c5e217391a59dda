package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/lazypandaa/gramvaani-client/domain/entities"
)

const contentTypeJSON = "application/json"

// Login exchanges credentials for a bearer token. Never retried on 401; the
// backend's detail message is surfaced verbatim.
func (c *Client) Login(ctx context.Context, creds entities.Credentials) (string, error) {
	body, err := json.Marshal(creds)
	if err != nil {
		return "", fmt.Errorf("failed to marshal credentials: %w", err)
	}
	raw, err := c.send(ctx, call{method: http.MethodPost, path: "/api/login", body: body, contentType: contentTypeJSON})
	if err != nil {
		return "", err
	}
	return accessToken(raw)
}

// Signup registers a profile and returns the minted bearer token.
func (c *Client) Signup(ctx context.Context, profile entities.SignupProfile) (string, error) {
	if err := profile.Validate(); err != nil {
		return "", err
	}
	body, err := json.Marshal(profile)
	if err != nil {
		return "", fmt.Errorf("failed to marshal signup profile: %w", err)
	}
	raw, err := c.send(ctx, call{method: http.MethodPost, path: "/api/signup", body: body, contentType: contentTypeJSON})
	if err != nil {
		return "", err
	}
	return accessToken(raw)
}

// Me fetches the profile behind the current token.
func (c *Client) Me(ctx context.Context) (*entities.User, error) {
	raw, err := c.send(ctx, call{method: http.MethodGet, path: "/api/me", authenticated: true})
	if err != nil {
		return nil, err
	}
	var user entities.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return &user, nil
}

// UpdateProfile replaces the editable profile fields.
func (c *Client) UpdateProfile(ctx context.Context, user entities.User) (*entities.User, error) {
	body, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile: %w", err)
	}
	raw, err := c.send(ctx, call{method: http.MethodPut, path: "/api/profile", body: body, contentType: contentTypeJSON, authenticated: true})
	if err != nil {
		return nil, err
	}
	var updated entities.User
	if err := json.Unmarshal(raw, &updated); err != nil {
		return nil, fmt.Errorf("failed to decode updated profile: %w", err)
	}
	return &updated, nil
}

// UserQueries fetches the query history for the current user.
func (c *Client) UserQueries(ctx context.Context) ([]entities.QueryRecord, error) {
	raw, err := c.send(ctx, call{method: http.MethodGet, path: "/api/user-queries", authenticated: true})
	if err != nil {
		return nil, err
	}
	var payload struct {
		Queries []entities.QueryRecord `json:"queries"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode query history: %w", err)
	}
	return payload.Queries, nil
}

// ProcessAudio submits a finalized WAV payload as multipart form data. The
// body is built once and reissued unchanged on every retry.
func (c *Client) ProcessAudio(ctx context.Context, wavData []byte, language string) (*entities.QueryResponse, error) {
	if len(wavData) == 0 {
		return nil, errors.New("audio payload cannot be empty")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "recording.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(wavData); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if err := writer.WriteField("language", language); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}

	raw, err := c.send(ctx, call{
		method:        http.MethodPost,
		path:          "/process-audio",
		body:          buf.Bytes(),
		contentType:   writer.FormDataContentType(),
		authenticated: true,
	})
	if err != nil {
		return nil, err
	}
	return c.decode(raw, "")
}

// ProcessText submits a typed question. The transcript of a text query is the
// text itself.
func (c *Client) ProcessText(ctx context.Context, text string, language string) (*entities.QueryResponse, error) {
	payload := struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}{Text: text, Language: language}
	return c.sendQuery(ctx, "/process-text", payload, text)
}

// Weather is the quick-access weather lookup.
func (c *Client) Weather(ctx context.Context, city string, language string) (*entities.QueryResponse, error) {
	payload := struct {
		City     string `json:"city"`
		Language string `json:"language"`
	}{City: city, Language: language}
	return c.sendQuery(ctx, "/api/weather", payload, city)
}

// CropPrices is the quick-access market price lookup.
func (c *Client) CropPrices(ctx context.Context, crop string, market string, language string) (*entities.QueryResponse, error) {
	payload := struct {
		Crop     string `json:"crop"`
		Market   string `json:"market,omitempty"`
		Language string `json:"language"`
	}{Crop: crop, Market: market, Language: language}
	return c.sendQuery(ctx, "/api/crop-prices", payload, crop)
}

// GovSchemes is the quick-access government scheme lookup.
func (c *Client) GovSchemes(ctx context.Context, topic string, language string) (*entities.QueryResponse, error) {
	payload := struct {
		Topic    string `json:"topic"`
		Language string `json:"language"`
	}{Topic: topic, Language: language}
	return c.sendQuery(ctx, "/api/gov-schemes", payload, topic)
}

// Location returns a best-effort location string derived from the caller's IP.
func (c *Client) Location(ctx context.Context) (string, error) {
	raw, err := c.send(ctx, call{method: http.MethodGet, path: "/api/location"})
	if err != nil {
		return "", err
	}
	var payload struct {
		Location string `json:"location"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("failed to decode location: %w", err)
	}
	return payload.Location, nil
}

// ReverseGeocode resolves coordinates into a human-readable address.
func (c *Client) ReverseGeocode(ctx context.Context, latitude float64, longitude float64) (string, error) {
	payload := struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}{Latitude: latitude, Longitude: longitude}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal coordinates: %w", err)
	}
	raw, err := c.send(ctx, call{method: http.MethodPost, path: "/api/reverse-geocode", body: body, contentType: contentTypeJSON})
	if err != nil {
		return "", err
	}
	var decoded struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("failed to decode address: %w", err)
	}
	return decoded.Address, nil
}

func (c *Client) sendQuery(ctx context.Context, path string, payload any, fallbackTranscript string) (*entities.QueryResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}
	raw, err := c.send(ctx, call{method: http.MethodPost, path: path, body: body, contentType: contentTypeJSON, authenticated: true})
	if err != nil {
		return nil, err
	}
	return c.decode(raw, fallbackTranscript)
}

func (c *Client) decode(raw []byte, fallbackTranscript string) (*entities.QueryResponse, error) {
	resp, err := DecodeQueryResponse(raw, c.baseURL)
	if resp != nil && resp.Transcript == "" {
		resp.Transcript = fallbackTranscript
	}
	return resp, err
}

func accessToken(raw []byte) (string, error) {
	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", errors.New("token response missing access_token")
	}
	return payload.AccessToken, nil
}
