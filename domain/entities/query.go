package entities

import "time"

// QueryMode identifies which pipeline entry point produced a query.
type QueryMode string

const (
	QueryModeVoice   QueryMode = "voice"
	QueryModeText    QueryMode = "text"
	QueryModeWeather QueryMode = "weather"
	QueryModeCrop    QueryMode = "crop"
	QueryModeScheme  QueryMode = "scheme"
)

// QueryRequest describes one query submitted to the backend. It is immutable
// once built; retry bookkeeping lives in the request client, never here.
type QueryRequest struct {
	ID       string
	Mode     QueryMode
	Text     string
	Audio    []byte // finalized WAV payload, voice mode only
	Language string
}

// QueryResponse is the normalized result of any query. AnswerText is always
// present on success; Audio is best effort.
type QueryResponse struct {
	Transcript string
	AnswerText string
	Audio      *PlayableResource
}

// QueryRecord is one entry of the user's query history.
type QueryRecord struct {
	Type      string    `json:"type"`
	Query     string    `json:"query"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}
