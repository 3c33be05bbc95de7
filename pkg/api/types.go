package api

// API request and response types for REST endpoints and WebSocket messages

import (
	"github.com/uhyunpark/scriptgen/pkg/storage"
)

// GenerateRequest asks for one script. Fields left out fall back to the named
// profile ("default" when no profile is given).
type GenerateRequest struct {
	Name          string   `json:"name"`
	Profile       string   `json:"profile"`
	Clients       *int     `json:"clients"`
	Transactions  *int     `json:"transactions"`
	Instruments   *int     `json:"instruments"` // -1 for all
	Universe      []string `json:"universe"`
	Cancel        *bool    `json:"cancel"`
	RoundNumbers  *bool    `json:"round_numbers"`
	Seed          *int64   `json:"seed"`
	SpecialOpProb *float64 `json:"special_op_prob"`
}

// GenerateResponse carries the run manifest and, unless suppressed, the script text.
type GenerateResponse struct {
	Manifest *storage.Manifest `json:"manifest"`
	Script   string            `json:"script,omitempty"`
}

// ReplayRequest optionally renames the replayed output.
type ReplayRequest struct {
	Name string `json:"name"`
}

// ProfileInfo describes a generation profile
type ProfileInfo struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Clients       int     `json:"clients"`
	Transactions  int     `json:"transactions"`
	Instruments   int     `json:"instruments"`
	Cancel        bool    `json:"cancel"`
	RoundNumbers  bool    `json:"round_numbers"`
	SpecialOpProb float64 `json:"special_op_prob,omitempty"`
}

// RunEvent is pushed to WebSocket subscribers of the "runs" channel.
type RunEvent struct {
	Type     string            `json:"type"` // "run"
	Manifest *storage.Manifest `json:"manifest"`
}

// WSSubscribeRequest is sent by clients to manage channel subscriptions
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

// ErrorResponse for API errors
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
