package models

import (
	"encoding/json"
	"time"
)

// SwitchType is the four-valued classification steering an external scene switch.
type SwitchType string

const (
	SwitchOffline  SwitchType = "offline"  // stream unreachable, absent or below the offline cutoff
	SwitchPrevious SwitchType = "previous" // hold the current scene (stream just started, stats empty)
	SwitchLow      SwitchType = "low"      // stream alive but below the low cutoff
	SwitchNormal   SwitchType = "normal"   // stream healthy
)

// Valid reports whether t is one of the known switch types.
func (t SwitchType) Valid() bool {
	switch t {
	case SwitchOffline, SwitchPrevious, SwitchLow, SwitchNormal:
		return true
	}
	return false
}

// Triggers holds the operator-configured bitrate cutoffs in kbps.
// A nil field disables that branch of the classifier. Triggers are owned by
// the caller and passed per decision call; backends never retain them.
type Triggers struct {
	Offline *int64 `json:"offline,omitempty"`
	Low     *int64 `json:"low,omitempty"`
}

// StreamServer is a persisted stream server configuration. Kind is the
// discriminant selecting the concrete backend; Config carries the
// backend-specific fields as raw JSON and is decoded by the streamserver
// package when the backend is instantiated.
type StreamServer struct {
	ID        string          `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	Kind      string          `json:"kind" db:"kind"`
	Config    json.RawMessage `json:"config" db:"config"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// ServerKind constants for the Kind discriminant.
const (
	ServerKindNginxRTMP = "nginx-rtmp"
)

// StreamHealth is the live health snapshot for one stream server, kept in
// the cache and returned by the API.
type StreamHealth struct {
	ServerID    string     `json:"server_id"`
	ServerName  string     `json:"server_name"`
	Decision    SwitchType `json:"decision"`
	BitrateKbps int64      `json:"bitrate_kbps"`
	CheckedAt   time.Time  `json:"checked_at"`
}

// HealthEvent records a confirmed decision transition.
type HealthEvent struct {
	ID          string     `json:"id" db:"id"`
	ServerID    string     `json:"server_id" db:"server_id"`
	Previous    SwitchType `json:"previous" db:"previous"`
	Decision    SwitchType `json:"decision" db:"decision"`
	BitrateKbps int64      `json:"bitrate_kbps" db:"bitrate_kbps"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// SwitchEvent is the message published to the event bus when a transition
// is confirmed; the production controller consumes it and performs the
// actual scene switch.
type SwitchEvent struct {
	ID          string     `json:"id"`
	ServerID    string     `json:"server_id"`
	ServerName  string     `json:"server_name"`
	Previous    SwitchType `json:"previous"`
	Decision    SwitchType `json:"decision"`
	BitrateKbps int64      `json:"bitrate_kbps"`
	Timestamp   time.Time  `json:"timestamp"`
}
