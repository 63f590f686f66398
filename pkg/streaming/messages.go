// Package streaming holds the JSON frames exchanged over WebSocket: the RPC
// protocol between clients and the server, and the telemetry protocol the
// flight recorder pushes to a remote collector.
package streaming

import (
	"encoding/json"

	"github.com/krpc/spacecenter/pkg/core"
)

// RPC frame types.
const (
	TypeCall   = "call"
	TypeResult = "result"
	TypeStream = "stream"
)

// Call is a client request.
type Call struct {
	Type    string   `json:"type"` // always "call"
	ID      uint64   `json:"id"`
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

// Result answers the Call with the same ID.
type Result struct {
	Type   string `json:"type"` // always "result"
	ID     uint64 `json:"id"`
	OK     bool   `json:"ok"`
	Result any    `json:"result"`
	Error  string `json:"error,omitempty"`
}

// StreamUpdate carries a new value of a stream the client added.
type StreamUpdate struct {
	Type   string `json:"type"` // always "stream"
	Stream uint64 `json:"stream"`
	Result any    `json:"result"`
	Error  string `json:"error,omitempty"`
}

// Telemetry message types.
const (
	TypeStartFlight  = "start_flight"
	TypeEndFlight    = "end_flight"
	TypeVesselSample = "vessel_sample"
	TypeAck          = "ack"
)

// Envelope wraps all telemetry messages sent to the collector.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the collector's acknowledgement response.
type AckMessage struct {
	Type     string `json:"type"` // always "ack"
	For      string `json:"for"`  // the message type being acknowledged
	FlightID string `json:"flightId,omitempty"`
}

// StartFlightPayload announces a flight.
type StartFlightPayload struct {
	Flight *core.Flight `json:"flight"`
}
