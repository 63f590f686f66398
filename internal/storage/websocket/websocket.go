// Package websocket pushes flight telemetry to a remote collector over a
// WebSocket connection.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/krpc/spacecenter/pkg/core"
	"github.com/krpc/spacecenter/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend streams flight data over WebSocket to a collector.
// It implements storage.Backend but not storage.Exporter.
type Backend struct {
	conn *connection
	cfg  Config
}

// New creates a new WebSocket storage backend. A nil logger uses slog.Default().
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger),
		cfg:  cfg,
	}
}

// Init connects to the collector.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the collector.
func (b *Backend) Close() error {
	return b.conn.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// StartFlight announces the flight and waits for the collector's ack.
func (b *Backend) StartFlight(f *core.Flight) error {
	data, err := marshalEnvelope(streaming.TypeStartFlight, streaming.StartFlightPayload{Flight: f})
	if err != nil {
		return err
	}

	// Cache for reconnect replay.
	b.conn.openFlight(f.ID, data)

	return b.conn.sendAndWait(data, streaming.TypeStartFlight, f.ID, ackTimeout)
}

// RecordSample is fire-and-forget.
func (b *Backend) RecordSample(s *core.VesselSample) error {
	data, err := marshalEnvelope(streaming.TypeVesselSample, s)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// EndFlight sends end_flight and waits for the collector's ack.
func (b *Backend) EndFlight(e *core.FlightEnd) error {
	data, err := marshalEnvelope(streaming.TypeEndFlight, e)
	if err != nil {
		return err
	}
	err = b.conn.sendAndWait(data, streaming.TypeEndFlight, e.FlightID, ackTimeout)

	// Forget the flight regardless of error.
	b.conn.closeFlight(e.FlightID)
	return err
}
