package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krpc/spacecenter/internal/storage"
	"github.com/krpc/spacecenter/pkg/core"
	"github.com/krpc/spacecenter/pkg/streaming"
)

// Compile-time interface check.
var _ storage.Backend = (*Backend)(nil)

// testServer creates an httptest server that upgrades to WebSocket,
// records received messages, and acks start_flight/end_flight.
func testServer(t *testing.T, ack bool) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ml.setSecret(r.URL.Query().Get("secret"))
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)

			if !ack || (env.Type != streaming.TypeStartFlight && env.Type != streaming.TypeEndFlight) {
				continue
			}
			reply := streaming.AckMessage{Type: streaming.TypeAck, For: env.Type, FlightID: flightID(env)}
			data, _ := json.Marshal(reply)
			if err := c.WriteMessage(ws.TextMessage, data); err != nil {
				return
			}
		}
	}))

	return srv, ml
}

func flightID(env streaming.Envelope) string {
	switch env.Type {
	case streaming.TypeStartFlight:
		var p streaming.StartFlightPayload
		_ = json.Unmarshal(env.Payload, &p)
		if p.Flight != nil {
			return p.Flight.ID
		}
	case streaming.TypeEndFlight:
		var e core.FlightEnd
		_ = json.Unmarshal(env.Payload, &e)
		return e.FlightID
	}
	return ""
}

type messageLog struct {
	mu       sync.Mutex
	messages []streaming.Envelope
	secret   string
}

func (m *messageLog) add(env streaming.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) setSecret(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secret = s
}

func (m *messageLog) all() []streaming.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]streaming.Envelope, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestStartAndEndFlight(t *testing.T) {
	srv, ml := testServer(t, true)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "test"}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartFlight(&core.Flight{ID: "f1", VesselID: 7, VesselName: "Kerbal X"}))
	require.NoError(t, b.RecordSample(&core.VesselSample{FlightID: "f1", UT: 1000, Mass: 2940}))
	require.NoError(t, b.EndFlight(&core.FlightEnd{FlightID: "f1", Reason: "recovered"}))

	msgs := ml.all()
	require.Len(t, msgs, 3)
	assert.Equal(t, streaming.TypeStartFlight, msgs[0].Type)
	assert.Equal(t, streaming.TypeVesselSample, msgs[1].Type)
	assert.Equal(t, streaming.TypeEndFlight, msgs[2].Type)

	var s core.VesselSample
	require.NoError(t, json.Unmarshal(msgs[1].Payload, &s))
	assert.Equal(t, 2940.0, s.Mass)

	ml.mu.Lock()
	assert.Equal(t, "test", ml.secret)
	ml.mu.Unlock()

	b.conn.mu.Lock()
	assert.Empty(t, b.conn.openFlights)
	b.conn.mu.Unlock()
}

func TestStartFlight_TimesOutWithoutAck(t *testing.T) {
	srv, _ := testServer(t, false)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv)}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	// Waiting for the full ack timeout is too slow for a unit test, so
	// exercise the connection directly.
	data, err := marshalEnvelope(streaming.TypeStartFlight, streaming.StartFlightPayload{Flight: &core.Flight{ID: "f"}})
	require.NoError(t, err)
	err = b.conn.sendAndWait(data, streaming.TypeStartFlight, "f", 50*time.Millisecond)
	assert.ErrorContains(t, err, "timeout")
}

func TestOpenFlightsTracked(t *testing.T) {
	c := newConnection(nil)
	c.openFlight("a", []byte("1"))
	c.openFlight("b", []byte("2"))
	c.openFlight("a", []byte("3"))
	assert.Equal(t, []string{"a", "b"}, c.flightOrder)
	assert.Equal(t, []byte("3"), c.openFlights["a"])

	c.closeFlight("a")
	assert.Equal(t, []string{"b"}, c.flightOrder)
	c.closeFlight("missing")
	assert.Len(t, c.openFlights, 1)
}

func TestInit_DialFailure(t *testing.T) {
	b := New(Config{URL: "ws://127.0.0.1:1/telemetry"}, nil)
	assert.Error(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestEnvelopeSerialization(t *testing.T) {
	data, err := marshalEnvelope(streaming.TypeEndFlight, &core.FlightEnd{FlightID: "f", UT: 42})
	require.NoError(t, err)

	var decoded streaming.Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, streaming.TypeEndFlight, decoded.Type)

	var e core.FlightEnd
	require.NoError(t, json.Unmarshal(decoded.Payload, &e))
	assert.Equal(t, "f", e.FlightID)
	assert.Equal(t, 42.0, e.UT)
}
