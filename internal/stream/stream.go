// Package stream re-evaluates read-only calls after every ingested snapshot
// and pushes changed results to the client that registered them.
package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"github.com/krpc/spacecenter/internal/dispatcher"
	"github.com/krpc/spacecenter/internal/vessel"
	"github.com/krpc/spacecenter/pkg/streaming"
)

var (
	ErrNotStreamable  = errors.New("command cannot be streamed")
	ErrStreamNotFound = errors.New("stream not found")
)

// Publisher delivers an update to a connected client.
type Publisher interface {
	Publish(clientID string, update streaming.StreamUpdate) error
}

type entry struct {
	id      uint64
	client  string
	command string
	args    []string
	last    []byte
}

// Manager owns every registered stream.
type Manager struct {
	d      *dispatcher.Dispatcher
	pub    Publisher
	logger *slog.Logger

	mu      sync.Mutex
	nextID  uint64
	streams map[uint64]*entry
}

func NewManager(d *dispatcher.Dispatcher, pub Publisher, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		d:       d,
		pub:     pub,
		logger:  logger,
		streams: make(map[uint64]*entry),
	}
}

// SetPublisher replaces the publisher. The transport is created after the
// manager, so it is wired in late.
func (m *Manager) SetPublisher(pub Publisher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pub = pub
}

// Add registers a stream of command for clientID. The first value is
// pushed on the next Update.
func (m *Manager) Add(clientID, command string, args []string) (uint64, error) {
	if !m.d.IsReadOnly(command) {
		return 0, fmt.Errorf("%w: %s", ErrNotStreamable, command)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.streams[m.nextID] = &entry{
		id:      m.nextID,
		client:  clientID,
		command: command,
		args:    append([]string(nil), args...),
	}
	return m.nextID, nil
}

// Remove drops a stream owned by clientID.
func (m *Manager) Remove(clientID string, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.streams[id]
	if !ok || e.client != clientID {
		return fmt.Errorf("%w: %d", ErrStreamNotFound, id)
	}
	delete(m.streams, id)
	return nil
}

// RemoveClient drops every stream of a disconnected client and returns how
// many there were.
func (m *Manager) RemoveClient(clientID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, e := range m.streams {
		if e.client == clientID {
			delete(m.streams, id)
			n++
		}
	}
	return n
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.streams)
}

// Update re-evaluates every stream and publishes the ones whose result
// changed since the last push. Streams are evaluated in id order.
func (m *Manager) Update() {
	m.mu.Lock()
	pending := make([]entry, 0, len(m.streams))
	for _, e := range m.streams {
		pending = append(pending, *e)
	}
	pub := m.pub
	m.mu.Unlock()
	if pub == nil {
		return
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].id < pending[j].id })

	for _, e := range pending {
		update := streaming.StreamUpdate{Type: streaming.TypeStream, Stream: e.id}
		result, err := m.d.Dispatch(dispatcher.Event{Command: e.command, Args: e.args, ClientID: e.client})
		if err != nil {
			update.Error = err.Error()
		} else {
			update.Result = result
		}

		data, err := json.Marshal(update)
		if err != nil {
			m.logger.Error("Failed to encode stream update", "stream", e.id, "command", e.command, "error", err)
			continue
		}
		if !m.swapLast(e.id, data) {
			continue
		}
		if err := pub.Publish(e.client, update); err != nil {
			m.logger.Debug("Stream update not delivered", "stream", e.id, "client", e.client, "error", err)
		}
	}
}

// swapLast records data as the stream's latest value and reports whether
// it differs from the previous one. A stream removed meanwhile reports false.
func (m *Manager) swapLast(id uint64, data []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.streams[id]
	if !ok || bytes.Equal(e.last, data) {
		return false
	}
	e.last = data
	return true
}

// VesselUpdated implements rpc.Observer.
func (m *Manager) VesselUpdated(*vessel.Vessel, bool) { m.Update() }

// VesselRemoved implements rpc.Observer.
func (m *Manager) VesselRemoved(uint64, float64) { m.Update() }

// RegisterHandlers adds :STREAM:ADD: and :STREAM:REMOVE:.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(":STREAM:ADD:", m.handleAdd, dispatcher.Logged())
	d.Register(":STREAM:REMOVE:", m.handleRemove, dispatcher.Logged())
}

func (m *Manager) handleAdd(e dispatcher.Event) (any, error) {
	if len(e.Args) == 0 {
		return nil, errors.New("missing command to stream")
	}
	return m.Add(e.ClientID, e.Args[0], e.Args[1:])
}

func (m *Manager) handleRemove(e dispatcher.Event) (any, error) {
	if len(e.Args) == 0 {
		return nil, errors.New("missing stream id")
	}
	id, err := strconv.ParseUint(e.Args[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid stream id %q: %w", e.Args[0], err)
	}
	if err := m.Remove(e.ClientID, id); err != nil {
		return nil, err
	}
	return true, nil
}
