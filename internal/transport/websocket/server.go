// Package websocket serves the RPC protocol to clients over WebSocket. Each
// connection gets a client id, a read loop that dispatches calls in order
// and a single write goroutine that owns all writes to the socket.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/krpc/spacecenter/internal/dispatcher"
	"github.com/krpc/spacecenter/pkg/streaming"
)

const (
	instrumentationName = "github.com/krpc/spacecenter/internal/transport/websocket"
	defaultQueueSize    = 256
	defaultPingPeriod   = 30 * time.Second
	writeWait           = 10 * time.Second
	maxMessageSize      = 1 << 20
	shutdownTimeout     = 5 * time.Second
)

// ErrClientNotConnected is returned by Publish for an unknown client id.
var ErrClientNotConnected = errors.New("client not connected")

// Dispatcher routes a call to its handler.
type Dispatcher interface {
	Dispatch(e dispatcher.Event) (any, error)
}

// StreamRegistry drops the streams of a client when it disconnects.
type StreamRegistry interface {
	RemoveClient(clientID string) int
}

type Config struct {
	Address string
	// QueueSize bounds the frames waiting to be written to one client. A
	// client that falls this far behind is disconnected.
	QueueSize  int
	PingPeriod time.Duration
}

// Server accepts client connections on /rpc.
type Server struct {
	cfg      Config
	d        Dispatcher
	streams  StreamRegistry
	logger   *slog.Logger
	upgrader ws.Upgrader

	mu      sync.RWMutex
	clients map[string]*client

	connections metric.Int64UpDownCounter
	calls       metric.Int64Counter
}

func NewServer(cfg Config, d Dispatcher, streams StreamRegistry, logger *slog.Logger) (*Server, error) {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.PingPeriod <= 0 {
		cfg.PingPeriod = defaultPingPeriod
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		d:       d,
		streams: streams,
		logger:  logger,
		upgrader: ws.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}

	meter := otel.Meter(instrumentationName)
	var err error
	if s.connections, err = meter.Int64UpDownCounter("transport.clients",
		metric.WithDescription("Connected RPC clients")); err != nil {
		return nil, fmt.Errorf("creating clients counter: %w", err)
	}
	if s.calls, err = meter.Int64Counter("transport.calls",
		metric.WithDescription("Calls received from clients")); err != nil {
		return nil, fmt.Errorf("creating calls counter: %w", err)
	}
	return s, nil
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", s.handleRPC)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// ListenAndServe serves on cfg.Address until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then disconnects
// every client.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	s.logger.Info("RPC server listening", "address", ln.Addr().String())
	go func() {
		serveErr <- httpServer.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		err := httpServer.Shutdown(shutdownCtx)
		cancel()
		s.closeAll()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		s.closeAll()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve rpc: %w", err)
	}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Publish queues a stream update for a client.
func (s *Server) Publish(clientID string, update streaming.StreamUpdate) error {
	s.mu.RLock()
	c, ok := s.clients[clientID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrClientNotConnected, clientID)
	}
	return c.enqueue(update)
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := newClient(uuid.NewString(), conn, s.cfg.QueueSize, s.logger)
	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
	s.connections.Add(context.Background(), 1)
	s.logger.Info("Client connected", "client", c.id, "remote", r.RemoteAddr)

	go c.writeLoop(s.cfg.PingPeriod)
	s.readLoop(c)

	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()
	c.close()
	s.connections.Add(context.Background(), -1)

	removed := 0
	if s.streams != nil {
		removed = s.streams.RemoveClient(c.id)
	}
	s.logger.Info("Client disconnected", "client", c.id, "streams", removed)
}

// readLoop dispatches calls until the connection fails. Handler errors are
// answered with ok=false and never close the connection.
func (s *Server) readLoop(c *client) {
	c.conn.SetReadLimit(maxMessageSize)
	pongWait := s.cfg.PingPeriod * 10 / 9
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var call streaming.Call
		if err := c.conn.ReadJSON(&call); err != nil {
			var closeErr *ws.CloseError
			if errors.As(err, &closeErr) || errors.Is(err, net.ErrClosed) {
				return
			}
			if isDecodeError(err) {
				_ = c.enqueue(streaming.Result{Type: streaming.TypeResult, Error: fmt.Sprintf("malformed frame: %v", err)})
				continue
			}
			s.logger.Debug("WebSocket read error", "client", c.id, "error", err)
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		s.calls.Add(context.Background(), 1)

		if err := c.enqueue(s.call(c.id, call)); err != nil {
			s.logger.Warn("Disconnecting slow client", "client", c.id, "error", err)
			return
		}
	}
}

func (s *Server) call(clientID string, call streaming.Call) streaming.Result {
	res := streaming.Result{Type: streaming.TypeResult, ID: call.ID}
	if call.Type != streaming.TypeCall {
		res.Error = fmt.Sprintf("unsupported frame type %q", call.Type)
		return res
	}
	result, err := s.d.Dispatch(dispatcher.Event{
		Command:  call.Command,
		Args:     call.Args,
		ClientID: clientID,
	})
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.OK = true
	res.Result = result
	return res
}

func (s *Server) closeAll() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		c.close()
	}
}
