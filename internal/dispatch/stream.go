package dispatch

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/zrfleet/depotsim/pkg/streaming"
)

const (
	streamSendChSize = 256
	maxReconnect     = 10
	maxBackoff       = 30 * time.Second
	writeWait        = 10 * time.Second
)

// Stream subscribes to the authority's WebSocket push channel and routes
// route_dispatch messages into the service's callback registry. A single
// write goroutine owns the connection; reads and reconnects run beside it.
type Stream struct {
	mu     sync.Mutex
	conn   *ws.Conn
	sendCh chan []byte
	done   chan struct{} // closed on shutdown
	closed bool

	wsURL   string
	secret  string
	depotID string

	// Cached subscribe message for reconnect replay.
	cachedSubscribe []byte

	service *Service
	logger  *slog.Logger
}

// NewStream creates a stream subscriber feeding the given service.
func NewStream(service *Service, depotID string, logger *slog.Logger) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stream{
		sendCh:  make(chan []byte, streamSendChSize),
		done:    make(chan struct{}),
		depotID: depotID,
		service: service,
		logger:  logger,
	}
}

// Connect dials the stream, sends the subscribe message, and starts the
// read/write loops.
func (s *Stream) Connect(rawURL, secret string) error {
	s.wsURL = rawURL
	s.secret = secret

	conn, err := s.dialOnce()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(streaming.SubscribePayload{
		DepotID: s.depotID,
		Secret:  secret,
	})
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to marshal subscribe payload: %w", err)
	}
	sub, err := json.Marshal(streaming.Envelope{
		Type:    streaming.TypeSubscribe,
		Payload: payload,
	})
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to marshal subscribe envelope: %w", err)
	}

	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to set subscribe deadline: %w", err)
	}
	if err := conn.WriteMessage(ws.TextMessage, sub); err != nil {
		_ = conn.Close()
		return fmt.Errorf("subscribe failed: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.cachedSubscribe = sub
	s.mu.Unlock()

	go s.writeLoop()
	go s.readLoop()

	return nil
}

// dialOnce performs a single WebSocket dial with the secret query param.
func (s *Stream) dialOnce() (*ws.Conn, error) {
	u, err := url.Parse(s.wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid stream URL: %w", err)
	}
	q := u.Query()
	q.Set("secret", s.secret)
	u.RawQuery = q.Encode()

	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("stream dial failed: %w", err)
	}
	return conn, nil
}

// PublishDepotStatus pushes a depot snapshot to the authority,
// best-effort. Dropped when the send channel is full.
func (s *Stream) PublishDepotStatus(status streaming.DepotStatusPayload) {
	payload, err := json.Marshal(status)
	if err != nil {
		s.logger.Warn("Failed to marshal depot status", "error", err)
		return
	}
	data, err := json.Marshal(streaming.Envelope{
		Type:    streaming.TypeDepotStatus,
		Payload: payload,
	})
	if err != nil {
		s.logger.Warn("Failed to marshal depot status envelope", "error", err)
		return
	}

	select {
	case s.sendCh <- data:
	default:
		s.logger.Warn("Stream send channel full, dropping depot status")
	}
}

// writeLoop drains sendCh and writes messages to the WebSocket.
// Only one writeLoop runs at a time; it returns on error or shutdown.
func (s *Stream) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case data := <-s.sendCh:
			s.mu.Lock()
			conn := s.conn
			s.mu.Unlock()

			if conn == nil {
				continue
			}

			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				s.logger.Warn("Stream SetWriteDeadline error", "error", err)
				go s.reconnect()
				return
			}
			if err := conn.WriteMessage(ws.TextMessage, data); err != nil {
				s.logger.Warn("Stream write error", "error", err)
				go s.reconnect()
				return
			}
		}
	}
}

// readLoop reads pushed envelopes and dispatches route assignments.
func (s *Stream) readLoop() {
	for {
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()

		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			s.logger.Warn("Stream read error", "error", err)
			go s.reconnect()
			return
		}

		s.handleMessage(message)
	}
}

// handleMessage decodes one pushed envelope. Unknown types are logged at
// debug and skipped.
func (s *Stream) handleMessage(message []byte) {
	var env streaming.Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		s.logger.Debug("Undecodable stream message", "raw", string(message))
		return
	}

	switch env.Type {
	case streaming.TypeAck:
		// Subscribe acks carry no work.
	case streaming.TypeRouteDispatch:
		var push streaming.RouteDispatchPayload
		if err := json.Unmarshal(env.Payload, &push); err != nil {
			s.logger.Warn("Malformed route_dispatch payload", "error", err)
			return
		}
		if push.VehicleID == "" || len(push.Route.Coordinates) < 2 {
			s.logger.Warn("Rejecting route_dispatch push",
				"vehicle", push.VehicleID,
				"route", push.Route.RouteID,
				"points", len(push.Route.Coordinates))
			return
		}
		route := push.Route
		s.logger.Info("Route assignment pushed over stream",
			"vehicle", push.VehicleID,
			"route", route.RouteID)
		s.service.DeliverRoute(push.VehicleID, &route)
	default:
		s.logger.Debug("Ignoring stream message", "type", env.Type)
	}
}

// reconnect re-establishes the connection with exponential backoff. On
// success it replays the cached subscribe message and restarts the loops.
func (s *Stream) reconnect() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.mu.Unlock()

	backoff := time.Second
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		select {
		case <-s.done:
			return
		default:
		}

		s.logger.Info("Reconnecting to dispatch stream", "attempt", attempt, "backoff", backoff)
		time.Sleep(backoff)

		conn, err := s.dialOnce()
		if err != nil {
			s.logger.Warn("Stream reconnect dial failed", "attempt", attempt, "error", err)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		s.mu.Lock()
		s.conn = conn
		cached := s.cachedSubscribe
		s.mu.Unlock()

		// Replay subscribe so the server knows which depot this is.
		if cached != nil {
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				s.logger.Warn("Failed to set deadline for subscribe replay", "error", err)
				_ = conn.Close()
				continue
			}
			if err := conn.WriteMessage(ws.TextMessage, cached); err != nil {
				s.logger.Warn("Failed to replay subscribe after reconnect", "error", err)
				_ = conn.Close()
				continue
			}
		}

		s.logger.Info("Dispatch stream reconnected", "attempt", attempt)
		go s.writeLoop()
		go s.readLoop()
		return
	}

	s.logger.Error("Stream reconnect failed after max attempts", "maxAttempts", maxReconnect)
}

// Close sends a close frame and shuts down all goroutines.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		_ = conn.WriteMessage(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		)
		return conn.Close()
	}
	return nil
}
