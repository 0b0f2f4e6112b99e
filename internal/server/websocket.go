package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zeusync/planar/internal/core/models"
	"github.com/zeusync/planar/internal/core/observability/log"
)

// ClientSession is a connected websocket client.
type ClientSession struct {
	ID          string
	ConnectedAt time.Time

	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	// owned by the scene loop
	selected models.BodyID
	dragging models.BodyID
}

func newSession(conn *websocket.Conn, buffer int) *ClientSession {
	return &ClientSession{
		ID:          uuid.NewString(),
		ConnectedAt: time.Now(),
		conn:        conn,
		send:        make(chan []byte, buffer),
		done:        make(chan struct{}),
	}
}

func (c *ClientSession) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if atomic.LoadInt32(&s.running) == 0 {
		http.Error(w, ErrServerNotRunning.Error(), http.StatusServiceUnavailable)
		return
	}
	if int(atomic.LoadInt64(&s.clientCount)) >= s.config.MaxClients {
		s.logger.Warn("Maximum clients reached, rejecting connection", log.String("remote_addr", r.RemoteAddr))
		http.Error(w, ErrMaxClientsReached.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", log.String("remote_addr", r.RemoteAddr), log.Error(err))
		return
	}
	conn.SetReadLimit(s.config.ReadLimit)

	session := newSession(conn, s.config.SendBuffer)
	s.clients.Store(session.ID, session)
	atomic.AddInt64(&s.clientCount, 1)

	s.logger.Info("Client connected",
		log.String("client_id", session.ID),
		log.String("remote_addr", conn.RemoteAddr().String()),
		log.Int64("total_clients", atomic.LoadInt64(&s.clientCount)))

	go s.writePump(session)
	if s.submit(request{session: session, cmd: Command{Action: ActionState}}) {
		s.readPump(session)
	}

	s.clients.Delete(session.ID)
	atomic.AddInt64(&s.clientCount, -1)
	session.close()
	s.submit(request{session: session, leave: true})

	s.logger.Info("Client disconnected",
		log.String("client_id", session.ID),
		log.Int64("total_clients", atomic.LoadInt64(&s.clientCount)))
}

func (s *Server) readPump(session *ClientSession) {
	clientLogger := s.logger.With(log.String("client_id", session.ID))
	for {
		_, data, err := session.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				clientLogger.Warn("Failed to receive message", log.Error(err))
			}
			return
		}

		var cmd Command
		if err = json.Unmarshal(data, &cmd); err != nil {
			clientLogger.Debug("Failed to parse command", log.Error(err))
			s.sendTo(session, errorMessage(0, fmt.Errorf("%w: %v", ErrInvalidMessage, err)))
			continue
		}
		if isTextAction(cmd.Action) {
			s.handleText(session, cmd)
			continue
		}
		if !s.submit(request{session: session, cmd: cmd}) {
			return
		}
	}
}

func (s *Server) writePump(session *ClientSession) {
	for {
		select {
		case <-session.done:
			return
		case data := <-session.send:
			_ = session.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := session.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Debug("Failed to send message", log.String("client_id", session.ID), log.Error(err))
				session.close()
				return
			}
		}
	}
}

// sendTo queues msg for one client, dropping it when the client lags behind.
func (s *Server) sendTo(session *ClientSession, msg Message) {
	if session == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("Failed to encode message", log.String("type", msg.Type), log.Error(err))
		return
	}
	s.enqueue(session, data)
}

func (s *Server) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("Failed to encode message", log.String("type", msg.Type), log.Error(err))
		return
	}
	s.clients.Range(func(_, value any) bool {
		if session, ok := value.(*ClientSession); ok {
			s.enqueue(session, data)
		}
		return true
	})
}

func (s *Server) enqueue(session *ClientSession, data []byte) {
	select {
	case <-session.done:
	case session.send <- data:
	default:
		s.logger.Warn("Client send buffer full, dropping message", log.String("client_id", session.ID))
	}
}
