package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/remoterelay/internal/device"
	"github.com/muurk/remoterelay/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	// States buffered per stream; older ones are dropped when a client lags
	streamBuffer = 16
)

// handleEvents streams device.State snapshots as JSON text messages: the
// current state first, then one message per change.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	updates := make(chan device.State, streamBuffer)
	var (
		cancel  func()
		current device.State
	)
	err := s.loop.Do(r.Context(), func(c *device.Context) error {
		current = c.Orchestrator.Snapshot()
		cancel = c.Orchestrator.Subscribe(func(st device.State) {
			select {
			case updates <- st:
			default:
			}
		})
		return nil
	})
	if err != nil {
		s.unavailable(w, err)
		return
	}
	defer cancel()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}
	remoteAddr := r.RemoteAddr
	logging.LogConnection(remoteAddr, "websocket_upgraded")

	s.mu.Lock()
	s.streams[conn] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.streams, conn)
		s.mu.Unlock()
		_ = conn.Close()
		logging.LogConnection(remoteAddr, "websocket_closed")
		s.wg.Done()
	}()

	closed := make(chan struct{})
	go s.readPump(conn, closed)

	if err := s.send(conn, remoteAddr, current); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case st := <-updates:
			if err := s.send(conn, remoteAddr, st); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) send(conn *websocket.Conn, remoteAddr string, st device.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Debug("Event stream write failed", zap.String("remote_addr", remoteAddr), zap.Error(err))
		return err
	}
	logging.LogWebSocketMessage(remoteAddr, "sent", websocket.TextMessage, data)
	return nil
}

// readPump discards client messages and closes done when the peer goes
// away. It keeps the pong handler running.
func (s *Server) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
