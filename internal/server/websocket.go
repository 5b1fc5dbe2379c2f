package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/muurk/garagectl/internal/logging"
	"github.com/muurk/garagectl/internal/telemetry"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 12
)

var upgrader = websocket.Upgrader{
	// Local simulator; any origin may watch
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) watchWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	remoteAddr := conn.RemoteAddr().String()

	s.wg.Add(1)
	s.track(remoteAddr, conn)
	defer func() {
		s.untrack(remoteAddr)
		_ = conn.Close()
		s.wg.Done()
		logging.Debug("Watch connection closed", zap.String("remote_addr", remoteAddr))
	}()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Drain control frames and detect the peer going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	updates, cancel := s.door.Subscribe()
	defer cancel()

	if err := writeStatus(conn, s.door.Status()); err != nil {
		logging.Debug("Initial status write failed", zap.Error(err))
		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case <-s.done:
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case ev := <-updates:
			if err := writeStatus(conn, ev); err != nil {
				logging.Debug("Status write failed", zap.Error(err))
				return
			}
		}
	}
}

func writeStatus(conn *websocket.Conn, ev telemetry.StatusEvent) error {
	data, err := telemetry.Encode(ev)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}
