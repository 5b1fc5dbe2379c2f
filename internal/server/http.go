package server

import (
	"crypto/subtle"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/muurk/garagectl/internal/command"
	"github.com/muurk/garagectl/internal/logging"
	"github.com/muurk/garagectl/internal/telemetry"
	"go.uber.org/zap"
)

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/", s.bearerAuth)
	{
		for _, cmd := range command.All {
			api.POST("/"+cmd.String(), s.commandHandler(cmd))
		}
		api.GET("/"+telemetry.WatchPath, s.watch)
	}
	return router
}

func requestLogger(c *gin.Context) {
	start := time.Now()
	c.Next()
	logging.Debug("HTTP request",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("elapsed", time.Since(start)),
		zap.String("remote_addr", c.ClientIP()),
	)
}

func (s *Server) bearerAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "missing Authorization header",
		})
		return
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid Authorization header format",
		})
		return
	}

	if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(s.config.APIKey)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid API key",
		})
		return
	}
	c.Next()
}

func (s *Server) commandHandler(cmd command.Command) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch cmd {
		case command.Open:
			s.door.Open()
		case command.Close:
			s.door.Close()
		case command.Toggle:
			s.door.Toggle()
		}
		logging.Info("Command received",
			zap.String("command", cmd.String()),
			zap.String("remote_addr", c.ClientIP()),
		)
		c.JSON(http.StatusOK, s.door.Status())
	}
}

func (s *Server) watch(c *gin.Context) {
	if websocket.IsWebSocketUpgrade(c.Request) {
		s.watchWebSocket(c)
		return
	}
	s.watchSSE(c)
}

func (s *Server) watchSSE(c *gin.Context) {
	s.wg.Add(1)
	defer s.wg.Done()

	// Subscribe before reading the initial value so no change is lost
	updates, cancel := s.door.Subscribe()
	defer cancel()

	keepAlive := time.NewTicker(s.config.KeepAlive)
	defer keepAlive.Stop()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	ctx := c.Request.Context()
	initial := true
	c.Stream(func(w io.Writer) bool {
		if initial {
			initial = false
			return s.sendEvent(c, s.door.Status())
		}
		select {
		case <-ctx.Done():
			return false
		case <-s.done:
			return false
		case ev := <-updates:
			return s.sendEvent(c, ev)
		case <-keepAlive.C:
			_, err := io.WriteString(w, ": keep-alive\n\n")
			return err == nil
		}
	})
}

func (s *Server) sendEvent(c *gin.Context, ev telemetry.StatusEvent) bool {
	data, err := telemetry.Encode(ev)
	if err != nil {
		logging.Error("Failed to encode status", zap.Error(err))
		return false
	}
	c.SSEvent("message", string(data))
	return true
}
