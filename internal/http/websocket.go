package http

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"gnucashboard/internal/dashboard"
	"gnucashboard/internal/log"
	"gnucashboard/internal/sink"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Message types pushed to the browser.
const (
	messageSnapshot = "snapshot"
	messageUpdate   = "update"
	messageError    = "error"
)

type wsMessage struct {
	Type   string                `json:"type"`
	View   sink.View             `json:"view"`
	Sinks  map[string]sink.Entry `json:"sinks,omitempty"`
	Error  string                `json:"error,omitempty"`
	Status int                   `json:"status,omitempty"`
}

// checkOrigin accepts same-host requests, requests without an Origin header
// and the configured origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, allowed := range s.origins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// wsConn serialises writes; gorilla connections allow one writer at a time.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) send(msg wsMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

func (c *wsConn) control(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(messageType, data, time.Now().Add(writeWait))
}

// handleWebSocket pushes the view snapshot, then answers every action with
// the sinks it changed.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sess, view, err := s.sessionView(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	logger := log.FromContext(r.Context()).
		WithComponent(log.ComponentWebSocket).
		With(log.FieldSessionID, sess.ID, log.FieldView, string(view))

	raw, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed", log.FieldError, err)
		return
	}
	conn := &wsConn{conn: raw}
	defer raw.Close()
	logger.Info("WebSocket connected")

	done := make(chan struct{})
	defer close(done)
	go s.keepAlive(conn, done)

	snapshot, err := sess.Render(view)
	if err != nil {
		logger.Error("Render failed", log.FieldError, err)
		_ = conn.send(wsMessage{Type: messageError, View: view, Error: err.Error(), Status: statusFor(err)})
		return
	}
	if err := conn.send(wsMessage{Type: messageSnapshot, View: view, Sinks: snapshot}); err != nil {
		logger.Warn("WebSocket write failed", log.FieldError, err)
		return
	}

	raw.SetReadLimit(maxActionBytes)
	_ = raw.SetReadDeadline(time.Now().Add(pongWait))
	raw.SetPongHandler(func(string) error {
		return raw.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := raw.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("WebSocket closed unexpectedly", log.FieldError, err)
			} else {
				logger.Info("WebSocket disconnected")
			}
			return
		}
		msg := s.applyMessage(sess, view, data, logger)
		if err := conn.send(msg); err != nil {
			logger.Warn("WebSocket write failed", log.FieldError, err)
			return
		}
	}
}

func (s *Server) applyMessage(sess *dashboard.Session, view sink.View, data []byte, logger *log.Logger) wsMessage {
	act, err := decodeAction(data)
	if err == nil {
		var changed map[string]sink.Entry
		changed, err = sess.Apply(view, act)
		if err == nil {
			logger.Debug("Action applied", log.FieldAction, string(act.Type), log.FieldSinks, len(changed))
			return wsMessage{Type: messageUpdate, View: view, Sinks: changed}
		}
	}
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Action failed", log.FieldAction, string(act.Type), log.FieldError, err)
	}
	return wsMessage{Type: messageError, View: view, Error: err.Error(), Status: status}
}

// keepAlive pings the client and closes the connection on shutdown.
func (s *Server) keepAlive(conn *wsConn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-s.closing:
			_ = conn.control(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			_ = conn.conn.Close()
			return
		case <-ticker.C:
			if err := conn.control(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
