package handlers

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/EasterCompany/dex-voice-bridge/config"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocket upgrades /ws requests and feeds their frames to a Handler.
type WebSocket struct {
	handler  *Handler
	server   config.ServerConfig
	security config.SecurityConfig
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocket returns the websocket endpoint for h.
func NewWebSocket(h *Handler, server config.ServerConfig, security config.SecurityConfig, logger *zap.Logger) *WebSocket {
	ws := &WebSocket{
		handler:  h,
		server:   server,
		security: security,
		logger:   logger.With(zap.String("component", "websocket")),
	}
	ws.upgrader = websocket.Upgrader{CheckOrigin: ws.originAllowed}
	return ws
}

func (ws *WebSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !ws.authorized(r) {
		ws.logger.Warn("rejected connection", zap.String("remote", r.RemoteAddr))
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.logger.Warn("upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	if ws.server.MaxMessageBytes > 0 {
		conn.SetReadLimit(ws.server.MaxMessageBytes)
	}

	s := ws.handler.Connect(&wsConn{conn: conn, writeTimeout: ws.server.WriteTimeout()})
	defer ws.handler.Disconnect(s)
	ws.logger.Info("client connected", zap.String("client_id", s.ID), zap.String("remote", r.RemoteAddr))

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				ws.logger.Warn("read failed", zap.String("client_id", s.ID), zap.Error(err))
			}
			ws.logger.Info("client disconnected", zap.String("client_id", s.ID))
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		ws.handler.Message(s, data)
	}
}

func (ws *WebSocket) authorized(r *http.Request) bool {
	if !ws.security.APIKeyRequired {
		return true
	}
	key := strings.TrimSpace(r.Header.Get("X-API-Key"))
	if key == "" {
		key = strings.TrimSpace(r.URL.Query().Get("key"))
	}
	return key != "" && subtle.ConstantTimeCompare([]byte(key), []byte(ws.security.APIKey)) == 1
}

func (ws *WebSocket) originAllowed(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" || len(ws.server.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range ws.server.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// wsConn applies a write deadline to every outbound frame. Session serializes writers.
type wsConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (c *wsConn) WriteJSON(v any) error {
	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.conn.WriteJSON(v)
}

func (c *wsConn) Close() error {
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return c.conn.Close()
}
