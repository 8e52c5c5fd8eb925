package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rawasy/aderlee/internal/core/domain"
	"github.com/rawasy/aderlee/internal/telemetry"
)

// ==============================================================================
// 1. WebSocket Configuration & Constants
// ==============================================================================

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. (We only stream OUT, so inbound is tiny).
	maxMessageSize = 512
)

// The Chi router's CORS middleware already validated the Origin header,
// and the auth middleware has verified the session before we get here.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ==============================================================================
// 2. The Handler Struct (Dependency Injection)
// ==============================================================================

type WatchHandler struct {
	Hub    *telemetry.Hub
	Logger *slog.Logger
}

func NewWatchHandler(hub *telemetry.Hub, logger *slog.Logger) *WatchHandler {
	return &WatchHandler{
		Hub:    hub,
		Logger: logger,
	}
}

// ==============================================================================
// 3. HTTP Methods (The Upgrader)
// ==============================================================================

// StreamChanges handles GET /api/v1/watch?name=db/password
//
// Clients receive a JSON change event for every mutation of the named
// secret; with no name (or "*") they watch the whole store. Events
// carry metadata only, never payloads.
func (h *WatchHandler) StreamChanges(w http.ResponseWriter, r *http.Request) {
	// 1. Extract the verified operator from the JWT Context
	if _, ok := r.Context().Value(domain.ClaimsContextKey).(*domain.VaultClaims); !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = telemetry.AllSecrets
	}

	// 2. Upgrade the HTTP connection to a full-duplex WebSocket connection
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Error("Failed to upgrade WebSocket connection",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return
	}

	// 3. Subscribe to the hub for this name's change feed.
	events := h.Hub.Subscribe(name)
	defer h.Hub.Unsubscribe(name, events)

	// 4. Hand off the connection to the concurrent pump managers.
	// The read pump only services control frames and disconnect
	// detection; the write pump streams events until the peer drops.
	go h.readPump(ws, name)
	h.writePump(ws, events, name)
}

// ==============================================================================
// 4. The Write Pump (Streaming Events Out)
// ==============================================================================

func (h *WatchHandler) writePump(ws *websocket.Conn, events <-chan telemetry.ChangeEvent, name string) {
	defer func() {
		ws.Close()
		h.Logger.Info("WebSocket write pump closed", slog.String("name", name))
	}()

	// Ticker for sending periodic Ping messages to ensure the client
	// hasn't silently dropped off
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			ws.SetWriteDeadline(time.Now().Add(writeWait))

			if !ok {
				// The hub closed our channel; the subscription is over.
				ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "Watch ended"))
				return
			}

			if err := ws.WriteJSON(event); err != nil {
				h.Logger.Error("Failed to write JSON to WebSocket",
					slog.String("name", name),
					slog.String("error", err.Error()),
				)
				return // Drop the connection if writing fails (e.g., broken pipe)
			}

		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return // Client disconnected, exit the loop
			}
		}
	}
}

// ==============================================================================
// 5. The Read Pump (Connection Keep-Alive)
// ==============================================================================

func (h *WatchHandler) readPump(ws *websocket.Conn, name string) {
	defer func() {
		ws.Close()
	}()

	ws.SetReadLimit(maxMessageSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))

	// Every time we receive a Pong from the client, we reset the deadline
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// The watch feed is one-way; we read only to process control
	// messages (Pong/Close) and detect disconnects.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.Logger.Warn("WebSocket closed unexpectedly",
					slog.String("name", name),
					slog.String("error", err.Error()),
				)
			}
			return
		}
	}
}
