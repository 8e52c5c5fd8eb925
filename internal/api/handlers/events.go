package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rawasy/aderlee/internal/core/domain"
	"github.com/rawasy/aderlee/internal/telemetry"
)

// heartbeatPeriod keeps idle streams alive through proxies that reap
// quiet connections.
const heartbeatPeriod = 25 * time.Second

// EventsHandler relays secret change events over Server-Sent Events for
// clients that cannot hold a WebSocket open (curl, EventSource behind
// strict proxies).
type EventsHandler struct {
	Hub    *telemetry.Hub
	Logger *slog.Logger
}

func NewEventsHandler(hub *telemetry.Hub, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{Hub: hub, Logger: logger}
}

// StreamEvents handles GET /api/v1/events?name=db/password as an SSE
// stream. Without a name (or with "*") the stream covers the whole
// store. The gateway timeout bounds each connection; the retry hint
// makes EventSource reconnect transparently, so a stream is a series
// of segments rather than one eternal socket.
func (h *EventsHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	if _, ok := r.Context().Value(domain.ClaimsContextKey).(*domain.VaultClaims); !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = telemetry.AllSecrets
	}

	// --- 1. SSE Headers ---
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	fmt.Fprint(w, "retry: 3000\n\n")
	flusher.Flush()

	events := h.Hub.Subscribe(name)
	defer h.Hub.Unsubscribe(name, events)

	h.Logger.Info("🌐 SSE stream opened", slog.String("name", name), slog.String("remote", r.RemoteAddr))

	heartbeat := time.NewTicker(heartbeatPeriod)
	defer heartbeat.Stop()

	ctx := r.Context()

	// --- 2. Continuous Relay Loop ---
	for {
		select {
		case <-ctx.Done():
			h.Logger.Info("SSE stream closed", slog.String("name", name))
			return

		case event, open := <-events:
			if !open {
				fmt.Fprint(w, "data: [SYSTEM] Stream terminated\n\n")
				flusher.Flush()
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				h.Logger.Warn("Failed to write SSE frame", slog.String("name", name), slog.Any("error", err))
				return
			}
			flusher.Flush()

		case <-heartbeat.C:
			// Comment frame per the SSE wire format; clients discard it.
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
