package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/facewatch/facewatch/internal/activity"
)

// sseKeepAliveInterval is how often a comment line is written to keep idle
// SSE connections from being cut by proxies.
const sseKeepAliveInterval = 30 * time.Second

// ActivityHandler streams live recognition events over SSE.
type ActivityHandler struct {
	hub *activity.Hub
}

// NewActivityHandler creates a new activity handler.
func NewActivityHandler(hub *activity.Hub) *ActivityHandler {
	return &ActivityHandler{hub: hub}
}

// Events streams recognition events to the client until it disconnects.
// Slow clients are dropped by the hub rather than stalling other observers.
func (h *ActivityHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sub := h.hub.Subscribe()
	defer h.hub.Drop(sub)

	sendSSEEvent(w, flusher, "connected", map[string]string{"status": "listening"})

	keepAlive := time.NewTicker(sseKeepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				// Hub dropped us as a slow observer.
				return
			}
			sendSSEEvent(w, flusher, "recognition", event)
		case <-keepAlive.C:
			_, _ = io.WriteString(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}

// sendSSEEvent writes a single server-sent event and flushes it.
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	jsonData, _ := json.Marshal(data)
	_, _ = io.WriteString(w, "event: "+eventType+"\n")
	_, _ = io.WriteString(w, "data: ")
	_, _ = io.Copy(w, bytes.NewReader(jsonData))
	_, _ = io.WriteString(w, "\n\n")
	flusher.Flush()
}
