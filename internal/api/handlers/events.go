package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Fantasim/crowdfund/internal/config"
	"github.com/Fantasim/crowdfund/internal/db"
	"github.com/Fantasim/crowdfund/internal/events"
	"github.com/Fantasim/crowdfund/internal/httputil"
)

// SSEEvents handles GET /api/events. On connect the client receives the
// latest sync run as a sync_state event, then live hub events.
func SSEEvents(hub *events.Hub, database *db.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			slog.Error("SSE not supported: response writer does not implement http.Flusher")
			httputil.Error(w, http.StatusInternalServerError, config.ErrorStreamUnsupported, "streaming not supported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		ch := hub.Subscribe()
		defer func() {
			hub.Unsubscribe(ch)
			slog.Info("SSE client disconnected", "remoteAddr", r.RemoteAddr)
		}()

		slog.Info("SSE client connected",
			"remoteAddr", r.RemoteAddr,
			"totalClients", hub.ClientCount(),
		)

		run, err := database.LatestSyncRun()
		if err != nil {
			slog.Warn("failed to load sync state for SSE snapshot", "error", err)
		} else if run != nil {
			writeEvent(w, events.Event{Type: config.EventSyncState, Data: run})
			flusher.Flush()
		}

		keepAlive := time.NewTicker(config.SSEKeepAliveInterval)
		defer keepAlive.Stop()

		for {
			select {
			case event, ok := <-ch:
				if !ok {
					slog.Info("SSE channel closed, ending stream", "remoteAddr", r.RemoteAddr)
					return
				}
				writeEvent(w, event)
				flusher.Flush()

			case <-keepAlive.C:
				fmt.Fprint(w, ": keepalive\n\n")
				flusher.Flush()

			case <-r.Context().Done():
				slog.Debug("SSE client context done",
					"remoteAddr", r.RemoteAddr,
					"reason", r.Context().Err(),
				)
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, event events.Event) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		slog.Error("failed to marshal SSE event data", "type", event.Type, "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
}
