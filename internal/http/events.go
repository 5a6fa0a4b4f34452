package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"pocketmoney/internal/core"
	"pocketmoney/internal/log"
)

const (
	eventBuffer    = 32
	eventKeepAlive = 25 * time.Second
)

// handleEvents streams household changes as server-sent events. With
// ?account_id= only changes for that account are sent.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		ErrorResponse(http.StatusInternalServerError, "streaming unsupported").Write(w)
		return
	}
	filter := core.AccountID(r.URL.Query().Get("account_id"))

	changes, cancel := s.household.Subscribe(eventBuffer)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(eventKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.streams:
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case c, open := <-changes:
			if !open {
				return
			}
			if filter != "" && c.AccountID != filter {
				continue
			}
			data, err := json.Marshal(c)
			if err != nil {
				log.FromContext(r.Context()).LogError(r.Context(), "failed to encode change", err, log.OpRead, nil)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", c.Type, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
