package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/LeventeLantos/freesms-notify/internal/events"
)

const subscriberBuffer = 16

// Events streams status updates as server-sent events until the client
// goes away. ?entry_id= restricts the stream to one account.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal", "streaming unsupported")
		return
	}

	sub := &events.Subscriber{
		ID:      uuid.NewString(),
		EntryID: r.URL.Query().Get("entry_id"),
		Events:  make(chan events.StatusEvent, subscriberBuffer),
	}
	h.hub.Subscribe(sub)
	defer h.hub.Unsubscribe(sub.ID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-sub.Events:
			if !ok {
				return
			}
			b, err := json.Marshal(ev)
			if err != nil {
				h.logger.Error("encode status event", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, b); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
