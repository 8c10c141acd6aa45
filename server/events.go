package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/feedwatch/pkg/state"
)

const eventsBuffer = 256

// sseEvent is the data of a single server-sent event
type sseEvent struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// eventsHandler streams state changes as server-sent events. The stream starts with
// a "snapshot" event holding all values, followed by one event per state mutation
// named after the mutated path.
func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		lgr.Printf("[WARN] can't reset write deadline for events: %v", err)
	}

	events := make(chan state.Event, eventsBuffer)
	unsubscribe := s.state.Subscribe(state.PathRoot, func(e state.Event) {
		select {
		case events <- e:
		default:
			lgr.Printf("[WARN] events client is too slow, dropped change of %q", e.Path)
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, "snapshot", s.state.Snapshot()); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		lgr.Printf("[WARN] streaming not supported: %v", err)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-events:
			if err := writeEvent(w, eventName(e.Path), sseEvent{Path: e.Path, Value: e.New}); err != nil {
				lgr.Printf("[DEBUG] events client gone: %v", err)
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", name, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload); err != nil {
		return fmt.Errorf("write event %s: %w", name, err)
	}
	return nil
}

func eventName(path string) string {
	if path == state.PathRoot {
		return "root"
	}
	return path
}
