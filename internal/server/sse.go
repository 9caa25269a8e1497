package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/flamemarketdc-cyber/SErver-Builder/internal/event"
	"github.com/flamemarketdc-cyber/SErver-Builder/internal/logging"
)

// SSE event names used by the streaming endpoints.
const (
	SSEEventRun      = "run"
	SSEEventSnapshot = "snapshot"
	SSEEventResult   = "result"
	SSEEventError    = "error"
	SSEEventDelta    = "delta"
	SSEEventReply    = "reply"
	SSEEventMessage  = "message"
)

// SSEHeartbeatInterval is the default interval for SSE heartbeats.
const SSEHeartbeatInterval = 30 * time.Second

// sseWriter wraps http.ResponseWriter for SSE.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
}

// newSSEWriter creates a new SSE writer.
func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}
	return &sseWriter{w: w, flusher: flusher, rc: http.NewResponseController(w)}, nil
}

// startSSE sets the stream headers and flushes them. On failure an error
// response has already been written.
func startSSE(w http.ResponseWriter) (*sseWriter, bool) {
	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	sse.flush()
	return sse, true
}

func (s *sseWriter) flush() {
	if err := s.rc.Flush(); err != nil {
		s.flusher.Flush()
	}
}

// writeEvent writes data as a JSON SSE event.
func (s *sseWriter) writeEvent(eventType string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.writeRaw(eventType, jsonData)
}

func (s *sseWriter) writeRaw(eventType string, data []byte) error {
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", eventType, data); err != nil {
		return err
	}
	s.flush()
	return nil
}

// writeHeartbeat writes an SSE heartbeat comment.
func (s *sseWriter) writeHeartbeat() error {
	if _, err := fmt.Fprint(s.w, ": heartbeat\n\n"); err != nil {
		return err
	}
	s.flush()
	return nil
}

// allEvents streams every bus event as {"type","data"} JSON until the client
// goes away or the bus closes.
func (srv *Server) allEvents(w http.ResponseWriter, r *http.Request) {
	messages, err := srv.bus.Messages(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternalError, err.Error())
		return
	}

	sse, ok := startSSE(w)
	if !ok {
		return
	}

	connected, _ := json.Marshal(event.Event{Type: "server.connected", Data: map[string]any{}})
	if err := sse.writeRaw(SSEEventMessage, connected); err != nil {
		return
	}

	ticker := time.NewTicker(srv.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			err := sse.writeRaw(SSEEventMessage, msg.Payload)
			msg.Ack()
			if err != nil {
				logging.Debug().Err(err).Msg("event stream closed")
				return
			}
		case <-ticker.C:
			if err := sse.writeHeartbeat(); err != nil {
				return
			}
		}
	}
}
