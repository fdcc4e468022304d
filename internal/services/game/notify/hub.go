package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/websocket"
	"golang.org/x/time/rate"
)

const (
	frameSubscribe    = "session.subscribe"
	frameUnsubscribe  = "session.unsubscribe"
	frameSubscribed   = "session.subscribed"
	frameUnsubscribed = "session.unsubscribed"
	frameChanged      = "session.changed"
	frameError        = "session.error"

	maxFramePayloadBytes   = 4 * 1024
	maxDecodeErrorsPerConn = 3

	defaultFramesPerSecond = 10
	defaultFrameBurst      = 20
	defaultWriteTimeout    = 5 * time.Second
)

type wsFrame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type subscribePayload struct {
	SessionID string `json:"session_id"`
}

// ChangedPayload is the body of a session.changed frame.
type ChangedPayload struct {
	SessionID string `json:"session_id"`
	Revision  int64  `json:"revision"`
}

type wsErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HubOptions tune per-connection frame limits.
type HubOptions struct {
	FramesPerSecond float64
	Burst           int
	// WriteTimeout bounds each outbound frame so a stalled peer cannot hold
	// up Publish.
	WriteTimeout time.Duration
}

// Hub keeps one room of websocket peers per session and pushes
// session.changed frames to them.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[*wsPeer]struct{}

	framesPerSecond rate.Limit
	burst           int
	writeTimeout    time.Duration
}

var _ Publisher = (*Hub)(nil)

// NewHub returns an empty hub.
func NewHub(opts HubOptions) *Hub {
	if opts.FramesPerSecond <= 0 {
		opts.FramesPerSecond = defaultFramesPerSecond
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultFrameBurst
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	return &Hub{
		rooms:           make(map[string]map[*wsPeer]struct{}),
		framesPerSecond: rate.Limit(opts.FramesPerSecond),
		burst:           opts.Burst,
		writeTimeout:    opts.WriteTimeout,
	}
}

// Publish sends a session.changed frame to every subscriber of sessionID.
// Peers that cannot be written to are dropped from the room.
func (h *Hub) Publish(ctx context.Context, sessionID string, revision int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	frame := wsFrame{Type: frameChanged, Payload: mustJSON(ChangedPayload{SessionID: sessionID, Revision: revision})}
	for _, peer := range h.subscribers(sessionID) {
		if err := peer.writeFrame(frame); err != nil {
			log.Printf("notify: drop peer from session=%s: %v", sessionID, err)
			h.leave(sessionID, peer)
		}
	}
	return nil
}

// Subscribers returns how many peers watch sessionID.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[sessionID])
}

func (h *Hub) subscribers(sessionID string) []*wsPeer {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[sessionID]
	peers := make([]*wsPeer, 0, len(room))
	for peer := range room {
		peers = append(peers, peer)
	}
	return peers
}

func (h *Hub) join(sessionID string, peer *wsPeer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[sessionID]
	if !ok {
		room = make(map[*wsPeer]struct{})
		h.rooms[sessionID] = room
	}
	room[peer] = struct{}{}
}

func (h *Hub) leave(sessionID string, peer *wsPeer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[sessionID]
	delete(room, peer)
	if len(room) == 0 {
		delete(h.rooms, sessionID)
	}
}

// Handler serves the websocket endpoint at /ws and a liveness probe at /up.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	wsHandler := websocket.Handler(h.serveConn)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		wsHandler.ServeHTTP(w, r)
	})
	return mux
}

type writeDeadliner interface {
	io.Writer
	SetWriteDeadline(time.Time) error
}

type wsPeer struct {
	mu      sync.Mutex
	conn    writeDeadliner
	encoder *json.Encoder
	timeout time.Duration
}

func newPeer(conn writeDeadliner, timeout time.Duration) *wsPeer {
	return &wsPeer{conn: conn, encoder: json.NewEncoder(conn), timeout: timeout}
}

func (p *wsPeer) writeFrame(frame wsFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.conn.SetWriteDeadline(time.Now().Add(p.timeout)); err != nil {
		return err
	}
	return p.encoder.Encode(frame)
}

func (h *Hub) serveConn(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	decoder := json.NewDecoder(conn)
	peer := newPeer(conn, h.writeTimeout)
	limiter := rate.NewLimiter(h.framesPerSecond, h.burst)
	subscribed := map[string]struct{}{}
	defer func() {
		for sessionID := range subscribed {
			h.leave(sessionID, peer)
		}
	}()

	decodeErrors := 0
	for {
		var frame wsFrame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			_ = writeWSError(peer, "", "INVALID_ARGUMENT", "invalid frame payload")
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		if !limiter.Allow() {
			_ = writeWSError(peer, frame.RequestID, "RESOURCE_EXHAUSTED", "rate limit exceeded")
			return
		}
		if len(frame.Payload) > maxFramePayloadBytes {
			_ = writeWSError(peer, frame.RequestID, "INVALID_ARGUMENT", "payload too large")
			continue
		}

		switch frame.Type {
		case frameSubscribe, frameUnsubscribe:
			var payload subscribePayload
			if err := json.Unmarshal(frame.Payload, &payload); err != nil {
				_ = writeWSError(peer, frame.RequestID, "INVALID_ARGUMENT", "invalid subscribe payload")
				continue
			}
			sessionID := strings.TrimSpace(payload.SessionID)
			if sessionID == "" {
				_ = writeWSError(peer, frame.RequestID, "INVALID_ARGUMENT", "session_id is required")
				continue
			}
			ack := frameSubscribed
			if frame.Type == frameSubscribe {
				h.join(sessionID, peer)
				subscribed[sessionID] = struct{}{}
			} else {
				h.leave(sessionID, peer)
				delete(subscribed, sessionID)
				ack = frameUnsubscribed
			}
			_ = peer.writeFrame(wsFrame{
				Type:      ack,
				RequestID: frame.RequestID,
				Payload:   mustJSON(subscribePayload{SessionID: sessionID}),
			})
		default:
			_ = writeWSError(peer, frame.RequestID, "INVALID_ARGUMENT", "unsupported frame type")
		}
	}
}

func writeWSError(peer *wsPeer, requestID string, code string, message string) error {
	return peer.writeFrame(wsFrame{
		Type:      frameError,
		RequestID: requestID,
		Payload:   mustJSON(wsErrorPayload{Code: code, Message: message}),
	})
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("notify: marshal websocket frame payload: %v", err)
		return nil
	}
	return b
}
