package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"pimonitor/internal/bus"
	"pimonitor/internal/view"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = (pongWait * 9) / 10
	maxMsgSize    = 1 << 12 // 4 KB
	wsEventBuffer = 32

	msgTypeState      = "state"
	msgTypeVisibility = "visibility"
)

// Envelope used for WebSocket messages.
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// wsState is pushed on every change: the JSON state and the rendered #app body.
type wsState struct {
	State StateResponse `json:"state"`
	HTML  string        `json:"html,omitempty"`
}

// wsClientMessage is what the page sends; only visibility is understood.
type wsClientMessage struct {
	Type   string `json:"type"`
	Hidden bool   `json:"hidden"`
}

// Upgrader for HTTP -> WebSocket. The dashboard is served on a LAN from the same origin.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (h *Handler) wsConnect(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Errorw("ws_upgrade_failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	// Configure read limits and pong handler to extend read deadline.
	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	events, unsubscribe := h.services.Subscribe(wsEventBuffer)
	defer unsubscribe()

	viewer := h.services.JoinViewer()
	defer h.services.LeaveViewer(viewer)
	h.log.Debugw("ws_viewer_joined", "viewer_id", viewer)

	// Reader goroutine to handle visibility messages and detect disconnects.
	done := make(chan struct{})
	go h.startReader(conn, viewer, done)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	// Send initial state immediately.
	if err := h.sendState(conn); err != nil {
		h.log.Infow("ws_write_failed_initial", "err", err)
		return
	}

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.log.Infow("ws_ping_failed", "err", err)
				return
			}
		case _, ok := <-events:
			if !ok {
				return
			}
			drain(events)
			if err := h.sendState(conn); err != nil {
				h.log.Infow("ws_write_failed", "err", err)
				return
			}
		}
	}
}

// drain discards queued events; one push renders all of them.
func drain(events <-chan bus.Event) {
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// startReader applies visibility messages and closes done when the peer goes away.
func (h *Handler) startReader(conn *websocket.Conn, viewer string, done chan<- struct{}) {
	defer close(done)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			h.log.Infow("ws_read_closed", "viewer_id", viewer, "err", err)
			return
		}
		var msg wsClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.log.Debugw("ws_bad_message", "viewer_id", viewer, "err", err)
			continue
		}
		if msg.Type == msgTypeVisibility {
			h.services.SetViewerVisible(viewer, !msg.Hidden)
		}
	}
}

// sendState renders the current state and writes it with a write deadline.
func (h *Handler) sendState(conn *websocket.Conn) error {
	st := h.currentState()
	html, err := view.RenderBody(view.BuildPage(st.DashboardState, st.Expanded))
	if err != nil {
		h.log.Errorw("ws_render_failed", "err", err)
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(wsEnvelope{Type: msgTypeState, Data: wsState{State: st}, Error: errRenderFailed})
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(wsEnvelope{Type: msgTypeState, Data: wsState{State: st, HTML: html}})
}
