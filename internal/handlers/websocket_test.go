package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pimonitor/internal/bus"

	"github.com/gorilla/websocket"
)

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

type wsStateMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
	Data  struct {
		State StateResponse `json:"state"`
		HTML  string        `json:"html"`
	} `json:"data"`
}

func dialTestServer(t *testing.T, d *mockDashboard) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(newTestRouter(dashboardServices(d)))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readState(t *testing.T, conn *websocket.Conn) wsStateMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg wsStateMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestWebSocket_InitialStateAndPushOnChange(t *testing.T) {
	d := newMockDashboard()
	d.setState(scenarioState())
	conn := dialTestServer(t, d)

	msg := readState(t, conn)
	if msg.Type != msgTypeState || msg.Error != "" {
		t.Fatalf("unexpected envelope: %+v", msg)
	}
	if !strings.Contains(msg.Data.HTML, "21.5") || strings.Contains(msg.Data.HTML, "<!DOCTYPE html>") {
		t.Fatal("push must carry the rendered body only")
	}
	if msg.Data.State.Reading.Reading == nil || msg.Data.State.Reading.Reading.HumidityPercent != 45.2 {
		t.Fatalf("unexpected state: %+v", msg.Data.State)
	}

	st := scenarioState()
	st.Stream.Playing = false
	st.Stream.URL = ""
	d.setState(st)
	d.Announce(bus.EventStream, st.Stream)

	msg = readState(t, conn)
	if msg.Data.State.Stream.Playing || !strings.Contains(msg.Data.HTML, "Stream paused") {
		t.Fatal("change was not pushed")
	}
}

func TestWebSocket_VisibilityMessages(t *testing.T) {
	d := newMockDashboard()
	conn := dialTestServer(t, d)
	readState(t, conn)

	if err := conn.WriteJSON(wsClientMessage{Type: msgTypeVisibility, Hidden: true}); err != nil {
		t.Fatalf("write: %v", err)
	}
	hidden := eventually(func() bool {
		visible, ok := d.viewerVisible("viewer-1")
		return ok && !visible
	})
	if !hidden {
		t.Fatal("hidden message must mark the viewer hidden")
	}

	// garbage is ignored and the connection stays usable
	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.WriteJSON(wsClientMessage{Type: msgTypeVisibility, Hidden: false}); err != nil {
		t.Fatalf("write: %v", err)
	}
	shown := eventually(func() bool {
		visible, ok := d.viewerVisible("viewer-1")
		return ok && visible
	})
	if !shown {
		t.Fatal("visible message must mark the viewer visible")
	}
}

func TestWebSocket_CloseLeavesViewer(t *testing.T) {
	d := newMockDashboard()
	conn := dialTestServer(t, d)
	readState(t, conn)

	_ = conn.Close()
	if !eventually(func() bool { return d.leftViewers() == 1 }) {
		t.Fatal("closing the socket must remove the viewer")
	}
	if !eventually(func() bool { return d.bus.Len() == 0 }) {
		t.Fatal("closing the socket must unsubscribe from the bus")
	}
}

func TestDrain_EmptiesQueue(t *testing.T) {
	b := bus.New(nil)
	ch, unsub := b.Subscribe(4)
	defer unsub()
	b.Publish(bus.Event{Type: bus.EventReading})
	b.Publish(bus.Event{Type: bus.EventStream})

	drain(ch)
	if len(ch) != 0 {
		t.Fatalf("queue has %d events left", len(ch))
	}
}
