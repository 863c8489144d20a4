package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/model"
)

func dialHub(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	up := NewUpgrader(nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		h.Serve(conn)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("viewer never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) FeedEvent {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev FeedEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	return ev
}

func TestHubDeliversResultEvents(t *testing.T) {
	h := NewHub(nil, "", zerolog.Nop())
	conn := dialHub(t, h)

	h.ResultAppended(model.Result{ID: 9, StudentName: "Ann", Score: 1, Total: 2, Percent: 50})
	ev := readEvent(t, conn)
	if ev.Event != EventResultAppended || ev.Result == nil || ev.Result.ID != 9 || ev.Result.StudentName != "Ann" {
		t.Errorf("appended event = %+v", ev)
	}

	h.ResultDeleted(9)
	if ev := readEvent(t, conn); ev.Event != EventResultDeleted || ev.ID != 9 {
		t.Errorf("deleted event = %+v", ev)
	}

	h.ResultsCleared()
	if ev := readEvent(t, conn); ev.Event != EventResultsCleared {
		t.Errorf("cleared event = %+v", ev)
	}
}

func TestHubForgetsClosedViewers(t *testing.T) {
	h := NewHub(nil, "", zerolog.Nop())
	conn := dialHub(t, h)
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("closed viewer still registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	// Publishing with no viewers must not block or panic.
	h.ResultsCleared()
}

func TestFeedEventJSON(t *testing.T) {
	b, _ := json.Marshal(FeedEvent{Event: EventResultsCleared})
	if string(b) != `{"event":"results_cleared"}` {
		t.Errorf("json = %s", b)
	}
}

func TestUpgraderOriginCheck(t *testing.T) {
	up := NewUpgrader([]string{"http://teacher.local"})
	r := httptest.NewRequest(http.MethodGet, "/ws/results", nil)
	r.Header.Set("Origin", "http://evil.example")
	if up.CheckOrigin(r) {
		t.Error("foreign origin accepted")
	}
	r.Header.Set("Origin", "http://TEACHER.local")
	if !up.CheckOrigin(r) {
		t.Error("allowed origin rejected")
	}
}
