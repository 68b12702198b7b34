package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"vectra/internal/job"
	"vectra/internal/testsupport"
)

func dialStatusSocket(t *testing.T, ts *testServer, jobID string) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(ts.handler)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/status/" + jobID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestStatusSocketStreamsUntilTerminal(t *testing.T) {
	runner := &testsupport.StubRunner{Progress: []testsupport.ProgressStep{
		{Stage: "preprocess", Percent: 5},
		{Stage: "trace", Percent: 60},
	}}
	ts := newTestServer(t, runner)
	jobID := submitJob(t, ts)

	conn := dialStatusSocket(t, ts, jobID)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var last job.Snapshot
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				break
			}
			t.Fatalf("read: %v (last snapshot %+v)", err, last)
		}
		var snap job.Snapshot
		if err := json.Unmarshal(payload, &snap); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		if snap.JobID != jobID {
			t.Fatalf("frame for wrong job: %+v", snap)
		}
		if snap.Progress < last.Progress {
			t.Fatalf("progress regressed over socket: %d -> %d", last.Progress, snap.Progress)
		}
		last = snap
		if last.State == job.StateDone {
			// The server follows the terminal frame with a normal close.
			if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.Fatalf("expected normal close after terminal frame, got %v", err)
			}
			break
		}
	}
	if last.State != job.StateDone {
		t.Fatalf("final state over socket = %s, want done", last.State)
	}
}

func TestStatusSocketUnknownJobIs404(t *testing.T) {
	ts := newTestServer(t, &testsupport.StubRunner{})
	server := httptest.NewServer(ts.handler)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/status/missing"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial to fail for unknown job")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("handshake response = %+v", resp)
	}
}
