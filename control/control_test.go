package control

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/GrainArc/vtsclient/model"
	"github.com/GrainArc/vtsclient/rescache"
	"github.com/GrainArc/vtsclient/traverse"
)

func newTestServer(t *testing.T, reload func() error) (*Server, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cache := rescache.New(0, 0)
	s := New(cache, reload)
	r := gin.New()
	s.Register(r)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return s, ts
}

func TestHandleStatsReturnsCacheSnapshot(t *testing.T) {
	s, ts := newTestServer(t, nil)
	s.cache.Get("http://x/a", model.KindRawBuffer)

	resp, err := http.Get(ts.URL + "/control/stats")
	if err != nil {
		t.Fatalf("GET /control/stats: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Resources != 1 {
		t.Fatalf("Resources = %d, want 1", got.Resources)
	}
}

func TestHandlePurgeResetsNonReadyResources(t *testing.T) {
	s, ts := newTestServer(t, nil)
	r := s.cache.Get("http://x/pending", model.KindRawBuffer)
	r.MarkDownloading(0)
	r.MarkTransientFailure(0, 10, errors.New("boom"))

	resp, err := http.Post(ts.URL+"/control/purge", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /control/purge: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if r.State() != model.Initializing {
		t.Fatalf("resource state after purge = %v, want Initializing", r.State())
	}
}

func TestHandleReloadWithoutCallbackReturns501(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp, err := http.Post(ts.URL+"/control/reload", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /control/reload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", resp.StatusCode)
	}
}

func TestHandleReloadPropagatesError(t *testing.T) {
	_, ts := newTestServer(t, func() error { return errors.New("reload failed") })
	resp, err := http.Post(ts.URL+"/control/reload", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /control/reload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
}

func TestHandleReloadSuccess(t *testing.T) {
	called := false
	_, ts := newTestServer(t, func() error { called = true; return nil })
	resp, err := http.Post(ts.URL+"/control/reload", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /control/reload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !called {
		t.Fatalf("reload callback was never invoked")
	}
}

func TestWebsocketReceivesInitialSnapshotThenBroadcast(t *testing.T) {
	s, ts := newTestServer(t, nil)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/control/ws"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var initial map[string]any
	if err := conn.ReadJSON(&initial); err != nil {
		t.Fatalf("read initial snapshot: %v", err)
	}

	// give the server a moment to register the connection before publishing
	time.Sleep(50 * time.Millisecond)
	s.PublishFrame(traverse.Statistics{MetaNodesTraversedTotal: 42})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame map[string]any
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read broadcast frame: %v", err)
	}
	if frame["metaNodesTraversed"].(float64) != 42 {
		t.Fatalf("metaNodesTraversed = %v, want 42", frame["metaNodesTraversed"])
	}
}
