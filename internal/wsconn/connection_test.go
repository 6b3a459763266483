package wsconn

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func createTestWebSocketConnection(t *testing.T) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial test websocket server: %v", err)
	}
	return conn
}

func TestNew_SetsID(t *testing.T) {
	raw := createTestWebSocketConnection(t)
	defer raw.Close()

	c := New("conn-1", raw, time.Second)
	defer c.Close()

	if c.ID() != "conn-1" {
		t.Errorf("ID() = %q, want conn-1", c.ID())
	}
	if c.Raw() != raw {
		t.Error("Raw() did not return the wrapped connection")
	}
}

func TestWriteJSON_SucceedsOnOpenConnection(t *testing.T) {
	raw := createTestWebSocketConnection(t)
	defer raw.Close()

	c := New("conn-2", raw, time.Second)
	defer c.Close()

	if err := c.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Errorf("WriteJSON failed: %v", err)
	}
}

func TestCloseWithCode_IsIdempotent(t *testing.T) {
	raw := createTestWebSocketConnection(t)
	defer raw.Close()

	c := New("conn-3", raw, time.Second)

	if err := c.Close(); err != nil {
		t.Errorf("first Close failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got: %v", err)
	}
}

func TestWriteJSON_AfterCloseReturnsError(t *testing.T) {
	raw := createTestWebSocketConnection(t)
	defer raw.Close()

	c := New("conn-4", raw, time.Second)
	c.Close()
	time.Sleep(10 * time.Millisecond)

	// The writer goroutine has exited, so the outbound buffer no longer
	// drains; a handful of sends may still land in the buffer before
	// the closed-done case is selected, so retry until one fails.
	sawError := false
	for i := 0; i < outboundBufferSize+5; i++ {
		if err := c.WriteJSON(map[string]string{"type": "ping"}); err != nil {
			sawError = true
			break
		}
	}
	if !sawError {
		t.Error("expected WriteJSON to eventually fail after Close")
	}
}

func TestWriteJSON_ConcurrentWritesDoNotRace(t *testing.T) {
	raw := createTestWebSocketConnection(t)
	defer raw.Close()

	c := New("conn-5", raw, time.Second)
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				_ = c.WriteJSON(map[string]int{"worker": n, "seq": j})
			}
		}(i)
	}
	wg.Wait()
}
