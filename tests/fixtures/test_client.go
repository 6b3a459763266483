package fixtures

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// TestClient is a thin WebSocket client speaking the broker's JSON
// wire protocol, used to drive end-to-end scenarios without a real
// browser. Grounded on the teacher's tests/fixtures/test_client.go
// dial-then-read-loop shape; frames are kept as untyped maps since the
// scenarios only need to assert on a handful of fields per message.
type TestClient struct {
	t    *testing.T
	conn *websocket.Conn

	messages chan map[string]interface{}
	done     chan struct{}
}

// Dial connects a TestClient to the broker's /ws endpoint and starts
// its background read loop.
func Dial(t *testing.T, wsURL string) *TestClient {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}

	tc := &TestClient{
		t:        t,
		conn:     conn,
		messages: make(chan map[string]interface{}, 64),
		done:     make(chan struct{}),
	}
	go tc.readLoop()
	t.Cleanup(tc.Close)
	return tc
}

func (tc *TestClient) readLoop() {
	defer close(tc.done)
	for {
		_, raw, err := tc.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg map[string]interface{}
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		select {
		case tc.messages <- msg:
		default:
		}
	}
}

// Send marshals v and writes it as a text frame.
func (tc *TestClient) Send(v interface{}) error {
	return tc.conn.WriteJSON(v)
}

// Next waits for the next message of any type, returning an error on
// timeout or when the connection closes.
func (tc *TestClient) Next(timeout time.Duration) (map[string]interface{}, error) {
	select {
	case msg := <-tc.messages:
		return msg, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("timeout waiting for a message")
	case <-tc.done:
		return nil, fmt.Errorf("connection closed")
	}
}

// NextOfType waits for a message whose "type" field matches until the
// deadline; messages of other types read along the way are consumed
// and dropped.
func (tc *TestClient) NextOfType(msgType string, timeout time.Duration) (map[string]interface{}, error) {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("timeout waiting for message of type %q", msgType)
		}
		msg, err := tc.Next(remaining)
		if err != nil {
			return nil, err
		}
		if msg["type"] == msgType {
			return msg, nil
		}
	}
}

// Close closes the underlying connection.
func (tc *TestClient) Close() {
	_ = tc.conn.Close()
}
