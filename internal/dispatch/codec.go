// Package dispatch implements the MessageCodec, HandlerRegistry, and
// Dispatcher (C5). Grounded on the teacher's internal/router/router.go
// map-of-handlers dispatch loop, generalized to the session-validation
// gate and activity-throttle rules this protocol requires.
package dispatch

import (
	"encoding/json"
	"fmt"
)

// Envelope is the minimal shape every inbound frame must satisfy: a
// required type field. Handlers re-unmarshal the raw bytes into their
// specific message struct once the type is known.
type Envelope struct {
	Type string `json:"type"`
}

// Decode parses the required type field out of a raw frame. A parse
// failure is not fatal to the connection — per spec.md §4.4 step 1,
// the caller logs and ignores it, the socket stays open.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing type field")
	}
	return env, nil
}
