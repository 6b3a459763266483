package interfaces

// Connection is the narrow abstraction the rest of the system sees for
// a live peer — pure transport, no business logic.
// ARCHITECTURAL DISCOVERY: pure abstraction without implementation
// details keeps clean boundaries between WebSocket infrastructure and
// domain logic, same separation the teacher draws for its Connection
// interface.
type Connection interface {
	// WriteJSON sends a JSON message to the client (thread-safe).
	WriteJSON(v interface{}) error

	// WritePing sends an RFC 6455 control-frame ping, independent of the
	// application-level ping message WriteJSON carries.
	WritePing() error

	// Close closes the connection and cleans up resources.
	Close() error

	// CloseWithCode closes with a specific WebSocket close code/reason,
	// used for the 1000/1008 commitments in spec.md §6.3.
	CloseWithCode(code int, reason string) error

	// ID returns the connection's opaque identifier (stable regardless
	// of authentication state, used as the ConnectionRegistry key).
	ID() string
}
