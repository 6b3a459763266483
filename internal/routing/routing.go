// Package routing implements StudentRequestRouting: the
// (sessionId, requestId) → studentConnId map that lets a teacher's
// private reply find its way back to exactly one student
// (spec.md §4.5.9, §5 "StudentRequestRouting — one mutex").
package routing

import "sync"

type key struct {
	sessionID string
	requestID string
}

// Table is a concurrency-safe routing map.
type Table struct {
	mu     sync.Mutex
	routes map[key]string
}

// New builds an empty routing Table.
func New() *Table {
	return &Table{routes: make(map[key]string)}
}

// Register records that requestId in sessionId should route to
// studentConnID.
func (t *Table) Register(sessionID, requestID, studentConnID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes[key{sessionID, requestID}] = studentConnID
}

// Resolve looks up the student connection for a private reply.
func (t *Table) Resolve(sessionID, requestID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	conn, ok := t.routes[key{sessionID, requestID}]
	return conn, ok
}

// Forget removes a routing entry once it's no longer needed (e.g. the
// student disconnects).
func (t *Table) Forget(sessionID, requestID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.routes, key{sessionID, requestID})
}
