// Package hub tracks the live interfaces.Connection for every
// connected socket, separate from internal/registry's attribute
// bookkeeping, so handlers and the delivery path can address a
// connection by ID without threading *wsconn.Conn through every call.
// Grounded on the teacher's internal/hub/hub.go connection table.
package hub

import "github.com/classbridge/broker/pkg/interfaces"

// Hub is a concurrency-safe connID → Connection lookup table. It does
// not duplicate internal/registry's RWMutex map; registry owns
// semantic attributes (role, language, settings) while Hub owns only
// "how do I write to this socket".
type Hub struct {
	conns map[string]interfaces.Connection
	add   chan entry
	del   chan string
	get   chan getReq
	snap  chan snapReq
}

type entry struct {
	id   string
	conn interfaces.Connection
}

type getReq struct {
	id   string
	resp chan interfaces.Connection
}

type snapReq struct {
	ids  []string
	resp chan []interfaces.Connection
}

// New starts the hub's serialization goroutine and returns a handle.
// A single goroutine owning the map avoids a second RWMutex in the
// hot send path; connection churn (add/remove) is far less frequent
// than lookups during fan-out, but this still keeps both cheap.
func New() *Hub {
	h := &Hub{
		conns: make(map[string]interfaces.Connection),
		add:   make(chan entry),
		del:   make(chan string),
		get:   make(chan getReq),
		snap:  make(chan snapReq),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case e := <-h.add:
			h.conns[e.id] = e.conn
		case id := <-h.del:
			delete(h.conns, id)
		case r := <-h.get:
			r.resp <- h.conns[r.id]
		case r := <-h.snap:
			out := make([]interfaces.Connection, 0, len(r.ids))
			for _, id := range r.ids {
				if c, ok := h.conns[id]; ok {
					out = append(out, c)
				}
			}
			r.resp <- out
		}
	}
}

// Add registers a connection's sendable handle.
func (h *Hub) Add(id string, conn interfaces.Connection) {
	h.add <- entry{id: id, conn: conn}
}

// Remove drops a connection.
func (h *Hub) Remove(id string) {
	h.del <- id
}

// Get returns the connection for id, or nil if unknown.
func (h *Hub) Get(id string) interfaces.Connection {
	resp := make(chan interfaces.Connection, 1)
	h.get <- getReq{id: id, resp: resp}
	return <-resp
}

// GetMany resolves a batch of connection IDs to live handles, skipping
// any that are no longer present — used by broadcast helpers.
func (h *Hub) GetMany(ids []string) []interfaces.Connection {
	resp := make(chan []interfaces.Connection, 1)
	h.snap <- snapReq{ids: ids, resp: resp}
	return <-resp
}
