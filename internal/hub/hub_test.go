package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeConn struct{ id string }

func (c *fakeConn) WriteJSON(v interface{}) error               { return nil }
func (c *fakeConn) WritePing() error                             { return nil }
func (c *fakeConn) Close() error                                 { return nil }
func (c *fakeConn) CloseWithCode(code int, reason string) error { return nil }
func (c *fakeConn) ID() string                                   { return c.id }

func TestAddAndGet_ReturnsTheSameConnection(t *testing.T) {
	h := New()
	conn := &fakeConn{id: "conn-1"}
	h.Add(conn.id, conn)

	got := h.Get("conn-1")
	assert.Equal(t, conn, got)
}

func TestGet_UnknownIDReturnsNil(t *testing.T) {
	h := New()
	assert.Nil(t, h.Get("missing"))
}

func TestRemove_DropsTheConnection(t *testing.T) {
	h := New()
	conn := &fakeConn{id: "conn-1"}
	h.Add(conn.id, conn)
	h.Remove(conn.id)

	assert.Nil(t, h.Get("conn-1"))
}

func TestGetMany_SkipsUnknownIDs(t *testing.T) {
	h := New()
	a := &fakeConn{id: "conn-a"}
	b := &fakeConn{id: "conn-b"}
	h.Add(a.id, a)
	h.Add(b.id, b)

	got := h.GetMany([]string{"conn-a", "missing", "conn-b"})
	assert.Len(t, got, 2)
}
