package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterAndResolve_RoundTrips(t *testing.T) {
	tbl := New()
	tbl.Register("session-1", "req-1", "student-1")

	conn, ok := tbl.Resolve("session-1", "req-1")
	assert.True(t, ok)
	assert.Equal(t, "student-1", conn)
}

func TestResolve_UnknownRequestIsNotFound(t *testing.T) {
	tbl := New()
	_, ok := tbl.Resolve("session-1", "req-unknown")
	assert.False(t, ok)
}

func TestForget_RemovesTheRoute(t *testing.T) {
	tbl := New()
	tbl.Register("session-1", "req-1", "student-1")
	tbl.Forget("session-1", "req-1")

	_, ok := tbl.Resolve("session-1", "req-1")
	assert.False(t, ok)
}

func TestRegister_IsScopedPerSession(t *testing.T) {
	tbl := New()
	tbl.Register("session-1", "req-1", "student-1")
	tbl.Register("session-2", "req-1", "student-2")

	a, _ := tbl.Resolve("session-1", "req-1")
	b, _ := tbl.Resolve("session-2", "req-1")
	assert.Equal(t, "student-1", a)
	assert.Equal(t, "student-2", b)
}
