package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classbridge/broker/internal/dispatch"
	"github.com/classbridge/broker/pkg/types"
)

func TestPingHandler_RestoresAliveAndEchoesTimestamp(t *testing.T) {
	d := testDeps()
	d.Registry.Add("conn-1")
	d.Registry.SetAlive("conn-1", false)

	h := &PingHandler{Deps: d}
	conn := &fakeConn{id: "conn-1"}
	hc := &dispatch.HandlerContext{ConnID: "conn-1", Conn: conn}

	err := h.Handle(context.Background(), hc, []byte(`{"type":"ping","timestamp":1234}`))
	require.NoError(t, err)

	attrs, _ := d.Registry.Get("conn-1")
	assert.True(t, attrs.IsAlive)

	require.Len(t, conn.sent, 1)
	pong, ok := conn.sent[0].(types.PongMessage)
	require.True(t, ok)
	assert.Equal(t, int64(1234), pong.OriginalTimestamp)
}

func TestPongHandler_RestoresAlive(t *testing.T) {
	d := testDeps()
	d.Registry.Add("conn-1")
	d.Registry.SetAlive("conn-1", false)

	h := &PongHandler{Deps: d}
	conn := &fakeConn{id: "conn-1"}
	hc := &dispatch.HandlerContext{ConnID: "conn-1", Conn: conn}

	err := h.Handle(context.Background(), hc, []byte(`{"type":"pong"}`))
	require.NoError(t, err)

	attrs, _ := d.Registry.Get("conn-1")
	assert.True(t, attrs.IsAlive)
	assert.Empty(t, conn.sent)
}
