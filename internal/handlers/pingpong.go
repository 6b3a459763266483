package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/classbridge/broker/internal/dispatch"
	"github.com/classbridge/broker/pkg/types"
)

// PingHandler implements the server-originated-ping-echo half of
// spec.md §4.7/§4.5.4: a client ping restores isAlive and gets a pong.
type PingHandler struct {
	Deps
}

func (h *PingHandler) Type() string { return types.TypePing }

func (h *PingHandler) Handle(ctx context.Context, hc *dispatch.HandlerContext, raw json.RawMessage) error {
	var msg types.PingMessage
	_ = json.Unmarshal(raw, &msg)

	h.Registry.SetAlive(hc.ConnID, true)
	return hc.Conn.WriteJSON(types.PongMessage{
		Type:              types.TypePong,
		Timestamp:         time.Now().UnixMilli(),
		OriginalTimestamp: msg.Timestamp,
	})
}

// PongHandler implements the client's reply to the health monitor's
// ping (spec.md §4.5.4): just restores isAlive.
type PongHandler struct {
	Deps
}

func (h *PongHandler) Type() string { return types.TypePong }

func (h *PongHandler) Handle(ctx context.Context, hc *dispatch.HandlerContext, raw json.RawMessage) error {
	h.Registry.SetAlive(hc.ConnID, true)
	return nil
}
