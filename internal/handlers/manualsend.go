package handlers

import (
	"context"
	"encoding/json"

	"github.com/classbridge/broker/internal/dispatch"
	"github.com/classbridge/broker/pkg/types"
)

// ManualSendHandler implements spec.md §4.5.8: feature-gated,
// teacher-only manual pipeline trigger.
type ManualSendHandler struct {
	Deps
}

func (h *ManualSendHandler) Type() string { return types.TypeSendTranslation }

func (h *ManualSendHandler) Handle(ctx context.Context, hc *dispatch.HandlerContext, raw json.RawMessage) error {
	if !h.Features.ManualSendTranslation {
		return hc.Conn.WriteJSON(types.ManualSendAckMessage{
			Type:    types.TypeManualSendAck,
			Status:  "error",
			Message: "manual send is disabled",
		})
	}
	if hc.Attrs.Role != types.RoleTeacher {
		return hc.Conn.WriteJSON(types.ManualSendAckMessage{
			Type:    types.TypeManualSendAck,
			Status:  "error",
			Message: "only teachers may trigger manual send",
		})
	}

	var msg types.SendTranslationMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return err
	}
	if msg.Text == "" {
		return hc.Conn.WriteJSON(types.ManualSendAckMessage{
			Type:    types.TypeManualSendAck,
			Status:  "error",
			Message: "text is required",
		})
	}

	runTranscriptionPipelineUnconditional(ctx, h.Deps, hc, msg.Text)
	return hc.Conn.WriteJSON(types.ManualSendAckMessage{
		Type:   types.TypeManualSendAck,
		Status: "ok",
	})
}
