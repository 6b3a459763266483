package handlers

import (
	"context"
	"encoding/json"

	"github.com/classbridge/broker/internal/dispatch"
	"github.com/classbridge/broker/pkg/types"
)

// SettingsHandler implements spec.md §4.5.3.
type SettingsHandler struct {
	Deps
}

func (h *SettingsHandler) Type() string { return types.TypeSettings }

func (h *SettingsHandler) Handle(ctx context.Context, hc *dispatch.HandlerContext, raw json.RawMessage) error {
	var msg types.SettingsMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return err
	}

	// Legacy top-level ttsServiceType applied first, then the nested
	// settings object's own ttsServiceType overrides it if present.
	h.Registry.SetSettings(hc.ConnID, withLegacyTTSServiceType(msg.Settings, msg.TTSServiceType, false))

	attrs, _ := h.Registry.Get(hc.ConnID)

	_ = hc.Conn.WriteJSON(types.SettingsAckMessage{
		Type:     types.TypeSettings,
		Status:   "success",
		Settings: attrs.Settings,
	})

	h.broadcastToStudents(attrs.SessionID, types.TeacherModeMessage{
		Type: types.TypeTeacherMode,
		Mode: attrs.Settings.TranslationMode,
	})
	return nil
}

func (h *SettingsHandler) broadcastToStudents(sessionID string, msg any) {
	if sessionID == "" {
		return
	}
	students := h.Registry.StudentsForSession(sessionID)
	ids := make([]string, 0, len(students))
	for id := range students {
		ids = append(ids, id)
	}
	for _, conn := range h.Hub.GetMany(ids) {
		_ = conn.WriteJSON(msg)
	}
}
