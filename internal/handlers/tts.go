package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/classbridge/broker/internal/dispatch"
	"github.com/classbridge/broker/pkg/interfaces"
	"github.com/classbridge/broker/pkg/types"
)

// TTSRequestHandler implements spec.md §4.5.7: on-demand synthesis
// independent of the translation pipeline (e.g. replaying a phrase).
type TTSRequestHandler struct {
	Deps
}

func (h *TTSRequestHandler) Type() string { return types.TypeTTSRequest }

func (h *TTSRequestHandler) Handle(ctx context.Context, hc *dispatch.HandlerContext, raw json.RawMessage) error {
	var msg types.TTSRequestMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return err
	}

	if msg.Text == "" || msg.LanguageCode == "" {
		return hc.Conn.WriteJSON(types.TTSResponseMessage{
			Type:      types.TypeTTSResponse,
			Status:    "error",
			Error:     &types.ErrorDetail{Code: "INVALID_REQUEST", Message: "text and languageCode are required"},
			Timestamp: time.Now().UnixMilli(),
		})
	}

	serviceType := h.Providers.DefaultServiceType()
	synth, ok := h.Providers.Synthesizer(serviceType)
	if !ok {
		return hc.Conn.WriteJSON(types.TTSResponseMessage{
			Type:      types.TypeTTSResponse,
			Status:    "error",
			Error:     &types.ErrorDetail{Code: "PROVIDER_UNAVAILABLE", Message: "no tts provider configured"},
			Timestamp: time.Now().UnixMilli(),
		})
	}

	result, err := synth.Synthesize(ctx, msg.Text, interfaces.SynthesizeOptions{Language: msg.LanguageCode, Voice: msg.Voice})
	if err != nil {
		return hc.Conn.WriteJSON(types.TTSResponseMessage{
			Type:      types.TypeTTSResponse,
			Status:    "error",
			Error:     &types.ErrorDetail{Code: "SYNTHESIS_FAILED", Message: err.Error()},
			Timestamp: time.Now().UnixMilli(),
		})
	}

	return hc.Conn.WriteJSON(types.TTSResponseMessage{
		Type:           types.TypeTTSResponse,
		Status:         "success",
		Text:           msg.Text,
		LanguageCode:   msg.LanguageCode,
		TTSServiceType: result.TTSServiceType,
		AudioData:      base64.StdEncoding.EncodeToString(result.AudioBuffer),
		Timestamp:      time.Now().UnixMilli(),
	})
}
