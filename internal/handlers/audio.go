package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/classbridge/broker/internal/dispatch"
	"github.com/classbridge/broker/pkg/types"
)

// AudioHandler implements spec.md §4.5.6: interim throttled STT echo
// for non-final chunks, full pipeline entry for final chunks.
type AudioHandler struct {
	Deps
}

func (h *AudioHandler) Type() string { return types.TypeAudio }

func (h *AudioHandler) Handle(ctx context.Context, hc *dispatch.HandlerContext, raw json.RawMessage) error {
	if hc.Attrs.Role != types.RoleTeacher {
		return nil
	}

	var msg types.AudioMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return err
	}

	isFinal := msg.IsFinalChunk == nil || *msg.IsFinalChunk
	if !isFinal {
		return h.handleInterim(ctx, hc, msg)
	}
	return h.handleFinal(ctx, hc, msg)
}

func (h *AudioHandler) handleInterim(ctx context.Context, hc *dispatch.HandlerContext, msg types.AudioMessage) error {
	if !h.Features.InterimTranscription {
		return nil
	}

	attrs, _ := h.Registry.Get(hc.ConnID)
	now := time.Now()
	if !attrs.LastInterimAt.IsZero() && now.Sub(attrs.LastInterimAt) < h.Timeouts.InterimTranscriptionThrottle {
		return nil
	}
	h.Registry.TouchInterim(hc.ConnID, now)

	decoded, err := base64.StdEncoding.DecodeString(msg.Data)
	if err != nil {
		return nil
	}
	text, err := h.Transcriber.Transcribe(ctx, decoded, attrs.Language)
	if err != nil {
		h.Log.Warnw("interim transcription failed", "conn_id", hc.ConnID, "error", err)
		return nil
	}

	return hc.Conn.WriteJSON(types.TranscriptionEchoMessage{
		Type:      types.TypeTranscription,
		Text:      text,
		IsFinal:   false,
		Timestamp: now.UnixMilli(),
	})
}

func (h *AudioHandler) handleFinal(ctx context.Context, hc *dispatch.HandlerContext, msg types.AudioMessage) error {
	if len(msg.Data) < h.Audio.MinAudioDataLength {
		return nil
	}
	decoded, err := base64.StdEncoding.DecodeString(msg.Data)
	if err != nil || len(decoded) < h.Audio.MinAudioBufferLength {
		return nil
	}

	attrs, _ := h.Registry.Get(hc.ConnID)
	text, err := h.Transcriber.Transcribe(ctx, decoded, attrs.Language)
	if err != nil {
		h.Log.Warnw("final transcription failed", "conn_id", hc.ConnID, "error", err)
		return nil
	}
	if text == "" {
		return nil
	}

	runTranscriptionPipeline(ctx, h.Deps, hc, text)
	return nil
}
