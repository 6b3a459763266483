package handlers

import (
	"context"
	"encoding/json"

	"github.com/classbridge/broker/internal/dispatch"
	"github.com/classbridge/broker/pkg/types"
)

// TranscriptionHandler implements spec.md §4.5.5: teacher text input
// bypassing STT, entering the TranscriptionPipeline directly.
type TranscriptionHandler struct {
	Deps
}

func (h *TranscriptionHandler) Type() string { return types.TypeTranscription }

func (h *TranscriptionHandler) Handle(ctx context.Context, hc *dispatch.HandlerContext, raw json.RawMessage) error {
	if hc.Attrs.Role != types.RoleTeacher || hc.Attrs.SessionID == "" {
		h.Log.Warnw("dropping transcription from non-teacher or session-less connection", "conn_id", hc.ConnID)
		return nil
	}

	var msg types.TranscriptionMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return err
	}

	h.runPipeline(ctx, hc, msg.Text)
	return nil
}

// runPipeline is the TranscriptionHandler's entry into the shared
// runTranscriptionPipeline, which the audio handler (final chunk) also
// calls; manual send uses runTranscriptionPipelineUnconditional.
func (h *TranscriptionHandler) runPipeline(ctx context.Context, hc *dispatch.HandlerContext, text string) {
	runTranscriptionPipeline(ctx, h.Deps, hc, text)
}

// runTranscriptionPipeline is the automatic fan-out entry point used
// by transcription, audio (final chunk), and two-way class-scope
// replies. It suppresses fan-out when the teacher's current settings
// are in manual mode (§4.5.3/§4.5.8) — manual delivery goes through
// ManualSendHandler's runTranscriptionPipelineUnconditional instead.
func runTranscriptionPipeline(ctx context.Context, d Deps, hc *dispatch.HandlerContext, text string) {
	if attrs, ok := d.Registry.Get(hc.ConnID); ok && attrs.Settings.TranslationMode == "manual" {
		return
	}
	runTranscriptionPipelineUnconditional(ctx, d, hc, text)
}

// runTranscriptionPipelineUnconditional enters the TranscriptionPipeline
// regardless of translation mode; only ManualSendHandler calls this
// directly, since a manual send is the intended delivery path while in
// manual mode.
func runTranscriptionPipelineUnconditional(ctx context.Context, d Deps, hc *dispatch.HandlerContext, text string) {
	if text == "" {
		return
	}
	sessionID := hc.Attrs.SessionID
	recordTranscript(ctx, d, sessionID)
	students := d.Registry.StudentsForSession(sessionID)
	connIDs := make([]string, 0, len(students))
	for id := range students {
		connIDs = append(connIDs, id)
	}

	d.Pipeline.SendTranslations(ctx, pipelineRequest(d, hc.Attrs.Language, sessionID, text, connIDs))
}
