package handlers

import (
	"context"
	"time"

	"github.com/classbridge/broker/internal/pipeline"
	"github.com/classbridge/broker/pkg/interfaces"
	"github.com/classbridge/broker/pkg/types"
)

// pipelineRequest builds a pipeline.Request bound to this deps'
// registry, shared by every handler that enters the
// TranscriptionPipeline (transcription, audio final-chunk,
// manual-send-translation).
func pipelineRequest(d Deps, sourceLanguage, sessionID, text string, studentConnIDs []string) pipeline.Request {
	return pipeline.Request{
		StudentConnections: studentConnIDs,
		OriginalText:        text,
		SourceLanguage:       sourceLanguage,
		SessionID:            sessionID,
		StartTime:            time.Now(),
		GetLanguage: func(connID string) string {
			attrs, ok := d.Registry.Get(connID)
			if !ok {
				return ""
			}
			return attrs.Language
		},
		GetClientSettings: func(connID string) types.ClientSettings {
			attrs, ok := d.Registry.Get(connID)
			if !ok {
				return types.ClientSettings{}
			}
			return attrs.Settings
		},
	}
}

// withLegacyTTSServiceType folds a message's top-level ttsServiceType
// (kept for backward compatibility) into the settings patch. When
// legacyWins is true the top-level field always takes precedence
// (register's historical behavior); otherwise it only fills in a
// ttsServiceType the nested settings object didn't specify (settings'
// historical "legacy applied first, settings object can override it"
// behavior). Returns a copy so the original message's Settings pointer
// is never mutated.
func withLegacyTTSServiceType(settings *types.RawSettings, legacyTTSServiceType string, legacyWins bool) *types.RawSettings {
	if legacyTTSServiceType == "" {
		return settings
	}
	patch := types.RawSettings{}
	if settings != nil {
		patch = *settings
	}
	if legacyWins || patch.TTSServiceType == nil {
		patch.TTSServiceType = &legacyTTSServiceType
	}
	return &patch
}

// recordTranscript bumps the session's TranscriptCount so lifecycle
// classification (§4.3) sees this session as having real activity even
// when no delivery ever lands (e.g. manual mode with no student
// connected yet). Best-effort: failures are logged, never surfaced.
func recordTranscript(ctx context.Context, d Deps, sessionID string) {
	if sessionID == "" || d.Store == nil {
		return
	}
	s, err := d.Store.GetSession(ctx, sessionID)
	if err != nil || s == nil {
		return
	}
	s.TranscriptCount++
	if err := d.Store.UpdateSession(ctx, s); err != nil {
		d.Log.Warnw("failed to record transcript count", "session_id", sessionID, "error", err)
	}
}

// scheduleClose delays a close-with-code so the client has a chance to
// receive the preceding error/session_expired frame before the socket
// drops (spec.md §4.5.2 step 1, §4.4 step 2). Run in its own goroutine
// since handlers must return promptly and not block the dispatcher.
func scheduleClose(conn interfaces.Connection, delay time.Duration, code int, reason string) {
	time.Sleep(delay)
	_ = conn.CloseWithCode(code, reason)
}
