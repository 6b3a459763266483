package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/classbridge/broker/internal/dispatch"
	"github.com/classbridge/broker/pkg/types"
)

// StudentRequestHandler implements spec.md §4.5.9: student→teacher
// text, rate-limited, routed for a possible private reply.
type StudentRequestHandler struct {
	Deps
}

func (h *StudentRequestHandler) Type() string { return types.TypeStudentRequest }

func (h *StudentRequestHandler) Handle(ctx context.Context, hc *dispatch.HandlerContext, raw json.RawMessage) error {
	if !h.Features.TwoWayCommunication || hc.Attrs.Role != types.RoleStudent {
		return nil
	}
	if !h.RateLimiter.Allow(hc.ConnID) {
		return nil
	}

	var msg types.StudentRequestMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return err
	}

	requestID := uuid.NewString()
	h.Routing.Register(hc.Attrs.SessionID, requestID, hc.ConnID)

	payload := types.StudentRequestPayload{
		RequestID:    requestID,
		StudentID:    hc.ConnID,
		Name:         msg.Payload.Name,
		LanguageCode: hc.Attrs.Language,
		Text:         msg.Payload.Text,
		Visibility:   msg.Payload.Visibility,
	}

	go h.deliverWithRetry(hc.Attrs.SessionID, payload)
	return nil
}

// deliverWithRetry retries broadcasting a student request up to 5
// times at the configured interval if no teacher is present yet
// (spec.md §4.5.9).
func (h *StudentRequestHandler) deliverWithRetry(sessionID string, payload types.StudentRequestPayload) {
	const maxAttempts = 5
	envelope := types.StudentRequestMessage{Type: types.TypeStudentRequest, Payload: payload}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		teachers := h.Registry.TeachersForSession(sessionID)
		if len(teachers) > 0 {
			for _, conn := range h.Hub.GetMany(teachers) {
				_ = conn.WriteJSON(envelope)
			}
			return
		}
		time.Sleep(h.Timeouts.StudentRequestRetryInterval)
	}
	h.Log.Warnw("student request undelivered after retries", "session_id", sessionID, "request_id", payload.RequestID)
}

// TeacherReplyHandler implements the class/private scope split from
// spec.md §4.5.9.
type TeacherReplyHandler struct {
	Deps
}

func (h *TeacherReplyHandler) Type() string { return types.TypeTeacherReply }

func (h *TeacherReplyHandler) Handle(ctx context.Context, hc *dispatch.HandlerContext, raw json.RawMessage) error {
	if !h.Features.TwoWayCommunication || hc.Attrs.Role != types.RoleTeacher {
		return nil
	}

	var msg types.TeacherReplyMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return err
	}
	if msg.Text == "" {
		return nil
	}

	if msg.Scope == "private" && msg.RequestID != "" {
		studentConnID, ok := h.Routing.Resolve(hc.Attrs.SessionID, msg.RequestID)
		if !ok {
			return nil
		}
		recordTranscript(ctx, h.Deps, hc.Attrs.SessionID)
		h.Pipeline.SendTranslations(ctx, pipelineRequest(h.Deps, hc.Attrs.Language, hc.Attrs.SessionID, msg.Text, []string{studentConnID}))
		return nil
	}

	// scope == "class": normal per-student fan-out, same as a
	// teacher utterance.
	runTranscriptionPipeline(ctx, h.Deps, hc, msg.Text)
	return nil
}

// StudentAudioHandler mirrors the teacher audio path in reverse: it
// transcribes student speech and produces a StudentRequest instead of
// entering the TranscriptionPipeline (spec.md §4.5.9).
type StudentAudioHandler struct {
	Deps
}

func (h *StudentAudioHandler) Type() string { return types.TypeStudentAudio }

func (h *StudentAudioHandler) Handle(ctx context.Context, hc *dispatch.HandlerContext, raw json.RawMessage) error {
	if !h.Features.TwoWayCommunication || hc.Attrs.Role != types.RoleStudent {
		return nil
	}
	if !h.RateLimiter.Allow(hc.ConnID) {
		return nil
	}

	var msg types.AudioMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return err
	}
	if len(msg.Data) < h.Audio.MinAudioDataLength {
		return nil
	}
	decoded, err := base64.StdEncoding.DecodeString(msg.Data)
	if err != nil || len(decoded) < h.Audio.MinAudioBufferLength {
		return nil
	}

	text, err := h.Transcriber.Transcribe(ctx, decoded, hc.Attrs.Language)
	if err != nil || text == "" {
		return nil
	}

	requestID := uuid.NewString()
	h.Routing.Register(hc.Attrs.SessionID, requestID, hc.ConnID)
	payload := types.StudentRequestPayload{
		RequestID:    requestID,
		StudentID:    hc.ConnID,
		LanguageCode: hc.Attrs.Language,
		Text:         text,
	}
	sh := &StudentRequestHandler{Deps: h.Deps}
	go sh.deliverWithRetry(hc.Attrs.SessionID, payload)
	return nil
}

// ComprehensionSignalHandler relays the signal to teachers unchanged
// (spec.md §4.5.9).
type ComprehensionSignalHandler struct {
	Deps
}

func (h *ComprehensionSignalHandler) Type() string { return types.TypeComprehensionSignal }

func (h *ComprehensionSignalHandler) Handle(ctx context.Context, hc *dispatch.HandlerContext, raw json.RawMessage) error {
	if !h.Features.TwoWayCommunication {
		return nil
	}
	var msg types.ComprehensionSignalMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return err
	}
	for _, conn := range h.Hub.GetMany(h.Registry.TeachersForSession(hc.Attrs.SessionID)) {
		_ = conn.WriteJSON(msg)
	}
	return nil
}
