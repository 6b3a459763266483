package handlers

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/classbridge/broker/internal/dispatch"
	"github.com/classbridge/broker/pkg/types"
)

// RegisterHandler implements both the teacher and student register
// branches from spec.md §4.5.1/§4.5.2, dispatched on the role field.
type RegisterHandler struct {
	Deps
}

func (h *RegisterHandler) Type() string { return types.TypeRegister }

func (h *RegisterHandler) Handle(ctx context.Context, hc *dispatch.HandlerContext, raw json.RawMessage) error {
	var msg types.RegisterMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return err
	}

	switch msg.Role {
	case string(types.RoleTeacher):
		return h.handleTeacher(ctx, hc, msg)
	case string(types.RoleStudent):
		return h.handleStudent(ctx, hc, msg)
	default:
		h.Log.Warnw("register with unknown role", "role", msg.Role, "conn_id", hc.ConnID)
		return nil
	}
}

func (h *RegisterHandler) handleTeacher(ctx context.Context, hc *dispatch.HandlerContext, msg types.RegisterMessage) error {
	// Step 1: role lock — if already a student, reject silently.
	if hc.Attrs.Role == types.RoleStudent {
		return nil
	}

	// Step 2: set role, language, settings (merged).
	h.Registry.SetRole(hc.ConnID, types.RoleTeacher)
	h.Registry.SetLanguage(hc.ConnID, msg.LanguageCode)
	h.Registry.SetSettings(hc.ConnID, withLegacyTTSServiceType(msg.Settings, msg.TTSServiceType, true))
	if msg.TeacherID != "" {
		h.Registry.SetTeacherID(hc.ConnID, msg.TeacherID)
	}

	sessionID, err := h.resolveTeacherSession(ctx, hc, msg)
	if err != nil {
		h.Log.Warnw("teacher session resolution failed, continuing with ack", "conn_id", hc.ConnID, "error", err)
	}

	h.Registry.UpdateSessionID(hc.ConnID, sessionID)

	code, err := h.authoritativeCode(ctx, sessionID)
	if err != nil {
		h.Log.Warnw("classroom code resolution failed", "session_id", sessionID, "error", err)
	}
	h.Registry.SetClassroomCode(hc.ConnID, code)

	attrs, _ := h.Registry.Get(hc.ConnID)

	_ = hc.Conn.WriteJSON(types.RegisterAckMessage{
		Type:   types.TypeRegister,
		Status: "success",
		Data: types.RegisterAckData{
			Role:         string(types.RoleTeacher),
			LanguageCode: msg.LanguageCode,
			Settings:     attrs.Settings,
		},
	})
	if code != "" {
		expiresAt := time.Now().Add(h.Timeouts.ClassroomCodeExpiration).UnixMilli()
		_ = hc.Conn.WriteJSON(types.ClassroomCodeMessage{
			Type:      types.TypeClassroomCode,
			Code:      code,
			SessionID: sessionID,
			ExpiresAt: expiresAt,
		})
	}
	return nil
}

// resolveTeacherSession implements spec.md §4.5.1 step 3-4:
// reconnection by teacher-id, fallback reactivation, fallback match by
// language, and finally creating a fresh session row.
func (h *RegisterHandler) resolveTeacherSession(ctx context.Context, hc *dispatch.HandlerContext, msg types.RegisterMessage) (string, error) {
	if msg.TeacherID != "" {
		if existing, err := h.Store.GetSessionByTeacherID(ctx, msg.TeacherID); err == nil && existing != nil {
			if existing.IsActive && existing.ID != hc.Attrs.SessionID {
				h.Codes.ClearForSession(existing.ID)
				if _, genErr := h.Codes.GenerateCode(existing.ID); genErr != nil {
					h.Log.Warnw("failed to regenerate classroom code on reconnect", "session_id", existing.ID, "error", genErr)
				}
				return existing.ID, nil
			}
		}
		if s, reconnected, err := h.Lifecycle.TryReconnectTeacher(ctx, msg.TeacherID); err == nil && reconnected {
			return s.ID, nil
		}
	}

	// Fallback: match by teacherLanguage among recently active sessions
	// with no teacher-id recorded (best-effort, logged on failure).
	if active, err := h.Store.ListActiveSessions(ctx); err == nil {
		for _, s := range active {
			if s.TeacherLanguage == msg.LanguageCode && s.TeacherID == "" {
				return s.ID, nil
			}
		}
	}

	session := &types.Session{
		ID:              uuid.NewString(),
		TeacherID:       msg.TeacherID,
		TeacherLanguage: msg.LanguageCode,
		StartTime:       time.Now(),
		IsActive:        true,
		Quality:         types.QualityUnknown,
	}
	if err := h.Store.CreateSession(ctx, session); err != nil {
		return "", err
	}
	return session.ID, nil
}

// authoritativeCode implements spec.md §4.5.1 step 5: prefer the code
// persisted on the session row; the persisted code wins on conflict.
func (h *RegisterHandler) authoritativeCode(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", nil
	}
	if persisted, err := h.Store.GetSession(ctx, sessionID); err == nil && persisted != nil {
		if persisted.ClassCode != "" {
			h.Codes.Restore(&types.ClassroomCode{
				Code:      persisted.ClassCode,
				SessionID: sessionID,
				CreatedAt: time.Now(),
				ExpiresAt: time.Now().Add(h.Timeouts.ClassroomCodeExpiration),
			})
			return persisted.ClassCode, nil
		}
	}
	if existing, ok := h.Codes.ForSession(sessionID); ok {
		return existing, nil
	}
	code, err := h.Codes.GenerateCode(sessionID)
	if err != nil {
		return "", err
	}
	if s, err := h.Store.GetSession(ctx, sessionID); err == nil && s != nil {
		s.ClassCode = code
		_ = h.Store.UpdateSession(ctx, s)
	}
	return code, nil
}

func (h *RegisterHandler) handleStudent(ctx context.Context, hc *dispatch.HandlerContext, msg types.RegisterMessage) error {
	// Step 1: validate classroom code if provided.
	var sessionID string
	if msg.ClassroomCode != "" {
		resolved, ok := h.Codes.Resolve(msg.ClassroomCode)
		if !ok {
			_ = hc.Conn.WriteJSON(types.ErrorMessage{
				Type:    types.TypeError,
				Code:    types.CodeInvalidClassroom,
				Message: "classroom code is invalid or expired",
			})
			go scheduleClose(hc.Conn, h.Timeouts.InvalidClassroomMessageDelay, types.CloseSessionExpired, "invalid classroom code")
			return nil
		}
		sessionID = resolved
	}

	// Step 2: role lock.
	if hc.Attrs.Role == types.RoleTeacher {
		return nil
	}
	h.Registry.SetRole(hc.ConnID, types.RoleStudent)
	h.Registry.SetLanguage(hc.ConnID, msg.LanguageCode)
	h.Registry.SetName(hc.ConnID, msg.Name)
	h.Registry.SetClassroomCode(hc.ConnID, msg.ClassroomCode)

	// Step 3: resolve session, migrate connection onto it.
	if sessionID != "" {
		h.Registry.UpdateSessionID(hc.ConnID, sessionID)
	}

	// Step 4: idempotent studentsCount increment.
	if sessionID != "" && !hc.Attrs.StudentCounted {
		if s, err := h.Store.GetSession(ctx, sessionID); err == nil && s != nil {
			s.StudentsCount++
			s.StudentLanguage = msg.LanguageCode
			s.ClassCode = msg.ClassroomCode
			if err := h.Store.UpdateSession(ctx, s); err != nil {
				h.Log.Warnw("failed to record student join", "session_id", sessionID, "error", err)
			} else {
				h.Registry.SetStudentCounted(hc.ConnID, true)
			}
		}
	}

	studentID := randomEphemeralID()

	// Step 5: broadcast student_joined to all teachers in the session.
	h.broadcastToTeachers(sessionID, types.StudentJoinedMessage{
		Type: types.TypeStudentJoined,
		Payload: types.StudentJoinedPayload{
			StudentID:    studentID,
			Name:         msg.Name,
			LanguageCode: msg.LanguageCode,
		},
	})

	// Step 6: manual-mode hint for the joining student.
	if teacherConnID, ok := h.Registry.TeacherConnForSession(sessionID); ok {
		if attrs, ok := h.Registry.Get(teacherConnID); ok && attrs.Settings.TranslationMode == "manual" {
			_ = hc.Conn.WriteJSON(types.TeacherModeMessage{Type: types.TypeTeacherMode, Mode: "manual"})
		}
	}

	// Step 7: broadcast updated student count.
	h.broadcastToTeachers(sessionID, types.StudentCountUpdateMessage{
		Type:  types.TypeStudentCountUpdate,
		Count: h.Registry.StudentCount(sessionID),
	})

	return nil
}

func (h *RegisterHandler) broadcastToTeachers(sessionID string, msg any) {
	if sessionID == "" {
		return
	}
	for _, conn := range h.Hub.GetMany(h.Registry.TeachersForSession(sessionID)) {
		_ = conn.WriteJSON(msg)
	}
}

func randomEphemeralID() string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, 12)
	for i := range b {
		b[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(b)
}
