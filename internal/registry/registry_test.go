package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/classbridge/broker/pkg/types"
)

func TestSetRole_IsImmutableAfterFirstSet(t *testing.T) {
	r := New()
	r.Add("conn-1")

	r.SetRole("conn-1", types.RoleTeacher)
	r.SetRole("conn-1", types.RoleStudent)

	attrs, ok := r.Get("conn-1")
	assert.True(t, ok)
	assert.Equal(t, types.RoleTeacher, attrs.Role)
}

func TestUnknownConnection_OperationsAreNoOps(t *testing.T) {
	r := New()

	r.SetRole("missing", types.RoleTeacher)
	r.SetLanguage("missing", "en")
	r.TouchActivity("missing", time.Now())

	_, ok := r.Get("missing")
	assert.False(t, ok)
}

func TestSetSettings_MergesRatherThanReplaces(t *testing.T) {
	r := New()
	r.Add("conn-1")

	tts := "openai"
	mode := "manual"
	r.SetSettings("conn-1", &types.RawSettings{TTSServiceType: &tts})
	r.SetSettings("conn-1", &types.RawSettings{TranslationMode: &mode})

	attrs, _ := r.Get("conn-1")
	assert.Equal(t, "openai", attrs.Settings.TTSServiceType)
	assert.Equal(t, "manual", attrs.Settings.TranslationMode)
}

func TestSetSettings_BooleanTogglesAreTwoWay(t *testing.T) {
	r := New()
	r.Add("conn-1")

	enabled := true
	disabled := false
	r.SetSettings("conn-1", &types.RawSettings{LowLiteracyMode: &enabled})
	attrs, _ := r.Get("conn-1")
	assert.True(t, attrs.Settings.LowLiteracyMode)

	r.SetSettings("conn-1", &types.RawSettings{LowLiteracyMode: &disabled})
	attrs, _ = r.Get("conn-1")
	assert.False(t, attrs.Settings.LowLiteracyMode, "an explicit false patch must clear a previously-set flag")
}

func TestSetSettings_AbsentFieldLeavesExistingValueUntouched(t *testing.T) {
	r := New()
	r.Add("conn-1")

	enabled := true
	r.SetSettings("conn-1", &types.RawSettings{TwoWayEnabled: &enabled})
	r.SetSettings("conn-1", &types.RawSettings{LowLiteracyMode: &enabled})

	attrs, _ := r.Get("conn-1")
	assert.True(t, attrs.Settings.TwoWayEnabled, "a patch that doesn't mention twoWayEnabled must not reset it")
}

func TestStudentsForSession_OnlyReturnsMatchingStudents(t *testing.T) {
	r := New()
	r.Add("teacher-1")
	r.SetRole("teacher-1", types.RoleTeacher)
	r.UpdateSessionID("teacher-1", "session-1")

	r.Add("student-1")
	r.SetRole("student-1", types.RoleStudent)
	r.UpdateSessionID("student-1", "session-1")
	r.SetLanguage("student-1", "es")

	r.Add("student-2")
	r.SetRole("student-2", types.RoleStudent)
	r.UpdateSessionID("student-2", "session-2")

	students := r.StudentsForSession("session-1")
	assert.Len(t, students, 1)
	assert.Equal(t, "es", students["student-1"])
}

func TestRemove_DropsTheConnection(t *testing.T) {
	r := New()
	r.Add("conn-1")
	r.Remove("conn-1")

	_, ok := r.Get("conn-1")
	assert.False(t, ok)
}
