package dispatch

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classbridge/broker/internal/registry"
	"github.com/classbridge/broker/pkg/types"
)

type fakeStore struct {
	session      *types.Session
	getErr       error
	updateCalls  int
}

func (f *fakeStore) CreateSession(ctx context.Context, s *types.Session) error { return nil }
func (f *fakeStore) GetSession(ctx context.Context, id string) (*types.Session, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.session, nil
}
func (f *fakeStore) GetSessionByTeacherID(ctx context.Context, teacherID string) (*types.Session, error) {
	return nil, nil
}
func (f *fakeStore) UpdateSession(ctx context.Context, s *types.Session) error {
	f.updateCalls++
	return nil
}
func (f *fakeStore) ListActiveSessions(ctx context.Context) ([]*types.Session, error) {
	return nil, nil
}
func (f *fakeStore) SelectEmptyTeacherCandidates(ctx context.Context, olderThanSeconds int64) ([]*types.Session, error) {
	return nil, nil
}
func (f *fakeStore) SelectAbandonedCandidates(ctx context.Context, inactiveForSeconds int64) ([]*types.Session, error) {
	return nil, nil
}
func (f *fakeStore) SelectInactiveCandidates(ctx context.Context, inactiveForSeconds int64) ([]*types.Session, error) {
	return nil, nil
}
func (f *fakeStore) HealthCheck(ctx context.Context) error { return nil }
func (f *fakeStore) Close() error                          { return nil }

type fakeConn struct {
	sent []interface{}
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.sent = append(c.sent, v)
	return nil
}
func (c *fakeConn) WritePing() error                      { return nil }
func (c *fakeConn) Close() error                          { return nil }
func (c *fakeConn) CloseWithCode(code int, reason string) error { return nil }
func (c *fakeConn) ID() string                             { return "conn-1" }

type recordingHandler struct {
	typ     string
	calls   int
	lastRaw json.RawMessage
}

func (h *recordingHandler) Type() string { return h.typ }
func (h *recordingHandler) Handle(ctx context.Context, hc *HandlerContext, raw json.RawMessage) error {
	h.calls++
	h.lastRaw = raw
	return nil
}

func TestDispatch_ExemptTypeBypassesSessionGate(t *testing.T) {
	reg := registry.New()
	reg.Add("conn-1")
	store := &fakeStore{}
	d := NewDispatcher(reg, store, zap.NewNop().Sugar(), time.Second, 30*time.Second)

	h := &recordingHandler{typ: types.TypeRegister}
	d.Register(h)

	conn := &fakeConn{}
	d.Dispatch(context.Background(), "conn-1", conn, []byte(`{"type":"register"}`), nil)

	assert.Equal(t, 1, h.calls)
	assert.Empty(t, conn.sent)
}

func TestDispatch_NonExemptTypeWithNoSessionSendsSessionExpired(t *testing.T) {
	reg := registry.New()
	reg.Add("conn-1")
	store := &fakeStore{}
	d := NewDispatcher(reg, store, zap.NewNop().Sugar(), time.Second, 30*time.Second)

	h := &recordingHandler{typ: "transcription"}
	d.Register(h)

	conn := &fakeConn{}
	d.Dispatch(context.Background(), "conn-1", conn, []byte(`{"type":"transcription"}`), nil)

	require.Len(t, conn.sent, 1)
	msg, ok := conn.sent[0].(types.SessionExpiredMessage)
	require.True(t, ok)
	assert.Equal(t, types.TypeSessionExpired, msg.Type)
	assert.Equal(t, 0, h.calls)
}

func TestDispatch_ValidSessionInvokesHandlerAndTouchesActivity(t *testing.T) {
	reg := registry.New()
	reg.Add("conn-1")
	reg.SetSessionID("conn-1", "session-1")
	store := &fakeStore{session: &types.Session{ID: "session-1", IsActive: true}}
	d := NewDispatcher(reg, store, zap.NewNop().Sugar(), time.Second, 30*time.Second)

	h := &recordingHandler{typ: "transcription"}
	d.Register(h)

	conn := &fakeConn{}
	d.Dispatch(context.Background(), "conn-1", conn, []byte(`{"type":"transcription"}`), nil)

	assert.Equal(t, 1, h.calls)
	assert.Equal(t, 1, store.updateCalls)
}

func TestDispatch_InactiveSessionSendsSessionExpired(t *testing.T) {
	reg := registry.New()
	reg.Add("conn-1")
	reg.SetSessionID("conn-1", "session-1")
	store := &fakeStore{session: &types.Session{ID: "session-1", IsActive: false}}
	d := NewDispatcher(reg, store, zap.NewNop().Sugar(), time.Second, 30*time.Second)

	h := &recordingHandler{typ: "transcription"}
	d.Register(h)

	conn := &fakeConn{}
	d.Dispatch(context.Background(), "conn-1", conn, []byte(`{"type":"transcription"}`), nil)

	require.Len(t, conn.sent, 1)
	assert.Equal(t, 0, h.calls)
}

func TestDispatch_AudioActivityThrottleSkipsRapidUpdates(t *testing.T) {
	reg := registry.New()
	reg.Add("conn-1")
	reg.SetSessionID("conn-1", "session-1")
	store := &fakeStore{session: &types.Session{ID: "session-1", IsActive: true}}
	d := NewDispatcher(reg, store, zap.NewNop().Sugar(), time.Second, time.Hour)

	h := &recordingHandler{typ: types.TypeAudio}
	d.Register(h)

	conn := &fakeConn{}
	d.Dispatch(context.Background(), "conn-1", conn, []byte(`{"type":"audio"}`), nil)
	d.Dispatch(context.Background(), "conn-1", conn, []byte(`{"type":"audio"}`), nil)

	assert.Equal(t, 2, h.calls)
	assert.Equal(t, 1, store.updateCalls)
}
