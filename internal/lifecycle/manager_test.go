package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/classbridge/broker/pkg/types"
)

// fakeStore is a minimal interfaces.SessionStore double that only
// tracks UpdateSession calls; the reaper-candidate queries are unused
// by the tests in this file.
type fakeStore struct {
	updateCalls int
}

func (f *fakeStore) CreateSession(ctx context.Context, s *types.Session) error { return nil }
func (f *fakeStore) GetSession(ctx context.Context, id string) (*types.Session, error) {
	return nil, nil
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

func noopLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func TestClassify_TooShortTakesPriorityOverEverythingElse(t *testing.T) {
	end := time.Now()
	s := &types.Session{
		StartTime:     end.Add(-10 * time.Second),
		EndTime:       &end,
		StudentsCount: 0,
	}

	ok, reason := Classify(s)
	assert.False(t, ok)
	assert.Equal(t, "too_short", reason)
}

func TestClassify_NoStudentsWhenLongEnoughButEmpty(t *testing.T) {
	end := time.Now()
	s := &types.Session{
		StartTime:     end.Add(-40 * time.Second),
		EndTime:       &end,
		StudentsCount: 0,
	}

	ok, reason := Classify(s)
	assert.False(t, ok)
	assert.Equal(t, "no_students", reason)
}

func TestClassify_NoActivityWhenStudentsJoinedButNothingWasSaid(t *testing.T) {
	end := time.Now()
	s := &types.Session{
		StartTime:         end.Add(-120 * time.Second),
		EndTime:           &end,
		StudentsCount:     2,
		TotalTranslations: 0,
		TranscriptCount:   0,
	}

	ok, reason := Classify(s)
	assert.False(t, ok)
	assert.Equal(t, "no_activity", reason)
}

func TestClassify_RealSessionWhenAllThresholdsClear(t *testing.T) {
	end := time.Now()
	s := &types.Session{
		StartTime:         end.Add(-120 * time.Second),
		EndTime:           &end,
		StudentsCount:     2,
		TotalTranslations: 5,
	}

	ok, reason := Classify(s)
	assert.True(t, ok)
	assert.Empty(t, reason)
}

func TestMarkStudentsGone_IsIdempotent(t *testing.T) {
	store := &fakeStore{}
	m := New(store, nil, Config{}, noopLogger())

	s := &types.Session{ID: "session-1"}
	require := assert.New(t)
	ctx := context.Background()

	require.NoError(m.MarkStudentsGone(ctx, s))
	first := s.QualityReason
	require.NotNil(first)

	require.NoError(m.MarkStudentsGone(ctx, s))
	require.Equal(first, s.QualityReason)
	require.Equal(1, store.updateCalls)
}
