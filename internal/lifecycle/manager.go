// Package lifecycle implements the SessionLifecycleManager (C4): the
// three-strategy reaper, dead-session classification, and teacher
// reconnection/reactivation logic. Grounded on the teacher's
// internal/session/manager.go periodic-cleanup loop, generalized from
// a single timeout check into the three ordered strategies spec'd for
// this domain.
package lifecycle

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/classbridge/broker/internal/classroom"
	"github.com/classbridge/broker/internal/metrics"
	"github.com/classbridge/broker/pkg/interfaces"
	"github.com/classbridge/broker/pkg/types"
)

// Config is the subset of timeouts the manager needs, passed in
// rather than importing internal/config to keep this package
// independently testable.
type Config struct {
	EmptyTeacherTimeout    time.Duration
	AllStudentsLeftTimeout time.Duration
	StaleSessionTimeout    time.Duration
	CleanupInterval        time.Duration
	ReconnectionGrace      time.Duration
}

// Manager runs the three reaper strategies on an interval and exposes
// session creation/reconnection and classification helpers used by
// handlers.
type Manager struct {
	store  interfaces.SessionStore
	codes  *classroom.Directory
	cfg    Config
	log    *zap.SugaredLogger
	stop   chan struct{}
}

// New builds a lifecycle Manager.
func New(store interfaces.SessionStore, codes *classroom.Directory, cfg Config, log *zap.SugaredLogger) *Manager {
	return &Manager{
		store: store,
		codes: codes,
		cfg:   cfg,
		log:   log,
		stop:  make(chan struct{}),
	}
}

// Run drives the periodic reaper loop until Stop is called.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.sweep(ctx)
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		}
	}
}

// Stop halts the reaper loop.
func (m *Manager) Stop() {
	close(m.stop)
}

// sweep runs EmptyTeacher, then Abandoned, then Inactive, in that
// fixed priority order — a session ended by an earlier strategy is
// skipped by later ones because isActive flips to false.
func (m *Manager) sweep(ctx context.Context) {
	if err := m.reapEmptyTeacher(ctx); err != nil {
		m.log.Errorw("empty-teacher reaper failed", "error", err)
	}
	if err := m.reapAbandoned(ctx); err != nil {
		m.log.Errorw("abandoned reaper failed", "error", err)
	}
	if err := m.reapInactive(ctx); err != nil {
		m.log.Errorw("inactive reaper failed", "error", err)
	}
}

func (m *Manager) reapEmptyTeacher(ctx context.Context) error {
	candidates, err := m.store.SelectEmptyTeacherCandidates(ctx, int64(m.cfg.EmptyTeacherTimeout.Seconds()))
	if err != nil {
		return err
	}
	for _, s := range candidates {
		m.end(ctx, "empty_teacher", s, types.QualityNoStudents, "no students ever joined before empty-teacher timeout")
	}
	return nil
}

func (m *Manager) reapAbandoned(ctx context.Context) error {
	candidates, err := m.store.SelectAbandonedCandidates(ctx, int64(m.cfg.AllStudentsLeftTimeout.Seconds()))
	if err != nil {
		return err
	}
	for _, s := range candidates {
		m.end(ctx, "abandoned", s, types.QualityNoActivity, "all students left and grace period elapsed")
	}
	return nil
}

func (m *Manager) reapInactive(ctx context.Context) error {
	candidates, err := m.store.SelectInactiveCandidates(ctx, int64(m.cfg.StaleSessionTimeout.Seconds()))
	if err != nil {
		return err
	}
	for _, s := range candidates {
		m.end(ctx, "inactive", s, types.QualityNoActivity, "no activity within stale session timeout")
	}
	return nil
}

func (m *Manager) end(ctx context.Context, strategy string, s *types.Session, quality types.SessionQuality, reason string) {
	now := time.Now()
	s.IsActive = false
	s.EndTime = &now
	s.Quality = quality
	s.QualityReason = &reason
	if err := m.store.UpdateSession(ctx, s); err != nil {
		m.log.Errorw("failed to end session", "session_id", s.ID, "error", err)
		return
	}
	m.codes.ClearForSession(s.ID)
	metrics.ReaperActions.WithLabelValues(strategy, string(quality)).Inc()
	m.log.Infow("session ended", "session_id", s.ID, "strategy", strategy, "quality", quality, "reason", reason)
}

// MarkStudentsGone sets qualityReason to a non-null grace-period
// description the instant studentsCount first drops to zero, which is
// the handoff from EmptyTeacher eligibility to Abandoned eligibility
// (spec.md §4.3: "qualityReason IS NULL is the marker 'never had
// students'").
func (m *Manager) MarkStudentsGone(ctx context.Context, s *types.Session) error {
	if s.QualityReason != nil {
		return nil
	}
	reason := "all students left"
	s.QualityReason = &reason
	return m.store.UpdateSession(ctx, s)
}

// Classify computes recent-session analytics quality, independent of
// the reaper's decision to end a session (spec.md §4.3 Classification).
// Checks run in the fixed order duration, studentsCount, activity; the
// first failing predicate determines the reason.
func Classify(s *types.Session) (isReal bool, reason string) {
	duration := time.Duration(0)
	if s.EndTime != nil {
		duration = s.EndTime.Sub(s.StartTime)
	} else {
		duration = time.Since(s.StartTime)
	}

	if duration < 30*time.Second {
		return false, "too_short"
	}
	if s.StudentsCount <= 0 {
		return false, "no_students"
	}
	if s.TotalTranslations <= 0 && s.TranscriptCount <= 0 {
		return false, "no_activity"
	}
	return true, ""
}

// TryReconnectTeacher looks for an inactive session owned by teacherID
// whose lastActivityAt is within the reconnection grace period and
// reactivates it; otherwise it returns (nil, false) so the caller can
// create a fresh session.
func (m *Manager) TryReconnectTeacher(ctx context.Context, teacherID string) (*types.Session, bool, error) {
	s, err := m.store.GetSessionByTeacherID(ctx, teacherID)
	if err != nil {
		return nil, false, nil //nolint:nilerr // not-found is a valid "no reconnect candidate" outcome
	}
	if s == nil || s.IsActive {
		return nil, false, nil
	}
	if s.LastActivityAt == nil || time.Since(*s.LastActivityAt) > m.cfg.ReconnectionGrace {
		return nil, false, nil
	}

	s.IsActive = true
	s.EndTime = nil
	if err := m.store.UpdateSession(ctx, s); err != nil {
		return nil, false, err
	}
	if code, ok := m.codes.ForSession(s.ID); ok {
		m.codes.Restore(&types.ClassroomCode{Code: code, SessionID: s.ID, CreatedAt: time.Now(), ExpiresAt: time.Now().Add(24 * time.Hour)})
	}
	return s, true, nil
}
