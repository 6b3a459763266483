package interfaces

import (
	"context"

	"github.com/classbridge/broker/pkg/types"
)

// SessionStore is the C3 SessionStore adapter: durable session rows,
// implementation external to the core (spec.md §2, C3).
// ARCHITECTURAL DISCOVERY: single interface for all session persistence
// enables consistent transaction handling regardless of backing store.
type SessionStore interface {
	CreateSession(ctx context.Context, session *types.Session) error
	GetSession(ctx context.Context, sessionID string) (*types.Session, error)
	GetSessionByTeacherID(ctx context.Context, teacherID string) (*types.Session, error)
	UpdateSession(ctx context.Context, session *types.Session) error
	ListActiveSessions(ctx context.Context) ([]*types.Session, error)

	// SelectEmptyTeacherCandidates/SelectAbandonedCandidates/
	// SelectInactiveCandidates implement the three reaper strategy
	// predicates from spec.md §4.3 as pure read queries; the
	// LifecycleManager performs the transactional ending.
	SelectEmptyTeacherCandidates(ctx context.Context, olderThanSeconds int64) ([]*types.Session, error)
	SelectAbandonedCandidates(ctx context.Context, inactiveForSeconds int64) ([]*types.Session, error)
	SelectInactiveCandidates(ctx context.Context, inactiveForSeconds int64) ([]*types.Session, error)

	HealthCheck(ctx context.Context) error
	Close() error
}

// TranslationStore persists post-delivery translation rows (C9).
type TranslationStore interface {
	StoreTranslation(ctx context.Context, t *types.Translation) error
	GetSessionTranslations(ctx context.Context, sessionID string) ([]*types.Translation, error)
}

// ClassroomCodeStore persists classroom codes so they survive restarts
// and teacher reconnects (the persisted code "wins on conflict" per
// spec.md §4.5.1 step 5).
type ClassroomCodeStore interface {
	SaveClassroomCode(ctx context.Context, code *types.ClassroomCode) error
	GetClassroomCodeForSession(ctx context.Context, sessionID string) (*types.ClassroomCode, error)
	DeleteClassroomCode(ctx context.Context, sessionID string) error
}
