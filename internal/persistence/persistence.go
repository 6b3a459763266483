// Package persistence implements the PersistenceService (C9).
//
// ARCHITECTURAL DISCOVERY: the teacher's router persists a message to
// the database before routing it to subscribers — a "durable then
// deliver" order that favors not losing a message over not delivering
// a stale one. This domain inverts that: spec.md §4.6 step 3 requires
// persistence only after a successful send to a student, so a
// translation that never reaches anyone never becomes a row. Kept as
// a named inversion rather than silently diverging from the teacher's
// pattern.
package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classbridge/broker/pkg/interfaces"
	"github.com/classbridge/broker/pkg/types"
)

// DeliveryRecord is what RecordDelivery is asked to persist once a
// send has already succeeded.
type DeliveryRecord struct {
	SessionID      string
	OriginalText   string
	TranslatedText string
	SourceLanguage string
	TargetLanguage string
	StudentConnID  string
}

// Service writes translation rows after successful delivery, gated by
// a detailed-logging feature flag, never blocking or retrying delivery
// on failure (spec.md §4.6 step 3: "must not throw or retry-block
// delivery; it is logged").
type Service struct {
	store    interfaces.TranslationStore
	sessions interfaces.SessionStore
	log      *zap.SugaredLogger
	enabled  bool
}

// New builds a persistence Service. enabled mirrors
// FeaturesConfig.DetailedLogging and gates only the detailed
// translation row; the session's TotalTranslations counter is
// maintained regardless, since lifecycle classification (§4.3) depends
// on it.
func New(store interfaces.TranslationStore, sessions interfaces.SessionStore, log *zap.SugaredLogger, enabled bool) *Service {
	return &Service{store: store, sessions: sessions, log: log, enabled: enabled}
}

// RecordDelivery bumps the session's TotalTranslations counter and, if
// detailed logging is enabled, persists a DeliveryRecord. Never returns
// an error to the caller: persistence failures are logged, not
// surfaced, since they must not affect the delivery path that already
// completed.
func (s *Service) RecordDelivery(ctx context.Context, rec DeliveryRecord) {
	if rec.SessionID == "" {
		return
	}

	s.incrementTotalTranslations(ctx, rec.SessionID)

	if !s.enabled {
		return
	}

	t := &types.Translation{
		ID:             uuid.NewString(),
		SessionID:      rec.SessionID,
		OriginalText:   rec.OriginalText,
		TranslatedText: rec.TranslatedText,
		SourceLanguage: rec.SourceLanguage,
		TargetLanguage: rec.TargetLanguage,
		StudentConnID:  rec.StudentConnID,
		CreatedAt:      time.Now(),
	}
	if err := s.store.StoreTranslation(ctx, t); err != nil {
		s.log.Warnw("failed to persist translation record", "session_id", rec.SessionID, "error", err)
	}
}

// incrementTotalTranslations performs the read-modify-write against the
// session row so lifecycle.Classify sees an accurate activity count.
func (s *Service) incrementTotalTranslations(ctx context.Context, sessionID string) {
	if s.sessions == nil {
		return
	}
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil || session == nil {
		return
	}
	session.TotalTranslations++
	if err := s.sessions.UpdateSession(ctx, session); err != nil {
		s.log.Warnw("failed to record translation count", "session_id", sessionID, "error", err)
	}
}
