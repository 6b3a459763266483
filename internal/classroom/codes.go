// Package classroom implements the ClassroomCodeDirectory (C2): short
// human-typeable codes that map to session IDs, with bounded retry
// generation and background expiry. Grounded on the teacher's sliding
// window bookkeeping style in internal/router/rate_limiter.go, adapted
// here from a rate counter to a code-to-session directory.
package classroom

import (
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"github.com/classbridge/broker/internal/metrics"
	"github.com/classbridge/broker/pkg/types"
)

// ErrCodeExhaustion is returned when GenerateCode can't find an unused
// code within the bounded retry budget (spec.md §4.2 edge case).
var ErrCodeExhaustion = errors.New("classroom code space exhausted")

const (
	codeAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength    = 6
	maxGenerateAttempts = 8
)

// Directory tracks the live classroom-code-to-session mapping. Expired
// entries are removed by a background sweep; Resolve also checks the
// expiry time on every lookup, so an expired code that the sweep has
// not reached yet is still rejected.
type Directory struct {
	mu             sync.RWMutex
	codes          map[string]*types.ClassroomCode
	bySession      map[string]string
	expiration     time.Duration
	stop           chan struct{}
	stopOnce       sync.Once
}

// New creates a Directory with the given code expiration window.
func New(expiration time.Duration) *Directory {
	return &Directory{
		codes:      make(map[string]*types.ClassroomCode),
		bySession:  make(map[string]string),
		expiration: expiration,
		stop:       make(chan struct{}),
	}
}

func randomCode() (string, error) {
	b := make([]byte, codeLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	out := make([]byte, codeLength)
	for i, v := range b {
		out[i] = codeAlphabet[int(v)%len(codeAlphabet)]
	}
	return string(out), nil
}

// GenerateCode creates a fresh, unused code for a session. If a code
// already exists for the session (teacher reconnect, §4.5.1 step 5),
// that code is returned unchanged rather than generating a new one —
// students shouldn't have to learn a new code because the teacher's
// socket dropped and reconnected within the grace period.
func (d *Directory) GenerateCode(sessionID string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.bySession[sessionID]; ok {
		if c, ok := d.codes[existing]; ok && time.Now().Before(c.ExpiresAt) {
			return existing, nil
		}
	}

	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		code, err := randomCode()
		if err != nil {
			return "", err
		}
		if _, taken := d.codes[code]; taken {
			continue
		}
		now := time.Now()
		d.codes[code] = &types.ClassroomCode{
			Code:      code,
			SessionID: sessionID,
			CreatedAt: now,
			ExpiresAt: now.Add(d.expiration),
		}
		d.bySession[sessionID] = code
		metrics.CodeGenerationAttempts.Observe(float64(attempt + 1))
		return code, nil
	}
	metrics.CodeGenerationAttempts.Observe(float64(maxGenerateAttempts))
	return "", ErrCodeExhaustion
}

// Restore re-inserts a previously persisted code (loaded from the
// ClassroomCodeStore at startup, or reused on teacher reconnect). It
// is idempotent: restoring the same code twice is harmless.
func (d *Directory) Restore(code *types.ClassroomCode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.codes[code.Code] = code
	d.bySession[code.SessionID] = code.Code
}

// Resolve returns the session ID for a code, if the code exists and
// has not expired.
func (d *Directory) Resolve(code string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.codes[code]
	if !ok {
		return "", false
	}
	if time.Now().After(c.ExpiresAt) {
		return "", false
	}
	return c.SessionID, true
}

// ForSession returns the currently assigned code for a session, if any.
func (d *Directory) ForSession(sessionID string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	code, ok := d.bySession[sessionID]
	return code, ok
}

// ClearForSession removes a session's code, called when a session ends
// (spec.md §4.3: ending a session retires its classroom code).
func (d *Directory) ClearForSession(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if code, ok := d.bySession[sessionID]; ok {
		delete(d.codes, code)
		delete(d.bySession, sessionID)
	}
}

// sweep removes all expired codes. Returns the number removed.
func (d *Directory) sweep() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := time.Now()
	removed := 0
	for code, c := range d.codes {
		if now.After(c.ExpiresAt) {
			delete(d.codes, code)
			delete(d.bySession, c.SessionID)
			removed++
		}
	}
	return removed
}

// Run starts the background expiry sweep at the given interval. It
// blocks until Stop is called; callers should run it in a goroutine.
func (d *Directory) Run(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.sweep()
		case <-d.stop:
			return
		}
	}
}

// Stop halts the background sweep goroutine.
func (d *Directory) Stop() {
	d.stopOnce.Do(func() {
		close(d.stop)
	})
}
