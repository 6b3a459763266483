package dispatch

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/classbridge/broker/internal/metrics"
	"github.com/classbridge/broker/internal/registry"
	"github.com/classbridge/broker/pkg/interfaces"
	"github.com/classbridge/broker/pkg/types"
)

// Handler is implemented by every message-type handler registered with
// the Dispatcher (spec.md §4.4: "{ type(): string; handle(msg, ctx) }").
type Handler interface {
	Type() string
	Handle(ctx context.Context, hc *HandlerContext, raw json.RawMessage) error
}

// HandlerContext carries the per-message dependencies a handler needs:
// the sender's connection, its current attributes, and a way to reach
// other connections in the same session.
type HandlerContext struct {
	ConnID string
	Conn   interfaces.Connection
	Attrs  types.ConnAttrs
}

// sessionExempt are the message types exempt from the session
// validation gate (spec.md §4.4 step 2).
var sessionExempt = map[string]bool{
	types.TypeRegister: true,
	types.TypePing:     true,
	types.TypePong:     true,
}

// audioThrottleTypes are types whose lastActivityAt update is subject
// to the 30s-per-connection throttle; everything else is immediate.
var audioThrottleTypes = map[string]bool{
	types.TypeAudio: true,
}

// Dispatcher routes decoded frames to registered handlers, enforcing
// the session-validation gate and activity-update policy from
// spec.md §4.4.
type Dispatcher struct {
	handlers map[string]Handler
	reg      *registry.Registry
	store    interfaces.SessionStore
	log      *zap.SugaredLogger

	sessionExpiredDelay time.Duration
	activityThrottle    time.Duration

	mu           sync.Mutex
	lastActivity map[string]time.Time
}

// NewDispatcher builds a Dispatcher. sessionExpiredDelay and
// activityThrottle come from internal/config.TimeoutsConfig.
func NewDispatcher(reg *registry.Registry, store interfaces.SessionStore, log *zap.SugaredLogger, sessionExpiredDelay, activityThrottle time.Duration) *Dispatcher {
	return &Dispatcher{
		handlers:             make(map[string]Handler),
		reg:                  reg,
		store:                store,
		log:                  log,
		sessionExpiredDelay:  sessionExpiredDelay,
		activityThrottle:     activityThrottle,
		lastActivity:         make(map[string]time.Time),
	}
}

// Register installs a handler for its declared type.
func (d *Dispatcher) Register(h Handler) {
	d.handlers[h.Type()] = h
}

// OnSessionExpired is invoked after the dispatcher has written the
// session_expired frame; the caller (the connection's read loop) is
// responsible only for scheduling the delayed close, since only it
// owns the connection lifecycle.
type OnSessionExpired func(conn interfaces.Connection, delay time.Duration)

// Dispatch decodes raw and routes it through the session-gate and
// handler lookup per spec.md §4.4.
func (d *Dispatcher) Dispatch(ctx context.Context, connID string, conn interfaces.Connection, raw []byte, onExpired OnSessionExpired) {
	env, err := Decode(raw)
	if err != nil {
		d.log.Debugw("dropping unparseable frame", "conn_id", connID, "error", err)
		return
	}

	attrs, ok := d.reg.Get(connID)
	if !ok {
		d.log.Debugw("dropping frame for unknown connection", "conn_id", connID)
		return
	}

	if !sessionExempt[env.Type] {
		if attrs.SessionID == "" {
			d.sendSessionExpired(ctx, conn, onExpired)
			return
		}
		s, err := d.store.GetSession(ctx, attrs.SessionID)
		if err != nil || s == nil || !s.IsActive {
			d.sendSessionExpired(ctx, conn, onExpired)
			return
		}
	}

	h, ok := d.handlers[env.Type]
	if !ok {
		d.log.Warnw("no handler for message type", "type", env.Type, "conn_id", connID)
		return
	}

	hc := &HandlerContext{ConnID: connID, Conn: conn, Attrs: attrs}
	handlerStart := time.Now()
	err = h.Handle(ctx, hc, json.RawMessage(raw))
	metrics.DispatchLatency.WithLabelValues(env.Type).Observe(time.Since(handlerStart).Seconds())
	if err != nil {
		d.log.Errorw("handler failed", "type", env.Type, "conn_id", connID, "error", err)
		return
	}

	d.touchActivity(ctx, env.Type, connID, attrs.SessionID)
}

func (d *Dispatcher) sendSessionExpired(ctx context.Context, conn interfaces.Connection, onExpired OnSessionExpired) {
	_ = conn.WriteJSON(types.SessionExpiredMessage{
		Type:    types.TypeSessionExpired,
		Code:    types.CodeSessionExpired,
		Message: "session has expired or was not found",
	})
	if onExpired != nil {
		onExpired(conn, d.sessionExpiredDelay)
	}
}

func (d *Dispatcher) touchActivity(ctx context.Context, msgType, connID, sessionID string) {
	if msgType == types.TypeRegister {
		return
	}
	if sessionID == "" {
		return
	}

	now := time.Now()
	if audioThrottleTypes[msgType] {
		d.mu.Lock()
		last, ok := d.lastActivity[connID]
		if ok && now.Sub(last) < d.activityThrottle {
			d.mu.Unlock()
			return
		}
		d.lastActivity[connID] = now
		d.mu.Unlock()
	}

	s, err := d.store.GetSession(ctx, sessionID)
	if err != nil || s == nil {
		return
	}
	s.LastActivityAt = &now
	if err := d.store.UpdateSession(ctx, s); err != nil {
		d.log.Errorw("failed to update session activity", "session_id", sessionID, "error", err)
	}
}
