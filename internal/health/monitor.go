// Package health implements the HealthMonitor (C10): the ping/pong
// liveness sweep from spec.md §4.7. Grounded on the teacher's
// internal/websocket/handler.go ping-interval/read-deadline loop,
// generalized from a per-connection goroutine into one shared sweep
// over the registry snapshot.
package health

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/classbridge/broker/internal/hub"
	"github.com/classbridge/broker/internal/registry"
	"github.com/classbridge/broker/pkg/types"
)

// Monitor runs the liveness sweep on an interval.
type Monitor struct {
	reg      *registry.Registry
	hub      *hub.Hub
	interval time.Duration
	log      *zap.SugaredLogger
	stop     chan struct{}
}

// New builds a Monitor.
func New(reg *registry.Registry, h *hub.Hub, interval time.Duration, log *zap.SugaredLogger) *Monitor {
	return &Monitor{reg: reg, hub: h, interval: interval, log: log, stop: make(chan struct{})}
}

// Run sweeps every interval until ctx is done or Stop is called.
func (m *Monitor) Run(ctx context.Context, connIDs func() []string) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.sweep(connIDs())
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		}
	}
}

// Stop halts the sweep loop.
func (m *Monitor) Stop() {
	close(m.stop)
}

// sweep implements §4.7: a dead connection (isAlive already false) is
// terminated; a live one is flipped to not-yet-confirmed and pinged,
// expecting a pong or another ping/pong frame to restore isAlive
// before the next sweep.
func (m *Monitor) sweep(connIDs []string) {
	now := time.Now().UnixMilli()
	for _, connID := range connIDs {
		attrs, ok := m.reg.Get(connID)
		if !ok {
			continue
		}
		conn := m.hub.Get(connID)
		if conn == nil {
			continue
		}
		if !attrs.IsAlive {
			m.log.Infow("terminating unresponsive connection", "conn_id", connID)
			_ = conn.CloseWithCode(types.CloseNormal, "no pong received")
			m.hub.Remove(connID)
			m.reg.Remove(connID)
			continue
		}

		m.reg.SetAlive(connID, false)
		_ = conn.WritePing()
		_ = conn.WriteJSON(types.PingMessage{Type: types.TypePing, Timestamp: now})
	}
}
