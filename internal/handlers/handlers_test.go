package handlers

import (
	"time"

	"go.uber.org/zap"

	"github.com/classbridge/broker/internal/hub"
	"github.com/classbridge/broker/internal/providers"
	"github.com/classbridge/broker/internal/providers/stub"
	"github.com/classbridge/broker/internal/registry"
)

// fakeConn is a minimal interfaces.Connection double shared across this
// package's handler tests.
type fakeConn struct {
	id   string
	sent []interface{}
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.sent = append(c.sent, v)
	return nil
}
func (c *fakeConn) WritePing() error                      { return nil }
func (c *fakeConn) Close() error                          { return nil }
func (c *fakeConn) CloseWithCode(code int, reason string) error { return nil }
func (c *fakeConn) ID() string                             { return c.id }

func testDeps() Deps {
	providerReg := providers.NewRegistry("auto", "openai")
	providerReg.Add("auto", &stub.Synthesizer{ServiceType: "auto"})
	return Deps{
		Registry:  registry.New(),
		Hub:       hub.New(),
		Providers: providerReg,
		Log:       zap.NewNop().Sugar(),
		Timeouts: Timeouts{
			InterimTranscriptionThrottle: 250 * time.Millisecond,
			StudentRequestRetryInterval:  time.Second,
			ClassroomCodeExpiration:      4 * time.Hour,
			InvalidClassroomMessageDelay: 100 * time.Millisecond,
		},
	}
}
