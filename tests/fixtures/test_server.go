// Package fixtures provides end-to-end test scaffolding: a full
// Application wired over an in-memory SQLite file and stub providers,
// served behind an httptest.Server, plus a thin WebSocket client for
// driving the wire protocol the way a real teacher/student browser
// would. Grounded on the teacher's tests/fixtures/test_helpers.go and
// test_client.go.
package fixtures

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/classbridge/broker/internal/api"
	"github.com/classbridge/broker/internal/app"
	"github.com/classbridge/broker/internal/config"
)

// TestBroker bundles a running Application behind an httptest.Server.
type TestBroker struct {
	App    *app.Application
	Server *httptest.Server
	dbPath string
}

// SetupTestBroker builds a Config from defaults (shortened timeouts so
// tests don't wait on production-length grace periods), opens a fresh
// SQLite file under t.TempDir, wires a full Application, and serves it
// over httptest. Everything is torn down via t.Cleanup.
func SetupTestBroker(t *testing.T, mutate func(*config.Config)) *TestBroker {
	t.Helper()

	cfg := config.Default()
	cfg.Database.Path = fmt.Sprintf("%s/broker_%d.db", t.TempDir(), time.Now().UnixNano())
	cfg.Timeouts.SessionExpiredMessageDelay = 10 * time.Millisecond
	cfg.Timeouts.InvalidClassroomMessageDelay = 10 * time.Millisecond
	cfg.Timeouts.StudentRequestRetryInterval = 10 * time.Millisecond
	cfg.Features.ManualSendTranslation = true
	cfg.Features.TwoWayCommunication = true
	cfg.Features.InterimTranscription = true
	if mutate != nil {
		mutate(cfg)
	}

	ctx := context.Background()
	application, err := app.New(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to build application: %v", err)
	}

	server := api.New(application, application.Store(), application.Logger())
	httpServer := httptest.NewServer(server.Handler())

	tb := &TestBroker{App: application, Server: httpServer, dbPath: cfg.Database.Path}
	t.Cleanup(func() {
		httpServer.Close()
		application.Shutdown()
		_ = os.Remove(cfg.Database.Path)
	})
	return tb
}

// WSURL returns the ws:// URL for the broker's upgrade endpoint.
func (tb *TestBroker) WSURL() string {
	return "ws" + tb.Server.URL[len("http"):] + "/ws"
}
