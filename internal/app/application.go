// Package app implements the Supervisor (C11): one-time component
// wiring, the three background loops, and graceful shutdown. Grounded
// on the teacher's internal/app/application.go startup/shutdown
// ordering.
package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	openaiSDK "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/classbridge/broker/internal/classroom"
	"github.com/classbridge/broker/internal/config"
	"github.com/classbridge/broker/internal/database"
	"github.com/classbridge/broker/internal/delivery"
	"github.com/classbridge/broker/internal/dispatch"
	"github.com/classbridge/broker/internal/handlers"
	"github.com/classbridge/broker/internal/health"
	"github.com/classbridge/broker/internal/hub"
	"github.com/classbridge/broker/internal/lifecycle"
	"github.com/classbridge/broker/internal/obs"
	"github.com/classbridge/broker/internal/persistence"
	"github.com/classbridge/broker/internal/pipeline"
	"github.com/classbridge/broker/internal/providers"
	openaiProvider "github.com/classbridge/broker/internal/providers/openai"
	"github.com/classbridge/broker/internal/providers/stub"
	"github.com/classbridge/broker/internal/registry"
	"github.com/classbridge/broker/internal/routing"
	"github.com/classbridge/broker/pkg/interfaces"
	"github.com/classbridge/broker/pkg/types"
)

// Application owns every long-lived component and the background
// loops that drive the lifecycle, code-expiry, and health sweeps.
type Application struct {
	cfg   *config.Config
	log   *zap.SugaredLogger
	db    *database.Manager
	reg   *registry.Registry
	hub   *hub.Hub
	codes *classroom.Directory
	lc    *lifecycle.Manager
	disp  *dispatch.Dispatcher
	hm    *health.Monitor

	httpServer *http.Server

	wg sync.WaitGroup
}

// New wires every component per the mapping in SPEC_FULL.md's
// component design table. It does not start background loops; call
// Run for that.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := obs.New(cfg.Debug)

	db, err := database.Open(ctx, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	reg := registry.New()
	h := hub.New()
	codes := classroom.New(cfg.Timeouts.ClassroomCodeExpiration)

	lc := lifecycle.New(db, codes, lifecycle.Config{
		EmptyTeacherTimeout:    cfg.Timeouts.EmptyTeacherTimeout,
		AllStudentsLeftTimeout: cfg.Timeouts.AllStudentsLeftTimeout,
		StaleSessionTimeout:    cfg.Timeouts.StaleSessionTimeout,
		CleanupInterval:        cfg.Timeouts.LifecycleCleanupInterval,
		ReconnectionGrace:      cfg.Timeouts.TeacherReconnectionGrace,
	}, log)

	providerResolver := buildProviders(cfg, log)

	persist := persistence.New(db, db, log, cfg.Features.DetailedLogging)
	deliverySvc := delivery.New(h, providerResolver, persist, log, cfg.Features.TextPostProcessing)

	var translator interfaces.Translator
	var transcriber interfaces.Transcriber
	if cfg.Providers.OpenAIAPIKey != "" {
		client := openaiSDK.NewClient(cfg.Providers.OpenAIAPIKey)
		translator = openaiProvider.NewTranslator(client, cfg.Providers.TranslateModel)
		transcriber = openaiProvider.NewTranscriber(client, cfg.Providers.STTModel)
	} else {
		log.Warn("no openai api key configured, using stub STT/translation providers")
		translator = &stub.Translator{}
		transcriber = &stub.Transcriber{}
	}

	pipe := pipeline.New(translator, deliverySvc, log)
	routingTable := routing.New()
	twoWayLimiter := handlers.NewTwoWayLimiter(cfg.RateLimits.StudentRequestsPerWindow, cfg.RateLimits.StudentRequestWindow.Seconds())

	deps := handlers.Deps{
		Registry:    reg,
		Hub:         h,
		Codes:       codes,
		Lifecycle:   lc,
		Store:       db,
		Pipeline:    pipe,
		Transcriber: transcriber,
		Providers:   providerResolver,
		Routing:     routingTable,
		RateLimiter: twoWayLimiter,
		Features: handlers.Features{
			InterimTranscription:  cfg.Features.InterimTranscription,
			ManualSendTranslation: cfg.Features.ManualSendTranslation,
			TwoWayCommunication:   cfg.Features.TwoWayCommunication,
		},
		Audio: handlers.Audio{
			MinAudioDataLength:   cfg.Audio.MinAudioDataLength,
			MinAudioBufferLength: cfg.Audio.MinAudioBufferLength,
		},
		Timeouts: handlers.Timeouts{
			InterimTranscriptionThrottle: cfg.Timeouts.InterimTranscriptionThrottle,
			StudentRequestRetryInterval:  cfg.Timeouts.StudentRequestRetryInterval,
			ClassroomCodeExpiration:      cfg.Timeouts.ClassroomCodeExpiration,
			InvalidClassroomMessageDelay: cfg.Timeouts.InvalidClassroomMessageDelay,
		},
		Log: log,
	}

	disp := dispatch.NewDispatcher(reg, db, log, cfg.Timeouts.SessionExpiredMessageDelay, cfg.Timeouts.AudioActivityThrottle)
	disp.Register(&handlers.RegisterHandler{Deps: deps})
	disp.Register(&handlers.SettingsHandler{Deps: deps})
	disp.Register(&handlers.PingHandler{Deps: deps})
	disp.Register(&handlers.PongHandler{Deps: deps})
	disp.Register(&handlers.TranscriptionHandler{Deps: deps})
	disp.Register(&handlers.AudioHandler{Deps: deps})
	disp.Register(&handlers.TTSRequestHandler{Deps: deps})
	disp.Register(&handlers.ManualSendHandler{Deps: deps})
	disp.Register(&handlers.StudentRequestHandler{Deps: deps})
	disp.Register(&handlers.TeacherReplyHandler{Deps: deps})
	disp.Register(&handlers.StudentAudioHandler{Deps: deps})
	disp.Register(&handlers.ComprehensionSignalHandler{Deps: deps})

	hm := health.New(reg, h, cfg.WebSocket.HealthCheckInterval, log)

	app := &Application{
		cfg:   cfg,
		log:   log,
		db:    db,
		reg:   reg,
		hub:   h,
		codes: codes,
		lc:    lc,
		disp:  disp,
		hm:    hm,
	}
	return app, nil
}

func buildProviders(cfg *config.Config, log *zap.SugaredLogger) interfaces.ProviderResolver {
	reg := providers.NewRegistry(cfg.Providers.DefaultTTSService, cfg.Providers.FallbackTTSService)
	if cfg.Providers.OpenAIAPIKey != "" {
		client := openaiSDK.NewClient(cfg.Providers.OpenAIAPIKey)
		reg.Add("openai", openaiProvider.NewSynthesizer(client, cfg.Providers.TTSVoice))
	} else {
		log.Warn("no openai api key configured, using stub TTS provider")
		reg.Add("openai", &stub.Synthesizer{ServiceType: "openai"})
	}
	reg.Add("auto", &stub.Synthesizer{ServiceType: "auto"})
	return reg
}

// Run starts the three background loops and blocks until ctx is
// cancelled.
func (a *Application) Run(ctx context.Context) {
	a.wg.Add(3)
	go func() {
		defer a.wg.Done()
		a.lc.Run(ctx)
	}()
	go func() {
		defer a.wg.Done()
		a.codes.Run(a.cfg.Timeouts.ClassroomCodeCleanupInterval)
	}()
	go func() {
		defer a.wg.Done()
		a.hm.Run(ctx, a.liveConnIDs)
	}()

	<-ctx.Done()
	a.Shutdown()
}

func (a *Application) liveConnIDs() []string {
	// The health monitor only needs IDs; hub and registry are kept in
	// sync by connection add/remove, so the registry's AllConnIDs
	// snapshot covers every live connection.
	return a.reg.AllConnIDs()
}

// HandleWebSocket upgrades an HTTP request and starts the per-connection
// read loop, wiring a new wsconn.Conn into the registry and hub.
func (a *Application) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	newWebSocketSession(a, w, r)
}

// Shutdown stops background loops, closes every connection with the
// normal close code, and flushes the database handle (spec.md §4.8).
func (a *Application) Shutdown() {
	a.log.Info("shutting down: stopping background loops")
	a.lc.Stop()
	a.codes.Stop()
	a.hm.Stop()

	for _, id := range a.reg.AllConnIDs() {
		if conn := a.hub.Get(id); conn != nil {
			_ = conn.CloseWithCode(types.CloseNormal, "server shutting down")
		}
	}

	a.wg.Wait()

	if err := a.db.Close(); err != nil {
		a.log.Errorw("error closing database", "error", err)
	}
	if a.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.httpServer.Shutdown(shutdownCtx)
	}
}

// SetHTTPServer lets cmd/broker register the *http.Server so Shutdown
// can close the accept socket.
func (a *Application) SetHTTPServer(s *http.Server) {
	a.httpServer = s
}

// Store exposes the session store for the HTTP API's health/analytics
// routes, which need read access but shouldn't reach into internal
// wiring any deeper than this.
func (a *Application) Store() interfaces.SessionStore {
	return a.db
}

// Logger exposes the shared structured logger so cmd/broker can hand
// it to the HTTP API layer without constructing a second one.
func (a *Application) Logger() *zap.SugaredLogger {
	return a.log
}
