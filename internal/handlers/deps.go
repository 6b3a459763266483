// Package handlers implements the Handler interface (C6) for every
// message type in the protocol catalog (spec.md §4.5). Each handler
// is grounded on the teacher's per-type handler functions in
// internal/router/router.go, generalized from the teacher's chat
// broadcast semantics to this domain's register/settings/
// transcription/audio/tts/two-way flows.
package handlers

import (
	"time"

	"go.uber.org/zap"

	"github.com/classbridge/broker/internal/classroom"
	"github.com/classbridge/broker/internal/hub"
	"github.com/classbridge/broker/internal/lifecycle"
	"github.com/classbridge/broker/internal/pipeline"
	"github.com/classbridge/broker/internal/registry"
	"github.com/classbridge/broker/internal/routing"
	"github.com/classbridge/broker/pkg/interfaces"
)

// Features mirrors internal/config.FeaturesConfig; passed by value so
// this package doesn't import internal/config directly.
type Features struct {
	InterimTranscription  bool
	ManualSendTranslation bool
	TwoWayCommunication   bool
}

// Audio mirrors internal/config.AudioConfig.
type Audio struct {
	MinAudioDataLength   int
	MinAudioBufferLength int
}

// Timeouts is the subset of internal/config.TimeoutsConfig the
// handlers need.
type Timeouts struct {
	InterimTranscriptionThrottle time.Duration
	StudentRequestRetryInterval  time.Duration
	ClassroomCodeExpiration      time.Duration
	InvalidClassroomMessageDelay time.Duration
}

// Deps bundles every collaborator a handler needs. A single struct
// embedded by value into each handler keeps constructors short and
// keeps the wiring in internal/app in one place.
type Deps struct {
	Registry    *registry.Registry
	Hub         *hub.Hub
	Codes       *classroom.Directory
	Lifecycle   *lifecycle.Manager
	Store       interfaces.SessionStore
	Pipeline    *pipeline.Pipeline
	Transcriber interfaces.Transcriber
	Providers   interfaces.ProviderResolver
	Routing     *routing.Table
	RateLimiter *TwoWayLimiter
	Features    Features
	Audio       Audio
	Timeouts    Timeouts
	Log         *zap.SugaredLogger
}
