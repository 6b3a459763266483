// Package obs centralizes structured logging so every component logs
// through the same leveled, field-tagged sink instead of bare log.Printf.
package obs

import (
	"go.uber.org/zap"
)

// New builds a production zap logger, or a development one when debug
// is requested — mirrored from the astra-voice-service BaseHandler's
// logger.Base() convention of a single shared *zap.SugaredLogger handed
// to every component at construction.
func New(debug bool) *zap.SugaredLogger {
	var core *zap.Logger
	var err error
	if debug {
		core, err = zap.NewDevelopment()
	} else {
		core, err = zap.NewProduction()
	}
	if err != nil {
		// Fall back to a no-op logger rather than panic during startup;
		// logging must never be why the broker fails to boot.
		core = zap.NewNop()
	}
	return core.Sugar()
}

// Nop returns a logger that discards everything, for tests that don't
// care about log output.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
