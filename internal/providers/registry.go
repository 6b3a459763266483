// Package providers wires named TTS providers behind the narrow
// interfaces.ProviderResolver contract, so DeliveryService never
// hard-codes a vendor (spec.md Open Question #4). Transcriber and
// Translator don't need per-connection selection in this spec, so only
// Synthesizer is resolved by name; STT/Translate use one configured
// provider each.
package providers

import "github.com/classbridge/broker/pkg/interfaces"

// Registry implements interfaces.ProviderResolver over a static map of
// named synthesizers, populated at startup from internal/app's wiring.
type Registry struct {
	synthesizers map[string]interfaces.Synthesizer
	defaultType  string
	fallbackType string
}

// NewRegistry builds a Registry. defaultType/fallbackType come from
// ProvidersConfig.DefaultTTSService/FallbackTTSService.
func NewRegistry(defaultType, fallbackType string) *Registry {
	return &Registry{
		synthesizers: make(map[string]interfaces.Synthesizer),
		defaultType:  defaultType,
		fallbackType: fallbackType,
	}
}

// Add registers a synthesizer under a service-type name.
func (r *Registry) Add(serviceType string, s interfaces.Synthesizer) {
	r.synthesizers[serviceType] = s
}

func (r *Registry) Synthesizer(serviceType string) (interfaces.Synthesizer, bool) {
	s, ok := r.synthesizers[serviceType]
	return s, ok
}

func (r *Registry) DefaultServiceType() string {
	return r.defaultType
}

func (r *Registry) FallbackServiceType() string {
	return r.fallbackType
}
