package interfaces

import "context"

// Transcriber is the STT provider narrow interface (spec.md §6.7).
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, language string) (string, error)
}

// Translator is the machine-translation provider narrow interface.
type Translator interface {
	Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error)
}

// SynthesizeOptions carries the optional voice selector and target
// language for a TTS call.
type SynthesizeOptions struct {
	Language string
	Voice    string
}

// SynthesizeResult is what a Synthesizer returns: audio bytes plus the
// metadata the delivery path needs to decide format handling and to
// report ttsServiceType back to the client.
type SynthesizeResult struct {
	AudioBuffer        []byte
	TTSServiceType     string
	ClientSideText     string
	ClientSideLanguage string
}

// Synthesizer is the TTS provider narrow interface.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (SynthesizeResult, error)
}

// ProviderResolver looks up a named provider set (openai, local, ...)
// so DeliveryService can honor a per-connection ttsServiceType without
// hard-coding a vendor (spec.md Open Question #4).
type ProviderResolver interface {
	Synthesizer(serviceType string) (Synthesizer, bool)
	DefaultServiceType() string
	FallbackServiceType() string
}
