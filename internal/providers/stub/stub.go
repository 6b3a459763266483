// Package stub provides deterministic in-memory Transcriber,
// Translator, and Synthesizer doubles for tests, so pipeline and
// delivery tests don't depend on network access or API keys.
package stub

import (
	"context"
	"fmt"

	"github.com/classbridge/broker/pkg/interfaces"
)

// Transcriber always returns a fixed transcript, optionally tagged
// with the requested language for assertions.
type Transcriber struct {
	Transcript string
	Err        error
}

func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, language string) (string, error) {
	if t.Err != nil {
		return "", t.Err
	}
	if t.Transcript != "" {
		return t.Transcript, nil
	}
	return fmt.Sprintf("stub-transcript(%d bytes, %s)", len(audio), language), nil
}

// Translator deterministically prefixes the text with the target
// language so tests can assert on distinct-language fan-out.
type Translator struct {
	Err            error
	FailForLanguage string
}

func (t *Translator) Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error) {
	if t.Err != nil {
		return "", t.Err
	}
	if t.FailForLanguage != "" && targetLanguage == t.FailForLanguage {
		return "", fmt.Errorf("stub translation failure for %s", targetLanguage)
	}
	return fmt.Sprintf("[%s] %s", targetLanguage, text), nil
}

// Synthesizer returns a small fixed byte buffer standing in for audio,
// tagged by service type so delivery tests can distinguish primary
// from fallback synthesis.
type Synthesizer struct {
	ServiceType string
	Err         error
}

func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts interfaces.SynthesizeOptions) (interfaces.SynthesizeResult, error) {
	if s.Err != nil {
		return interfaces.SynthesizeResult{}, s.Err
	}
	return interfaces.SynthesizeResult{
		AudioBuffer:    []byte("stub-audio:" + text),
		TTSServiceType: s.ServiceType,
	}, nil
}
