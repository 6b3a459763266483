// Package pipeline implements the TranscriptionPipeline (C7): the
// sendTranslations contract from spec.md §4.6 that turns one teacher
// utterance into per-student translated, synthesized deliveries.
// Grounded on the teacher's fan-out shape in internal/router/router.go
// (broadcast to subscribers), generalized from plain broadcast into
// translate-then-deliver-then-persist per student.
package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/classbridge/broker/internal/delivery"
	"github.com/classbridge/broker/pkg/interfaces"
	"github.com/classbridge/broker/pkg/types"
)

// Request is the sendTranslations contract input.
type Request struct {
	StudentConnections []string
	OriginalText        string
	SourceLanguage       string
	SessionID            string
	StartTime            time.Time

	// GetLanguage/GetClientSettings resolve per-student state from the
	// connection registry at call time, so the pipeline doesn't need a
	// direct dependency on internal/registry's concrete type.
	GetLanguage       func(connID string) string
	GetClientSettings func(connID string) types.ClientSettings
}

// Pipeline translates once per distinct target language, then fans out
// synthesis/delivery per student connection.
type Pipeline struct {
	translator interfaces.Translator
	delivery   *delivery.Service
	log        *zap.SugaredLogger
}

// New builds a Pipeline.
func New(translator interfaces.Translator, deliverySvc *delivery.Service, log *zap.SugaredLogger) *Pipeline {
	return &Pipeline{translator: translator, delivery: deliverySvc, log: log}
}

// translationResult is the outcome of translating to one target
// language, shared by every student whose language matches it.
type translationResult struct {
	text     string
	fellBack bool
}

// SendTranslations runs the algorithm from spec.md §4.6: translate per
// distinct language, then deliver to each student in parallel.
func (p *Pipeline) SendTranslations(ctx context.Context, req Request) {
	targetLanguages := make(map[string]struct{})
	for _, connID := range req.StudentConnections {
		lang := req.GetLanguage(connID)
		if lang == "" {
			continue
		}
		targetLanguages[lang] = struct{}{}
	}

	translationStart := time.Now()
	translations := make(map[string]translationResult, len(targetLanguages))
	var maxTranslationMS float64
	for lang := range targetLanguages {
		start := time.Now()
		text, err := p.translator.Translate(ctx, req.OriginalText, req.SourceLanguage, lang)
		elapsed := time.Since(start).Seconds() * 1000
		if elapsed > maxTranslationMS {
			maxTranslationMS = elapsed
		}
		if err != nil {
			p.log.Warnw("translation failed, falling back to original text", "target_language", lang, "error", err)
			translations[lang] = translationResult{text: req.OriginalText, fellBack: true}
			continue
		}
		translations[lang] = translationResult{text: text}
	}
	_ = translationStart

	preparationMS := time.Since(req.StartTime).Seconds() * 1000

	var wg sync.WaitGroup
	for _, connID := range req.StudentConnections {
		connID := connID
		lang := req.GetLanguage(connID)
		if lang == "" {
			continue
		}
		result, ok := translations[lang]
		if !ok {
			continue
		}
		settings := req.GetClientSettings(connID)

		wg.Add(1)
		go func() {
			defer wg.Done()
			p.delivery.DeliverToStudent(ctx, delivery.DeliveryTask{
				StudentConnID:  connID,
				SessionID:      req.SessionID,
				OriginalText:   req.OriginalText,
				TranslatedText: result.text,
				SourceLanguage: req.SourceLanguage,
				TargetLanguage: lang,
				Settings:       settings,
				StartTime:      req.StartTime,
				PreparationMS:  preparationMS,
				TranslationMS:  maxTranslationMS,
			})
		}()
	}
	wg.Wait()
}
