// Package delivery implements the per-student half of the
// TranscriptionPipeline contract (C8 DeliveryService): TTS synthesis
// selection, optional redaction, message composition, and the
// send-with-retry loop. Grounded on the teacher's per-connection send
// helper in internal/websocket/connection.go, extended with the
// synthesis/redaction/persistence steps spec'd for this domain.
package delivery

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/classbridge/broker/internal/hub"
	"github.com/classbridge/broker/internal/metrics"
	"github.com/classbridge/broker/internal/persistence"
	"github.com/classbridge/broker/pkg/interfaces"
	"github.com/classbridge/broker/pkg/types"
)

const maxSendAttempts = 3

// DeliveryTask is one student's unit of delivery work.
type DeliveryTask struct {
	StudentConnID  string
	SessionID      string
	OriginalText   string
	TranslatedText string
	SourceLanguage string
	TargetLanguage string
	Settings       types.ClientSettings
	StartTime      time.Time
	PreparationMS  float64
	TranslationMS  float64
}

// Service performs synthesis, optional redaction, composition, and
// delivery for a single student.
type Service struct {
	hub        *hub.Hub
	providers  interfaces.ProviderResolver
	persist    *persistence.Service
	log        *zap.SugaredLogger
	redaction  bool
}

// New builds a delivery Service. redactionEnabled mirrors
// FeaturesConfig.TextPostProcessing.
func New(h *hub.Hub, providers interfaces.ProviderResolver, persist *persistence.Service, log *zap.SugaredLogger, redactionEnabled bool) *Service {
	return &Service{hub: h, providers: providers, persist: persist, log: log, redaction: redactionEnabled}
}

// DeliverToStudent runs steps 2b-2e and 3 of spec.md §4.6 for one
// student. Failures are isolated: they never propagate to other
// students' tasks (§4.6 "Tie-breaks and edge cases").
func (s *Service) DeliverToStudent(ctx context.Context, task DeliveryTask) {
	conn := s.hub.Get(task.StudentConnID)
	if conn == nil {
		return
	}

	settings := task.Settings
	translatedText := task.TranslatedText
	if s.redaction {
		translatedText = redactPII(translatedText)
	}
	if settings.LowLiteracyMode {
		settings.UseClientSpeech = true
	}

	ttsStart := time.Now()
	msg := types.TranslationMessage{
		Type:           types.TypeTranslation,
		Text:           translatedText,
		OriginalText:   task.OriginalText,
		SourceLanguage: task.SourceLanguage,
		TargetLanguage: task.TargetLanguage,
	}

	if settings.UseClientSpeech {
		msg.UseClientSpeech = true
		msg.SpeechParams = &types.SpeechParams{
			Type:         "browser-speech",
			Text:         translatedText,
			LanguageCode: task.TargetLanguage,
			AutoPlay:     true,
		}
		msg.TTSServiceType = "browser-speech"
	} else {
		s.synthesize(ctx, &msg, translatedText, task.TargetLanguage, settings)
	}
	ttsMS := time.Since(ttsStart).Seconds() * 1000

	processingMS := time.Since(task.StartTime).Seconds()*1000 - task.PreparationMS - task.TranslationMS - ttsMS
	if processingMS < 0 {
		processingMS = 0
	}
	totalMS := time.Since(task.StartTime).Seconds() * 1000

	msg.Latency = types.Latency{
		Total:             totalMS,
		ServerCompleteTime: time.Now().UnixMilli(),
		Components: types.LatencyComponents{
			Preparation: task.PreparationMS,
			Translation: task.TranslationMS,
			TTS:         ttsMS,
			Processing:  processingMS,
			Network:     0,
		},
	}

	sent := false
	for attempt := 1; attempt <= maxSendAttempts; attempt++ {
		if err := conn.WriteJSON(msg); err != nil {
			s.log.Warnw("translation delivery attempt failed", "student_conn_id", task.StudentConnID, "attempt", attempt, "error", err)
			continue
		}
		sent = true
		break
	}
	if !sent {
		s.log.Errorw("abandoning translation delivery after retries", "student_conn_id", task.StudentConnID)
		metrics.DeliveryFailures.WithLabelValues(task.TargetLanguage).Inc()
		return
	}
	metrics.TranslationsDelivered.WithLabelValues(task.TargetLanguage).Inc()

	s.persist.RecordDelivery(ctx, persistence.DeliveryRecord{
		SessionID:      task.SessionID,
		OriginalText:   task.OriginalText,
		TranslatedText: translatedText,
		SourceLanguage: task.SourceLanguage,
		TargetLanguage: task.TargetLanguage,
		StudentConnID:  task.StudentConnID,
	})
}

// synthesize resolves the TTS provider for settings.TTSServiceType
// (default/auto/fallback per §4.6 step 2b and "Tie-breaks"), falling
// back to silent audio rather than failing the whole message.
func (s *Service) synthesize(ctx context.Context, msg *types.TranslationMessage, text, targetLanguage string, settings types.ClientSettings) {
	serviceType := settings.TTSServiceType
	if serviceType == "" {
		serviceType = s.providers.DefaultServiceType()
	}

	primary, ok := s.providers.Synthesizer(serviceType)
	if !ok {
		primary, ok = s.providers.Synthesizer(s.providers.DefaultServiceType())
	}
	if !ok {
		msg.AudioData = ""
		msg.TTSServiceType = serviceType
		return
	}

	result, err := primary.Synthesize(ctx, text, interfaces.SynthesizeOptions{Language: targetLanguage})
	if err != nil && serviceType == "auto" {
		if fallback, ok := s.providers.Synthesizer(s.providers.FallbackServiceType()); ok {
			result, err = fallback.Synthesize(ctx, text, interfaces.SynthesizeOptions{Language: targetLanguage})
		}
	}
	if err != nil {
		s.log.Warnw("tts synthesis failed, delivering without audio", "service_type", serviceType, "error", err)
		msg.AudioData = ""
		msg.TTSServiceType = serviceType
		return
	}

	audio := result.AudioBuffer
	format := "mp3"
	if looksLikeWAV(audio) || serviceType == "local" {
		if converted, ok := WAVToMP3(audio); ok {
			audio = converted
		} else {
			format = "wav"
		}
	}

	msg.AudioData = encodeBase64(audio)
	msg.AudioFormat = format
	msg.TTSServiceType = result.TTSServiceType
	if msg.TTSServiceType == "" {
		msg.TTSServiceType = serviceType
	}
}
