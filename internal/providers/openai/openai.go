// Package openai adapts sashabaranov/go-openai to the Transcriber,
// Translator, and Synthesizer narrow interfaces (spec.md §6.7), the
// default provider set when no other vendor is configured.
package openai

import (
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/classbridge/broker/pkg/interfaces"
)

// Transcriber wraps the Whisper transcription endpoint.
type Transcriber struct {
	client *openai.Client
	model  string
}

// NewTranscriber builds an STT adapter.
func NewTranscriber(client *openai.Client, model string) *Transcriber {
	if model == "" {
		model = openai.Whisper1
	}
	return &Transcriber{client: client, model: model}
}

func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, language string) (string, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: "audio.wav",
		Reader:   newAudioReader(audio),
		Language: language,
	})
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}
	return resp.Text, nil
}

func newAudioReader(audio []byte) io.Reader {
	return &byteReader{data: audio}
}

type byteReader struct {
	data []byte
	pos  int
}

func (b *byteReader) Read(p []byte) (int, error) {
	if b.pos >= len(b.data) {
		return 0, io.EOF
	}
	n := copy(p, b.data[b.pos:])
	b.pos += n
	return n, nil
}

// Translator wraps a chat-completion call used as a translation
// engine, the pattern this corpus uses wherever a dedicated
// translation endpoint isn't available.
type Translator struct {
	client *openai.Client
	model  string
}

// NewTranslator builds a translation adapter.
func NewTranslator(client *openai.Client, model string) *Translator {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Translator{client: client, model: model}
}

func (t *Translator) Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error) {
	prompt := fmt.Sprintf("Translate the following text from %s to %s. Reply with only the translation, no commentary.\n\n%s", sourceLanguage, targetLanguage, text)
	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("openai translation: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai translation: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Synthesizer wraps the TTS endpoint.
type Synthesizer struct {
	client *openai.Client
	voice  string
}

// NewSynthesizer builds a TTS adapter.
func NewSynthesizer(client *openai.Client, voice string) *Synthesizer {
	if voice == "" {
		voice = string(openai.VoiceAlloy)
	}
	return &Synthesizer{client: client, voice: voice}
}

func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts interfaces.SynthesizeOptions) (interfaces.SynthesizeResult, error) {
	voice := s.voice
	if opts.Voice != "" {
		voice = opts.Voice
	}
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return interfaces.SynthesizeResult{}, fmt.Errorf("openai synthesis: %w", err)
	}
	defer resp.Close()

	buf, err := io.ReadAll(resp)
	if err != nil {
		return interfaces.SynthesizeResult{}, fmt.Errorf("openai synthesis read: %w", err)
	}
	return interfaces.SynthesizeResult{
		AudioBuffer:    buf,
		TTSServiceType: "openai",
	}, nil
}
