package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classbridge/broker/internal/delivery"
	"github.com/classbridge/broker/internal/hub"
	"github.com/classbridge/broker/internal/persistence"
	"github.com/classbridge/broker/internal/providers"
	"github.com/classbridge/broker/internal/providers/stub"
	"github.com/classbridge/broker/pkg/types"
)

// fakeConn captures every message written to it so tests can assert on
// the translated payload without a real websocket.
type fakeConn struct {
	mu   sync.Mutex
	id   string
	sent []types.TranslationMessage
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if msg, ok := v.(types.TranslationMessage); ok {
		c.sent = append(c.sent, msg)
	}
	return nil
}
func (c *fakeConn) WritePing() error                      { return nil }
func (c *fakeConn) Close() error                          { return nil }
func (c *fakeConn) CloseWithCode(code int, reason string) error { return nil }
func (c *fakeConn) ID() string                             { return c.id }

func (c *fakeConn) messages() []types.TranslationMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.TranslationMessage, len(c.sent))
	copy(out, c.sent)
	return out
}

func newTestPipeline(t *testing.T, translator *stub.Translator) (*Pipeline, *hub.Hub) {
	t.Helper()
	log := zap.NewNop().Sugar()
	h := hub.New()
	providerReg := providers.NewRegistry("auto", "openai")
	providerReg.Add("auto", &stub.Synthesizer{ServiceType: "auto"})
	persist := persistence.New(nil, nil, log, false)
	deliverySvc := delivery.New(h, providerReg, persist, log, false)
	return New(translator, deliverySvc, log), h
}

func TestSendTranslations_TranslatesOncePerDistinctLanguage(t *testing.T) {
	translator := &stub.Translator{}
	p, h := newTestPipeline(t, translator)

	spanish := &fakeConn{id: "student-es"}
	french := &fakeConn{id: "student-fr"}
	h.Add(spanish.id, spanish)
	h.Add(french.id, french)

	languages := map[string]string{spanish.id: "es", french.id: "fr"}

	req := Request{
		StudentConnections: []string{spanish.id, french.id},
		OriginalText:       "hello class",
		SourceLanguage:      "en",
		SessionID:            "session-1",
		StartTime:            time.Now(),
		GetLanguage:          func(connID string) string { return languages[connID] },
		GetClientSettings:    func(connID string) types.ClientSettings { return types.ClientSettings{} },
	}

	p.SendTranslations(context.Background(), req)

	esMsgs := spanish.messages()
	frMsgs := french.messages()
	require.Len(t, esMsgs, 1)
	require.Len(t, frMsgs, 1)
	assert.Equal(t, "[es] hello class", esMsgs[0].Text)
	assert.Equal(t, "[fr] hello class", frMsgs[0].Text)
	assert.Equal(t, "hello class", esMsgs[0].OriginalText)
}

func TestSendTranslations_FallsBackToOriginalOnTranslationFailure(t *testing.T) {
	translator := &stub.Translator{FailForLanguage: "de"}
	p, h := newTestPipeline(t, translator)

	student := &fakeConn{id: "student-de"}
	h.Add(student.id, student)

	req := Request{
		StudentConnections: []string{student.id},
		OriginalText:       "good morning",
		SourceLanguage:      "en",
		SessionID:            "session-1",
		StartTime:            time.Now(),
		GetLanguage:          func(connID string) string { return "de" },
		GetClientSettings:    func(connID string) types.ClientSettings { return types.ClientSettings{} },
	}

	p.SendTranslations(context.Background(), req)

	msgs := student.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "good morning", msgs[0].Text)
}

func TestSendTranslations_SkipsStudentsWithNoLanguageSet(t *testing.T) {
	translator := &stub.Translator{}
	p, h := newTestPipeline(t, translator)

	student := &fakeConn{id: "student-nolang"}
	h.Add(student.id, student)

	req := Request{
		StudentConnections: []string{student.id},
		OriginalText:       "hi",
		SourceLanguage:      "en",
		SessionID:            "session-1",
		StartTime:            time.Now(),
		GetLanguage:          func(connID string) string { return "" },
		GetClientSettings:    func(connID string) types.ClientSettings { return types.ClientSettings{} },
	}

	p.SendTranslations(context.Background(), req)

	assert.Empty(t, student.messages())
}
