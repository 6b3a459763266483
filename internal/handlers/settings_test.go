package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classbridge/broker/internal/dispatch"
	"github.com/classbridge/broker/pkg/types"
)

func TestSettingsHandler_AppliesLegacyFieldThenSettingsObject(t *testing.T) {
	d := testDeps()
	d.Registry.Add("conn-1")

	h := &SettingsHandler{Deps: d}
	conn := &fakeConn{id: "conn-1"}
	hc := &dispatch.HandlerContext{ConnID: "conn-1", Conn: conn}

	err := h.Handle(context.Background(), hc, []byte(`{
		"type": "settings",
		"ttsServiceType": "openai",
		"settings": {"translationMode": "manual"}
	}`))
	require.NoError(t, err)

	attrs, _ := d.Registry.Get("conn-1")
	assert.Equal(t, "openai", attrs.Settings.TTSServiceType)
	assert.Equal(t, "manual", attrs.Settings.TranslationMode)

	require.Len(t, conn.sent, 1)
	ack, ok := conn.sent[0].(types.SettingsAckMessage)
	require.True(t, ok)
	assert.Equal(t, "success", ack.Status)
}

func TestSettingsHandler_NormalizesUnknownModesToAuto(t *testing.T) {
	d := testDeps()
	d.Registry.Add("conn-1")

	h := &SettingsHandler{Deps: d}
	conn := &fakeConn{id: "conn-1"}
	hc := &dispatch.HandlerContext{ConnID: "conn-1", Conn: conn}

	err := h.Handle(context.Background(), hc, []byte(`{
		"type": "settings",
		"settings": {"translationMode": "whatever"}
	}`))
	require.NoError(t, err)

	attrs, _ := d.Registry.Get("conn-1")
	assert.Equal(t, "auto", attrs.Settings.TranslationMode)
}
