package usecases

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infinixai/internal/entities"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestExtractText(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    string
	}{
		{"z-api text.message", `{"text":{"message":" oi "}}`, "oi"},
		{"message object", `{"message":{"message":"quanto custa?"}}`, "quanto custa?"},
		{"message.text", `{"message":{"text":"olá"}}`, "olá"},
		{"plain message", `{"message":"bom dia"}`, "bom dia"},
		{"plain text", `{"text":"boa tarde"}`, "boa tarde"},
		{"body", `{"body":"boa noite"}`, "boa noite"},
		{"number message", `{"message":42}`, "42"},
		{"text.message wins over message", `{"text":{"message":"a"},"message":"b"}`, "a"},
		{"empty message falls through to body", `{"message":"  ","body":"c"}`, "c"},
		{
			"cloud api",
			`{"object":"whatsapp_business_account","entry":[{"changes":[{"value":{"messages":[{"from":"5511","type":"text","text":{"body":"preço?"}}]}}]}]}`,
			"preço?",
		},
		{"nothing", `{"foo":"bar"}`, ""},
		{"array payload", `["oi"]`, ""},
		{"null", `null`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractText(decode(t, tc.payload)))
		})
	}
}

func TestExtractText_ObjectMessage(t *testing.T) {
	payload := map[string]any{"message": map[string]any{"message": "quanto custa?"}}
	assert.Equal(t, "quanto custa?", ExtractText(payload))
}

func TestResolveTenantID(t *testing.T) {
	assert.Equal(t, "t-1", ResolveTenantID(map[string]any{"tenantId": "t-1", "userId": "u-1"}, "def"))
	assert.Equal(t, "u-1", ResolveTenantID(map[string]any{"userId": " u-1 "}, "def"))
	assert.Equal(t, "u-2", ResolveTenantID(map[string]any{"user_id": "u-2"}, "def"))
	assert.Equal(t, "def", ResolveTenantID(map[string]any{"userId": "  "}, " def "))
	assert.Equal(t, "def", ResolveTenantID("not an object", "def"))
	assert.Equal(t, "", ResolveTenantID(map[string]any{}, ""))
	assert.Equal(t, "7", ResolveTenantID(map[string]any{"userId": 7}, ""))
}

func TestClassifyRequest(t *testing.T) {
	assert.True(t, ClassifyRequest(map[string]any{"userId": "u"}).IsInternal)
	assert.True(t, ClassifyRequest(map[string]any{"tenant_id": "t"}).IsInternal)
	assert.False(t, ClassifyRequest(map[string]any{"userId": ""}).IsInternal)
	assert.False(t, ClassifyRequest(map[string]any{"userId": nil}).IsInternal)
	assert.False(t, ClassifyRequest(map[string]any{"phone": "5511"}).IsInternal)
	assert.False(t, ClassifyRequest(nil).IsInternal)
}

func TestNormalize_WebhookUsesDefaultTenant(t *testing.T) {
	n := NewNormalizer("tenant-default")

	got := n.Normalize(decode(t, `{"text":{"message":"oi"},"phone":"5511999998888"}`), entities.ChannelZAPI)

	require.False(t, got.Skipped())
	assert.Equal(t, "tenant-default", got.Message.TenantID)
	assert.Equal(t, "oi", got.Message.Text)
	assert.Equal(t, "5511999998888", got.Message.Sender)
	assert.Equal(t, entities.ChannelZAPI, got.Message.Channel)
	assert.False(t, got.Message.Internal)
}

func TestNormalize_Internal(t *testing.T) {
	n := NewNormalizer("tenant-default")

	got := n.Normalize(decode(t, `{"userId":"u-9","message":"tem caneta?","conversationId":"c-1"}`), entities.ChannelWeb)

	require.False(t, got.Skipped())
	assert.True(t, got.Message.Internal)
	assert.Equal(t, "u-9", got.Message.TenantID)
	assert.Equal(t, "tem caneta?", got.Message.Text)
	assert.Equal(t, "c-1", got.Message.ConversationID)
}

func TestNormalize_CloudAPISender(t *testing.T) {
	n := NewNormalizer("t")
	payload := decode(t, `{"entry":[{"changes":[{"value":{"messages":[{"from":"5521988887777","text":{"body":"oi"}}]}}]}]}`)

	got := n.Normalize(payload, entities.ChannelCloudAPI)

	require.False(t, got.Skipped())
	assert.Equal(t, "5521988887777", got.Message.Sender)
	assert.Equal(t, "oi", got.Message.Text)
}

func TestNormalize_SkipReasons(t *testing.T) {
	cases := []struct {
		name    string
		def     string
		payload any
		reason  string
	}{
		{"not an object", "t", "oi", entities.ReasonUnparsedPayload},
		{"nil payload", "t", nil, entities.ReasonUnparsedPayload},
		{"no text", "t", map[string]any{"phone": "1"}, entities.ReasonMissingUserOrMessage},
		{"blank text", "t", map[string]any{"message": "   "}, entities.ReasonMissingUserOrMessage},
		{"no tenant and no default", "", map[string]any{"message": "oi"}, entities.ReasonMissingUserOrMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NewNormalizer(tc.def).Normalize(tc.payload, entities.ChannelWeb)
			assert.True(t, got.Skipped())
			assert.Equal(t, tc.reason, got.Reason)
		})
	}
}

func TestNormalize_CustomStrategies(t *testing.T) {
	n := &Normalizer{
		DefaultTenantID: "t",
		Strategies: []ExtractionStrategy{
			{Name: "caption", Extract: fieldPath("image", "caption")},
			{Name: "boom", Extract: func(map[string]any) (string, bool) { panic("bad strategy") }},
		},
	}

	got := n.Normalize(map[string]any{"image": map[string]any{"caption": "foto"}}, entities.ChannelWeb)
	assert.Equal(t, "foto", got.Message.Text)

	assert.NotPanics(t, func() {
		got = n.Normalize(map[string]any{"message": "ignored"}, entities.ChannelWeb)
	})
	assert.Equal(t, entities.ReasonMissingUserOrMessage, got.Reason)
}
