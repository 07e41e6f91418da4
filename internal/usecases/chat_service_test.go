package usecases

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infinixai/internal/entities"
)

type chatFixture struct {
	svc       *ChatService
	settings  *fakeSettings
	catalog   *fakeCatalog
	ai        *fakeAI
	usage     *fakeUsage
	convs     *fakeConversations
	messenger *fakeMessenger
}

func newChatFixture() *chatFixture {
	f := &chatFixture{
		settings: &fakeSettings{configs: map[string]entities.TenantConfig{
			"t1": {entities.SettingCompanyName: "Papelaria Central"},
		}},
		catalog: &fakeCatalog{products: map[string][]entities.ProductEntry{
			"t1": {{Name: "Caneta", Price: price(1.5), Active: entities.Active}},
		}},
		ai:        &fakeAI{reply: "  Temos sim! A caneta custa R$ 1,50.  "},
		usage:     &fakeUsage{},
		convs:     &fakeConversations{},
		messenger: &fakeMessenger{result: entities.SendResult{OK: true}},
	}
	f.svc = NewChatService(
		NewNormalizer("t1"),
		NewPromptRenderer(DefaultPromptLocale(), DefaultCatalogCap),
		f.settings, f.catalog, f.ai,
		NewCostCalculator(5),
		f.usage, f.convs,
	)
	f.svc.RegisterMessenger(entities.ChannelZAPI, f.messenger)
	return f
}

func TestChatService_InternalReply(t *testing.T) {
	f := newChatFixture()

	msg, out := f.svc.Handle(context.Background(), map[string]any{"userId": "t1", "message": "tem caneta?"}, entities.ChannelWeb)

	require.Equal(t, entities.StatusOK, out.Status, out.Reason)
	assert.True(t, msg.Internal)
	assert.Equal(t, "Temos sim! A caneta custa R$ 1,50.", out.Reply)
	assert.NotEmpty(t, out.ConversationID)
	assert.Nil(t, out.Sent, "web replies are returned, not sent")

	require.Len(t, f.ai.prompts, 1)
	assert.Contains(t, f.ai.prompts[0], "Papelaria Central")
	assert.Contains(t, f.ai.prompts[0], "• Caneta - R$ 1.50")
	assert.True(t, strings.HasSuffix(f.ai.prompts[0], `"tem caneta?"`))

	require.Len(t, f.usage.logs, 1)
	assert.Equal(t, 1500, f.usage.logs[0].TotalTokens)
	assert.InDelta(t, 0.00045, f.usage.logs[0].CostUSD, 1e-12)
	require.NotNil(t, f.usage.logs[0].CostBRL)
	assert.InDelta(t, 0.00225, *f.usage.logs[0].CostBRL, 1e-12)

	require.Len(t, f.convs.logs, 2)
	assert.Equal(t, entities.RoleCustomer, f.convs.logs[0].Role)
	assert.Equal(t, entities.RoleAssistant, f.convs.logs[1].Role)
	assert.Equal(t, out.ConversationID, f.convs.logs[1].ConversationID)
}

func TestChatService_WebhookSendsReply(t *testing.T) {
	f := newChatFixture()

	_, out := f.svc.Handle(context.Background(), map[string]any{
		"phone": "5511999998888",
		"text":  map[string]any{"message": "oi"},
	}, entities.ChannelZAPI)

	require.Equal(t, entities.StatusOK, out.Status)
	require.Len(t, f.messenger.sent, 1)
	assert.Equal(t, sentMessage{"t1", "5511999998888", out.Reply}, f.messenger.sent[0])
	require.NotNil(t, out.Sent)
	assert.True(t, out.Sent.OK)
}

func TestChatService_ReusesCustomerConversation(t *testing.T) {
	f := newChatFixture()
	payload := map[string]any{"phone": "5511", "text": map[string]any{"message": "oi"}}

	_, first := f.svc.Handle(context.Background(), payload, entities.ChannelZAPI)
	_, second := f.svc.Handle(context.Background(), payload, entities.ChannelZAPI)

	assert.Equal(t, first.ConversationID, second.ConversationID)
	assert.Len(t, f.convs.convs, 1)
	assert.Len(t, f.convs.logs, 4)
}

func TestChatService_SendFailure(t *testing.T) {
	f := newChatFixture()
	f.messenger.result = entities.SendResult{Reason: entities.SendZAPIError}

	_, out := f.svc.Handle(context.Background(), map[string]any{"phone": "1", "body": "oi"}, entities.ChannelZAPI)

	assert.Equal(t, entities.StatusError, out.Status)
	assert.Equal(t, entities.ReasonSendFailed, out.Reason)
	assert.Equal(t, entities.SendZAPIError, out.Sent.Reason)
	assert.NotEmpty(t, out.Reply)
}

func TestChatService_NoMessengerForChannel(t *testing.T) {
	f := newChatFixture()

	_, out := f.svc.Handle(context.Background(), map[string]any{"phone": "1", "body": "oi"}, entities.ChannelCloudAPI)

	assert.Equal(t, entities.ReasonSendFailed, out.Reason)
	assert.Equal(t, entities.SendNoChannel, out.Sent.Reason)
}

func TestChatService_Skips(t *testing.T) {
	f := newChatFixture()

	_, out := f.svc.Handle(context.Background(), map[string]any{"userId": "t1"}, entities.ChannelWeb)
	assert.Equal(t, entities.Skipped(entities.ReasonMissingUserOrMessage), out)

	_, out = f.svc.Handle(context.Background(), []any{"oi"}, entities.ChannelWeb)
	assert.Equal(t, entities.Skipped(entities.ReasonUnparsedPayload), out)

	_, out = f.svc.Handle(context.Background(), map[string]any{"userId": "ghost", "message": "oi"}, entities.ChannelWeb)
	assert.Equal(t, entities.Skipped(entities.ReasonNoSettings), out)

	assert.Empty(t, f.ai.prompts)
}

func TestChatService_SettingsError(t *testing.T) {
	f := newChatFixture()
	f.settings.err = errBoom

	_, out := f.svc.Handle(context.Background(), map[string]any{"userId": "t1", "message": "oi"}, entities.ChannelWeb)

	assert.Equal(t, entities.Failed(entities.ReasonSettingsError), out)
}

func TestChatService_ModelError(t *testing.T) {
	f := newChatFixture()
	f.ai.err = errBoom

	_, out := f.svc.Handle(context.Background(), map[string]any{"userId": "t1", "message": "oi"}, entities.ChannelWeb)

	assert.Equal(t, entities.Failed(entities.ReasonModelError), out)
	assert.Empty(t, f.usage.logs)
	assert.Empty(t, f.convs.logs)
}

func TestChatService_EmptyModelReply(t *testing.T) {
	f := newChatFixture()
	f.ai.reply = "   "

	_, out := f.svc.Handle(context.Background(), map[string]any{"userId": "t1", "message": "oi"}, entities.ChannelWeb)

	assert.Equal(t, entities.ReasonModelError, out.Reason)
}

func TestChatService_CatalogFailureDegrades(t *testing.T) {
	f := newChatFixture()
	f.catalog.err = errBoom

	_, out := f.svc.Handle(context.Background(), map[string]any{"userId": "t1", "message": "oi"}, entities.ChannelWeb)

	require.Equal(t, entities.StatusOK, out.Status)
	assert.Contains(t, f.ai.prompts[0], "Nenhum produto cadastrado")
}

func TestChatService_StorageFailuresDoNotChangeOutcome(t *testing.T) {
	f := newChatFixture()
	f.convs.convs = []entities.Conversation{{ID: "c-7", TenantID: "t1", Channel: entities.ChannelWeb}}
	f.usage.err = errBoom
	f.convs.err = errBoom

	_, out := f.svc.Handle(context.Background(), map[string]any{"userId": "t1", "message": "oi", "conversationId": "c-7"}, entities.ChannelWeb)

	assert.Equal(t, entities.StatusOK, out.Status)
	assert.Equal(t, "c-7", out.ConversationID)
	assert.NotNil(t, out.Usage)
}

func TestChatService_KeepsOwnConversation(t *testing.T) {
	f := newChatFixture()
	f.convs.convs = []entities.Conversation{{ID: "conv-t1", TenantID: "t1", Channel: entities.ChannelWeb}}

	_, out := f.svc.Handle(context.Background(), map[string]any{"userId": "t1", "message": "oi", "conversationId": "conv-t1"}, entities.ChannelWeb)

	require.Equal(t, entities.StatusOK, out.Status, out.Reason)
	assert.Equal(t, "conv-t1", out.ConversationID)
	assert.Len(t, f.convs.convs, 1)
	require.Len(t, f.convs.logs, 2)
	assert.Equal(t, "conv-t1", f.convs.logs[0].ConversationID)
}

func TestChatService_IgnoresForeignConversation(t *testing.T) {
	f := newChatFixture()
	f.convs.convs = []entities.Conversation{{ID: "conv-t2", TenantID: "t2", Channel: entities.ChannelWeb}}

	_, out := f.svc.Handle(context.Background(), map[string]any{"userId": "t1", "message": "oi", "conversationId": "conv-t2"}, entities.ChannelWeb)

	require.Equal(t, entities.StatusOK, out.Status, out.Reason)
	assert.NotEqual(t, "conv-t2", out.ConversationID)
	assert.NotEmpty(t, out.ConversationID)
	require.Len(t, f.convs.logs, 2)
	for _, l := range f.convs.logs {
		assert.Equal(t, "t1", l.TenantID)
		assert.Equal(t, out.ConversationID, l.ConversationID)
	}
}

func TestChatService_UnknownConversationStartsNew(t *testing.T) {
	f := newChatFixture()

	_, out := f.svc.Handle(context.Background(), map[string]any{"userId": "t1", "message": "oi", "conversationId": "missing"}, entities.ChannelWeb)

	require.Equal(t, entities.StatusOK, out.Status, out.Reason)
	assert.NotEqual(t, "missing", out.ConversationID)
	require.Len(t, f.convs.convs, 1)
	assert.Equal(t, out.ConversationID, f.convs.convs[0].ID)
}

func TestConversationTitle(t *testing.T) {
	assert.Equal(t, "oi tudo bem", conversationTitle("  oi\n tudo   bem "))

	long := strings.Repeat("á", 80)
	title := conversationTitle(long)
	assert.Equal(t, strings.Repeat("á", 60)+"…", title)
}
