package usecases

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"infinixai/internal/entities"
	"infinixai/internal/interfaces"
)

const conversationTitleMax = 60

// ChatService answers one customer message: it loads the tenant settings and
// catalog, renders the prompt, asks the model and delivers the reply.
type ChatService struct {
	Normalizer    *Normalizer
	Renderer      *PromptRenderer
	Settings      interfaces.SettingsStore
	Catalog       interfaces.CatalogStore
	AI            interfaces.AIClient
	Costs         *CostCalculator
	Usage         interfaces.UsageStore
	Conversations interfaces.ConversationStore

	messengers map[entities.Channel]interfaces.Messenger
}

func NewChatService(
	normalizer *Normalizer,
	renderer *PromptRenderer,
	settings interfaces.SettingsStore,
	catalog interfaces.CatalogStore,
	ai interfaces.AIClient,
	costs *CostCalculator,
	usage interfaces.UsageStore,
	conversations interfaces.ConversationStore,
) *ChatService {
	return &ChatService{
		Normalizer:    normalizer,
		Renderer:      renderer,
		Settings:      settings,
		Catalog:       catalog,
		AI:            ai,
		Costs:         costs,
		Usage:         usage,
		Conversations: conversations,
		messengers:    make(map[entities.Channel]interfaces.Messenger),
	}
}

// RegisterMessenger sets the outbound transport of a channel.
func (s *ChatService) RegisterMessenger(channel entities.Channel, m interfaces.Messenger) {
	if s.messengers == nil {
		s.messengers = make(map[entities.Channel]interfaces.Messenger)
	}
	s.messengers[channel] = m
}

// Handle normalizes a raw payload and replies to it.
func (s *ChatService) Handle(ctx context.Context, payload any, channel entities.Channel) (entities.InboundMessage, entities.Outcome) {
	req := s.Normalizer.Normalize(payload, channel)
	if req.Skipped() {
		logrus.WithFields(logrus.Fields{
			"channel": channel,
			"reason":  req.Reason,
		}).Debug("[CHAT] Request skipped")
		return req.Message, entities.Skipped(req.Reason)
	}
	return req.Message, s.Reply(ctx, req.Message)
}

// Reply runs the whole pipeline for a normalized message. Storage problems
// after the model answered are logged and do not change the outcome.
func (s *ChatService) Reply(ctx context.Context, msg entities.InboundMessage) entities.Outcome {
	log := logrus.WithFields(logrus.Fields{
		"tenant":  msg.TenantID,
		"channel": msg.Channel,
	})

	if strings.TrimSpace(msg.TenantID) == "" || strings.TrimSpace(msg.Text) == "" {
		return entities.Skipped(entities.ReasonMissingUserOrMessage)
	}

	cfg, found, err := s.Settings.GetTenantConfig(ctx, msg.TenantID)
	if err != nil {
		log.WithError(err).Error("[CHAT] Failed to load settings")
		return entities.Failed(entities.ReasonSettingsError)
	}
	if !found {
		log.Info("[CHAT] Tenant has no settings")
		return entities.Skipped(entities.ReasonNoSettings)
	}

	products, err := s.Catalog.ListByTenant(ctx, msg.TenantID)
	if err != nil {
		log.WithError(err).Warn("[CHAT] Catalog unavailable, rendering without products")
		products = nil
	}

	prompt := s.Renderer.Render(cfg, products, msg.Text)

	comp, err := s.AI.Complete(ctx, prompt)
	if err != nil {
		log.WithError(err).Error("[CHAT] Model call failed")
		return entities.Failed(entities.ReasonModelError)
	}
	reply := strings.TrimSpace(comp.Text)
	if reply == "" {
		log.Warn("[CHAT] Model returned an empty reply")
		return entities.Failed(entities.ReasonModelError)
	}

	out := entities.Outcome{Status: entities.StatusOK, Reply: reply}
	out.Usage = s.recordUsage(ctx, log, msg.TenantID, comp)
	out.ConversationID = s.logConversation(ctx, log, msg, reply)

	if msg.Channel != entities.ChannelWeb && msg.Channel != "" {
		sent := s.send(ctx, msg, reply)
		out.Sent = &sent
		if !sent.OK {
			log.WithFields(logrus.Fields{
				"reason": sent.Reason,
				"detail": sent.Detail,
			}).Warn("[CHAT] Reply not delivered")
			out.Status = entities.StatusError
			out.Reason = entities.ReasonSendFailed
		}
	}

	log.WithFields(logrus.Fields{
		"model":  comp.Model,
		"tokens": comp.TotalTokens(),
	}).Info("[CHAT] Replied")
	return out
}

func (s *ChatService) send(ctx context.Context, msg entities.InboundMessage, reply string) entities.SendResult {
	m, ok := s.messengers[msg.Channel]
	if !ok || m == nil {
		return entities.SendResult{Reason: entities.SendNoChannel}
	}
	return m.SendText(ctx, msg.TenantID, msg.Sender, reply)
}

func (s *ChatService) recordUsage(ctx context.Context, log *logrus.Entry, tenantID string, comp entities.Completion) *entities.UsageLog {
	if s.Costs == nil {
		return nil
	}
	usage := s.Costs.UsageLog(tenantID, comp)
	if s.Usage != nil {
		if err := s.Usage.Record(ctx, usage); err != nil {
			log.WithError(err).Warn("[CHAT] Failed to record usage")
		}
	}
	return usage
}

// logConversation stores both sides of the exchange and returns the
// conversation id. A caller-supplied id is kept only when it belongs to the
// tenant.
func (s *ChatService) logConversation(ctx context.Context, log *logrus.Entry, msg entities.InboundMessage, reply string) string {
	if s.Conversations == nil {
		return msg.ConversationID
	}

	convID := ""
	if msg.ConversationID != "" {
		existing, err := s.Conversations.GetConversation(ctx, msg.TenantID, msg.ConversationID)
		switch {
		case err != nil:
			log.WithError(err).Warn("[CHAT] Conversation lookup failed")
		case existing == nil:
			log.WithField("conversation_id", msg.ConversationID).Warn("[CHAT] Unknown conversation, starting a new one")
		default:
			convID = existing.ID
		}
	}
	if convID == "" && msg.Sender != "" {
		existing, err := s.Conversations.FindByCustomer(ctx, msg.TenantID, msg.Channel, msg.Sender)
		if err != nil {
			log.WithError(err).Warn("[CHAT] Conversation lookup failed")
		} else if existing != nil {
			convID = existing.ID
		}
	}
	if convID == "" {
		conv := &entities.Conversation{
			ID:        uuid.NewString(),
			TenantID:  msg.TenantID,
			Title:     conversationTitle(msg.Text),
			Channel:   msg.Channel,
			Customer:  msg.Sender,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.Conversations.CreateConversation(ctx, conv); err != nil {
			log.WithError(err).Warn("[CHAT] Failed to create conversation")
			return ""
		}
		convID = conv.ID
	}

	now := time.Now().UTC()
	for _, entry := range []entities.ChatLog{
		{Role: entities.RoleCustomer, Message: msg.Text, CreatedAt: now},
		{Role: entities.RoleAssistant, Message: reply, CreatedAt: now},
	} {
		entry.ConversationID = convID
		entry.TenantID = msg.TenantID
		entry.Channel = msg.Channel
		entry.Customer = msg.Sender
		if err := s.Conversations.AppendMessage(ctx, &entry); err != nil {
			log.WithError(err).Warn("[CHAT] Failed to append chat log")
		}
	}
	return convID
}

func conversationTitle(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= conversationTitleMax {
		return text
	}
	runes := []rune(text)
	return string(runes[:conversationTitleMax]) + "…"
}
