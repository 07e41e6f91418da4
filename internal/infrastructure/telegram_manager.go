package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"infinixai/internal/entities"
)

// TelegramBotInstance is one tenant's running bot.
type TelegramBotInstance struct {
	Bot      *tgbotapi.BotAPI
	TenantID string
	stop     chan struct{}
	running  bool
	mu       sync.Mutex
}

func (b *TelegramBotInstance) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// TelegramBotManager runs one bot per tenant. Inbound text goes to
// OnMessage; replies come back through SendText.
type TelegramBotManager struct {
	bots map[string]*TelegramBotInstance
	mu   sync.RWMutex

	// Endpoint is the Bot API URL pattern, tgbotapi.APIEndpoint by default.
	Endpoint   string
	HTTPClient *http.Client

	OnMessage func(ctx context.Context, msg entities.InboundMessage)
}

func NewTelegramBotManager() *TelegramBotManager {
	return &TelegramBotManager{
		bots:       make(map[string]*TelegramBotInstance),
		Endpoint:   tgbotapi.APIEndpoint,
		HTTPClient: &http.Client{Timeout: 90 * time.Second},
	}
}

func (m *TelegramBotManager) newBot(token string) (*tgbotapi.BotAPI, error) {
	return tgbotapi.NewBotAPIWithClient(token, m.Endpoint, m.HTTPClient)
}

// GetBot returns the tenant's bot, nil if not connected.
func (m *TelegramBotManager) GetBot(tenantID string) *TelegramBotInstance {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bots[tenantID]
}

// ValidateToken checks a token against the Bot API and returns the bot username.
func (m *TelegramBotManager) ValidateToken(token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("invalid token: empty")
	}
	bot, err := m.newBot(token)
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	return bot.Self.UserName, nil
}

// ConnectBot starts polling with the tenant's token. An already running bot
// is returned as is.
func (m *TelegramBotManager) ConnectBot(tenantID, token string) (*TelegramBotInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.bots[tenantID]; ok && existing.IsRunning() {
		return existing, nil
	}

	bot, err := m.newBot(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	instance := &TelegramBotInstance{
		Bot:      bot,
		TenantID: tenantID,
		stop:     make(chan struct{}),
		running:  true,
	}
	m.bots[tenantID] = instance

	go m.startPolling(instance)

	return instance, nil
}

func (m *TelegramBotManager) startPolling(instance *TelegramBotInstance) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := instance.Bot.GetUpdatesChan(u)

	log := logrus.WithFields(logrus.Fields{"tenant_id": instance.TenantID, "bot": instance.Bot.Self.UserName})
	log.Info("[TG Bot] Started polling")

	for {
		select {
		case <-instance.stop:
			instance.Bot.StopReceivingUpdates()
			instance.mu.Lock()
			instance.running = false
			instance.mu.Unlock()
			log.Info("[TG Bot] Stopped polling")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			m.handleUpdate(instance.TenantID, update)
		}
	}
}

// handleUpdate forwards plain text messages. Commands and non-text updates
// are ignored.
func (m *TelegramBotManager) handleUpdate(tenantID string, update tgbotapi.Update) {
	msg, ok := inboundFromUpdate(tenantID, update)
	if !ok || m.OnMessage == nil {
		return
	}
	go m.OnMessage(context.Background(), msg)
}

func inboundFromUpdate(tenantID string, update tgbotapi.Update) (entities.InboundMessage, bool) {
	if update.Message == nil || update.Message.Chat == nil || update.Message.IsCommand() {
		return entities.InboundMessage{}, false
	}
	text := strings.TrimSpace(update.Message.Text)
	if text == "" {
		return entities.InboundMessage{}, false
	}
	return entities.InboundMessage{
		TenantID:   tenantID,
		Sender:     strconv.FormatInt(update.Message.Chat.ID, 10),
		Text:       text,
		Channel:    entities.ChannelTelegram,
		RawPayload: update,
		ReceivedAt: time.Now(),
	}, true
}

// DisconnectBot stops a tenant's bot.
func (m *TelegramBotManager) DisconnectBot(tenantID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if instance, ok := m.bots[tenantID]; ok {
		close(instance.stop)
		delete(m.bots, tenantID)
	}
}

// GetStatus returns connection status for a tenant.
func (m *TelegramBotManager) GetStatus(tenantID string) (connected bool, botName string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if instance, ok := m.bots[tenantID]; ok && instance.IsRunning() {
		return true, instance.Bot.Self.UserName
	}
	return false, ""
}

// DisconnectAll stops all bots (for graceful shutdown).
func (m *TelegramBotManager) DisconnectAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, instance := range m.bots {
		close(instance.stop)
	}
	m.bots = make(map[string]*TelegramBotInstance)
}

// SendText replies through the tenant's bot. to is the chat id.
func (m *TelegramBotManager) SendText(_ context.Context, tenantID, to, text string) entities.SendResult {
	chatID, err := strconv.ParseInt(strings.TrimSpace(to), 10, 64)
	if err != nil || strings.TrimSpace(text) == "" {
		return entities.SendResult{Reason: entities.SendPhoneOrTextEmpty}
	}

	m.mu.RLock()
	instance, ok := m.bots[tenantID]
	m.mu.RUnlock()
	if !ok {
		return entities.SendResult{Reason: entities.SendNoChannel, Detail: "bot not connected"}
	}

	if _, err := instance.Bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		logrus.WithError(err).WithField("tenant_id", tenantID).Error("[TG Bot] Send failed")
		return entities.SendResult{Reason: entities.SendProviderError, Detail: err.Error()}
	}
	return entities.SendResult{OK: true}
}
