package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3/option"
	"github.com/sirupsen/logrus"

	"infinixai/internal/config"
	"infinixai/internal/entities"
	"infinixai/internal/infrastructure"
	"infinixai/internal/interfaces"
	httpapi "infinixai/internal/interfaces/http"
	"infinixai/internal/repository"
	"infinixai/internal/usecases"
)

// app holds the wired components of a running service.
type app struct {
	cfg *config.Config

	settings      *repository.SettingsRepository
	products      *repository.ProductRepository
	conversations *repository.ConversationRepository
	usage         *repository.UsageRepository
	users         *repository.UserRepository
	tenants       *repository.TenantManager

	renderer  *usecases.PromptRenderer
	chat      *usecases.ChatService
	auth      *usecases.AuthUsecase
	dashboard *usecases.DashboardUsecase
	report    *usecases.UsageReport

	telegram *infrastructure.TelegramBotManager
	whatsapp *infrastructure.WhatsAppManager
}

// newStorage wires the repositories and the prompt renderer, which is all
// the prompt command needs.
func newStorage(cfg *config.Config, db *sql.DB) (*app, error) {
	locale := usecases.DefaultPromptLocale()
	if cfg.Chat.PromptLocale != "" {
		loaded, err := usecases.LoadPromptLocale(cfg.Chat.PromptLocale)
		if err != nil {
			return nil, fmt.Errorf("load prompt locale: %w", err)
		}
		locale = loaded
	}

	a := &app{
		cfg:           cfg,
		settings:      repository.NewSettingsRepository(db),
		products:      repository.NewProductRepository(db),
		conversations: repository.NewConversationRepository(db),
		usage:         repository.NewUsageRepository(db),
		users:         repository.NewUserRepository(db),
		tenants:       repository.NewTenantManager(db),
		renderer:      usecases.NewPromptRenderer(locale, cfg.Chat.CatalogCap),
	}
	a.dashboard = usecases.NewDashboardUsecase(a.settings, a.products, a.conversations, a.renderer)
	return a, nil
}

// newApp wires the whole service on top of db.
func newApp(ctx context.Context, cfg *config.Config, db *sql.DB) (*app, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	a, err := newStorage(cfg, db)
	if err != nil {
		return nil, err
	}

	ai, err := newAIClient(ctx, cfg.AI)
	if err != nil {
		return nil, err
	}

	costs := usecases.NewCostCalculator(cfg.Chat.USDToBRL)
	a.chat = usecases.NewChatService(
		usecases.NewNormalizer(cfg.Chat.DefaultTenantID),
		a.renderer,
		a.settings,
		a.products,
		ai,
		costs,
		a.usage,
		a.conversations,
	)
	a.auth = usecases.NewAuthUsecase(a.users, a.tenants, cfg.Auth.JWTSecret)
	a.report = usecases.NewUsageReport(a.usage, a.settings, costs)

	a.telegram = infrastructure.NewTelegramBotManager()
	a.telegram.OnMessage = a.reply
	a.whatsapp = infrastructure.NewWhatsAppManager(cfg.WhatsApp.DevicesDir, cfg.WhatsApp.LogLevel)
	a.whatsapp.OnMessage = a.reply

	a.chat.RegisterMessenger(entities.ChannelZAPI, infrastructure.NewZAPIClient(infrastructure.ZAPIConfig{
		InstanceID:  cfg.ZAPI.InstanceID,
		Token:       cfg.ZAPI.Token,
		ClientToken: cfg.ZAPI.ClientToken,
		BaseURL:     cfg.ZAPI.BaseURL,
	}))
	a.chat.RegisterMessenger(entities.ChannelCloudAPI, infrastructure.NewCloudAPIClient(infrastructure.CloudAPIConfig{
		AccessToken:   cfg.CloudAPI.AccessToken,
		PhoneNumberID: cfg.CloudAPI.PhoneNumberID,
		URL:           cfg.CloudAPI.URL,
	}))
	a.chat.RegisterMessenger(entities.ChannelTelegram, a.telegram)
	a.chat.RegisterMessenger(entities.ChannelWhatsApp, a.whatsapp)

	return a, nil
}

func newAIClient(ctx context.Context, cfg config.AIConfig) (interfaces.AIClient, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		client, err := infrastructure.NewGeminiClient(ctx, cfg.GeminiKey, cfg.GeminiModel, cfg.GeminiBaseURL)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		return client, nil
	default:
		if cfg.OpenAIKey == "" {
			return nil, errors.New("OPENAI_API_KEY is required")
		}
		var opts []option.RequestOption
		if cfg.OpenAIBaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.OpenAIBaseURL))
		}
		return infrastructure.NewOpenAIClient(cfg.OpenAIKey, cfg.OpenAIModel, opts...), nil
	}
}

// reply answers a message received by a polling channel (Telegram bot or
// linked WhatsApp device).
func (a *app) reply(ctx context.Context, msg entities.InboundMessage) {
	out := a.chat.Reply(ctx, msg)
	logrus.WithFields(logrus.Fields{
		"tenant_id": msg.TenantID,
		"channel":   msg.Channel,
		"status":    out.Status,
		"reason":    out.Reason,
	}).Info("[CHAT] Channel message handled")
}

// restoreChannels reconnects the Telegram bots and WhatsApp devices that
// were connected before the restart.
func (a *app) restoreChannels(ctx context.Context) {
	tokens, err := a.settings.TenantsWithSetting(ctx, entities.SettingTelegramToken)
	if err != nil {
		logrus.WithError(err).Warn("[TG Bot] Could not load stored tokens")
	}
	for tenantID, token := range tokens {
		if _, err := a.telegram.ConnectBot(tenantID, token); err != nil {
			logrus.WithError(err).WithField("tenant_id", tenantID).Warn("[TG Bot] Could not restore bot")
		}
	}

	restored := a.whatsapp.RestoreSessions(ctx)
	logrus.WithFields(logrus.Fields{
		"telegram": len(tokens),
		"whatsapp": restored,
	}).Info("Channels restored")
}

// routes returns the HTTP dependencies of the running service.
func (a *app) routes() httpapi.Deps {
	return httpapi.Deps{
		Chat:      a.chat,
		Auth:      a.auth,
		Dashboard: a.dashboard,
		Usage:     a.report,
		Companies: a.settings,
		Logs:      a.conversations,
		Users:     a.users,
		Tenants:   a.tenants,
		Channels:  a.settings,
		Telegram:  a.telegram,
		WhatsApp:  a.whatsapp,
		Webhooks: httpapi.WebhookConfig{
			VerifyToken: a.cfg.CloudAPI.VerifyToken,
			AppSecret:   a.cfg.CloudAPI.AppSecret,
		},
	}
}

func (a *app) shutdown() {
	a.telegram.DisconnectAll()
	a.whatsapp.DisconnectAll()
}
