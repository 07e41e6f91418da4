package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"infinixai/internal/entities"
	"infinixai/internal/infrastructure"
	"infinixai/internal/interfaces"
	"infinixai/internal/repository"
	"infinixai/internal/usecases"
)

const maxRequestBytes = 10 << 20

// ChatHandler normalizes a raw inbound payload and answers it.
type ChatHandler interface {
	Handle(ctx context.Context, payload any, channel entities.Channel) (entities.InboundMessage, entities.Outcome)
}

type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, *entities.User, error)
	Register(ctx context.Context, username, password, companyName string) (*entities.User, error)
}

// Dashboard is the tenant-scoped dashboard API.
type Dashboard interface {
	GetSettings(ctx context.Context, tenantID string) (map[string]string, error)
	SaveSettings(ctx context.Context, tenantID string, input map[string]any) error
	ListProducts(ctx context.Context, tenantID string) ([]entities.ProductEntry, error)
	CreateProduct(ctx context.Context, tenantID string, p *entities.ProductEntry) error
	UpdateProduct(ctx context.Context, tenantID string, p *entities.ProductEntry) error
	ToggleProduct(ctx context.Context, tenantID, id string) (entities.ActiveState, error)
	DeleteProduct(ctx context.Context, tenantID, id string) error
	ImportProducts(ctx context.Context, tenantID string, data io.Reader) (int, error)
	PreviewPrompt(ctx context.Context, tenantID string, message any) (string, error)
	ListConversations(ctx context.Context, tenantID string) ([]entities.Conversation, error)
	ListMessages(ctx context.Context, tenantID, conversationID string) ([]entities.ChatLog, error)
}

type UsageReporter interface {
	Summary(ctx context.Context, from, to time.Time) (*entities.UsageSummary, error)
}

type UserAdmin interface {
	List(ctx context.Context) ([]entities.User, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// TenantDropper removes every row a tenant owns.
type TenantDropper interface {
	Drop(ctx context.Context, tenantID string) error
}

// ChannelSettings stores per-tenant channel credentials outside the
// dashboard settings form.
type ChannelSettings interface {
	SettingText(ctx context.Context, tenantID, key string) (string, error)
	SetSetting(ctx context.Context, tenantID, key string, value any) error
	DeleteSetting(ctx context.Context, tenantID, key string) error
}

type TelegramChannel interface {
	ValidateToken(token string) (string, error)
	ConnectBot(tenantID, token string) (*infrastructure.TelegramBotInstance, error)
	DisconnectBot(tenantID string)
	GetStatus(tenantID string) (connected bool, botName string)
}

type WhatsAppChannel interface {
	Connect(ctx context.Context, tenantID string) (infrastructure.WhatsAppStatus, error)
	Status(tenantID string) infrastructure.WhatsAppStatus
	PairingCode(ctx context.Context, tenantID string) (code string, loggedIn bool, err error)
	LogoutClient(tenantID string) error
}

// WebhookConfig holds the Cloud API webhook secrets. An empty AppSecret
// disables signature checks.
type WebhookConfig struct {
	VerifyToken string
	AppSecret   string
}

// Deps collects everything the routes need. Nil channel managers disable
// their routes' work and report "not configured".
type Deps struct {
	Chat      ChatHandler
	Auth      Authenticator
	Dashboard Dashboard
	Usage     UsageReporter
	Companies interfaces.CompanyDirectory
	Logs      interfaces.ConversationReader
	Users     UserAdmin
	Tenants   TenantDropper
	Channels  ChannelSettings
	Telegram  TelegramChannel
	WhatsApp  WhatsAppChannel
	Webhooks  WebhookConfig
}

type Handler struct {
	Deps
}

func NewHandler(deps Deps) *Handler {
	return &Handler{Deps: deps}
}

func SetupRoutes(r *gin.Engine, deps Deps, middleware *Middleware) {
	h := NewHandler(deps)

	r.Use(RequestLogger())
	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(maxRequestBytes))
	r.Use(middleware.CORSMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	// Inbound messages
	r.POST("/api/chat", h.HandleChat)
	r.GET("/api/webhook", h.WebhookHealth)
	r.POST("/api/webhook", h.HandleZAPIWebhook)
	r.GET("/api/webhook-whatsapp", h.VerifyCloudAPIWebhook)
	r.POST("/api/webhook-whatsapp", h.HandleCloudAPIWebhook)

	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/login", h.Login)
		authGroup.POST("/register", h.Register)
	}

	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	api.Use(middleware.RateLimitPerUser(10, 20))
	{
		h.registerDashboardRoutes(api)
		h.registerTelegramRoutes(api)
		h.registerWhatsAppRoutes(api)
	}

	admin := r.Group("/api/admin")
	admin.Use(middleware.AuthRequired())
	admin.Use(middleware.AdminOnly())
	{
		h.registerAdminRoutes(admin)
	}
}

func (h *Handler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	req.Username = SanitizeString(req.Username)
	if err := validateLogin(req); err != nil {
		respondError(c, err)
		return
	}

	token, user, err := h.Auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (h *Handler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	req.Username = SanitizeString(req.Username)
	req.CompanyName = SanitizeString(req.CompanyName)
	if err := validateRegister(req); err != nil {
		respondError(c, err)
		return
	}

	user, err := h.Auth.Register(c.Request.Context(), req.Username, req.Password, req.CompanyName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// httpError is implemented by errors that carry their own status.
type httpError interface {
	error
	ErrCode() string
	StatusCode() int
}

// respondError maps usecase and repository errors to a JSON error body.
// Unknown errors are logged and reported without detail.
func respondError(c *gin.Context, err error) {
	var he httpError
	switch {
	case errors.As(err, &he):
		c.JSON(he.StatusCode(), gin.H{"error": he.Error(), "code": he.ErrCode()})
	case errors.Is(err, usecases.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
	case errors.Is(err, usecases.ErrUserDisabled):
		c.JSON(http.StatusForbidden, gin.H{"error": "User is disabled"})
	case errors.Is(err, usecases.ErrUsernameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "Username already exists"})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, repository.ErrInvalidCSV):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logrus.WithError(err).WithField("path", c.FullPath()).Error("[HTTP] Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// tenantOf returns the tenant of the logged-in user.
func tenantOf(c *gin.Context) string {
	return c.GetString(ctxUserID)
}
