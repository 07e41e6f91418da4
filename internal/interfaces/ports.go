package interfaces

import (
	"context"
	"io"
	"time"

	"infinixai/internal/entities"
)

// AIClient submits a rendered prompt to a language model.
type AIClient interface {
	Complete(ctx context.Context, prompt string) (entities.Completion, error)
}

// Messenger delivers a reply to a customer address. Delivery problems are
// reported in the result, never as an error.
type Messenger interface {
	SendText(ctx context.Context, tenantID, to, text string) entities.SendResult
}

// SettingsStore reads tenant configuration. found is false when the tenant
// has no settings record at all.
type SettingsStore interface {
	GetTenantConfig(ctx context.Context, tenantID string) (cfg entities.TenantConfig, found bool, err error)
}

type CatalogStore interface {
	ListByTenant(ctx context.Context, tenantID string) ([]entities.ProductEntry, error)
}

type ConversationStore interface {
	// GetConversation returns the tenant's conversation with id, or nil when
	// the tenant has no such conversation.
	GetConversation(ctx context.Context, tenantID, id string) (*entities.Conversation, error)
	// FindByCustomer returns the latest conversation of a customer on a
	// channel, or nil when there is none.
	FindByCustomer(ctx context.Context, tenantID string, channel entities.Channel, customer string) (*entities.Conversation, error)
	CreateConversation(ctx context.Context, c *entities.Conversation) error
	AppendMessage(ctx context.Context, log *entities.ChatLog) error
}

type UsageStore interface {
	Record(ctx context.Context, u *entities.UsageLog) error
	ListBetween(ctx context.Context, from, to time.Time) ([]entities.UsageLog, error)
}

// CompanyDirectory maps tenants to their company names.
type CompanyDirectory interface {
	ListCompanies(ctx context.Context) ([]entities.Company, error)
}

type UserStore interface {
	Create(ctx context.Context, user *entities.User) error
	GetByUsername(ctx context.Context, username string) (*entities.User, error)
	GetByID(ctx context.Context, id string) (*entities.User, error)
}

// TenantProvisioner seeds the data a new tenant needs.
type TenantProvisioner interface {
	Provision(ctx context.Context, tenantID, companyName string) error
}

// SettingsEditor is the dashboard view of the settings store.
type SettingsEditor interface {
	SettingsStore
	SaveTenantConfig(ctx context.Context, tenantID string, cfg entities.TenantConfig) error
}

// ProductEditor is the dashboard view of the catalog.
type ProductEditor interface {
	CatalogStore
	Get(ctx context.Context, tenantID, id string) (*entities.ProductEntry, error)
	Create(ctx context.Context, p *entities.ProductEntry) error
	Update(ctx context.Context, p *entities.ProductEntry) error
	SetActive(ctx context.Context, tenantID, id string, state entities.ActiveState) error
	Delete(ctx context.Context, tenantID, id string) error
	ImportCSV(ctx context.Context, tenantID string, data io.Reader) (int, error)
}

type ConversationReader interface {
	ListConversations(ctx context.Context, tenantID string) ([]entities.Conversation, error)
	ListMessages(ctx context.Context, tenantID, conversationID string) ([]entities.ChatLog, error)
	RecentLogs(ctx context.Context, tenantID string, limit int) ([]entities.ChatLog, error)
}
