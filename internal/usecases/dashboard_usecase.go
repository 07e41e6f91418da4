package usecases

import (
	"context"
	"fmt"
	"io"
	"slices"

	"infinixai/internal/entities"
	"infinixai/internal/interfaces"
	"infinixai/internal/safetext"
)

// DashboardUsecase backs the tenant dashboard. Every call is scoped to the
// tenant of the logged-in user.
type DashboardUsecase struct {
	settings      interfaces.SettingsEditor
	products      interfaces.ProductEditor
	conversations interfaces.ConversationReader
	renderer      *PromptRenderer
}

func NewDashboardUsecase(settings interfaces.SettingsEditor, products interfaces.ProductEditor, conversations interfaces.ConversationReader, renderer *PromptRenderer) *DashboardUsecase {
	return &DashboardUsecase{
		settings:      settings,
		products:      products,
		conversations: conversations,
		renderer:      renderer,
	}
}

// GetSettings returns every known setting key, "" when unset.
func (u *DashboardUsecase) GetSettings(ctx context.Context, tenantID string) (map[string]string, error) {
	cfg, _, err := u.settings.GetTenantConfig(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(entities.SettingKeys))
	for _, key := range entities.SettingKeys {
		out[key] = cfg.Text(key)
	}
	return out, nil
}

// SaveSettings stores the known keys present in input, coerced to text.
// Unknown keys are ignored.
func (u *DashboardUsecase) SaveSettings(ctx context.Context, tenantID string, input map[string]any) error {
	cfg := entities.TenantConfig{}
	for key, value := range input {
		if slices.Contains(entities.SettingKeys, key) {
			cfg[key] = safetext.Trim(value)
		}
	}
	if len(cfg) == 0 {
		return nil
	}
	return u.settings.SaveTenantConfig(ctx, tenantID, cfg)
}

func (u *DashboardUsecase) ListProducts(ctx context.Context, tenantID string) ([]entities.ProductEntry, error) {
	return u.products.ListByTenant(ctx, tenantID)
}

func (u *DashboardUsecase) CreateProduct(ctx context.Context, tenantID string, p *entities.ProductEntry) error {
	p.ID = ""
	p.TenantID = tenantID
	return u.products.Create(ctx, p)
}

func (u *DashboardUsecase) UpdateProduct(ctx context.Context, tenantID string, p *entities.ProductEntry) error {
	p.TenantID = tenantID
	return u.products.Update(ctx, p)
}

// ToggleProduct flips availability and returns the new state. Unspecified
// items count as active, so the first toggle marks them inactive.
func (u *DashboardUsecase) ToggleProduct(ctx context.Context, tenantID, id string) (entities.ActiveState, error) {
	p, err := u.products.Get(ctx, tenantID, id)
	if err != nil {
		return entities.Unspecified, err
	}
	next := entities.Active
	if p.Active.IsAvailable() {
		next = entities.Inactive
	}
	if err := u.products.SetActive(ctx, tenantID, id, next); err != nil {
		return entities.Unspecified, err
	}
	return next, nil
}

func (u *DashboardUsecase) DeleteProduct(ctx context.Context, tenantID, id string) error {
	return u.products.Delete(ctx, tenantID, id)
}

func (u *DashboardUsecase) ImportProducts(ctx context.Context, tenantID string, data io.Reader) (int, error) {
	return u.products.ImportCSV(ctx, tenantID, data)
}

// PreviewPrompt renders the prompt the model would receive for message.
func (u *DashboardUsecase) PreviewPrompt(ctx context.Context, tenantID string, message any) (string, error) {
	cfg, _, err := u.settings.GetTenantConfig(ctx, tenantID)
	if err != nil {
		return "", fmt.Errorf("load settings: %w", err)
	}
	products, err := u.products.ListByTenant(ctx, tenantID)
	if err != nil {
		return "", fmt.Errorf("load catalog: %w", err)
	}
	return u.renderer.Render(cfg, products, message), nil
}

func (u *DashboardUsecase) ListConversations(ctx context.Context, tenantID string) ([]entities.Conversation, error) {
	return u.conversations.ListConversations(ctx, tenantID)
}

func (u *DashboardUsecase) ListMessages(ctx context.Context, tenantID, conversationID string) ([]entities.ChatLog, error) {
	return u.conversations.ListMessages(ctx, tenantID, conversationID)
}
