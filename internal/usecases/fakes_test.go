package usecases

import (
	"context"
	"errors"
	"sync"
	"time"

	"infinixai/internal/entities"
)

var errBoom = errors.New("boom")

type fakeSettings struct {
	configs map[string]entities.TenantConfig
	err     error
}

func (f *fakeSettings) GetTenantConfig(_ context.Context, tenantID string) (entities.TenantConfig, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	cfg, ok := f.configs[tenantID]
	return cfg, ok, nil
}

type fakeCatalog struct {
	products map[string][]entities.ProductEntry
	err      error
}

func (f *fakeCatalog) ListByTenant(_ context.Context, tenantID string) ([]entities.ProductEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.products[tenantID], nil
}

type fakeAI struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeAI) Complete(_ context.Context, prompt string) (entities.Completion, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return entities.Completion{}, f.err
	}
	return entities.Completion{Text: f.reply, Model: "gpt-4o-mini", InputTokens: 1000, OutputTokens: 500}, nil
}

type fakeUsage struct {
	mu   sync.Mutex
	logs []entities.UsageLog
	err  error
}

func (f *fakeUsage) Record(_ context.Context, u *entities.UsageLog) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, *u)
	return nil
}

func (f *fakeUsage) ListBetween(_ context.Context, from, to time.Time) ([]entities.UsageLog, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []entities.UsageLog
	for _, l := range f.logs {
		if !from.IsZero() && l.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && l.CreatedAt.After(to) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

type fakeConversations struct {
	convs []entities.Conversation
	logs  []entities.ChatLog
	err   error
}

func (f *fakeConversations) GetConversation(_ context.Context, tenantID, id string) (*entities.Conversation, error) {
	for _, c := range f.convs {
		if c.TenantID == tenantID && c.ID == id {
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeConversations) FindByCustomer(_ context.Context, tenantID string, channel entities.Channel, customer string) (*entities.Conversation, error) {
	for i := len(f.convs) - 1; i >= 0; i-- {
		c := f.convs[i]
		if c.TenantID == tenantID && c.Channel == channel && c.Customer == customer {
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeConversations) CreateConversation(_ context.Context, c *entities.Conversation) error {
	if f.err != nil {
		return f.err
	}
	f.convs = append(f.convs, *c)
	return nil
}

func (f *fakeConversations) AppendMessage(_ context.Context, l *entities.ChatLog) error {
	if f.err != nil {
		return f.err
	}
	f.logs = append(f.logs, *l)
	return nil
}

type sentMessage struct {
	tenantID, to, text string
}

type fakeMessenger struct {
	result entities.SendResult
	sent   []sentMessage
}

func (f *fakeMessenger) SendText(_ context.Context, tenantID, to, text string) entities.SendResult {
	f.sent = append(f.sent, sentMessage{tenantID, to, text})
	return f.result
}

type fakeCompanies struct {
	companies []entities.Company
	err       error
}

func (f *fakeCompanies) ListCompanies(context.Context) ([]entities.Company, error) {
	return f.companies, f.err
}
