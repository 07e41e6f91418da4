package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"infinixai/internal/entities"
	"infinixai/internal/infrastructure"
)

const testSecret = "test-secret"

var errBoom = errors.New("boom")

type fakeChat struct {
	mu       sync.Mutex
	msg      entities.InboundMessage
	out      entities.Outcome
	panics   bool
	payloads []any
	channels []entities.Channel
}

func (f *fakeChat) Handle(_ context.Context, payload any, channel entities.Channel) (entities.InboundMessage, entities.Outcome) {
	f.mu.Lock()
	f.payloads = append(f.payloads, payload)
	f.channels = append(f.channels, channel)
	f.mu.Unlock()
	if f.panics {
		panic("unexpected payload")
	}
	return f.msg, f.out
}

func (f *fakeChat) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

type fakeAuth struct {
	loginErr    error
	registerErr error
	registered  []string
}

func (f *fakeAuth) Login(_ context.Context, username, _ string) (string, *entities.User, error) {
	if f.loginErr != nil {
		return "", nil, f.loginErr
	}
	return "signed-token", &entities.User{ID: "u1", Username: username, Role: entities.RoleUser, IsActive: true}, nil
}

func (f *fakeAuth) Register(_ context.Context, username, _, companyName string) (*entities.User, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	f.registered = append(f.registered, username+"/"+companyName)
	return &entities.User{ID: "u2", Username: username, Role: entities.RoleUser, IsActive: true}, nil
}

type fakeDashboard struct {
	settings      map[string]string
	saved         map[string]any
	products      []entities.ProductEntry
	created       []entities.ProductEntry
	updated       []entities.ProductEntry
	toggleState   entities.ActiveState
	err           error
	imported      string
	previewFor    any
	conversations []entities.Conversation
	messages      []entities.ChatLog
	tenants       []string
}

func (f *fakeDashboard) seen(tenantID string) error {
	f.tenants = append(f.tenants, tenantID)
	return f.err
}

func (f *fakeDashboard) GetSettings(_ context.Context, tenantID string) (map[string]string, error) {
	if err := f.seen(tenantID); err != nil {
		return nil, err
	}
	return f.settings, nil
}

func (f *fakeDashboard) SaveSettings(_ context.Context, tenantID string, input map[string]any) error {
	f.saved = input
	return f.seen(tenantID)
}

func (f *fakeDashboard) ListProducts(_ context.Context, tenantID string) ([]entities.ProductEntry, error) {
	if err := f.seen(tenantID); err != nil {
		return nil, err
	}
	return f.products, nil
}

func (f *fakeDashboard) CreateProduct(_ context.Context, tenantID string, p *entities.ProductEntry) error {
	if err := f.seen(tenantID); err != nil {
		return err
	}
	p.ID = "p-new"
	p.TenantID = tenantID
	f.created = append(f.created, *p)
	return nil
}

func (f *fakeDashboard) UpdateProduct(_ context.Context, tenantID string, p *entities.ProductEntry) error {
	if err := f.seen(tenantID); err != nil {
		return err
	}
	f.updated = append(f.updated, *p)
	return nil
}

func (f *fakeDashboard) ToggleProduct(_ context.Context, tenantID, _ string) (entities.ActiveState, error) {
	if err := f.seen(tenantID); err != nil {
		return entities.Unspecified, err
	}
	return f.toggleState, nil
}

func (f *fakeDashboard) DeleteProduct(_ context.Context, tenantID, _ string) error {
	return f.seen(tenantID)
}

func (f *fakeDashboard) ImportProducts(_ context.Context, tenantID string, data io.Reader) (int, error) {
	if err := f.seen(tenantID); err != nil {
		return 0, err
	}
	b, _ := io.ReadAll(data)
	f.imported = string(b)
	return strings.Count(strings.TrimSpace(f.imported), "\n"), nil
}

func (f *fakeDashboard) PreviewPrompt(_ context.Context, tenantID string, message any) (string, error) {
	if err := f.seen(tenantID); err != nil {
		return "", err
	}
	f.previewFor = message
	return "PROMPT", nil
}

func (f *fakeDashboard) ListConversations(_ context.Context, tenantID string) ([]entities.Conversation, error) {
	if err := f.seen(tenantID); err != nil {
		return nil, err
	}
	return f.conversations, nil
}

func (f *fakeDashboard) ListMessages(_ context.Context, tenantID, _ string) ([]entities.ChatLog, error) {
	if err := f.seen(tenantID); err != nil {
		return nil, err
	}
	return f.messages, nil
}

type fakeUsageReporter struct {
	from, to time.Time
	summary  *entities.UsageSummary
}

func (f *fakeUsageReporter) Summary(_ context.Context, from, to time.Time) (*entities.UsageSummary, error) {
	f.from, f.to = from, to
	return f.summary, nil
}

type fakeCompanies struct {
	companies []entities.Company
}

func (f *fakeCompanies) ListCompanies(context.Context) ([]entities.Company, error) {
	return f.companies, nil
}

type fakeLogs struct {
	tenantID string
	limit    int
	logs     []entities.ChatLog
}

func (f *fakeLogs) ListConversations(context.Context, string) ([]entities.Conversation, error) {
	return nil, nil
}

func (f *fakeLogs) ListMessages(context.Context, string, string) ([]entities.ChatLog, error) {
	return nil, nil
}

func (f *fakeLogs) RecentLogs(_ context.Context, tenantID string, limit int) ([]entities.ChatLog, error) {
	f.tenantID, f.limit = tenantID, limit
	return f.logs, nil
}

type fakeUsers struct {
	users  []entities.User
	active map[string]bool
	err    error
}

func (f *fakeUsers) List(context.Context) ([]entities.User, error) {
	return f.users, nil
}

func (f *fakeUsers) SetActive(_ context.Context, id string, active bool) error {
	if f.err != nil {
		return f.err
	}
	if f.active == nil {
		f.active = map[string]bool{}
	}
	f.active[id] = active
	return nil
}

type fakeTenants struct {
	dropped []string
}

func (f *fakeTenants) Drop(_ context.Context, tenantID string) error {
	f.dropped = append(f.dropped, tenantID)
	return nil
}

type fakeChannels struct {
	values map[string]string
}

func (f *fakeChannels) SettingText(_ context.Context, tenantID, key string) (string, error) {
	return f.values[tenantID+"/"+key], nil
}

func (f *fakeChannels) SetSetting(_ context.Context, tenantID, key string, value any) error {
	if f.values == nil {
		f.values = map[string]string{}
	}
	f.values[tenantID+"/"+key] = value.(string)
	return nil
}

func (f *fakeChannels) DeleteSetting(_ context.Context, tenantID, key string) error {
	delete(f.values, tenantID+"/"+key)
	return nil
}

type fakeTelegram struct {
	connected    map[string]string
	disconnected []string
}

func (f *fakeTelegram) ValidateToken(token string) (string, error) {
	if strings.HasPrefix(token, "999:") {
		return "", errors.New("invalid token: Unauthorized")
	}
	return "shopbot", nil
}

func (f *fakeTelegram) ConnectBot(tenantID, token string) (*infrastructure.TelegramBotInstance, error) {
	if f.connected == nil {
		f.connected = map[string]string{}
	}
	f.connected[tenantID] = token
	return &infrastructure.TelegramBotInstance{
		Bot:      &tgbotapi.BotAPI{Self: tgbotapi.User{UserName: "shopbot"}},
		TenantID: tenantID,
	}, nil
}

func (f *fakeTelegram) DisconnectBot(tenantID string) {
	f.disconnected = append(f.disconnected, tenantID)
	delete(f.connected, tenantID)
}

func (f *fakeTelegram) GetStatus(tenantID string) (bool, string) {
	if _, ok := f.connected[tenantID]; ok {
		return true, "shopbot"
	}
	return false, ""
}

type fakeWhatsApp struct {
	status    infrastructure.WhatsAppStatus
	code      string
	loggedIn  bool
	err       error
	loggedOut []string
}

func (f *fakeWhatsApp) Connect(context.Context, string) (infrastructure.WhatsAppStatus, error) {
	return f.status, f.err
}

func (f *fakeWhatsApp) Status(string) infrastructure.WhatsAppStatus {
	return f.status
}

func (f *fakeWhatsApp) PairingCode(context.Context, string) (string, bool, error) {
	return f.code, f.loggedIn, f.err
}

func (f *fakeWhatsApp) LogoutClient(tenantID string) error {
	f.loggedOut = append(f.loggedOut, tenantID)
	return nil
}

func newTestRouter(deps Deps) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	SetupRoutes(r, deps, NewMiddleware(testSecret, []string{"*"}))
	return r
}

func signToken(t *testing.T, userID, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func doRequest(r http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
