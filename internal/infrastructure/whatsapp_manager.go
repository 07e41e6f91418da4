package infrastructure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"go.mau.fi/whatsmeow/types/events"

	"infinixai/internal/entities"
)

const devicePrefix = "tenant_"

// WhatsAppManager keeps one linked-device client per tenant, each with its
// own SQLite device store under baseDir.
type WhatsAppManager struct {
	clients  map[string]*WhatsAppClient
	mu       sync.RWMutex
	baseDir  string
	logLevel string

	OnMessage func(ctx context.Context, msg entities.InboundMessage)
}

func NewWhatsAppManager(baseDir, logLevel string) *WhatsAppManager {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		logrus.WithError(err).Warn("[WA] Could not create devices directory")
	}
	return &WhatsAppManager{
		clients:  make(map[string]*WhatsAppClient),
		baseDir:  baseDir,
		logLevel: logLevel,
	}
}

// devicePath maps a tenant to its store file. Characters outside
// [A-Za-z0-9_-] are replaced so ids cannot escape baseDir.
func (m *WhatsAppManager) devicePath(tenantID string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, tenantID)
	return filepath.Join(m.baseDir, devicePrefix+safe+".db")
}

// GetClient returns the tenant's client, nil if none.
func (m *WhatsAppManager) GetClient(tenantID string) *WhatsAppClient {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clients[tenantID]
}

// GetOrCreateClient opens the tenant's device store without connecting.
func (m *WhatsAppManager) GetOrCreateClient(ctx context.Context, tenantID string) (*WhatsAppClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if client, exists := m.clients[tenantID]; exists {
		return client, nil
	}

	client, err := NewWhatsAppClient(ctx, m.devicePath(tenantID), tenantID, m.logLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create WhatsApp client for tenant %s: %w", tenantID, err)
	}
	client.AddHandler(m.eventHandler(tenantID))

	m.clients[tenantID] = client
	return client, nil
}

func (m *WhatsAppManager) eventHandler(tenantID string) func(any) {
	return func(evt any) {
		v, ok := evt.(*events.Message)
		if !ok {
			return
		}
		msg, reason, ok := inboundFromEvent(tenantID, v)
		if !ok {
			logrus.WithFields(logrus.Fields{"tenant_id": tenantID, "reason": reason}).Debug("[WA] Message ignored")
			return
		}
		if m.OnMessage == nil {
			return
		}
		if client := m.GetClient(tenantID); client != nil {
			client.SendPresence(msg.Sender)
		}
		go m.OnMessage(context.Background(), msg)
	}
}

// ConnectClient connects the tenant's client, creating it if needed.
func (m *WhatsAppManager) ConnectClient(ctx context.Context, tenantID string) (*WhatsAppClient, error) {
	client, err := m.GetOrCreateClient(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if client.Client.IsConnected() {
		return client, nil
	}
	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect WhatsApp for tenant %s: %w", tenantID, err)
	}
	return client, nil
}

// RestoreSessions reconnects every tenant that has a device store with a
// completed login.
func (m *WhatsAppManager) RestoreSessions(ctx context.Context) int {
	matches, err := filepath.Glob(filepath.Join(m.baseDir, devicePrefix+"*.db"))
	if err != nil {
		return 0
	}
	restored := 0
	for _, path := range matches {
		tenantID := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), devicePrefix), ".db")
		client, err := m.GetOrCreateClient(ctx, tenantID)
		if err != nil {
			logrus.WithError(err).WithField("tenant_id", tenantID).Warn("[WA] Could not open session")
			continue
		}
		if !client.IsLoggedIn() {
			continue
		}
		if err := client.Connect(); err != nil {
			logrus.WithError(err).WithField("tenant_id", tenantID).Warn("[WA] Could not restore session")
			continue
		}
		restored++
	}
	return restored
}

// DisconnectClient disconnects the tenant's client, keeping its login.
func (m *WhatsAppManager) DisconnectClient(tenantID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if client, exists := m.clients[tenantID]; exists {
		client.Disconnect()
		delete(m.clients, tenantID)
	}
}

// LogoutClient unlinks the tenant's device. A missing or already logged out
// client is not an error.
func (m *WhatsAppManager) LogoutClient(tenantID string) error {
	m.mu.RLock()
	client, exists := m.clients[tenantID]
	m.mu.RUnlock()

	if !exists || client == nil {
		return nil
	}

	var err error
	if client.IsLoggedIn() || client.Client.IsConnected() {
		err = client.Logout()
	}

	m.mu.Lock()
	delete(m.clients, tenantID)
	m.mu.Unlock()

	return err
}

// ConnectedTenants lists tenants with a logged in session.
func (m *WhatsAppManager) ConnectedTenants() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var tenants []string
	for tenantID, client := range m.clients {
		if client.IsLoggedIn() {
			tenants = append(tenants, tenantID)
		}
	}
	return tenants
}

// DisconnectAll disconnects all clients (for graceful shutdown).
func (m *WhatsAppManager) DisconnectAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, client := range m.clients {
		client.Disconnect()
	}
	m.clients = make(map[string]*WhatsAppClient)
}

// SendText replies through the tenant's linked device.
func (m *WhatsAppManager) SendText(ctx context.Context, tenantID, to, text string) entities.SendResult {
	if strings.TrimSpace(to) == "" || strings.TrimSpace(text) == "" {
		return entities.SendResult{Reason: entities.SendPhoneOrTextEmpty}
	}
	client := m.GetClient(tenantID)
	if client == nil || !client.IsLoggedIn() {
		return entities.SendResult{Reason: entities.SendNoChannel, Detail: "whatsapp not connected"}
	}
	if err := client.SendMessage(ctx, to, text); err != nil {
		logrus.WithError(err).WithField("tenant_id", tenantID).Error("[WA] Send failed")
		return entities.SendResult{Reason: entities.SendProviderError, Detail: err.Error()}
	}
	return entities.SendResult{OK: true}
}

// WhatsAppStatus is the dashboard view of a tenant's session.
type WhatsAppStatus struct {
	Connected   bool   `json:"connected"`
	Initialized bool   `json:"initialized"`
	Phone       string `json:"phone"`
	Name        string `json:"name"`
	HasQR       bool   `json:"hasQR"`
}

func statusOf(client *WhatsAppClient) WhatsAppStatus {
	if client == nil {
		return WhatsAppStatus{}
	}
	phone, name := client.GetUserInfo()
	return WhatsAppStatus{
		Connected:   client.IsLoggedIn(),
		Initialized: true,
		Phone:       phone,
		Name:        name,
		HasQR:       client.GetQR() != "",
	}
}

// Connect connects the tenant's session and reports its status.
func (m *WhatsAppManager) Connect(ctx context.Context, tenantID string) (WhatsAppStatus, error) {
	client, err := m.ConnectClient(ctx, tenantID)
	if err != nil {
		return WhatsAppStatus{}, err
	}
	return statusOf(client), nil
}

// Status reports the tenant's session without connecting it.
func (m *WhatsAppManager) Status(tenantID string) WhatsAppStatus {
	return statusOf(m.GetClient(tenantID))
}

// PairingCode returns the current QR payload, connecting first when the
// device has no login yet. loggedIn is true when pairing is already done.
func (m *WhatsAppManager) PairingCode(ctx context.Context, tenantID string) (code string, loggedIn bool, err error) {
	client, err := m.GetOrCreateClient(ctx, tenantID)
	if err != nil {
		return "", false, err
	}
	if !client.IsLoggedIn() && !client.Client.IsConnected() {
		if err := client.Connect(); err != nil {
			return "", false, fmt.Errorf("failed to connect: %w", err)
		}
	}
	return client.GetQR(), client.IsLoggedIn(), nil
}
