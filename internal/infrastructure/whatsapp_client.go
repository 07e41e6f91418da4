package infrastructure

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"infinixai/internal/entities"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// WhatsAppClient is one tenant's linked-device session.
type WhatsAppClient struct {
	Client   *whatsmeow.Client
	TenantID string

	qrCode string
	qrLock sync.RWMutex
}

// NewWhatsAppClient opens the device store at dbPath. logLevel is passed to
// the whatsmeow loggers (DEBUG, INFO, WARN, ERROR).
func NewWhatsAppClient(ctx context.Context, dbPath, tenantID, logLevel string) (*WhatsAppClient, error) {
	if logLevel == "" {
		logLevel = "WARN"
	}
	dbLog := waLog.Stdout("Database", logLevel, true)
	container, err := sqlstore.New(ctx, "sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)", dbLog)
	if err != nil {
		return nil, fmt.Errorf("failed to open device store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	clientLog := waLog.Stdout("Client", logLevel, true)
	return &WhatsAppClient{
		Client:   whatsmeow.NewClient(deviceStore, clientLog),
		TenantID: tenantID,
	}, nil
}

// Connect connects the session. A device without a stored login starts the
// QR pairing flow; the latest code is available from GetQR.
func (w *WhatsAppClient) Connect() error {
	if w.Client.Store.ID != nil {
		if err := w.Client.Connect(); err != nil {
			return err
		}
		logrus.WithField("tenant_id", w.TenantID).Info("[WA] Connected (existing session)")
		return nil
	}

	qrChan, _ := w.Client.GetQRChannel(context.Background())
	if err := w.Client.Connect(); err != nil {
		return err
	}
	go w.watchQR(qrChan)
	return nil
}

func (w *WhatsAppClient) watchQR(qrChan <-chan whatsmeow.QRChannelItem) {
	for evt := range qrChan {
		if evt.Event == "code" {
			w.qrLock.Lock()
			w.qrCode = evt.Code
			w.qrLock.Unlock()
			logrus.WithField("tenant_id", w.TenantID).Debug("[WA] New QR code")
			continue
		}
		if evt.Event == "success" {
			w.qrLock.Lock()
			w.qrCode = ""
			w.qrLock.Unlock()
		}
		logrus.WithFields(logrus.Fields{"tenant_id": w.TenantID, "event": evt.Event}).Info("[WA] Login event")
	}
}

func (w *WhatsAppClient) GetQR() string {
	w.qrLock.RLock()
	defer w.qrLock.RUnlock()
	return w.qrCode
}

func (w *WhatsAppClient) IsLoggedIn() bool {
	return w.Client.Store.ID != nil
}

// GetUserInfo returns the linked phone number and push name.
func (w *WhatsAppClient) GetUserInfo() (string, string) {
	if w.Client.Store.ID == nil {
		return "", ""
	}
	return w.Client.Store.ID.User, w.Client.Store.PushName
}

// Logout unlinks the device and restarts pairing so a new QR is issued.
func (w *WhatsAppClient) Logout() error {
	w.qrLock.Lock()
	w.qrCode = ""
	w.qrLock.Unlock()

	if err := w.Client.Logout(context.Background()); err != nil {
		return err
	}
	w.Client.Disconnect()

	qrChan, _ := w.Client.GetQRChannel(context.Background())
	if err := w.Client.Connect(); err != nil {
		return fmt.Errorf("reconnect after logout: %w", err)
	}
	go w.watchQR(qrChan)
	return nil
}

func (w *WhatsAppClient) Disconnect() {
	w.Client.Disconnect()
}

func (w *WhatsAppClient) AddHandler(handler func(any)) {
	w.Client.AddEventHandler(handler)
}

// SendMessage sends a text to a phone number or a full JID.
func (w *WhatsAppClient) SendMessage(ctx context.Context, to, content string) error {
	if !strings.Contains(to, "@") {
		to += "@" + types.DefaultUserServer
	}
	jid, err := types.ParseJID(to)
	if err != nil {
		return fmt.Errorf("invalid number format: %w", err)
	}

	_, err = w.Client.SendMessage(ctx, jid, &waProto.Message{
		Conversation: proto.String(content),
	})
	return err
}

// SendPresence shows the typing indicator to a chat.
func (w *WhatsAppClient) SendPresence(to string) {
	jid, err := types.ParseJID(to + "@" + types.DefaultUserServer)
	if err != nil {
		return
	}
	w.Client.SendPresence(context.Background(), types.PresenceAvailable)
	w.Client.SendChatPresence(context.Background(), jid, types.ChatPresenceComposing, types.ChatPresenceMediaText)
}

// inboundFromEvent converts a received message. Group chats, own messages
// and non-text content are not answered.
func inboundFromEvent(tenantID string, evt *events.Message) (entities.InboundMessage, string, bool) {
	if evt == nil || evt.Message == nil {
		return entities.InboundMessage{}, entities.ReasonNotText, false
	}
	if evt.Info.IsFromMe {
		return entities.InboundMessage{}, entities.ReasonFromMe, false
	}
	if evt.Info.IsGroup {
		return entities.InboundMessage{}, entities.ReasonNotText, false
	}

	text := evt.Message.GetConversation()
	if text == "" {
		text = evt.Message.GetExtendedTextMessage().GetText()
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return entities.InboundMessage{}, entities.ReasonNotText, false
	}

	received := evt.Info.Timestamp
	if received.IsZero() {
		received = time.Now()
	}
	return entities.InboundMessage{
		TenantID:   tenantID,
		Sender:     evt.Info.Sender.User,
		Text:       text,
		Channel:    entities.ChannelWhatsApp,
		RawPayload: evt,
		ReceivedAt: received,
	}, "", true
}
