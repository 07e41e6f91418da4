package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"infinixai/internal/entities"
	"infinixai/internal/safetext"
)

const (
	defaultZAPIBaseURL      = "https://api.z-api.io"
	default360DialogURL     = "https://waba.360dialog.io/v1/messages"
	defaultGraphAPIBaseURL  = "https://graph.facebook.com/v18.0"
	sendTimeout             = 15 * time.Second
	maxProviderDetailLength = 300
)

// ZAPIConfig holds the credentials of a Z-API instance.
type ZAPIConfig struct {
	InstanceID  string
	Token       string
	ClientToken string
	BaseURL     string
}

// ZAPIClient sends WhatsApp text messages through Z-API.
type ZAPIClient struct {
	cfg  ZAPIConfig
	http *http.Client
}

func NewZAPIClient(cfg ZAPIConfig) *ZAPIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultZAPIBaseURL
	}
	return &ZAPIClient{
		cfg:  cfg,
		http: &http.Client{Timeout: sendTimeout},
	}
}

// SendText delivers text to phone. The tenant is only used for logging: all
// tenants share the configured instance.
func (z *ZAPIClient) SendText(ctx context.Context, tenantID, phone, text string) entities.SendResult {
	cleanPhone := safetext.Phone(phone)
	cleanText := safetext.Trim(text)
	log := logrus.WithFields(logrus.Fields{"tenant_id": tenantID, "phone": cleanPhone})

	if cleanPhone == "" || cleanText == "" {
		log.Warn("[ZAPI] Phone or text empty")
		return entities.SendResult{Reason: entities.SendPhoneOrTextEmpty}
	}
	if z.cfg.InstanceID == "" || z.cfg.Token == "" {
		log.Error("[ZAPI] Instance id or token not configured")
		return entities.SendResult{Reason: entities.SendMissingEnv}
	}

	url := fmt.Sprintf("%s/instances/%s/token/%s/send-text", strings.TrimRight(z.cfg.BaseURL, "/"), z.cfg.InstanceID, z.cfg.Token)
	headers := map[string]string{}
	if z.cfg.ClientToken != "" {
		headers["Client-Token"] = z.cfg.ClientToken
	}

	status, body, err := postJSON(ctx, z.http, url, headers, map[string]string{
		"phone":   cleanPhone,
		"message": cleanText,
	})
	if err != nil {
		log.WithError(err).Error("[ZAPI] Send failed")
		return entities.SendResult{Reason: entities.SendException, Detail: err.Error()}
	}
	if status < 200 || status >= 300 {
		log.WithField("status", status).Error("[ZAPI] Provider rejected message")
		return entities.SendResult{Reason: entities.SendZAPIError, Detail: providerDetail(status, body)}
	}

	log.WithField("preview", preview(cleanText)).Info("[ZAPI] Message sent")
	return entities.SendResult{OK: true}
}

// CloudAPIConfig holds the credentials of the official WhatsApp API. With a
// PhoneNumberID messages go to the Meta Graph API, otherwise to 360dialog.
type CloudAPIConfig struct {
	AccessToken   string
	PhoneNumberID string
	URL           string
}

// CloudAPIClient sends WhatsApp text messages through the Cloud API.
type CloudAPIClient struct {
	cfg  CloudAPIConfig
	http *http.Client
}

func NewCloudAPIClient(cfg CloudAPIConfig) *CloudAPIClient {
	if cfg.URL == "" {
		if cfg.PhoneNumberID != "" {
			cfg.URL = fmt.Sprintf("%s/%s/messages", defaultGraphAPIBaseURL, cfg.PhoneNumberID)
		} else {
			cfg.URL = default360DialogURL
		}
	}
	return &CloudAPIClient{
		cfg:  cfg,
		http: &http.Client{Timeout: sendTimeout},
	}
}

func (w *CloudAPIClient) SendText(ctx context.Context, tenantID, to, text string) entities.SendResult {
	cleanTo := safetext.Phone(to)
	cleanText := safetext.Trim(text)
	log := logrus.WithFields(logrus.Fields{"tenant_id": tenantID, "to": cleanTo})

	if cleanTo == "" || cleanText == "" {
		log.Warn("[CLOUDAPI] Recipient or text empty")
		return entities.SendResult{Reason: entities.SendPhoneOrTextEmpty}
	}
	if w.cfg.AccessToken == "" {
		log.Error("[CLOUDAPI] Access token not configured")
		return entities.SendResult{Reason: entities.SendMissingEnv}
	}

	payload := map[string]any{
		"to":   cleanTo,
		"type": "text",
		"text": map[string]string{"body": cleanText},
	}
	if w.cfg.PhoneNumberID != "" {
		payload["messaging_product"] = "whatsapp"
	}

	status, body, err := postJSON(ctx, w.http, w.cfg.URL, map[string]string{
		"Authorization": "Bearer " + w.cfg.AccessToken,
	}, payload)
	if err != nil {
		log.WithError(err).Error("[CLOUDAPI] Send failed")
		return entities.SendResult{Reason: entities.SendException, Detail: err.Error()}
	}
	if status < 200 || status >= 300 {
		log.WithField("status", status).Error("[CLOUDAPI] Provider rejected message")
		return entities.SendResult{Reason: entities.SendProviderError, Detail: providerDetail(status, body)}
	}

	log.WithField("preview", preview(cleanText)).Info("[CLOUDAPI] Message sent")
	return entities.SendResult{OK: true}
}

func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload any) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func providerDetail(status int, body []byte) string {
	detail := strings.TrimSpace(string(body))
	if len(detail) > maxProviderDetailLength {
		detail = detail[:maxProviderDetailLength]
	}
	return fmt.Sprintf("status %d: %s", status, detail)
}

func preview(text string) string {
	r := []rune(text)
	if len(r) > 50 {
		return string(r[:50])
	}
	return text
}
