package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"infinixai/internal/entities"
)

const zapiReceivedCallback = "ReceivedCallback"

// webhookResponse is what providers get back. OK only says the event was
// received; the handling result is in the embedded outcome.
type webhookResponse struct {
	OK bool `json:"ok"`
	entities.Outcome
}

// HandleChat answers the dashboard test chat and internal callers. A body
// that names its tenant gets HTTP status codes; anything else is treated
// like a webhook and always gets 200.
func (h *Handler) HandleChat(c *gin.Context) {
	var payload any
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusOK, webhookResponse{OK: false, Outcome: entities.Skipped(entities.ReasonUnparsedPayload)})
		return
	}

	msg, out := h.handle(c, payload, entities.ChannelWeb)
	if !msg.Internal {
		c.JSON(http.StatusOK, webhookResponse{OK: true, Outcome: out})
		return
	}

	if out.Status == entities.StatusOK {
		c.JSON(http.StatusOK, gin.H{
			"ok":             true,
			"reply":          out.Reply,
			"conversationId": out.ConversationID,
		})
		return
	}
	c.JSON(internalStatus(out), gin.H{"ok": false, "error": out.Reason})
}

// internalStatus maps a failed outcome to the status internal callers see.
func internalStatus(out entities.Outcome) int {
	switch out.Reason {
	case entities.ReasonMissingUserOrMessage, entities.ReasonUnparsedPayload:
		return http.StatusBadRequest
	case entities.ReasonNoSettings:
		return http.StatusNotFound
	case entities.ReasonModelError, entities.ReasonSendFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) WebhookHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"route":     c.FullPath(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleZAPIWebhook answers Z-API ReceivedCallback events for the default
// tenant.
func (h *Handler) HandleZAPIWebhook(c *gin.Context) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil || payload == nil {
		c.JSON(http.StatusOK, webhookResponse{OK: true, Outcome: entities.Skipped(entities.ReasonUnparsedPayload)})
		return
	}

	if fromMe, _ := payload["fromMe"].(bool); fromMe {
		logrus.Debug("[WEBHOOK] Z-API skipped: fromMe")
		c.JSON(http.StatusOK, webhookResponse{OK: true, Outcome: entities.Skipped(entities.ReasonFromMe)})
		return
	}
	if kind, _ := payload["type"].(string); kind != zapiReceivedCallback {
		logrus.WithField("type", payload["type"]).Debug("[WEBHOOK] Z-API skipped: not a received message")
		c.JSON(http.StatusOK, webhookResponse{OK: true, Outcome: entities.Skipped(entities.ReasonNotText)})
		return
	}

	stripTenantKeys(payload)
	_, out := h.handle(c, payload, entities.ChannelZAPI)
	c.JSON(http.StatusOK, webhookResponse{OK: true, Outcome: out})
}

// VerifyCloudAPIWebhook serves the health check and the Meta hub challenge.
func (h *Handler) VerifyCloudAPIWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	if mode == "" {
		c.JSON(http.StatusOK, gin.H{
			"ok":             true,
			"route":          c.FullPath(),
			"hasVerifyToken": h.Webhooks.VerifyToken != "",
		})
		return
	}

	token := c.Query("hub.verify_token")
	if mode == "subscribe" && h.Webhooks.VerifyToken != "" && token == h.Webhooks.VerifyToken {
		c.String(http.StatusOK, c.Query("hub.challenge"))
		return
	}
	c.String(http.StatusForbidden, "Forbidden: invalid verify token")
}

// cloudAPIEnvelope is the part of a Cloud API event needed to decide
// whether it carries a customer text.
type cloudAPIEnvelope struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []struct {
					From string `json:"from"`
					Type string `json:"type"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

func (e cloudAPIEnvelope) firstMessageType() (string, bool) {
	if len(e.Entry) == 0 || len(e.Entry[0].Changes) == 0 || len(e.Entry[0].Changes[0].Value.Messages) == 0 {
		return "", false
	}
	return e.Entry[0].Changes[0].Value.Messages[0].Type, true
}

// HandleCloudAPIWebhook answers Cloud API and 360dialog message events.
// Status and delivery events are acknowledged and ignored.
func (h *Handler) HandleCloudAPIWebhook(c *gin.Context) {
	rawBody, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusOK, webhookResponse{OK: true, Outcome: entities.Skipped(entities.ReasonUnparsedPayload)})
		return
	}

	if h.Webhooks.AppSecret != "" && !verifyMetaSignature(h.Webhooks.AppSecret, rawBody, c.GetHeader("X-Hub-Signature-256")) {
		logrus.Warn("[WEBHOOK] Cloud API signature mismatch")
		c.String(http.StatusForbidden, "forbidden")
		return
	}

	var envelope cloudAPIEnvelope
	var payload map[string]any
	if json.Unmarshal(rawBody, &envelope) != nil || json.Unmarshal(rawBody, &payload) != nil || payload == nil {
		c.JSON(http.StatusOK, webhookResponse{OK: true, Outcome: entities.Skipped(entities.ReasonUnparsedPayload)})
		return
	}

	kind, ok := envelope.firstMessageType()
	if !ok || (kind != "" && kind != "text") {
		c.JSON(http.StatusOK, webhookResponse{OK: true, Outcome: entities.Skipped(entities.ReasonNotText)})
		return
	}

	stripTenantKeys(payload)
	_, out := h.handle(c, payload, entities.ChannelCloudAPI)
	c.JSON(http.StatusOK, webhookResponse{OK: true, Outcome: out})
}

// handle runs the chat pipeline. A panic is reported as internal_error so
// providers still get their acknowledgement.
func (h *Handler) handle(c *gin.Context, payload any, channel entities.Channel) (msg entities.InboundMessage, out entities.Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			logrus.WithFields(logrus.Fields{
				"channel": channel,
				"panic":   rec,
			}).Error("[WEBHOOK] Recovered from panic")
			out = entities.Failed(entities.ReasonInternalError)
		}
	}()
	return h.Chat.Handle(c.Request.Context(), payload, channel)
}

// stripTenantKeys drops tenant fields a provider event might carry so the
// message is always answered for the default tenant.
func stripTenantKeys(payload map[string]any) {
	for _, key := range []string{"tenantId", "tenant_id", "userId", "user_id"} {
		delete(payload, key)
	}
}

func verifyMetaSignature(secret string, body []byte, header string) bool {
	if header == "" {
		return false
	}
	expected := strings.TrimPrefix(header, "sha256=")
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	computed := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(computed), []byte(expected))
}
