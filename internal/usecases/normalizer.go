package usecases

import (
	"time"

	"infinixai/internal/entities"
	"infinixai/internal/safetext"
)

// ExtractionStrategy looks for the customer text at one location of a
// decoded payload.
type ExtractionStrategy struct {
	Name    string
	Extract func(payload map[string]any) (string, bool)
}

// DefaultExtractionStrategies are tried in order; the first non-empty
// result wins.
var DefaultExtractionStrategies = []ExtractionStrategy{
	{Name: "text.message", Extract: fieldPath("text", "message")},
	{Name: "message.text", Extract: fieldPath("message", "text")},
	{Name: "message", Extract: fieldPath("message")},
	{Name: "text", Extract: fieldPath("text")},
	{Name: "body", Extract: fieldPath("body")},
	{Name: "entry.changes.value.messages.text.body", Extract: cloudAPIText},
}

// tenantKeys are the explicit tenant identifier fields, in priority order.
var tenantKeys = []string{"tenantId", "tenant_id", "userId", "user_id"}

// RequestClass tells the caller which error-reporting policy applies.
type RequestClass struct {
	IsInternal bool
}

// NormalizedRequest is the result of Normalize. Reason is set when the
// request must be skipped.
type NormalizedRequest struct {
	Message entities.InboundMessage
	Reason  string
}

func (n NormalizedRequest) Skipped() bool {
	return n.Reason != ""
}

// Normalizer turns arbitrary request bodies into InboundMessages.
type Normalizer struct {
	DefaultTenantID string
	Strategies      []ExtractionStrategy
}

func NewNormalizer(defaultTenantID string) *Normalizer {
	return &Normalizer{
		DefaultTenantID: defaultTenantID,
		Strategies:      DefaultExtractionStrategies,
	}
}

// ExtractText returns the first non-empty text found by DefaultExtractionStrategies.
func ExtractText(payload any) string {
	return extractWith(DefaultExtractionStrategies, payload)
}

// ResolveTenantID returns the explicit tenant of the payload, else the
// default tenant, else "".
func ResolveTenantID(payload any, defaultTenantID string) string {
	if obj, ok := payload.(map[string]any); ok {
		if id := explicitTenant(obj); id != "" {
			return id
		}
	}
	return safetext.Trim(defaultTenantID)
}

// ClassifyRequest marks a payload internal when it names its tenant.
func ClassifyRequest(payload any) RequestClass {
	obj, ok := payload.(map[string]any)
	if !ok {
		return RequestClass{}
	}
	return RequestClass{IsInternal: explicitTenant(obj) != ""}
}

// Normalize extracts tenant, text, sender and conversation from payload.
// It never fails; problems are reported through Reason.
func (n *Normalizer) Normalize(payload any, channel entities.Channel) NormalizedRequest {
	msg := entities.InboundMessage{
		Channel:    channel,
		RawPayload: payload,
		ReceivedAt: time.Now(),
	}

	obj, ok := payload.(map[string]any)
	if !ok {
		return NormalizedRequest{Message: msg, Reason: entities.ReasonUnparsedPayload}
	}

	msg.Internal = ClassifyRequest(obj).IsInternal
	msg.TenantID = ResolveTenantID(obj, n.DefaultTenantID)
	msg.Text = extractWith(n.strategies(), obj)
	msg.ConversationID = safetext.Trim(obj["conversationId"])
	msg.Sender = senderOf(obj)

	if msg.TenantID == "" || msg.Text == "" {
		return NormalizedRequest{Message: msg, Reason: entities.ReasonMissingUserOrMessage}
	}
	return NormalizedRequest{Message: msg}
}

func (n *Normalizer) strategies() []ExtractionStrategy {
	if len(n.Strategies) == 0 {
		return DefaultExtractionStrategies
	}
	return n.Strategies
}

func extractWith(strategies []ExtractionStrategy, payload any) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()

	obj, ok := payload.(map[string]any)
	if !ok {
		return ""
	}
	for _, s := range strategies {
		if text, ok := s.Extract(obj); ok && text != "" {
			return text
		}
	}
	return ""
}

func explicitTenant(obj map[string]any) string {
	for _, key := range tenantKeys {
		if id := safetext.Trim(obj[key]); id != "" {
			return id
		}
	}
	return ""
}

// fieldPath follows nested object keys and coerces the final value.
func fieldPath(keys ...string) func(map[string]any) (string, bool) {
	return func(obj map[string]any) (string, bool) {
		var cur any = obj
		for _, key := range keys {
			m, ok := cur.(map[string]any)
			if !ok {
				return "", false
			}
			if cur, ok = m[key]; !ok || cur == nil {
				return "", false
			}
		}
		text := safetext.Trim(cur)
		return text, text != ""
	}
}

// cloudAPIText reads entry[0].changes[0].value.messages[0].text.body.
func cloudAPIText(obj map[string]any) (string, bool) {
	msg, ok := cloudAPIMessage(obj)
	if !ok {
		return "", false
	}
	return fieldPath("text", "body")(msg)
}

func cloudAPIMessage(obj map[string]any) (map[string]any, bool) {
	value, ok := firstObject(obj["entry"])
	if !ok {
		return nil, false
	}
	change, ok := firstObject(value["changes"])
	if !ok {
		return nil, false
	}
	inner, ok := change["value"].(map[string]any)
	if !ok {
		return nil, false
	}
	return firstObject(inner["messages"])
}

func firstObject(v any) (map[string]any, bool) {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return nil, false
	}
	m, ok := list[0].(map[string]any)
	return m, ok
}

// senderOf finds the customer address: Z-API "phone", internal "from", or the
// Cloud API messages[0].from.
func senderOf(obj map[string]any) string {
	for _, key := range []string{"phone", "from", "sender"} {
		if s := safetext.Trim(obj[key]); s != "" {
			return s
		}
	}
	if msg, ok := cloudAPIMessage(obj); ok {
		return safetext.Trim(msg["from"])
	}
	return ""
}
