package entities

import "time"

// Channel identifies where an inbound message came from and how the reply
// travels back.
type Channel string

const (
	ChannelWeb      Channel = "web"
	ChannelZAPI     Channel = "zapi"
	ChannelCloudAPI Channel = "cloudapi"
	ChannelTelegram Channel = "telegram"
	ChannelWhatsApp Channel = "whatsapp"
)

// InboundMessage is a normalized customer message. It is built per request
// and never persisted as such.
type InboundMessage struct {
	TenantID       string
	Sender         string
	Text           string
	ConversationID string
	Channel        Channel
	Internal       bool
	RawPayload     any
	ReceivedAt     time.Time
}

type OutcomeStatus string

const (
	StatusOK      OutcomeStatus = "ok"
	StatusSkipped OutcomeStatus = "skipped"
	StatusError   OutcomeStatus = "error"
)

// Reason codes reported with skipped and error outcomes.
const (
	ReasonMissingUserOrMessage = "missing_user_or_message"
	ReasonUnparsedPayload      = "unparsed_payload"
	ReasonNoSettings           = "no_settings"
	ReasonFromMe               = "from_me"
	ReasonNotText              = "not_text"
	ReasonSettingsError        = "settings_error"
	ReasonModelError           = "model_error"
	ReasonSendFailed           = "send_failed"
	ReasonInternalError        = "internal_error"
)

// Outcome is the typed result of handling one inbound message.
type Outcome struct {
	Status         OutcomeStatus `json:"status"`
	Reason         string        `json:"reason,omitempty"`
	Reply          string        `json:"reply,omitempty"`
	ConversationID string        `json:"conversationId,omitempty"`
	Usage          *UsageLog     `json:"-"`
	Sent           *SendResult   `json:"sent,omitempty"`
}

func Skipped(reason string) Outcome {
	return Outcome{Status: StatusSkipped, Reason: reason}
}

func Failed(reason string) Outcome {
	return Outcome{Status: StatusError, Reason: reason}
}

// SendResult reports an outbound delivery. Failures are values, not errors.
type SendResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Send failure reasons.
const (
	SendPhoneOrTextEmpty = "phone_or_text_empty"
	SendMissingEnv       = "missing_env"
	SendProviderError    = "provider_error"
	SendZAPIError        = "zapi_error"
	SendException        = "exception"
	SendNoChannel        = "no_channel"
)

// Completion is what the language-model collaborator returns.
type Completion struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

func (c Completion) TotalTokens() int {
	return c.InputTokens + c.OutputTokens
}
