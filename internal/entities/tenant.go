package entities

import (
	"infinixai/internal/safetext"
)

// Setting keys of a tenant configuration record.
const (
	SettingCompanyName          = "company_name"
	SettingBusinessDescription  = "business_description"
	SettingTone                 = "tone"
	SettingOpeningHours         = "opening_hours"
	SettingLegacyProducts       = "products"
	SettingObjectionPrice       = "objection_price"
	SettingObjectionWarranty    = "objection_warranty"
	SettingObjectionDelivery    = "objection_delivery"
	SettingObjectionTrust       = "objection_trust"
	SettingObjectionAlternative = "objection_alternative"
)

// Channel credentials live next to the settings but are never editable
// through the generic settings form.
const SettingTelegramToken = "telegram_bot_token"

// SettingKeys lists every key the dashboard may write.
var SettingKeys = []string{
	SettingCompanyName,
	SettingBusinessDescription,
	SettingTone,
	SettingOpeningHours,
	SettingLegacyProducts,
	SettingObjectionPrice,
	SettingObjectionWarranty,
	SettingObjectionDelivery,
	SettingObjectionTrust,
	SettingObjectionAlternative,
}

// Tone presets offered by the dashboard. Anything else is custom free text.
const (
	TonePresetInformal = "informal"
	TonePresetFormal   = "formal"
)

// TenantConfig is one tenant's settings record, key -> decoded JSON value.
// Values are untrusted: any key may be missing, null, or of a non-string type.
// A nil TenantConfig is valid and behaves as an empty record.
type TenantConfig map[string]any

// Text returns the trimmed, coerced value of key.
func (c TenantConfig) Text(key string) string {
	return safetext.Trim(c[key])
}

func (c TenantConfig) CompanyName() string         { return c.Text(SettingCompanyName) }
func (c TenantConfig) BusinessDescription() string { return c.Text(SettingBusinessDescription) }
func (c TenantConfig) Tone() string                { return c.Text(SettingTone) }
func (c TenantConfig) OpeningHours() string        { return c.Text(SettingOpeningHours) }
func (c TenantConfig) LegacyProductsText() string  { return c.Text(SettingLegacyProducts) }

// Objection is one scripted rebuttal of the tenant.
type Objection struct {
	Kind ObjectionKind
	Text string
}

type ObjectionKind string

const (
	ObjectionPrice       ObjectionKind = "price"
	ObjectionWarranty    ObjectionKind = "warranty"
	ObjectionDelivery    ObjectionKind = "delivery"
	ObjectionTrust       ObjectionKind = "trust"
	ObjectionAlternative ObjectionKind = "alternative"
)

var objectionSettings = []struct {
	kind ObjectionKind
	key  string
}{
	{ObjectionPrice, SettingObjectionPrice},
	{ObjectionWarranty, SettingObjectionWarranty},
	{ObjectionDelivery, SettingObjectionDelivery},
	{ObjectionTrust, SettingObjectionTrust},
	{ObjectionAlternative, SettingObjectionAlternative},
}

// Objections returns the non-empty objection scripts in fixed order:
// price, warranty, delivery, trust, alternative.
func (c TenantConfig) Objections() []Objection {
	var out []Objection
	for _, o := range objectionSettings {
		if text := c.Text(o.key); text != "" {
			out = append(out, Objection{Kind: o.kind, Text: text})
		}
	}
	return out
}

// Company is the admin view of a tenant.
type Company struct {
	TenantID    string `json:"user_id"`
	CompanyName string `json:"company_name"`
}
