package usecases

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"infinixai/internal/entities"
)

//go:embed locales/pt-BR.yaml
var defaultLocaleYAML []byte

// PromptLocale holds every literal the prompt renderer writes. Intro may
// contain a {company} placeholder; PriceFormat is a fmt verb for the price.
type PromptLocale struct {
	Intro           string `yaml:"intro"`
	CompanyFallback string `yaml:"company_fallback"`

	AboutHeading        string `yaml:"about_heading"`
	DescriptionFallback string `yaml:"description_fallback"`

	HoursHeading  string `yaml:"hours_heading"`
	HoursFallback string `yaml:"hours_fallback"`

	ToneHeading  string            `yaml:"tone_heading"`
	ToneFallback string            `yaml:"tone_fallback"`
	TonePresets  map[string]string `yaml:"tone_presets"`

	CatalogHeading      string `yaml:"catalog_heading"`
	ActiveHeading       string `yaml:"active_heading"`
	NoActiveProducts    string `yaml:"no_active_products"`
	InactiveHeading     string `yaml:"inactive_heading"`
	InactiveInstruction string `yaml:"inactive_instruction"`
	AvailableMarker     string `yaml:"available_marker"`
	OutOfStockMarker    string `yaml:"out_of_stock_marker"`
	UnnamedProduct      string `yaml:"unnamed_product"`
	PriceFormat         string `yaml:"price_format"`

	LegacyProductsHeading string `yaml:"legacy_products_heading"`
	NoProducts            string `yaml:"no_products"`

	ObjectionsHeading     string                           `yaml:"objections_heading"`
	ObjectionLabels       map[entities.ObjectionKind]string `yaml:"objection_labels"`
	ObjectionsInstruction string                           `yaml:"objections_instruction"`

	RulesHeading string   `yaml:"rules_heading"`
	Rules        []string `yaml:"rules"`

	MessageHeading string `yaml:"message_heading"`
}

// DefaultPromptLocale returns a fresh copy of the embedded pt-BR locale.
func DefaultPromptLocale() *PromptLocale {
	l := &PromptLocale{}
	if err := yaml.Unmarshal(defaultLocaleYAML, l); err != nil {
		panic(fmt.Sprintf("embedded prompt locale: %v", err))
	}
	return l
}

// LoadPromptLocale reads a YAML locale file. Keys missing from the file keep
// their pt-BR default. An empty path returns the default locale.
func LoadPromptLocale(path string) (*PromptLocale, error) {
	l := DefaultPromptLocale()
	if strings.TrimSpace(path) == "" {
		return l, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt locale: %w", err)
	}
	if err := yaml.Unmarshal(data, l); err != nil {
		return nil, fmt.Errorf("parse prompt locale %s: %w", path, err)
	}
	return l, nil
}

// tonePreset returns the descriptive text of a preset tone name.
func (l *PromptLocale) tonePreset(tone string) (string, bool) {
	text, ok := l.TonePresets[strings.ToLower(tone)]
	return text, ok && text != ""
}

func (l *PromptLocale) objectionLabel(kind entities.ObjectionKind) string {
	if label := l.ObjectionLabels[kind]; label != "" {
		return label
	}
	return string(kind)
}
