package usecases

import (
	"fmt"
	"math"
	"strings"

	"infinixai/internal/entities"
	"infinixai/internal/safetext"
)

// DefaultCatalogCap is the number of entries rendered per availability group.
const DefaultCatalogCap = 50

// PromptRenderer builds the sales-agent prompt for one customer message.
// Render is pure: the same inputs always produce the same text.
type PromptRenderer struct {
	Locale     *PromptLocale
	CatalogCap int
}

func NewPromptRenderer(locale *PromptLocale, catalogCap int) *PromptRenderer {
	return &PromptRenderer{Locale: locale, CatalogCap: catalogCap}
}

// Render returns the prompt for cfg, products and the customer message.
// Every input may be empty or nil.
func (r *PromptRenderer) Render(cfg entities.TenantConfig, products []entities.ProductEntry, message any) string {
	l := r.locale()

	var sections []section
	sections = appendSection(sections, "", r.preamble(l, cfg))
	sections = appendSection(sections, l.AboutHeading, orDefault(cfg.BusinessDescription(), l.DescriptionFallback))
	sections = appendSection(sections, l.HoursHeading, orDefault(cfg.OpeningHours(), l.HoursFallback))
	sections = appendSection(sections, l.ToneHeading, r.tone(l, cfg.Tone()))
	sections = appendSection(sections, l.CatalogHeading, r.catalog(l, cfg, products))
	sections = appendSection(sections, l.ObjectionsHeading, r.objections(l, cfg.Objections()))
	sections = appendSection(sections, l.RulesHeading, bulletList(l.Rules))
	sections = appendSection(sections, l.MessageHeading, quote(safetext.Trim(message)))

	return strings.TrimSpace(renderSections(sections))
}

func (r *PromptRenderer) locale() *PromptLocale {
	if r == nil || r.Locale == nil {
		return DefaultPromptLocale()
	}
	return r.Locale
}

func (r *PromptRenderer) catalogCap() int {
	if r == nil || r.CatalogCap <= 0 {
		return DefaultCatalogCap
	}
	return r.CatalogCap
}

func (r *PromptRenderer) preamble(l *PromptLocale, cfg entities.TenantConfig) string {
	company := orDefault(cfg.CompanyName(), l.CompanyFallback)
	return strings.ReplaceAll(l.Intro, "{company}", company)
}

func (r *PromptRenderer) tone(l *PromptLocale, tone string) string {
	if tone == "" {
		return l.ToneFallback
	}
	if text, ok := l.tonePreset(tone); ok {
		return text
	}
	return tone
}

// catalog picks the structured catalog, else the legacy free-text list, else
// the no-products placeholder.
func (r *PromptRenderer) catalog(l *PromptLocale, cfg entities.TenantConfig, products []entities.ProductEntry) string {
	if len(products) > 0 {
		return r.structuredCatalog(l, products)
	}
	if legacy := cfg.LegacyProductsText(); legacy != "" {
		return l.LegacyProductsHeading + "\n" + legacy
	}
	return l.NoProducts
}

func (r *PromptRenderer) structuredCatalog(l *PromptLocale, products []entities.ProductEntry) string {
	active, inactive := partitionProducts(products, r.catalogCap())

	var sb strings.Builder
	sb.WriteString(l.ActiveHeading)
	sb.WriteString("\n")
	if len(active) == 0 {
		sb.WriteString(l.NoActiveProducts)
	}
	for i, p := range active {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(productLine(l, p, l.AvailableMarker))
	}

	if len(inactive) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(l.InactiveHeading)
		for _, p := range inactive {
			sb.WriteString("\n")
			sb.WriteString(productLine(l, p, l.OutOfStockMarker))
		}
		sb.WriteString("\n")
		sb.WriteString(l.InactiveInstruction)
	}
	return sb.String()
}

// partitionProducts splits products by availability, keeping input order,
// and caps each group independently.
func partitionProducts(products []entities.ProductEntry, limit int) (active, inactive []entities.ProductEntry) {
	for _, p := range products {
		if p.Active.IsAvailable() {
			if len(active) < limit {
				active = append(active, p)
			}
			continue
		}
		if len(inactive) < limit {
			inactive = append(inactive, p)
		}
	}
	return active, inactive
}

func productLine(l *PromptLocale, p entities.ProductEntry, marker string) string {
	parts := []string{"• " + orDefault(safetext.Trim(p.Name), l.UnnamedProduct)}
	if category := safetext.Trim(p.Category); category != "" {
		parts[0] += " [" + category + "]"
	}
	if p.Price != nil && !math.IsNaN(*p.Price) && !math.IsInf(*p.Price, 0) {
		parts = append(parts, fmt.Sprintf(l.PriceFormat, *p.Price))
	}
	if desc := safetext.Trim(p.Description); desc != "" {
		parts = append(parts, desc)
	}
	line := strings.Join(parts, " - ")
	if marker != "" {
		line += " " + marker
	}
	return line
}

func (r *PromptRenderer) objections(l *PromptLocale, list []entities.Objection) string {
	if len(list) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, o := range list {
		fmt.Fprintf(&sb, "- %s: %s\n", l.objectionLabel(o.Kind), o.Text)
	}
	sb.WriteString(l.ObjectionsInstruction)
	return sb.String()
}

type section struct {
	title   string
	content string
}

// appendSection drops sections without content.
func appendSection(list []section, title, content string) []section {
	content = strings.TrimSpace(content)
	if content == "" {
		return list
	}
	return append(list, section{title: title, content: content})
}

func renderSections(sections []section) string {
	var out strings.Builder
	for i, s := range sections {
		if i > 0 {
			out.WriteString("\n\n")
		}
		if s.title != "" {
			out.WriteString(s.title)
			out.WriteString("\n")
		}
		out.WriteString(s.content)
	}
	return out.String()
}

func bulletList(items []string) string {
	var sb strings.Builder
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			sb.WriteString("- ")
			sb.WriteString(item)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func quote(s string) string {
	return `"` + s + `"`
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
