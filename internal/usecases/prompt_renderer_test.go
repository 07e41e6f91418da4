package usecases

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infinixai/internal/entities"
)

func price(v float64) *float64 { return &v }

func newTestRenderer() *PromptRenderer {
	return NewPromptRenderer(DefaultPromptLocale(), 0)
}

func TestRender_EmptyInputs(t *testing.T) {
	out := newTestRenderer().Render(entities.TenantConfig{}, nil, "oi")

	assert.Contains(t, out, `empresa "a empresa"`)
	assert.Contains(t, out, "Nenhum produto cadastrado")
	assert.Contains(t, out, "Descrição não informada.")
	assert.Contains(t, out, "Horário não informado")
	assert.Contains(t, out, "amigável e profissional")
	assert.True(t, strings.HasSuffix(out, `"oi"`), "message must be the final section")
	assert.NotContains(t, out, "OBJEÇÕES")
}

func TestRender_NilEverything(t *testing.T) {
	var r *PromptRenderer
	assert.NotPanics(t, func() {
		out := r.Render(nil, nil, nil)
		assert.True(t, strings.HasSuffix(out, `""`))
	})
}

func TestRender_ActiveAndInactive(t *testing.T) {
	products := []entities.ProductEntry{
		{Name: "Caneta", Price: price(1.5), Active: entities.Active},
		{Name: "Lápis", Active: entities.Inactive},
	}

	out := newTestRenderer().Render(entities.TenantConfig{}, products, "tem lápis?")

	active := strings.Index(out, "Produtos disponíveis para venda:")
	inactive := strings.Index(out, "Produtos SEM ESTOQUE:")
	require.True(t, active >= 0 && inactive > active)

	assert.Contains(t, out[active:inactive], "• Caneta - R$ 1.50 (DISPONÍVEL)")
	assert.Contains(t, out[inactive:], "• Lápis (SEM ESTOQUE)")
	assert.Contains(t, out[inactive:], "NÃO ofereça nem venda os produtos sem estoque")
	assert.NotContains(t, out, "Nenhum produto cadastrado")
}

func TestRender_NoInactiveSectionWhenAllAvailable(t *testing.T) {
	products := []entities.ProductEntry{
		{Name: "Caneta", Active: entities.Active},
		{Name: "Borracha"},
	}

	out := newTestRenderer().Render(nil, products, "oi")

	assert.Contains(t, out, "• Borracha (DISPONÍVEL)")
	assert.NotContains(t, out, "Produtos SEM ESTOQUE:")
	assert.NotContains(t, out, "NÃO ofereça nem venda")
}

func TestRender_OnlyInactive(t *testing.T) {
	products := []entities.ProductEntry{{Name: "Lápis", Active: entities.Inactive}}

	out := newTestRenderer().Render(nil, products, "oi")

	assert.Contains(t, out, "Nenhum produto ativo no momento.")
	assert.Contains(t, out, "• Lápis (SEM ESTOQUE)")
}

func TestRender_ObjectMessage(t *testing.T) {
	out := newTestRenderer().Render(nil, nil, map[string]any{"message": "quanto custa?"})
	assert.True(t, strings.HasSuffix(out, `"quanto custa?"`))
}

func TestRender_MessageIsTrimmed(t *testing.T) {
	out := newTestRenderer().Render(nil, nil, "  oi  \n")
	assert.True(t, strings.HasSuffix(out, `"oi"`))
}

func TestRender_SingleObjection(t *testing.T) {
	cfg := entities.TenantConfig{
		entities.SettingObjectionPrice:    "Nosso preço é justo",
		entities.SettingObjectionWarranty: "   ",
		entities.SettingObjectionDelivery: nil,
	}

	out := newTestRenderer().Render(cfg, nil, "oi")

	start := strings.Index(out, "COMO QUEBRAR OBJEÇÕES DO CLIENTE:")
	end := strings.Index(out, "REGRAS IMPORTANTES:")
	require.True(t, start >= 0 && end > start)
	section := out[start:end]

	assert.Equal(t, 1, strings.Count(section, "\n- "))
	assert.Contains(t, section, "- Preço: Nosso preço é justo")
	assert.Contains(t, section, "adapte o texto para soar natural")
}

func TestRender_ObjectionsInFixedOrder(t *testing.T) {
	cfg := entities.TenantConfig{
		entities.SettingObjectionAlternative: "Temos opções",
		entities.SettingObjectionPrice:       "Parcelamos",
	}

	out := newTestRenderer().Render(cfg, nil, "oi")

	assert.Less(t, strings.Index(out, "- Preço:"), strings.Index(out, "- Alternativas:"))
}

func TestRender_CatalogCap(t *testing.T) {
	var products []entities.ProductEntry
	for i := 0; i < 120; i++ {
		products = append(products, entities.ProductEntry{Name: fmt.Sprintf("Item %03d", i)})
	}

	out := newTestRenderer().Render(nil, products, "oi")

	assert.Equal(t, DefaultCatalogCap, strings.Count(out, "(DISPONÍVEL)"))
	assert.Contains(t, out, "Item 000")
	assert.Contains(t, out, "Item 049")
	assert.NotContains(t, out, "Item 050")
}

func TestRender_CapAppliesPerGroup(t *testing.T) {
	var products []entities.ProductEntry
	for i := 0; i < 5; i++ {
		products = append(products,
			entities.ProductEntry{Name: fmt.Sprintf("A%d", i), Active: entities.Active},
			entities.ProductEntry{Name: fmt.Sprintf("I%d", i), Active: entities.Inactive},
		)
	}

	out := NewPromptRenderer(nil, 2).Render(nil, products, "oi")

	assert.Equal(t, 2, strings.Count(out, "(DISPONÍVEL)"))
	assert.Equal(t, 2, strings.Count(out, "(SEM ESTOQUE)"))
	assert.Contains(t, out, "• A1 ")
	assert.Contains(t, out, "• I1 ")
	assert.NotContains(t, out, "• A2 ")
}

func TestRender_PriceClause(t *testing.T) {
	products := []entities.ProductEntry{
		{Name: "Sem preço"},
		{Name: "NaN", Price: price(math.NaN())},
		{Name: "Inf", Price: price(math.Inf(1))},
		{Name: "Caderno", Price: price(12), Category: "Papelaria", Description: "100 folhas"},
	}

	out := newTestRenderer().Render(nil, products, "oi")

	assert.Contains(t, out, "• Sem preço (DISPONÍVEL)")
	assert.Contains(t, out, "• NaN (DISPONÍVEL)")
	assert.Contains(t, out, "• Inf (DISPONÍVEL)")
	assert.Contains(t, out, "• Caderno [Papelaria] - R$ 12.00 - 100 folhas (DISPONÍVEL)")
}

func TestRender_UnnamedProduct(t *testing.T) {
	out := newTestRenderer().Render(nil, []entities.ProductEntry{{Name: "  "}}, "oi")
	assert.Contains(t, out, "• Produto (DISPONÍVEL)")
}

func TestRender_LegacyCatalog(t *testing.T) {
	cfg := entities.TenantConfig{entities.SettingLegacyProducts: "Caneta azul R$2\nCaderno R$10"}

	out := newTestRenderer().Render(cfg, nil, "oi")
	assert.Contains(t, out, "Produtos (texto livre):\nCaneta azul R$2\nCaderno R$10")
	assert.NotContains(t, out, "Nenhum produto cadastrado")

	structured := newTestRenderer().Render(cfg, []entities.ProductEntry{{Name: "Caneta"}}, "oi")
	assert.NotContains(t, structured, "texto livre")
}

func TestRender_Persona(t *testing.T) {
	cfg := entities.TenantConfig{
		entities.SettingCompanyName:         " Papelaria Central ",
		entities.SettingBusinessDescription: "Materiais escolares",
		entities.SettingOpeningHours:        "Seg a Sex, 9h às 18h",
		entities.SettingTone:                "Divertido e direto",
	}

	out := newTestRenderer().Render(cfg, nil, "oi")

	assert.True(t, strings.HasPrefix(out, `Você é a InfinixAI, atendente virtual da empresa "Papelaria Central".`))
	assert.Contains(t, out, "SOBRE A EMPRESA:\nMateriais escolares")
	assert.Contains(t, out, "HORÁRIO DE ATENDIMENTO:\nSeg a Sex, 9h às 18h")
	assert.Contains(t, out, "ESTILO DE ATENDIMENTO:\nDivertido e direto")
}

func TestRender_TonePresets(t *testing.T) {
	r := newTestRenderer()

	informal := r.Render(entities.TenantConfig{entities.SettingTone: "informal"}, nil, "oi")
	assert.Contains(t, informal, "abreviações e emojis")

	formal := r.Render(entities.TenantConfig{entities.SettingTone: "FORMAL"}, nil, "oi")
	assert.Contains(t, formal, "sem muitas gírias")
}

func TestRender_NonStringSettings(t *testing.T) {
	cfg := entities.TenantConfig{
		entities.SettingCompanyName:  12345,
		entities.SettingOpeningHours: map[string]any{"text": "24h"},
		entities.SettingTone:         true,
	}

	out := newTestRenderer().Render(cfg, nil, 7)

	assert.Contains(t, out, `"12345"`)
	assert.Contains(t, out, "HORÁRIO DE ATENDIMENTO:\n24h")
	assert.True(t, strings.HasSuffix(out, `"7"`))
}

func TestRender_Rules(t *testing.T) {
	out := newTestRenderer().Render(nil, nil, "oi")

	assert.Contains(t, out, "português do Brasil")
	assert.Contains(t, out, "Nunca diga que é uma IA")
	assert.Contains(t, out, "NÃO invente preços")
	assert.Contains(t, out, "SEM ESTOQUE não devem ser vendidos")
	assert.Contains(t, out, "equipe da loja")
	assert.Less(t, strings.Index(out, "REGRAS IMPORTANTES:"), strings.Index(out, "MENSAGEM DO CLIENTE:"))
}

func TestRender_Deterministic(t *testing.T) {
	cfg := entities.TenantConfig{
		entities.SettingCompanyName:    "Loja",
		entities.SettingObjectionTrust: "CNPJ ativo",
	}
	products := []entities.ProductEntry{
		{Name: "B", Price: price(2)},
		{Name: "A", Active: entities.Inactive},
	}
	r := newTestRenderer()

	first := r.Render(cfg, products, "oi")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, r.Render(cfg, products, "oi"))
	}
	assert.Equal(t, strings.TrimSpace(first), first)
}

func TestLoadPromptLocale_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "en.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`intro: 'You are the assistant of "{company}".'
company_fallback: "the company"
message_heading: "CUSTOMER MESSAGE:"
`), 0o644))

	l, err := LoadPromptLocale(path)
	require.NoError(t, err)

	out := NewPromptRenderer(l, 0).Render(nil, nil, "hi")
	assert.True(t, strings.HasPrefix(out, `You are the assistant of "the company".`))
	assert.Contains(t, out, "CUSTOMER MESSAGE:\n\"hi\"")
	assert.Contains(t, out, "REGRAS IMPORTANTES:", "keys missing from the file keep their default")
}

func TestLoadPromptLocale_Errors(t *testing.T) {
	_, err := LoadPromptLocale(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("rules: [unclosed"), 0o644))
	_, err = LoadPromptLocale(bad)
	assert.Error(t, err)

	l, err := LoadPromptLocale("")
	require.NoError(t, err)
	assert.Equal(t, "a empresa", l.CompanyFallback)
}
