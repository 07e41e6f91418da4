package usecases

import (
	"math"
	"time"

	"infinixai/internal/entities"
)

// DefaultUSDToBRL is used when no exchange rate is configured.
const DefaultUSDToBRL = 5.5

// ModelPricing is the USD price per 1M tokens of a model.
type ModelPricing struct {
	InputPerMToken  float64 `yaml:"input_per_m_token" json:"input_per_m_token"`
	OutputPerMToken float64 `yaml:"output_per_m_token" json:"output_per_m_token"`
}

// ModelPrices holds list prices for the models the service can call.
var ModelPrices = map[string]ModelPricing{
	"gpt-4o-mini":           {InputPerMToken: 0.15, OutputPerMToken: 0.60},
	"gpt-4o":                {InputPerMToken: 2.50, OutputPerMToken: 10.00},
	"gpt-4.1-mini":          {InputPerMToken: 0.40, OutputPerMToken: 1.60},
	"gpt-4.1-nano":          {InputPerMToken: 0.10, OutputPerMToken: 0.40},
	"gemini-2.0-flash":      {InputPerMToken: 0.10, OutputPerMToken: 0.40},
	"gemini-2.0-flash-lite": {InputPerMToken: 0.075, OutputPerMToken: 0.30},
	"gemini-2.5-flash":      {InputPerMToken: 0.30, OutputPerMToken: 2.50},
	"gemini-2.5-flash-lite": {InputPerMToken: 0.10, OutputPerMToken: 0.40},
}

// CostCalculator converts token usage into USD and BRL.
type CostCalculator struct {
	USDToBRL float64
	Prices   map[string]ModelPricing
}

func NewCostCalculator(usdToBRL float64) *CostCalculator {
	if usdToBRL <= 0 || math.IsNaN(usdToBRL) || math.IsInf(usdToBRL, 0) {
		usdToBRL = DefaultUSDToBRL
	}
	return &CostCalculator{USDToBRL: usdToBRL, Prices: ModelPrices}
}

// CostUSD prices a call. Unknown models cost nothing.
func (c *CostCalculator) CostUSD(model string, inputTokens, outputTokens int) float64 {
	pricing, ok := c.Prices[model]
	if !ok {
		return 0
	}
	return float64(inputTokens)*pricing.InputPerMToken/1_000_000 +
		float64(outputTokens)*pricing.OutputPerMToken/1_000_000
}

func (c *CostCalculator) ToBRL(usd float64) float64 {
	return usd * c.USDToBRL
}

// UsageLog builds the usage record of one completion.
func (c *CostCalculator) UsageLog(tenantID string, comp entities.Completion) *entities.UsageLog {
	usd := c.CostUSD(comp.Model, comp.InputTokens, comp.OutputTokens)
	brl := c.ToBRL(usd)
	return &entities.UsageLog{
		TenantID:     tenantID,
		Model:        comp.Model,
		InputTokens:  comp.InputTokens,
		OutputTokens: comp.OutputTokens,
		TotalTokens:  comp.TotalTokens(),
		CostUSD:      usd,
		CostBRL:      &brl,
		CreatedAt:    time.Now().UTC(),
	}
}
