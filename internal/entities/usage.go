package entities

import "time"

// UsageLog records the token usage and cost of one model call.
type UsageLog struct {
	ID           int64     `json:"id"`
	TenantID     string    `json:"user_id"`
	Model        string    `json:"model"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	TotalTokens  int       `json:"total_tokens"`
	CostUSD      float64   `json:"cost_usd"`
	CostBRL      *float64  `json:"cost_brl"`
	CreatedAt    time.Time `json:"created_at"`
}

// UsageTotals aggregates tokens and cost.
type UsageTotals struct {
	Tokens int     `json:"tokens"`
	USD    float64 `json:"usd"`
	BRL    float64 `json:"brl"`
}

type MonthUsage struct {
	Month string `json:"month"`
	UsageTotals
}

// CompanyUsage is the usage of one tenant, labelled with its company name.
type CompanyUsage struct {
	TenantID    string `json:"tenantId"`
	CompanyName string `json:"companyName"`
	UsageTotals
}

// UsageSummary is the admin usage report.
type UsageSummary struct {
	Totals    UsageTotals    `json:"totals"`
	ByMonth   []MonthUsage   `json:"byMonth"`
	ByCompany []CompanyUsage `json:"byCompany"`
}
