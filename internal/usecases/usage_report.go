package usecases

import (
	"context"
	"fmt"
	"sort"
	"time"

	"infinixai/internal/entities"
	"infinixai/internal/interfaces"
)

const (
	unknownCompany = "Empresa desconhecida"
	unnamedCompany = "Sem nome"
)

// UsageReport aggregates usage logs for the admin panel.
type UsageReport struct {
	usage     interfaces.UsageStore
	companies interfaces.CompanyDirectory
	costs     *CostCalculator
}

func NewUsageReport(usage interfaces.UsageStore, companies interfaces.CompanyDirectory, costs *CostCalculator) *UsageReport {
	return &UsageReport{usage: usage, companies: companies, costs: costs}
}

// ParseDateRange turns optional YYYY-MM-DD bounds into an inclusive UTC
// range. Empty bounds stay zero.
func ParseDateRange(startDate, endDate string) (from, to time.Time, err error) {
	if startDate != "" {
		if from, err = time.Parse(time.DateOnly, startDate); err != nil {
			return from, to, fmt.Errorf("invalid startDate %q: %w", startDate, err)
		}
	}
	if endDate != "" {
		if to, err = time.Parse(time.DateOnly, endDate); err != nil {
			return from, to, fmt.Errorf("invalid endDate %q: %w", endDate, err)
		}
		to = to.Add(24*time.Hour - time.Millisecond)
	}
	return from, to, nil
}

// Summary returns totals, per-month (newest first) and per-company usage
// between from and to. Zero bounds are open.
func (r *UsageReport) Summary(ctx context.Context, from, to time.Time) (*entities.UsageSummary, error) {
	companies, err := r.companies.ListCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	names := make(map[string]string, len(companies))
	for _, c := range companies {
		name := c.CompanyName
		if name == "" {
			name = unnamedCompany
		}
		names[c.TenantID] = name
	}

	logs, err := r.usage.ListBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}

	summary := &entities.UsageSummary{
		ByMonth:   []entities.MonthUsage{},
		ByCompany: []entities.CompanyUsage{},
	}
	months := make(map[string]*entities.UsageTotals)
	perCompany := make(map[string]*entities.UsageTotals)

	for _, l := range logs {
		brl := r.costs.ToBRL(l.CostUSD)
		if l.CostBRL != nil {
			brl = *l.CostBRL
		}
		row := entities.UsageTotals{Tokens: l.TotalTokens, USD: l.CostUSD, BRL: brl}

		addTotals(&summary.Totals, row)
		addTotals(bucket(months, l.CreatedAt.UTC().Format("2006-01")), row)

		addTotals(bucket(perCompany, l.TenantID), row)
	}

	for month, t := range months {
		summary.ByMonth = append(summary.ByMonth, entities.MonthUsage{Month: month, UsageTotals: *t})
	}
	sort.Slice(summary.ByMonth, func(i, j int) bool {
		return summary.ByMonth[i].Month > summary.ByMonth[j].Month
	})

	for tenantID, t := range perCompany {
		name, ok := names[tenantID]
		if !ok {
			name = unknownCompany
		}
		summary.ByCompany = append(summary.ByCompany, entities.CompanyUsage{TenantID: tenantID, CompanyName: name, UsageTotals: *t})
	}
	sort.Slice(summary.ByCompany, func(i, j int) bool {
		a, b := summary.ByCompany[i], summary.ByCompany[j]
		if a.USD != b.USD {
			return a.USD > b.USD
		}
		if a.CompanyName != b.CompanyName {
			return a.CompanyName < b.CompanyName
		}
		return a.TenantID < b.TenantID
	})

	return summary, nil
}

func bucket(m map[string]*entities.UsageTotals, key string) *entities.UsageTotals {
	t, ok := m[key]
	if !ok {
		t = &entities.UsageTotals{}
		m[key] = t
	}
	return t
}

func addTotals(dst *entities.UsageTotals, row entities.UsageTotals) {
	dst.Tokens += row.Tokens
	dst.USD += row.USD
	dst.BRL += row.BRL
}
