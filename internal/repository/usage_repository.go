package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"infinixai/internal/entities"
)

// UsageRepository stores one row per model call.
type UsageRepository struct {
	db *sql.DB
}

func NewUsageRepository(db *sql.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

func (r *UsageRepository) Record(ctx context.Context, u *entities.UsageLog) error {
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	var brl sql.NullFloat64
	if u.CostBRL != nil {
		brl = sql.NullFloat64{Float64: *u.CostBRL, Valid: true}
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO usage_logs (tenant_id, model, input_tokens, output_tokens, total_tokens, cost_usd, cost_brl, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		u.TenantID, u.Model, u.InputTokens, u.OutputTokens, u.TotalTokens, u.CostUSD, brl, createdAt,
	).Scan(&u.ID)
	if err != nil {
		return fmt.Errorf("insert usage log: %w", err)
	}
	return nil
}

// ListBetween returns usage rows created within [from, to]. A zero bound is
// open.
func (r *UsageRepository) ListBetween(ctx context.Context, from, to time.Time) ([]entities.UsageLog, error) {
	query := "SELECT id, tenant_id, model, input_tokens, output_tokens, total_tokens, cost_usd, cost_brl, created_at FROM usage_logs"
	var (
		where []string
		args  []any
	)
	if !from.IsZero() {
		args = append(args, from)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !to.IsZero() {
		args = append(args, to)
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query usage: %w", err)
	}
	defer rows.Close()

	out := []entities.UsageLog{}
	for rows.Next() {
		var u entities.UsageLog
		var brl sql.NullFloat64
		if err := rows.Scan(&u.ID, &u.TenantID, &u.Model, &u.InputTokens, &u.OutputTokens, &u.TotalTokens, &u.CostUSD, &brl, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		if brl.Valid {
			v := brl.Float64
			u.CostBRL = &v
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
