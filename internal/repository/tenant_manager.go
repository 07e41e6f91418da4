package repository

import (
	"context"
	"database/sql"
	"fmt"

	"infinixai/internal/entities"
)

// TenantManager creates and removes the data of a tenant. A tenant is the
// dashboard user that owns it; its id is the user id.
type TenantManager struct {
	db *sql.DB
}

func NewTenantManager(db *sql.DB) *TenantManager {
	return &TenantManager{db: db}
}

// Provision seeds a settings record so the chat pipeline finds the tenant.
// Existing keys are left untouched.
func (t *TenantManager) Provision(ctx context.Context, tenantID, companyName string) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, key := range entities.SettingKeys {
		value := ""
		if key == entities.SettingCompanyName {
			value = companyName
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tenant_settings (tenant_id, key, value)
			VALUES ($1, $2, to_jsonb($3::text))
			ON CONFLICT (tenant_id, key) DO NOTHING`,
			tenantID, key, value)
		if err != nil {
			return fmt.Errorf("seed setting %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// Drop removes the settings, catalog and conversations of a tenant. Usage
// logs are kept for billing.
func (t *TenantManager) Drop(ctx context.Context, tenantID string) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"chat_logs", "conversations", "products", "tenant_settings"} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE tenant_id = $1", table), tenantID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}
