package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"infinixai/internal/entities"
)

// SettingsRepository stores tenant settings as one JSONB value per key.
type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetTenantConfig returns every setting of a tenant. found is false when the
// tenant has no rows at all. Values that are not valid JSON come back as
// their raw text.
func (r *SettingsRepository) GetTenantConfig(ctx context.Context, tenantID string) (entities.TenantConfig, bool, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT key, value FROM tenant_settings WHERE tenant_id = $1", tenantID)
	if err != nil {
		return nil, false, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	cfg := entities.TenantConfig{}
	found := false
	for rows.Next() {
		var key string
		var raw []byte
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, false, fmt.Errorf("scan setting: %w", err)
		}
		found = true
		cfg[key] = decodeValue(raw)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate settings: %w", err)
	}
	return cfg, found, nil
}

// SaveTenantConfig upserts every key of cfg in one transaction.
func (r *SettingsRepository) SaveTenantConfig(ctx context.Context, tenantID string, cfg entities.TenantConfig) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, key := range slices.Sorted(maps.Keys(cfg)) {
		if err := upsertSetting(ctx, tx, tenantID, key, cfg[key]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SetSetting upserts a single key.
func (r *SettingsRepository) SetSetting(ctx context.Context, tenantID, key string, value any) error {
	return upsertSetting(ctx, r.db, tenantID, key, value)
}

// DeleteSetting removes a single key.
func (r *SettingsRepository) DeleteSetting(ctx context.Context, tenantID, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tenant_settings WHERE tenant_id = $1 AND key = $2`, tenantID, key); err != nil {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	return nil
}

// SettingText returns the text value of one key, "" when unset.
func (r *SettingsRepository) SettingText(ctx context.Context, tenantID, key string) (string, error) {
	var value sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT value #>> '{}' FROM tenant_settings WHERE tenant_id = $1 AND key = $2`,
		tenantID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return value.String, nil
}

// TenantsWithSetting maps every tenant that has a non-empty key to its value.
// Used on startup to bring channel connections back.
func (r *SettingsRepository) TenantsWithSetting(ctx context.Context, key string) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT tenant_id, value #>> '{}'
		FROM tenant_settings
		WHERE key = $1 AND COALESCE(value #>> '{}', '') <> ''`, key)
	if err != nil {
		return nil, fmt.Errorf("query setting %s: %w", key, err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var tenantID, value string
		if err := rows.Scan(&tenantID, &value); err != nil {
			return nil, fmt.Errorf("scan setting %s: %w", key, err)
		}
		out[tenantID] = value
	}
	return out, rows.Err()
}

// ListCompanies returns every tenant with settings, ordered by company name.
func (r *SettingsRepository) ListCompanies(ctx context.Context) ([]entities.Company, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT tenant_id,
		       COALESCE(MAX(CASE WHEN key = 'company_name' THEN value #>> '{}' END), '') AS company_name
		FROM tenant_settings
		GROUP BY tenant_id
		ORDER BY company_name, tenant_id`)
	if err != nil {
		return nil, fmt.Errorf("query companies: %w", err)
	}
	defer rows.Close()

	companies := []entities.Company{}
	for rows.Next() {
		var c entities.Company
		if err := rows.Scan(&c.TenantID, &c.CompanyName); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertSetting(ctx context.Context, db execer, tenantID, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO tenant_settings (tenant_id, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (tenant_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		tenantID, key, string(data))
	if err != nil {
		return fmt.Errorf("upsert setting %s: %w", key, err)
	}
	return nil
}

func decodeValue(raw []byte) any {
	if raw == nil {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}
