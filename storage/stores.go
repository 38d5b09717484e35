package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ruteri/storage-config-detail/interfaces"
)

// ConfigStore reads storage configurations from the storage_configs table.
type ConfigStore struct {
	*Database
}

func NewConfigStore(db *Database) *ConfigStore {
	return &ConfigStore{db}
}

// GetByID implements interfaces.ConfigurationStore.
func (s *ConfigStore) GetByID(ctx context.Context, id string) (*interfaces.StorageConfiguration, error) {
	query := `
		SELECT id, name, description, provider, config_type, tenant_id, credential_id,
			settings, is_active, is_default, space_limit, space_used, last_sync_at,
			created_at, updated_at, created_by, updated_by
		FROM storage_configs
		WHERE id = ?
	`

	var cfg interfaces.StorageConfiguration
	if err := s.GetContext(ctx, &cfg, query, id); err != nil {
		return nil, fetchError("configuration", id, err)
	}
	return &cfg, nil
}

// Put inserts or replaces a configuration.
func (s *ConfigStore) Put(ctx context.Context, cfg *interfaces.StorageConfiguration) error {
	query := `
		INSERT OR REPLACE INTO storage_configs (id, name, description, provider, config_type,
			tenant_id, credential_id, settings, is_active, is_default, space_limit, space_used,
			last_sync_at, created_at, updated_at, created_by, updated_by)
		VALUES (:id, :name, :description, :provider, :config_type,
			:tenant_id, :credential_id, :settings, :is_active, :is_default, :space_limit, :space_used,
			:last_sync_at, :created_at, :updated_at, :created_by, :updated_by)
	`
	if _, err := s.NamedExecContext(ctx, query, cfg); err != nil {
		return fmt.Errorf("failed to store configuration %s: %w", cfg.ID, err)
	}
	return nil
}

// RecordSync persists the result of a resync on the configuration row.
func (s *ConfigStore) RecordSync(ctx context.Context, id string, consumed int64, at time.Time) error {
	query := `UPDATE storage_configs SET space_used = ?, last_sync_at = ?, updated_at = ? WHERE id = ?`

	res, err := s.ExecContext(ctx, query, consumed, at, at, id)
	if err != nil {
		return fmt.Errorf("%w: failed to record sync of %s: %v", interfaces.ErrTransientFetch, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("configuration %s %w", id, interfaces.ErrNotFound)
	}
	return nil
}

// ProviderStore reads provider descriptors from the storage_providers table.
type ProviderStore struct {
	*Database
}

func NewProviderStore(db *Database) *ProviderStore {
	return &ProviderStore{db}
}

// GetByCode implements interfaces.ProviderCatalog.
func (s *ProviderStore) GetByCode(ctx context.Context, code string) (*interfaces.ProviderDescriptor, error) {
	query := `
		SELECT code, name, description, credential_providers, settings_schema, features, help_url, is_active
		FROM storage_providers
		WHERE code = ?
	`

	var p interfaces.ProviderDescriptor
	if err := s.GetContext(ctx, &p, query, code); err != nil {
		return nil, fetchError("provider", code, err)
	}
	return &p, nil
}

// Put inserts or replaces a provider descriptor.
func (s *ProviderStore) Put(ctx context.Context, p *interfaces.ProviderDescriptor) error {
	query := `
		INSERT OR REPLACE INTO storage_providers (code, name, description, credential_providers,
			settings_schema, features, help_url, is_active)
		VALUES (:code, :name, :description, :credential_providers,
			:settings_schema, :features, :help_url, :is_active)
	`
	if _, err := s.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("failed to store provider %s: %w", p.Code, err)
	}
	return nil
}

// Namespace selects the credential table a SQLCredentialStore reads.
type Namespace string

const (
	SystemNamespace Namespace = "system"
	TenantNamespace Namespace = "tenant"
)

// SQLCredentialStore reads one credential namespace from sqlite.
type SQLCredentialStore struct {
	*Database
	namespace Namespace
}

func NewSQLCredentialStore(db *Database, namespace Namespace) (*SQLCredentialStore, error) {
	switch namespace {
	case SystemNamespace, TenantNamespace:
	default:
		return nil, fmt.Errorf("unknown credential namespace %q", namespace)
	}
	return &SQLCredentialStore{Database: db, namespace: namespace}, nil
}

// GetByID implements interfaces.CredentialStore.
func (s *SQLCredentialStore) GetByID(ctx context.Context, id string) (*interfaces.CredentialRecord, error) {
	var query string
	switch s.namespace {
	case TenantNamespace:
		query = `
			SELECT id, tenant_id, name, description, provider, auth_type, credentials, metadata,
				is_active, override_system, system_credential_id, created_at, updated_at,
				created_by, updated_by, expires_at, last_used_at
			FROM tenant_credentials
			WHERE id = ?
		`
	default:
		query = `
			SELECT id, name, description, provider, auth_type, credentials, metadata,
				is_active, created_at, updated_at, created_by, updated_by, expires_at, last_used_at
			FROM system_credentials
			WHERE id = ?
		`
	}

	var rec interfaces.CredentialRecord
	if err := s.GetContext(ctx, &rec, query, id); err != nil {
		return nil, fetchError(string(s.namespace)+" credential", id, err)
	}
	return &rec, nil
}

// Put inserts or replaces a credential of the store's namespace.
func (s *SQLCredentialStore) Put(ctx context.Context, rec *interfaces.CredentialRecord) error {
	var query string
	switch s.namespace {
	case TenantNamespace:
		query = `
			INSERT OR REPLACE INTO tenant_credentials (id, tenant_id, name, description, provider,
				auth_type, credentials, metadata, is_active, override_system, system_credential_id,
				created_at, updated_at, created_by, updated_by, expires_at, last_used_at)
			VALUES (:id, :tenant_id, :name, :description, :provider,
				:auth_type, :credentials, :metadata, :is_active, :override_system, :system_credential_id,
				:created_at, :updated_at, :created_by, :updated_by, :expires_at, :last_used_at)
		`
	default:
		query = `
			INSERT OR REPLACE INTO system_credentials (id, name, description, provider,
				auth_type, credentials, metadata, is_active,
				created_at, updated_at, created_by, updated_by, expires_at, last_used_at)
			VALUES (:id, :name, :description, :provider,
				:auth_type, :credentials, :metadata, :is_active,
				:created_at, :updated_at, :created_by, :updated_by, :expires_at, :last_used_at)
		`
	}
	if _, err := s.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("failed to store %s credential %s: %w", s.namespace, rec.ID, err)
	}
	return nil
}

// Name implements interfaces.CredentialStore.
func (s *SQLCredentialStore) Name() string {
	return fmt.Sprintf("sqlite-%s-credentials", s.namespace)
}

// TenantStore reads tenants from the tenants table.
type TenantStore struct {
	*Database
}

func NewTenantStore(db *Database) *TenantStore {
	return &TenantStore{db}
}

// GetByID implements interfaces.TenantDirectory.
func (s *TenantStore) GetByID(ctx context.Context, id string) (*interfaces.Tenant, error) {
	var t interfaces.Tenant
	if err := s.GetContext(ctx, &t, `SELECT id, name FROM tenants WHERE id = ?`, id); err != nil {
		return nil, fetchError("tenant", id, err)
	}
	return &t, nil
}

// Put inserts or replaces a tenant.
func (s *TenantStore) Put(ctx context.Context, t *interfaces.Tenant) error {
	if _, err := s.NamedExecContext(ctx, `INSERT OR REPLACE INTO tenants (id, name) VALUES (:id, :name)`, t); err != nil {
		return fmt.Errorf("failed to store tenant %s: %w", t.ID, err)
	}
	return nil
}

// ModuleStore serves module mappings and usage counters.
type ModuleStore struct {
	*Database
}

func NewModuleStore(db *Database) *ModuleStore {
	return &ModuleStore{db}
}

// GetMappingsFor implements interfaces.ModuleUsageSource.
func (s *ModuleStore) GetMappingsFor(ctx context.Context, configID string) ([]string, error) {
	query := `SELECT module_code FROM module_storage_mappings WHERE config_id = ? ORDER BY module_code`

	codes := []string{}
	if err := s.SelectContext(ctx, &codes, query, configID); err != nil {
		return nil, fetchError("module mappings of", configID, err)
	}
	return codes, nil
}

// GetModuleInfo implements interfaces.ModuleUsageSource.
func (s *ModuleStore) GetModuleInfo(ctx context.Context, codes []string) ([]interfaces.ModuleInfo, error) {
	if len(codes) == 0 {
		return []interfaces.ModuleInfo{}, nil
	}

	query, args, err := sqlx.In(`SELECT code, name FROM system_modules WHERE code IN (?) ORDER BY code`, codes)
	if err != nil {
		return nil, fmt.Errorf("failed to build module query: %w", err)
	}

	info := []interfaces.ModuleInfo{}
	if err := s.SelectContext(ctx, &info, s.Rebind(query), args...); err != nil {
		return nil, fetchError("modules", fmt.Sprint(codes), err)
	}
	return info, nil
}

// GetCounters implements interfaces.ModuleUsageSource.
func (s *ModuleStore) GetCounters(ctx context.Context, configID string, codes []string) (map[string]interfaces.ModuleCounters, error) {
	out := make(map[string]interfaces.ModuleCounters, len(codes))
	if len(codes) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(`
		SELECT module_code, file_count, total_bytes
		FROM module_usage_counters
		WHERE config_id = ? AND module_code IN (?)
	`, configID, codes)
	if err != nil {
		return nil, fmt.Errorf("failed to build counter query: %w", err)
	}

	var rows []struct {
		Code string `db:"module_code"`
		interfaces.ModuleCounters
	}
	if err := s.SelectContext(ctx, &rows, s.Rebind(query), args...); err != nil {
		return nil, fetchError("module counters of", configID, err)
	}

	for _, r := range rows {
		out[r.Code] = r.ModuleCounters
	}
	return out, nil
}

// GetUsageCounters implements interfaces.ModuleUsageSource. A configuration
// without a counter row has zero usage.
func (s *ModuleStore) GetUsageCounters(ctx context.Context, configID string) (interfaces.UsageCounters, error) {
	query := `
		SELECT total_files, total_bytes, upload_count, download_count, last_upload_at
		FROM storage_usage_counters
		WHERE config_id = ?
	`

	var rows []interfaces.UsageCounters
	if err := s.SelectContext(ctx, &rows, query, configID); err != nil {
		return interfaces.UsageCounters{}, fetchError("usage counters of", configID, err)
	}
	if len(rows) == 0 {
		return interfaces.UsageCounters{}, nil
	}
	return rows[0], nil
}

// PutModule registers a module.
func (s *ModuleStore) PutModule(ctx context.Context, m interfaces.ModuleInfo) error {
	if _, err := s.NamedExecContext(ctx, `INSERT OR REPLACE INTO system_modules (code, name) VALUES (:code, :name)`, m); err != nil {
		return fmt.Errorf("failed to store module %s: %w", m.Code, err)
	}
	return nil
}

// Map binds a module to a configuration.
func (s *ModuleStore) Map(ctx context.Context, moduleCode, configID string) error {
	query := `INSERT OR IGNORE INTO module_storage_mappings (module_code, config_id) VALUES (?, ?)`
	if _, err := s.ExecContext(ctx, query, moduleCode, configID); err != nil {
		return fmt.Errorf("failed to map module %s to %s: %w", moduleCode, configID, err)
	}
	return nil
}

// SetModuleCounters overwrites the counters of a module on a configuration.
func (s *ModuleStore) SetModuleCounters(ctx context.Context, configID, moduleCode string, c interfaces.ModuleCounters) error {
	query := `
		INSERT OR REPLACE INTO module_usage_counters (config_id, module_code, file_count, total_bytes)
		VALUES (?, ?, ?, ?)
	`
	if _, err := s.ExecContext(ctx, query, configID, moduleCode, c.FileCount, c.TotalBytes); err != nil {
		return fmt.Errorf("failed to store counters of %s on %s: %w", moduleCode, configID, err)
	}
	return nil
}

// SetUsageCounters overwrites the totals of a configuration.
func (s *ModuleStore) SetUsageCounters(ctx context.Context, configID string, c interfaces.UsageCounters) error {
	query := `
		INSERT OR REPLACE INTO storage_usage_counters (config_id, total_files, total_bytes,
			upload_count, download_count, last_upload_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := s.ExecContext(ctx, query, configID, c.TotalFiles, c.TotalBytes, c.UploadCount, c.DownloadCount, c.LastUploadAt); err != nil {
		return fmt.Errorf("failed to store usage counters of %s: %w", configID, err)
	}
	return nil
}
