package interfaces

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Scope tells whether a storage configuration is global or bound to one tenant.
type Scope string

const (
	// SystemScope configurations are shared by every tenant.
	SystemScope Scope = "system"
	// TenantScope configurations belong to exactly one tenant.
	TenantScope Scope = "tenant"
)

// Valid reports whether the scope is one of the known values.
func (s Scope) Valid() bool {
	return s == SystemScope || s == TenantScope
}

// Settings holds provider-specific key/value settings. It is persisted as a
// JSON document.
type Settings map[string]any

// Value implements driver.Valuer.
func (s Settings) Value() (driver.Value, error) {
	if s == nil {
		return "{}", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (s *Settings) Scan(src any) error {
	return scanJSON(src, s)
}

// StringList is a list of strings persisted as a JSON array.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	return scanJSON(src, l)
}

func scanJSON(src any, dst any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported JSON column type %T", src)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// StorageConfiguration is one storage backend binding (an S3 bucket, a local
// volume, ...) as recorded by the configuration store.
type StorageConfiguration struct {
	ID            string     `json:"id" db:"id"`
	Name          string     `json:"name" db:"name"`
	Description   string     `json:"description" db:"description"`
	ProviderCode  string     `json:"provider" db:"provider"`
	Scope         Scope      `json:"config_type" db:"config_type"`
	TenantID      *string    `json:"tenant_id,omitempty" db:"tenant_id"`
	CredentialID  string     `json:"credential_id" db:"credential_id"`
	Settings      Settings   `json:"settings" db:"settings"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	IsDefault     bool       `json:"is_default" db:"is_default"`
	QuotaBytes    int64      `json:"space_limit" db:"space_limit"`
	ConsumedBytes int64      `json:"space_used" db:"space_used"`
	LastSyncAt    *time.Time `json:"last_sync_at,omitempty" db:"last_sync_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
	CreatedBy     string     `json:"created_by" db:"created_by"`
	UpdatedBy     string     `json:"updated_by" db:"updated_by"`
}

// ValidateScope checks the scope/tenant pairing. A tenant configuration must
// name its tenant and a system configuration must not.
func (c *StorageConfiguration) ValidateScope() error {
	switch c.Scope {
	case TenantScope:
		if c.TenantID == nil || *c.TenantID == "" {
			return fmt.Errorf("%w: tenant configuration %s has no tenant reference", ErrInvariantViolation, c.ID)
		}
	case SystemScope:
		if c.TenantID != nil && *c.TenantID != "" {
			return fmt.Errorf("%w: system configuration %s references tenant %s", ErrInvariantViolation, c.ID, *c.TenantID)
		}
	default:
		return fmt.Errorf("%w: configuration %s has unknown scope %q", ErrInvariantViolation, c.ID, c.Scope)
	}
	return nil
}

// ProviderDescriptor is immutable reference data describing a storage provider.
type ProviderDescriptor struct {
	Code                string     `json:"code" db:"code"`
	Name                string     `json:"name" db:"name"`
	Description         string     `json:"description" db:"description"`
	CredentialProviders StringList `json:"credential_providers" db:"credential_providers"`
	SettingsSchema      Settings   `json:"settings_schema" db:"settings_schema"`
	Features            StringList `json:"features" db:"features"`
	HelpURL             string     `json:"help_url" db:"help_url"`
	IsActive            bool       `json:"is_active" db:"is_active"`
}

// AcceptsCredentialProvider reports whether credentials of the given provider
// type can be bound to configurations of this provider. An empty list accepts
// anything.
func (p *ProviderDescriptor) AcceptsCredentialProvider(code string) bool {
	if len(p.CredentialProviders) == 0 {
		return true
	}
	for _, c := range p.CredentialProviders {
		if c == code {
			return true
		}
	}
	return false
}

// CredentialRecord is the shape shared by both credential namespaces as they
// are stored. Tenant-only columns stay zero for system credentials.
type CredentialRecord struct {
	ID                 string     `json:"id" db:"id"`
	TenantID           string     `json:"tenant_id,omitempty" db:"tenant_id"`
	Name               string     `json:"name" db:"name"`
	Description        string     `json:"description" db:"description"`
	ProviderCode       string     `json:"provider" db:"provider"`
	AuthType           string     `json:"auth_type" db:"auth_type"`
	Payload            Settings   `json:"credentials" db:"credentials"`
	Metadata           Settings   `json:"metadata" db:"metadata"`
	IsActive           bool       `json:"is_active" db:"is_active"`
	OverrideSystem     bool       `json:"override_system" db:"override_system"`
	SystemCredentialID *string    `json:"system_credential_id,omitempty" db:"system_credential_id"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
	CreatedBy          string     `json:"created_by" db:"created_by"`
	UpdatedBy          string     `json:"updated_by" db:"updated_by"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	LastUsedAt         *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
}

// Credential is the normalized view of a credential, whichever namespace it
// came from. The raw payload never leaves the resolver: only its key names
// and a fingerprint are exposed.
type Credential struct {
	ID                 string     `json:"id"`
	Scope              Scope      `json:"scope"`
	Name               string     `json:"name"`
	Description        string     `json:"description"`
	ProviderCode       string     `json:"provider"`
	AuthType           string     `json:"auth_type"`
	PayloadKeys        []string   `json:"payload_keys"`
	PayloadFingerprint string     `json:"payload_fingerprint"`
	Metadata           Settings   `json:"metadata,omitempty"`
	IsActive           bool       `json:"is_active"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	CreatedBy          string     `json:"created_by"`
	UpdatedBy          string     `json:"updated_by"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
	LastUsedAt         *time.Time `json:"last_used_at,omitempty"`

	// Tenant namespace only.
	TenantID           *string `json:"tenant_id,omitempty"`
	OverrideSystem     bool    `json:"override_system"`
	SystemCredentialID *string `json:"system_credential_id,omitempty"`
}

// Expired reports whether the credential has an expiry in the past.
func (c *Credential) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

// Tenant is the display information of a tenant.
type Tenant struct {
	ID          string `json:"id" db:"id"`
	DisplayName string `json:"name" db:"name"`
}

// ModuleInfo names a module that consumes storage.
type ModuleInfo struct {
	Code        string `json:"code" db:"code"`
	DisplayName string `json:"name" db:"name"`
}

// ModuleCounters are the raw counters of one module on one configuration.
type ModuleCounters struct {
	FileCount  int64 `json:"files_count" db:"file_count"`
	TotalBytes int64 `json:"total_size" db:"total_bytes"`
}

// ModuleUsage is one row of the per-module breakdown.
type ModuleUsage struct {
	Code        string `json:"module_code"`
	DisplayName string `json:"module_name"`
	FileCount   int64  `json:"files_count"`
	TotalBytes  int64  `json:"total_size"`
}

// UsageCounters are the authoritative totals of a configuration as reported
// by the counter source. Upload and download counts are cumulative.
type UsageCounters struct {
	TotalFiles    int64      `json:"total_files" db:"total_files"`
	TotalBytes    int64      `json:"total_bytes" db:"total_bytes"`
	UploadCount   int64      `json:"upload_count" db:"upload_count"`
	DownloadCount int64      `json:"download_count" db:"download_count"`
	LastUploadAt  *time.Time `json:"last_upload_at,omitempty" db:"last_upload_at"`
}

// NotificationKind classifies a notification.
type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
)

var (
	// ErrNotFound is returned when the requested entity does not exist.
	// It is a valid outcome callers must branch on, not a failure.
	ErrNotFound = errors.New("not found")

	// ErrTransientFetch is returned when a backend could not be queried.
	// Callers may retry.
	ErrTransientFetch = errors.New("transient fetch failure")

	// ErrInvariantViolation marks data that breaks a documented invariant.
	// Consumers degrade to a fallback value instead of failing.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrInvalidLocationURI is returned when a store location URI is malformed or unsupported.
	ErrInvalidLocationURI = errors.New("invalid store location URI")
)
