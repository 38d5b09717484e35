package interfaces

import (
	"context"
	"fmt"
	"net/url"
)

// ConfigurationStore reads storage configurations.
type ConfigurationStore interface {
	// GetByID returns the configuration or ErrNotFound.
	GetByID(ctx context.Context, id string) (*StorageConfiguration, error)
}

// ProviderCatalog reads provider reference data.
type ProviderCatalog interface {
	// GetByCode returns the provider or ErrNotFound.
	GetByCode(ctx context.Context, code string) (*ProviderDescriptor, error)
}

// CredentialStore reads credentials from a single namespace.
type CredentialStore interface {
	// GetByID returns the credential or ErrNotFound.
	GetByID(ctx context.Context, id string) (*CredentialRecord, error)

	// Name returns identifier for logging.
	Name() string
}

// TenantDirectory reads tenant display information.
type TenantDirectory interface {
	// GetByID returns the tenant or ErrNotFound.
	GetByID(ctx context.Context, id string) (*Tenant, error)
}

// ModuleUsageSource provides module mappings and the raw usage counters of a
// configuration.
type ModuleUsageSource interface {
	// GetMappingsFor returns the codes of the modules mapped to a configuration.
	GetMappingsFor(ctx context.Context, configID string) ([]string, error)

	// GetModuleInfo returns display information for the given module codes.
	// Unknown codes are skipped.
	GetModuleInfo(ctx context.Context, codes []string) ([]ModuleInfo, error)

	// GetCounters returns the counters of the given modules on a configuration.
	// Modules without counters are absent from the result.
	GetCounters(ctx context.Context, configID string, codes []string) (map[string]ModuleCounters, error)

	// GetUsageCounters returns the totals of a configuration.
	GetUsageCounters(ctx context.Context, configID string) (UsageCounters, error)
}

// Notifier receives user-facing notifications. Delivery is fire-and-forget.
type Notifier interface {
	Notify(kind NotificationKind, title, message string)
}

// StoreLocation represents the URI of a store backend.
type StoreLocation struct {
	Raw    string     // Original URI
	Scheme string     // Protocol
	Host   string     // Hostname
	Path   string     // Resource path
	Query  url.Values // Query parameters
}

// NewStoreLocation parses and validates a store URI.
func NewStoreLocation(uri string) (StoreLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return StoreLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	switch parsed.Scheme {
	case "sqlite", "vault", "file":
	default:
		return StoreLocation{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidLocationURI, parsed.Scheme)
	}

	return StoreLocation{
		Raw:    uri,
		Scheme: parsed.Scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
	}, nil
}

// String returns the original URI string.
func (loc StoreLocation) String() string {
	return loc.Raw
}

// GetParam returns a query parameter value.
func (loc StoreLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

// GetParamBool returns a boolean query parameter value.
func (loc StoreLocation) GetParamBool(name string) bool {
	value := loc.Query.Get(name)
	return value == "true" || value == "1" || value == "yes"
}
