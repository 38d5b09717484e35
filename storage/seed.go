package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ruteri/storage-config-detail/interfaces"
)

// Fixture is a JSON document describing database contents, used to seed
// development and test databases.
type Fixture struct {
	Tenants           []*interfaces.Tenant               `json:"tenants"`
	Providers         []*interfaces.ProviderDescriptor   `json:"providers"`
	Configurations    []*interfaces.StorageConfiguration `json:"configurations"`
	SystemCredentials []*interfaces.CredentialRecord     `json:"system_credentials"`
	TenantCredentials []*interfaces.CredentialRecord     `json:"tenant_credentials"`
	Modules           []interfaces.ModuleInfo            `json:"modules"`
	Mappings          []FixtureMapping                   `json:"mappings"`
	ModuleCounters    []FixtureModuleCounters            `json:"module_counters"`
	UsageCounters     []FixtureUsageCounters             `json:"usage_counters"`
}

type FixtureMapping struct {
	ModuleCode string `json:"module_code"`
	ConfigID   string `json:"config_id"`
}

type FixtureModuleCounters struct {
	ConfigID   string `json:"config_id"`
	ModuleCode string `json:"module_code"`
	interfaces.ModuleCounters
}

type FixtureUsageCounters struct {
	ConfigID string `json:"config_id"`
	interfaces.UsageCounters
}

// LoadFixture decodes a fixture document.
func LoadFixture(r io.Reader) (*Fixture, error) {
	var f Fixture
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode fixture: %w", err)
	}
	return &f, nil
}

// Seed writes the fixture into db. Existing rows with the same keys are
// replaced.
func Seed(ctx context.Context, db *Database, f *Fixture) error {
	tenants := NewTenantStore(db)
	for _, t := range f.Tenants {
		if err := tenants.Put(ctx, t); err != nil {
			return err
		}
	}

	providers := NewProviderStore(db)
	for _, p := range f.Providers {
		if err := providers.Put(ctx, p); err != nil {
			return err
		}
	}

	configs := NewConfigStore(db)
	for _, c := range f.Configurations {
		if err := configs.Put(ctx, c); err != nil {
			return err
		}
	}

	for _, ns := range []struct {
		namespace Namespace
		records   []*interfaces.CredentialRecord
	}{
		{SystemNamespace, f.SystemCredentials},
		{TenantNamespace, f.TenantCredentials},
	} {
		store, err := NewSQLCredentialStore(db, ns.namespace)
		if err != nil {
			return err
		}
		for _, rec := range ns.records {
			if err := store.Put(ctx, rec); err != nil {
				return err
			}
		}
	}

	modules := NewModuleStore(db)
	for _, m := range f.Modules {
		if err := modules.PutModule(ctx, m); err != nil {
			return err
		}
	}
	for _, m := range f.Mappings {
		if err := modules.Map(ctx, m.ModuleCode, m.ConfigID); err != nil {
			return err
		}
	}
	for _, c := range f.ModuleCounters {
		if err := modules.SetModuleCounters(ctx, c.ConfigID, c.ModuleCode, c.ModuleCounters); err != nil {
			return err
		}
	}
	for _, c := range f.UsageCounters {
		if err := modules.SetUsageCounters(ctx, c.ConfigID, c.UsageCounters); err != nil {
			return err
		}
	}

	return nil
}
