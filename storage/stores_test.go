package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/storage-config-detail/interfaces"
)

const fixtureJSON = `{
	"tenants": [{"id": "tenant-1", "name": "Acme"}],
	"providers": [{
		"code": "aws_s3",
		"name": "Amazon S3",
		"credential_providers": ["aws"],
		"settings_schema": {"bucket": "string"},
		"features": ["versioning"],
		"is_active": true
	}],
	"configurations": [{
		"id": "cfg-1",
		"name": "Tenant media",
		"provider": "aws_s3",
		"config_type": "tenant",
		"tenant_id": "tenant-1",
		"credential_id": "cred-t",
		"settings": {"bucket": "media", "versioned": true},
		"is_active": true,
		"space_limit": 1073741824,
		"space_used": 1024
	}, {
		"id": "cfg-sys",
		"name": "Shared",
		"provider": "local_filesystem",
		"config_type": "system",
		"credential_id": "cred-s",
		"is_active": true
	}],
	"system_credentials": [{
		"id": "cred-s",
		"name": "root key",
		"provider": "aws",
		"credentials": {"access_key_id": "AKIA", "secret_access_key": "s3cr3t"},
		"is_active": true
	}],
	"tenant_credentials": [{
		"id": "cred-t",
		"tenant_id": "tenant-1",
		"name": "acme key",
		"provider": "aws",
		"credentials": {"access_key_id": "AKIB"},
		"override_system": true,
		"system_credential_id": "cred-s",
		"is_active": false,
		"expires_at": "2030-01-01T00:00:00Z"
	}],
	"modules": [
		{"code": "docs", "name": "Documents"},
		{"code": "photos", "name": "Photos"},
		{"code": "unused", "name": "Unused"}
	],
	"mappings": [
		{"module_code": "photos", "config_id": "cfg-1"},
		{"module_code": "docs", "config_id": "cfg-1"}
	],
	"module_counters": [
		{"config_id": "cfg-1", "module_code": "docs", "files_count": 3, "total_size": 300}
	],
	"usage_counters": [
		{"config_id": "cfg-1", "total_files": 3, "total_bytes": 300, "upload_count": 5, "download_count": 7, "last_upload_at": "2024-04-01T10:00:00Z"}
	]
}`

func setupDatabase(t *testing.T) *Database {
	t.Helper()

	db := NewDatabase(":memory:", 1)
	require.NoError(t, db.Connect(context.Background()))
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Setup())
	require.NoError(t, db.CreateTables())

	f, err := LoadFixture(strings.NewReader(fixtureJSON))
	require.NoError(t, err)
	require.NoError(t, Seed(context.Background(), db, f))

	return db
}

func TestConfigStore_GetByID(t *testing.T) {
	db := setupDatabase(t)
	store := NewConfigStore(db)
	ctx := context.Background()

	cfg, err := store.GetByID(ctx, "cfg-1")
	require.NoError(t, err)
	assert.Equal(t, "Tenant media", cfg.Name)
	assert.Equal(t, interfaces.TenantScope, cfg.Scope)
	require.NotNil(t, cfg.TenantID)
	assert.Equal(t, "tenant-1", *cfg.TenantID)
	assert.Equal(t, int64(1073741824), cfg.QuotaBytes)
	assert.Equal(t, int64(1024), cfg.ConsumedBytes)
	assert.Equal(t, "media", cfg.Settings["bucket"])
	assert.Equal(t, true, cfg.Settings["versioned"])
	assert.True(t, cfg.IsActive)
	assert.Nil(t, cfg.LastSyncAt)
	assert.NoError(t, cfg.ValidateScope())

	sys, err := store.GetByID(ctx, "cfg-sys")
	require.NoError(t, err)
	assert.Nil(t, sys.TenantID)
	assert.Empty(t, sys.Settings)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestConfigStore_RecordSync(t *testing.T) {
	db := setupDatabase(t)
	store := NewConfigStore(db)
	ctx := context.Background()

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.RecordSync(ctx, "cfg-1", 4096, at))

	cfg, err := store.GetByID(ctx, "cfg-1")
	require.NoError(t, err)
	assert.Equal(t, int64(4096), cfg.ConsumedBytes)
	require.NotNil(t, cfg.LastSyncAt)
	assert.True(t, at.Equal(*cfg.LastSyncAt))

	assert.ErrorIs(t, store.RecordSync(ctx, "missing", 1, at), interfaces.ErrNotFound)
}

func TestStores_ClosedDatabaseIsTransient(t *testing.T) {
	db := setupDatabase(t)
	require.NoError(t, db.Close())

	_, err := NewConfigStore(db).GetByID(context.Background(), "cfg-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrTransientFetch)
	assert.NotErrorIs(t, err, interfaces.ErrNotFound)
}

func TestProviderStore_GetByCode(t *testing.T) {
	db := setupDatabase(t)
	store := NewProviderStore(db)

	p, err := store.GetByCode(context.Background(), "aws_s3")
	require.NoError(t, err)
	assert.Equal(t, "Amazon S3", p.Name)
	assert.Equal(t, interfaces.StringList{"aws"}, p.CredentialProviders)
	assert.Equal(t, interfaces.StringList{"versioning"}, p.Features)
	assert.True(t, p.AcceptsCredentialProvider("aws"))
	assert.False(t, p.AcceptsCredentialProvider("gcp"))

	_, err = store.GetByCode(context.Background(), "ftp")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestSQLCredentialStore(t *testing.T) {
	db := setupDatabase(t)
	ctx := context.Background()

	system, err := NewSQLCredentialStore(db, SystemNamespace)
	require.NoError(t, err)
	tenant, err := NewSQLCredentialStore(db, TenantNamespace)
	require.NoError(t, err)

	rec, err := system.GetByID(ctx, "cred-s")
	require.NoError(t, err)
	assert.Equal(t, "root key", rec.Name)
	assert.Equal(t, "s3cr3t", rec.Payload["secret_access_key"])
	assert.Empty(t, rec.TenantID)

	// namespaces do not leak into each other
	_, err = system.GetByID(ctx, "cred-t")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	rec, err = tenant.GetByID(ctx, "cred-t")
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", rec.TenantID)
	assert.True(t, rec.OverrideSystem)
	assert.False(t, rec.IsActive)
	require.NotNil(t, rec.SystemCredentialID)
	assert.Equal(t, "cred-s", *rec.SystemCredentialID)
	require.NotNil(t, rec.ExpiresAt)
	assert.Equal(t, 2030, rec.ExpiresAt.Year())

	assert.Equal(t, "sqlite-tenant-credentials", tenant.Name())

	_, err = NewSQLCredentialStore(db, Namespace("global"))
	assert.Error(t, err)
}

func TestTenantStore_GetByID(t *testing.T) {
	db := setupDatabase(t)
	store := NewTenantStore(db)

	tenant, err := store.GetByID(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", tenant.DisplayName)

	_, err = store.GetByID(context.Background(), "tenant-2")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestModuleStore(t *testing.T) {
	db := setupDatabase(t)
	store := NewModuleStore(db)
	ctx := context.Background()

	codes, err := store.GetMappingsFor(ctx, "cfg-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"docs", "photos"}, codes)

	codes, err = store.GetMappingsFor(ctx, "cfg-sys")
	require.NoError(t, err)
	assert.Empty(t, codes)

	info, err := store.GetModuleInfo(ctx, []string{"photos", "docs", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, []interfaces.ModuleInfo{
		{Code: "docs", DisplayName: "Documents"},
		{Code: "photos", DisplayName: "Photos"},
	}, info)

	counters, err := store.GetCounters(ctx, "cfg-1", []string{"docs", "photos"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interfaces.ModuleCounters{
		"docs": {FileCount: 3, TotalBytes: 300},
	}, counters)

	empty, err := store.GetCounters(ctx, "cfg-1", nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	usage, err := store.GetUsageCounters(ctx, "cfg-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), usage.TotalFiles)
	assert.Equal(t, int64(300), usage.TotalBytes)
	assert.Equal(t, int64(5), usage.UploadCount)
	assert.Equal(t, int64(7), usage.DownloadCount)
	require.NotNil(t, usage.LastUploadAt)
	assert.True(t, time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC).Equal(*usage.LastUploadAt))

	none, err := store.GetUsageCounters(ctx, "cfg-sys")
	require.NoError(t, err)
	assert.Equal(t, interfaces.UsageCounters{}, none)
}

func TestModuleStore_SetCounters(t *testing.T) {
	db := setupDatabase(t)
	store := NewModuleStore(db)
	ctx := context.Background()

	require.NoError(t, store.SetModuleCounters(ctx, "cfg-1", "photos", interfaces.ModuleCounters{FileCount: 1, TotalBytes: 50}))
	require.NoError(t, store.SetModuleCounters(ctx, "cfg-1", "docs", interfaces.ModuleCounters{FileCount: 4, TotalBytes: 400}))

	counters, err := store.GetCounters(ctx, "cfg-1", []string{"docs", "photos"})
	require.NoError(t, err)
	assert.Equal(t, interfaces.ModuleCounters{FileCount: 4, TotalBytes: 400}, counters["docs"])
	assert.Equal(t, interfaces.ModuleCounters{FileCount: 1, TotalBytes: 50}, counters["photos"])
}
