package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ruteri/storage-config-detail/interfaces"
)

const databaseType = "sqlite3"

const pragma = `
	PRAGMA journal_mode = WAL; -- checkpoints instead of atomic commits
	PRAGMA busy_timeout = 5000; -- sleep if SQLITE_BUSY is returned
	PRAGMA synchronous = NORMAL; -- only sync at critical moments when using WAL
`

const schema = `
	CREATE TABLE IF NOT EXISTS tenants (
		id		TEXT PRIMARY KEY,
		name	TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS storage_providers (
		code					TEXT PRIMARY KEY,
		name					TEXT NOT NULL,
		description				TEXT NOT NULL DEFAULT '',
		credential_providers	TEXT NOT NULL DEFAULT '[]',
		settings_schema			TEXT NOT NULL DEFAULT '{}',
		features				TEXT NOT NULL DEFAULT '[]',
		help_url				TEXT NOT NULL DEFAULT '',
		is_active				BOOLEAN NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS storage_configs (
		id				TEXT PRIMARY KEY,
		name			TEXT NOT NULL,
		description		TEXT NOT NULL DEFAULT '',
		provider		TEXT NOT NULL,
		config_type		TEXT NOT NULL CHECK (config_type IN ('system', 'tenant')),
		tenant_id		TEXT,
		credential_id	TEXT NOT NULL DEFAULT '',
		settings		TEXT NOT NULL DEFAULT '{}',
		is_active		BOOLEAN NOT NULL DEFAULT 1,
		is_default		BOOLEAN NOT NULL DEFAULT 0,
		space_limit		INTEGER NOT NULL DEFAULT 0,
		space_used		INTEGER NOT NULL DEFAULT 0,
		last_sync_at	TIMESTAMP,
		created_at		TIMESTAMP NOT NULL,
		updated_at		TIMESTAMP NOT NULL,
		created_by		TEXT NOT NULL DEFAULT '',
		updated_by		TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS system_credentials (
		id				TEXT PRIMARY KEY,
		name			TEXT NOT NULL,
		description		TEXT NOT NULL DEFAULT '',
		provider		TEXT NOT NULL,
		auth_type		TEXT NOT NULL DEFAULT '',
		credentials		TEXT NOT NULL DEFAULT '{}',
		metadata		TEXT NOT NULL DEFAULT '{}',
		is_active		BOOLEAN NOT NULL DEFAULT 1,
		created_at		TIMESTAMP NOT NULL,
		updated_at		TIMESTAMP NOT NULL,
		created_by		TEXT NOT NULL DEFAULT '',
		updated_by		TEXT NOT NULL DEFAULT '',
		expires_at		TIMESTAMP,
		last_used_at	TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS tenant_credentials (
		id						TEXT PRIMARY KEY,
		tenant_id				TEXT NOT NULL,
		name					TEXT NOT NULL,
		description				TEXT NOT NULL DEFAULT '',
		provider				TEXT NOT NULL,
		auth_type				TEXT NOT NULL DEFAULT '',
		credentials				TEXT NOT NULL DEFAULT '{}',
		metadata				TEXT NOT NULL DEFAULT '{}',
		is_active				BOOLEAN NOT NULL DEFAULT 1,
		override_system			BOOLEAN NOT NULL DEFAULT 0,
		system_credential_id	TEXT,
		created_at				TIMESTAMP NOT NULL,
		updated_at				TIMESTAMP NOT NULL,
		created_by				TEXT NOT NULL DEFAULT '',
		updated_by				TEXT NOT NULL DEFAULT '',
		expires_at				TIMESTAMP,
		last_used_at			TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS system_modules (
		code	TEXT PRIMARY KEY,
		name	TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS module_storage_mappings (
		module_code		TEXT NOT NULL,
		config_id		TEXT NOT NULL,
		PRIMARY KEY (module_code, config_id)
	);

	CREATE TABLE IF NOT EXISTS module_usage_counters (
		config_id		TEXT NOT NULL,
		module_code		TEXT NOT NULL,
		file_count		INTEGER NOT NULL DEFAULT 0,
		total_bytes		INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (config_id, module_code)
	);

	CREATE TABLE IF NOT EXISTS storage_usage_counters (
		config_id		TEXT PRIMARY KEY,
		total_files		INTEGER NOT NULL DEFAULT 0,
		total_bytes		INTEGER NOT NULL DEFAULT 0,
		upload_count	INTEGER NOT NULL DEFAULT 0,
		download_count	INTEGER NOT NULL DEFAULT 0,
		last_upload_at	TIMESTAMP
	);
`

// Database is the sqlite database backing the relational stores.
type Database struct {
	*sqlx.DB
	url                string
	maxOpenConnections int
}

func NewDatabase(url string, maxOpenConnections int) *Database {
	return &Database{
		url:                url,
		maxOpenConnections: maxOpenConnections,
	}
}

// Connect opens the database at Database.url, creating the file if needed.
func (db *Database) Connect(ctx context.Context) error {
	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var err error
	db.DB, err = sqlx.ConnectContext(dbCtx, databaseType, db.url)
	if err != nil {
		return err
	}

	db.SetMaxOpenConns(db.maxOpenConnections)

	return nil
}

// Setup applies the PRAGMA settings.
func (db *Database) Setup() error {
	if _, err := db.Exec(pragma); err != nil {
		return err
	}
	return nil
}

// CreateTables creates any missing table.
func (db *Database) CreateTables() error {
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// Open connects, configures and migrates the database in one go.
func Open(ctx context.Context, url string, maxOpenConnections int) (*Database, error) {
	db := NewDatabase(url, maxOpenConnections)
	if err := db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	if err := db.Setup(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}
	if err := db.CreateTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return db, nil
}

// fetchError maps a query error to the store sentinels.
func fetchError(what, key string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s %w", what, key, interfaces.ErrNotFound)
	}
	return fmt.Errorf("%w: failed to fetch %s %s: %v", interfaces.ErrTransientFetch, what, key, err)
}
