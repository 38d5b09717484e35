package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/ruteri/storage-config-detail/interfaces"
)

// StoreFactory creates stores from location URIs and owns the databases it
// opens.
//
// Supported schemes:
//   - sqlite:///path/to/db.sqlite or sqlite://memory - relational stores
//   - vault://host:port/mount/path - credential namespaces (KV v2)
//   - file:///path/to/providers.json - provider catalog
type StoreFactory struct {
	log *slog.Logger

	mu  sync.Mutex
	dbs map[string]*Database
}

func NewStoreFactory(log *slog.Logger) *StoreFactory {
	return &StoreFactory{
		log: log,
		dbs: make(map[string]*Database),
	}
}

// StoreURIs names the location of every store the service reads.
type StoreURIs struct {
	Database          string
	Providers         string // defaults to Database
	SystemCredentials string // defaults to Database
	TenantCredentials string // defaults to Database
}

// Stores bundles the stores of one deployment.
type Stores struct {
	Configurations    *ConfigStore
	Providers         interfaces.ProviderCatalog
	SystemCredentials interfaces.CredentialStore
	TenantCredentials interfaces.CredentialStore
	Tenants           *TenantStore
	Modules           *ModuleStore
}

// Unavailable returns the names of the stores that report themselves
// unreachable. Stores without a health check are assumed available.
func (s *Stores) Unavailable(ctx context.Context) []string {
	var down []string
	for _, store := range []interfaces.CredentialStore{s.SystemCredentials, s.TenantCredentials} {
		checker, ok := store.(interface{ Available(context.Context) bool })
		if ok && !checker.Available(ctx) {
			down = append(down, store.Name())
		}
	}
	return down
}

// Open creates every store named by uris.
func (sf *StoreFactory) Open(ctx context.Context, uris StoreURIs) (*Stores, error) {
	if uris.Database == "" {
		return nil, fmt.Errorf("%w: database location is required", interfaces.ErrInvalidLocationURI)
	}

	loc, err := interfaces.NewStoreLocation(uris.Database)
	if err != nil {
		return nil, err
	}
	if loc.Scheme != "sqlite" {
		return nil, fmt.Errorf("%w: database must be a sqlite location, got %s", interfaces.ErrInvalidLocationURI, loc.Scheme)
	}

	db, err := sf.database(ctx, loc)
	if err != nil {
		return nil, err
	}

	providers, err := sf.ProviderCatalogFor(ctx, orDefault(uris.Providers, uris.Database))
	if err != nil {
		return nil, err
	}

	system, err := sf.CredentialStoreFor(ctx, orDefault(uris.SystemCredentials, uris.Database), SystemNamespace)
	if err != nil {
		return nil, err
	}

	tenant, err := sf.CredentialStoreFor(ctx, orDefault(uris.TenantCredentials, uris.Database), TenantNamespace)
	if err != nil {
		return nil, err
	}

	return &Stores{
		Configurations:    NewConfigStore(db),
		Providers:         providers,
		SystemCredentials: system,
		TenantCredentials: tenant,
		Tenants:           NewTenantStore(db),
		Modules:           NewModuleStore(db),
	}, nil
}

// ProviderCatalogFor creates a provider catalog from a sqlite or file location.
func (sf *StoreFactory) ProviderCatalogFor(ctx context.Context, uri string) (interfaces.ProviderCatalog, error) {
	loc, err := interfaces.NewStoreLocation(uri)
	if err != nil {
		return nil, err
	}

	switch loc.Scheme {
	case "sqlite":
		db, err := sf.database(ctx, loc)
		if err != nil {
			return nil, err
		}
		return NewProviderStore(db), nil
	case "file":
		sf.log.Debug("Creating file provider catalog", slog.String("uri", uri))
		return NewFileProviderCatalog(filePath(loc), sf.log)
	default:
		return nil, fmt.Errorf("%w: scheme %s cannot serve providers", interfaces.ErrInvalidLocationURI, loc.Scheme)
	}
}

// CredentialStoreFor creates a credential store for one namespace from a
// sqlite or vault location.
func (sf *StoreFactory) CredentialStoreFor(ctx context.Context, uri string, namespace Namespace) (interfaces.CredentialStore, error) {
	loc, err := interfaces.NewStoreLocation(uri)
	if err != nil {
		return nil, err
	}

	switch loc.Scheme {
	case "sqlite":
		db, err := sf.database(ctx, loc)
		if err != nil {
			return nil, err
		}
		return NewSQLCredentialStore(db, namespace)
	case "vault":
		return sf.createVaultStore(loc, namespace)
	default:
		return nil, fmt.Errorf("%w: scheme %s cannot serve credentials", interfaces.ErrInvalidLocationURI, loc.Scheme)
	}
}

// createVaultStore creates a Vault credential store.
// URI format: vault://host:port/mount/path?tls=false&token_env=VAULT_TOKEN&retries=2
// The token is read from the environment variable named by token_env.
func (sf *StoreFactory) createVaultStore(loc interfaces.StoreLocation, namespace Namespace) (interfaces.CredentialStore, error) {
	sf.log.Debug("Creating Vault credential store",
		slog.String("uri", loc.String()),
		slog.String("namespace", string(namespace)))

	if loc.Host == "" {
		return nil, fmt.Errorf("%w: vault location needs a host", interfaces.ErrInvalidLocationURI)
	}

	parts := strings.SplitN(strings.Trim(loc.Path, "/"), "/", 2)
	if parts[0] == "" {
		return nil, fmt.Errorf("%w: vault location needs a mount path", interfaces.ErrInvalidLocationURI)
	}
	mount := parts[0]
	dataPath := ""
	if len(parts) == 2 {
		dataPath = parts[1]
	}

	scheme := "https"
	if v := loc.GetParam("tls"); v == "false" || v == "0" {
		scheme = "http"
	}

	tokenEnv := loc.GetParam("token_env")
	if tokenEnv == "" {
		tokenEnv = "VAULT_TOKEN"
	}

	retries := 2
	if v := loc.GetParam("retries"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: invalid retries %q", interfaces.ErrInvalidLocationURI, v)
		}
		retries = n
	}

	return NewVaultCredentialStore(VaultConfig{
		Address:    fmt.Sprintf("%s://%s", scheme, loc.Host),
		Token:      os.Getenv(tokenEnv),
		MountPath:  mount,
		DataPath:   dataPath,
		Namespace:  namespace,
		MaxRetries: retries,
	}, sf.log)
}

// database returns the database at loc, opening it on first use.
// URI format: sqlite:///path/to/file.db?max_conns=4 or sqlite://memory
func (sf *StoreFactory) database(ctx context.Context, loc interfaces.StoreLocation) (*Database, error) {
	path := filePath(loc)
	maxConns := 4
	if loc.Host == "memory" {
		// every connection to :memory: gets its own database
		path = ":memory:"
		maxConns = 1
	} else if v := loc.GetParam("max_conns"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: invalid max_conns %q", interfaces.ErrInvalidLocationURI, v)
		}
		maxConns = n
	}

	if path == "" {
		return nil, fmt.Errorf("%w: empty path in %s", interfaces.ErrInvalidLocationURI, loc.String())
	}

	sf.mu.Lock()
	defer sf.mu.Unlock()

	key := loc.Host + loc.Path
	if db, ok := sf.dbs[key]; ok {
		return db, nil
	}

	sf.log.Debug("Opening database", slog.String("path", path), slog.Int("max_conns", maxConns))
	db, err := Open(ctx, path, maxConns)
	if err != nil {
		return nil, err
	}
	sf.dbs[key] = db
	return db, nil
}

// Close closes every database opened by the factory.
func (sf *StoreFactory) Close() error {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	var errs []error
	for key, db := range sf.dbs {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		delete(sf.dbs, key)
	}
	return errors.Join(errs...)
}

// filePath joins host and path so both file:///abs and file://./rel work.
func filePath(loc interfaces.StoreLocation) string {
	if loc.Host == "" {
		return loc.Path
	}
	return loc.Host + "/" + strings.TrimPrefix(loc.Path, "/")
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
