package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"

	"github.com/ruteri/storage-config-detail/interfaces"
)

// VaultConfig configures a VaultCredentialStore.
type VaultConfig struct {
	Address   string
	Token     string
	MountPath string // KV v2 mount, e.g. "secret"
	DataPath  string // path under the mount, e.g. "storage/credentials"
	Namespace Namespace

	Timeout    time.Duration
	MaxRetries int
}

// VaultCredentialStore reads one credential namespace from a HashiCorp Vault
// KV v2 engine. Each credential is a secret at
// <mount>/data/<path>/<namespace>/<id> whose data holds the credential fields
// using their JSON names.
type VaultCredentialStore struct {
	client      *api.Client
	mountPath   string
	dataPath    string
	namespace   Namespace
	log         *slog.Logger
	locationURI string
}

// NewVaultCredentialStore creates a Vault-backed credential store using token
// authentication.
func NewVaultCredentialStore(cfg VaultConfig, log *slog.Logger) (*VaultCredentialStore, error) {
	switch cfg.Namespace {
	case SystemNamespace, TenantNamespace:
	default:
		return nil, fmt.Errorf("unknown credential namespace %q", cfg.Namespace)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	config := api.DefaultConfig()
	config.Address = cfg.Address
	config.HttpClient = &http.Client{Timeout: timeout}
	config.MaxRetries = cfg.MaxRetries

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}

	mountPath := strings.Trim(cfg.MountPath, "/")
	dataPath := strings.Trim(cfg.DataPath, "/")

	return &VaultCredentialStore{
		client:      client,
		mountPath:   mountPath,
		dataPath:    dataPath,
		namespace:   cfg.Namespace,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", strings.TrimPrefix(strings.TrimPrefix(cfg.Address, "https://"), "http://"), mountPath, dataPath),
	}, nil
}

func (s *VaultCredentialStore) secretPath(id string) string {
	if s.dataPath == "" {
		return fmt.Sprintf("%s/data/%s/%s", s.mountPath, s.namespace, id)
	}
	return fmt.Sprintf("%s/data/%s/%s/%s", s.mountPath, s.dataPath, s.namespace, id)
}

// GetByID implements interfaces.CredentialStore.
func (s *VaultCredentialStore) GetByID(ctx context.Context, id string) (*interfaces.CredentialRecord, error) {
	start := time.Now()
	path := s.secretPath(id)

	secret, err := s.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		s.log.Error("Failed to read from Vault",
			slog.String("path", path),
			slog.String("credential_id", id),
			"err", err)
		return nil, fmt.Errorf("%w: vault read %s: %v", interfaces.ErrTransientFetch, path, err)
	}

	if secret == nil || secret.Data == nil {
		s.log.Debug("Credential not found in Vault",
			slog.String("path", path),
			slog.String("credential_id", id))
		return nil, fmt.Errorf("%s credential %s %w", s.namespace, id, interfaces.ErrNotFound)
	}

	// KV v2 wraps the payload in data.data; a soft-deleted version has nil data.
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok || data == nil {
		return nil, fmt.Errorf("%s credential %s %w", s.namespace, id, interfaces.ErrNotFound)
	}

	rec, err := decodeVaultCredential(data)
	if err != nil {
		s.log.Error("Invalid credential format in Vault",
			slog.String("path", path),
			slog.String("credential_id", id),
			"err", err)
		return nil, fmt.Errorf("%w: %s: %v", interfaces.ErrInvariantViolation, path, err)
	}
	rec.ID = id

	if meta, ok := secret.Data["metadata"].(map[string]interface{}); ok && rec.CreatedAt.IsZero() {
		if created, ok := meta["created_time"].(string); ok {
			if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
				rec.CreatedAt = t
				rec.UpdatedAt = t
			}
		}
	}

	s.log.Debug("Fetched credential from Vault",
		slog.String("credential_id", id),
		slog.String("namespace", string(s.namespace)),
		slog.Duration("duration", time.Since(start)))

	return rec, nil
}

func decodeVaultCredential(data map[string]interface{}) (*interfaces.CredentialRecord, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	rec := &interfaces.CredentialRecord{IsActive: true}
	if err := json.Unmarshal(raw, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Available checks that Vault is initialized and unsealed.
func (s *VaultCredentialStore) Available(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := s.client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		s.log.Debug("Vault health check failed", "err", err)
		return false
	}

	if !health.Initialized || health.Sealed {
		s.log.Debug("Vault is not available",
			slog.Bool("initialized", health.Initialized),
			slog.Bool("sealed", health.Sealed))
		return false
	}

	return true
}

// Name implements interfaces.CredentialStore.
func (s *VaultCredentialStore) Name() string {
	return fmt.Sprintf("vault-%s-%s", s.mountPath, s.namespace)
}

// LocationURI returns the URI that identifies this store.
func (s *VaultCredentialStore) LocationURI() string {
	return s.locationURI
}
