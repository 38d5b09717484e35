package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ruteri/storage-config-detail/interfaces"
)

// Kind tags the outcome of a resolution.
type Kind int

const (
	// NotFound means neither namespace holds the identifier.
	NotFound Kind = iota
	// System means the credential lives in the system namespace.
	System
	// Tenant means the credential lives in the tenant namespace.
	Tenant
)

// String returns kind name.
func (k Kind) String() string {
	switch k {
	case System:
		return "system"
	case Tenant:
		return "tenant"
	default:
		return "not_found"
	}
}

// Resolution is the tagged result of Resolve. Credential is nil iff Kind is
// NotFound.
type Resolution struct {
	Kind       Kind
	Credential *interfaces.Credential
}

// Found reports whether a credential was resolved.
func (r Resolution) Found() bool {
	return r.Kind != NotFound
}

// Resolver resolves credential identifiers across the system and tenant
// namespaces.
type Resolver struct {
	system interfaces.CredentialStore
	tenant interfaces.CredentialStore
	log    *slog.Logger
}

// NewResolver creates a resolver probing system first, then tenant.
func NewResolver(system, tenant interfaces.CredentialStore, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		system: system,
		tenant: tenant,
		log:    log,
	}
}

// Resolve looks the identifier up in the system namespace, then in the tenant
// namespace. The active flag is not a filter.
//
// A missing credential yields a NotFound resolution and a nil error. A
// transient failure of either probe is returned as an error wrapping
// interfaces.ErrTransientFetch; the chain stops there since a failed system
// probe cannot rule out a system match.
func (r *Resolver) Resolve(ctx context.Context, id string) (Resolution, error) {
	if id == "" {
		return Resolution{Kind: NotFound}, nil
	}

	start := time.Now()

	record, err := r.probe(ctx, r.system, id)
	if err != nil {
		return Resolution{}, err
	}
	if record != nil {
		r.log.Debug("Resolved system credential",
			slog.String("credential_id", id),
			slog.String("store", r.system.Name()),
			slog.Duration("duration", time.Since(start)))
		return Resolution{Kind: System, Credential: normalize(record, System)}, nil
	}

	record, err = r.probe(ctx, r.tenant, id)
	if err != nil {
		return Resolution{}, err
	}
	if record != nil {
		if record.TenantID == "" {
			r.log.Warn("Tenant credential has no tenant reference",
				slog.String("credential_id", id),
				slog.String("store", r.tenant.Name()),
				"err", interfaces.ErrInvariantViolation)
		}
		r.log.Debug("Resolved tenant credential",
			slog.String("credential_id", id),
			slog.String("store", r.tenant.Name()),
			slog.String("tenant_id", record.TenantID),
			slog.Duration("duration", time.Since(start)))
		return Resolution{Kind: Tenant, Credential: normalize(record, Tenant)}, nil
	}

	r.log.Debug("Credential not found in any namespace",
		slog.String("credential_id", id),
		slog.Duration("duration", time.Since(start)))
	return Resolution{Kind: NotFound}, nil
}

// probe returns nil, nil when the store does not hold id.
func (r *Resolver) probe(ctx context.Context, store interfaces.CredentialStore, id string) (*interfaces.CredentialRecord, error) {
	if store == nil {
		return nil, nil
	}

	record, err := store.GetByID(ctx, id)
	switch {
	case errors.Is(err, interfaces.ErrNotFound):
		return nil, nil
	case err != nil:
		r.log.Warn("Credential lookup failed",
			slog.String("credential_id", id),
			slog.String("store", store.Name()),
			"err", err)
		if errors.Is(err, interfaces.ErrTransientFetch) {
			return nil, fmt.Errorf("%s: %w", store.Name(), err)
		}
		return nil, fmt.Errorf("%s: %w: %v", store.Name(), interfaces.ErrTransientFetch, err)
	case record == nil:
		return nil, nil
	}
	return record, nil
}

func normalize(record *interfaces.CredentialRecord, kind Kind) *interfaces.Credential {
	c := &interfaces.Credential{
		ID:                 record.ID,
		Name:               record.Name,
		Description:        record.Description,
		ProviderCode:       record.ProviderCode,
		AuthType:           record.AuthType,
		PayloadKeys:        payloadKeys(record.Payload),
		PayloadFingerprint: Fingerprint(record.Payload),
		Metadata:           record.Metadata,
		IsActive:           record.IsActive,
		CreatedAt:          record.CreatedAt,
		UpdatedAt:          record.UpdatedAt,
		CreatedBy:          record.CreatedBy,
		UpdatedBy:          record.UpdatedBy,
		ExpiresAt:          record.ExpiresAt,
		LastUsedAt:         record.LastUsedAt,
	}

	switch kind {
	case Tenant:
		c.Scope = interfaces.TenantScope
		if record.TenantID != "" {
			tenantID := record.TenantID
			c.TenantID = &tenantID
		}
		c.OverrideSystem = record.OverrideSystem
		c.SystemCredentialID = record.SystemCredentialID
	default:
		c.Scope = interfaces.SystemScope
	}

	return c
}

func payloadKeys(payload interfaces.Settings) []string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
