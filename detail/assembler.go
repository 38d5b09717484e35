package detail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/ruteri/storage-config-detail/credentials"
	"github.com/ruteri/storage-config-detail/interfaces"
	"github.com/ruteri/storage-config-detail/metrics"
	"github.com/ruteri/storage-config-detail/notify"
	"github.com/ruteri/storage-config-detail/settings"
	"github.com/ruteri/storage-config-detail/usage"
)

var (
	// ErrConfigurationNotFound is the load error for an unknown configuration.
	ErrConfigurationNotFound = fmt.Errorf("configuration %w", interfaces.ErrNotFound)

	// ErrResyncInFlight is returned by Resync while another resync is pending.
	ErrResyncInFlight = errors.New("resync already in progress")

	// ErrNotReady is returned by Resync when no view is loaded.
	ErrNotReady = errors.New("configuration detail is not ready")

	// ErrStale is returned when a newer Load or Close superseded the operation.
	// Its results were discarded.
	ErrStale = errors.New("result superseded by a newer load")
)

// Section names used in logs and metrics.
const (
	sectionProvider   = "provider"
	sectionCredential = "credential"
	sectionTenant     = "tenant"
	sectionModules    = "modules"
	sectionUsage      = "usage"
)

// CredentialResolver resolves credential identifiers. *credentials.Resolver
// implements it.
type CredentialResolver interface {
	Resolve(ctx context.Context, id string) (credentials.Resolution, error)
}

// SyncRecorder persists the outcome of a successful resync.
type SyncRecorder interface {
	RecordSync(ctx context.Context, configID string, consumed int64, at time.Time) error
}

// Dependencies are the collaborators of an Assembler. Recorder, Notifier,
// Metrics, Log and Now are optional.
type Dependencies struct {
	Configurations interfaces.ConfigurationStore
	Providers      interfaces.ProviderCatalog
	Credentials    CredentialResolver
	Tenants        interfaces.TenantDirectory
	Modules        interfaces.ModuleUsageSource
	Recorder       SyncRecorder
	Notifier       interfaces.Notifier
	Metrics        metrics.Collector
	Log            *slog.Logger

	// DefaultQuota applies to configurations without a quota. Zero disables
	// the fallback.
	DefaultQuota int64

	Now func() time.Time
}

// Assembler assembles and maintains the detail view of one storage
// configuration.
//
// Load runs the Loading and Resolving phases; Resync recomputes usage from
// fresh counters. Every Load and Close starts a new generation and results of
// older generations are discarded on arrival.
type Assembler struct {
	deps Dependencies
	log  *slog.Logger

	mu              sync.Mutex
	generation      uint64
	state           State
	configID        string
	view            *View
	loadErr         error
	lastResyncError string

	syncing atomic.Bool
}

// New creates an idle assembler.
func New(deps Dependencies) *Assembler {
	if deps.Notifier == nil {
		deps.Notifier = notify.Discard{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NoOpCollector{}
	}
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Assembler{
		deps:  deps,
		log:   deps.Log,
		state: StateIdle,
	}
}

// Load fetches the configuration and assembles its view.
//
// A missing configuration or a failed configuration fetch moves the assembler
// to StateError with no partial view. Secondary sections degrade on their own
// and never fail the load. Load returns ErrStale when a newer Load or Close
// superseded it.
func (a *Assembler) Load(ctx context.Context, id string) error {
	start := time.Now()
	log := a.log.With(slog.String("config_id", id))

	a.mu.Lock()
	a.generation++
	gen := a.generation
	a.state = StateLoading
	a.configID = id
	a.view = nil
	a.loadErr = nil
	a.lastResyncError = ""
	a.mu.Unlock()

	cfg, err := a.deps.Configurations.GetByID(ctx, id)
	if err == nil && cfg == nil {
		err = interfaces.ErrNotFound
	}
	if err != nil {
		var loadErr error
		if errors.Is(err, interfaces.ErrNotFound) {
			loadErr = ErrConfigurationNotFound
		} else {
			loadErr = fmt.Errorf("failed to load configuration: %w", err)
		}

		if !a.fail(gen, loadErr) {
			a.deps.Metrics.RecordLoad("stale", time.Since(start))
			return ErrStale
		}

		log.Error("Failed to load configuration", "err", err, slog.Duration("duration", time.Since(start)))
		a.deps.Notifier.Notify(interfaces.NotifyError, "Error", "Failed to load configuration data")
		a.deps.Metrics.RecordLoad("error", time.Since(start))
		return loadErr
	}

	if !a.transition(gen, StateResolving) {
		a.deps.Metrics.RecordLoad("stale", time.Since(start))
		return ErrStale
	}

	view := a.resolve(ctx, cfg, log)

	if !a.publish(gen, view) {
		log.Debug("Discarding superseded load")
		a.deps.Metrics.RecordLoad("stale", time.Since(start))
		return ErrStale
	}

	log.Info("Configuration detail ready",
		slog.String("provider", string(view.Provider.Status)),
		slog.String("credential", string(view.Credential.Status)),
		slog.String("tenant", string(view.Tenant.Status)),
		slog.String("modules", string(view.Modules.Status)),
		slog.String("usage_source", view.UsageSource),
		slog.Duration("duration", time.Since(start)))
	a.deps.Metrics.RecordLoad("ready", time.Since(start))
	return nil
}

// Resync recomputes usage and the module breakdown from fresh counters.
//
// Only one resync runs at a time; a concurrent call returns ErrResyncInFlight
// without side effects. On failure the previous view stays in place, an error
// notification is sent and the error is returned.
func (a *Assembler) Resync(ctx context.Context) error {
	start := time.Now()

	if !a.syncing.CompareAndSwap(false, true) {
		a.deps.Metrics.RecordResync("rejected", time.Since(start))
		return ErrResyncInFlight
	}
	defer a.syncing.Store(false)

	a.mu.Lock()
	if a.state != StateReady || a.view == nil {
		a.mu.Unlock()
		a.deps.Metrics.RecordResync("rejected", time.Since(start))
		return ErrNotReady
	}
	gen := a.generation
	prev := a.view
	a.state = StateSyncing
	a.mu.Unlock()

	log := a.log.With(slog.String("config_id", prev.Configuration.ID))

	counters, modules, err := a.fetchFresh(ctx, prev)

	a.mu.Lock()
	if a.generation != gen {
		a.mu.Unlock()
		log.Debug("Discarding superseded resync")
		a.deps.Metrics.RecordResync("stale", time.Since(start))
		return ErrStale
	}
	if err != nil {
		a.state = StateReady
		a.lastResyncError = err.Error()
		a.mu.Unlock()

		log.Error("Resync failed", "err", err, slog.Duration("duration", time.Since(start)))
		a.deps.Notifier.Notify(interfaces.NotifyError, "Sync failed", "Could not update storage statistics")
		a.deps.Metrics.RecordResync("error", time.Since(start))
		return err
	}

	next := prev.clone()
	now := a.deps.Now()
	next.Configuration.LastSyncAt = &now
	next.Configuration.ConsumedBytes = counters.TotalBytes
	next.Usage = usage.Summarize(a.quotaFor(&prev.Configuration), counters, prev.Usage.Activity)
	next.UsageSource = UsageFromCounters
	next.Modules = modules

	a.view = next
	a.state = StateReady
	a.lastResyncError = ""
	a.mu.Unlock()

	if a.deps.Recorder != nil {
		if err := a.deps.Recorder.RecordSync(ctx, next.Configuration.ID, counters.TotalBytes, now); err != nil {
			log.Warn("Failed to persist sync result", "err", err)
		}
	}

	log.Info("Resync completed",
		slog.Int64("total_files", next.Usage.TotalFiles),
		slog.Int64("total_bytes", next.Usage.TotalBytes),
		slog.Duration("duration", time.Since(start)))
	a.deps.Notifier.Notify(interfaces.NotifySuccess, "Sync completed", "Storage statistics updated successfully")
	a.deps.Metrics.RecordResync("success", time.Since(start))
	return nil
}

// Close tears the assembler down. Work still in flight is discarded when it
// completes.
func (a *Assembler) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.generation++
	a.state = StateIdle
	a.view = nil
	a.loadErr = nil
	a.lastResyncError = ""
}

// Syncing reports whether a resync is in flight.
func (a *Assembler) Syncing() bool {
	return a.syncing.Load()
}

// Snapshot returns a copy of the current state and view.
func (a *Assembler) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Snapshot{
		ConfigID:        a.configID,
		State:           a.state,
		LastResyncError: a.lastResyncError,
	}
	if a.loadErr != nil {
		s.Error = a.loadErr.Error()
	}
	if a.view != nil {
		s.View = a.view.clone()
		f := Format(a.view)
		s.Formatted = &f
	}
	return s
}

func (a *Assembler) fail(gen uint64, err error) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.generation != gen {
		return false
	}
	a.state = StateError
	a.loadErr = err
	return true
}

func (a *Assembler) transition(gen uint64, state State) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.generation != gen {
		return false
	}
	a.state = state
	return true
}

func (a *Assembler) publish(gen uint64, view *View) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.generation != gen {
		return false
	}
	a.view = view
	a.state = StateReady
	return true
}

// resolve runs the four secondary fetches concurrently and waits for all of
// them. Every task records its own outcome and returns nil, so one failure
// never cancels the others.
func (a *Assembler) resolve(ctx context.Context, cfg *interfaces.StorageConfiguration, log *slog.Logger) *View {
	view := &View{
		Configuration: *cfg,
		ProviderKind:  settings.ProviderKind(cfg.ProviderCode),
		Settings:      settings.Describe(cfg.ProviderCode, cfg.Settings),
	}

	var (
		counters    interfaces.UsageCounters
		countersErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		view.Provider = a.fetchProvider(ctx, cfg, log)
		return nil
	})
	g.Go(func() error {
		view.Credential = a.fetchCredential(ctx, cfg, log)
		return nil
	})
	g.Go(func() error {
		view.Tenant = a.fetchTenant(ctx, cfg, log)
		return nil
	})
	g.Go(func() error {
		view.Modules = a.fetchModules(ctx, cfg, log)
		counters, countersErr = a.fetchUsageCounters(ctx, cfg.ID)
		return nil
	})
	_ = g.Wait()

	quota := a.quotaFor(cfg)
	if countersErr != nil {
		a.degrade(log, sectionUsage, countersErr)
		// fall back to the consumption recorded on the configuration
		view.Usage = usage.Summarize(quota, interfaces.UsageCounters{TotalBytes: cfg.ConsumedBytes}, usage.Activity{})
		view.UsageSource = UsageFromConfiguration
	} else {
		view.Usage = usage.Summarize(quota, counters, usage.Activity{})
		view.UsageSource = UsageFromCounters
	}

	a.checkCredential(view, log)

	if quota == 0 && view.Usage.TotalBytes > 0 {
		log.Warn("Configuration has usage but no quota",
			"err", interfaces.ErrInvariantViolation,
			slog.Int64("total_bytes", view.Usage.TotalBytes))
	}

	return view
}

// checkCredential flags a credential that has expired or whose provider type
// the storage provider does not accept. Neither degrades the section.
func (a *Assembler) checkCredential(view *View, log *slog.Logger) {
	if !view.Credential.Ready() || view.Credential.Value == nil {
		return
	}
	cred := view.Credential.Value

	if cred.Expired(a.deps.Now()) {
		view.CredentialExpired = true
		log.Warn("Credential has expired",
			slog.String("credential_id", cred.ID),
			slog.Time("expires_at", *cred.ExpiresAt))
	}

	if view.Provider.Ready() && view.Provider.Value != nil && !view.Provider.Value.AcceptsCredentialProvider(cred.ProviderCode) {
		view.CredentialProviderMismatch = true
		log.Warn("Credential provider not accepted by storage provider",
			slog.String("credential_id", cred.ID),
			slog.String("credential_provider", cred.ProviderCode),
			slog.String("provider", view.Provider.Value.Code))
	}
}

func (a *Assembler) fetchProvider(ctx context.Context, cfg *interfaces.StorageConfiguration, log *slog.Logger) Section[*interfaces.ProviderDescriptor] {
	provider, err := a.deps.Providers.GetByCode(ctx, cfg.ProviderCode)
	switch {
	case errors.Is(err, interfaces.ErrNotFound), err == nil && provider == nil:
		log.Warn("Provider not found", slog.String("provider", cfg.ProviderCode))
		a.deps.Metrics.RecordSectionDegraded(sectionProvider)
		return notFound[*interfaces.ProviderDescriptor]("provider not found")
	case err != nil:
		a.degrade(log, sectionProvider, err)
		return unavailable[*interfaces.ProviderDescriptor](err)
	}
	return ready(provider)
}

func (a *Assembler) fetchCredential(ctx context.Context, cfg *interfaces.StorageConfiguration, log *slog.Logger) Section[*interfaces.Credential] {
	res, err := a.deps.Credentials.Resolve(ctx, cfg.CredentialID)
	if err != nil {
		a.degrade(log, sectionCredential, err)
		return unavailable[*interfaces.Credential](err)
	}
	if !res.Found() {
		log.Warn("Credential not found", slog.String("credential_id", cfg.CredentialID))
		a.deps.Metrics.RecordSectionDegraded(sectionCredential)
		return notFound[*interfaces.Credential]("credential not found")
	}
	return ready(res.Credential)
}

func (a *Assembler) fetchTenant(ctx context.Context, cfg *interfaces.StorageConfiguration, log *slog.Logger) Section[*interfaces.Tenant] {
	if err := cfg.ValidateScope(); err != nil {
		log.Warn("Configuration scope is inconsistent", "err", err)
		if cfg.Scope == interfaces.TenantScope {
			a.deps.Metrics.RecordSectionDegraded(sectionTenant)
			return unavailable[*interfaces.Tenant](err)
		}
	}
	if cfg.Scope != interfaces.TenantScope {
		return notApplicable[*interfaces.Tenant]()
	}

	tenant, err := a.deps.Tenants.GetByID(ctx, *cfg.TenantID)
	switch {
	case errors.Is(err, interfaces.ErrNotFound), err == nil && tenant == nil:
		log.Warn("Tenant not found", slog.String("tenant_id", *cfg.TenantID))
		a.deps.Metrics.RecordSectionDegraded(sectionTenant)
		return notFound[*interfaces.Tenant]("tenant not found")
	case err != nil:
		a.degrade(log, sectionTenant, err)
		return unavailable[*interfaces.Tenant](err)
	}
	return ready(tenant)
}

func (a *Assembler) fetchModules(ctx context.Context, cfg *interfaces.StorageConfiguration, log *slog.Logger) Section[[]interfaces.ModuleUsage] {
	modules, err := a.loadModules(ctx, cfg.ID)
	if err != nil {
		a.degrade(log, sectionModules, err)
		return unavailable[[]interfaces.ModuleUsage](err)
	}
	return ready(modules)
}

func (a *Assembler) loadModules(ctx context.Context, configID string) ([]interfaces.ModuleUsage, error) {
	codes, err := a.deps.Modules.GetMappingsFor(ctx, configID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch module mappings: %w", err)
	}
	if len(codes) == 0 {
		return []interfaces.ModuleUsage{}, nil
	}

	info, err := a.deps.Modules.GetModuleInfo(ctx, codes)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch module info: %w", err)
	}

	counters, err := a.deps.Modules.GetCounters(ctx, configID, codes)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch module counters: %w", err)
	}

	return usage.BuildModuleUsage(info, counters), nil
}

func (a *Assembler) fetchUsageCounters(ctx context.Context, configID string) (interfaces.UsageCounters, error) {
	counters, err := a.deps.Modules.GetUsageCounters(ctx, configID)
	if err != nil {
		return interfaces.UsageCounters{}, fmt.Errorf("failed to fetch usage counters: %w", err)
	}
	return counters, nil
}

// fetchFresh gathers everything a resync needs. Any failure fails the whole
// resync so the view is replaced atomically or not at all.
func (a *Assembler) fetchFresh(ctx context.Context, prev *View) (interfaces.UsageCounters, Section[[]interfaces.ModuleUsage], error) {
	configID := prev.Configuration.ID

	var (
		counters    interfaces.UsageCounters
		countersErr error
		modules     []interfaces.ModuleUsage
		modulesErr  error
	)

	var g errgroup.Group
	g.Go(func() error {
		counters, countersErr = a.fetchUsageCounters(ctx, configID)
		return nil
	})
	g.Go(func() error {
		if !prev.Modules.Ready() {
			// the breakdown was unavailable at load time, rebuild it
			modules, modulesErr = a.loadModules(ctx, configID)
			return nil
		}
		existing := prev.Modules.Value
		if len(existing) == 0 {
			modules = []interfaces.ModuleUsage{}
			return nil
		}
		updates, err := a.deps.Modules.GetCounters(ctx, configID, usage.ModuleCodes(existing))
		if err != nil {
			modulesErr = fmt.Errorf("failed to fetch module counters: %w", err)
			return nil
		}
		modules = usage.MergeModuleUsage(existing, updates)
		return nil
	})
	_ = g.Wait()

	if err := errors.Join(countersErr, modulesErr); err != nil {
		return interfaces.UsageCounters{}, Section[[]interfaces.ModuleUsage]{}, err
	}
	return counters, ready(modules), nil
}

func (a *Assembler) quotaFor(cfg *interfaces.StorageConfiguration) int64 {
	if cfg.QuotaBytes > 0 {
		return cfg.QuotaBytes
	}
	if a.deps.DefaultQuota > 0 {
		return a.deps.DefaultQuota
	}
	return 0
}

func (a *Assembler) degrade(log *slog.Logger, section string, err error) {
	log.Warn("Section unavailable", slog.String("section", section), "err", err)
	a.deps.Metrics.RecordSectionDegraded(section)
	a.deps.Notifier.Notify(interfaces.NotifyError, "Partial data", fmt.Sprintf("The %s section could not be loaded", section))
}
