package detail

import (
	"github.com/ruteri/storage-config-detail/interfaces"
	"github.com/ruteri/storage-config-detail/settings"
	"github.com/ruteri/storage-config-detail/units"
	"github.com/ruteri/storage-config-detail/usage"
)

// State is the state of an assembler.
type State string

const (
	StateIdle      State = "idle"
	StateLoading   State = "loading"
	StateResolving State = "resolving"
	StateReady     State = "ready"
	StateSyncing   State = "syncing"
	StateError     State = "error"
)

// SectionStatus is the outcome of assembling one secondary section.
type SectionStatus string

const (
	SectionReady         SectionStatus = "ready"
	SectionUnavailable   SectionStatus = "unavailable"
	SectionNotFound      SectionStatus = "not_found"
	SectionNotApplicable SectionStatus = "not_applicable"
)

// Section holds a secondary part of the view together with its status.
// Value is the zero value unless Status is SectionReady.
type Section[T any] struct {
	Status SectionStatus `json:"status"`
	Value  T             `json:"value,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// Ready reports whether the section holds a value.
func (s Section[T]) Ready() bool {
	return s.Status == SectionReady
}

func ready[T any](v T) Section[T] {
	return Section[T]{Status: SectionReady, Value: v}
}

func unavailable[T any](err error) Section[T] {
	return Section[T]{Status: SectionUnavailable, Error: err.Error()}
}

func notFound[T any](msg string) Section[T] {
	return Section[T]{Status: SectionNotFound, Error: msg}
}

func notApplicable[T any]() Section[T] {
	return Section[T]{Status: SectionNotApplicable}
}

// Usage sources.
const (
	UsageFromCounters      = "counters"
	UsageFromConfiguration = "configuration"
)

// View is the assembled detail view of one configuration. A published view
// is never mutated; updates publish a new one.
type View struct {
	Configuration interfaces.StorageConfiguration         `json:"configuration"`
	ProviderKind  settings.Kind                           `json:"provider_kind"`
	Settings      []settings.Entry                        `json:"settings"`
	Provider      Section[*interfaces.ProviderDescriptor] `json:"provider"`
	Credential    Section[*interfaces.Credential]         `json:"credential"`
	Tenant        Section[*interfaces.Tenant]             `json:"tenant"`
	Modules       Section[[]interfaces.ModuleUsage]       `json:"modules"`
	Usage         usage.Summary                           `json:"usage"`
	UsageSource   string                                  `json:"usage_source"`

	// Set only when the credential section is ready; the provider check also
	// needs a ready provider section.
	CredentialExpired          bool `json:"credential_expired"`
	CredentialProviderMismatch bool `json:"credential_provider_mismatch"`
}

func (v *View) clone() *View {
	c := *v
	if v.Modules.Value != nil {
		c.Modules.Value = append([]interfaces.ModuleUsage(nil), v.Modules.Value...)
	}
	if v.Settings != nil {
		c.Settings = append([]settings.Entry(nil), v.Settings...)
	}
	return &c
}

// Formatted holds display strings for the quantities of a view.
type Formatted struct {
	Used           string            `json:"used"`
	Quota          string            `json:"quota"`
	Available      string            `json:"available"`
	UsedPercentage string            `json:"used_percentage"`
	OverQuota      bool              `json:"over_quota"`
	Modules        map[string]string `json:"modules,omitempty"`
}

// Format renders the quantities of v. The percentage is clamped to [0, 100];
// the raw value stays in v.Usage.
func Format(v *View) Formatted {
	f := Formatted{
		Used:           units.FormatBytes(v.Usage.TotalBytes),
		Quota:          units.FormatBytes(v.Usage.QuotaBytes),
		Available:      units.FormatBytes(v.Usage.AvailableBytes),
		UsedPercentage: units.FormatPercent(v.Usage.DisplayPercentage()),
		OverQuota:      v.Usage.OverQuota(),
	}
	if v.Modules.Ready() && len(v.Modules.Value) > 0 {
		f.Modules = make(map[string]string, len(v.Modules.Value))
		for _, m := range v.Modules.Value {
			f.Modules[m.Code] = units.FormatBytes(m.TotalBytes)
		}
	}
	return f
}

// Snapshot is a read-only copy of an assembler's state.
type Snapshot struct {
	ConfigID        string     `json:"config_id"`
	State           State      `json:"state"`
	Error           string     `json:"error,omitempty"`
	LastResyncError string     `json:"last_resync_error,omitempty"`
	View            *View      `json:"view,omitempty"`
	Formatted       *Formatted `json:"formatted,omitempty"`
}
