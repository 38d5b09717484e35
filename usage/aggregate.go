// Package usage derives usage summaries from raw storage counters.
//
// Everything here is a pure function: inputs are never mutated and no I/O is
// performed. Invariant violations in the inputs (negative counters, a zero
// quota with usage) degrade to defined fallback values.
package usage

import (
	"math"
	"time"

	"github.com/ruteri/storage-config-detail/interfaces"
)

// Activity holds cumulative upload and download counts.
type Activity struct {
	Uploads   int64 `json:"upload_count"`
	Downloads int64 `json:"download_count"`
}

// Summary is the derived usage view of one configuration.
type Summary struct {
	TotalFiles     int64      `json:"files_count"`
	TotalBytes     int64      `json:"total_size"`
	QuotaBytes     int64      `json:"space_limit"`
	AvailableBytes int64      `json:"available_space"`
	UsedPercentage float64    `json:"used_percentage"`
	LastUploadAt   *time.Time `json:"last_upload,omitempty"`
	Activity
}

// DisplayPercentage is UsedPercentage clamped to [0, 100].
func (s Summary) DisplayPercentage() float64 {
	return clampPercent(s.UsedPercentage)
}

// OverQuota reports whether usage exceeds the quota.
func (s Summary) OverQuota() bool {
	return s.QuotaBytes > 0 && s.TotalBytes > s.QuotaBytes
}

// Summarize computes a Summary from a quota, the counters reported by the
// counter source and the activity counts previously displayed.
//
// Activity counts never decrease: the observed count only contributes the
// non-negative delta over prior.
func Summarize(quota int64, counters interfaces.UsageCounters, prior Activity) Summary {
	quota = nonNegative(quota)
	files := nonNegative(counters.TotalFiles)
	bytes := nonNegative(counters.TotalBytes)

	return Summary{
		TotalFiles:     files,
		TotalBytes:     bytes,
		QuotaBytes:     quota,
		AvailableBytes: AvailableBytes(quota, bytes),
		UsedPercentage: UsedPercentage(quota, bytes),
		LastUploadAt:   counters.LastUploadAt,
		Activity: Activity{
			Uploads:   accumulate(prior.Uploads, counters.UploadCount),
			Downloads: accumulate(prior.Downloads, counters.DownloadCount),
		},
	}
}

// AvailableBytes returns max(0, quota-used).
func AvailableBytes(quota, used int64) int64 {
	if used >= quota {
		return 0
	}
	return quota - used
}

// UsedPercentage returns used/quota*100, or 0 when quota is not positive. The
// result exceeds 100 when usage is over quota.
func UsedPercentage(quota, used int64) float64 {
	if quota <= 0 || used <= 0 {
		return 0
	}
	return float64(used) / float64(quota) * 100
}

// MergeModuleUsage replaces the counters of existing entries whose code has an
// update, keeping positions. Entries without an update are copied unchanged
// and updates for unknown codes are ignored: module membership is owned by the
// module catalog.
func MergeModuleUsage(existing []interfaces.ModuleUsage, updates map[string]interfaces.ModuleCounters) []interfaces.ModuleUsage {
	merged := make([]interfaces.ModuleUsage, len(existing))
	for i, entry := range existing {
		if update, ok := updates[entry.Code]; ok {
			entry.FileCount = nonNegative(update.FileCount)
			entry.TotalBytes = nonNegative(update.TotalBytes)
		}
		merged[i] = entry
	}
	return merged
}

// BuildModuleUsage joins module info with counters, in the order of modules.
// Modules without counters report zero usage.
func BuildModuleUsage(modules []interfaces.ModuleInfo, counters map[string]interfaces.ModuleCounters) []interfaces.ModuleUsage {
	seen := make(map[string]struct{}, len(modules))
	result := make([]interfaces.ModuleUsage, 0, len(modules))
	for _, m := range modules {
		if _, dup := seen[m.Code]; dup {
			continue
		}
		seen[m.Code] = struct{}{}

		c := counters[m.Code]
		result = append(result, interfaces.ModuleUsage{
			Code:        m.Code,
			DisplayName: m.DisplayName,
			FileCount:   nonNegative(c.FileCount),
			TotalBytes:  nonNegative(c.TotalBytes),
		})
	}
	return result
}

// ModuleCodes returns the codes of a breakdown, in order.
func ModuleCodes(modules []interfaces.ModuleUsage) []string {
	codes := make([]string, len(modules))
	for i, m := range modules {
		codes[i] = m.Code
	}
	return codes
}

func accumulate(prior, observed int64) int64 {
	prior = nonNegative(prior)
	if delta := observed - prior; delta > 0 {
		return prior + delta
	}
	return prior
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

func clampPercent(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
