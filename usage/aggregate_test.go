package usage

import (
	"testing"
	"time"

	"github.com/ruteri/storage-config-detail/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	lastUpload := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name              string
		quota             int64
		counters          interfaces.UsageCounters
		prior             Activity
		expectedAvailable int64
		expectedPercent   float64
		expectedDisplay   float64
		expectedActivity  Activity
	}{
		{
			name:              "half used",
			quota:             1000,
			counters:          interfaces.UsageCounters{TotalFiles: 3, TotalBytes: 500},
			expectedAvailable: 500,
			expectedPercent:   50,
			expectedDisplay:   50,
		},
		{
			name:              "empty",
			quota:             1000,
			expectedAvailable: 1000,
		},
		{
			name:              "over quota keeps raw percentage",
			quota:             1000,
			counters:          interfaces.UsageCounters{TotalFiles: 1, TotalBytes: 1500},
			expectedAvailable: 0,
			expectedPercent:   150,
			expectedDisplay:   100,
		},
		{
			name:              "zero quota never divides",
			quota:             0,
			counters:          interfaces.UsageCounters{TotalFiles: 5, TotalBytes: 100},
			expectedAvailable: 0,
			expectedPercent:   0,
			expectedDisplay:   0,
		},
		{
			name:              "negative counters are clamped",
			quota:             100,
			counters:          interfaces.UsageCounters{TotalFiles: -1, TotalBytes: -10},
			expectedAvailable: 100,
		},
		{
			name:              "activity accumulates observed delta",
			quota:             100,
			counters:          interfaces.UsageCounters{UploadCount: 15, DownloadCount: 9},
			prior:             Activity{Uploads: 10, Downloads: 4},
			expectedActivity:  Activity{Uploads: 15, Downloads: 9},
			expectedAvailable: 100,
		},
		{
			name:              "activity never decreases",
			quota:             100,
			counters:          interfaces.UsageCounters{UploadCount: 2, DownloadCount: 0},
			prior:             Activity{Uploads: 10, Downloads: 4},
			expectedActivity:  Activity{Uploads: 10, Downloads: 4},
			expectedAvailable: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.counters.LastUploadAt = &lastUpload
			s := Summarize(tt.quota, tt.counters, tt.prior)

			assert.Equal(t, tt.expectedAvailable, s.AvailableBytes)
			assert.InDelta(t, tt.expectedPercent, s.UsedPercentage, 1e-9)
			assert.InDelta(t, tt.expectedDisplay, s.DisplayPercentage(), 1e-9)
			assert.Equal(t, tt.expectedActivity, s.Activity)
			assert.Equal(t, &lastUpload, s.LastUploadAt)
			assert.GreaterOrEqual(t, s.AvailableBytes, int64(0))
		})
	}
}

func TestSummarize_AvailableBytesProperty(t *testing.T) {
	quotas := []int64{1, 7, 1024, 10 << 30}
	usages := []int64{0, 1, 6, 7, 8, 1023, 1024, 1025, 20 << 30}

	for _, q := range quotas {
		for _, u := range usages {
			s := Summarize(q, interfaces.UsageCounters{TotalBytes: u}, Activity{})
			require.GreaterOrEqual(t, s.AvailableBytes, int64(0))
			expected := q - u
			if expected < 0 {
				expected = 0
			}
			require.Equal(t, expected, s.AvailableBytes, "quota=%d used=%d", q, u)
		}
	}
}

func TestSummary_OverQuota(t *testing.T) {
	assert.True(t, Summarize(10, interfaces.UsageCounters{TotalBytes: 11}, Activity{}).OverQuota())
	assert.False(t, Summarize(10, interfaces.UsageCounters{TotalBytes: 10}, Activity{}).OverQuota())
	assert.False(t, Summarize(0, interfaces.UsageCounters{TotalBytes: 10}, Activity{}).OverQuota())
}

func TestMergeModuleUsage(t *testing.T) {
	existing := []interfaces.ModuleUsage{
		{Code: "docs", DisplayName: "Documents", FileCount: 10, TotalBytes: 100},
		{Code: "img", DisplayName: "Images", FileCount: 5, TotalBytes: 50},
	}

	merged := MergeModuleUsage(existing, map[string]interfaces.ModuleCounters{
		"docs":    {FileCount: 12, TotalBytes: 120},
		"unknown": {FileCount: 1, TotalBytes: 1},
	})

	assert.Equal(t, []interfaces.ModuleUsage{
		{Code: "docs", DisplayName: "Documents", FileCount: 12, TotalBytes: 120},
		{Code: "img", DisplayName: "Images", FileCount: 5, TotalBytes: 50},
	}, merged)

	// input is untouched
	assert.Equal(t, int64(10), existing[0].FileCount)
}

func TestMergeModuleUsage_Empty(t *testing.T) {
	assert.Empty(t, MergeModuleUsage(nil, map[string]interfaces.ModuleCounters{"docs": {FileCount: 1}}))
	assert.Equal(t,
		[]interfaces.ModuleUsage{{Code: "docs", FileCount: 1}},
		MergeModuleUsage([]interfaces.ModuleUsage{{Code: "docs", FileCount: 1}}, nil))
}

func TestBuildModuleUsage(t *testing.T) {
	modules := []interfaces.ModuleInfo{
		{Code: "documents", DisplayName: "Documents"},
		{Code: "images", DisplayName: "Images"},
		{Code: "documents", DisplayName: "Duplicate"},
	}
	counters := map[string]interfaces.ModuleCounters{
		"documents": {FileCount: 3, TotalBytes: 300},
	}

	result := BuildModuleUsage(modules, counters)
	assert.Equal(t, []interfaces.ModuleUsage{
		{Code: "documents", DisplayName: "Documents", FileCount: 3, TotalBytes: 300},
		{Code: "images", DisplayName: "Images"},
	}, result)
	assert.Equal(t, []string{"documents", "images"}, ModuleCodes(result))
}
