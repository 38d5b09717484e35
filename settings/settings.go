// Package settings renders provider-specific configuration settings for
// display.
package settings

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go/aws/endpoints"

	"github.com/ruteri/storage-config-detail/interfaces"
)

// Kind is the display family of a provider.
type Kind string

const (
	CloudKind    Kind = "cloud"
	LocalKind    Kind = "local"
	DatabaseKind Kind = "database"
)

const (
	defaultS3Region = "us-east-1"
	maskedValue     = "********"
)

// Entry is one rendered setting.
type Entry struct {
	Key     string `json:"key"`
	Value   any    `json:"value,omitempty"`
	Display string `json:"display"`
	Masked  bool   `json:"masked,omitempty"`
	Derived bool   `json:"derived,omitempty"`
}

// ProviderKind classifies a provider code. Unknown providers are cloud.
func ProviderKind(code string) Kind {
	switch strings.ToLower(code) {
	case "local_filesystem", "local", "file":
		return LocalKind
	case "supabase_storage":
		return DatabaseKind
	default:
		return CloudKind
	}
}

// IsS3Compatible reports whether configurations of the provider are addressed
// like S3 buckets.
func IsS3Compatible(code string) bool {
	switch strings.ToLower(code) {
	case "aws_s3", "s3", "minio", "wasabi", "r2":
		return true
	default:
		return false
	}
}

// Describe renders settings sorted by key. Booleans keep their type, nested
// values are shown as indented JSON and secret-looking keys are masked. For
// S3-compatible providers the effective endpoint is appended as a derived
// entry.
func Describe(providerCode string, s interfaces.Settings) []Entry {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]Entry, 0, len(keys)+1)
	for _, k := range keys {
		entries = append(entries, describeValue(k, s[k]))
	}

	if IsS3Compatible(providerCode) {
		if endpoint, err := ResolveS3Endpoint(s); err == nil {
			entries = append(entries, Entry{
				Key:     "resolved_endpoint",
				Value:   endpoint,
				Display: endpoint,
				Derived: true,
			})
		}
	}

	return entries
}

// ResolveS3Endpoint returns the endpoint a configuration talks to: the
// explicit "endpoint" setting when present, otherwise the AWS partition
// endpoint of the configured region (us-east-1 by default).
func ResolveS3Endpoint(s interfaces.Settings) (string, error) {
	if endpoint, ok := s["endpoint"].(string); ok && endpoint != "" {
		return endpoint, nil
	}

	region := defaultS3Region
	if r, ok := s["region"].(string); ok && r != "" {
		region = r
	}

	resolved, err := endpoints.DefaultResolver().EndpointFor(endpoints.S3ServiceID, region)
	if err != nil {
		return "", fmt.Errorf("failed to resolve S3 endpoint for region %s: %w", region, err)
	}
	return resolved.URL, nil
}

func describeValue(key string, value any) Entry {
	if isSecretKey(key) {
		return Entry{Key: key, Display: maskedValue, Masked: true}
	}

	e := Entry{Key: key, Value: value}
	switch v := value.(type) {
	case nil:
		e.Display = ""
	case bool:
		e.Display = fmt.Sprintf("%t", v)
	case string:
		e.Display = v
	case float64:
		e.Display = strconv.FormatFloat(v, 'f', -1, 64)
	case int, int64, int32, uint, uint64, json.Number:
		e.Display = fmt.Sprintf("%v", v)
	default:
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			e.Display = fmt.Sprintf("%v", v)
		} else {
			e.Display = string(b)
		}
	}
	return e
}

func isSecretKey(key string) bool {
	k := strings.ToLower(key)
	for _, marker := range []string{"secret", "password", "token", "private"} {
		if strings.Contains(k, marker) {
			return true
		}
	}
	return false
}
