package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/ruteri/storage-config-detail/interfaces"
)

// FileProviderCatalog serves provider descriptors from a JSON file holding an
// array of descriptors. The file is re-read when its modification time
// changes.
type FileProviderCatalog struct {
	path        string
	log         *slog.Logger
	locationURI string

	mu        sync.Mutex
	modTime   time.Time
	providers map[string]*interfaces.ProviderDescriptor
}

// NewFileProviderCatalog loads the catalog at path.
func NewFileProviderCatalog(path string, log *slog.Logger) (*FileProviderCatalog, error) {
	c := &FileProviderCatalog{
		path:        path,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", path),
	}
	if err := c.reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// GetByCode implements interfaces.ProviderCatalog.
func (c *FileProviderCatalog) GetByCode(ctx context.Context, code string) (*interfaces.ProviderDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := c.reload(); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrTransientFetch, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.providers[code]
	if !ok {
		return nil, fmt.Errorf("provider %s %w", code, interfaces.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (c *FileProviderCatalog) reload() error {
	info, err := os.Stat(c.path)
	if err != nil {
		return fmt.Errorf("failed to stat provider catalog: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.providers != nil && info.ModTime().Equal(c.modTime) {
		return nil
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("failed to read provider catalog: %w", err)
	}

	var list []*interfaces.ProviderDescriptor
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("failed to parse provider catalog %s: %w", c.path, err)
	}

	providers := make(map[string]*interfaces.ProviderDescriptor, len(list))
	for _, p := range list {
		if p == nil || p.Code == "" {
			continue
		}
		providers[p.Code] = p
	}

	c.providers = providers
	c.modTime = info.ModTime()

	c.log.Debug("Loaded provider catalog",
		slog.String("path", c.path),
		slog.Int("providers", len(providers)))

	return nil
}

// LocationURI returns the URI that identifies this catalog.
func (c *FileProviderCatalog) LocationURI() string {
	return c.locationURI
}
