package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/ruteri/storage-config-detail/detail"
	"github.com/ruteri/storage-config-detail/notify"
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// DetailClient talks to the configuration detail server.
type DetailClient struct {
	// ServerAddr is the base URL of the server
	ServerAddr string

	// HTTPClient defaults to http.DefaultClient
	HTTPClient *http.Client
}

// GetConfig fetches the detail snapshot of a configuration. With reload set
// the server loads it again even when it is already loaded.
func (c *DetailClient) GetConfig(ctx context.Context, id string, reload bool) (*detail.Snapshot, error) {
	u := fmt.Sprintf("%s/api/storage/configs/%s", c.ServerAddr, url.PathEscape(id))
	if reload {
		u += "?reload=1"
	}

	var s detail.Snapshot
	if err := c.do(ctx, http.MethodGet, u, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Resync asks the server to recompute usage of a loaded configuration.
func (c *DetailClient) Resync(ctx context.Context, id string) (*detail.Snapshot, error) {
	u := fmt.Sprintf("%s/api/storage/configs/%s/resync", c.ServerAddr, url.PathEscape(id))

	var s detail.Snapshot
	if err := c.do(ctx, http.MethodPost, u, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// CloseConfig discards the server-side state of a configuration.
func (c *DetailClient) CloseConfig(ctx context.Context, id string) error {
	u := fmt.Sprintf("%s/api/storage/configs/%s", c.ServerAddr, url.PathEscape(id))
	return c.do(ctx, http.MethodDelete, u, nil)
}

// Notifications lists buffered notifications, emptying the buffer when drain
// is set.
func (c *DetailClient) Notifications(ctx context.Context, drain bool) ([]notify.Notification, error) {
	u := c.ServerAddr + "/api/notifications"
	if drain {
		u += "?drain=1"
	}

	var items []notify.Notification
	if err := c.do(ctx, http.MethodGet, u, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *DetailClient) do(ctx context.Context, method, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return err
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not request %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not parse response: %w", err)
	}
	return nil
}

func errorMessage(body io.Reader) string {
	raw, err := io.ReadAll(body)
	if err != nil {
		return ""
	}

	var parsed struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &parsed) == nil && parsed.Error != "" {
		return parsed.Error
	}
	return string(raw)
}
