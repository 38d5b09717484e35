// Package clients provides an HTTP client for the configuration detail
// server.
package clients
