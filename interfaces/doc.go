// Package interfaces defines the data model and collaborator contracts of the
// storage configuration detail service.
//
// The package separates contracts from implementations so the resolver,
// aggregator and assembler can be exercised against in-memory mocks while the
// storage package provides the sqlite, Vault and file backed implementations.
//
// # Data Model
//
//   - StorageConfiguration: one storage backend binding with its quota and settings
//   - ProviderDescriptor: immutable provider reference data, keyed by code
//   - CredentialRecord: a stored credential, from either namespace
//   - Credential: the normalized credential view exposed to callers
//   - ModuleUsage / ModuleCounters: the per-module usage breakdown
//   - UsageCounters: authoritative totals of a configuration
//
// # Collaborators
//
//   - ConfigurationStore, ProviderCatalog, TenantDirectory
//   - CredentialStore: one per namespace (system, tenant)
//   - ModuleUsageSource: mappings, module info and raw counters
//   - Notifier: fire-and-forget user notifications
//
// # Error Types
//
//   - ErrNotFound: the entity does not exist; a valid outcome, not a failure
//   - ErrTransientFetch: the backend could not be queried; retryable
//   - ErrInvariantViolation: stored data breaks a documented invariant
//   - ErrInvalidLocationURI: a store URI is malformed or unsupported
//
// Stores wrap backend errors with ErrTransientFetch so callers can branch with
// errors.Is without knowing the backend.
package interfaces
