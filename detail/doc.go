/*
Package detail assembles the detail view of a single storage configuration.

An Assembler moves through the following states:

	idle -> loading -> resolving -> ready <-> syncing
	           |
	           +-> error

Loading fetches the configuration itself; a missing configuration or a failed
fetch ends in the error state with no partial view. Resolving then fetches the
provider descriptor, the credential, the owning tenant and the per-module usage
breakdown concurrently. Each of those sections degrades independently: a
failure is recorded on the section and reported through the Notifier, and the
view still becomes ready.

# Resync

Resync recomputes the usage summary and the module breakdown from fresh
counters. At most one resync runs at a time; a second call while one is in
flight returns ErrResyncInFlight. A failed resync leaves the previous view in
place.

# Superseded work

Every Load and Close starts a new generation. Fetches belonging to an older
generation are discarded when they complete and the call returns ErrStale, so
a slow response for a previous configuration never overwrites the current
view.

# Example

	a := detail.New(detail.Dependencies{
		Configurations: configStore,
		Providers:      providerCatalog,
		Credentials:    credentials.NewResolver(systemCreds, tenantCreds, logger),
		Tenants:        tenantDirectory,
		Modules:        moduleUsage,
		Notifier:       notify.NewLogNotifier(logger),
		Log:            logger,
	})

	if err := a.Load(ctx, configID); err != nil {
		return err
	}
	snapshot := a.Snapshot()
*/
package detail
