// Package storage provides the stores the configuration detail service reads
// from: storage configurations, provider descriptors, the two credential
// namespaces, tenants and module usage counters.
//
// The relational stores share one sqlite database opened through Database.
// Credentials may instead live in HashiCorp Vault (KV v2) and provider
// descriptors in a JSON file.
//
// # Store URI Format
//
// Stores are located with URIs:
//
//	[scheme]://host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - sqlite:///var/lib/storagecfg/detail.db?max_conns=4
//   - sqlite://memory
//   - vault://vault.example.com:8200/secret/storage/credentials?token_env=VAULT_TOKEN
//   - file:///etc/storagecfg/providers.json
//
// StoreFactory turns URIs into stores and keeps one Database per sqlite
// location.
//
// # Errors
//
// Every store returns an error wrapping interfaces.ErrNotFound when the
// requested entity does not exist, and one wrapping
// interfaces.ErrTransientFetch when the backend could not be queried. Callers
// branch with errors.Is.
//
// # Seeding
//
// LoadFixture and Seed write a JSON fixture into a database, for development
// setups and tests:
//
//	db, err := storage.Open(ctx, "detail.db", 4)
//	f, err := storage.LoadFixture(file)
//	err = storage.Seed(ctx, db, f)
package storage
