// Package main (cmd/httpserver) runs the storage configuration detail server.
//
// The server reads configurations, tenants, module mappings and usage
// counters from a sqlite database. The provider catalog can instead come from
// a JSON file, and either credential namespace from a Vault KV v2 mount.
//
// Example usage with a seeded in-memory database:
//
//	storage-config-server --database=sqlite://memory \
//	    --seed=./fixtures/dev.json \
//	    --listen-addr=0.0.0.0:8080
//
// Example usage with credentials in Vault:
//
//	VAULT_TOKEN=... storage-config-server --database=sqlite:///var/lib/storagecfg/detail.db \
//	    --providers=file:///etc/storagecfg/providers.json \
//	    --system-credentials=vault://vault.internal:8200/secret/storage \
//	    --tenant-credentials=vault://vault.internal:8200/secret/storage
//
// The server shuts down gracefully on SIGINT or SIGTERM. Prometheus metrics
// are served on --metrics-addr.
package main
