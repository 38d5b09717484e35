// Package main (cmd/configdetail) prints the detail snapshot of one storage
// configuration without running the server.
//
//	configdetail --database=sqlite:///var/lib/storagecfg/detail.db --config=cfg-1 show
//	configdetail --database=sqlite://memory --seed=dev.json --config=cfg-1 --formatted resync
//
// resync also records the recomputed usage on the configuration.
package main
