/*
Package httpserver serves storage configuration details over HTTP.

The server keeps one detail.Assembler per configuration id. The first request
for an id loads it; later requests return the loaded snapshot until the
configuration is reloaded, resynced or closed.

# Endpoints

  - GET /api/storage/configs/{id}: detail snapshot, loading it when needed.
    Pass reload=1 to load again.
  - POST /api/storage/configs/{id}/resync: recompute usage from fresh
    counters.
  - DELETE /api/storage/configs/{id}: discard the configuration's assembler.
  - GET /api/notifications: buffered user notifications. Pass drain=1 to
    empty the buffer.
  - GET /livez, /readyz, /drain, /undrain: health and load balancer control.

Snapshots carry raw values and display strings. Credential secrets are never
part of a response; a credential is described by its payload keys and a
fingerprint.

# Status Codes

	200  snapshot returned
	204  configuration closed
	404  configuration does not exist
	409  resync already running, or the result was superseded
	412  resync requested for a configuration that is not loaded
	502  resync failed; the previous snapshot stays valid
	503  configuration could not be fetched

Metrics are exposed by a separate server on the metrics address.
*/
package httpserver
