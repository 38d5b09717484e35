// Package credentials resolves credential identifiers across the two
// credential namespaces.
//
// System credentials are the default tier and are probed first; tenant
// credentials are probed only when the system namespace has no match. The
// result is a tagged Resolution (System, Tenant or NotFound) so callers branch
// once on the kind:
//
//	res, err := resolver.Resolve(ctx, cfg.CredentialID)
//	if err != nil {
//	    // transient: the credential section is unavailable
//	}
//	switch res.Kind {
//	case credentials.System, credentials.Tenant:
//	    render(res.Credential)
//	case credentials.NotFound:
//	    renderMissing()
//	}
//
// Normalized credentials never carry the raw payload: only its key names and
// a keyed BLAKE2b fingerprint.
package credentials
