// Package identity provides the signing identities used to authenticate
// replica requests and the providers that supply them.
//
// Three identities are supported: the anonymous identity (unsigned
// requests), secp256k1 keys (the "EC PRIVATE KEY" PEM files produced by dfx)
// and Ed25519 keys (PKCS#8 "PRIVATE KEY" PEM files). Every identity exposes
// its DER encoded public key and derives a self-authenticating sender
// principal from it.
//
// Credential discovery is injected through the Provider interface so that
// callers decide where keys come from: a static value, an explicit PEM file,
// the dfx identity directory, or environment configuration.
package identity
