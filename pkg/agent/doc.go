// Package agent implements a transport for the replica HTTP API (v2).
//
// Requests are CBOR envelopes carrying the request content, the sender's DER
// public key and a signature over the request id. Queries are answered
// synchronously. Update calls are submitted to the call endpoint and then
// polled through read_state until the request status in the certified state
// tree reaches a terminal value.
//
// When the remote call layer rejects a request, the error returned is a
// *ledger.Rejection carrying the reject code and message. Replies are
// returned as the raw argument bytes for the caller to decode.
//
// Every read_state certificate is verified before its tree is read: the BLS
// signature over the root hash must check out against the root key, either
// directly or through a subnet delegation whose canister ranges cover the
// target canister, and the certified time must be within the ingress expiry
// of the local clock. The root key defaults to MainnetRootKey. For local
// replicas, or when Config.FetchRootKey is set, it is fetched once from the
// replica's status endpoint instead.
package agent
