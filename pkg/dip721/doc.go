// Package dip721 mints DIP-721 tokens.
//
// A mint runs in a fixed order. The request is validated locally: at most one
// content location, a parseable CID, URI or container principal, a well
// formed hex hash, and a hash whenever the content lives at an external URI.
// The canister is then asked for its supported interfaces and the mint is
// aborted unless it lists Mint. Only then is the metadata record assembled
// (hashing the content if requested) and the mint call submitted.
//
// The metadata record is ordered and limited to the keys locationType,
// location, contentHash and contentType. Values use the closed set of text,
// blob and unsigned integers of 8, 16, 32, 64 and 128 bits.
//
// Remote failures are returned as *RemoteError. A rejection with the
// destination-invalid code is reported as KindUnsupportedService for the
// probe and KindUnsupportedOperation for the mint call. Any other rejection is
// KindProtocol. A canister that refuses the mint at application level yields
// a MintOutcome carrying a DenialReason, which is not an error.
//
// The package talks to canisters through the Transport interface. pkg/agent
// implements it over the replica HTTP API and pkg/hederacall over a Hedera
// contract gateway.
package dip721
