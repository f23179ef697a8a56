// The DIP-721 SDK for Go mints NFTs on DIP-721 canisters. It resolves where
// the token content lives, assembles the metadata record the canister
// expects, checks that the canister supports minting and issues the mint
// call, classifying every failure along the way.
//
// # Packages
//
//   - pkg/dip721: location resolution, metadata assembly, capability probing,
//     minting and error classification
//   - pkg/agent: an HTTP v2 replica agent with update polling and certificate
//     verification
//   - pkg/hederacall: a transport that reaches a canister gateway contract
//     on Hedera
//   - pkg/identity: anonymous, PEM and dfx signing identities
//   - pkg/ledger: replica reject codes
//   - cmd/dip721-mint: the command line minter
//
// # Installation
//
//	go get github.com/hashgraph-online/dip721-sdk-go@latest
package dip721_sdk_go
