// Package hederacall forwards canister-style calls to a Hedera smart
// contract gateway.
//
// The gateway contract exposes a single function
//
//	dispatch(string method, bytes arg) returns (bytes)
//
// Queries run as ContractCallQuery. Updates run as ContractExecuteTransaction
// and wait for the receipt and record. Hedera statuses are mapped onto the
// reject codes used by the core so that the same classification applies to
// both transports.
package hederacall
