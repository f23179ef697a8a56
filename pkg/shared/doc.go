// Package shared provides common utilities used across the DIP-721 SDK for
// Go: replica and Hedera network resolution, Hedera client construction,
// operator configuration from environment variables and key parsing helpers.
//
// # Environment Variables
//
// OperatorConfigFromEnv reads the following variables, loading a .env file
// from the working directory or one of its parents when present:
//
//	DIP721_NETWORK        replica network: "ic", "local" or an http(s) URL
//	DIP721_IDENTITY_PEM   path to the signing identity PEM file
//	DIP721_IDENTITY       dfx identity name (defaults to the dfx default)
//	DIP721_TRANSPORT      "agent" (default) or "hedera"
//	HEDERA_NETWORK        Hedera network for the gateway transport
//	HEDERA_ACCOUNT_ID     Hedera operator account
//	HEDERA_PRIVATE_KEY    Hedera operator key
//
// Variables already present in the process environment take precedence over
// values from the .env file.
package shared
