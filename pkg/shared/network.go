package shared

import (
	"fmt"
	"net/url"
	"strings"

	hedera "github.com/hashgraph/hedera-sdk-go/v2"
)

const (
	NetworkMainnet = "mainnet"
	NetworkTestnet = "testnet"

	NetworkIC    = "ic"
	NetworkLocal = "local"

	ICURL    = "https://ic0.app"
	LocalURL = "http://localhost:4943"
)

// ResolveReplicaURL maps a network name or URL to the replica base URL.
func ResolveReplicaURL(network string) (string, error) {
	trimmed := strings.TrimSpace(network)
	switch strings.ToLower(trimmed) {
	case "", NetworkIC:
		return ICURL, nil
	case NetworkLocal:
		return LocalURL, nil
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid network URL %q: %w", network, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported network %q: expected ic, local, or an http(s) URL", network)
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return "", fmt.Errorf("invalid network URL %q: host is required", network)
	}
	return strings.TrimRight(parsed.String(), "/"), nil
}

// IsLocalNetwork reports whether the replica URL points at a development replica.
func IsLocalNetwork(replicaURL string) bool {
	parsed, err := url.Parse(replicaURL)
	if err != nil {
		return false
	}
	host := parsed.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// NormalizeNetwork validates a Hedera network name, defaulting to testnet.
func NormalizeNetwork(network string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(network))
	if normalized == "" {
		return NetworkTestnet, nil
	}

	switch normalized {
	case NetworkMainnet, NetworkTestnet:
		return normalized, nil
	default:
		return "", fmt.Errorf("unsupported network %q", network)
	}
}

// NewHederaClient creates a client for the given Hedera network.
func NewHederaClient(network string) (*hedera.Client, error) {
	normalized, err := NormalizeNetwork(network)
	if err != nil {
		return nil, err
	}

	if normalized == NetworkMainnet {
		return hedera.ClientForMainnet(), nil
	}

	return hedera.ClientForTestnet(), nil
}
