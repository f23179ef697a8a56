package shared

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	hedera "github.com/hashgraph/hedera-sdk-go/v2"
)

const (
	TransportAgent  = "agent"
	TransportHedera = "hedera"
)

type OperatorConfig struct {
	Network      string
	IdentityPEM  string
	IdentityName string
	Transport    string
	Hedera       HederaOperator
}

type HederaOperator struct {
	AccountID  string
	PrivateKey string
	Network    string
}

var dotenvLoadOnce sync.Once

// OperatorConfigFromEnv reads the replica and Hedera operator settings.
// Missing values are left empty; callers validate what they need.
func OperatorConfigFromEnv() OperatorConfig {
	loadDotEnvIfPresent()

	transport := strings.ToLower(firstNonEmptyEnv("DIP721_TRANSPORT"))
	if transport == "" {
		transport = TransportAgent
	}

	hederaNetwork := firstNonEmptyEnv("HEDERA_NETWORK")
	if hederaNetwork == "" {
		hederaNetwork = NetworkTestnet
	}

	return OperatorConfig{
		Network:      firstNonEmptyEnv("DIP721_NETWORK"),
		IdentityPEM:  firstNonEmptyEnv("DIP721_IDENTITY_PEM"),
		IdentityName: firstNonEmptyEnv("DIP721_IDENTITY"),
		Transport:    transport,
		Hedera: HederaOperator{
			AccountID:  firstNonEmptyEnv("HEDERA_ACCOUNT_ID", "HEDERA_OPERATOR_ID"),
			PrivateKey: firstNonEmptyEnv("HEDERA_PRIVATE_KEY", "HEDERA_OPERATOR_KEY"),
			Network:    hederaNetwork,
		},
	}
}

// Validate checks that the Hedera operator is fully configured.
func (o HederaOperator) Validate() error {
	if strings.TrimSpace(o.AccountID) == "" {
		return fmt.Errorf("HEDERA_ACCOUNT_ID is required")
	}
	if strings.TrimSpace(o.PrivateKey) == "" {
		return fmt.Errorf("HEDERA_PRIVATE_KEY is required")
	}
	if _, err := NormalizeNetwork(o.Network); err != nil {
		return err
	}
	return nil
}

func loadDotEnvIfPresent() {
	dotenvLoadOnce.Do(func() {
		current, err := os.Getwd()
		if err != nil {
			return
		}
		for {
			candidate := filepath.Join(current, ".env")
			if info, statErr := os.Stat(candidate); statErr == nil && !info.IsDir() {
				loadDotEnvFile(candidate)
				return
			}
			parent := filepath.Dir(current)
			if parent == current {
				return
			}
			current = parent
		}
	})
}

func loadDotEnvFile(path string) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()

	loadedAny := false
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, ok := parseDotEnvLine(scanner.Text())
		if !ok {
			continue
		}
		if _, alreadySet := os.LookupEnv(key); alreadySet {
			continue
		}
		if setErr := os.Setenv(key, value); setErr == nil {
			loadedAny = true
		}
	}

	return loadedAny
}

func parseDotEnvLine(raw string) (string, string, bool) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

	key, value, found := strings.Cut(line, "=")
	key = strings.TrimSpace(key)
	if !found || !isValidEnvKey(key) {
		return "", "", false
	}

	value = strings.TrimSpace(value)
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			value = value[1 : len(value)-1]
		}
	}
	return key, value, true
}

func isValidEnvKey(key string) bool {
	if key == "" {
		return false
	}
	for index, character := range key {
		switch {
		case character == '_',
			character >= 'A' && character <= 'Z',
			character >= 'a' && character <= 'z',
			index > 0 && character >= '0' && character <= '9':
			continue
		default:
			return false
		}
	}
	return true
}

func firstNonEmptyEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}

// ParsePrivateKey parses a Hedera operator key in ED25519, ECDSA or generic form.
func ParsePrivateKey(raw string) (hedera.PrivateKey, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return hedera.PrivateKey{}, fmt.Errorf("private key cannot be empty")
	}

	ed25519Key, edErr := hedera.PrivateKeyFromStringEd25519(candidate)
	if edErr == nil {
		return ed25519Key, nil
	}

	ecdsaKey, ecdsaErr := hedera.PrivateKeyFromStringECDSA(candidate)
	if ecdsaErr == nil {
		return ecdsaKey, nil
	}

	genericKey, genericErr := hedera.PrivateKeyFromString(candidate)
	if genericErr == nil {
		return genericKey, nil
	}

	return hedera.PrivateKey{}, fmt.Errorf(
		"failed to parse private key as ED25519 (%v), ECDSA (%v), or generic (%v)",
		edErr,
		ecdsaErr,
		genericErr,
	)
}
