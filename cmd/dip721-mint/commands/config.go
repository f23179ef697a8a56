package commands

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashgraph-online/dip721-sdk-go/pkg/agent"
	"github.com/hashgraph-online/dip721-sdk-go/pkg/identity"
	"github.com/hashgraph-online/dip721-sdk-go/pkg/shared"
	"github.com/spf13/viper"
)

const (
	keyNetwork          = "network"
	keyIdentityPEM      = "identity.pem"
	keyIdentityName     = "identity.name"
	keyTransport        = "transport"
	keyPollInterval     = "poll.interval"
	keyPollTimeout      = "poll.timeout"
	keyFetchRootKey     = "fetch_root_key"
	keyHederaNetwork    = "hedera.network"
	keyHederaAccountID  = "hedera.account_id"
	keyHederaPrivateKey = "hedera.private_key"
	keyHederaGas        = "hedera.gas"
)

// Settings is the resolved configuration for one command run.
type Settings struct {
	Network      string
	Canister     string
	Transport    string
	IdentityPEM  string
	IdentityName string
	PollInterval time.Duration
	PollTimeout  time.Duration
	FetchRootKey bool
	Hedera       HederaSettings
	Home         string
	// Signer is resolved for the agent transport only.
	Signer identity.Identity
}

type HederaSettings struct {
	AccountID  string
	PrivateKey string
	Gas        uint64
}

// loadConfig layers defaults from the environment (including .env files),
// an optional config file, DIP721_* variables and bound flags.
func loadConfig(v *viper.Viper, cfgFile string, home string) error {
	operator := shared.OperatorConfigFromEnv()
	v.SetDefault(keyNetwork, operator.Network)
	v.SetDefault(keyIdentityPEM, operator.IdentityPEM)
	v.SetDefault(keyIdentityName, operator.IdentityName)
	v.SetDefault(keyTransport, operator.Transport)
	v.SetDefault(keyPollInterval, agent.DefaultPollInterval)
	v.SetDefault(keyPollTimeout, agent.DefaultPollTimeout)
	v.SetDefault(keyFetchRootKey, false)
	v.SetDefault(keyHederaNetwork, operator.Hedera.Network)
	v.SetDefault(keyHederaAccountID, operator.Hedera.AccountID)
	v.SetDefault(keyHederaPrivateKey, operator.Hedera.PrivateKey)
	v.SetDefault(keyHederaGas, 0)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home != "" {
			v.AddConfigPath(filepath.Join(home, ".dip721"))
		}
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("DIP721")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

func settingsFromConfig(v *viper.Viper, network string, canister string, home string) (Settings, error) {
	settings := Settings{
		Network:      strings.TrimSpace(network),
		Canister:     strings.TrimSpace(canister),
		Transport:    strings.ToLower(strings.TrimSpace(v.GetString(keyTransport))),
		IdentityPEM:  strings.TrimSpace(v.GetString(keyIdentityPEM)),
		IdentityName: strings.TrimSpace(v.GetString(keyIdentityName)),
		PollInterval: v.GetDuration(keyPollInterval),
		PollTimeout:  v.GetDuration(keyPollTimeout),
		FetchRootKey: v.GetBool(keyFetchRootKey),
		Hedera: HederaSettings{
			AccountID:  strings.TrimSpace(v.GetString(keyHederaAccountID)),
			PrivateKey: strings.TrimSpace(v.GetString(keyHederaPrivateKey)),
			Gas:        v.GetUint64(keyHederaGas),
		},
		Home: home,
	}
	if settings.Transport == "" {
		settings.Transport = shared.TransportAgent
	}

	switch settings.Transport {
	case shared.TransportAgent:
		if settings.Network == "" {
			settings.Network = strings.TrimSpace(v.GetString(keyNetwork))
		}
		if _, err := shared.ResolveReplicaURL(settings.Network); err != nil {
			return Settings{}, err
		}
	case shared.TransportHedera:
		if settings.Network == "" {
			settings.Network = strings.TrimSpace(v.GetString(keyHederaNetwork))
		}
		normalized, err := shared.NormalizeNetwork(settings.Network)
		if err != nil {
			return Settings{}, err
		}
		settings.Network = normalized
	default:
		return Settings{}, fmt.Errorf("unsupported transport %q: use %s or %s", settings.Transport, shared.TransportAgent, shared.TransportHedera)
	}

	if settings.Canister == "" {
		return Settings{}, fmt.Errorf("canister is required")
	}
	return settings, nil
}
