package commands

import (
	"log/slog"

	"github.com/hashgraph-online/dip721-sdk-go/pkg/agent"
	"github.com/hashgraph-online/dip721-sdk-go/pkg/dip721"
	"github.com/hashgraph-online/dip721-sdk-go/pkg/hederacall"
	"github.com/hashgraph-online/dip721-sdk-go/pkg/identity"
	"github.com/hashgraph-online/dip721-sdk-go/pkg/shared"
)

func defaultTransport(settings Settings, logger *slog.Logger) (dip721.Transport, error) {
	if settings.Transport == shared.TransportHedera {
		return hederacall.NewTransport(hederacall.Config{
			Network:            settings.Network,
			OperatorAccountID:  settings.Hedera.AccountID,
			OperatorPrivateKey: settings.Hedera.PrivateKey,
			Gas:                settings.Hedera.Gas,
			Logger:             logger,
		})
	}
	return agent.New(agent.Config{
		Network:  settings.Network,
		Identity: settings.Signer,
		Logger:   logger,
		Poll: agent.PollOptions{
			Interval: settings.PollInterval,
			Timeout:  settings.PollTimeout,
		},
		FetchRootKey: settings.FetchRootKey,
	})
}

func (a *app) identityProvider(settings Settings) identity.Provider {
	if a.options.Identity != nil {
		return a.options.Identity
	}
	if settings.IdentityPEM != "" {
		return identity.PEMFileProvider{Path: settings.IdentityPEM}
	}
	return identity.DFXProvider{Home: settings.Home, Name: settings.IdentityName}
}

// connect resolves settings, the signing identity and the transport.
func (a *app) connect(network string, canister string) (Settings, dip721.Transport, error) {
	settings, err := settingsFromConfig(a.config, network, canister, a.home())
	if err != nil {
		return Settings{}, nil, err
	}
	if settings.Transport == shared.TransportAgent {
		signer, err := a.identityProvider(settings).Identity()
		if err != nil {
			return Settings{}, nil, err
		}
		settings.Signer = signer
		a.logger.Debug("using identity", "sender", signer.Sender().String())
	}
	transport, err := a.options.NewTransport(settings, a.logger)
	if err != nil {
		return Settings{}, nil, err
	}
	return settings, transport, nil
}
