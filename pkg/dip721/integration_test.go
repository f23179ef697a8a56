package dip721_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/hashgraph-online/dip721-sdk-go/pkg/agent"
	"github.com/hashgraph-online/dip721-sdk-go/pkg/dip721"
	"github.com/hashgraph-online/dip721-sdk-go/pkg/identity"
)

func TestDIP721Integration_ProbeAndMint(t *testing.T) {
	if os.Getenv("RUN_INTEGRATION") != "1" {
		t.Skip("set RUN_INTEGRATION=1 to run live integration tests")
	}
	canister := strings.TrimSpace(os.Getenv("DIP721_INTEGRATION_CANISTER"))
	if canister == "" {
		t.Skip("DIP721_INTEGRATION_CANISTER is not set")
	}

	signer, err := identity.EnvironmentProvider{}.Identity()
	if err != nil {
		t.Skipf("skipping integration test: %v", err)
	}
	network := os.Getenv("DIP721_NETWORK")
	if network == "" {
		network = "local"
	}

	transport, err := agent.New(agent.Config{Network: network, Identity: signer})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	capabilities, err := dip721.SupportedCapabilities(ctx, transport, canister)
	if err != nil {
		t.Fatalf("failed to probe %s: %v", canister, err)
	}
	if !capabilities.Has(dip721.CapabilityMint) {
		t.Skipf("canister %s does not support minting (%s)", canister, capabilities)
	}

	client, err := dip721.NewClient(dip721.ClientConfig{Transport: transport})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data := []byte("dip721 integration " + time.Now().UTC().Format(time.RFC3339Nano))
	result, err := client.MintToken(ctx, dip721.MintRequest{
		Canister: canister,
		Owner:    signer.Sender(),
		File:     &dip721.File{Name: "integration.txt", Data: data},
		AutoHash: true,
	})
	if err != nil {
		t.Fatalf("failed to mint: %v", err)
	}
	if reason, denied := result.Outcome.Denial(); denied {
		t.Skipf("identity %s may not mint on %s: %s", signer.Sender(), canister, reason.Message())
	}
	receipt, _ := result.Outcome.Receipt()
	t.Logf("minted token %d (transaction id %s)", receipt.TokenID, receipt.TransactionID)
}
