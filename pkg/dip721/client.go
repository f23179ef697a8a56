package dip721

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aviate-labs/agent-go/principal"
)

// Transport executes calls against a named target. Implementations block
// until the call is answered and report call-layer refusals as
// *ledger.Rejection.
type Transport interface {
	Query(ctx context.Context, target string, method string, arg []byte) ([]byte, error)
	UpdateAndWait(ctx context.Context, target string, method string, arg []byte) ([]byte, error)
}

type ClientConfig struct {
	Transport Transport
	Logger    *slog.Logger
}

type Client struct {
	transport Transport
	logger    *slog.Logger
}

// MintRequest carries everything needed to mint one token.
type MintRequest struct {
	Canister    string
	Owner       principal.Principal
	Location    LocationSource
	ContentHash string
	AutoHash    bool
	File        *File
	ContentType string
	TypeLookup  func(name string) string
}

type MintResult struct {
	Outcome  MintOutcome
	Metadata MetadataRecord
}

// NewClient creates a new Client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		transport: config.Transport,
		logger:    logger.With("component", "dip721"),
	}, nil
}

// Validate checks the request without contacting the target and returns the
// resolved location.
func (r MintRequest) Validate() (Location, error) {
	if strings.TrimSpace(r.Canister) == "" {
		return Location{}, validationError(ErrorCodeInvalidRequest, nil, "canister is required")
	}
	if len(r.Owner.Raw) == 0 {
		return Location{}, validationError(ErrorCodeInvalidRequest, nil, "owner is required")
	}
	location, err := ResolveLocation(r.Location)
	if err != nil {
		return Location{}, err
	}
	if err := checkHashOptions(location.Type, r.ContentHash, r.AutoHash, r.File != nil); err != nil {
		return Location{}, err
	}
	return location, nil
}

// MintToken validates the request, checks that the canister supports minting,
// assembles the metadata and mints. Nothing is sent to the canister when
// validation fails, and the mint call is never issued unless the capability
// check passes.
func (c *Client) MintToken(ctx context.Context, request MintRequest) (*MintResult, error) {
	location, err := request.Validate()
	if err != nil {
		return nil, err
	}
	target := strings.TrimSpace(request.Canister)
	logger := c.logger.With("canister", target)

	logger.Debug("probing capabilities")
	if err := RequireCapability(ctx, c.transport, target, CapabilityMint); err != nil {
		return nil, err
	}

	options := MetadataOptions{
		Location:    location,
		ContentHash: request.ContentHash,
		AutoHash:    request.AutoHash,
		File:        request.File,
		ContentType: request.ContentType,
		TypeLookup:  request.TypeLookup,
	}
	record, err := AssembleMetadata(options)
	if err != nil {
		return nil, err
	}

	var data []byte
	if request.File != nil {
		data = request.File.Data
	}
	logger.Info("minting token",
		"owner", request.Owner.String(),
		"location_type", location.Type.String(),
		"content_bytes", len(data),
	)
	outcome, err := Mint(ctx, c.transport, target, request.Owner, record, data)
	if err != nil {
		return nil, err
	}

	if receipt, ok := outcome.Receipt(); ok {
		logger.Info("token minted", "token_id", receipt.TokenID, "transaction_id", receipt.TransactionID.String())
	} else {
		reason, _ := outcome.Denial()
		logger.Warn("mint denied", "reason", string(reason))
	}
	return &MintResult{Outcome: outcome, Metadata: record}, nil
}
