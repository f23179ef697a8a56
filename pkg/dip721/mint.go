package dip721

import (
	"context"
	"fmt"
	"math/big"

	"github.com/aviate-labs/agent-go/principal"
)

// DenialReason is an application-level refusal to mint.
type DenialReason string

const DenialUnauthorized DenialReason = "Unauthorized"

func (d DenialReason) Message() string {
	switch d {
	case DenialUnauthorized:
		return "You aren't authorized as a custodian of that canister."
	default:
		return string(d)
	}
}

type MintReceipt struct {
	TokenID       uint64
	TransactionID *big.Int
}

// MintOutcome is either a receipt or a denial. Exactly one is set.
type MintOutcome struct {
	receipt *MintReceipt
	denial  DenialReason
}

func succeeded(tokenID uint64, transactionID *big.Int) MintOutcome {
	return MintOutcome{receipt: &MintReceipt{TokenID: tokenID, TransactionID: new(big.Int).Set(transactionID)}}
}

func denied(reason DenialReason) MintOutcome {
	return MintOutcome{denial: reason}
}

func (o MintOutcome) Succeeded() bool {
	return o.receipt != nil
}

// Receipt returns the success receipt, if any.
func (o MintOutcome) Receipt() (MintReceipt, bool) {
	if o.receipt == nil {
		return MintReceipt{}, false
	}
	return MintReceipt{TokenID: o.receipt.TokenID, TransactionID: new(big.Int).Set(o.receipt.TransactionID)}, true
}

// Denial returns the denial reason, if any.
func (o MintOutcome) Denial() (DenialReason, bool) {
	return o.denial, o.receipt == nil && o.denial != ""
}

func (o MintOutcome) String() string {
	if o.receipt != nil {
		return fmt.Sprintf("minted token %d (transaction id %s)", o.receipt.TokenID, o.receipt.TransactionID)
	}
	return "mint denied: " + o.denial.Message()
}

// Mint submits the mint call and waits for its outcome. A denial is returned
// as an outcome, not as an error.
func Mint(
	ctx context.Context,
	transport Transport,
	target string,
	owner principal.Principal,
	record MetadataRecord,
	data []byte,
) (MintOutcome, error) {
	call := mintContext(target)
	arg, err := encodeMintArgs(owner, record, data)
	if err != nil {
		return MintOutcome{}, fmt.Errorf("failed to encode mint arguments: %w", err)
	}

	reply, err := transport.UpdateAndWait(ctx, target, MethodMint, arg)
	if err != nil {
		return MintOutcome{}, ClassifyRejection(err, call)
	}

	outcome, err := decodeMintReply(reply)
	if err != nil {
		return MintOutcome{}, &RemoteError{Kind: KindDecode, Target: target, Method: call.Method, Err: err}
	}
	return outcome, nil
}
