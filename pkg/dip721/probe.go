package dip721

import (
	"context"
	"sort"
	"strings"
)

// Capability is an optional DIP-721 interface a canister may implement.
type Capability string

const (
	CapabilityApproval             Capability = "Approval"
	CapabilityTransactionHistory   Capability = "TransactionHistory"
	CapabilityMint                 Capability = "Mint"
	CapabilityBurn                 Capability = "Burn"
	CapabilityTransferNotification Capability = "TransferNotification"
)

func (c Capability) description() string {
	switch c {
	case CapabilityMint:
		return "minting"
	case CapabilityBurn:
		return "burning"
	case CapabilityApproval:
		return "approvals"
	case CapabilityTransactionHistory:
		return "transaction history"
	case CapabilityTransferNotification:
		return "transfer notifications"
	default:
		return string(c)
	}
}

// CapabilitySet is the set of interfaces a canister reported.
type CapabilitySet map[Capability]struct{}

func (s CapabilitySet) Has(capability Capability) bool {
	_, ok := s[capability]
	return ok
}

func (s CapabilitySet) List() []Capability {
	list := make([]Capability, 0, len(s))
	for capability := range s {
		list = append(list, capability)
	}
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	return list
}

func (s CapabilitySet) String() string {
	names := make([]string, 0, len(s))
	for _, capability := range s.List() {
		names = append(names, string(capability))
	}
	return "[" + strings.Join(names, ", ") + "]"
}

// SupportedCapabilities queries the interfaces the target implements. The
// interface set is closed: a tag outside it is a decode error.
func SupportedCapabilities(ctx context.Context, transport Transport, target string) (CapabilitySet, error) {
	call := probeContext(target)
	arg, err := encodeEmptyArgs()
	if err != nil {
		return nil, err
	}
	reply, err := transport.Query(ctx, target, MethodSupportedInterfaces, arg)
	if err != nil {
		return nil, ClassifyRejection(err, call)
	}
	set, err := decodeCapabilities(reply)
	if err != nil {
		return nil, &RemoteError{Kind: KindDecode, Target: target, Method: call.Method, Err: err}
	}
	return set, nil
}

// RequireCapability fails with *CapabilityMissingError unless the target
// reports the required capability.
func RequireCapability(ctx context.Context, transport Transport, target string, required Capability) error {
	set, err := SupportedCapabilities(ctx, transport, target)
	if err != nil {
		return err
	}
	if !set.Has(required) {
		return &CapabilityMissingError{Target: target, Capability: required}
	}
	return nil
}
