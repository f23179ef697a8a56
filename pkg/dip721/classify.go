package dip721

import (
	"fmt"

	"github.com/hashgraph-online/dip721-sdk-go/pkg/ledger"
)

// CallContext describes a call for ClassifyRejection: what a
// destination-invalid rejection means for it and how to explain it.
type CallContext struct {
	Target      string
	Method      string
	Unsupported ErrorKind
	Hint        string
}

func probeContext(target string) CallContext {
	return CallContext{
		Target:      target,
		Method:      MethodSupportedInterfaces,
		Unsupported: KindUnsupportedService,
		Hint:        fmt.Sprintf("canister %s does not appear to be a DIP-721 NFT canister", target),
	}
}

func mintContext(target string) CallContext {
	return CallContext{
		Target:      target,
		Method:      MethodMint,
		Unsupported: KindUnsupportedOperation,
		Hint:        fmt.Sprintf("canister %s does not support minting", target),
	}
}

// ClassifyRejection turns a transport error into a RemoteError. Only the
// reject code is inspected: code 3 means the method is missing, but the
// replica uses the same code for some unrelated failures, which are then
// reported as unsupported too.
func ClassifyRejection(err error, call CallContext) *RemoteError {
	if err == nil {
		return nil
	}
	remote := &RemoteError{
		Kind:   KindProtocol,
		Target: call.Target,
		Method: call.Method,
		Err:    err,
	}
	if rejection, ok := ledger.AsRejection(err); ok && rejection.Code == ledger.RejectDestinationInvalid {
		remote.Kind = call.Unsupported
		remote.Hint = call.Hint
	}
	return remote
}
