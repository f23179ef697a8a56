package ledger

import (
	"errors"
	"fmt"
)

// RejectCode classifies why a call did not produce a reply.
type RejectCode uint64

const (
	RejectSysFatal           RejectCode = 1
	RejectSysTransient       RejectCode = 2
	RejectDestinationInvalid RejectCode = 3
	RejectCanisterReject     RejectCode = 4
	RejectCanisterError      RejectCode = 5
)

func (c RejectCode) String() string {
	switch c {
	case RejectSysFatal:
		return "SysFatal"
	case RejectSysTransient:
		return "SysTransient"
	case RejectDestinationInvalid:
		return "DestinationInvalid"
	case RejectCanisterReject:
		return "CanisterReject"
	case RejectCanisterError:
		return "CanisterError"
	default:
		return fmt.Sprintf("RejectCode(%d)", uint64(c))
	}
}

// Rejection is returned by transports when the remote call layer refused or
// failed a call.
type Rejection struct {
	Code      RejectCode
	Message   string
	ErrorCode string
}

func (r *Rejection) Error() string {
	if r == nil {
		return "call rejected"
	}
	if r.ErrorCode != "" {
		return fmt.Sprintf("call rejected (code %d %s, %s): %s", uint64(r.Code), r.Code, r.ErrorCode, r.Message)
	}
	return fmt.Sprintf("call rejected (code %d %s): %s", uint64(r.Code), r.Code, r.Message)
}

// AsRejection extracts a Rejection from anywhere in err's chain.
func AsRejection(err error) (*Rejection, bool) {
	var rejection *Rejection
	if errors.As(err, &rejection) && rejection != nil {
		return rejection, true
	}
	return nil, false
}
