// Package ledger holds the transport-neutral vocabulary shared by the call
// transports (pkg/agent, pkg/hederacall) and the DIP-721 core (pkg/dip721).
//
// A Rejection is the structured failure a transport returns when a call did
// not produce an application-level reply. It carries the numeric reject code
// and the message reported by the remote side, and is distinct from any
// negative result the application itself encodes in a successful reply.
package ledger
