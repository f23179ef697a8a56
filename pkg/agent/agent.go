package agent

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aviate-labs/agent-go/principal"
	"github.com/hashgraph-online/dip721-sdk-go/pkg/identity"
	"github.com/hashgraph-online/dip721-sdk-go/pkg/ledger"
	"github.com/hashgraph-online/dip721-sdk-go/pkg/shared"
)

const (
	DefaultPollInterval  = 500 * time.Millisecond
	DefaultPollTimeout   = 5 * time.Minute
	DefaultIngressExpiry = 4 * time.Minute
)

type Config struct {
	// Network is "ic", "local" or an http(s) replica URL.
	Network       string
	Identity      identity.Identity
	HTTPClient    *http.Client
	Logger        *slog.Logger
	Poll          PollOptions
	IngressExpiry time.Duration
	// RootKey is the DER encoded key certificates are verified against.
	// Defaults to MainnetRootKey, or to the key published by the replica
	// for local networks.
	RootKey []byte
	// FetchRootKey takes the root key from the replica's status endpoint
	// even when the network is not local. Only use it against a replica
	// you trust.
	FetchRootKey bool
}

type PollOptions struct {
	Interval time.Duration
	Timeout  time.Duration
}

type Agent struct {
	baseURL       string
	httpClient    *http.Client
	identity      identity.Identity
	logger        *slog.Logger
	poll          PollOptions
	ingressExpiry time.Duration

	rootKeyMu    sync.Mutex
	rootKey      []byte
	fetchRootKey bool
}

// New creates a new Agent.
func New(config Config) (*Agent, error) {
	baseURL, err := shared.ResolveReplicaURL(config.Network)
	if err != nil {
		return nil, err
	}

	signer := config.Identity
	if signer == nil {
		signer = identity.Anonymous()
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	poll := config.Poll
	if poll.Interval <= 0 {
		poll.Interval = DefaultPollInterval
	}
	if poll.Timeout <= 0 {
		poll.Timeout = DefaultPollTimeout
	}

	expiry := config.IngressExpiry
	if expiry <= 0 {
		expiry = DefaultIngressExpiry
	}

	local := shared.IsLocalNetwork(baseURL)
	fetch := config.FetchRootKey || (config.RootKey == nil && local)
	var rootKey []byte
	if !fetch {
		rootKey = MainnetRootKey
		if config.RootKey != nil {
			rootKey = append([]byte{}, config.RootKey...)
		}
	}

	return &Agent{
		baseURL:       baseURL,
		httpClient:    httpClient,
		identity:      signer,
		logger:        logger.With("component", "agent", "replica", baseURL, "local", local),
		poll:          poll,
		ingressExpiry: expiry,
		rootKey:       rootKey,
		fetchRootKey:  fetch,
	}, nil
}

// BaseURL returns the replica URL the agent talks to.
func (a *Agent) BaseURL() string {
	return a.baseURL
}

type statusResponse struct {
	RootKey []byte `cbor:"root_key"`
}

// FetchRootKey replaces the root key with the one published by the replica.
func (a *Agent) FetchRootKey(ctx context.Context) error {
	a.rootKeyMu.Lock()
	defer a.rootKeyMu.Unlock()
	return a.fetchRootKeyLocked(ctx)
}

func (a *Agent) fetchRootKeyLocked(ctx context.Context) error {
	_, body, err := a.get(ctx, "status")
	if err != nil {
		return fmt.Errorf("failed to fetch root key: %w", err)
	}
	var status statusResponse
	if err := dm.Unmarshal(body, &status); err != nil {
		return fmt.Errorf("failed to decode status response: %w", err)
	}
	if len(status.RootKey) == 0 {
		return fmt.Errorf("status response has no root key")
	}
	a.rootKey = status.RootKey
	a.logger.Warn("using root key fetched from replica", "root_key", fmt.Sprintf("%x", status.RootKey))
	return nil
}

// trustedRootKey returns the root key, fetching it once when the agent was
// configured to.
func (a *Agent) trustedRootKey(ctx context.Context) ([]byte, error) {
	a.rootKeyMu.Lock()
	defer a.rootKeyMu.Unlock()
	if a.rootKey == nil && a.fetchRootKey {
		if err := a.fetchRootKeyLocked(ctx); err != nil {
			return nil, err
		}
	}
	if a.rootKey == nil {
		return nil, fmt.Errorf("no root key configured")
	}
	return a.rootKey, nil
}

// RootKey returns the DER encoded root key, or nil when it has not been
// fetched yet.
func (a *Agent) RootKey() []byte {
	a.rootKeyMu.Lock()
	defer a.rootKeyMu.Unlock()
	return append([]byte(nil), a.rootKey...)
}

// Sender returns the principal requests are sent as.
func (a *Agent) Sender() principal.Principal {
	return a.identity.Sender()
}

type queryResponse struct {
	Status        string     `cbor:"status"`
	Reply         *replyBody `cbor:"reply"`
	RejectCode    uint64     `cbor:"reject_code"`
	RejectMessage string     `cbor:"reject_message"`
	ErrorCode     string     `cbor:"error_code"`
}

type replyBody struct {
	Arg []byte `cbor:"arg"`
}

type readStateResponse struct {
	Certificate []byte `cbor:"certificate"`
}

// Query performs a non-committing call and returns the reply argument bytes.
func (a *Agent) Query(ctx context.Context, canisterID string, method string, arg []byte) ([]byte, error) {
	canister, err := parseCanister(canisterID, method)
	if err != nil {
		return nil, err
	}

	content := a.content(requestTypeQuery)
	content.CanisterID = canister.Raw
	content.MethodName = method
	content.Arg = arg

	body, _, err := signEnvelope(a.identity, content)
	if err != nil {
		return nil, fmt.Errorf("failed to sign query: %w", err)
	}

	a.logger.Debug("sending query", "canister", canisterID, "method", method)
	_, responseBody, err := a.post(ctx, canister, "query", body)
	if err != nil {
		return nil, err
	}

	var response queryResponse
	if err := dm.Unmarshal(responseBody, &response); err != nil {
		return nil, fmt.Errorf("failed to decode query response: %w", err)
	}
	switch response.Status {
	case "replied":
		if response.Reply == nil {
			return nil, fmt.Errorf("query response has no reply")
		}
		return response.Reply.Arg, nil
	case "rejected":
		return nil, &ledger.Rejection{
			Code:      ledger.RejectCode(response.RejectCode),
			Message:   response.RejectMessage,
			ErrorCode: response.ErrorCode,
		}
	default:
		return nil, fmt.Errorf("unexpected query status %q", response.Status)
	}
}

// UpdateAndWait submits a committing call and polls until it is answered.
func (a *Agent) UpdateAndWait(ctx context.Context, canisterID string, method string, arg []byte) ([]byte, error) {
	canister, err := parseCanister(canisterID, method)
	if err != nil {
		return nil, err
	}

	content := a.content(requestTypeCall)
	content.CanisterID = canister.Raw
	content.MethodName = method
	content.Arg = arg
	content.Nonce = make([]byte, 8)
	if _, err := rand.Read(content.Nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	body, id, err := signEnvelope(a.identity, content)
	if err != nil {
		return nil, fmt.Errorf("failed to sign call: %w", err)
	}

	a.logger.Debug("submitting call", "canister", canisterID, "method", method, "request_id", fmt.Sprintf("%x", id))
	status, responseBody, err := a.post(ctx, canister, "call", body)
	if err != nil {
		return nil, err
	}
	if status == http.StatusOK && len(responseBody) > 0 {
		var response queryResponse
		if err := dm.Unmarshal(responseBody, &response); err != nil {
			return nil, fmt.Errorf("failed to decode call response: %w", err)
		}
		if response.RejectCode != 0 {
			return nil, &ledger.Rejection{
				Code:      ledger.RejectCode(response.RejectCode),
				Message:   response.RejectMessage,
				ErrorCode: response.ErrorCode,
			}
		}
	}

	return a.waitForReply(ctx, canister, id)
}

func (a *Agent) waitForReply(ctx context.Context, canister principal.Principal, id []byte) ([]byte, error) {
	waitCtx, cancel := context.WithTimeout(ctx, a.poll.Timeout)
	defer cancel()

	for attempt := 1; ; attempt++ {
		reply, done, err := a.requestStatus(waitCtx, canister, id)
		if err != nil {
			return nil, err
		}
		if done {
			a.logger.Debug("call answered", "request_id", fmt.Sprintf("%x", id), "attempts", attempt)
			return reply, nil
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("call was not answered within %s", a.poll.Timeout)
		case <-time.After(a.poll.Interval):
		}
	}
}

// requestStatus reads the certified status of a request. done is false while
// the request is still pending.
func (a *Agent) requestStatus(ctx context.Context, canister principal.Principal, id []byte) ([]byte, bool, error) {
	prefix := []byte("request_status")
	content := a.content(requestTypeReadState)
	content.Paths = [][][]byte{{prefix, id}}

	body, _, err := signEnvelope(a.identity, content)
	if err != nil {
		return nil, false, fmt.Errorf("failed to sign read_state: %w", err)
	}
	_, responseBody, err := a.post(ctx, canister, "read_state", body)
	if err != nil {
		return nil, false, err
	}

	var response readStateResponse
	if err := dm.Unmarshal(responseBody, &response); err != nil {
		return nil, false, fmt.Errorf("failed to decode read_state response: %w", err)
	}
	rootKey, err := a.trustedRootKey(ctx)
	if err != nil {
		return nil, false, err
	}
	tree, err := verifyCertificate(response.Certificate, certificateCheck{
		rootKey:  rootKey,
		canister: canister.Raw,
		now:      time.Now(),
		maxSkew:  a.ingressExpiry,
	})
	if err != nil {
		return nil, false, err
	}

	statusLeaf, found, err := tree.Lookup(prefix, id, []byte("status"))
	if err != nil {
		return nil, false, err
	}
	if found != lookupFound {
		return nil, false, nil
	}

	status := string(statusLeaf)
	a.logger.Debug("request status", "request_id", fmt.Sprintf("%x", id), "status", status)
	switch status {
	case "received", "processing":
		return nil, false, nil
	case "replied":
		reply, found, err := tree.Lookup(prefix, id, []byte("reply"))
		if err != nil {
			return nil, false, err
		}
		if found != lookupFound {
			return nil, false, fmt.Errorf("replied request has no reply in certificate")
		}
		return reply, true, nil
	case "rejected":
		return nil, false, rejectionFromTree(tree, prefix, id)
	case "done":
		return nil, false, fmt.Errorf("request is done and its reply is no longer available")
	default:
		return nil, false, fmt.Errorf("unexpected request status %q", status)
	}
}

func rejectionFromTree(tree *hashTree, prefix []byte, id []byte) error {
	codeLeaf, found, err := tree.Lookup(prefix, id, []byte("reject_code"))
	if err != nil {
		return err
	}
	if found != lookupFound {
		return fmt.Errorf("rejected request has no reject code in certificate")
	}
	code, ok := decodeUleb(codeLeaf)
	if !ok {
		return fmt.Errorf("malformed reject code in certificate")
	}

	message, _, err := tree.Lookup(prefix, id, []byte("reject_message"))
	if err != nil {
		return err
	}
	errorCode, _, err := tree.Lookup(prefix, id, []byte("error_code"))
	if err != nil {
		return err
	}
	return &ledger.Rejection{
		Code:      ledger.RejectCode(code),
		Message:   string(message),
		ErrorCode: string(errorCode),
	}
}

func (a *Agent) content(requestType string) requestContent {
	return requestContent{
		RequestType:   requestType,
		Sender:        a.identity.Sender().Raw,
		IngressExpiry: uint64(time.Now().Add(a.ingressExpiry).UnixNano()),
	}
}

func parseCanister(canisterID string, method string) (principal.Principal, error) {
	if strings.TrimSpace(canisterID) == "" {
		return principal.Principal{}, fmt.Errorf("canister ID is required")
	}
	if strings.TrimSpace(method) == "" {
		return principal.Principal{}, fmt.Errorf("method name is required")
	}
	canister, err := principal.Decode(strings.TrimSpace(canisterID))
	if err != nil {
		return principal.Principal{}, fmt.Errorf("invalid canister ID %q: %w", canisterID, err)
	}
	return canister, nil
}
