package agent

import (
	"bytes"
	"crypto/sha256"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"github.com/hashgraph-online/dip721-sdk-go/pkg/identity"
)

const (
	requestTypeQuery     = "query"
	requestTypeCall      = "call"
	requestTypeReadState = "read_state"

	selfDescribeTag = 55799
)

var requestDomainSeparator = []byte("\x0Aic-request")

var encOptions = cbor.EncOptions{
	Sort:        cbor.SortCanonical,
	IndefLength: cbor.IndefLengthForbidden,
}

var em, _ = encOptions.EncMode()

var decOptions = cbor.DecOptions{
	MaxArrayElements: 100000,
	MaxMapPairs:      10000,
	MaxNestedLevels:  128,
	IndefLength:      cbor.IndefLengthForbidden,
	DupMapKey:        cbor.DupMapKeyEnforcedAPF,
}

var dm, _ = decOptions.DecMode()

type requestContent struct {
	RequestType   string     `cbor:"request_type"`
	Sender        []byte     `cbor:"sender"`
	CanisterID    []byte     `cbor:"canister_id,omitempty"`
	MethodName    string     `cbor:"method_name,omitempty"`
	Arg           []byte     `cbor:"arg,omitempty"`
	Nonce         []byte     `cbor:"nonce,omitempty"`
	IngressExpiry uint64     `cbor:"ingress_expiry"`
	Paths         [][][]byte `cbor:"paths,omitempty"`
}

type envelope struct {
	Content      requestContent `cbor:"content"`
	SenderPubkey []byte         `cbor:"sender_pubkey,omitempty"`
	SenderSig    []byte         `cbor:"sender_sig,omitempty"`
}

// requestID is the representation-independent hash of the content.
func requestID(content requestContent) []byte {
	pairs := make([][]byte, 0, 8)
	add := func(key string, valueHash []byte) {
		keyHash := sha256.Sum256([]byte(key))
		pairs = append(pairs, append(keyHash[:], valueHash...))
	}

	add("request_type", hashBytes([]byte(content.RequestType)))
	add("sender", hashBytes(content.Sender))
	add("ingress_expiry", hashBytes(appendUleb(nil, content.IngressExpiry)))
	if len(content.CanisterID) > 0 {
		add("canister_id", hashBytes(content.CanisterID))
	}
	if content.MethodName != "" {
		add("method_name", hashBytes([]byte(content.MethodName)))
	}
	if len(content.Arg) > 0 {
		add("arg", hashBytes(content.Arg))
	}
	if len(content.Nonce) > 0 {
		add("nonce", hashBytes(content.Nonce))
	}
	if len(content.Paths) > 0 {
		pathHashes := make([]byte, 0, 32*len(content.Paths))
		for _, path := range content.Paths {
			labelHashes := make([]byte, 0, 32*len(path))
			for _, label := range path {
				labelHashes = append(labelHashes, hashBytes(label)...)
			}
			pathHashes = append(pathHashes, hashBytes(labelHashes)...)
		}
		add("paths", hashBytes(pathHashes))
	}

	sort.Slice(pairs, func(i, j int) bool { return bytes.Compare(pairs[i], pairs[j]) < 0 })
	return hashBytes(bytes.Join(pairs, nil))
}

func hashBytes(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

func appendUleb(buffer []byte, value uint64) []byte {
	for {
		next := byte(value & 0x7f)
		value >>= 7
		if value == 0 {
			return append(buffer, next)
		}
		buffer = append(buffer, next|0x80)
	}
}

func decodeUleb(data []byte) (uint64, bool) {
	var value uint64
	for index, next := range data {
		if index >= 10 {
			return 0, false
		}
		value |= uint64(next&0x7f) << (7 * uint(index))
		if next&0x80 == 0 {
			return value, index == len(data)-1
		}
	}
	return 0, false
}

// signEnvelope wraps content in a signed, self-described CBOR envelope.
func signEnvelope(signer identity.Identity, content requestContent) ([]byte, []byte, error) {
	id := requestID(content)
	request := envelope{Content: content}

	if publicKey := signer.PublicKey(); publicKey != nil {
		message := append(append([]byte{}, requestDomainSeparator...), id...)
		signature, err := signer.Sign(message)
		if err != nil {
			return nil, nil, err
		}
		request.SenderPubkey = publicKey
		request.SenderSig = signature
	}

	encoded, err := em.Marshal(cbor.Tag{Number: selfDescribeTag, Content: request})
	if err != nil {
		return nil, nil, err
	}
	return encoded, id, nil
}
