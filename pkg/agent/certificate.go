package agent

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/fxamacker/cbor/v2"
)

const (
	nodeEmpty uint64 = iota
	nodeFork
	nodeLabeled
	nodeLeaf
	nodePruned
)

var errMalformedTree = errors.New("malformed hash tree")

// ErrInvalidCertificate is returned when a certificate fails signature,
// delegation or freshness checks.
var ErrInvalidCertificate = errors.New("invalid certificate")

var (
	stateRootSeparator = []byte("\x0Dic-state-root")
	blsSignatureDST    = []byte("BLS_SIG_BLS12381G1_XMD:SHA-256_SSWU_RO_NUL_")
	blsKeyDERPrefix, _ = hex.DecodeString("308182301d060d2b0601040182dc7c0503010201060c2b0601040182dc7c05030201036100")
)

// MainnetRootKey is the DER encoded public key certifying the mainnet state.
var MainnetRootKey, _ = hex.DecodeString(
	"308182301d060d2b0601040182dc7c0503010201060c2b0601040182dc7c05030201036100" +
		"814c0e6ec71fab583b08bd81373c255c3c371b2e84863c98a4f1e08b74235d14fb5d9c0cd546d9685f913a0c0b2cc534" +
		"1583bf4b4392e467db96d65b9bb4cb717112f8472e0d5a4d14505ffd7484b01291091c5f87b98883463f98091a0baaae",
)

type lookupStatus int

const (
	lookupAbsent lookupStatus = iota
	lookupUnknown
	lookupFound
)

type certificate struct {
	Tree       cbor.RawMessage `cbor:"tree"`
	Signature  []byte          `cbor:"signature"`
	Delegation *delegation     `cbor:"delegation,omitempty"`
}

type delegation struct {
	SubnetID    []byte `cbor:"subnet_id"`
	Certificate []byte `cbor:"certificate"`
}

type hashTree struct {
	root any
}

// certificateCheck holds what a certificate is verified against.
type certificateCheck struct {
	rootKey  []byte
	canister []byte
	now      time.Time
	maxSkew  time.Duration
}

func parseCertificate(data []byte) (*certificate, *hashTree, error) {
	var cert certificate
	if err := dm.Unmarshal(data, &cert); err != nil {
		return nil, nil, fmt.Errorf("failed to decode certificate: %w", err)
	}
	if len(cert.Tree) == 0 {
		return nil, nil, fmt.Errorf("certificate has no tree")
	}
	var root any
	if err := dm.Unmarshal(cert.Tree, &root); err != nil {
		return nil, nil, fmt.Errorf("failed to decode hash tree: %w", err)
	}
	return &cert, &hashTree{root: root}, nil
}

// verifyCertificate decodes a certificate, checks its signature chain up to
// the root key and checks that its time is within maxSkew of now.
func verifyCertificate(data []byte, check certificateCheck) (*hashTree, error) {
	cert, tree, err := parseCertificate(data)
	if err != nil {
		return nil, err
	}

	key := check.rootKey
	if cert.Delegation != nil {
		key, err = delegatedKey(cert.Delegation, check)
		if err != nil {
			return nil, err
		}
	}
	if err := verifyTreeSignature(tree, cert.Signature, key); err != nil {
		return nil, err
	}
	if err := checkCertificateTime(tree, check.now, check.maxSkew); err != nil {
		return nil, err
	}
	return tree, nil
}

// delegatedKey verifies a subnet delegation against the root key and returns
// the subnet key, provided the subnet is responsible for the canister.
func delegatedKey(link *delegation, check certificateCheck) ([]byte, error) {
	inner, tree, err := parseCertificate(link.Certificate)
	if err != nil {
		return nil, fmt.Errorf("%w: delegation: %v", ErrInvalidCertificate, err)
	}
	if inner.Delegation != nil {
		return nil, fmt.Errorf("%w: delegation certificate must not be delegated again", ErrInvalidCertificate)
	}
	if err := verifyTreeSignature(tree, inner.Signature, check.rootKey); err != nil {
		return nil, err
	}

	subnet := []byte("subnet")
	rangesLeaf, found, err := tree.Lookup(subnet, link.SubnetID, []byte("canister_ranges"))
	if err != nil {
		return nil, err
	}
	if found != lookupFound {
		return nil, fmt.Errorf("%w: delegation has no canister ranges", ErrInvalidCertificate)
	}
	var ranges [][][]byte
	if err := dm.Unmarshal(rangesLeaf, &ranges); err != nil {
		return nil, fmt.Errorf("%w: malformed canister ranges: %v", ErrInvalidCertificate, err)
	}
	if !inCanisterRanges(ranges, check.canister) {
		return nil, fmt.Errorf("%w: subnet %x is not authorized for canister %x", ErrInvalidCertificate, link.SubnetID, check.canister)
	}

	key, found, err := tree.Lookup(subnet, link.SubnetID, []byte("public_key"))
	if err != nil {
		return nil, err
	}
	if found != lookupFound {
		return nil, fmt.Errorf("%w: delegation has no subnet public key", ErrInvalidCertificate)
	}
	return key, nil
}

func inCanisterRanges(ranges [][][]byte, canister []byte) bool {
	for _, bounds := range ranges {
		if len(bounds) != 2 {
			return false
		}
		if bytes.Compare(bounds[0], canister) <= 0 && bytes.Compare(canister, bounds[1]) <= 0 {
			return true
		}
	}
	return false
}

func verifyTreeSignature(tree *hashTree, signature []byte, derKey []byte) error {
	root, err := reconstruct(tree.root)
	if err != nil {
		return err
	}
	key, err := blsKeyFromDER(derKey)
	if err != nil {
		return err
	}
	message := append(append([]byte{}, stateRootSeparator...), root...)
	return verifyBLS(key, message, signature)
}

func blsKeyFromDER(der []byte) (*bls12381.G2Affine, error) {
	if len(der) != len(blsKeyDERPrefix)+bls12381.SizeOfG2AffineCompressed || !bytes.HasPrefix(der, blsKeyDERPrefix) {
		return nil, fmt.Errorf("%w: not a DER encoded BLS public key", ErrInvalidCertificate)
	}
	var key bls12381.G2Affine
	if _, err := key.SetBytes(der[len(blsKeyDERPrefix):]); err != nil {
		return nil, fmt.Errorf("%w: malformed BLS public key: %v", ErrInvalidCertificate, err)
	}
	return &key, nil
}

func verifyBLS(key *bls12381.G2Affine, message []byte, signature []byte) error {
	if len(signature) != bls12381.SizeOfG1AffineCompressed {
		return fmt.Errorf("%w: signature must be %d bytes, got %d", ErrInvalidCertificate, bls12381.SizeOfG1AffineCompressed, len(signature))
	}
	var sig bls12381.G1Affine
	if _, err := sig.SetBytes(signature); err != nil {
		return fmt.Errorf("%w: malformed signature: %v", ErrInvalidCertificate, err)
	}
	point, err := bls12381.HashToG1(message, blsSignatureDST)
	if err != nil {
		return fmt.Errorf("failed to hash certificate root: %w", err)
	}
	var negated bls12381.G1Affine
	negated.Neg(&point)

	_, _, _, generator := bls12381.Generators()
	ok, err := bls12381.PairingCheck([]bls12381.G1Affine{sig, negated}, []bls12381.G2Affine{generator, *key})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
	}
	if !ok {
		return fmt.Errorf("%w: signature does not match certified root", ErrInvalidCertificate)
	}
	return nil
}

func checkCertificateTime(tree *hashTree, now time.Time, maxSkew time.Duration) error {
	leaf, found, err := tree.Lookup([]byte("time"))
	if err != nil {
		return err
	}
	if found != lookupFound {
		return fmt.Errorf("%w: certificate has no time", ErrInvalidCertificate)
	}
	nanos, ok := decodeUleb(leaf)
	if !ok {
		return fmt.Errorf("%w: malformed certificate time", ErrInvalidCertificate)
	}
	certified := time.Unix(0, int64(nanos))
	if now.Sub(certified) > maxSkew {
		return fmt.Errorf("%w: certificate time %s is older than %s", ErrInvalidCertificate, certified.UTC().Format(time.RFC3339), maxSkew)
	}
	if certified.Sub(now) > maxSkew {
		return fmt.Errorf("%w: certificate time %s is in the future", ErrInvalidCertificate, certified.UTC().Format(time.RFC3339))
	}
	return nil
}

// reconstruct computes the root hash of a hash tree.
func reconstruct(node any) ([]byte, error) {
	kind, fields, err := splitNode(node)
	if err != nil {
		return nil, err
	}
	switch kind {
	case nodeEmpty:
		return domainHash("ic-hashtree-empty"), nil
	case nodeFork:
		left, err := reconstruct(fields[0])
		if err != nil {
			return nil, err
		}
		right, err := reconstruct(fields[1])
		if err != nil {
			return nil, err
		}
		return domainHash("ic-hashtree-fork", left, right), nil
	case nodeLabeled:
		label, ok := fields[0].([]byte)
		if !ok {
			return nil, errMalformedTree
		}
		subtree, err := reconstruct(fields[1])
		if err != nil {
			return nil, err
		}
		return domainHash("ic-hashtree-labeled", label, subtree), nil
	case nodeLeaf:
		value, ok := fields[0].([]byte)
		if !ok {
			return nil, errMalformedTree
		}
		return domainHash("ic-hashtree-leaf", value), nil
	default:
		digest, ok := fields[0].([]byte)
		if !ok || len(digest) != sha256.Size {
			return nil, errMalformedTree
		}
		return digest, nil
	}
}

func domainHash(separator string, parts ...[]byte) []byte {
	hasher := sha256.New()
	hasher.Write([]byte{byte(len(separator))})
	hasher.Write([]byte(separator))
	for _, part := range parts {
		hasher.Write(part)
	}
	return hasher.Sum(nil)
}

// Lookup walks the labels in path and returns the leaf at its end.
func (t *hashTree) Lookup(path ...[]byte) ([]byte, lookupStatus, error) {
	return lookupNode(t.root, path)
}

func lookupNode(node any, path [][]byte) ([]byte, lookupStatus, error) {
	kind, fields, err := splitNode(node)
	if err != nil {
		return nil, lookupAbsent, err
	}

	if len(path) == 0 {
		switch kind {
		case nodeLeaf:
			value, ok := fields[0].([]byte)
			if !ok {
				return nil, lookupAbsent, errMalformedTree
			}
			return value, lookupFound, nil
		case nodePruned:
			return nil, lookupUnknown, nil
		default:
			return nil, lookupAbsent, nil
		}
	}

	children, err := flattenForks(node)
	if err != nil {
		return nil, lookupAbsent, err
	}
	sawPruned := false
	for _, child := range children {
		childKind, childFields, err := splitNode(child)
		if err != nil {
			return nil, lookupAbsent, err
		}
		switch childKind {
		case nodePruned:
			sawPruned = true
		case nodeLabeled:
			label, ok := childFields[0].([]byte)
			if !ok {
				return nil, lookupAbsent, errMalformedTree
			}
			if bytes.Equal(label, path[0]) {
				return lookupNode(childFields[1], path[1:])
			}
		}
	}
	if sawPruned {
		return nil, lookupUnknown, nil
	}
	return nil, lookupAbsent, nil
}

func flattenForks(node any) ([]any, error) {
	kind, fields, err := splitNode(node)
	if err != nil {
		return nil, err
	}
	switch kind {
	case nodeEmpty:
		return nil, nil
	case nodeFork:
		left, err := flattenForks(fields[0])
		if err != nil {
			return nil, err
		}
		right, err := flattenForks(fields[1])
		if err != nil {
			return nil, err
		}
		return append(left, right...), nil
	default:
		return []any{node}, nil
	}
}

func splitNode(node any) (uint64, []any, error) {
	items, ok := node.([]any)
	if !ok || len(items) == 0 {
		return 0, nil, errMalformedTree
	}
	kind, ok := items[0].(uint64)
	if !ok {
		return 0, nil, errMalformedTree
	}
	want := map[uint64]int{nodeEmpty: 0, nodeFork: 2, nodeLabeled: 2, nodeLeaf: 1, nodePruned: 1}
	arity, known := want[kind]
	if !known || len(items)-1 != arity {
		return 0, nil, fmt.Errorf("%w: node type %d", errMalformedTree, kind)
	}
	return kind, items[1:], nil
}
