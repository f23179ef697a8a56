package identity

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/asn1"
	"fmt"
	"math/big"

	"github.com/aviate-labs/agent-go/principal"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// Identity signs requests on behalf of a sender principal.
type Identity interface {
	Sender() principal.Principal
	// PublicKey returns the DER encoded public key, or nil for the anonymous identity.
	PublicKey() []byte
	Sign(message []byte) ([]byte, error)
}

var (
	secp256k1DERPrefix = []byte{
		0x30, 0x56, 0x30, 0x10, 0x06, 0x07, 0x2a, 0x86, 0x48, 0xce, 0x3d, 0x02, 0x01,
		0x06, 0x05, 0x2b, 0x81, 0x04, 0x00, 0x0a, 0x03, 0x42, 0x00,
	}
	ed25519DERPrefix = []byte{
		0x30, 0x2a, 0x30, 0x05, 0x06, 0x03, 0x2b, 0x65, 0x70, 0x03, 0x21, 0x00,
	}
)

type anonymousIdentity struct{}

// Anonymous returns the identity that sends unsigned requests.
func Anonymous() Identity {
	return anonymousIdentity{}
}

func (anonymousIdentity) Sender() principal.Principal { return principal.AnonymousID }

func (anonymousIdentity) PublicKey() []byte { return nil }

func (anonymousIdentity) Sign([]byte) ([]byte, error) { return nil, nil }

// Secp256k1Identity signs with ECDSA over secp256k1 and SHA-256.
type Secp256k1Identity struct {
	key       *btcec.PrivateKey
	publicKey []byte
	sender    principal.Principal
}

// NewSecp256k1Identity wraps an existing private key.
func NewSecp256k1Identity(key *btcec.PrivateKey) *Secp256k1Identity {
	publicKey := append(append([]byte{}, secp256k1DERPrefix...), key.PubKey().SerializeUncompressed()...)
	return &Secp256k1Identity{
		key:       key,
		publicKey: publicKey,
		sender:    principal.NewSelfAuthenticating(publicKey),
	}
}

// GenerateSecp256k1 creates a fresh random identity.
func GenerateSecp256k1() (*Secp256k1Identity, error) {
	key, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate secp256k1 key: %w", err)
	}
	return NewSecp256k1Identity(key), nil
}

func (i *Secp256k1Identity) Sender() principal.Principal { return i.sender }

func (i *Secp256k1Identity) PublicKey() []byte { return append([]byte{}, i.publicKey...) }

// Sign returns the 64-byte r||s signature of sha256(message).
func (i *Secp256k1Identity) Sign(message []byte) ([]byte, error) {
	digest := sha256.Sum256(message)
	signature := ecdsa.Sign(i.key, digest[:])

	var parsed struct {
		R, S *big.Int
	}
	if _, err := asn1.Unmarshal(signature.Serialize(), &parsed); err != nil {
		return nil, fmt.Errorf("failed to encode secp256k1 signature: %w", err)
	}

	compact := make([]byte, 64)
	parsed.R.FillBytes(compact[:32])
	parsed.S.FillBytes(compact[32:])
	return compact, nil
}

// Ed25519Identity signs with Ed25519.
type Ed25519Identity struct {
	key       ed25519.PrivateKey
	publicKey []byte
	sender    principal.Principal
}

// NewEd25519Identity wraps an existing private key.
func NewEd25519Identity(key ed25519.PrivateKey) *Ed25519Identity {
	rawPublic := key.Public().(ed25519.PublicKey)
	publicKey := append(append([]byte{}, ed25519DERPrefix...), rawPublic...)
	return &Ed25519Identity{
		key:       key,
		publicKey: publicKey,
		sender:    principal.NewSelfAuthenticating(publicKey),
	}
}

func (i *Ed25519Identity) Sender() principal.Principal { return i.sender }

func (i *Ed25519Identity) PublicKey() []byte { return append([]byte{}, i.publicKey...) }

func (i *Ed25519Identity) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(i.key, message), nil
}
