package identity

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
)

var oidSecp256k1 = asn1.ObjectIdentifier{1, 3, 132, 0, 10}

type ecPrivateKey struct {
	Version       int
	PrivateKey    []byte
	NamedCurveOID asn1.ObjectIdentifier `asn1:"optional,explicit,tag:0"`
	PublicKey     asn1.BitString        `asn1:"optional,explicit,tag:1"`
}

// FromPEM parses the first private key block in data.
func FromPEM(data []byte) (Identity, error) {
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, fmt.Errorf("no private key found in PEM data")
		}

		switch block.Type {
		case "EC PARAMETERS":
			continue
		case "EC PRIVATE KEY":
			return parseSEC1(block.Bytes)
		case "PRIVATE KEY":
			return parsePKCS8(block.Bytes)
		default:
			return nil, fmt.Errorf("unsupported PEM block %q", block.Type)
		}
	}
}

// FromPEMFile reads and parses a PEM encoded private key file.
func FromPEMFile(path string) (Identity, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return nil, fmt.Errorf("identity PEM path is required")
	}
	data, err := os.ReadFile(trimmedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read identity file %s: %w", trimmedPath, err)
	}
	identity, err := FromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse identity file %s: %w", trimmedPath, err)
	}
	return identity, nil
}

func parseSEC1(der []byte) (Identity, error) {
	var key ecPrivateKey
	if _, err := asn1.Unmarshal(der, &key); err != nil {
		return nil, fmt.Errorf("invalid EC private key: %w", err)
	}
	if key.Version != 1 {
		return nil, fmt.Errorf("unsupported EC private key version %d", key.Version)
	}
	if len(key.NamedCurveOID) > 0 && !key.NamedCurveOID.Equal(oidSecp256k1) {
		return nil, fmt.Errorf("unsupported EC curve %s", key.NamedCurveOID)
	}
	if len(key.PrivateKey) == 0 || len(key.PrivateKey) > 32 {
		return nil, fmt.Errorf("invalid secp256k1 private key length %d", len(key.PrivateKey))
	}

	privateKey, _ := btcec.PrivKeyFromBytes(key.PrivateKey)
	return NewSecp256k1Identity(privateKey), nil
}

func parsePKCS8(der []byte) (Identity, error) {
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("invalid PKCS#8 private key: %w", err)
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("unsupported PKCS#8 key type %T", parsed)
	}
	return NewEd25519Identity(edKey), nil
}

// EncodePEM serializes the key in the dfx "EC PRIVATE KEY" layout.
func (i *Secp256k1Identity) EncodePEM() ([]byte, error) {
	der, err := asn1.Marshal(ecPrivateKey{
		Version:       1,
		PrivateKey:    i.key.Serialize(),
		NamedCurveOID: oidSecp256k1,
		PublicKey: asn1.BitString{
			Bytes:     i.key.PubKey().SerializeUncompressed(),
			BitLength: 65 * 8,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode EC private key: %w", err)
	}
	parameters, err := asn1.Marshal(oidSecp256k1)
	if err != nil {
		return nil, fmt.Errorf("failed to encode EC parameters: %w", err)
	}

	encoded := pem.EncodeToMemory(&pem.Block{Type: "EC PARAMETERS", Bytes: parameters})
	return append(encoded, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})...), nil
}
