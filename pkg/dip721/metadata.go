package dip721

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// Well-known metadata keys understood by the minting call.
const (
	KeyLocationType = "locationType"
	KeyLocation     = "location"
	KeyContentHash  = "contentHash"
	KeyContentType  = "contentType"
)

const DefaultContentType = "application/octet-stream"

var knownKeys = map[string]bool{
	KeyLocationType: true,
	KeyLocation:     true,
	KeyContentHash:  true,
	KeyContentType:  true,
}

// ValueKind is the closed set of metadata value types.
type ValueKind int

const (
	ValueText ValueKind = iota + 1
	ValueBlob
	ValueNat
	ValueNat8
	ValueNat16
	ValueNat32
	ValueNat64
)

var maxNat128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// MetadataValue is one typed metadata value.
type MetadataValue struct {
	kind ValueKind
	text string
	blob []byte
	nat  *big.Int
	uint uint64
}

func TextValue(value string) MetadataValue {
	return MetadataValue{kind: ValueText, text: value}
}

func BlobValue(value []byte) MetadataValue {
	return MetadataValue{kind: ValueBlob, blob: append([]byte{}, value...)}
}

// NatValue holds an unsigned integer of up to 128 bits.
func NatValue(value *big.Int) (MetadataValue, error) {
	if value == nil || value.Sign() < 0 || value.Cmp(maxNat128) > 0 {
		return MetadataValue{}, fmt.Errorf("nat metadata value must fit in 128 unsigned bits")
	}
	return MetadataValue{kind: ValueNat, nat: new(big.Int).Set(value)}, nil
}

func Nat8Value(value uint8) MetadataValue {
	return MetadataValue{kind: ValueNat8, uint: uint64(value)}
}

func Nat16Value(value uint16) MetadataValue {
	return MetadataValue{kind: ValueNat16, uint: uint64(value)}
}

func Nat32Value(value uint32) MetadataValue {
	return MetadataValue{kind: ValueNat32, uint: uint64(value)}
}

func Nat64Value(value uint64) MetadataValue {
	return MetadataValue{kind: ValueNat64, uint: value}
}

func (v MetadataValue) Kind() ValueKind { return v.kind }

func (v MetadataValue) Text() string { return v.text }

func (v MetadataValue) Blob() []byte { return append([]byte{}, v.blob...) }

// Nat returns the value of any integer kind.
func (v MetadataValue) Nat() *big.Int {
	if v.kind == ValueNat {
		return new(big.Int).Set(v.nat)
	}
	return new(big.Int).SetUint64(v.uint)
}

// Uint returns the value of the fixed-width integer kinds.
func (v MetadataValue) Uint() uint64 { return v.uint }

func (v MetadataValue) Equal(other MetadataValue) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case ValueText:
		return v.text == other.text
	case ValueBlob:
		return bytes.Equal(v.blob, other.blob)
	case ValueNat:
		return v.nat.Cmp(other.nat) == 0
	default:
		return v.uint == other.uint
	}
}

func (v MetadataValue) String() string {
	switch v.kind {
	case ValueText:
		return fmt.Sprintf("%q", v.text)
	case ValueBlob:
		return "0x" + hex.EncodeToString(v.blob)
	case ValueNat:
		return v.nat.String()
	default:
		return fmt.Sprintf("%d", v.uint)
	}
}

type MetadataEntry struct {
	Key   string
	Value MetadataValue
}

// MetadataRecord is an ordered key/value record limited to the well-known
// keys. Entries keep insertion order.
type MetadataRecord struct {
	entries []MetadataEntry
}

func (r MetadataRecord) Get(key string) (MetadataValue, bool) {
	for _, entry := range r.entries {
		if entry.Key == key {
			return entry.Value, true
		}
	}
	return MetadataValue{}, false
}

func (r MetadataRecord) Entries() []MetadataEntry {
	return append([]MetadataEntry(nil), r.entries...)
}

func (r MetadataRecord) Keys() []string {
	keys := make([]string, 0, len(r.entries))
	for _, entry := range r.entries {
		keys = append(keys, entry.Key)
	}
	return keys
}

func (r MetadataRecord) Len() int {
	return len(r.entries)
}

func (r *MetadataRecord) set(key string, value MetadataValue) {
	if !knownKeys[key] {
		panic(fmt.Sprintf("dip721: unknown metadata key %q", key))
	}
	for index, entry := range r.entries {
		if entry.Key == key {
			r.entries[index].Value = value
			return
		}
	}
	r.entries = append(r.entries, MetadataEntry{Key: key, Value: value})
}

// File is content read from disk or memory. Name is only used for content
// type inference.
type File struct {
	Name string
	Data []byte
}

type MetadataOptions struct {
	Location Location
	// ContentHash is an explicit hex encoded hash.
	ContentHash string
	// AutoHash computes a sha256 digest of File.Data.
	AutoHash    bool
	File        *File
	ContentType string
	// TypeLookup infers a content type from a file name. Empty results fall
	// through to DefaultContentType. Defaults to GuessContentType.
	TypeLookup func(name string) string
}

// AssembleMetadata builds the record from a resolved location, the hash
// options and the content type options.
func AssembleMetadata(options MetadataOptions) (MetadataRecord, error) {
	if err := checkHashOptions(options.Location.Type, options.ContentHash, options.AutoHash, options.File != nil); err != nil {
		return MetadataRecord{}, err
	}

	var record MetadataRecord
	locationType := options.Location.Type
	if locationType == 0 {
		locationType = LocationNone
	}
	record.set(KeyLocationType, Nat8Value(uint8(locationType)))
	if locationType != LocationNone {
		if options.Location.Value == nil {
			return MetadataRecord{}, validationError(
				ErrorCodeInvalidRequest, nil, "location type %d requires a location value", locationType,
			)
		}
		record.set(KeyLocation, *options.Location.Value)
	}

	switch {
	case strings.TrimSpace(options.ContentHash) != "":
		digest, err := DecodeHash(options.ContentHash)
		if err != nil {
			return MetadataRecord{}, err
		}
		record.set(KeyContentHash, BlobValue(digest))
	case options.AutoHash:
		record.set(KeyContentHash, BlobValue(HashContent(options.File.Data)))
	}

	record.set(KeyContentType, TextValue(resolveContentType(options)))
	return record, nil
}

func checkHashOptions(locationType LocationType, contentHash string, autoHash bool, hasFile bool) error {
	explicit := strings.TrimSpace(contentHash) != ""
	if explicit && autoHash {
		return validationError(ErrorCodeConflictingHash, ErrConflictingHash, "use either an explicit hash or automatic hashing")
	}
	if autoHash && !hasFile {
		return validationError(ErrorCodeMissingContent, ErrMissingContent, "automatic hashing needs a file")
	}
	if explicit {
		if _, err := DecodeHash(contentHash); err != nil {
			return err
		}
	}
	if locationType == LocationExternalURI && !explicit && !autoHash {
		return validationError(ErrorCodeHashRequired, ErrHashRequired, "external content cannot be verified without a hash")
	}
	return nil
}

// DecodeHash decodes a hex encoded hash. An optional 0x prefix is accepted.
func DecodeHash(value string) ([]byte, error) {
	trimmed := strings.TrimSpace(value)
	trimmed = strings.TrimPrefix(strings.TrimPrefix(trimmed, "0x"), "0X")
	if trimmed == "" {
		return nil, validationError(ErrorCodeMalformedHash, ErrMalformedHash, "content hash is empty")
	}
	digest, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, validationError(ErrorCodeMalformedHash, ErrMalformedHash, "content hash %q is not valid hex: %v", value, err)
	}
	return digest, nil
}

// HashContent returns the sha256 digest of data.
func HashContent(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

func resolveContentType(options MetadataOptions) string {
	if override := strings.TrimSpace(options.ContentType); override != "" {
		return override
	}
	if options.File != nil && strings.TrimSpace(options.File.Name) != "" {
		lookup := options.TypeLookup
		if lookup == nil {
			lookup = GuessContentType
		}
		if inferred := strings.TrimSpace(lookup(options.File.Name)); inferred != "" {
			return inferred
		}
	}
	return DefaultContentType
}
