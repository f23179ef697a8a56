package hederacall

import (
	"fmt"
	"math/big"
)

const abiWord = 32

// decodeBytesResult reads a single ABI encoded dynamic bytes return value.
func decodeBytesResult(data []byte) ([]byte, error) {
	if len(data) < 2*abiWord {
		return nil, fmt.Errorf("contract result is %d bytes, expected an ABI bytes value", len(data))
	}
	offset, err := abiUint(data[:abiWord])
	if err != nil {
		return nil, fmt.Errorf("invalid bytes offset: %w", err)
	}
	if offset > uint64(len(data))-abiWord {
		return nil, fmt.Errorf("bytes offset %d out of range", offset)
	}
	length, err := abiUint(data[offset : offset+abiWord])
	if err != nil {
		return nil, fmt.Errorf("invalid bytes length: %w", err)
	}
	start := offset + abiWord
	if length > uint64(len(data))-start {
		return nil, fmt.Errorf("bytes length %d exceeds result size", length)
	}
	return append([]byte{}, data[start:start+length]...), nil
}

func abiUint(word []byte) (uint64, error) {
	value := new(big.Int).SetBytes(word)
	if !value.IsUint64() {
		return 0, fmt.Errorf("value does not fit in 64 bits")
	}
	return value.Uint64(), nil
}
