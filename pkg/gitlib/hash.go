package gitlib

import (
	"errors"
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// Constants for hash operations.
const (
	// HashSize is the size of a SHA-1 hash in bytes.
	HashSize = 20
	// HashHexSize is the size of a hex-encoded SHA-1 hash.
	HashHexSize = 40
	// HexBase is the base for hexadecimal digits a-f.
	hexBase = 10
	// HexShift is the bit shift for the high nibble.
	hexShift = 4
)

// ErrInvalidHash is returned when a string is not a full hex commit id.
var ErrInvalidHash = errors.New("invalid commit hash")

// Hash represents a git object hash (SHA-1).
type Hash [HashSize]byte

// ParseHash decodes a full 40-character hex commit id.
func ParseHash(hexStr string) (Hash, error) {
	if len(hexStr) != HashHexSize {
		return Hash{}, fmt.Errorf("%w: %q", ErrInvalidHash, hexStr)
	}

	for i := range len(hexStr) {
		if _, ok := hexCharToNibble(hexStr[i]); !ok {
			return Hash{}, fmt.Errorf("%w: %q", ErrInvalidHash, hexStr)
		}
	}

	return NewHash(hexStr), nil
}

// NewHash creates a Hash from a hex string without validation.
// Invalid characters decode as zero nibbles.
func NewHash(hexStr string) Hash {
	var hash Hash

	for i := 0; i < HashSize && i*2+1 < len(hexStr); i++ {
		hi, _ := hexCharToNibble(hexStr[i*2])
		lo, _ := hexCharToNibble(hexStr[i*2+1])
		hash[i] = hi<<hexShift | lo
	}

	return hash
}

func hexCharToNibble(char byte) (byte, bool) {
	switch {
	case char >= '0' && char <= '9':
		return char - '0', true
	case char >= 'a' && char <= 'f':
		return char - 'a' + hexBase, true
	case char >= 'A' && char <= 'F':
		return char - 'A' + hexBase, true
	default:
		return 0, false
	}
}

// HashFromOid converts a libgit2 Oid to Hash.
func HashFromOid(oid *git2go.Oid) Hash {
	var h Hash
	copy(h[:], oid[:])

	return h
}

// String returns the lowercase hex representation of the hash.
func (h Hash) String() string {
	const hexChars = "0123456789abcdef"

	buf := make([]byte, HashHexSize)

	for i, byteVal := range h {
		buf[i*2] = hexChars[byteVal>>hexShift]
		buf[i*2+1] = hexChars[byteVal&0x0f]
	}

	return string(buf)
}

// IsZero returns true if the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// ToOid converts Hash back to libgit2 Oid.
func (h Hash) ToOid() *git2go.Oid {
	oid := new(git2go.Oid)
	copy(oid[:], h[:])

	return oid
}
