package block

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/glycerine/blake3"

	"github.com/IsaacBoateng/Private-blockchain/pkg/canonicalize"
)

// Algorithm names the 256-bit digest used to seal blocks. A chain is sealed
// with exactly one algorithm for its whole lifetime.
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	BLAKE3 Algorithm = "blake3"
)

// ParseAlgorithm maps a configuration value to an Algorithm. Empty selects SHA256.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(s))) {
	case "", SHA256:
		return SHA256, nil
	case BLAKE3:
		return BLAKE3, nil
	default:
		return "", fmt.Errorf("unknown hash algorithm %q", s)
	}
}

// Sum returns the lowercase hex digest of data.
func (a Algorithm) Sum(data []byte) (string, error) {
	switch a {
	case SHA256, "":
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:]), nil
	case BLAKE3:
		h := blake3.New(32, nil)
		_, _ = h.Write(data)
		return hex.EncodeToString(h.Sum(nil)), nil
	default:
		return "", fmt.Errorf("unknown hash algorithm %q", string(a))
	}
}

// ComputeHash hashes the RFC 8785 canonical form of h.
func ComputeHash(h Hashable, alg Algorithm) (string, error) {
	data, err := canonicalize.JCS(h)
	if err != nil {
		return "", fmt.Errorf("canonical serialization failed: %w", err)
	}
	return alg.Sum(data)
}
