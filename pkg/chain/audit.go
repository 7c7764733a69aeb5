package chain

import (
	"errors"
	"strconv"

	"github.com/IsaacBoateng/Private-blockchain/pkg/block"
)

// Audit checks position, linkage and self-integrity of every block and returns every
// violation found, in chain order. An empty result means the chain is valid.
func (c *Chain) Audit() []*Violation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.audit()
}

// AuditError is Audit folded into a single error, nil when the chain is valid.
func (c *Chain) AuditError() error {
	if vs := c.Audit(); len(vs) > 0 {
		return &ChainIntegrityError{Violations: vs}
	}
	return nil
}

// audit requires c.mu to be held.
func (c *Chain) audit() []*Violation {
	return AuditBlocks(c.blocks, c.alg)
}

// AuditBlocks runs the chain audit over blocks sealed with alg, without
// loading them into a Chain.
func AuditBlocks(blocks []*block.Block, alg block.Algorithm) []*Violation {
	var violations []*Violation
	for i, b := range blocks {
		if b.Height != uint64(i) {
			violations = append(violations, &Violation{
				Kind:     KindPosition,
				Height:   uint64(i),
				Expected: strconv.Itoa(i),
				Actual:   strconv.FormatUint(b.Height, 10),
			})
		}
		if i == 0 {
			if b.PreviousHash != nil {
				violations = append(violations, &Violation{
					Kind:   KindLinkage,
					Height: 0,
					Actual: *b.PreviousHash,
				})
			}
		} else if prev := blocks[i-1]; b.PrevHash() != prev.Hash {
			violations = append(violations, &Violation{
				Kind:     KindLinkage,
				Height:   uint64(i),
				Expected: prev.Hash,
				Actual:   b.PrevHash(),
			})
		}

		if v := checkIntegrity(b, uint64(i), alg); v != nil {
			violations = append(violations, v)
		}
	}
	return violations
}

func checkIntegrity(b *block.Block, pos uint64, alg block.Algorithm) *Violation {
	err := b.ValidateWith(alg)
	if err == nil {
		return nil
	}
	v := &Violation{Kind: KindIntegrity, Height: pos, Actual: b.Hash}
	var invalid *block.InvalidBlockError
	if errors.As(err, &invalid) {
		v.Expected = invalid.Expected
	}
	return v
}
