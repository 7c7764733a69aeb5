package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

var (
	// ErrChainBroken matches every Violation.
	ErrChainBroken = errors.New("hash chain is broken")
	// ErrAppendFailed matches every AppendError.
	ErrAppendFailed = errors.New("append failed")
)

// ViolationKind distinguishes the checks the audit runs on each block.
type ViolationKind string

const (
	KindLinkage   ViolationKind = "linkage"
	KindIntegrity ViolationKind = "integrity"
	// KindPosition flags a block whose height differs from its index.
	KindPosition ViolationKind = "position"
)

// Violation is one defect found by Audit.
type Violation struct {
	Kind   ViolationKind `json:"kind"`
	Height uint64        `json:"height"`
	// Expected is the predecessor's hash for linkage, the recomputed hash for
	// integrity, the index for position.
	Expected string `json:"expected"`
	// Actual is the stored previousBlockHash for linkage, the stored hash for
	// integrity, the stored height for position.
	Actual string `json:"actual"`
}

func (v *Violation) Error() string {
	switch v.Kind {
	case KindLinkage:
		return fmt.Sprintf("Block %d previousBlockHash is %s, not %s", v.Height, orNull(v.Actual), orNull(v.Expected))
	case KindPosition:
		return fmt.Sprintf("Block %d records height %s", v.Height, v.Actual)
	default:
		return fmt.Sprintf("Block %d hash (%s) is invalid, recomputed %s", v.Height, v.Actual, v.Expected)
	}
}

func (v *Violation) Is(target error) bool {
	return target == ErrChainBroken
}

func orNull(s string) string {
	if s == "" {
		return "null"
	}
	return s
}

// Descriptors renders violations as the human-readable list reported to callers.
func Descriptors(vs []*Violation) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Error())
	}
	return out
}

func combine(vs []*Violation) error {
	var merr *multierror.Error
	for _, v := range vs {
		merr = multierror.Append(merr, v)
	}
	if merr != nil {
		merr.ErrorFormat = func(es []error) string {
			parts := make([]string, len(es))
			for i, e := range es {
				parts[i] = e.Error()
			}
			return strings.Join(parts, "; ")
		}
	}
	return merr.ErrorOrNil()
}

// ChainIntegrityError aggregates every violation found by a full audit.
type ChainIntegrityError struct {
	Violations []*Violation
}

func (e *ChainIntegrityError) Error() string {
	return fmt.Sprintf("chain integrity check failed with %d violation(s): %s",
		len(e.Violations), combine(e.Violations))
}

func (e *ChainIntegrityError) Unwrap() error {
	return combine(e.Violations)
}

// AppendError reports an append that was rejected. The block was not
// retained and was not persisted.
type AppendError struct {
	Height     uint64
	Violations []*Violation
	Err        error
}

func (e *AppendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("append block %d: %v", e.Height, e.Err)
	}
	return fmt.Sprintf("append block %d: chain audit failed: %s", e.Height, combine(e.Violations))
}

func (e *AppendError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return combine(e.Violations)
}

func (e *AppendError) Is(target error) bool {
	return target == ErrAppendFailed
}
