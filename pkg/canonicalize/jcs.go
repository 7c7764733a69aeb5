// Package canonicalize renders values as RFC 8785 canonical JSON, so block
// bodies and sealing hashes do not depend on struct field order or map
// iteration order.
package canonicalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"

	"github.com/gowebpki/jcs"
)

// ErrInexactNumber marks a number whose value would change under canonical
// number formatting, which goes through an IEEE-754 double.
var ErrInexactNumber = errors.New("number cannot be represented exactly")

// JCS marshals v with encoding/json, honouring struct tags, and rewrites the
// result in canonical form: sorted keys, no insignificant whitespace, ES6
// number formatting, minimal string escaping. Numbers whose value would
// change in canonical form fail with ErrInexactNumber.
func JCS(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	if err := checkNumbers(raw); err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	return Transform(raw)
}

// Transform canonicalizes an encoded JSON document.
func Transform(raw []byte) ([]byte, error) {
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	return out, nil
}

func checkNumbers(raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if n, ok := tok.(json.Number); ok {
			if err := exact(n.String()); err != nil {
				return err
			}
		}
	}
}

// exact reports whether the double nearest to lit has the same value as lit.
func exact(lit string) error {
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInexactNumber, lit)
	}
	want, ok := new(big.Rat).SetString(lit)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInexactNumber, lit)
	}
	got, _ := new(big.Rat).SetString(strconv.FormatFloat(f, 'g', -1, 64))
	if got == nil || want.Cmp(got) != 0 {
		return fmt.Errorf("%w: %s", ErrInexactNumber, lit)
	}
	return nil
}
