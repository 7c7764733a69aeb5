// Package block implements the sealed record stored in the chain: its
// transport encoding, its sealing hash and its self-integrity check.
package block

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/IsaacBoateng/Private-blockchain/pkg/canonicalize"
)

// Sentinel is returned by Data in place of a payload for records that carry
// no user data. encoding/json never produces this type, so callers can tell
// it apart from any decoded payload.
type Sentinel string

// GenesisSentinel is what Data returns for the block at height 0.
const GenesisSentinel Sentinel = "Genesis Block"

// GenesisPayload is the fixed body sealed into the genesis block.
var GenesisPayload = map[string]string{"data": "Genesis Block"}

var (
	ErrInvalidBlock  = errors.New("block is not valid")
	ErrMalformedBody = errors.New("block body is malformed")
	// ErrUnencodable covers payloads with no lossless canonical encoding.
	ErrUnencodable = errors.New("payload cannot be encoded")
)

// Block is a single sealed record. JSON field names are the ones exposed to
// wallet clients and must not change.
type Block struct {
	Hash         string  `json:"hash"`
	Height       uint64  `json:"height"`
	Body         string  `json:"body"`
	Time         int64   `json:"time"`
	PreviousHash *string `json:"previousBlockHash"`
}

// Hashable is the projection of a Block covered by the sealing hash: every
// field except Hash.
type Hashable struct {
	Body         string  `json:"body"`
	Height       uint64  `json:"height"`
	Time         int64   `json:"time"`
	PreviousHash *string `json:"previousBlockHash"`
}

// New creates an unsealed block carrying the encoded payload. Height, Time
// and PreviousHash are assigned by the chain at append time.
func New(payload any) (*Block, error) {
	body, err := Encode(payload)
	if err != nil {
		return nil, err
	}
	return &Block{Body: body}, nil
}

// Encode serializes payload to canonical JSON and hex encodes the text.
// The encoding only keeps the payload from being read or edited casually;
// it is not encryption. Payloads that Decode could not return unchanged,
// such as integers beyond 2^53, fail with ErrUnencodable.
func Encode(payload any) (string, error) {
	text, err := canonicalize.JCS(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnencodable, err)
	}
	return hex.EncodeToString(text), nil
}

// Decode is the inverse of Encode. Numbers are returned as json.Number so
// no precision is lost on the way back.
func Decode(body string) (any, error) {
	text, err := hex.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	var v any
	if err := decodeJSON(text, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func decodeJSON(text []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(text))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("%w: trailing data after payload", ErrMalformedBody)
	}
	return nil
}

// IsGenesis reports whether b is the bootstrap record.
func (b *Block) IsGenesis() bool {
	return b.Height == 0
}

// Data returns the decoded payload, or GenesisSentinel for the genesis block.
func (b *Block) Data() (any, error) {
	if b.IsGenesis() {
		return GenesisSentinel, nil
	}
	return Decode(b.Body)
}

// DecodeInto unmarshals the payload into v. It does not special-case genesis.
func (b *Block) DecodeInto(v any) error {
	text, err := hex.DecodeString(b.Body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	return decodeJSON(text, v)
}

// Hashable returns a value copy of the fields covered by the sealing hash.
func (b *Block) Hashable() Hashable {
	h := Hashable{
		Body:   b.Body,
		Height: b.Height,
		Time:   b.Time,
	}
	if b.PreviousHash != nil {
		prev := *b.PreviousHash
		h.PreviousHash = &prev
	}
	return h
}

// ComputeHash returns the sealing hash of b's current field values using alg.
func (b *Block) ComputeHash(alg Algorithm) (string, error) {
	return ComputeHash(b.Hashable(), alg)
}

// Seal computes and stores the sealing hash.
func (b *Block) Seal(alg Algorithm) error {
	h, err := b.ComputeHash(alg)
	if err != nil {
		return err
	}
	b.Hash = h
	return nil
}

// Validate recomputes the sealing hash with SHA-256 and compares it to the
// stored one.
func (b *Block) Validate() error {
	return b.ValidateWith(SHA256)
}

// ValidateWith recomputes the sealing hash with alg and compares it to the
// stored one. It never modifies b.
func (b *Block) ValidateWith(alg Algorithm) error {
	computed, err := b.ComputeHash(alg)
	if err != nil {
		return fmt.Errorf("block %d: %w", b.Height, err)
	}
	if computed != b.Hash {
		return &InvalidBlockError{Height: b.Height, Expected: computed, Actual: b.Hash}
	}
	return nil
}

// Clone returns a deep copy so callers cannot reach into chain storage.
func (b *Block) Clone() *Block {
	if b == nil {
		return nil
	}
	c := *b
	if b.PreviousHash != nil {
		prev := *b.PreviousHash
		c.PreviousHash = &prev
	}
	return &c
}

// PrevHash returns the previous hash or "" for genesis.
func (b *Block) PrevHash() string {
	if b.PreviousHash == nil {
		return ""
	}
	return *b.PreviousHash
}

// InvalidBlockError reports a block whose stored hash no longer matches its
// contents.
type InvalidBlockError struct {
	Height   uint64
	Expected string // recomputed from current fields
	Actual   string // stored
}

func (e *InvalidBlockError) Error() string {
	return fmt.Sprintf("block %d hash (%s) is invalid: recomputed %s", e.Height, e.Actual, e.Expected)
}

func (e *InvalidBlockError) Is(target error) bool {
	return target == ErrInvalidBlock
}
