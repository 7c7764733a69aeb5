// Package wallet verifies that a message was signed by the holder of an
// address. Each supported scheme pairs a Verifier, used by the service, with
// a Signer, used by the dev CLI and tests to produce valid proofs.
package wallet

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedSignature means the signature could not be decoded at all.
	ErrMalformedSignature = errors.New("malformed signature")
	// ErrMalformedAddress means the address is not valid for the scheme.
	ErrMalformedAddress = errors.New("malformed address")
	// ErrSignatureMismatch means the signature decoded but was not made by the address.
	ErrSignatureMismatch = errors.New("signature does not match address")
	// ErrUnknownScheme is returned by the scheme factories.
	ErrUnknownScheme = errors.New("unknown signature scheme")
	// ErrInvalidKey means a private key could not be parsed.
	ErrInvalidKey = errors.New("invalid private key")
)

// Scheme names accepted by NewVerifier, NewSigner and GenerateSigner.
const (
	SchemeBitcoin        = "bitcoin"
	SchemeBitcoinTestnet = "bitcoin-testnet"
	SchemeEthereum       = "ethereum"
	SchemeEd25519        = "ed25519"
)

// Schemes lists every supported scheme name.
var Schemes = []string{SchemeBitcoin, SchemeBitcoinTestnet, SchemeEthereum, SchemeEd25519}

// Verifier checks a signature over message against address. It returns nil
// only when the signature is valid for exactly that address.
type Verifier interface {
	Verify(address, message, signature string) error
}

// Signer produces signatures a matching Verifier accepts.
type Signer interface {
	Address() string
	SignMessage(message string) (string, error)
	// PrivateKey returns the hex private key, for the dev CLI.
	PrivateKey() string
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(address, message, signature string) error

func (f VerifierFunc) Verify(address, message, signature string) error {
	return f(address, message, signature)
}

// NewVerifier returns the verifier for scheme.
func NewVerifier(scheme string) (Verifier, error) {
	switch normalize(scheme) {
	case SchemeBitcoin:
		return NewBitcoinVerifier(Mainnet), nil
	case SchemeBitcoinTestnet:
		return NewBitcoinVerifier(Testnet), nil
	case SchemeEthereum:
		return NewEthereumVerifier(), nil
	case SchemeEd25519:
		return NewEd25519Verifier(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
}

// NewSigner loads a signer for scheme from a hex-encoded private key.
func NewSigner(scheme, keyHex string) (Signer, error) {
	switch normalize(scheme) {
	case SchemeBitcoin:
		return NewBitcoinSignerFromHex(keyHex, Mainnet)
	case SchemeBitcoinTestnet:
		return NewBitcoinSignerFromHex(keyHex, Testnet)
	case SchemeEthereum:
		return NewEthereumSignerFromHex(keyHex)
	case SchemeEd25519:
		return NewEd25519SignerFromHex(keyHex)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
}

// GenerateSigner creates a signer with a fresh random key.
func GenerateSigner(scheme string) (Signer, error) {
	switch normalize(scheme) {
	case SchemeBitcoin:
		return NewBitcoinSigner(Mainnet)
	case SchemeBitcoinTestnet:
		return NewBitcoinSigner(Testnet)
	case SchemeEthereum:
		return NewEthereumSigner()
	case SchemeEd25519:
		return NewEd25519Signer()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
}

func normalize(scheme string) string {
	return strings.ToLower(strings.TrimSpace(scheme))
}
