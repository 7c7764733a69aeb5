package wallet

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Ed25519Verifier treats the address as the hex-encoded public key and the
// signature as hex.
type Ed25519Verifier struct{}

func NewEd25519Verifier() *Ed25519Verifier {
	return &Ed25519Verifier{}
}

func (v *Ed25519Verifier) Verify(address, message, signature string) error {
	pubKey, err := hex.DecodeString(address)
	if err != nil {
		return fmt.Errorf("%w: invalid public key hex: %v", ErrMalformedAddress, err)
	}
	if len(pubKey) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: invalid public key size: %d", ErrMalformedAddress, len(pubKey))
	}
	sig, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: invalid signature hex: %v", ErrMalformedSignature, err)
	}
	if !ed25519.Verify(ed25519.PublicKey(pubKey), []byte(message), sig) {
		return ErrSignatureMismatch
	}
	return nil
}

type Ed25519Signer struct {
	privKey ed25519.PrivateKey
	pubKey  ed25519.PublicKey
}

func NewEd25519Signer() (*Ed25519Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("key generation failed: %w", err)
	}
	return &Ed25519Signer{privKey: priv, pubKey: pub}, nil
}

func NewEd25519SignerFromKey(priv ed25519.PrivateKey) *Ed25519Signer {
	return &Ed25519Signer{
		privKey: priv,
		pubKey:  priv.Public().(ed25519.PublicKey),
	}
}

// NewEd25519SignerFromHex accepts either a 32-byte seed or a 64-byte private key.
func NewEd25519SignerFromHex(keyHex string) (*Ed25519Signer, error) {
	raw, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	switch len(raw) {
	case ed25519.SeedSize:
		return NewEd25519SignerFromKey(ed25519.NewKeyFromSeed(raw)), nil
	case ed25519.PrivateKeySize:
		return NewEd25519SignerFromKey(ed25519.PrivateKey(raw)), nil
	default:
		return nil, fmt.Errorf("%w: invalid key size: %d", ErrInvalidKey, len(raw))
	}
}

func (s *Ed25519Signer) Address() string {
	return hex.EncodeToString(s.pubKey)
}

func (s *Ed25519Signer) SignMessage(message string) (string, error) {
	return hex.EncodeToString(ed25519.Sign(s.privKey, []byte(message))), nil
}

func (s *Ed25519Signer) PrivateKey() string {
	return hex.EncodeToString(s.privKey.Seed())
}
