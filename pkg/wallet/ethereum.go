package wallet

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethCrypto "github.com/ethereum/go-ethereum/crypto"
)

// EthereumVerifier checks EIP-191 personal_sign signatures. Addresses are
// compared case-insensitively.
type EthereumVerifier struct{}

func NewEthereumVerifier() *EthereumVerifier {
	return &EthereumVerifier{}
}

func (v *EthereumVerifier) Verify(address, message, signature string) error {
	if !common.IsHexAddress(address) {
		return fmt.Errorf("%w: %q is not a hex address", ErrMalformedAddress, address)
	}
	if !strings.HasPrefix(signature, "0x") && !strings.HasPrefix(signature, "0X") {
		signature = "0x" + signature
	}
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	if len(sig) != gethCrypto.SignatureLength {
		return fmt.Errorf("%w: length %d, want %d", ErrMalformedSignature, len(sig), gethCrypto.SignatureLength)
	}
	// Wallets emit v as 27/28; recovery wants 0/1.
	if sig[gethCrypto.RecoveryIDOffset] >= 27 {
		sig[gethCrypto.RecoveryIDOffset] -= 27
	}
	if sig[gethCrypto.RecoveryIDOffset] > 1 {
		return fmt.Errorf("%w: recovery id %d", ErrMalformedSignature, sig[gethCrypto.RecoveryIDOffset])
	}

	pub, err := gethCrypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
	}
	if recovered := gethCrypto.PubkeyToAddress(*pub); recovered != common.HexToAddress(address) {
		return fmt.Errorf("%w: signed by %s", ErrSignatureMismatch, recovered.Hex())
	}
	return nil
}

// EthereumSigner signs with personal_sign semantics.
type EthereumSigner struct {
	key *ecdsa.PrivateKey
}

func NewEthereumSigner() (*EthereumSigner, error) {
	key, err := gethCrypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("key generation failed: %w", err)
	}
	return &EthereumSigner{key: key}, nil
}

func NewEthereumSignerFromHex(keyHex string) (*EthereumSigner, error) {
	key, err := gethCrypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &EthereumSigner{key: key}, nil
}

func (s *EthereumSigner) Address() string {
	return gethCrypto.PubkeyToAddress(s.key.PublicKey).Hex()
}

func (s *EthereumSigner) SignMessage(message string) (string, error) {
	sig, err := gethCrypto.Sign(accounts.TextHash([]byte(message)), s.key)
	if err != nil {
		return "", err
	}
	sig[gethCrypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

func (s *EthereumSigner) PrivateKey() string {
	return hex.EncodeToString(gethCrypto.FromECDSA(s.key))
}
