package wallet

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/glycerine/base58"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // hash160 is defined over RIPEMD-160
)

// Network is the Base58Check version byte of a P2PKH address.
type Network byte

const (
	Mainnet Network = 0x00
	Testnet Network = 0x6f
)

const (
	bitcoinMagic        = "Bitcoin Signed Message:\n"
	compactSignatureLen = 65
)

// BitcoinMessageHash is the double SHA-256 digest wallets sign for
// "Bitcoin Signed Message" proofs.
func BitcoinMessageHash(message string) []byte {
	var buf bytes.Buffer
	writeVarString(&buf, bitcoinMagic)
	writeVarString(&buf, message)
	first := sha256.Sum256(buf.Bytes())
	second := sha256.Sum256(first[:])
	return second[:]
}

func writeVarString(buf *bytes.Buffer, s string) {
	n := uint64(len(s))
	switch {
	case n < 0xfd:
		buf.WriteByte(byte(n))
	case n <= 0xffff:
		buf.WriteByte(0xfd)
		buf.Write(binary.LittleEndian.AppendUint16(nil, uint16(n)))
	case n <= 0xffffffff:
		buf.WriteByte(0xfe)
		buf.Write(binary.LittleEndian.AppendUint32(nil, uint32(n)))
	default:
		buf.WriteByte(0xff)
		buf.Write(binary.LittleEndian.AppendUint64(nil, n))
	}
	buf.WriteString(s)
}

// P2PKHAddress derives the pay-to-pubkey-hash address of a serialized public key.
func P2PKHAddress(pubKey []byte, network Network) string {
	return base58.CheckEncode(hash160(pubKey), byte(network))
}

func hash160(data []byte) []byte {
	sum := sha256.Sum256(data)
	h := ripemd160.New()
	h.Write(sum[:])
	return h.Sum(nil)
}

// BitcoinVerifier checks base64 compact signatures against legacy P2PKH
// addresses by recovering the signing key.
type BitcoinVerifier struct {
	network Network
}

func NewBitcoinVerifier(network Network) *BitcoinVerifier {
	return &BitcoinVerifier{network: network}
}

func (v *BitcoinVerifier) Verify(address, message, signature string) error {
	decoded, version, err := base58.CheckDecode(address)
	if err != nil || len(decoded) != ripemd160.Size {
		return fmt.Errorf("%w: %q is not a P2PKH address", ErrMalformedAddress, address)
	}
	if Network(version) != v.network {
		return fmt.Errorf("%w: %q has version 0x%02x, want 0x%02x", ErrMalformedAddress, address, version, byte(v.network))
	}

	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: not base64: %v", ErrMalformedSignature, err)
	}
	if len(sig) != compactSignatureLen {
		return fmt.Errorf("%w: length %d, want %d", ErrMalformedSignature, len(sig), compactSignatureLen)
	}

	pub, compressed, err := ecdsa.RecoverCompact(sig, BitcoinMessageHash(message))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
	}
	var serialized []byte
	if compressed {
		serialized = pub.SerializeCompressed()
	} else {
		serialized = pub.SerializeUncompressed()
	}
	if recovered := P2PKHAddress(serialized, v.network); recovered != address {
		return fmt.Errorf("%w: signed by %s", ErrSignatureMismatch, recovered)
	}
	return nil
}

// BitcoinSigner signs with a secp256k1 key and a compressed public key.
type BitcoinSigner struct {
	key     *btcec.PrivateKey
	network Network
}

func NewBitcoinSigner(network Network) (*BitcoinSigner, error) {
	key, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("key generation failed: %w", err)
	}
	return &BitcoinSigner{key: key, network: network}, nil
}

func NewBitcoinSignerFromHex(keyHex string, network Network) (*BitcoinSigner, error) {
	raw, err := hex.DecodeString(keyHex)
	if err != nil || len(raw) != btcec.PrivKeyBytesLen {
		return nil, fmt.Errorf("%w: want %d hex-encoded bytes", ErrInvalidKey, btcec.PrivKeyBytesLen)
	}
	key, _ := btcec.PrivKeyFromBytes(raw)
	return &BitcoinSigner{key: key, network: network}, nil
}

func (s *BitcoinSigner) Address() string {
	return P2PKHAddress(s.key.PubKey().SerializeCompressed(), s.network)
}

func (s *BitcoinSigner) SignMessage(message string) (string, error) {
	sig, err := ecdsa.SignCompact(s.key, BitcoinMessageHash(message), true)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

func (s *BitcoinSigner) PrivateKey() string {
	return hex.EncodeToString(s.key.Serialize())
}
