package wallet

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const keyOne = "0000000000000000000000000000000000000000000000000000000000000001"

func TestKnownAddresses(t *testing.T) {
	tests := []struct {
		scheme string
		key    string
		want   string
	}{
		{SchemeBitcoin, keyOne, "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH"},
		{SchemeBitcoinTestnet, keyOne, "mrCDrCybB6J1vRfbwM5hemdJz73FwDBC8r"},
		{SchemeEthereum, keyOne, "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"},
		{SchemeEd25519, "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60",
			"d75a980182b10ab7d54bfed3c964073a0ee172f3daa62325af021a68f707511a"},
	}
	for _, tt := range tests {
		t.Run(tt.scheme, func(t *testing.T) {
			s, err := NewSigner(tt.scheme, tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Address())
			assert.Equal(t, tt.key, s.PrivateKey())
		})
	}
}

func TestEd25519_RFC8032Vector(t *testing.T) {
	s, err := NewEd25519SignerFromHex("9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60")
	require.NoError(t, err)

	sig, err := s.SignMessage("")
	require.NoError(t, err)
	assert.Equal(t, "e5564300c360ac729086e2cc806e828a84877f1eb8e5d974d873e065224901555fb8821590a33bacc61e39701cf9b46bd25bf5f0595bbe24655141438e7a100b", sig)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	const message = "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH:1700000000:starRegistry"
	for _, scheme := range Schemes {
		t.Run(scheme, func(t *testing.T) {
			signer, err := GenerateSigner(scheme)
			require.NoError(t, err)
			verifier, err := NewVerifier(scheme)
			require.NoError(t, err)

			sig, err := signer.SignMessage(message)
			require.NoError(t, err)

			assert.NoError(t, verifier.Verify(signer.Address(), message, sig))
			assert.ErrorIs(t, verifier.Verify(signer.Address(), message+"x", sig), ErrSignatureMismatch)

			other, err := GenerateSigner(scheme)
			require.NoError(t, err)
			assert.ErrorIs(t, verifier.Verify(other.Address(), message, sig), ErrSignatureMismatch)
		})
	}
}

func TestBitcoinVerifier_Rejects(t *testing.T) {
	signer, err := NewBitcoinSignerFromHex(keyOne, Mainnet)
	require.NoError(t, err)
	sig, err := signer.SignMessage("hello")
	require.NoError(t, err)

	v := NewBitcoinVerifier(Mainnet)
	assert.ErrorIs(t, v.Verify("not-an-address", "hello", sig), ErrMalformedAddress)
	assert.ErrorIs(t, v.Verify("mrCDrCybB6J1vRfbwM5hemdJz73FwDBC8r", "hello", sig), ErrMalformedAddress)
	assert.ErrorIs(t, v.Verify(signer.Address(), "hello", "%%%"), ErrMalformedSignature)
	assert.ErrorIs(t, v.Verify(signer.Address(), "hello", base64.StdEncoding.EncodeToString([]byte("short"))), ErrMalformedSignature)
}

func TestBitcoinMessageHash_LongMessageVarint(t *testing.T) {
	short := BitcoinMessageHash("a")
	long := BitcoinMessageHash(strings.Repeat("a", 300))
	assert.Len(t, short, 32)
	assert.Len(t, long, 32)
	assert.NotEqual(t, short, long)

	signer, err := NewBitcoinSigner(Mainnet)
	require.NoError(t, err)
	msg := strings.Repeat("z", 70000)
	sig, err := signer.SignMessage(msg)
	require.NoError(t, err)
	assert.NoError(t, NewBitcoinVerifier(Mainnet).Verify(signer.Address(), msg, sig))
}

func TestEthereumVerifier_AcceptsVariants(t *testing.T) {
	signer, err := NewEthereumSignerFromHex(keyOne)
	require.NoError(t, err)
	sig, err := signer.SignMessage("hello")
	require.NoError(t, err)

	v := NewEthereumVerifier()
	assert.NoError(t, v.Verify(strings.ToLower(signer.Address()), "hello", sig))
	assert.NoError(t, v.Verify(signer.Address(), "hello", strings.TrimPrefix(sig, "0x")))

	assert.ErrorIs(t, v.Verify("0x1234", "hello", sig), ErrMalformedAddress)
	assert.ErrorIs(t, v.Verify(signer.Address(), "hello", "0xzz"), ErrMalformedSignature)
	assert.ErrorIs(t, v.Verify(signer.Address(), "hello", "0x00"), ErrMalformedSignature)
}

func TestEd25519Verifier_Rejects(t *testing.T) {
	v := NewEd25519Verifier()
	assert.ErrorIs(t, v.Verify("zz", "m", "00"), ErrMalformedAddress)
	assert.ErrorIs(t, v.Verify("abcd", "m", "00"), ErrMalformedAddress)

	s, err := NewEd25519Signer()
	require.NoError(t, err)
	assert.ErrorIs(t, v.Verify(s.Address(), "m", "xyz"), ErrMalformedSignature)
	assert.ErrorIs(t, v.Verify(s.Address(), "m", "00"), ErrSignatureMismatch)
}

func TestFactories_UnknownScheme(t *testing.T) {
	_, err := NewVerifier("dogecoin")
	assert.ErrorIs(t, err, ErrUnknownScheme)
	_, err = NewSigner("dogecoin", keyOne)
	assert.ErrorIs(t, err, ErrUnknownScheme)
	_, err = GenerateSigner("dogecoin")
	assert.ErrorIs(t, err, ErrUnknownScheme)
}

func TestNewSigner_InvalidKey(t *testing.T) {
	for _, scheme := range Schemes {
		_, err := NewSigner(scheme, "not-hex")
		assert.ErrorIs(t, err, ErrInvalidKey, scheme)
	}
}

func TestVerifierFunc(t *testing.T) {
	var got []string
	v := VerifierFunc(func(address, message, signature string) error {
		got = []string{address, message, signature}
		return nil
	})
	require.NoError(t, v.Verify("a", "m", "s"))
	assert.Equal(t, []string{"a", "m", "s"}, got)
}
