package block

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sealed(t *testing.T, payload any, height uint64, ts int64, prev *string) *Block {
	t.Helper()
	b, err := New(payload)
	require.NoError(t, err)
	b.Height = height
	b.Time = ts
	b.PreviousHash = prev
	require.NoError(t, b.Seal(SHA256))
	return b
}

func strPtr(s string) *string { return &s }

func TestComputeHash_Deterministic(t *testing.T) {
	prev := strPtr("ab12")
	b1 := sealed(t, map[string]any{"star": "Vega"}, 3, 1700000000, prev)
	b2 := sealed(t, map[string]any{"star": "Vega"}, 3, 1700000000, strPtr("ab12"))

	assert.Equal(t, b1.Hash, b2.Hash)
	assert.Len(t, b1.Hash, 64)
}

func TestComputeHash_ExcludesHashField(t *testing.T) {
	b := sealed(t, "payload", 1, 42, strPtr("00"))

	h1, err := b.ComputeHash(SHA256)
	require.NoError(t, err)
	b.Hash = "something-else"
	h2, err := b.ComputeHash(SHA256)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
}

func TestValidate_SealedBlockIsValid(t *testing.T) {
	b := sealed(t, map[string]string{"address": "1abc"}, 1, 1700000000, strPtr("ff"))
	assert.NoError(t, b.Validate())
}

func TestValidate_DetectsTampering(t *testing.T) {
	cases := map[string]func(b *Block){
		"body":     func(b *Block) { b.Body = b.Body + "00" },
		"height":   func(b *Block) { b.Height++ },
		"time":     func(b *Block) { b.Time-- },
		"prev":     func(b *Block) { b.PreviousHash = strPtr("deadbeef") },
		"prev nil": func(b *Block) { b.PreviousHash = nil },
		"hash":     func(b *Block) { b.Hash = "0000" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			b := sealed(t, map[string]string{"star": "Altair"}, 2, 1700000100, strPtr("c0ffee"))
			mutate(b)

			err := b.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidBlock))

			var invalid *InvalidBlockError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, b.Height, invalid.Height)
			assert.Equal(t, b.Hash, invalid.Actual)
			assert.NotEqual(t, invalid.Expected, invalid.Actual)
		})
	}
}

func TestValidate_DoesNotMutate(t *testing.T) {
	b := sealed(t, "x", 5, 99, strPtr("aa"))
	b.Time = 100 // tamper
	before := *b
	prev := *b.PreviousHash

	_ = b.Validate()

	assert.Equal(t, before.Hash, b.Hash)
	assert.Equal(t, before.Time, b.Time)
	assert.Equal(t, prev, *b.PreviousHash)
}

func TestValidateWith_AlgorithmMismatch(t *testing.T) {
	b, err := New("x")
	require.NoError(t, err)
	require.NoError(t, b.Seal(BLAKE3))

	assert.NoError(t, b.ValidateWith(BLAKE3))
	assert.ErrorIs(t, b.ValidateWith(SHA256), ErrInvalidBlock)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	payload := map[string]any{
		"address": "1Ez69SnzzmePmZX3WpEzMKTrcBF2gpNQ55",
		"star": map[string]any{
			"dec":   "68° 52' 56.9",
			"ra":    "16h 29m 1.0s",
			"story": "<found> & named",
			"mag":   json.Number("4.5"),
		},
	}

	body, err := Encode(payload)
	require.NoError(t, err)
	got, err := Decode(body)
	require.NoError(t, err)

	assert.Equal(t, payload, got)
}

func TestEncode_RefusesLossyNumbers(t *testing.T) {
	for _, payload := range []any{
		map[string]any{"n": json.Number("12345678901234567891")},
		map[string]any{"i": int64(9007199254740993)},
		map[string]any{"big": json.Number("1e400")},
	} {
		_, err := Encode(payload)
		assert.ErrorIs(t, err, ErrUnencodable, "%v", payload)
	}

	exact := map[string]any{"i": json.Number("9007199254740992"), "f": json.Number("-0.25")}
	body, err := Encode(exact)
	require.NoError(t, err)
	got, err := Decode(body)
	require.NoError(t, err)
	assert.Equal(t, exact, got)
}

func TestEncode_CanonicalRegardlessOfKeyOrder(t *testing.T) {
	type a struct {
		X string `json:"x"`
		Y string `json:"y"`
	}
	type b struct {
		Y string `json:"y"`
		X string `json:"x"`
	}
	e1, err := Encode(a{X: "1", Y: "2"})
	require.NoError(t, err)
	e2, err := Encode(b{Y: "2", X: "1"})
	require.NoError(t, err)
	assert.Equal(t, e1, e2)
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode("zz")
	assert.ErrorIs(t, err, ErrMalformedBody)

	body, _ := Encode("ok")
	_, err = Decode(body + "7b") // trailing "{"
	assert.ErrorIs(t, err, ErrMalformedBody)
}

func TestData_GenesisSentinel(t *testing.T) {
	genesis := sealed(t, GenesisPayload, 0, 1, nil)
	data, err := genesis.Data()
	require.NoError(t, err)
	assert.Equal(t, GenesisSentinel, data)

	other := sealed(t, GenesisPayload, 1, 1, strPtr(genesis.Hash))
	data, err = other.Data()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"data": "Genesis Block"}, data)
}

func TestDecodeInto(t *testing.T) {
	type registration struct {
		Address string `json:"address"`
	}
	b := sealed(t, registration{Address: "addr-1"}, 1, 1, strPtr("p"))

	var r registration
	require.NoError(t, b.DecodeInto(&r))
	assert.Equal(t, "addr-1", r.Address)
}

func TestClone_IsDeep(t *testing.T) {
	b := sealed(t, "x", 1, 1, strPtr("prev"))
	c := b.Clone()
	*c.PreviousHash = "changed"
	c.Body = ""

	assert.Equal(t, "prev", b.PrevHash())
	assert.NotEmpty(t, b.Body)
	assert.Nil(t, (*Block)(nil).Clone())
}

func TestJSON_FieldNames(t *testing.T) {
	b := sealed(t, GenesisPayload, 0, 1600000000, nil)
	raw, err := json.Marshal(b)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	for _, k := range []string{"hash", "height", "body", "time", "previousBlockHash"} {
		assert.Contains(t, m, k)
	}
	assert.Nil(t, m["previousBlockHash"])
}

func TestParseAlgorithm(t *testing.T) {
	a, err := ParseAlgorithm("")
	require.NoError(t, err)
	assert.Equal(t, SHA256, a)

	a, err = ParseAlgorithm(" BLAKE3 ")
	require.NoError(t, err)
	assert.Equal(t, BLAKE3, a)

	_, err = ParseAlgorithm("md5")
	assert.Error(t, err)
}

func TestAlgorithm_DigestsDiffer(t *testing.T) {
	s, err := SHA256.Sum([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", s)

	b3, err := BLAKE3.Sum([]byte("abc"))
	require.NoError(t, err)
	assert.Len(t, b3, 64)
	assert.NotEqual(t, s, b3)

	_, err = Algorithm("crc32").Sum(nil)
	assert.Error(t, err)
}
