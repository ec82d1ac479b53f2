// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package digest

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wjorgensen/OneWalletDemo/acct"
	"github.com/wjorgensen/OneWalletDemo/test/datagen"
)

var (
	addrAA = common.BytesToAddress(bytes.Repeat([]byte{0xaa}, 20))
	addrBB = common.BytesToAddress(bytes.Repeat([]byte{0xbb}, 20))
)

func TestWord(t *testing.T) {
	maxUint := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	tests := []struct {
		name    string
		in      *big.Int
		want    string
		wantErr bool
	}{
		{"nil", nil, "0x0000000000000000000000000000000000000000000000000000000000000000", false},
		{"one", big.NewInt(1), "0x0000000000000000000000000000000000000000000000000000000000000001", false},
		{"max", maxUint, "0xffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", false},
		{"overflow", new(big.Int).Add(maxUint, big.NewInt(1)), "", true},
		{"negative", big.NewInt(-1), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := Word(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, acct.ErrEncoding)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, hexutil.Encode(w[:]))
		})
	}
}

func TestAuthorizeDigest(t *testing.T) {
	pub := acct.PublicKey{X: big.NewInt(1), Y: big.NewInt(2)}

	h, err := AuthorizeDigest(big.NewInt(0), pub, big.NewInt(0))
	require.NoError(t, err)
	assert.Equal(t, "0xf7d5fc453d042e5092a1a24b8dc68d58645e023494aeb19caeb3ebb49c6f4f9e", h.Hex())

	t.Run("deterministic", func(t *testing.T) {
		again, err := AuthorizeDigest(nil, pub, nil)
		require.NoError(t, err)
		assert.Equal(t, h, again)
	})

	t.Run("field boundaries", func(t *testing.T) {
		swapped, err := AuthorizeDigest(big.NewInt(0), acct.PublicKey{X: big.NewInt(2), Y: big.NewInt(1)}, big.NewInt(0))
		require.NoError(t, err)
		assert.NotEqual(t, h, swapped)

		expiring, err := AuthorizeDigest(big.NewInt(0), pub, big.NewInt(1))
		require.NoError(t, err)
		assert.NotEqual(t, h, expiring)
	})

	t.Run("invalid field", func(t *testing.T) {
		_, err := AuthorizeDigest(big.NewInt(0), acct.PublicKey{X: big.NewInt(-5), Y: big.NewInt(1)}, nil)
		var encErr *acct.EncodingError
		require.ErrorAs(t, err, &encErr)
		assert.Equal(t, "publicKey.x", encErr.Field)
	})
}

func TestEncodeCalls(t *testing.T) {
	encoded, err := EncodeCalls([]acct.Call{{To: addrAA}})
	require.NoError(t, err)
	require.Len(t, encoded, callHeaderLength)
	assert.Equal(t, OperationCall, encoded[0])
	assert.Equal(t, addrAA.Bytes(), encoded[1:21])

	t.Run("empty batch", func(t *testing.T) {
		encoded, err := EncodeCalls(nil)
		require.NoError(t, err)
		assert.Empty(t, encoded)
	})

	t.Run("layout", func(t *testing.T) {
		encoded, err := EncodeCalls([]acct.Call{{To: addrBB, Value: big.NewInt(5), Data: []byte{0x12, 0x34}}})
		require.NoError(t, err)
		require.Len(t, encoded, callHeaderLength+2)
		assert.Equal(t, byte(5), encoded[52])
		assert.Equal(t, byte(2), encoded[84])
		assert.Equal(t, []byte{0x12, 0x34}, encoded[85:])
	})

	t.Run("negative value", func(t *testing.T) {
		_, err := EncodeCalls([]acct.Call{{To: addrAA}, {To: addrBB, Value: big.NewInt(-1)}})
		var encErr *acct.EncodingError
		require.ErrorAs(t, err, &encErr)
		assert.Equal(t, "calls[1].value", encErr.Field)
	})
}

func TestExecuteDigest(t *testing.T) {
	encoded, err := EncodeCalls([]acct.Call{{To: addrAA, Value: big.NewInt(0), Data: []byte{}}})
	require.NoError(t, err)

	h, err := ExecuteDigest(big.NewInt(0), encoded)
	require.NoError(t, err)
	assert.Equal(t, "0x6f648b75d9faa7c83cef358d536ea481619c62955adf582719576c3cdae0494b", h.Hex())

	t.Run("two calls", func(t *testing.T) {
		encoded, err := EncodeCalls([]acct.Call{
			{To: addrAA},
			{To: addrBB, Value: big.NewInt(5), Data: []byte{0x12, 0x34}},
		})
		require.NoError(t, err)

		h, err := ExecuteDigest(big.NewInt(7), encoded)
		require.NoError(t, err)
		assert.Equal(t, "0x64a2900f9cec8e89d48b8542770eedfd18867eee23962ef3b1e7974a1b9fdb2e", h.Hex())
	})

	t.Run("empty batch differs", func(t *testing.T) {
		empty, err := ExecuteDigest(big.NewInt(0), nil)
		require.NoError(t, err)
		assert.Equal(t, "0x290decd9548b62a8d60345a988386fc84ba6bc95484008f6362f93160ef3e563", empty.Hex())
		assert.NotEqual(t, h, empty)
	})

	t.Run("nonce changes digest", func(t *testing.T) {
		next, err := ExecuteDigest(big.NewInt(1), encoded)
		require.NoError(t, err)
		assert.NotEqual(t, h, next)
	})
}

func TestRevokeDigest(t *testing.T) {
	h, err := RevokeDigest(big.NewInt(3), 1)
	require.NoError(t, err)
	assert.Equal(t, "0xa6cb9106af6213bba981e1d691fd5d137d3323485f2b26e079910d563a6d0442", h.Hex())

	other, err := RevokeDigest(big.NewInt(3), 2)
	require.NoError(t, err)
	assert.NotEqual(t, h, other)

	_, err = RevokeDigest(big.NewInt(-1), 1)
	assert.ErrorIs(t, err, acct.ErrEncoding)
}

func TestDecodeCalls(t *testing.T) {
	valid, err := EncodeCalls([]acct.Call{{To: addrBB, Value: big.NewInt(5), Data: []byte{0x12, 0x34}}})
	require.NoError(t, err)

	t.Run("empty", func(t *testing.T) {
		calls, err := DecodeCalls(nil)
		require.NoError(t, err)
		assert.Empty(t, calls)
	})

	t.Run("valid", func(t *testing.T) {
		calls, err := DecodeCalls(valid)
		require.NoError(t, err)
		require.Len(t, calls, 1)
		assert.Equal(t, addrBB, calls[0].To)
		assert.Equal(t, int64(5), calls[0].Value.Int64())
		assert.Equal(t, []byte{0x12, 0x34}, calls[0].Data)
	})

	bad := map[string][]byte{
		"truncated header": valid[:callHeaderLength-1],
		"truncated data":   valid[:len(valid)-1],
		"unknown op":       append([]byte{1}, valid[1:]...),
		"trailing bytes":   append(append([]byte{}, valid...), 0x00),
	}
	for name, input := range bad {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeCalls(input)
			require.ErrorIs(t, err, acct.ErrEncoding)
		})
	}
}

func TestCallsRoundTrip(t *testing.T) {
	f := fuzz.New().NilChance(0.2).NumElements(0, 8).Funcs(
		func(v *big.Int, c fuzz.Continue) {
			v.SetUint64(c.Uint64())
			v.Lsh(v, uint(c.Intn(190)))
		},
	)

	for range 200 {
		var calls []acct.Call
		f.Fuzz(&calls)

		encoded, err := EncodeCalls(calls)
		require.NoError(t, err)

		decoded, err := DecodeCalls(encoded)
		require.NoError(t, err)
		require.Len(t, decoded, len(calls))
		for i := range calls {
			assert.Equal(t, calls[i].To, decoded[i].To)
			assert.Zero(t, calls[i].ValueOrZero().Cmp(decoded[i].Value))
			assert.True(t, bytes.Equal(calls[i].Data, decoded[i].Data))
		}

		reencoded, err := EncodeCalls(decoded)
		require.NoError(t, err)
		assert.Equal(t, encoded, reencoded)
	}
}

func FuzzDecodeCalls(f *testing.F) {
	seed, _ := EncodeCalls([]acct.Call{{To: addrAA}, {To: addrBB, Value: big.NewInt(5), Data: []byte{0x12, 0x34}}})
	f.Add(seed)
	f.Add([]byte{})
	f.Add([]byte{0x01})
	for n := range 4 {
		random, err := EncodeCalls(datagen.RandCalls(n + 1))
		require.NoError(f, err)
		f.Add(random)
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		calls, err := DecodeCalls(data)
		if err != nil {
			require.ErrorIs(t, err, acct.ErrEncoding)
			return
		}
		encoded, err := EncodeCalls(calls)
		require.NoError(t, err)
		require.True(t, bytes.Equal(data, encoded))
	})
}
