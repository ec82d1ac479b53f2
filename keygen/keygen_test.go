// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package keygen

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMnemonic = "test test test test test test test test test test test junk"

func TestDerive(t *testing.T) {
	tests := []struct {
		index uint32
		want  string
	}{
		{0, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"},
		{1, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"},
	}
	for _, tt := range tests {
		key, err := Derive(testMnemonic, "", tt.index)
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress(tt.want), crypto.PubkeyToAddress(key.PublicKey))
	}

	t.Run("whitespace", func(t *testing.T) {
		key, err := Derive("  "+strings.ReplaceAll(testMnemonic, " ", "\n ")+"\n", "", 0)
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress(tests[0].want), crypto.PubkeyToAddress(key.PublicKey))
	})

	t.Run("passphrase", func(t *testing.T) {
		key, err := Derive(testMnemonic, "secret", 0)
		require.NoError(t, err)
		assert.NotEqual(t, common.HexToAddress(tests[0].want), crypto.PubkeyToAddress(key.PublicKey))
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := Derive("test test test", "", 0)
		assert.ErrorIs(t, err, ErrInvalidMnemonic)
	})
}

func TestSequence(t *testing.T) {
	next := Sequence(testMnemonic, "", 0)
	first, err := next()
	require.NoError(t, err)
	second, err := next()
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), crypto.PubkeyToAddress(first.PublicKey))
	assert.Equal(t, common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"), crypto.PubkeyToAddress(second.PublicKey))
}

func TestNewMnemonic(t *testing.T) {
	mnemonic, err := NewMnemonic()
	require.NoError(t, err)
	assert.Len(t, strings.Fields(mnemonic), 12)

	_, err = Derive(mnemonic, "", 0)
	assert.NoError(t, err)
}

func TestFromHex(t *testing.T) {
	// first hardhat development key
	const hex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	for _, s := range []string{hex, "0x" + hex, " 0x" + hex + "\n"} {
		key, err := FromHex(s)
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), crypto.PubkeyToAddress(key.PublicKey))
	}

	_, err := FromHex("0x1234")
	assert.Error(t, err)

	key, err := Random()
	require.NoError(t, err)
	assert.NotNil(t, key.D)
}

type memIndex struct{ next uint32 }

func (m *memIndex) KeyIndex() (uint32, error) { return m.next, nil }

func (m *memIndex) SetKeyIndex(index uint32) error {
	m.next = index
	return nil
}

func TestPersistentSequence(t *testing.T) {
	idx := &memIndex{}

	// separate sources over one index store, as separate runs of the cli
	first, err := PersistentSequence(testMnemonic, "", idx)()
	require.NoError(t, err)
	second, err := PersistentSequence(testMnemonic, "", idx)()
	require.NoError(t, err)

	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), crypto.PubkeyToAddress(first.PublicKey))
	assert.Equal(t, common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"), crypto.PubkeyToAddress(second.PublicKey))
	assert.Equal(t, uint32(2), idx.next)

	t.Run("invalid mnemonic keeps the index", func(t *testing.T) {
		_, err := PersistentSequence("test test test", "", idx)()
		assert.ErrorIs(t, err, ErrInvalidMnemonic)
		assert.Equal(t, uint32(2), idx.next)
	})
}
