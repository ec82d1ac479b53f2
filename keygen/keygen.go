// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package keygen produces the native secp256k1 keys of new accounts, either at random or derived
// from a BIP-39 mnemonic along the Ethereum BIP-44 path m/44'/60'/0'/0/index.
package keygen

import (
	"crypto/ecdsa"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
)

// MnemonicEntropyBits gives 12 word mnemonics.
const MnemonicEntropyBits = 128

// BIP-44 path components of Ethereum accounts.
const (
	PurposeBIP44     = bip32.FirstHardenedChild + 44
	CoinTypeEthereum = bip32.FirstHardenedChild + 60
	AccountDefault   = bip32.FirstHardenedChild + 0
	ChangeExternal   = 0
)

var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// Random returns a random key.
func Random() (*ecdsa.PrivateKey, error) {
	return crypto.GenerateKey()
}

// NewMnemonic returns a fresh 12 word BIP-39 mnemonic.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(MnemonicEntropyBits)
	if err != nil {
		return "", errors.Wrap(err, "generate entropy")
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", errors.Wrap(err, "generate mnemonic")
	}
	return mnemonic, nil
}

// Derive returns the key at m/44'/60'/0'/0/index of mnemonic.
func Derive(mnemonic, passphrase string, index uint32) (*ecdsa.PrivateKey, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, errors.Wrap(err, "derive seed")
	}
	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, errors.Wrap(err, "master key")
	}
	for _, child := range []uint32{PurposeBIP44, CoinTypeEthereum, AccountDefault, ChangeExternal, index} {
		if key, err = key.NewChildKey(child); err != nil {
			return nil, errors.Wrapf(err, "derive child %d", child)
		}
	}
	raw := key.Key
	if len(raw) == 33 && raw[0] == 0 {
		raw = raw[1:]
	}
	return crypto.ToECDSA(raw)
}

// Sequence returns a key source deriving successive indices of mnemonic, starting at start.
func Sequence(mnemonic, passphrase string, start uint32) func() (*ecdsa.PrivateKey, error) {
	var (
		mu   sync.Mutex
		next = start
	)
	return func() (*ecdsa.PrivateKey, error) {
		mu.Lock()
		defer mu.Unlock()
		key, err := Derive(mnemonic, passphrase, next)
		if err != nil {
			return nil, err
		}
		next++
		return key, nil
	}
}

// IndexStore keeps the next derivation index of a PersistentSequence.
type IndexStore interface {
	KeyIndex() (uint32, error)
	SetKeyIndex(index uint32) error
}

// PersistentSequence is Sequence with the next index kept in s. The index is advanced before
// the key is handed out, so a failed create skips an index rather than reusing it.
func PersistentSequence(mnemonic, passphrase string, s IndexStore) func() (*ecdsa.PrivateKey, error) {
	var mu sync.Mutex
	return func() (*ecdsa.PrivateKey, error) {
		mu.Lock()
		defer mu.Unlock()
		index, err := s.KeyIndex()
		if err != nil {
			return nil, errors.Wrap(err, "read key index")
		}
		key, err := Derive(mnemonic, passphrase, index)
		if err != nil {
			return nil, err
		}
		if err := s.SetKeyIndex(index + 1); err != nil {
			return nil, errors.Wrap(err, "advance key index")
		}
		return key, nil
	}
}

// FromHex parses a hex encoded private key, with or without 0x prefix.
func FromHex(s string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "parse private key")
	}
	return key, nil
}
