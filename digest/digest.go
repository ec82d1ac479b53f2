// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package digest implements the packed encodings and Keccak-256 digests signed to authorize a key
// and to execute a batch of calls through the delegation contract.
package digest

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/wjorgensen/OneWalletDemo/acct"
)

// WordLength is the size of a packed integer.
const WordLength = 32

// Word packs v into a 32 byte big-endian word. nil packs as zero.
func Word(v *big.Int) ([WordLength]byte, error) {
	return word("value", v)
}

func word(field string, v *big.Int) ([WordLength]byte, error) {
	if v == nil {
		return [WordLength]byte{}, nil
	}
	if v.Sign() < 0 {
		return [WordLength]byte{}, acct.NewEncodingError(field, "negative integer")
	}
	u, overflow := uint256.FromBig(v)
	if overflow {
		return [WordLength]byte{}, acct.NewEncodingError(field, "integer exceeds 256 bits")
	}
	return u.Bytes32(), nil
}

// AuthorizeDigest computes keccak256(nonce || x || y || expiry), the digest signed by the account's
// native key to authorize a public key.
func AuthorizeDigest(nonce *big.Int, pub acct.PublicKey, expiry *big.Int) (common.Hash, error) {
	fields := []struct {
		name  string
		value *big.Int
	}{
		{"nonce", nonce},
		{"publicKey.x", pub.X},
		{"publicKey.y", pub.Y},
		{"expiry", expiry},
	}
	buf := make([]byte, 0, len(fields)*WordLength)
	for _, f := range fields {
		w, err := word(f.name, f.value)
		if err != nil {
			return common.Hash{}, err
		}
		buf = append(buf, w[:]...)
	}
	return crypto.Keccak256Hash(buf), nil
}

// ExecuteDigest computes keccak256(nonce || encodedCalls), the challenge signed by the passkey to
// execute a batch.
func ExecuteDigest(nonce *big.Int, encodedCalls []byte) (common.Hash, error) {
	w, err := word("nonce", nonce)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(w[:], encodedCalls), nil
}

// RevokeDigest computes keccak256(nonce || keyIndex), keyIndex packed as 4 big-endian bytes, the
// digest signed by the account's native key to revoke a key slot.
func RevokeDigest(nonce *big.Int, keyIndex uint32) (common.Hash, error) {
	w, err := word("nonce", nonce)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(w[:], binary.BigEndian.AppendUint32(nil, keyIndex)), nil
}
