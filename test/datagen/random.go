// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package datagen produces random fixtures for tests.
package datagen

import (
	"crypto/rand"
	"math/big"
	mathrand "math/rand/v2"

	"github.com/ethereum/go-ethereum/common"
)

func RandBytes(n int) []byte {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return b
}

func RandomHash() common.Hash { return common.BytesToHash(RandBytes(common.HashLength)) }

func RandAddress() common.Address { return common.BytesToAddress(RandBytes(common.AddressLength)) }

// RandIntN returns a non-cryptographic random int in [0, n).
func RandIntN(n int) int {
	return mathrand.N(n) //#nosec G404
}

// RandUint256 returns a random value of at most 256 bits.
func RandUint256() *big.Int { return new(big.Int).SetBytes(RandBytes(32)) }
