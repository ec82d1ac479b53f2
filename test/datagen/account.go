// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package datagen

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/wjorgensen/OneWalletDemo/acct"
)

func RandKey() *ecdsa.PrivateKey {
	key, err := crypto.GenerateKey()
	if err != nil {
		panic(err)
	}
	return key
}

// RandCall returns a call to a random address with a small random value and up to 64 bytes of data.
func RandCall() acct.Call {
	return acct.Call{
		To:    RandAddress(),
		Value: big.NewInt(int64(RandIntN(1_000_000))),
		Data:  RandBytes(RandIntN(65)),
	}
}

func RandCalls(n int) []acct.Call {
	calls := make([]acct.Call, n)
	for i := range calls {
		calls[i] = RandCall()
	}
	return calls
}

// RandAccount returns an account snapshot with a random address and key coordinates.
func RandAccount() *acct.Account {
	return &acct.Account{
		Address: RandAddress(),
		Key: acct.Key{
			ID:    "cred-" + RandAddress().Hex()[2:10],
			Index: uint32(RandIntN(4)),
			PublicKey: acct.PublicKey{
				X: new(big.Int).SetBytes(RandBytes(32)),
				Y: new(big.Int).SetBytes(RandBytes(32)),
			},
		},
	}
}
