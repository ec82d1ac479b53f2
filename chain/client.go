// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package chain defines the chain access the account layer needs and implements it over an
// Ethereum JSON-RPC endpoint.
package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// WriteRequest is a state changing contract call.
type WriteRequest struct {
	To    common.Address
	Data  []byte
	Value *big.Int
	// AuthorizationList is attached as EIP-7702 authorizations. A non-empty list turns the
	// transaction into a set code transaction.
	AuthorizationList []types.SetCodeAuthorization
	// Gas overrides gas estimation when non-zero.
	Gas uint64
}

// Client is the chain capability the account layer is written against. Implementations report
// contract reverts as *acct.ChainError.
type Client interface {
	ChainID(ctx context.Context) (*big.Int, error)
	// NonceAt returns the pending transaction nonce of account.
	NonceAt(ctx context.Context, account common.Address) (uint64, error)
	// ReadContract executes a call against the latest state.
	ReadContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
	// WriteContract submits a transaction and returns its hash without waiting for inclusion.
	WriteContract(ctx context.Context, req *WriteRequest) (common.Hash, error)
	// WaitForReceipt blocks until the transaction is included. A failed receipt is returned along
	// with an *acct.ChainError.
	WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}
