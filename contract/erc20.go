// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package contract

import (
	"context"
	_ "embed"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/wjorgensen/OneWalletDemo/acct"
	"github.com/wjorgensen/OneWalletDemo/chain"
)

//go:embed abi/erc20.abi.json
var erc20ABI []byte

// ERC20 is a type-safe wrapper of the example token. Writes are not sent directly, they are
// returned as calls for a delegated account to execute.
type ERC20 struct {
	contract *Contract
}

// NewERC20 binds the token deployed at address.
func NewERC20(client chain.Client, address common.Address) (*ERC20, error) {
	contract, err := NewContract(client, erc20ABI, address)
	if err != nil {
		return nil, err
	}
	return &ERC20{contract: contract}, nil
}

func (e *ERC20) Raw() *Contract {
	return e.contract
}

// Name returns the name of the token
func (e *ERC20) Name(ctx context.Context) (string, error) {
	var name string
	if err := e.contract.Method("name").CallInto(ctx, &name); err != nil {
		return "", err
	}
	return name, nil
}

// Symbol returns the symbol of the token
func (e *ERC20) Symbol(ctx context.Context) (string, error) {
	var symbol string
	if err := e.contract.Method("symbol").CallInto(ctx, &symbol); err != nil {
		return "", err
	}
	return symbol, nil
}

// Decimals returns the number of decimals the token uses
func (e *ERC20) Decimals(ctx context.Context) (uint8, error) {
	var decimals uint8
	if err := e.contract.Method("decimals").CallInto(ctx, &decimals); err != nil {
		return 0, err
	}
	return decimals, nil
}

// BalanceOf returns the token balance of owner.
func (e *ERC20) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	values, err := e.contract.Method("balanceOf", owner).Call(ctx)
	if err != nil {
		return nil, err
	}
	return abi.ConvertType(values[0], new(big.Int)).(*big.Int), nil
}

// MintCall returns a call minting amount to `to`.
func (e *ERC20) MintCall(to common.Address, amount *big.Int) (acct.Call, error) {
	return e.call("mint", to, orZero(amount))
}

// TransferCall returns a call transferring amount from the executing account to `to`.
func (e *ERC20) TransferCall(to common.Address, amount *big.Int) (acct.Call, error) {
	return e.call("transfer", to, orZero(amount))
}

// ApproveCall returns a call allowing spender to move amount.
func (e *ERC20) ApproveCall(spender common.Address, amount *big.Int) (acct.Call, error) {
	return e.call("approve", spender, orZero(amount))
}

func (e *ERC20) call(method string, args ...any) (acct.Call, error) {
	data, err := e.contract.Method(method, args...).Calldata()
	if err != nil {
		return acct.Call{}, err
	}
	return acct.Call{To: e.contract.Address(), Data: data}, nil
}

// ERC20ABI returns the raw ABI of the example token.
func ERC20ABI() []byte {
	return erc20ABI
}
