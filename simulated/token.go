// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package simulated

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
)

func (t *token) balance(owner common.Address) *big.Int {
	if bal, ok := t.balances[owner]; ok {
		return bal
	}
	return new(big.Int)
}

// token runs the example token, an ERC-20 with an open mint.
func (e *execution) token(t *token, self, sender common.Address, data []byte) ([]byte, error) {
	tabi := &e.backend.erc20ABI
	if len(data) < 4 {
		return nil, &revert{}
	}
	method, err := tabi.MethodById(data[:4])
	if err != nil {
		return nil, &revert{}
	}
	values, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, &revert{}
	}

	switch method.Name {
	case "name":
		return method.Outputs.Pack(t.name)
	case "symbol":
		return method.Outputs.Pack(t.symbol)
	case "decimals":
		return method.Outputs.Pack(t.decimals)
	case "totalSupply":
		return method.Outputs.Pack(new(big.Int).Set(t.supply))
	case "balanceOf":
		return method.Outputs.Pack(new(big.Int).Set(t.balance(values[0].(common.Address))))
	case "allowance":
		return method.Outputs.Pack(new(big.Int).Set(t.allowance(values[0].(common.Address), values[1].(common.Address))))
	case "mint":
		to, amount := values[0].(common.Address), values[1].(*big.Int)
		supply := new(big.Int).Add(t.supply, amount)
		if supply.Cmp(math.MaxBig256) > 0 {
			return nil, revertWithError(tabi, "TotalSupplyOverflow")
		}
		t.supply = supply
		t.balances[to] = new(big.Int).Add(t.balance(to), amount)
		e.transferLog(self, common.Address{}, to, amount)
		return nil, nil
	case "transfer":
		if err := e.move(t, self, sender, values[0].(common.Address), values[1].(*big.Int)); err != nil {
			return nil, err
		}
		return method.Outputs.Pack(true)
	case "approve":
		spender, amount := values[0].(common.Address), values[1].(*big.Int)
		if t.allowances == nil {
			t.allowances = make(map[common.Address]map[common.Address]*big.Int)
		}
		if t.allowances[sender] == nil {
			t.allowances[sender] = make(map[common.Address]*big.Int)
		}
		t.allowances[sender][spender] = new(big.Int).Set(amount)
		return method.Outputs.Pack(true)
	case "transferFrom":
		from, to, amount := values[0].(common.Address), values[1].(common.Address), values[2].(*big.Int)
		allowed := t.allowance(from, sender)
		if allowed.Cmp(amount) < 0 {
			return nil, revertWithError(tabi, "InsufficientAllowance")
		}
		if err := e.move(t, self, from, to, amount); err != nil {
			return nil, err
		}
		if amount.Sign() > 0 && allowed.Cmp(math.MaxBig256) != 0 {
			t.allowances[from][sender] = new(big.Int).Sub(allowed, amount)
		}
		return method.Outputs.Pack(true)
	}
	return nil, &revert{}
}

func (t *token) allowance(owner, spender common.Address) *big.Int {
	if v, ok := t.allowances[owner][spender]; ok {
		return v
	}
	return new(big.Int)
}

func (e *execution) move(t *token, self, from, to common.Address, amount *big.Int) error {
	bal := t.balance(from)
	if bal.Cmp(amount) < 0 {
		return revertWithError(&e.backend.erc20ABI, "InsufficientBalance")
	}
	t.balances[from] = new(big.Int).Sub(bal, amount)
	t.balances[to] = new(big.Int).Add(t.balance(to), amount)
	e.transferLog(self, from, to, amount)
	return nil
}

func (e *execution) transferLog(self, from, to common.Address, amount *big.Int) {
	e.logs = append(e.logs, &types.Log{
		Address: self,
		Topics: []common.Hash{
			e.backend.erc20ABI.Events["Transfer"].ID,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data: common.BigToHash(amount).Bytes(),
	})
}
