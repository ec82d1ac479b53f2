// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package acct

import (
	"encoding/json"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

type jsonPublicKey struct {
	X string `json:"x"`
	Y string `json:"y"`
}

type jsonKey struct {
	ID        string    `json:"id"`
	Index     uint32    `json:"index"`
	PublicKey PublicKey `json:"publicKey"`
}

type jsonAccount struct {
	Address             common.Address `json:"address"`
	AuthorizationTxHash *common.Hash   `json:"authorizationTxHash,omitempty"`
	Key                 jsonKey        `json:"key"`
}

// MarshalJSON encodes the coordinates as decimal strings.
func (p PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonPublicKey{X: intString(p.X), Y: intString(p.Y)})
}

// UnmarshalJSON accepts decimal or 0x prefixed hex strings.
func (p *PublicKey) UnmarshalJSON(data []byte) error {
	var j jsonPublicKey
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	x, err := parseInt("publicKey.x", j.X)
	if err != nil {
		return err
	}
	y, err := parseInt("publicKey.y", j.Y)
	if err != nil {
		return err
	}
	p.X, p.Y = x, y
	return nil
}

func (a Account) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonAccount{
		Address:             a.Address,
		AuthorizationTxHash: a.AuthorizationTxHash,
		Key:                 jsonKey(a.Key),
	})
}

func (a *Account) UnmarshalJSON(data []byte) error {
	var j jsonAccount
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	*a = Account{
		Address:             j.Address,
		AuthorizationTxHash: j.AuthorizationTxHash,
		Key:                 Key(j.Key),
	}
	return nil
}

func parseInt(field, s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	v, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, NewEncodingError(field, "invalid integer")
	}
	if v.Sign() < 0 || v.BitLen() > 256 {
		return nil, NewEncodingError(field, "out of uint256 range")
	}
	return v, nil
}
