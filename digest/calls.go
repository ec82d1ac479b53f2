// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package digest

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/wjorgensen/OneWalletDemo/acct"
)

// OperationCall is the only operation tag the delegation contract accepts in a batch.
const OperationCall byte = 0

// callHeaderLength is operation(1) + to(20) + value(32) + length(32).
const callHeaderLength = 1 + common.AddressLength + WordLength + WordLength

// EncodeCalls packs a batch as operation || to || value || len(data) || data per call, concatenated
// in order with no outer prefix. An empty batch encodes to an empty slice.
func EncodeCalls(calls []acct.Call) ([]byte, error) {
	size := 0
	for _, c := range calls {
		size += callHeaderLength + len(c.Data)
	}
	buf := make([]byte, 0, size)

	for i, c := range calls {
		value, err := word(fmt.Sprintf("calls[%d].value", i), c.Value)
		if err != nil {
			return nil, err
		}
		length := uint256.NewInt(uint64(len(c.Data))).Bytes32()

		buf = append(buf, OperationCall)
		buf = append(buf, c.To[:]...)
		buf = append(buf, value[:]...)
		buf = append(buf, length[:]...)
		buf = append(buf, c.Data...)
	}
	return buf, nil
}

// DecodeCalls is the inverse of EncodeCalls. Decoded values are never nil and data is an empty,
// non-nil slice for calls without calldata.
func DecodeCalls(data []byte) ([]acct.Call, error) {
	calls := make([]acct.Call, 0)
	for offset := 0; offset < len(data); {
		field := fmt.Sprintf("calls[%d]", len(calls))
		if len(data)-offset < callHeaderLength {
			return nil, acct.NewEncodingError(field, "truncated call header")
		}
		if op := data[offset]; op != OperationCall {
			return nil, acct.NewEncodingError(field, fmt.Sprintf("unknown operation %d", op))
		}
		offset++

		var c acct.Call
		copy(c.To[:], data[offset:offset+common.AddressLength])
		offset += common.AddressLength

		c.Value = new(big.Int).SetBytes(data[offset : offset+WordLength])
		offset += WordLength

		length := new(uint256.Int).SetBytes(data[offset : offset+WordLength])
		offset += WordLength
		remaining := uint64(len(data) - offset)
		if !length.IsUint64() || length.Uint64() > remaining {
			return nil, acct.NewEncodingError(field, "data length exceeds input")
		}
		n := int(length.Uint64())
		c.Data = append([]byte{}, data[offset:offset+n]...)
		offset += n

		calls = append(calls, c)
	}
	return calls, nil
}
