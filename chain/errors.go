// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chain

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/wjorgensen/OneWalletDemo/acct"
)

// ReasonReverted is used when a transaction failed without revert data.
const ReasonReverted = "execution reverted"

// RevertError builds a chain error from raw revert data, decoding Error(string) and Panic(uint256)
// payloads. Custom errors are left to the contract binding which knows the ABI.
func RevertError(data []byte, txHash *common.Hash, cause error) *acct.ChainError {
	return &acct.ChainError{
		Reason: UnpackRevert(data),
		Data:   data,
		TxHash: txHash,
		Err:    cause,
	}
}

// UnpackRevert returns a readable reason for standard revert payloads and an empty string otherwise.
func UnpackRevert(data []byte) string {
	if len(data) == 0 {
		return ReasonReverted
	}
	// Error(string) and Panic(uint256)
	if reason, err := abi.UnpackRevert(data); err == nil {
		return reason
	}
	return ""
}

// FromRPCError converts an execution reverted RPC error into *acct.ChainError. Other errors are
// returned unchanged.
func FromRPCError(err error, txHash *common.Hash) error {
	if err == nil {
		return nil
	}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if s, ok := dataErr.ErrorData().(string); ok {
			if data, decodeErr := hexutil.Decode(s); decodeErr == nil {
				return RevertError(data, txHash, err)
			}
		}
	}
	if strings.Contains(err.Error(), ReasonReverted) {
		return RevertError(nil, txHash, err)
	}
	return err
}
