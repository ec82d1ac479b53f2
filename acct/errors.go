// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package acct

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrUserCancelled is returned when the credential prompt was declined.
	ErrUserCancelled = errors.New("user cancelled")
	// ErrChainRejected is returned when the delegation contract reverted.
	ErrChainRejected = errors.New("chain rejected")
	// ErrAccountNotFound is returned when no authorized key could be found for a credential.
	ErrAccountNotFound = errors.New("account not found")
	// ErrEncoding is returned for values which cannot be packed or batches which cannot be decoded.
	ErrEncoding = errors.New("encoding error")
)

// ChainError carries the reason the chain gave for rejecting a call or transaction.
type ChainError struct {
	// Reason is the decoded custom error name or revert string, may be empty.
	Reason string
	// Data is the raw revert data when the node returned it.
	Data   []byte
	TxHash *common.Hash
	Err    error
}

func (e *ChainError) Error() string {
	msg := "chain rejected"
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.TxHash != nil {
		msg += " (tx " + e.TxHash.Hex() + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ChainError) Is(target error) bool { return target == ErrChainRejected }

func (e *ChainError) Unwrap() error { return e.Err }

// EncodingError describes a field that could not be encoded or decoded.
type EncodingError struct {
	Field  string
	Reason string
}

// NewEncodingError creates an encoding error for the given field.
func NewEncodingError(field, reason string) *EncodingError {
	return &EncodingError{Field: field, Reason: reason}
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding error: %s: %s", e.Field, e.Reason)
}

func (e *EncodingError) Is(target error) bool { return target == ErrEncoding }
