// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package acct holds the data model shared by every layer of a passkey controlled, EIP-7702
// delegated account: the account itself, its WebAuthn key, call batches and signatures.
package acct

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// KeyTypeWebAuthnP256 is the key type tag the delegation contract uses for WebAuthn P-256 keys.
const KeyTypeWebAuthnP256 uint8 = 1

// PublicKey is an uncompressed P-256 public key.
type PublicKey struct {
	X *big.Int
	Y *big.Int
}

// IsZero reports whether both coordinates are absent or zero, which is how the contract
// represents an empty key slot.
func (p PublicKey) IsZero() bool {
	return (p.X == nil || p.X.Sign() == 0) && (p.Y == nil || p.Y.Sign() == 0)
}

// Equal reports whether p and other describe the same point.
func (p PublicKey) Equal(other PublicKey) bool {
	return cmpInt(p.X, other.X) == 0 && cmpInt(p.Y, other.Y) == 0
}

func (p PublicKey) String() string {
	return "(" + intString(p.X) + ", " + intString(p.Y) + ")"
}

// Key is the WebAuthn credential authorized on the delegated account.
type Key struct {
	// ID is the credential id, base64url encoded without padding.
	ID string
	// Index is the slot of the key in the contract's key registry.
	Index     uint32
	PublicKey PublicKey
}

// Account is an EOA upgraded through an EIP-7702 delegation.
type Account struct {
	Address common.Address
	// AuthorizationTxHash is only set on an account returned by create.
	AuthorizationTxHash *common.Hash
	Key                 Key
}

// Call is one element of an execution batch.
type Call struct {
	To    common.Address
	Value *big.Int
	Data  []byte
}

// ValueOrZero returns the call value, treating nil as zero.
func (c Call) ValueOrZero() *big.Int {
	if c.Value == nil {
		return new(big.Int)
	}
	return c.Value
}

// RecoverableSignature is a secp256k1 signature produced by the account's native key.
type RecoverableSignature struct {
	R       *big.Int
	S       *big.Int
	YParity uint8
}

// NewRecoverableSignature splits a 65 byte [R || S || V] signature with V in {0, 1}.
func NewRecoverableSignature(sig []byte) (*RecoverableSignature, error) {
	if len(sig) != 65 {
		return nil, NewEncodingError("signature", "expected 65 bytes")
	}
	if sig[64] > 1 {
		return nil, NewEncodingError("signature", "invalid recovery id")
	}
	return &RecoverableSignature{
		R:       new(big.Int).SetBytes(sig[:32]),
		S:       new(big.Int).SetBytes(sig[32:64]),
		YParity: sig[64],
	}, nil
}

// P256Signature is a WebAuthn signature split into its scalars.
type P256Signature struct {
	R *big.Int
	S *big.Int
}

// NewP256Signature splits a 64 byte [R || S] signature.
func NewP256Signature(sig []byte) (*P256Signature, error) {
	if len(sig) != 64 {
		return nil, NewEncodingError("signature", "expected 64 bytes")
	}
	return &P256Signature{
		R: new(big.Int).SetBytes(sig[:32]),
		S: new(big.Int).SetBytes(sig[32:]),
	}, nil
}

func cmpInt(a, b *big.Int) int {
	if a == nil {
		a = new(big.Int)
	}
	if b == nil {
		b = new(big.Int)
	}
	return a.Cmp(b)
}

func intString(i *big.Int) string {
	if i == nil {
		return "0"
	}
	return i.String()
}
