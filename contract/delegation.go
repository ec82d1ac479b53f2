// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package contract

import (
	"context"
	_ "embed"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"

	"github.com/wjorgensen/OneWalletDemo/acct"
	"github.com/wjorgensen/OneWalletDemo/chain"
	"github.com/wjorgensen/OneWalletDemo/webauthn"
)

//go:embed abi/delegation.abi.json
var delegationABI []byte

// Canonical signatures of the overloaded delegation methods.
const (
	SigAuthorize           = "authorize((uint256,uint256),uint8,uint256)"
	SigAuthorizeSigned     = "authorize((uint256,uint256),uint8,uint256,(uint256,uint256,uint8))"
	SigExecute             = "execute(bytes)"
	SigExecuteWithWebAuthn = "execute(bytes,(uint256,uint256),(bytes,string,uint16,uint16,bool),uint32,bool)"
	SigRevoke              = "revoke(uint32)"
	SigRevokeSigned        = "revoke(uint32,(uint256,uint256,uint8))"
)

// Nonce getters exposed by the known deployments of the delegation contract.
const (
	NonceMethod        = "nonce"
	ExecuteNonceMethod = "executeNonce"
)

// DelegationABI returns the raw ABI of the delegation contract.
func DelegationABI() []byte {
	return delegationABI
}

type publicKeyArg struct {
	X *big.Int
	Y *big.Int
}

type recoveredSignatureArg struct {
	R       *big.Int
	S       *big.Int
	YParity uint8
}

type signatureArg struct {
	R *big.Int
	S *big.Int
}

type metadataArg struct {
	AuthenticatorData        []byte
	ClientDataJSON           string
	ChallengeIndex           uint16
	TypeIndex                uint16
	UserVerificationRequired bool
}

// KeyRecord is a slot of the delegation contract's key registry.
type KeyRecord struct {
	Authorized bool
	// Expiry is a unix timestamp in seconds, zero for keys that never expire.
	Expiry    *big.Int
	KeyType   uint8
	PublicKey acct.PublicKey
}

// Expired reports whether the key has an expiry at or before now.
func (k *KeyRecord) Expired(now time.Time) bool {
	if k.Expiry == nil || k.Expiry.Sign() == 0 {
		return false
	}
	return k.Expiry.Cmp(big.NewInt(now.Unix())) <= 0
}

// Usable reports whether the slot holds an authorized, unexpired, non-empty key.
func (k *KeyRecord) Usable(now time.Time) bool {
	return k.Authorized && !k.Expired(now) && !k.PublicKey.IsZero()
}

// Delegation is a type-safe wrapper of the delegation contract. Reads and writes are addressed
// to the delegated account itself, the implementation address is only used for EIP-7702
// authorizations.
type Delegation struct {
	contract    *Contract
	nonceMethod string
}

// NewDelegation binds the delegation contract deployed at implementation.
func NewDelegation(client chain.Client, implementation common.Address) (*Delegation, error) {
	contract, err := NewContract(client, delegationABI, implementation)
	if err != nil {
		return nil, err
	}
	return &Delegation{
		contract:    contract,
		nonceMethod: ExecuteNonceMethod,
	}, nil
}

// WithNonceMethod returns a copy reading the execution nonce through method.
func (d *Delegation) WithNonceMethod(method string) *Delegation {
	return &Delegation{
		contract:    d.contract,
		nonceMethod: method,
	}
}

// Implementation returns the address accounts delegate to.
func (d *Delegation) Implementation() common.Address {
	return d.contract.Address()
}

func (d *Delegation) Raw() *Contract {
	return d.contract
}

// At returns the binding of the delegated account.
func (d *Delegation) At(account common.Address) *Contract {
	return d.contract.At(account)
}

// Keys reads the key slot index of account. An account which is not delegated reads as an empty
// slot.
func (d *Delegation) Keys(ctx context.Context, account common.Address, index uint32) (*KeyRecord, error) {
	var out struct {
		Authorized bool
		Expiry     *big.Int
		KeyType    uint8
		PublicKey  publicKeyArg
	}
	err := d.At(account).Method("keys", new(big.Int).SetUint64(uint64(index))).CallInto(ctx, &out)
	if errors.Is(err, ErrNoResult) {
		return &KeyRecord{Expiry: new(big.Int), PublicKey: acct.PublicKey{X: new(big.Int), Y: new(big.Int)}}, nil
	}
	if err != nil {
		return nil, err
	}
	return &KeyRecord{
		Authorized: out.Authorized,
		Expiry:     out.Expiry,
		KeyType:    out.KeyType,
		PublicKey:  acct.PublicKey{X: out.PublicKey.X, Y: out.PublicKey.Y},
	}, nil
}

// Nonce reads the execution nonce of account.
func (d *Delegation) Nonce(ctx context.Context, account common.Address) (*big.Int, error) {
	values, err := d.At(account).Method(d.nonceMethod).Call(ctx)
	if err != nil {
		return nil, err
	}
	return abi.ConvertType(values[0], new(big.Int)).(*big.Int), nil
}

func (d *Delegation) authorizeMethod(account common.Address, pub acct.PublicKey, expiry *big.Int, sig *acct.RecoverableSignature) *MethodBuilder {
	key := publicKeyArg{X: orZero(pub.X), Y: orZero(pub.Y)}
	if sig == nil {
		return d.At(account).Method(SigAuthorize, key, acct.KeyTypeWebAuthnP256, orZero(expiry))
	}
	return d.At(account).Method(SigAuthorizeSigned, key, acct.KeyTypeWebAuthnP256, orZero(expiry),
		recoveredSignatureArg{R: orZero(sig.R), S: orZero(sig.S), YParity: sig.YParity})
}

// AuthorizeCalldata encodes an authorize call. With a nil signature the self-call overload is
// used, which the contract only accepts from the account itself.
func (d *Delegation) AuthorizeCalldata(pub acct.PublicKey, expiry *big.Int, sig *acct.RecoverableSignature) ([]byte, error) {
	return d.authorizeMethod(common.Address{}, pub, expiry, sig).Calldata()
}

// Authorize submits a signed authorize call to account with authList attached.
func (d *Delegation) Authorize(
	ctx context.Context,
	account common.Address,
	pub acct.PublicKey,
	expiry *big.Int,
	sig *acct.RecoverableSignature,
	authList ...types.SetCodeAuthorization,
) (common.Hash, error) {
	return d.authorizeMethod(account, pub, expiry, sig).WithAuthorizationList(authList...).Send(ctx)
}

func (d *Delegation) executeMethod(
	account common.Address,
	calls []byte,
	sig *acct.P256Signature,
	meta webauthn.Metadata,
	keyIndex uint32,
	prehash bool,
) *MethodBuilder {
	if calls == nil {
		calls = []byte{}
	}
	authData := meta.AuthenticatorData
	if authData == nil {
		authData = []byte{}
	}
	return d.At(account).Method(SigExecuteWithWebAuthn,
		calls,
		signatureArg{R: orZero(sig.R), S: orZero(sig.S)},
		metadataArg{
			AuthenticatorData:        authData,
			ClientDataJSON:           meta.ClientDataJSON,
			ChallengeIndex:           meta.ChallengeIndex,
			TypeIndex:                meta.TypeIndex,
			UserVerificationRequired: meta.UserVerificationRequired,
		},
		keyIndex,
		prehash,
	)
}

// ExecuteCalldata encodes a WebAuthn signed execute call over already encoded calls.
func (d *Delegation) ExecuteCalldata(calls []byte, sig *acct.P256Signature, meta webauthn.Metadata, keyIndex uint32, prehash bool) ([]byte, error) {
	return d.executeMethod(common.Address{}, calls, sig, meta, keyIndex, prehash).Calldata()
}

// Execute submits a WebAuthn signed batch to account.
func (d *Delegation) Execute(
	ctx context.Context,
	account common.Address,
	calls []byte,
	sig *acct.P256Signature,
	meta webauthn.Metadata,
	keyIndex uint32,
	prehash bool,
) (common.Hash, error) {
	return d.executeMethod(account, calls, sig, meta, keyIndex, prehash).Send(ctx)
}

// RevokeCalldata encodes a revoke call. A nil signature selects the self-call overload, which is
// how a key is revoked from inside an executed batch.
func (d *Delegation) RevokeCalldata(keyIndex uint32, sig *acct.RecoverableSignature) ([]byte, error) {
	if sig == nil {
		return d.contract.Method(SigRevoke, keyIndex).Calldata()
	}
	return d.contract.Method(SigRevokeSigned, keyIndex,
		recoveredSignatureArg{R: orZero(sig.R), S: orZero(sig.S), YParity: sig.YParity}).Calldata()
}

// Revoke submits a revoke call signed by the account's native key.
func (d *Delegation) Revoke(ctx context.Context, account common.Address, keyIndex uint32, sig *acct.RecoverableSignature) (common.Hash, error) {
	return d.At(account).Method(SigRevokeSigned, keyIndex,
		recoveredSignatureArg{R: orZero(sig.R), S: orZero(sig.S), YParity: sig.YParity}).Send(ctx)
}

// DecodeError names the custom error carried by a revert of the delegation contract.
func (d *Delegation) DecodeError(err error) error {
	return d.contract.DecodeError(err)
}

func orZero(i *big.Int) *big.Int {
	if i == nil {
		return new(big.Int)
	}
	return i
}
