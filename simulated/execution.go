// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package simulated

import (
	"crypto/sha256"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/wjorgensen/OneWalletDemo/acct"
	"github.com/wjorgensen/OneWalletDemo/contract"
	"github.com/wjorgensen/OneWalletDemo/digest"
	"github.com/wjorgensen/OneWalletDemo/webauthn"
)

const maxCallDepth = 16

var (
	errorSelector = crypto.Keccak256([]byte("Error(string)"))[:4]
	stringType, _ = abi.NewType("string", "", nil)
)

// revert carries the revert data of a failed call.
type revert struct {
	data []byte
}

func (r *revert) Error() string { return "execution reverted" }

func revertWithError(a *abi.ABI, name string) *revert {
	id := a.Errors[name].ID
	return &revert{data: append([]byte{}, id[:4]...)}
}

func revertWithReason(reason string) *revert {
	data, _ := abi.Arguments{{Type: stringType}}.Pack(reason)
	return &revert{data: append(append([]byte{}, errorSelector...), data...)}
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

// execution runs a single message call tree over a private copy of the state.
type execution struct {
	backend *Backend
	state   *state
	logs    []*types.Log
	depth   int
}

func (e *execution) call(sender, to common.Address, value *big.Int, data []byte) ([]byte, error) {
	if e.depth >= maxCallDepth {
		return nil, revertWithReason("call depth exceeded")
	}
	e.depth++
	defer func() { e.depth-- }()

	if t, ok := e.state.tokens[to]; ok {
		return e.token(t, to, sender, data)
	}
	if e.backend.isDelegated(e.state, to) {
		return e.delegation(to, sender, data)
	}
	// no code, plain transfer
	return nil, nil
}

func (e *execution) delegation(self, sender common.Address, data []byte) ([]byte, error) {
	dabi := &e.backend.delegationABI
	if len(data) < 4 {
		return nil, nil
	}
	method, err := dabi.MethodById(data[:4])
	if err != nil {
		// fallback
		return nil, nil
	}
	values, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, &revert{}
	}
	acc := e.state.account(self)

	switch method.Sig {
	case "keys(uint256)":
		index := values[0].(*big.Int)
		slot := keySlot{expiry: new(big.Int), publicKey: acct.PublicKey{X: new(big.Int), Y: new(big.Int)}}
		if index.IsUint64() && index.Uint64() < uint64(len(acc.keys)) {
			slot = acc.keys[index.Uint64()]
		}
		return method.Outputs.Pack(slot.authorized, slot.expiry, slot.keyType,
			publicKeyArg{X: slot.publicKey.X, Y: slot.publicKey.Y})

	case contract.NonceMethod + "()", contract.ExecuteNonceMethod + "()":
		return method.Outputs.Pack(new(big.Int).Set(acc.nonce))

	case contract.SigAuthorizeSigned:
		var in struct {
			PublicKey publicKeyArg
			KeyType   uint8
			Expiry    *big.Int
			Signature recoveredSignatureArg
		}
		if err := method.Inputs.Copy(&in, values); err != nil {
			return nil, &revert{}
		}
		pub := acct.PublicKey{X: in.PublicKey.X, Y: in.PublicKey.Y}
		hash, err := digest.AuthorizeDigest(acc.nonce, pub, in.Expiry)
		if err != nil || !signedBy(self, hash, in.Signature) {
			return nil, revertWithError(dabi, "InvalidSignature")
		}
		acc.nonce.Add(acc.nonce, common.Big1)
		return method.Outputs.Pack(addKey(acc, pub, in.KeyType, in.Expiry))

	case contract.SigAuthorize:
		if sender != self {
			return nil, revertWithError(dabi, "InvalidAuthority")
		}
		var in struct {
			PublicKey publicKeyArg
			KeyType   uint8
			Expiry    *big.Int
		}
		if err := method.Inputs.Copy(&in, values); err != nil {
			return nil, &revert{}
		}
		pub := acct.PublicKey{X: in.PublicKey.X, Y: in.PublicKey.Y}
		return method.Outputs.Pack(addKey(acc, pub, in.KeyType, in.Expiry))

	case contract.SigExecuteWithWebAuthn:
		var in struct {
			Calls     []byte
			Signature signatureArg
			Metadata  metadataArg
			KeyIndex  uint32
			Prehash   bool
		}
		if err := method.Inputs.Copy(&in, values); err != nil {
			return nil, &revert{}
		}
		slot, rev := e.usableKey(acc, in.KeyIndex)
		if rev != nil {
			return nil, rev
		}
		hash, err := digest.ExecuteDigest(acc.nonce, in.Calls)
		if err != nil {
			return nil, revertWithError(dabi, "InvalidSignature")
		}
		challenge := hash[:]
		if in.Prehash {
			sum := sha256.Sum256(hash[:])
			challenge = sum[:]
		}
		sig := make([]byte, 64)
		in.Signature.R.FillBytes(sig[:32])
		in.Signature.S.FillBytes(sig[32:])
		assertion := &webauthn.Assertion{Signature: sig, Metadata: webauthn.Metadata(in.Metadata)}
		if err := webauthn.Verify(slot.publicKey, challenge, assertion); err != nil {
			logger.Debug("execute rejected", "account", self, "nonce", acc.nonce, "err", err)
			return nil, revertWithError(dabi, "InvalidSignature")
		}
		acc.nonce.Add(acc.nonce, common.Big1)
		return nil, e.run(self, in.Calls)

	case contract.SigExecute, "multiSend(bytes)":
		if sender != self {
			return nil, revertWithError(dabi, "InvalidAuthority")
		}
		return nil, e.run(self, values[0].([]byte))

	case contract.SigRevoke:
		if sender != self {
			return nil, revertWithError(dabi, "InvalidAuthority")
		}
		return nil, e.revoke(acc, values[0].(uint32))

	case contract.SigRevokeSigned:
		var in struct {
			KeyIndex  uint32
			Signature recoveredSignatureArg
		}
		if err := method.Inputs.Copy(&in, values); err != nil {
			return nil, &revert{}
		}
		hash, err := digest.RevokeDigest(acc.nonce, in.KeyIndex)
		if err != nil || !signedBy(self, hash, in.Signature) {
			return nil, revertWithError(dabi, "InvalidSignature")
		}
		acc.nonce.Add(acc.nonce, common.Big1)
		return nil, e.revoke(acc, in.KeyIndex)
	}
	return nil, nil
}

func (e *execution) usableKey(acc *account, index uint32) (keySlot, error) {
	dabi := &e.backend.delegationABI
	if int(index) >= len(acc.keys) || !acc.keys[index].authorized {
		return keySlot{}, revertWithError(dabi, "KeyNotAuthorized")
	}
	slot := acc.keys[index]
	if slot.expiry.Sign() > 0 && slot.expiry.Cmp(big.NewInt(e.backend.now().Unix())) <= 0 {
		return keySlot{}, revertWithError(dabi, "KeyExpired")
	}
	return slot, nil
}

func (e *execution) revoke(acc *account, index uint32) error {
	if int(index) >= len(acc.keys) {
		return revertWithError(&e.backend.delegationABI, "KeyNotAuthorized")
	}
	acc.keys[index].authorized = false
	return nil
}

// run executes an encoded call batch on behalf of self. Any failing call reverts the batch.
func (e *execution) run(self common.Address, encoded []byte) error {
	calls, err := digest.DecodeCalls(encoded)
	if err != nil {
		return revertWithReason("invalid calls")
	}
	for _, c := range calls {
		if _, err := e.call(self, c.To, c.ValueOrZero(), c.Data); err != nil {
			return err
		}
	}
	return nil
}

func addKey(acc *account, pub acct.PublicKey, keyType uint8, expiry *big.Int) uint32 {
	acc.keys = append(acc.keys, keySlot{
		authorized: true,
		expiry:     new(big.Int).Set(expiry),
		keyType:    keyType,
		publicKey:  acct.PublicKey{X: new(big.Int).Set(pub.X), Y: new(big.Int).Set(pub.Y)},
	})
	return uint32(len(acc.keys) - 1)
}

// signedBy reports whether sig is a raw secp256k1 signature of hash by addr.
func signedBy(addr common.Address, hash common.Hash, sig recoveredSignatureArg) bool {
	if sig.YParity > 1 {
		return false
	}
	raw := make([]byte, crypto.SignatureLength)
	sig.R.FillBytes(raw[:32])
	sig.S.FillBytes(raw[32:64])
	raw[64] = sig.YParity
	pub, err := crypto.SigToPub(hash[:], raw)
	if err != nil {
		return false
	}
	return crypto.PubkeyToAddress(*pub) == addr
}
