// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package authorizer signs with an account's native secp256k1 key: the digest authorizing a
// passkey on the delegation contract and the EIP-7702 tuple delegating the account to it.
package authorizer

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/wjorgensen/OneWalletDemo/acct"
	"github.com/wjorgensen/OneWalletDemo/chain"
	"github.com/wjorgensen/OneWalletDemo/contract"
	"github.com/wjorgensen/OneWalletDemo/digest"
	"github.com/wjorgensen/OneWalletDemo/log"
)

var logger = log.WithContext("pkg", "authorizer")

// Signer produces and submits authorizations for fresh accounts.
type Signer struct {
	client     chain.Client
	delegation *contract.Delegation
}

// New returns a Signer submitting through client against the delegation binding.
func New(client chain.Client, delegation *contract.Delegation) *Signer {
	return &Signer{
		client:     client,
		delegation: delegation,
	}
}

// Target returns the address accounts are delegated to.
func (s *Signer) Target() common.Address {
	return s.delegation.Implementation()
}

// SignAuthorize signs the authorize digest of a fresh account, whose delegation nonce is zero.
// The digest is signed raw, without the personal message prefix.
func (s *Signer) SignAuthorize(key *ecdsa.PrivateKey, pub acct.PublicKey, expiry *big.Int) (*acct.RecoverableSignature, common.Hash, error) {
	hash, err := digest.AuthorizeDigest(common.Big0, pub, expiry)
	if err != nil {
		return nil, common.Hash{}, err
	}
	sig, err := sign(hash, key)
	if err != nil {
		return nil, common.Hash{}, err
	}
	return sig, hash, nil
}

// SignRevoke signs the digest revoking keyIndex at the given delegation nonce.
func (s *Signer) SignRevoke(key *ecdsa.PrivateKey, nonce *big.Int, keyIndex uint32) (*acct.RecoverableSignature, error) {
	hash, err := digest.RevokeDigest(nonce, keyIndex)
	if err != nil {
		return nil, err
	}
	return sign(hash, key)
}

// SignDelegation signs the EIP-7702 tuple delegating key's account to the delegation contract.
// The tuple carries the account's current transaction nonce since the account is not the sender
// of the transaction it is attached to.
func (s *Signer) SignDelegation(ctx context.Context, key *ecdsa.PrivateKey) (types.SetCodeAuthorization, error) {
	address := crypto.PubkeyToAddress(key.PublicKey)

	chainID, err := s.client.ChainID(ctx)
	if err != nil {
		return types.SetCodeAuthorization{}, errors.WithMessage(err, "chain id")
	}
	id, overflow := uint256.FromBig(chainID)
	if overflow {
		return types.SetCodeAuthorization{}, acct.NewEncodingError("chainId", "integer exceeds 256 bits")
	}
	nonce, err := s.client.NonceAt(ctx, address)
	if err != nil {
		return types.SetCodeAuthorization{}, errors.WithMessage(err, "account nonce")
	}
	auth, err := types.SignSetCode(key, types.SetCodeAuthorization{
		ChainID: *id,
		Address: s.Target(),
		Nonce:   nonce,
	})
	if err != nil {
		return types.SetCodeAuthorization{}, errors.Wrap(err, "sign delegation")
	}
	return auth, nil
}

// Authorize delegates key's account and authorizes pub on it in a single transaction addressed
// to the account. It returns once the transaction is submitted.
func (s *Signer) Authorize(ctx context.Context, key *ecdsa.PrivateKey, pub acct.PublicKey, expiry *big.Int) (common.Hash, error) {
	address := crypto.PubkeyToAddress(key.PublicKey)

	sig, _, err := s.SignAuthorize(key, pub, expiry)
	if err != nil {
		return common.Hash{}, err
	}
	auth, err := s.SignDelegation(ctx, key)
	if err != nil {
		return common.Hash{}, err
	}
	hash, err := s.delegation.Authorize(ctx, address, pub, expiry, sig, auth)
	if err != nil {
		return common.Hash{}, err
	}
	logger.Debug("authorize submitted", "account", address, "tx", hash, "delegation", s.Target(), "tupleNonce", auth.Nonce)
	return hash, nil
}

// Revoke revokes keyIndex with the account's native key.
func (s *Signer) Revoke(ctx context.Context, key *ecdsa.PrivateKey, keyIndex uint32) (common.Hash, error) {
	address := crypto.PubkeyToAddress(key.PublicKey)

	nonce, err := s.delegation.Nonce(ctx, address)
	if err != nil {
		return common.Hash{}, errors.WithMessage(err, "delegation nonce")
	}
	sig, err := s.SignRevoke(key, nonce, keyIndex)
	if err != nil {
		return common.Hash{}, err
	}
	hash, err := s.delegation.Revoke(ctx, address, keyIndex, sig)
	if err != nil {
		return common.Hash{}, err
	}
	logger.Debug("revoke submitted", "account", address, "key", keyIndex, "tx", hash)
	return hash, nil
}

func sign(hash common.Hash, key *ecdsa.PrivateKey) (*acct.RecoverableSignature, error) {
	sig, err := crypto.Sign(hash[:], key)
	if err != nil {
		return nil, errors.Wrap(err, "sign")
	}
	return acct.NewRecoverableSignature(sig)
}
