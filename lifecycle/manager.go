// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package lifecycle creates delegated accounts controlled by a passkey and loads existing ones
// back from a passkey assertion.
package lifecycle

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/wjorgensen/OneWalletDemo/acct"
	"github.com/wjorgensen/OneWalletDemo/authorizer"
	"github.com/wjorgensen/OneWalletDemo/chain"
	"github.com/wjorgensen/OneWalletDemo/contract"
	"github.com/wjorgensen/OneWalletDemo/log"
	"github.com/wjorgensen/OneWalletDemo/webauthn"
)

var logger = log.WithContext("pkg", "lifecycle")

// DefaultUserNamePrefix names the passkeys created for new accounts.
const DefaultUserNamePrefix = "Example Delegation"

// KeySource produces the native key of a new account.
type KeySource func() (*ecdsa.PrivateKey, error)

// Options tunes a Manager. The zero value is usable.
type Options struct {
	// KeySource defaults to a random key.
	KeySource      KeySource
	UserNamePrefix string
	// Expiry of the key authorized at creation, nil or zero for a key that never expires.
	Expiry *big.Int
	// KeyScanLimit is the number of key slots Load inspects, starting at slot 0. Zero means one.
	KeyScanLimit uint32
	Clock        func() time.Time
}

// Manager creates and loads accounts.
type Manager struct {
	provider   webauthn.Provider
	signer     *authorizer.Signer
	delegation *contract.Delegation
	client     chain.Client
	opts       Options
}

// New returns a Manager creating accounts through signer and loading them through delegation.
func New(
	provider webauthn.Provider,
	signer *authorizer.Signer,
	delegation *contract.Delegation,
	client chain.Client,
	opts Options,
) *Manager {
	if opts.KeySource == nil {
		opts.KeySource = crypto.GenerateKey
	}
	if opts.UserNamePrefix == "" {
		opts.UserNamePrefix = DefaultUserNamePrefix
	}
	if opts.KeyScanLimit == 0 {
		opts.KeyScanLimit = 1
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Manager{
		provider:   provider,
		signer:     signer,
		delegation: delegation,
		client:     client,
		opts:       opts,
	}
}

// UserName returns the passkey user name of address, "<prefix> (0x123456…abcdef)".
func UserName(prefix string, address common.Address) string {
	const start, end = 8, 6
	s := address.Hex()
	return prefix + " (" + s[:start] + "…" + s[len(s)-end:] + ")"
}

// Create generates a native key, registers a passkey for its address and authorizes the passkey on
// the freshly delegated account. It returns once the authorization is included. The native key
// never leaves this call.
func (m *Manager) Create(ctx context.Context) (account *acct.Account, err error) {
	defer func() {
		metricCreateCount().AddWithLabel(1, map[string]string{"result": result(err)})
	}()

	key, err := m.opts.KeySource()
	if err != nil {
		return nil, errors.Wrap(err, "generate key")
	}
	defer zeroKey(key)
	address := crypto.PubkeyToAddress(key.PublicKey)

	name := UserName(m.opts.UserNamePrefix, address)
	cred, err := m.provider.CreateCredential(ctx, webauthn.User{
		ID:          address.Bytes(),
		Name:        name,
		DisplayName: name,
	})
	if err != nil {
		return nil, errors.WithMessage(err, "create credential")
	}

	hash, err := m.signer.Authorize(ctx, key, cred.PublicKey, m.opts.Expiry)
	if err != nil {
		return nil, errors.WithMessage(err, "authorize")
	}
	if _, err := m.client.WaitForReceipt(ctx, hash); err != nil {
		return nil, errors.WithMessage(m.delegation.DecodeError(err), "authorize receipt")
	}

	logger.Info("account created", "account", address, "credential", cred.ID, "tx", hash)
	return &acct.Account{
		Address:             address,
		AuthorizationTxHash: &hash,
		Key: acct.Key{
			ID:        cred.ID,
			Index:     0,
			PublicKey: cred.PublicKey,
		},
	}, nil
}

// Load asks for an assertion from any passkey of the relying party, resolves the account from its
// user handle and returns the first usable key slot whose public key verifies the assertion.
func (m *Manager) Load(ctx context.Context) (account *acct.Account, err error) {
	defer func() {
		metricLoadCount().AddWithLabel(1, map[string]string{"result": result(err)})
	}()

	challenge := []byte{}
	assertion, err := m.provider.Sign(ctx, challenge, "")
	if err != nil {
		return nil, errors.WithMessage(err, "sign")
	}
	if len(assertion.UserHandle) != common.AddressLength {
		return nil, errors.Wrapf(acct.ErrAccountNotFound, "user handle of %d bytes", len(assertion.UserHandle))
	}
	address := common.BytesToAddress(assertion.UserHandle)

	now := m.opts.Clock()
	for index := uint32(0); index < m.opts.KeyScanLimit; index++ {
		record, err := m.delegation.Keys(ctx, address, index)
		if err != nil {
			return nil, errors.WithMessagef(err, "read key %d", index)
		}
		if !record.Usable(now) {
			if !record.Authorized && record.PublicKey.IsZero() {
				// past the last slot
				break
			}
			logger.Debug("key slot not usable", "account", address, "index", index, "authorized", record.Authorized, "expiry", record.Expiry)
			continue
		}
		if err := webauthn.Verify(record.PublicKey, challenge, assertion); err != nil {
			logger.Debug("key slot does not match credential", "account", address, "index", index, "err", err)
			continue
		}

		logger.Info("account loaded", "account", address, "credential", assertion.CredentialID, "index", index)
		return &acct.Account{
			Address: address,
			Key: acct.Key{
				ID:        assertion.CredentialID,
				Index:     index,
				PublicKey: record.PublicKey,
			},
		}, nil
	}
	return nil, errors.Wrapf(acct.ErrAccountNotFound, "no usable key for %s", address.Hex())
}

// zeroKey zeroes a private key in memory. The scalar is reset so it reads back as zero.
func zeroKey(k *ecdsa.PrivateKey) {
	clear(k.D.Bits())
	k.D.SetInt64(0)
}

func result(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, acct.ErrUserCancelled):
		return "cancelled"
	case errors.Is(err, acct.ErrAccountNotFound):
		return "not_found"
	case errors.Is(err, acct.ErrChainRejected):
		return "rejected"
	default:
		return "error"
	}
}
