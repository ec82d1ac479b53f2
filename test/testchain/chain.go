// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package testchain wires a simulated chain, the contract bindings and a software passkey
// authenticator into a fixture for the account layer tests.
package testchain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/wjorgensen/OneWalletDemo/acct"
	"github.com/wjorgensen/OneWalletDemo/authorizer"
	"github.com/wjorgensen/OneWalletDemo/contract"
	"github.com/wjorgensen/OneWalletDemo/digest"
	"github.com/wjorgensen/OneWalletDemo/simulated"
	"github.com/wjorgensen/OneWalletDemo/test/datagen"
	"github.com/wjorgensen/OneWalletDemo/webauthn"
)

var (
	// DelegationAddress is where the simulated chain runs the delegation contract.
	DelegationAddress = common.HexToAddress("0x6bbce6b04736f9db8d3dbE509b87Da3BC1435439")
	// TokenAddress is where the simulated chain runs the example token.
	TokenAddress = common.HexToAddress("0x238c8CD93ee9F8c7Edf395548eF60c0d2e46665E")

	RelyingParty = webauthn.RelyingParty{ID: "localhost", Name: "OneWallet", Origin: "http://localhost:5173"}
)

// Chain represents a simulated chain together with everything needed to create and drive
// delegated accounts on it. Transactions are paid by a random sponsor.
type Chain struct {
	backend       *simulated.Backend
	sponsor       *ecdsa.PrivateKey
	client        *simulated.Client
	delegation    *contract.Delegation
	token         *contract.ERC20
	signer        *authorizer.Signer
	provider      *webauthn.Bridge
	authenticator *webauthn.SoftAuthenticator
}

// New creates a Chain over a fresh backend configured with opts.
func New(opts ...simulated.Option) (*Chain, error) {
	backend := simulated.NewBackend(DelegationAddress, opts...)
	backend.DeployERC20(TokenAddress, "Experiment Token", "EXP", 18)

	sponsor := datagen.RandKey()
	client := backend.Client(crypto.PubkeyToAddress(sponsor.PublicKey))

	delegation, err := contract.NewDelegation(client, DelegationAddress)
	if err != nil {
		return nil, fmt.Errorf("unable to bind delegation: %w", err)
	}
	token, err := contract.NewERC20(client, TokenAddress)
	if err != nil {
		return nil, fmt.Errorf("unable to bind token: %w", err)
	}
	provider, authenticator := webauthn.NewSoftProvider(RelyingParty)

	return &Chain{
		backend:       backend,
		sponsor:       sponsor,
		client:        client,
		delegation:    delegation,
		token:         token,
		signer:        authorizer.New(client, delegation),
		provider:      provider,
		authenticator: authenticator,
	}, nil
}

// NewDefault creates a Chain with the default backend options.
func NewDefault() (*Chain, error) {
	return New()
}

func (c *Chain) Backend() *simulated.Backend                { return c.backend }
func (c *Chain) Client() *simulated.Client                  { return c.client }
func (c *Chain) Delegation() *contract.Delegation           { return c.delegation }
func (c *Chain) Token() *contract.ERC20                     { return c.token }
func (c *Chain) Signer() *authorizer.Signer                 { return c.signer }
func (c *Chain) Provider() *webauthn.Bridge                 { return c.provider }
func (c *Chain) Authenticator() *webauthn.SoftAuthenticator { return c.authenticator }

// NewAccount creates a passkey and a native key and authorizes the passkey at slot 0 of the
// freshly delegated account, bypassing the lifecycle manager.
func (c *Chain) NewAccount(ctx context.Context, expiry *big.Int) (*acct.Account, *ecdsa.PrivateKey, error) {
	key := datagen.RandKey()
	address := crypto.PubkeyToAddress(key.PublicKey)

	cred, err := c.provider.CreateCredential(ctx, webauthn.User{
		ID:          address.Bytes(),
		Name:        "test",
		DisplayName: "test",
	})
	if err != nil {
		return nil, nil, err
	}
	hash, err := c.signer.Authorize(ctx, key, cred.PublicKey, expiry)
	if err != nil {
		return nil, nil, err
	}
	if _, err := c.client.WaitForReceipt(ctx, hash); err != nil {
		return nil, nil, err
	}
	return &acct.Account{
		Address:             address,
		AuthorizationTxHash: &hash,
		Key:                 acct.Key{ID: cred.ID, Index: 0, PublicKey: cred.PublicKey},
	}, key, nil
}

// Execute signs calls with the chain's passkey provider at the account's current nonce and waits
// for their inclusion.
func (c *Chain) Execute(ctx context.Context, account *acct.Account, calls ...acct.Call) error {
	nonce, err := c.delegation.Nonce(ctx, account.Address)
	if err != nil {
		return err
	}
	encoded, err := digest.EncodeCalls(calls)
	if err != nil {
		return err
	}
	hash, err := digest.ExecuteDigest(nonce, encoded)
	if err != nil {
		return err
	}
	assertion, err := c.provider.Sign(ctx, hash[:], account.Key.ID)
	if err != nil {
		return err
	}
	sig, err := acct.NewP256Signature(assertion.Signature)
	if err != nil {
		return err
	}
	tx, err := c.delegation.Execute(ctx, account.Address, encoded, sig, assertion.Metadata, account.Key.Index, false)
	if err != nil {
		return err
	}
	_, err = c.client.WaitForReceipt(ctx, tx)
	return err
}
