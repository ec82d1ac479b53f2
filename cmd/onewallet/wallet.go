// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"bufio"
	"context"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/wjorgensen/OneWalletDemo/acct"
	"github.com/wjorgensen/OneWalletDemo/authorizer"
	"github.com/wjorgensen/OneWalletDemo/chain"
	"github.com/wjorgensen/OneWalletDemo/config"
	"github.com/wjorgensen/OneWalletDemo/contract"
	"github.com/wjorgensen/OneWalletDemo/executor"
	"github.com/wjorgensen/OneWalletDemo/keygen"
	"github.com/wjorgensen/OneWalletDemo/lifecycle"
	"github.com/wjorgensen/OneWalletDemo/log"
	"github.com/wjorgensen/OneWalletDemo/store"
	"github.com/wjorgensen/OneWalletDemo/webauthn"
)

// wallet bundles the components a command works with.
type wallet struct {
	cfg        *config.Config
	client     chain.Client
	delegation *contract.Delegation
	token      *contract.ERC20
	signer     *authorizer.Signer
	lifecycle  *lifecycle.Manager
	executor   *executor.Executor
	store      *store.Store

	closers []func()
}

func (w *wallet) Close() {
	for i := len(w.closers) - 1; i >= 0; i-- {
		w.closers[i]()
	}
}

// newWallet binds the contracts and account layer over client. The store and provider are
// owned by the caller.
func newWallet(cfg *config.Config, client chain.Client, provider webauthn.Provider, st *store.Store) (*wallet, error) {
	delegation, err := contract.NewDelegation(client, cfg.Delegation)
	if err != nil {
		return nil, errors.Wrap(err, "bind delegation")
	}
	delegation = delegation.WithNonceMethod(cfg.NonceMethod)
	token, err := contract.NewERC20(client, cfg.Token)
	if err != nil {
		return nil, errors.Wrap(err, "bind token")
	}

	opts := lifecycle.Options{
		UserNamePrefix: cfg.UserNamePrefix,
		KeyScanLimit:   cfg.KeyScanLimit,
	}
	if cfg.Mnemonic != "" {
		opts.KeySource = keygen.PersistentSequence(cfg.Mnemonic, "", st)
	}
	signer := authorizer.New(client, delegation)

	return &wallet{
		cfg:        cfg,
		client:     client,
		delegation: delegation,
		token:      token,
		signer:     signer,
		lifecycle:  lifecycle.New(provider, signer, delegation, client, opts),
		executor:   executor.New(provider, delegation, client, executor.Options{Serialize: cfg.Serialize}),
		store:      st,
	}, nil
}

// openWallet connects to the configured chain and opens the account store and keyring under
// the data directory.
func openWallet(ctx *cli.Context, runCtx context.Context) (*wallet, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, errors.Wrap(err, "create data dir")
	}

	var opts []chain.Option
	opts = append(opts, chain.WithPollInterval(cfg.PollInterval))
	if cfg.SponsorKey != "" {
		key, err := keygen.FromHex(cfg.SponsorKey)
		if err != nil {
			return nil, errors.Wrap(err, "sponsor key")
		}
		opts = append(opts, chain.WithSponsor(key))
	}
	client, err := chain.Dial(runCtx, cfg.RPC, opts...)
	if err != nil {
		return nil, err
	}
	id, err := client.ChainID(runCtx)
	if err != nil {
		client.Close()
		return nil, errors.Wrap(err, "fetch chain id")
	}
	if id.Uint64() != cfg.ChainID {
		client.Close()
		return nil, errors.Errorf("connected to chain %v, configured for %d", id, cfg.ChainID)
	}

	auth, err := webauthn.OpenSoftAuthenticator(cfg.KeyringPath(), cfg.RelyingParty.Origin)
	if err != nil {
		client.Close()
		return nil, err
	}
	stdin := bufio.NewReader(os.Stdin)
	if !ctx.GlobalBool("yes") {
		if !isInteractive() {
			client.Close()
			return nil, errors.New("stdin is not a terminal, pass --yes to approve authenticator prompts")
		}
		auth.SetPrompt(terminalPrompt(stdin, os.Stderr))
		auth.SetChooser(terminalChooser(stdin, os.Stderr))
	}
	if ctx.String(accountFlag.Name) != "" {
		address, err := parseAddress(ctx.String(accountFlag.Name))
		if err != nil {
			client.Close()
			return nil, errors.Wrap(err, "--account")
		}
		auth.SetChooser(addressChooser(address))
	}

	st, err := store.Open(cfg.StorePath(), store.Options{})
	if err != nil {
		client.Close()
		return nil, err
	}

	w, err := newWallet(cfg, client, webauthn.NewBridge(auth, cfg.RelyingParty), st)
	if err != nil {
		st.Close()
		client.Close()
		return nil, err
	}
	w.closers = append(w.closers, client.Close, func() {
		if err := st.Close(); err != nil {
			log.Warn("failed to close account store", "err", err)
		}
	})
	log.Debug("wallet opened", "rpc", cfg.RPC, "chainId", cfg.ChainID, "dataDir", cfg.DataDir)
	return w, nil
}

// account resolves --account against the store, falling back to the default account.
func (w *wallet) account(ctx *cli.Context) (*acct.Account, error) {
	if s := ctx.String(accountFlag.Name); s != "" {
		address, err := parseAddress(s)
		if err != nil {
			return nil, errors.Wrap(err, "--account")
		}
		return w.store.Get(address)
	}
	account, err := w.store.Default()
	if errors.Is(err, store.ErrNoDefault) {
		return nil, errors.New("no account, run create or load first")
	}
	return account, err
}

// waitFor waits for the receipt of hash and names contract reverts.
func (w *wallet) waitFor(ctx context.Context, hash common.Hash) error {
	_, err := w.client.WaitForReceipt(ctx, hash)
	return w.delegation.DecodeError(err)
}
