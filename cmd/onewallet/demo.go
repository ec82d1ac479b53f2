// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/wjorgensen/OneWalletDemo/acct"
	"github.com/wjorgensen/OneWalletDemo/config"
	"github.com/wjorgensen/OneWalletDemo/keygen"
	"github.com/wjorgensen/OneWalletDemo/simulated"
	"github.com/wjorgensen/OneWalletDemo/store"
	"github.com/wjorgensen/OneWalletDemo/webauthn"
)

// demoAction walks through create, mint, a batched transfer and load on an in-process chain.
func demoAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	return runDemo(handleExitSignal(), cfg)
}

func runDemo(ctx context.Context, cfg *config.Config) error {
	backend := simulated.NewBackend(cfg.Delegation, simulated.WithChainID(new(big.Int).SetUint64(cfg.ChainID)))
	backend.DeployERC20(cfg.Token, "Experiment Token", "EXP", 18)

	sponsor, err := keygen.Random()
	if err != nil {
		return err
	}
	st, err := store.OpenMem(store.Options{})
	if err != nil {
		return err
	}
	defer st.Close()

	provider, _ := webauthn.NewSoftProvider(cfg.RelyingParty)
	w, err := newWallet(cfg, backend.Client(crypto.PubkeyToAddress(sponsor.PublicKey)), provider, st)
	if err != nil {
		return err
	}

	account, err := w.lifecycle.Create(ctx)
	if err != nil {
		return errors.WithMessage(err, "create")
	}
	if err := w.store.Put(account); err != nil {
		return err
	}
	fmt.Fprintf(output, "created   %s (authorized in %s)\n", account.Address.Hex(), account.AuthorizationTxHash.Hex())

	mint, err := w.token.MintCall(account.Address, mustUnits("100"))
	if err != nil {
		return err
	}
	if _, err := w.executor.ExecuteAndWait(ctx, account, []acct.Call{mint}); err != nil {
		return errors.WithMessage(err, "mint")
	}
	fmt.Fprintf(output, "minted    100 EXP, balance %s\n", formatUnits(backend.TokenBalance(cfg.Token, account.Address), 18))

	var calls []acct.Call
	for _, amount := range []string{"12.5", "7"} {
		recipient, err := keygen.Random()
		if err != nil {
			return err
		}
		call, err := w.token.TransferCall(crypto.PubkeyToAddress(recipient.PublicKey), mustUnits(amount))
		if err != nil {
			return err
		}
		calls = append(calls, call)
	}
	if _, err := w.executor.ExecuteAndWait(ctx, account, calls); err != nil {
		return errors.WithMessage(err, "transfer")
	}
	fmt.Fprintf(output, "sent      12.5 and 7 EXP in one batch, balance %s\n",
		formatUnits(backend.TokenBalance(cfg.Token, account.Address), 18))

	loaded, err := w.lifecycle.Load(ctx)
	if err != nil {
		return errors.WithMessage(err, "load")
	}
	nonce, err := w.delegation.Nonce(ctx, loaded.Address)
	if err != nil {
		return err
	}
	fmt.Fprintf(output, "loaded    %s, key %d, nonce %v\n", loaded.Address.Hex(), loaded.Key.Index, nonce)
	return nil
}

func mustUnits(s string) *big.Int {
	amount, err := parseUnits(s, 18)
	if err != nil {
		panic(err)
	}
	return amount
}
