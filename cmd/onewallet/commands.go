// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/wjorgensen/OneWalletDemo/acct"
)

var output io.Writer = os.Stdout

// walletAction opens the wallet for the duration of fn.
func walletAction(fn func(ctx *cli.Context, runCtx context.Context, w *wallet) error) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		runCtx := handleExitSignal()
		w, err := openWallet(ctx, runCtx)
		if err != nil {
			return err
		}
		defer w.Close()
		return fn(ctx, runCtx, w)
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(output, string(data))
	return err
}

func createAction(ctx *cli.Context, runCtx context.Context, w *wallet) error {
	account, err := w.lifecycle.Create(runCtx)
	if err != nil {
		return err
	}
	if err := w.store.Put(account); err != nil {
		return err
	}
	return printJSON(account)
}

func loadAction(ctx *cli.Context, runCtx context.Context, w *wallet) error {
	account, err := w.lifecycle.Load(runCtx)
	if err != nil {
		return err
	}
	if err := w.store.Put(account); err != nil {
		return err
	}
	if err := w.store.SetDefault(account.Address); err != nil {
		return err
	}
	return printJSON(account)
}

func accountsAction(ctx *cli.Context, runCtx context.Context, w *wallet) error {
	accounts, err := w.store.List()
	if err != nil {
		return err
	}
	var def common.Address
	if account, err := w.store.Default(); err == nil {
		def = account.Address
	}

	tw := tabwriter.NewWriter(output, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tADDRESS\tKEY INDEX\tCREDENTIAL")
	for _, a := range accounts {
		marker := ""
		if a.Address == def {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", marker, a.Address.Hex(), a.Key.Index, a.Key.ID)
	}
	return tw.Flush()
}

func useAction(ctx *cli.Context, runCtx context.Context, w *wallet) error {
	address, err := parseAddress(ctx.Args().First())
	if err != nil {
		return err
	}
	return w.store.SetDefault(address)
}

func removeAction(ctx *cli.Context, runCtx context.Context, w *wallet) error {
	address, err := parseAddress(ctx.Args().First())
	if err != nil {
		return err
	}
	return w.store.Delete(address)
}

func executeAction(ctx *cli.Context, runCtx context.Context, w *wallet) error {
	account, err := w.account(ctx)
	if err != nil {
		return err
	}
	var calls []acct.Call
	for _, s := range ctx.StringSlice(callFlag.Name) {
		call, err := parseCall(s)
		if err != nil {
			return errors.Wrap(err, "--call")
		}
		calls = append(calls, call)
	}
	return submit(ctx, runCtx, w, account, calls)
}

// submit executes calls, waiting for inclusion with --wait.
func submit(ctx *cli.Context, runCtx context.Context, w *wallet, account *acct.Account, calls []acct.Call) error {
	if !ctx.Bool(waitFlag.Name) {
		hash, err := w.executor.Execute(runCtx, account, calls)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(output, hash.Hex())
		return err
	}
	receipt, err := w.executor.ExecuteAndWait(runCtx, account, calls)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(output, "%s included in block %v\n", receipt.TxHash.Hex(), receipt.BlockNumber)
	return err
}

func nonceAction(ctx *cli.Context, runCtx context.Context, w *wallet) error {
	account, err := w.account(ctx)
	if err != nil {
		return err
	}
	nonce, err := w.delegation.Nonce(runCtx, account.Address)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(output, nonce)
	return err
}

func keyAction(ctx *cli.Context, runCtx context.Context, w *wallet) error {
	account, err := w.account(ctx)
	if err != nil {
		return err
	}
	index := account.Key.Index
	if ctx.IsSet(indexFlag.Name) {
		index = uint32(ctx.Uint64(indexFlag.Name))
	}
	record, err := w.delegation.Keys(runCtx, account.Address, index)
	if err != nil {
		return err
	}
	return printJSON(struct {
		Index      uint32         `json:"index"`
		Authorized bool           `json:"authorized"`
		Expiry     *big.Int       `json:"expiry"`
		KeyType    uint8          `json:"keyType"`
		PublicKey  acct.PublicKey `json:"publicKey"`
		Matches    bool           `json:"matchesStored"`
	}{index, record.Authorized, record.Expiry, record.KeyType, record.PublicKey, record.PublicKey.Equal(account.Key.PublicKey)})
}

func revokeAction(ctx *cli.Context, runCtx context.Context, w *wallet) error {
	account, err := w.account(ctx)
	if err != nil {
		return err
	}
	if !ctx.IsSet(indexFlag.Name) {
		return errors.New("--index is required")
	}
	call, err := w.executor.RevokeCall(account, uint32(ctx.Uint64(indexFlag.Name)))
	if err != nil {
		return err
	}
	return submit(ctx, runCtx, w, account, []acct.Call{call})
}

func mintAction(ctx *cli.Context, runCtx context.Context, w *wallet) error {
	account, err := w.account(ctx)
	if err != nil {
		return err
	}
	decimals, err := w.token.Decimals(runCtx)
	if err != nil {
		return err
	}
	amounts := ctx.StringSlice(amountFlag.Name)
	if len(amounts) == 0 {
		amounts = []string{"100"}
	}
	amount, err := parseUnits(amounts[0], decimals)
	if err != nil {
		return err
	}
	call, err := w.token.MintCall(account.Address, amount)
	if err != nil {
		return err
	}
	return submit(ctx, runCtx, w, account, []acct.Call{call})
}

func transferAction(ctx *cli.Context, runCtx context.Context, w *wallet) error {
	account, err := w.account(ctx)
	if err != nil {
		return err
	}
	recipients, amounts := ctx.StringSlice(toFlag.Name), ctx.StringSlice(amountFlag.Name)
	if len(recipients) == 0 || len(recipients) != len(amounts) {
		return errors.New("give one --amount per --to")
	}
	decimals, err := w.token.Decimals(runCtx)
	if err != nil {
		return err
	}

	calls := make([]acct.Call, 0, len(recipients))
	for i := range recipients {
		to, err := parseAddress(recipients[i])
		if err != nil {
			return errors.Wrap(err, "--to")
		}
		amount, err := parseUnits(amounts[i], decimals)
		if err != nil {
			return errors.Wrap(err, "--amount")
		}
		call, err := w.token.TransferCall(to, amount)
		if err != nil {
			return err
		}
		calls = append(calls, call)
	}
	return submit(ctx, runCtx, w, account, calls)
}

func balanceAction(ctx *cli.Context, runCtx context.Context, w *wallet) error {
	var owner common.Address
	if s := ctx.String(ownerFlag.Name); s != "" {
		var err error
		if owner, err = parseAddress(s); err != nil {
			return errors.Wrap(err, "--owner")
		}
	} else {
		account, err := w.account(ctx)
		if err != nil {
			return err
		}
		owner = account.Address
	}

	balance, err := w.token.BalanceOf(runCtx, owner)
	if err != nil {
		return err
	}
	decimals, err := w.token.Decimals(runCtx)
	if err != nil {
		return err
	}
	symbol, err := w.token.Symbol(runCtx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(output, "%s %s\n", formatUnits(balance, decimals), symbol)
	return err
}

func configAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	_, err = output.Write(data)
	return err
}
