// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// onewallet manages EIP-7702 delegated accounts controlled by a passkey.
package main

import (
	"fmt"
	"os"

	cli "gopkg.in/urfave/cli.v1"

	"github.com/wjorgensen/OneWalletDemo/log"
	"github.com/wjorgensen/OneWalletDemo/metrics"
)

var (
	version   string
	gitCommit string
	gitTag    string
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Version = fullVersion()
	app.Name = "onewallet"
	app.Usage = "Passkey controlled EIP-7702 accounts"
	app.Flags = []cli.Flag{
		configFlag,
		dataDirFlag,
		rpcFlag,
		chainIDFlag,
		delegationFlag,
		tokenFlag,
		sponsorKeyFlag,
		serializeFlag,
		nonceMethodFlag,
		keyScanLimitFlag,
		verbosityFlag,
		jsonLogsFlag,
		enableMetricsFlag,
		metricsAddrFlag,
		yesFlag,
	}

	var stopMetrics func()
	app.Before = func(ctx *cli.Context) error {
		initLogger(ctx)
		if ctx.GlobalBool(enableMetricsFlag.Name) {
			metrics.InitializePrometheusMetrics()
			url, closeFunc, err := startMetricsServer(ctx.GlobalString(metricsAddrFlag.Name))
			if err != nil {
				return fmt.Errorf("unable to start metrics server - %w", err)
			}
			log.Info("metrics server started", "url", url)
			stopMetrics = closeFunc
		}
		return nil
	}
	app.After = func(*cli.Context) error {
		if stopMetrics != nil {
			stopMetrics()
		}
		return nil
	}

	accountFlags := []cli.Flag{accountFlag}
	executeFlags := []cli.Flag{accountFlag, waitFlag}

	app.Commands = []cli.Command{
		{
			Name:   "create",
			Usage:  "create a passkey and a delegated account authorizing it",
			Action: walletAction(createAction),
		},
		{
			Name:   "load",
			Usage:  "recover an account by signing with an existing passkey, --account picks the passkey of that address",
			Flags:  accountFlags,
			Action: walletAction(loadAction),
		},
		{
			Name:   "accounts",
			Usage:  "list stored accounts, * marks the default",
			Action: walletAction(accountsAction),
			Subcommands: []cli.Command{
				{
					Name:      "use",
					Usage:     "make a stored account the default",
					ArgsUsage: "<address>",
					Action:    walletAction(useAction),
				},
				{
					Name:      "remove",
					Usage:     "forget a stored account",
					ArgsUsage: "<address>",
					Action:    walletAction(removeAction),
				},
			},
		},
		{
			Name:   "execute",
			Usage:  "sign a call batch with the passkey and submit it",
			Flags:  append(executeFlags, callFlag),
			Action: walletAction(executeAction),
		},
		{
			Name:   "nonce",
			Usage:  "print the execution nonce",
			Flags:  accountFlags,
			Action: walletAction(nonceAction),
		},
		{
			Name:   "key",
			Usage:  "print the key record of a slot",
			Flags:  append(accountFlags, indexFlag),
			Action: walletAction(keyAction),
		},
		{
			Name:   "revoke",
			Usage:  "revoke the key in a slot",
			Flags:  append(executeFlags, indexFlag),
			Action: walletAction(revokeAction),
		},
		{
			Name:  "token",
			Usage: "example ERC-20 token",
			Subcommands: []cli.Command{
				{
					Name:   "mint",
					Usage:  "mint tokens to the account, 100 by default",
					Flags:  append(executeFlags, amountFlag),
					Action: walletAction(mintAction),
				},
				{
					Name:   "transfer",
					Usage:  "transfer tokens, several transfers are batched",
					Flags:  append(executeFlags, toFlag, amountFlag),
					Action: walletAction(transferAction),
				},
				{
					Name:   "balance",
					Usage:  "print a token balance",
					Flags:  append(accountFlags, ownerFlag),
					Action: walletAction(balanceAction),
				},
			},
		},
		{
			Name:   "config",
			Usage:  "print the effective configuration",
			Action: configAction,
		},
		{
			Name:   "demo",
			Usage:  "run create, mint, transfer and load against an in-process chain",
			Action: demoAction,
		},
	}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
