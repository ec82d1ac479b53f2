// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"

	"github.com/wjorgensen/OneWalletDemo/log"
)

var (
	configFlag = cli.StringFlag{
		Name:   "config",
		Usage:  "path to a YAML configuration file",
		EnvVar: "ONEWALLET_CONFIG",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Usage: "directory for the account store and the authenticator keyring",
	}
	rpcFlag = cli.StringFlag{
		Name:  "rpc",
		Usage: "JSON-RPC endpoint of the chain",
	}
	chainIDFlag = cli.Uint64Flag{
		Name:  "chain-id",
		Usage: "expected chain id",
	}
	delegationFlag = cli.StringFlag{
		Name:  "delegation",
		Usage: "address of the delegation contract",
	}
	tokenFlag = cli.StringFlag{
		Name:  "token",
		Usage: "address of the ERC-20 token",
	}
	sponsorKeyFlag = cli.StringFlag{
		Name:  "sponsor-key",
		Usage: "hex private key paying for transactions, the node fills them in when empty",
	}
	serializeFlag = cli.BoolFlag{
		Name:  "serialize",
		Usage: "run the executions of an account one at a time",
	}
	nonceMethodFlag = cli.StringFlag{
		Name:  "nonce-method",
		Usage: "contract getter of the execution nonce (nonce|executeNonce)",
	}
	keyScanLimitFlag = cli.Uint64Flag{
		Name:  "key-scan-limit",
		Usage: "number of key slots inspected when loading an account",
	}
	verbosityFlag = cli.IntFlag{
		Name:   "verbosity",
		Value:  log.LegacyLevelWarn,
		Usage:  "log verbosity (0-5)",
		EnvVar: "ONEWALLET_VERBOSITY",
	}
	jsonLogsFlag = cli.BoolFlag{
		Name:  "json-logs",
		Usage: "output logs in JSON format",
	}
	enableMetricsFlag = cli.BoolFlag{
		Name:   "enable-metrics",
		Usage:  "enables metrics collection",
		EnvVar: "ONEWALLET_ENABLE_METRICS",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Value: "localhost:2112",
		Usage: "metrics service listening address",
	}
	yesFlag = cli.BoolFlag{
		Name:  "yes, y",
		Usage: "approve authenticator prompts without asking",
	}

	accountFlag = cli.StringFlag{
		Name:  "account",
		Usage: "address of the stored account to use, the default account when empty",
	}
	callFlag = cli.StringSliceFlag{
		Name:  "call",
		Usage: "call as to[,value[,hexdata]], repeat for a batch",
	}
	waitFlag = cli.BoolFlag{
		Name:  "wait",
		Usage: "wait for the transaction receipt",
	}
	indexFlag = cli.Uint64Flag{
		Name:  "index",
		Usage: "key slot",
	}
	toFlag = cli.StringSliceFlag{
		Name:  "to",
		Usage: "recipient, repeat together with --amount for a batch",
	}
	amountFlag = cli.StringSliceFlag{
		Name:  "amount",
		Usage: "token amount in whole units, e.g. 1.5",
	}
	ownerFlag = cli.StringFlag{
		Name:  "owner",
		Usage: "address to query, the account when empty",
	}
)
