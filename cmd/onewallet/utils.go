// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/wjorgensen/OneWalletDemo/acct"
	"github.com/wjorgensen/OneWalletDemo/config"
	"github.com/wjorgensen/OneWalletDemo/log"
	"github.com/wjorgensen/OneWalletDemo/webauthn"
)

func initLogger(ctx *cli.Context) {
	lvl := &slog.LevelVar{}
	lvl.Set(log.FromLegacyLevel(ctx.GlobalInt(verbosityFlag.Name)))

	var handler slog.Handler
	if ctx.GlobalBool(jsonLogsFlag.Name) {
		handler = log.JSONHandlerWithLevel(os.Stderr, lvl)
	} else {
		useColor := (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
		handler = log.NewTerminalHandlerWithLevel(os.Stderr, lvl, useColor)
	}
	log.SetDefault(log.NewLogger(handler))
}

// loadConfig layers the global flags over config.Load.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx.GlobalString(configFlag.Name))
	if err != nil {
		return nil, err
	}
	if ctx.GlobalIsSet(dataDirFlag.Name) {
		cfg.DataDir = ctx.GlobalString(dataDirFlag.Name)
	}
	if ctx.GlobalIsSet(rpcFlag.Name) {
		cfg.RPC = ctx.GlobalString(rpcFlag.Name)
	}
	if ctx.GlobalIsSet(chainIDFlag.Name) {
		cfg.ChainID = ctx.GlobalUint64(chainIDFlag.Name)
	}
	if ctx.GlobalIsSet(delegationFlag.Name) {
		if cfg.Delegation, err = parseAddress(ctx.GlobalString(delegationFlag.Name)); err != nil {
			return nil, errors.Wrap(err, "--delegation")
		}
	}
	if ctx.GlobalIsSet(tokenFlag.Name) {
		if cfg.Token, err = parseAddress(ctx.GlobalString(tokenFlag.Name)); err != nil {
			return nil, errors.Wrap(err, "--token")
		}
	}
	if ctx.GlobalIsSet(sponsorKeyFlag.Name) {
		cfg.SponsorKey = ctx.GlobalString(sponsorKeyFlag.Name)
	}
	if ctx.GlobalIsSet(serializeFlag.Name) {
		cfg.Serialize = ctx.GlobalBool(serializeFlag.Name)
	}
	if ctx.GlobalIsSet(nonceMethodFlag.Name) {
		cfg.NonceMethod = ctx.GlobalString(nonceMethodFlag.Name)
	}
	if ctx.GlobalIsSet(keyScanLimitFlag.Name) {
		cfg.KeyScanLimit = uint32(ctx.GlobalUint64(keyScanLimitFlag.Name))
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithMessage(err, "invalid configuration")
	}
	return cfg, nil
}

func handleExitSignal() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		exitSignalCh := make(chan os.Signal, 1)
		signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)

		sig := <-exitSignalCh
		log.Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, errors.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// parseUnits converts a decimal amount of whole units into base units.
func parseUnits(s string, decimals uint8) (*big.Int, error) {
	whole, frac, _ := strings.Cut(strings.TrimSpace(s), ".")
	if whole == "" && frac == "" {
		return nil, errors.Errorf("invalid amount %q", s)
	}
	if len(frac) > int(decimals) {
		return nil, errors.Errorf("amount %q has more than %d decimals", s, decimals)
	}
	digits := whole + frac + strings.Repeat("0", int(decimals)-len(frac))
	amount, ok := new(big.Int).SetString(digits, 10)
	if !ok || amount.Sign() < 0 || strings.ContainsAny(digits, "+-") {
		return nil, errors.Errorf("invalid amount %q", s)
	}
	return amount, nil
}

// formatUnits is the inverse of parseUnits, trailing zero decimals trimmed.
func formatUnits(amount *big.Int, decimals uint8) string {
	s := amount.String()
	if decimals == 0 {
		return s
	}
	if len(s) <= int(decimals) {
		s = strings.Repeat("0", int(decimals)-len(s)+1) + s
	}
	whole, frac := s[:len(s)-int(decimals)], strings.TrimRight(s[len(s)-int(decimals):], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// parseCall parses to[,value[,hexdata]], value in wei.
func parseCall(s string) (acct.Call, error) {
	parts := strings.Split(s, ",")
	if len(parts) > 3 {
		return acct.Call{}, errors.Errorf("invalid call %q", s)
	}
	to, err := parseAddress(strings.TrimSpace(parts[0]))
	if err != nil {
		return acct.Call{}, err
	}
	call := acct.Call{To: to}
	if len(parts) > 1 && parts[1] != "" {
		value, ok := new(big.Int).SetString(strings.TrimSpace(parts[1]), 0)
		if !ok || value.Sign() < 0 {
			return acct.Call{}, errors.Errorf("invalid call value %q", parts[1])
		}
		call.Value = value
	}
	if len(parts) > 2 && parts[2] != "" {
		if call.Data, err = hexutil.Decode(strings.TrimSpace(parts[2])); err != nil {
			return acct.Call{}, errors.Wrapf(err, "invalid call data %q", parts[2])
		}
	}
	return call, nil
}

// terminalPrompt asks on the terminal before each authenticator ceremony.
func terminalPrompt(in io.Reader, out io.Writer) func(context.Context, protocol.CeremonyType, string) error {
	reader := bufio.NewReader(in)
	return func(ctx context.Context, ceremony protocol.CeremonyType, user string) error {
		action := "Sign with"
		if ceremony == protocol.CreateCeremony {
			action = "Create"
		}
		fmt.Fprintf(out, "%s passkey for %q? [y/N] ", action, user)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return acct.ErrUserCancelled
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return ctx.Err()
		default:
			return acct.ErrUserCancelled
		}
	}
}

// terminalChooser lists the discoverable passkeys and reads the number of the one to use.
func terminalChooser(in io.Reader, out io.Writer) webauthn.ChooseFunc {
	reader := bufio.NewReader(in)
	return func(ctx context.Context, creds []webauthn.Discoverable) (int, error) {
		for i, c := range creds {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, c.UserName)
		}
		fmt.Fprintf(out, "Passkey to sign with [1-%d]: ", len(creds))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return 0, acct.ErrUserCancelled
		}
		n, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || n < 1 || n > len(creds) {
			return 0, acct.ErrUserCancelled
		}
		return n - 1, ctx.Err()
	}
}

// addressChooser picks the passkey registered for address.
func addressChooser(address common.Address) webauthn.ChooseFunc {
	return func(_ context.Context, creds []webauthn.Discoverable) (int, error) {
		for i, c := range creds {
			if len(c.UserHandle) == common.AddressLength && common.BytesToAddress(c.UserHandle) == address {
				return i, nil
			}
		}
		return 0, errors.Wrapf(acct.ErrAccountNotFound, "no passkey for %s", address.Hex())
	}
}

func isInteractive() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}
