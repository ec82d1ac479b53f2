// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"bytes"
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wjorgensen/OneWalletDemo/acct"
	"github.com/wjorgensen/OneWalletDemo/config"
	"github.com/wjorgensen/OneWalletDemo/keygen"
	"github.com/wjorgensen/OneWalletDemo/simulated"
	"github.com/wjorgensen/OneWalletDemo/store"
	"github.com/wjorgensen/OneWalletDemo/test/datagen"
	"github.com/wjorgensen/OneWalletDemo/webauthn"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	var buf bytes.Buffer
	prev := output
	output = &buf
	t.Cleanup(func() { output = prev })
	return &buf
}

func TestUnits(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		format string
	}{
		{"100", "100000000000000000000", "100"},
		{"1.5", "1500000000000000000", "1.5"},
		{".25", "250000000000000000", "0.25"},
		{"2.500", "2500000000000000000", "2.5"},
		{"0.000000000000000001", "1", "0.000000000000000001"},
	}
	for _, tt := range tests {
		amount, err := parseUnits(tt.in, 18)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, amount.String())
		assert.Equal(t, tt.format, formatUnits(amount, 18))
	}

	for _, bad := range []string{"", ".", "-1", "+1", "1.2.3", "abc", "0.0000000000000000001"} {
		_, err := parseUnits(bad, 18)
		assert.Error(t, err, bad)
	}

	assert.Equal(t, "0", formatUnits(new(big.Int), 18))
	assert.Equal(t, "42", formatUnits(big.NewInt(42), 0))
}

func TestParseCall(t *testing.T) {
	to := "0x238c8CD93ee9F8c7Edf395548eF60c0d2e46665E"

	call, err := parseCall(to)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(to), call.To)
	assert.Nil(t, call.Value)
	assert.Nil(t, call.Data)

	call, err = parseCall(to + ",0x10,0xdeadbeef")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(16), call.Value)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, call.Data)

	call, err = parseCall(to + ",,0x01")
	require.NoError(t, err)
	assert.Nil(t, call.Value)
	assert.Equal(t, []byte{1}, call.Data)

	for _, bad := range []string{"0x1234", to + ",-1", to + ",1,zz", to + ",1,0x,extra"} {
		_, err := parseCall(bad)
		assert.Error(t, err, bad)
	}
}

func TestTerminalPrompt(t *testing.T) {
	var out bytes.Buffer
	prompt := terminalPrompt(strings.NewReader("y\nno\n"), &out)
	ctx := context.Background()

	require.NoError(t, prompt(ctx, protocol.CreateCeremony, "Example Delegation (0x6bbce6…435439)"))
	assert.Contains(t, out.String(), "Create passkey")

	require.ErrorIs(t, prompt(ctx, protocol.AssertCeremony, "x"), acct.ErrUserCancelled)
	assert.Contains(t, out.String(), "Sign with passkey")

	// input exhausted
	require.ErrorIs(t, prompt(ctx, protocol.AssertCeremony, "x"), acct.ErrUserCancelled)
}

func TestChoosers(t *testing.T) {
	ctx := context.Background()
	first := datagen.RandAddress()
	second := datagen.RandAddress()
	creds := []webauthn.Discoverable{
		{UserName: "cli (first)", UserHandle: first.Bytes()},
		{UserName: "cli (second)", UserHandle: second.Bytes()},
	}

	t.Run("terminal", func(t *testing.T) {
		var out bytes.Buffer
		choose := terminalChooser(strings.NewReader("2\n3\n"), &out)

		i, err := choose(ctx, creds)
		require.NoError(t, err)
		assert.Equal(t, 1, i)
		assert.Contains(t, out.String(), "[1] cli (first)")
		assert.Contains(t, out.String(), "[1-2]")

		_, err = choose(ctx, creds)
		assert.ErrorIs(t, err, acct.ErrUserCancelled)
		// input exhausted
		_, err = choose(ctx, creds)
		assert.ErrorIs(t, err, acct.ErrUserCancelled)
	})

	t.Run("address", func(t *testing.T) {
		i, err := addressChooser(second)(ctx, creds)
		require.NoError(t, err)
		assert.Equal(t, 1, i)

		_, err = addressChooser(datagen.RandAddress())(ctx, creds)
		assert.ErrorIs(t, err, acct.ErrAccountNotFound)
	})
}

func TestDemo(t *testing.T) {
	buf := captureOutput(t)

	cfg := config.Default()
	cfg.ChainID = 1337
	require.NoError(t, runDemo(context.Background(), cfg))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "balance 100")
	assert.Contains(t, lines[2], "balance 80.5")
	assert.Contains(t, lines[3], "key 0, nonce 3")
}

func TestConfigCommand(t *testing.T) {
	buf := captureOutput(t)
	t.Setenv("ONEWALLET_KEY_SCAN_LIMIT", "2")

	err := newApp().Run([]string{"onewallet", "--rpc", "http://127.0.0.1:8545", "--nonce-method", "nonce", "config"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "rpc: http://127.0.0.1:8545")
	assert.Contains(t, buf.String(), "nonceMethod: nonce")
	assert.Contains(t, buf.String(), "keyScanLimit: 2")

	err = newApp().Run([]string{"onewallet", "--nonce-method", "getNonce", "config"})
	assert.ErrorContains(t, err, "nonceMethod")
}

func TestCreateWithMnemonic(t *testing.T) {
	ctx := context.Background()
	mnemonic := "test test test test test test test test test test test junk"
	dir := t.TempDir()

	cfg := config.Default()
	cfg.ChainID = 1337
	cfg.Mnemonic = mnemonic
	backend := simulated.NewBackend(cfg.Delegation, simulated.WithChainID(big.NewInt(1337)))
	provider, auth := webauthn.NewSoftProvider(cfg.RelyingParty)
	sponsor := datagen.RandAddress()

	// each create opens the store afresh, as separate cli runs do
	create := func() *acct.Account {
		st, err := store.Open(dir, store.Options{})
		require.NoError(t, err)
		defer st.Close()

		w, err := newWallet(cfg, backend.Client(sponsor), provider, st)
		require.NoError(t, err)
		account, err := w.lifecycle.Create(ctx)
		require.NoError(t, err)
		require.NoError(t, w.store.Put(account))
		return account
	}

	first := create()
	second := create()
	assert.NotEqual(t, first.Address, second.Address)
	assert.Equal(t, 2, auth.Len())

	for i, account := range []*acct.Account{first, second} {
		key, err := keygen.Derive(mnemonic, "", uint32(i))
		require.NoError(t, err)
		assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), account.Address)
	}
}
