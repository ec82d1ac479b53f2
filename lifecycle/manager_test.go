// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package lifecycle

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wjorgensen/OneWalletDemo/acct"
	"github.com/wjorgensen/OneWalletDemo/simulated"
	"github.com/wjorgensen/OneWalletDemo/test/datagen"
	"github.com/wjorgensen/OneWalletDemo/test/testchain"
	"github.com/wjorgensen/OneWalletDemo/webauthn"
)

func newManager(t *testing.T, c *testchain.Chain, provider webauthn.Provider, opts Options) *Manager {
	t.Helper()
	return New(provider, c.Signer(), c.Delegation(), c.Client(), opts)
}

func TestUserName(t *testing.T) {
	address := common.HexToAddress("0x6bbce6b04736f9db8d3dbE509b87Da3BC1435439")
	assert.Equal(t, "Example Delegation (0x6bbce6…435439)", UserName(DefaultUserNamePrefix, address))
	assert.Equal(t, "cli (0x6bbce6…435439)", UserName("cli", address))
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	c, err := testchain.NewDefault()
	require.NoError(t, err)

	key := datagen.RandKey()
	want := crypto.PubkeyToAddress(key.PublicKey)
	m := newManager(t, c, c.Provider(), Options{KeySource: func() (*ecdsa.PrivateKey, error) { return key, nil }})

	account, err := m.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, account.Address)
	require.NotNil(t, account.AuthorizationTxHash)
	assert.Equal(t, uint32(0), account.Key.Index)
	assert.NotEmpty(t, account.Key.ID)

	// the native key does not outlive the call
	assert.Equal(t, 0, key.D.Sign())

	receipt, err := c.Client().WaitForReceipt(ctx, *account.AuthorizationTxHash)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), receipt.Status)

	record, err := c.Delegation().Keys(ctx, account.Address, 0)
	require.NoError(t, err)
	assert.True(t, record.Usable(time.Now()))
	assert.True(t, account.Key.PublicKey.Equal(record.PublicKey))
	assert.Equal(t, 0, record.Expiry.Sign())
}

func TestCreateCancelled(t *testing.T) {
	ctx := context.Background()
	c, err := testchain.NewDefault()
	require.NoError(t, err)

	var key *ecdsa.PrivateKey
	m := newManager(t, c, c.Provider(), Options{KeySource: func() (*ecdsa.PrivateKey, error) {
		key = datagen.RandKey()
		return key, nil
	}})
	c.Authenticator().Decline()

	before := c.Backend().BlockNumber()
	account, err := m.Create(ctx)
	assert.Nil(t, account)
	assert.ErrorIs(t, err, acct.ErrUserCancelled)
	assert.Equal(t, 0, key.D.Sign())
	assert.Equal(t, before, c.Backend().BlockNumber())
}

func TestCreateFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("key source", func(t *testing.T) {
		c, err := testchain.NewDefault()
		require.NoError(t, err)
		m := newManager(t, c, c.Provider(), Options{KeySource: func() (*ecdsa.PrivateKey, error) {
			return nil, errors.New("no entropy")
		}})
		_, err = m.Create(ctx)
		assert.ErrorContains(t, err, "no entropy")
	})

	t.Run("expiry overflow", func(t *testing.T) {
		c, err := testchain.NewDefault()
		require.NoError(t, err)
		m := newManager(t, c, c.Provider(), Options{Expiry: new(big.Int).Lsh(common.Big1, 256)})
		_, err = m.Create(ctx)
		assert.ErrorIs(t, err, acct.ErrEncoding)
	})

	t.Run("rejected receipt", func(t *testing.T) {
		c, err := testchain.New(simulated.WithoutDryRun())
		require.NoError(t, err)
		// the same native key twice, the second authorize digest reuses a consumed nonce
		key := datagen.RandKey()
		m := newManager(t, c, c.Provider(), Options{KeySource: func() (*ecdsa.PrivateKey, error) {
			cpy := *key
			cpy.D = new(big.Int).Set(key.D)
			return &cpy, nil
		}})
		_, err = m.Create(ctx)
		require.NoError(t, err)

		_, err = m.Create(ctx)
		var chainErr *acct.ChainError
		require.ErrorAs(t, err, &chainErr)
		assert.Equal(t, "InvalidSignature", chainErr.Reason)
		assert.NotNil(t, chainErr.TxHash)
	})
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	c, err := testchain.NewDefault()
	require.NoError(t, err)
	m := newManager(t, c, c.Provider(), Options{})

	created, err := m.Create(ctx)
	require.NoError(t, err)

	loaded, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, created.Address, loaded.Address)
	assert.Equal(t, created.Key.ID, loaded.Key.ID)
	assert.Equal(t, uint32(0), loaded.Key.Index)
	assert.True(t, created.Key.PublicKey.Equal(loaded.Key.PublicKey))
	assert.Nil(t, loaded.AuthorizationTxHash)

	t.Run("revoked", func(t *testing.T) {
		revoke, err := c.Delegation().RevokeCalldata(0, nil)
		require.NoError(t, err)
		require.NoError(t, c.Execute(ctx, created, acct.Call{To: created.Address, Data: revoke}))

		_, err = m.Load(ctx)
		assert.ErrorIs(t, err, acct.ErrAccountNotFound)
	})

	t.Run("cancelled", func(t *testing.T) {
		c.Authenticator().Decline()
		_, err := m.Load(ctx)
		assert.ErrorIs(t, err, acct.ErrUserCancelled)
	})
}

func TestLoadNotFound(t *testing.T) {
	ctx := context.Background()

	t.Run("never authorized", func(t *testing.T) {
		c, err := testchain.NewDefault()
		require.NoError(t, err)
		_, err = c.Provider().CreateCredential(ctx, webauthn.User{ID: datagen.RandAddress().Bytes(), Name: "x", DisplayName: "x"})
		require.NoError(t, err)

		_, err = newManager(t, c, c.Provider(), Options{}).Load(ctx)
		assert.ErrorIs(t, err, acct.ErrAccountNotFound)
	})

	t.Run("not an address", func(t *testing.T) {
		c, err := testchain.NewDefault()
		require.NoError(t, err)
		_, err = c.Provider().CreateCredential(ctx, webauthn.User{ID: []byte("alice"), Name: "alice", DisplayName: "alice"})
		require.NoError(t, err)

		_, err = newManager(t, c, c.Provider(), Options{}).Load(ctx)
		assert.ErrorIs(t, err, acct.ErrAccountNotFound)
	})

	t.Run("expired", func(t *testing.T) {
		now := time.Now()
		c, err := testchain.New(simulated.WithClock(func() time.Time { return now }))
		require.NoError(t, err)
		m := newManager(t, c, c.Provider(), Options{
			Expiry: big.NewInt(now.Add(time.Minute).Unix()),
			Clock:  func() time.Time { return now.Add(time.Hour) },
		})
		_, err = m.Create(ctx)
		require.NoError(t, err)

		_, err = m.Load(ctx)
		assert.ErrorIs(t, err, acct.ErrAccountNotFound)
	})
}

func TestLoadScan(t *testing.T) {
	ctx := context.Background()
	c, err := testchain.NewDefault()
	require.NoError(t, err)

	account, _, err := c.NewAccount(ctx, big.NewInt(0))
	require.NoError(t, err)

	// a second passkey for the same account, held by another authenticator
	other, _ := webauthn.NewSoftProvider(testchain.RelyingParty)
	cred, err := other.CreateCredential(ctx, webauthn.User{ID: account.Address.Bytes(), Name: "second", DisplayName: "second"})
	require.NoError(t, err)
	authorize, err := c.Delegation().AuthorizeCalldata(cred.PublicKey, big.NewInt(0), nil)
	require.NoError(t, err)
	require.NoError(t, c.Execute(ctx, account, acct.Call{To: account.Address, Data: authorize}))
	require.Equal(t, 2, c.Backend().KeyCount(account.Address))

	t.Run("slot 0 only", func(t *testing.T) {
		_, err := newManager(t, c, other, Options{}).Load(ctx)
		assert.ErrorIs(t, err, acct.ErrAccountNotFound)
	})

	t.Run("scan", func(t *testing.T) {
		loaded, err := newManager(t, c, other, Options{KeyScanLimit: 4}).Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, account.Address, loaded.Address)
		assert.Equal(t, uint32(1), loaded.Key.Index)
		assert.Equal(t, cred.ID, loaded.Key.ID)
	})
}

func TestResult(t *testing.T) {
	assert.Equal(t, "success", result(nil))
	assert.Equal(t, "cancelled", result(acct.ErrUserCancelled))
	assert.Equal(t, "not_found", result(acct.ErrAccountNotFound))
	assert.Equal(t, "rejected", result(&acct.ChainError{Reason: "KeyExpired"}))
	assert.Equal(t, "error", result(errors.New("boom")))
}

func TestZeroKey(t *testing.T) {
	key := datagen.RandKey()
	words := key.D.Bits()
	require.NotEmpty(t, words)

	zeroKey(key)
	assert.Equal(t, 0, key.D.Sign())
	assert.Empty(t, key.D.Bits())
	for _, w := range words {
		assert.Zero(t, w)
	}
}
