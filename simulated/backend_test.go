// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package simulated_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wjorgensen/OneWalletDemo/acct"
	"github.com/wjorgensen/OneWalletDemo/chain"
	"github.com/wjorgensen/OneWalletDemo/digest"
	"github.com/wjorgensen/OneWalletDemo/simulated"
	"github.com/wjorgensen/OneWalletDemo/test/datagen"
	"github.com/wjorgensen/OneWalletDemo/test/testchain"
)

// execute signs calls with the account's passkey over nonce and submits them.
func execute(ctx context.Context, c *testchain.Chain, account *acct.Account, nonce *big.Int, calls []acct.Call) (common.Hash, error) {
	encoded, err := digest.EncodeCalls(calls)
	if err != nil {
		return common.Hash{}, err
	}
	hash, err := digest.ExecuteDigest(nonce, encoded)
	if err != nil {
		return common.Hash{}, err
	}
	assertion, err := c.Provider().Sign(ctx, hash[:], account.Key.ID)
	if err != nil {
		return common.Hash{}, err
	}
	sig, err := acct.NewP256Signature(assertion.Signature)
	if err != nil {
		return common.Hash{}, err
	}
	return c.Delegation().Execute(ctx, account.Address, encoded, sig, assertion.Metadata, account.Key.Index, false)
}

func reason(t *testing.T, err error) string {
	var chainErr *acct.ChainError
	require.ErrorAs(t, err, &chainErr)
	return chainErr.Reason
}

func TestAuthorizationList(t *testing.T) {
	ctx := context.Background()
	c, err := testchain.New(simulated.WithChainID(big.NewInt(911867)))
	require.NoError(t, err)

	tests := []struct {
		name     string
		chainID  uint64
		nonce    uint64
		delegate bool
	}{
		{"matching chain", 911867, 0, true},
		{"any chain", 0, 0, true},
		{"other chain", 1, 0, false},
		{"stale nonce", 911867, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := datagen.RandKey()
			address := crypto.PubkeyToAddress(key.PublicKey)

			auth, err := types.SignSetCode(key, types.SetCodeAuthorization{
				ChainID: *uint256.NewInt(tt.chainID),
				Address: testchain.DelegationAddress,
				Nonce:   tt.nonce,
			})
			require.NoError(t, err)

			_, err = c.Client().WriteContract(ctx, &chain.WriteRequest{
				To:                address,
				AuthorizationList: []types.SetCodeAuthorization{auth},
			})
			require.NoError(t, err)

			if tt.delegate {
				assert.Equal(t, testchain.DelegationAddress, c.Backend().Delegate(address))
				nonce, err := c.Client().NonceAt(ctx, address)
				require.NoError(t, err)
				assert.Equal(t, uint64(1), nonce)
			} else {
				assert.Equal(t, common.Address{}, c.Backend().Delegate(address))
			}
		})
	}
}

func TestExecute(t *testing.T) {
	ctx := context.Background()
	c, err := testchain.NewDefault()
	require.NoError(t, err)

	account, _, err := c.NewAccount(ctx, big.NewInt(0))
	require.NoError(t, err)
	require.Equal(t, 1, c.Backend().KeyCount(account.Address))

	amount := new(big.Int).Mul(big.NewInt(100), big.NewInt(1e18))
	mint, err := c.Token().MintCall(account.Address, amount)
	require.NoError(t, err)

	nonce := c.Backend().ExecuteNonce(account.Address)
	hash, err := execute(ctx, c, account, nonce, []acct.Call{mint})
	require.NoError(t, err)

	receipt, err := c.Client().WaitForReceipt(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	require.Len(t, receipt.Logs, 1)
	assert.Equal(t, testchain.TokenAddress, receipt.Logs[0].Address)
	assert.Equal(t, common.BytesToHash(account.Address.Bytes()), receipt.Logs[0].Topics[2])

	assert.Equal(t, amount, c.Backend().TokenBalance(testchain.TokenAddress, account.Address))
	assert.Equal(t, new(big.Int).Add(nonce, common.Big1), c.Backend().ExecuteNonce(account.Address))

	t.Run("batch is atomic", func(t *testing.T) {
		recipient := datagen.RandAddress()
		ok, err := c.Token().TransferCall(recipient, big.NewInt(1))
		require.NoError(t, err)
		tooMuch, err := c.Token().TransferCall(recipient, new(big.Int).Mul(amount, big.NewInt(2)))
		require.NoError(t, err)

		_, err = execute(ctx, c, account, c.Backend().ExecuteNonce(account.Address), []acct.Call{ok, tooMuch})
		require.ErrorIs(t, err, acct.ErrChainRejected)
		assert.Equal(t, 0, c.Backend().TokenBalance(testchain.TokenAddress, recipient).Sign())
	})

	t.Run("stale nonce", func(t *testing.T) {
		_, err := execute(ctx, c, account, nonce, []acct.Call{mint})
		assert.Equal(t, "InvalidSignature", reason(t, err))
	})

	t.Run("unknown key", func(t *testing.T) {
		other := *account
		other.Key.Index = 3
		_, err := execute(ctx, c, &other, c.Backend().ExecuteNonce(account.Address), []acct.Call{mint})
		assert.Equal(t, "KeyNotAuthorized", reason(t, err))
	})

	t.Run("self call only", func(t *testing.T) {
		encoded, err := digest.EncodeCalls([]acct.Call{mint})
		require.NoError(t, err)
		_, err = c.Delegation().At(account.Address).Method("execute(bytes)", encoded).Send(ctx)
		assert.Equal(t, "InvalidAuthority", reason(t, err))
	})
}

func TestExpiredKey(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	c, err := testchain.New(simulated.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	account, _, err := c.NewAccount(ctx, big.NewInt(now.Add(time.Minute).Unix()))
	require.NoError(t, err)

	_, err = execute(ctx, c, account, c.Backend().ExecuteNonce(account.Address), nil)
	require.NoError(t, err)

	now = now.Add(time.Hour)
	_, err = execute(ctx, c, account, c.Backend().ExecuteNonce(account.Address), nil)
	assert.Equal(t, "KeyExpired", reason(t, err))
}

func TestWithoutDryRun(t *testing.T) {
	ctx := context.Background()
	c, err := testchain.New(simulated.WithoutDryRun())
	require.NoError(t, err)

	account, _, err := c.NewAccount(ctx, big.NewInt(0))
	require.NoError(t, err)

	before := c.Backend().BlockNumber()
	hash, err := execute(ctx, c, account, big.NewInt(42), nil)
	require.NoError(t, err)
	assert.Equal(t, before+1, c.Backend().BlockNumber())

	receipt, err := c.Client().WaitForReceipt(ctx, hash)
	require.NotNil(t, receipt)
	assert.Equal(t, types.ReceiptStatusFailed, receipt.Status)
	assert.Equal(t, hash, *errTxHash(t, err))

	// custom errors are named by the binding, the backend only carries the data
	assert.Equal(t, "InvalidSignature", reason(t, c.Delegation().DecodeError(err)))
}

func errTxHash(t *testing.T, err error) *common.Hash {
	var chainErr *acct.ChainError
	require.ErrorAs(t, err, &chainErr)
	require.NotNil(t, chainErr.TxHash)
	return chainErr.TxHash
}

func TestPinNonce(t *testing.T) {
	ctx := context.Background()
	c, err := testchain.NewDefault()
	require.NoError(t, err)

	account, _, err := c.NewAccount(ctx, big.NewInt(0))
	require.NoError(t, err)

	c.Backend().PinNonce(big.NewInt(1))
	for range 2 {
		nonce, err := c.Delegation().Nonce(ctx, account.Address)
		require.NoError(t, err)
		assert.Equal(t, int64(1), nonce.Int64())

		_, _ = execute(ctx, c, account, nonce, nil)
	}
	assert.Equal(t, int64(2), c.Backend().ExecuteNonce(account.Address).Int64())

	c.Backend().PinNonce(nil)
	nonce, err := c.Delegation().Nonce(ctx, account.Address)
	require.NoError(t, err)
	assert.Equal(t, int64(2), nonce.Int64())
}

func TestClient(t *testing.T) {
	ctx := context.Background()
	backend := simulated.NewBackend(testchain.DelegationAddress)
	client := backend.Client(datagen.RandAddress())

	id, err := client.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, simulated.DefaultChainID, id)

	_, err = client.WaitForReceipt(ctx, datagen.RandomHash())
	assert.ErrorIs(t, err, simulated.ErrUnknownTransaction)

	out, err := client.ReadContract(ctx, datagen.RandAddress(), []byte{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Empty(t, out)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = client.WriteContract(cancelled, &chain.WriteRequest{To: datagen.RandAddress()})
	assert.ErrorIs(t, err, context.Canceled)
}
