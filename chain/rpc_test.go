// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chain

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wjorgensen/OneWalletDemo/acct"
)

type revertErr struct{ data string }

func (e *revertErr) Error() string          { return "execution reverted" }
func (e *revertErr) ErrorCode() int         { return 3 }
func (e *revertErr) ErrorData() interface{} { return e.data }

type callArgs struct {
	To    *common.Address `json:"to"`
	Data  hexutil.Bytes   `json:"data"`
	Input hexutil.Bytes   `json:"input"`
}

type ethService struct {
	mu          sync.Mutex
	revertData  string
	callResult  hexutil.Bytes
	receipt     *types.Receipt
	receiptHits int
	sent        []map[string]any
}

func (s *ethService) ChainId() *hexutil.Big {
	return (*hexutil.Big)(big.NewInt(911867))
}

func (s *ethService) GetTransactionCount(common.Address, string) hexutil.Uint64 {
	return 7
}

func (s *ethService) Call(args callArgs, _ string) (hexutil.Bytes, error) {
	if s.revertData != "" {
		return nil, &revertErr{s.revertData}
	}
	return s.callResult, nil
}

func (s *ethService) GetTransactionReceipt(common.Hash) (*types.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receiptHits++
	if s.receiptHits < 3 {
		return nil, nil
	}
	return s.receipt, nil
}

type walletService struct {
	eth *ethService
}

func (w *walletService) SendTransaction(args map[string]any) (common.Hash, error) {
	w.eth.mu.Lock()
	defer w.eth.mu.Unlock()
	w.eth.sent = append(w.eth.sent, args)
	return common.HexToHash("0xabc"), nil
}

func newTestClient(t *testing.T, svc *ethService) *RPCClient {
	srv := rpc.NewServer()
	require.NoError(t, srv.RegisterName("eth", svc))
	require.NoError(t, srv.RegisterName("wallet", &walletService{eth: svc}))
	t.Cleanup(srv.Stop)

	return NewRPCClient(rpc.DialInProc(srv), WithPollInterval(10*time.Millisecond))
}

func TestRPCClientRead(t *testing.T) {
	ctx := context.Background()
	svc := &ethService{callResult: hexutil.Bytes{0x01, 0x02}}
	client := newTestClient(t, svc)

	id, err := client.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(911867), id.Int64())

	nonce, err := client.NonceAt(ctx, common.Address{1})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), nonce)

	out, err := client.ReadContract(ctx, common.Address{2}, []byte{0xaa})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, out)

	t.Run("revert string", func(t *testing.T) {
		reason, err := abi.NewType("string", "", nil)
		require.NoError(t, err)
		packed, err := abi.Arguments{{Type: reason}}.Pack("nope")
		require.NoError(t, err)
		svc.revertData = hexutil.Encode(append(crypto.Keccak256([]byte("Error(string)"))[:4], packed...))
		defer func() { svc.revertData = "" }()

		_, err = client.ReadContract(ctx, common.Address{2}, nil)
		require.ErrorIs(t, err, acct.ErrChainRejected)

		var chainErr *acct.ChainError
		require.ErrorAs(t, err, &chainErr)
		assert.Equal(t, "nope", chainErr.Reason)
	})

	t.Run("custom error", func(t *testing.T) {
		selector := crypto.Keccak256([]byte("InvalidSignature()"))[:4]
		svc.revertData = hexutil.Encode(selector)
		defer func() { svc.revertData = "" }()

		_, err := client.ReadContract(ctx, common.Address{2}, nil)
		var chainErr *acct.ChainError
		require.ErrorAs(t, err, &chainErr)
		assert.Empty(t, chainErr.Reason)
		assert.Equal(t, selector, chainErr.Data)
	})
}

func TestRPCClientSequencerWrite(t *testing.T) {
	ctx := context.Background()
	svc := &ethService{}
	client := newTestClient(t, svc)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	auth, err := types.SignSetCode(key, types.SetCodeAuthorization{
		ChainID: *uint256.NewInt(911867),
		Address: common.HexToAddress("0x6bbce6b04736f9db8d3dbE509b87Da3BC1435439"),
		Nonce:   3,
	})
	require.NoError(t, err)

	to := crypto.PubkeyToAddress(key.PublicKey)
	hash, err := client.WriteContract(ctx, &WriteRequest{
		To:                to,
		Data:              []byte{0xde, 0xad},
		AuthorizationList: []types.SetCodeAuthorization{auth},
	})
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0xabc"), hash)

	require.Len(t, svc.sent, 1)
	sent := svc.sent[0]
	assert.Equal(t, "0xdead", sent["data"])
	assert.Equal(t, hexutil.Encode(to.Bytes()), sent["to"])
	list, ok := sent["authorizationList"].([]any)
	require.True(t, ok)
	require.Len(t, list, 1)
	assert.Equal(t, "0x3", list[0].(map[string]any)["nonce"])
}

func TestRPCClientWaitForReceipt(t *testing.T) {
	ctx := context.Background()
	hash := common.HexToHash("0x1234")

	t.Run("success", func(t *testing.T) {
		svc := &ethService{receipt: &types.Receipt{
			Status:      types.ReceiptStatusSuccessful,
			TxHash:      hash,
			BlockNumber: big.NewInt(10),
			Logs:        []*types.Log{},
		}}
		client := newTestClient(t, svc)

		receipt, err := client.WaitForReceipt(ctx, hash)
		require.NoError(t, err)
		assert.Equal(t, hash, receipt.TxHash)
		assert.Equal(t, 3, svc.receiptHits)
	})

	t.Run("failed", func(t *testing.T) {
		svc := &ethService{receipt: &types.Receipt{
			Status:      types.ReceiptStatusFailed,
			TxHash:      hash,
			BlockNumber: big.NewInt(10),
			Logs:        []*types.Log{},
		}}
		client := newTestClient(t, svc)

		receipt, err := client.WaitForReceipt(ctx, hash)
		require.NotNil(t, receipt)
		require.ErrorIs(t, err, acct.ErrChainRejected)

		var chainErr *acct.ChainError
		require.ErrorAs(t, err, &chainErr)
		assert.Equal(t, hash, *chainErr.TxHash)
	})

	t.Run("cancelled", func(t *testing.T) {
		client := newTestClient(t, &ethService{})
		cctx, cancel := context.WithTimeout(ctx, 15*time.Millisecond)
		defer cancel()

		_, err := client.WaitForReceipt(cctx, hash)
		require.True(t, errors.Is(err, context.DeadlineExceeded))
	})
}

func TestUnpackRevert(t *testing.T) {
	assert.Equal(t, ReasonReverted, UnpackRevert(nil))
	assert.Equal(t, "", UnpackRevert([]byte{1, 2, 3, 4}))
	assert.Nil(t, FromRPCError(nil, nil))

	plain := errors.New("connection refused")
	assert.Equal(t, plain, FromRPCError(plain, nil))

	reverted := FromRPCError(errors.New("execution reverted"), nil)
	assert.ErrorIs(t, reverted, acct.ErrChainRejected)
}
