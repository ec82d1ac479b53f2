// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chain

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/wjorgensen/OneWalletDemo/acct"
	"github.com/wjorgensen/OneWalletDemo/log"
)

var logger = log.WithContext("pkg", "chain")

const defaultPollInterval = time.Second

// RPCClient implements Client over JSON-RPC. With a sponsor key it signs and pays for
// transactions itself, otherwise it hands them to the node with wallet_sendTransaction and lets
// the sequencer fill in the sender.
type RPCClient struct {
	rpc          *rpc.Client
	eth          *ethclient.Client
	sponsor      *ecdsa.PrivateKey
	sponsorAddr  common.Address
	pollInterval time.Duration

	sendMu  sync.Mutex
	idMu    sync.Mutex
	chainID *big.Int
}

var _ Client = (*RPCClient)(nil)

// Option configures an RPCClient.
type Option func(*RPCClient)

// WithSponsor makes the client sign and pay for every transaction with key.
func WithSponsor(key *ecdsa.PrivateKey) Option {
	return func(c *RPCClient) {
		c.sponsor = key
		c.sponsorAddr = crypto.PubkeyToAddress(key.PublicKey)
	}
}

// WithPollInterval sets the receipt polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *RPCClient) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// Dial connects to the endpoint at url.
func Dial(ctx context.Context, url string, opts ...Option) (*RPCClient, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", url)
	}
	return NewRPCClient(c, opts...), nil
}

// NewRPCClient wraps an established rpc connection.
func NewRPCClient(c *rpc.Client, opts ...Option) *RPCClient {
	client := &RPCClient{
		rpc:          c,
		eth:          ethclient.NewClient(c),
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Close closes the underlying connection.
func (c *RPCClient) Close() {
	c.rpc.Close()
}

// ChainID implements Client. The value is cached after the first successful fetch.
func (c *RPCClient) ChainID(ctx context.Context) (*big.Int, error) {
	c.idMu.Lock()
	defer c.idMu.Unlock()
	if c.chainID == nil {
		id, err := c.eth.ChainID(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "chain id")
		}
		c.chainID = id
	}
	return new(big.Int).Set(c.chainID), nil
}

// NonceAt implements Client.
func (c *RPCClient) NonceAt(ctx context.Context, account common.Address) (uint64, error) {
	nonce, err := c.eth.PendingNonceAt(ctx, account)
	return nonce, errors.Wrap(err, "nonce")
}

// ReadContract implements Client.
func (c *RPCClient) ReadContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	start := time.Now()
	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	metricReadDuration().Observe(time.Since(start).Milliseconds())
	if err != nil {
		return nil, FromRPCError(err, nil)
	}
	return out, nil
}

// WriteContract implements Client.
func (c *RPCClient) WriteContract(ctx context.Context, req *WriteRequest) (common.Hash, error) {
	path := "sponsor"
	if c.sponsor == nil {
		path = "sequencer"
	}

	var (
		hash common.Hash
		err  error
	)
	if c.sponsor == nil {
		hash, err = c.sendUnsigned(ctx, req)
	} else {
		hash, err = c.sendSigned(ctx, req)
	}

	result := "ok"
	if err != nil {
		result = "error"
	}
	metricWriteCount().AddWithLabel(1, map[string]string{"path": path, "result": result})
	if err != nil {
		return common.Hash{}, err
	}
	logger.Debug("transaction submitted", "hash", hash, "to", req.To, "path", path, "authorizations", len(req.AuthorizationList))
	return hash, nil
}

type sendArgs struct {
	To                *common.Address              `json:"to"`
	Data              hexutil.Bytes                `json:"data"`
	Value             *hexutil.Big                 `json:"value,omitempty"`
	Gas               *hexutil.Uint64              `json:"gas,omitempty"`
	AuthorizationList []types.SetCodeAuthorization `json:"authorizationList,omitempty"`
}

func (c *RPCClient) sendUnsigned(ctx context.Context, req *WriteRequest) (common.Hash, error) {
	args := sendArgs{
		To:                &req.To,
		Data:              req.Data,
		AuthorizationList: req.AuthorizationList,
	}
	if req.Value != nil {
		args.Value = (*hexutil.Big)(req.Value)
	}
	if req.Gas != 0 {
		args.Gas = (*hexutil.Uint64)(&req.Gas)
	}

	var hash common.Hash
	if err := c.rpc.CallContext(ctx, &hash, "wallet_sendTransaction", args); err != nil {
		return common.Hash{}, FromRPCError(err, nil)
	}
	return hash, nil
}

func (c *RPCClient) sendSigned(ctx context.Context, req *WriteRequest) (common.Hash, error) {
	chainID, err := c.ChainID(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	// one in-flight nonce assignment per sponsor
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	gas := req.Gas
	if gas == 0 {
		estimated, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
			From:              c.sponsorAddr,
			To:                &req.To,
			Value:             value,
			Data:              req.Data,
			AuthorizationList: req.AuthorizationList,
		})
		if err != nil {
			return common.Hash{}, FromRPCError(err, nil)
		}
		gas = estimated + estimated/5
	}

	nonce, err := c.eth.PendingNonceAt(ctx, c.sponsorAddr)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "sponsor nonce")
	}
	tip, err := c.eth.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "gas tip")
	}
	head, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "latest header")
	}
	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	var txdata types.TxData
	if len(req.AuthorizationList) > 0 {
		txdata = &types.SetCodeTx{
			ChainID:   uint256.MustFromBig(chainID),
			Nonce:     nonce,
			GasTipCap: uint256.MustFromBig(tip),
			GasFeeCap: uint256.MustFromBig(feeCap),
			Gas:       gas,
			To:        req.To,
			Value:     uint256.MustFromBig(value),
			Data:      req.Data,
			AuthList:  req.AuthorizationList,
		}
	} else {
		txdata = &types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: feeCap,
			Gas:       gas,
			To:        &req.To,
			Value:     value,
			Data:      req.Data,
		}
	}

	signed, err := types.SignTx(types.NewTx(txdata), types.LatestSignerForChainID(chainID), c.sponsor)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "sign transaction")
	}
	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, FromRPCError(err, nil)
	}
	return signed.Hash(), nil
}

// WaitForReceipt implements Client by polling until the receipt is available or ctx is done.
func (c *RPCClient) WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	start := time.Now()
	for {
		receipt, err := c.eth.TransactionReceipt(ctx, hash)
		if err == nil {
			metricInclusionDuration().Observe(time.Since(start).Milliseconds())
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, c.revertError(ctx, hash, receipt)
			}
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, errors.Wrap(err, "receipt")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

// revertError replays a failed transaction on its parent state to recover the revert data.
func (c *RPCClient) revertError(ctx context.Context, hash common.Hash, receipt *types.Receipt) error {
	fallback := RevertError(nil, &hash, nil)

	tx, _, err := c.eth.TransactionByHash(ctx, hash)
	if err != nil || tx.To() == nil {
		return fallback
	}
	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return fallback
	}
	var block *big.Int
	if receipt.BlockNumber != nil && receipt.BlockNumber.Sign() > 0 {
		block = new(big.Int).Sub(receipt.BlockNumber, big.NewInt(1))
	}
	_, err = c.eth.CallContract(ctx, ethereum.CallMsg{
		From:              from,
		To:                tx.To(),
		Gas:               tx.Gas(),
		Value:             tx.Value(),
		Data:              tx.Data(),
		AuthorizationList: tx.SetCodeAuthorizations(),
	}, block)
	var chainErr *acct.ChainError
	if errors.As(FromRPCError(err, &hash), &chainErr) {
		return chainErr
	}
	return fallback
}
