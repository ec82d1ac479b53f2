// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package simulated implements an in-memory chain that understands EIP-7702 authorizations and
// runs the delegation contract and the example token natively. It backs the package tests of
// the account layer and the CLI's offline mode.
package simulated

import (
	"bytes"
	"context"
	"encoding/binary"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/wjorgensen/OneWalletDemo/acct"
	"github.com/wjorgensen/OneWalletDemo/chain"
	"github.com/wjorgensen/OneWalletDemo/contract"
	"github.com/wjorgensen/OneWalletDemo/log"
)

var logger = log.WithContext("pkg", "simulated")

// DefaultChainID is the chain id of a backend created without WithChainID.
var DefaultChainID = big.NewInt(1337)

// ErrUnknownTransaction is returned when waiting for a hash the backend never produced.
var ErrUnknownTransaction = errors.New("unknown transaction")

// Option configures a Backend.
type Option func(*Backend)

// WithChainID sets the chain id reported to clients and required in authorizations.
func WithChainID(id *big.Int) Option {
	return func(b *Backend) {
		b.chainID = new(big.Int).Set(id)
	}
}

// WithClock replaces the clock key expiries are checked against.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		b.now = now
	}
}

// WithoutDryRun includes reverting transactions as failed receipts instead of rejecting them at
// submission, the way a sequencer that does not estimate gas behaves.
func WithoutDryRun() Option {
	return func(b *Backend) {
		b.dryRun = false
	}
}

type keySlot struct {
	authorized bool
	expiry     *big.Int
	keyType    uint8
	publicKey  acct.PublicKey
}

type account struct {
	txNonce  uint64
	delegate common.Address
	nonce    *big.Int
	keys     []keySlot
}

func (a *account) copy() *account {
	cpy := *a
	cpy.nonce = new(big.Int).Set(a.nonce)
	cpy.keys = append([]keySlot(nil), a.keys...)
	return &cpy
}

type token struct {
	name       string
	symbol     string
	decimals   uint8
	supply     *big.Int
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
}

func (t *token) copy() *token {
	cpy := *t
	cpy.supply = new(big.Int).Set(t.supply)
	cpy.balances = make(map[common.Address]*big.Int, len(t.balances))
	for k, v := range t.balances {
		cpy.balances[k] = new(big.Int).Set(v)
	}
	cpy.allowances = make(map[common.Address]map[common.Address]*big.Int, len(t.allowances))
	for owner, spenders := range t.allowances {
		cpy.allowances[owner] = make(map[common.Address]*big.Int, len(spenders))
		for k, v := range spenders {
			cpy.allowances[owner][k] = new(big.Int).Set(v)
		}
	}
	return &cpy
}

type state struct {
	accounts map[common.Address]*account
	tokens   map[common.Address]*token
}

func newState() *state {
	return &state{
		accounts: make(map[common.Address]*account),
		tokens:   make(map[common.Address]*token),
	}
}

func (s *state) copy() *state {
	cpy := newState()
	for k, v := range s.accounts {
		cpy.accounts[k] = v.copy()
	}
	for k, v := range s.tokens {
		cpy.tokens[k] = v.copy()
	}
	return cpy
}

func (s *state) account(addr common.Address) *account {
	a, ok := s.accounts[addr]
	if !ok {
		a = &account{nonce: new(big.Int)}
		s.accounts[addr] = a
	}
	return a
}

type transaction struct {
	receipt *types.Receipt
	revert  []byte
}

// Backend is an in-memory chain. Every accepted transaction is included immediately in its own
// block.
type Backend struct {
	mu             sync.Mutex
	chainID        *big.Int
	implementation common.Address
	now            func() time.Time
	dryRun         bool

	state       *state
	txs         map[common.Hash]*transaction
	blockNumber uint64
	pinnedNonce *big.Int

	delegationABI abi.ABI
	erc20ABI      abi.ABI
}

// NewBackend creates a backend treating implementation as the delegation contract.
func NewBackend(implementation common.Address, opts ...Option) *Backend {
	b := &Backend{
		chainID:        new(big.Int).Set(DefaultChainID),
		implementation: implementation,
		now:            time.Now,
		dryRun:         true,
		state:          newState(),
		txs:            make(map[common.Hash]*transaction),
	}
	for _, opt := range opts {
		opt(b)
	}
	var err error
	if b.delegationABI, err = abi.JSON(bytes.NewReader(contract.DelegationABI())); err != nil {
		panic(err)
	}
	if b.erc20ABI, err = abi.JSON(bytes.NewReader(contract.ERC20ABI())); err != nil {
		panic(err)
	}
	return b
}

// Implementation returns the address of the delegation contract.
func (b *Backend) Implementation() common.Address {
	return b.implementation
}

// Client returns a chain client submitting transactions from sender.
func (b *Backend) Client(sender common.Address) *Client {
	return &Client{backend: b, sender: sender}
}

// DeployERC20 installs the example token at addr.
func (b *Backend) DeployERC20(addr common.Address, name, symbol string, decimals uint8) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.tokens[addr] = &token{
		name:     name,
		symbol:   symbol,
		decimals: decimals,
		supply:   new(big.Int),
		balances: make(map[common.Address]*big.Int),
	}
}

// PinNonce makes nonce reads return n regardless of the account state, so that concurrent
// executions sign over the same nonce. A nil n releases the pin.
func (b *Backend) PinNonce(n *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n == nil {
		b.pinnedNonce = nil
		return
	}
	b.pinnedNonce = new(big.Int).Set(n)
}

// Delegate returns the address addr delegates to, zero when it is a plain EOA.
func (b *Backend) Delegate(addr common.Address) common.Address {
	b.mu.Lock()
	defer b.mu.Unlock()
	if a, ok := b.state.accounts[addr]; ok {
		return a.delegate
	}
	return common.Address{}
}

// ExecuteNonce returns the delegation nonce of addr.
func (b *Backend) ExecuteNonce(addr common.Address) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if a, ok := b.state.accounts[addr]; ok {
		return new(big.Int).Set(a.nonce)
	}
	return new(big.Int)
}

// KeyCount returns the number of key slots of addr.
func (b *Backend) KeyCount(addr common.Address) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if a, ok := b.state.accounts[addr]; ok {
		return len(a.keys)
	}
	return 0
}

// TokenBalance returns the balance of owner in the token at addr.
func (b *Backend) TokenBalance(addr, owner common.Address) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.state.tokens[addr]; ok {
		if bal, ok := t.balances[owner]; ok {
			return new(big.Int).Set(bal)
		}
	}
	return new(big.Int)
}

// BlockNumber returns the number of the latest block.
func (b *Backend) BlockNumber() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.blockNumber
}

func (b *Backend) read(to common.Address, data []byte) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pinnedNonce != nil && len(data) >= 4 {
		for _, name := range []string{contract.NonceMethod, contract.ExecuteNonceMethod} {
			if bytes.Equal(data[:4], b.delegationABI.Methods[name].ID) && b.isDelegated(b.state, to) {
				return b.delegationABI.Methods[name].Outputs.Pack(new(big.Int).Set(b.pinnedNonce))
			}
		}
	}
	exec := &execution{backend: b, state: b.state.copy()}
	out, err := exec.call(common.Address{}, to, nil, data)
	if err != nil {
		return nil, revertError(err, nil)
	}
	return out, nil
}

func (b *Backend) write(sender common.Address, req *chain.WriteRequest) (common.Hash, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := b.state.copy()
	from := st.account(sender)
	txNonce := from.txNonce
	from.txNonce++

	for i := range req.AuthorizationList {
		b.applyAuthorization(st, &req.AuthorizationList[i])
	}

	exec := &execution{backend: b, state: st.copy()}
	_, callErr := exec.call(sender, req.To, req.Value, req.Data)
	if callErr != nil && b.dryRun {
		return common.Hash{}, revertError(callErr, nil)
	}

	var nonceWord [8]byte
	binary.BigEndian.PutUint64(nonceWord[:], txNonce)
	hash := crypto.Keccak256Hash(sender.Bytes(), nonceWord[:], req.To.Bytes(), req.Data)

	b.blockNumber++
	receipt := &types.Receipt{
		Type:        types.DynamicFeeTxType,
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      hash,
		BlockNumber: new(big.Int).SetUint64(b.blockNumber),
		BlockHash:   crypto.Keccak256Hash(hash.Bytes()),
		GasUsed:     21000,
	}
	if len(req.AuthorizationList) > 0 {
		receipt.Type = types.SetCodeTxType
	}
	tx := &transaction{receipt: receipt}

	if callErr != nil {
		receipt.Status = types.ReceiptStatusFailed
		if rev, ok := callErr.(*revert); ok {
			tx.revert = rev.data
		}
		// sender nonce and authorizations survive a reverted call
		b.state = st
		logger.Debug("transaction reverted", "tx", hash, "from", sender, "to", req.To)
	} else {
		for _, l := range exec.logs {
			l.TxHash = hash
			l.BlockNumber = b.blockNumber
			l.BlockHash = receipt.BlockHash
		}
		receipt.Logs = exec.logs
		b.state = exec.state
		logger.Debug("transaction included", "tx", hash, "from", sender, "to", req.To, "block", b.blockNumber)
	}
	b.txs[hash] = tx
	return hash, nil
}

// applyAuthorization installs a delegation the way EIP-7702 does: tuples for another chain, with
// an invalid signature or a stale nonce are skipped.
func (b *Backend) applyAuthorization(st *state, auth *types.SetCodeAuthorization) {
	if !auth.ChainID.IsZero() && auth.ChainID.CmpBig(b.chainID) != 0 {
		logger.Debug("authorization skipped", "reason", "chain id", "chainID", &auth.ChainID)
		return
	}
	authority, err := auth.Authority()
	if err != nil {
		logger.Debug("authorization skipped", "reason", "signature", "err", err)
		return
	}
	a := st.account(authority)
	if a.txNonce != auth.Nonce {
		logger.Debug("authorization skipped", "reason", "nonce", "authority", authority, "want", a.txNonce, "have", auth.Nonce)
		return
	}
	a.delegate = auth.Address
	a.txNonce++
}

func (b *Backend) isDelegated(st *state, addr common.Address) bool {
	a, ok := st.accounts[addr]
	return ok && a.delegate == b.implementation && a.delegate != (common.Address{})
}

func (b *Backend) receipt(hash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tx, ok := b.txs[hash]
	if !ok {
		return nil, errors.Wrap(ErrUnknownTransaction, hash.Hex())
	}
	if tx.receipt.Status == types.ReceiptStatusFailed {
		return tx.receipt, chain.RevertError(tx.revert, &hash, nil)
	}
	return tx.receipt, nil
}

func revertError(err error, txHash *common.Hash) error {
	if rev, ok := err.(*revert); ok {
		return chain.RevertError(rev.data, txHash, nil)
	}
	return err
}

// Client is a chain.Client bound to a sender.
type Client struct {
	backend *Backend
	sender  common.Address
}

var _ chain.Client = (*Client)(nil)

// Sender returns the address transactions are sent from.
func (c *Client) Sender() common.Address {
	return c.sender
}

func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return new(big.Int).Set(c.backend.chainID), nil
}

func (c *Client) NonceAt(ctx context.Context, addr common.Address) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()
	if a, ok := c.backend.state.accounts[addr]; ok {
		return a.txNonce, nil
	}
	return 0, nil
}

func (c *Client) ReadContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.backend.read(to, data)
}

func (c *Client) WriteContract(ctx context.Context, req *chain.WriteRequest) (common.Hash, error) {
	if err := ctx.Err(); err != nil {
		return common.Hash{}, err
	}
	return c.backend.write(c.sender, req)
}

func (c *Client) WaitForReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.backend.receipt(hash)
}
