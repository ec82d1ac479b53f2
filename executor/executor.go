// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package executor signs call batches with an account's passkey and submits them through the
// delegation contract.
package executor

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/wjorgensen/OneWalletDemo/acct"
	"github.com/wjorgensen/OneWalletDemo/chain"
	"github.com/wjorgensen/OneWalletDemo/contract"
	"github.com/wjorgensen/OneWalletDemo/digest"
	"github.com/wjorgensen/OneWalletDemo/log"
	"github.com/wjorgensen/OneWalletDemo/webauthn"
)

var logger = log.WithContext("pkg", "executor")

// Options tunes an Executor.
type Options struct {
	// Serialize runs the executions of an account one at a time, from the nonce read until the
	// transaction is submitted, or included for ExecuteAndWait. Without it concurrent executions
	// sign over the same nonce and all but one revert.
	Serialize bool
}

// Executor runs call batches on delegated accounts. It never retries: a batch rejected by the
// chain is reported and dropped.
type Executor struct {
	provider   webauthn.Provider
	delegation *contract.Delegation
	client     chain.Client
	opts       Options

	mu    sync.Mutex
	locks map[common.Address]*semaphore.Weighted
}

// New returns an Executor signing with provider and submitting through client.
func New(provider webauthn.Provider, delegation *contract.Delegation, client chain.Client, opts Options) *Executor {
	return &Executor{
		provider:   provider,
		delegation: delegation,
		client:     client,
		opts:       opts,
		locks:      make(map[common.Address]*semaphore.Weighted),
	}
}

// lock acquires the execution slot of address. The returned release is a no-op when executions
// are not serialized.
func (e *Executor) lock(ctx context.Context, address common.Address) (func(), error) {
	if !e.opts.Serialize {
		return func() {}, nil
	}
	e.mu.Lock()
	sem, ok := e.locks[address]
	if !ok {
		sem = semaphore.NewWeighted(1)
		e.locks[address] = sem
	}
	e.mu.Unlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { sem.Release(1) }, nil
}

// Execute signs calls with the account's passkey over the current execution nonce and submits
// them. It returns the transaction hash without waiting for inclusion.
func (e *Executor) Execute(ctx context.Context, account *acct.Account, calls []acct.Call) (common.Hash, error) {
	release, err := e.lock(ctx, account.Address)
	if err != nil {
		return common.Hash{}, err
	}
	defer release()

	return e.execute(ctx, account, calls)
}

// ExecuteAndWait is Execute followed by the wait for inclusion. A reverted batch is reported as
// an error wrapping acct.ErrChainRejected, along with its receipt.
func (e *Executor) ExecuteAndWait(ctx context.Context, account *acct.Account, calls []acct.Call) (*types.Receipt, error) {
	release, err := e.lock(ctx, account.Address)
	if err != nil {
		return nil, err
	}
	defer release()

	hash, err := e.execute(ctx, account, calls)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	receipt, err := e.client.WaitForReceipt(ctx, hash)
	if err != nil {
		err = e.delegation.DecodeError(err)
		logger.Warn("batch not executed", "account", account.Address, "tx", hash, "err", err)
		return receipt, err
	}
	logger.Debug("batch included", "account", account.Address, "tx", hash, "block", receipt.BlockNumber, "elapsed", time.Since(start))
	return receipt, nil
}

func (e *Executor) execute(ctx context.Context, account *acct.Account, calls []acct.Call) (hash common.Hash, err error) {
	start := time.Now()
	defer func() {
		labels := map[string]string{"result": result(err)}
		metricExecuteCount().AddWithLabel(1, labels)
		metricExecuteDuration().ObserveWithLabels(time.Since(start).Milliseconds(), labels)
	}()

	encoded, err := digest.EncodeCalls(calls)
	if err != nil {
		return common.Hash{}, err
	}
	nonce, err := e.delegation.Nonce(ctx, account.Address)
	if err != nil {
		return common.Hash{}, errors.WithMessage(err, "read nonce")
	}
	challenge, err := digest.ExecuteDigest(nonce, encoded)
	if err != nil {
		return common.Hash{}, err
	}

	assertion, err := e.provider.Sign(ctx, challenge[:], account.Key.ID)
	if err != nil {
		return common.Hash{}, errors.WithMessage(err, "sign")
	}
	sig, err := acct.NewP256Signature(assertion.Signature)
	if err != nil {
		return common.Hash{}, err
	}

	hash, err = e.delegation.Execute(ctx, account.Address, encoded, sig, assertion.Metadata, account.Key.Index, false)
	if err != nil {
		return common.Hash{}, err
	}
	logger.Debug("batch submitted", "account", account.Address, "nonce", nonce, "calls", len(calls), "tx", hash)
	return hash, nil
}

// RevokeCall returns the self call revoking key slot index of account, to be executed in a batch.
func (e *Executor) RevokeCall(account *acct.Account, index uint32) (acct.Call, error) {
	data, err := e.delegation.RevokeCalldata(index, nil)
	if err != nil {
		return acct.Call{}, err
	}
	return acct.Call{To: account.Address, Data: data}, nil
}

// AuthorizeCall returns the self call authorizing pub on account, to be executed in a batch.
func (e *Executor) AuthorizeCall(account *acct.Account, pub acct.PublicKey, expiry *big.Int) (acct.Call, error) {
	data, err := e.delegation.AuthorizeCalldata(pub, expiry, nil)
	if err != nil {
		return acct.Call{}, err
	}
	return acct.Call{To: account.Address, Data: data}, nil
}

func result(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, acct.ErrUserCancelled):
		return "cancelled"
	case errors.Is(err, acct.ErrEncoding):
		return "encoding"
	case errors.Is(err, acct.ErrChainRejected):
		return "rejected"
	default:
		return "error"
	}
}
