// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package contract provides ABI bindings for the delegation contract and the example token,
// written against the chain.Client primitives.
package contract

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"

	"github.com/wjorgensen/OneWalletDemo/acct"
	"github.com/wjorgensen/OneWalletDemo/chain"
)

// ErrNoResult is returned when a call expecting outputs returns nothing, which is what calling an
// address without code does.
var ErrNoResult = errors.New("call returned no data")

// Contract is a generic contract wrapper. Methods are looked up by name or, for overloaded
// methods, by canonical signature such as "revoke(uint32)".
type Contract struct {
	client  chain.Client
	abi     *abi.ABI
	addr    common.Address
	methods map[string]abi.Method
}

// NewContract creates a new contract instance with the given client, ABI data and address.
func NewContract(client chain.Client, abiData []byte, address common.Address) (*Contract, error) {
	contractABI, err := abi.JSON(bytes.NewReader(abiData))
	if err != nil {
		return nil, err
	}
	methods := make(map[string]abi.Method, 2*len(contractABI.Methods))
	for name, m := range contractABI.Methods {
		methods[name] = m
		methods[m.Sig] = m
	}
	return &Contract{
		client:  client,
		abi:     &contractABI,
		addr:    address,
		methods: methods,
	}, nil
}

// At returns the same binding pointed at another address.
func (c *Contract) At(address common.Address) *Contract {
	return &Contract{client: c.client, abi: c.abi, addr: address, methods: c.methods}
}

// Address returns the contract address.
func (c *Contract) Address() common.Address {
	return c.addr
}

// ABI returns the contract ABI.
func (c *Contract) ABI() *abi.ABI {
	return c.abi
}

// Client returns the underlying chain client.
func (c *Contract) Client() chain.Client {
	return c.client
}

// Method starts building a call to method with args.
func (c *Contract) Method(method string, args ...any) *MethodBuilder {
	return &MethodBuilder{
		contract: c,
		method:   method,
		args:     args,
	}
}

// DecodeError resolves the custom error selector carried by a *acct.ChainError against the ABI
// and fills in its Reason. Other errors are returned unchanged.
func (c *Contract) DecodeError(err error) error {
	var chainErr *acct.ChainError
	if !errors.As(err, &chainErr) || len(chainErr.Data) < 4 {
		return err
	}
	for name, e := range c.abi.Errors {
		if bytes.Equal(e.ID[:4], chainErr.Data[:4]) {
			chainErr.Reason = name
			if len(e.Inputs) > 0 {
				if values, unpackErr := e.Inputs.Unpack(chainErr.Data[4:]); unpackErr == nil {
					chainErr.Reason = fmt.Sprintf("%s%v", name, values)
				}
			}
			break
		}
	}
	return err
}

// MethodBuilder assembles the calldata and transaction options of a single method call.
type MethodBuilder struct {
	contract *Contract
	method   string
	args     []any
	value    *big.Int
	authList []types.SetCodeAuthorization
}

// WithValue attaches native value to a write.
func (b *MethodBuilder) WithValue(value *big.Int) *MethodBuilder {
	b.value = value
	return b
}

// WithAuthorizationList attaches EIP-7702 authorizations to a write.
func (b *MethodBuilder) WithAuthorizationList(list ...types.SetCodeAuthorization) *MethodBuilder {
	b.authList = append(b.authList, list...)
	return b
}

func (b *MethodBuilder) abiMethod() (abi.Method, error) {
	method, ok := b.contract.methods[b.method]
	if !ok {
		return abi.Method{}, fmt.Errorf("method not found: %s", b.method)
	}
	return method, nil
}

// Calldata returns the selector followed by the packed arguments.
func (b *MethodBuilder) Calldata() ([]byte, error) {
	method, err := b.abiMethod()
	if err != nil {
		return nil, err
	}
	data, err := method.Inputs.Pack(b.args...)
	if err != nil {
		return nil, acct.NewEncodingError(b.method, err.Error())
	}
	return append(append([]byte{}, method.ID...), data...), nil
}

// Call executes the method against the latest state and unpacks its outputs.
func (b *MethodBuilder) Call(ctx context.Context) ([]any, error) {
	method, err := b.abiMethod()
	if err != nil {
		return nil, err
	}
	data, err := b.Calldata()
	if err != nil {
		return nil, err
	}
	out, err := b.contract.client.ReadContract(ctx, b.contract.addr, data)
	if err != nil {
		return nil, b.contract.DecodeError(err)
	}
	if len(out) == 0 && len(method.Outputs) > 0 {
		return nil, errors.Wrap(ErrNoResult, b.method)
	}
	values, err := method.Outputs.Unpack(out)
	if err != nil {
		return nil, errors.Wrapf(err, "unpack %s", method.Name)
	}
	return values, nil
}

// CallInto executes the method and copies its outputs into result, a pointer to a struct whose
// fields match the output names or, for a single output, a pointer to a value of its type.
func (b *MethodBuilder) CallInto(ctx context.Context, result any) error {
	method, err := b.abiMethod()
	if err != nil {
		return err
	}
	values, err := b.Call(ctx)
	if err != nil {
		return err
	}
	return errors.Wrapf(method.Outputs.Copy(result, values), "copy %s outputs", method.Name)
}

// Send submits the method call as a transaction.
func (b *MethodBuilder) Send(ctx context.Context) (common.Hash, error) {
	data, err := b.Calldata()
	if err != nil {
		return common.Hash{}, err
	}
	hash, err := b.contract.client.WriteContract(ctx, &chain.WriteRequest{
		To:                b.contract.addr,
		Data:              data,
		Value:             b.value,
		AuthorizationList: b.authList,
	})
	if err != nil {
		return common.Hash{}, b.contract.DecodeError(err)
	}
	return hash, nil
}

func (b *MethodBuilder) String() string {
	builder := strings.Builder{}
	builder.WriteString("contract=")
	builder.WriteString(b.contract.addr.Hex())
	builder.WriteString(", method=")
	builder.WriteString(b.method)
	if b.value != nil && b.value.Sign() != 0 {
		builder.WriteString(", value=")
		builder.WriteString(b.value.String())
	}
	if len(b.authList) > 0 {
		fmt.Fprintf(&builder, ", authorizations=%d", len(b.authList))
	}
	return builder.String()
}
