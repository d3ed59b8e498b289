package gateway

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const bridgeABI = `[
	{"name":"tokensPerUnit","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

const erc20ABI = `[
	{"name":"transfer","type":"function","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"name":"Transfer","type":"event","anonymous":false,"inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]}
]`

// chainBackend is what the contract bindings need from the node
type chainBackend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// contractBridge talks to the bridge rate oracle and sends tokens from the bridge wallet
type contractBridge struct {
	bridge  *bind.BoundContract
	token   *bind.BoundContract
	backend chainBackend
	auth    *bind.TransactOpts
}

func newContractBridge(backend chainBackend, bridgeAddress, tokenAddress common.Address, auth *bind.TransactOpts) (*contractBridge, error) {
	bridgeSpec, err := abi.JSON(strings.NewReader(bridgeABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse bridge abi: %w", err)
	}
	tokenSpec, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token abi: %w", err)
	}

	return &contractBridge{
		bridge:  bind.NewBoundContract(bridgeAddress, bridgeSpec, backend, backend, backend),
		token:   bind.NewBoundContract(tokenAddress, tokenSpec, backend, backend, backend),
		backend: backend,
		auth:    auth,
	}, nil
}

// TokensPerUnit returns the token base units one game unit is worth
func (c *contractBridge) TokensPerUnit(ctx context.Context) (*big.Int, error) {
	var out []any
	if err := c.bridge.Call(&bind.CallOpts{Context: ctx}, &out, "tokensPerUnit"); err != nil {
		return nil, fmt.Errorf("failed to call tokensPerUnit: %w", err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("tokensPerUnit returned %d values", len(out))
	}
	rate, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("tokensPerUnit returned %T", out[0])
	}
	return rate, nil
}

// Transfer sends amount base units to to and waits until the transaction is mined
func (c *contractBridge) Transfer(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error) {
	if c.auth == nil {
		return common.Hash{}, fmt.Errorf("bridge wallet is not configured")
	}
	opts := *c.auth
	opts.Context = ctx

	tx, err := c.token.Transact(&opts, "transfer", to, amount)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to send token transfer: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return tx.Hash(), fmt.Errorf("failed waiting for %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return tx.Hash(), fmt.Errorf("token transfer %s reverted", tx.Hash().Hex())
	}
	return tx.Hash(), nil
}
