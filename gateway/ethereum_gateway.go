package gateway

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"dicewager/config"
	"dicewager/models"
)

var transferEventSignature = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// chainReader is the subset of the node RPC used to verify deposits
type chainReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// bridgeContract prices game units and pays out withdrawals
type bridgeContract interface {
	TokensPerUnit(ctx context.Context) (*big.Int, error)
	Transfer(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error)
}

// EthereumGateway bridges game balance to an ERC-20 token held by a bridge address
type EthereumGateway struct {
	reader        chainReader
	contract      bridgeContract
	token         common.Address
	bridge        common.Address
	decimals      int32
	confirmations uint64
	pollInterval  time.Duration
	timeout       time.Duration
}

// DialEthereumGateway connects to the node and binds the configured contracts
func DialEthereumGateway(ctx context.Context, cfg *config.Config) (*EthereumGateway, error) {
	for name, addr := range map[string]string{"TOKEN_CONTRACT": cfg.TokenContract, "BRIDGE_CONTRACT": cfg.BridgeContract} {
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("%s %q is not an address", name, addr)
		}
	}

	client, err := ethclient.DialContext(ctx, strings.TrimSpace(cfg.EthRPCURL))
	if err != nil {
		return nil, fmt.Errorf("failed to dial ethereum node: %w", err)
	}

	var auth *bind.TransactOpts
	if cfg.BridgePrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.BridgePrivateKey, "0x"))
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to parse bridge private key: %w", err)
		}
		auth, err = bind.NewKeyedTransactorWithChainID(key, big.NewInt(cfg.EthChainID))
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to create bridge transactor: %w", err)
		}
	} else {
		log.Warn("BRIDGE_PRIVATE_KEY is not set, withdrawals will fail")
	}

	token := common.HexToAddress(cfg.TokenContract)
	bridge := common.HexToAddress(cfg.BridgeContract)
	contract, err := newContractBridge(client, bridge, token, auth)
	if err != nil {
		client.Close()
		return nil, err
	}

	return NewEthereumGateway(client, contract, token, bridge, cfg.TokenDecimals, cfg.DepositConfirmations), nil
}

// NewEthereumGateway creates a gateway from an RPC reader and the bound contracts
func NewEthereumGateway(reader chainReader, contract bridgeContract, token, bridge common.Address, decimals int32, confirmations uint64) *EthereumGateway {
	return &EthereumGateway{
		reader:        reader,
		contract:      contract,
		token:         token,
		bridge:        bridge,
		decimals:      decimals,
		confirmations: confirmations,
		pollInterval:  5 * time.Second,
		timeout:       15 * time.Minute,
	}
}

// GetExchangeRate returns whole tokens per game unit
func (g *EthereumGateway) GetExchangeRate(ctx context.Context) (decimal.Decimal, error) {
	base, err := g.contract.TokensPerUnit(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(base, -g.decimals), nil
}

// RequestTransfer starts a deposit verification or a withdrawal payout.
// The returned channel yields exactly one result and is then closed.
func (g *EthereumGateway) RequestTransfer(ctx context.Context, req models.TransferRequest) (<-chan models.TransferResult, error) {
	if !common.IsHexAddress(req.WalletAddress) {
		return nil, fmt.Errorf("invalid wallet address %q", req.WalletAddress)
	}
	switch req.Direction {
	case models.TransferDirectionDeposit:
		if len(common.FromHex(req.TxHash)) != common.HashLength {
			return nil, fmt.Errorf("invalid transaction hash %q", req.TxHash)
		}
	case models.TransferDirectionWithdraw:
		if !req.TokenAmount.IsPositive() {
			return nil, fmt.Errorf("withdrawal amount must be positive")
		}
	default:
		return nil, fmt.Errorf("unknown transfer direction %q", req.Direction)
	}

	results := make(chan models.TransferResult, 1)
	go func() {
		defer close(results)

		ctx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		var result models.TransferResult
		if req.Direction == models.TransferDirectionDeposit {
			result = g.verifyDeposit(ctx, common.HexToHash(req.TxHash), common.HexToAddress(req.WalletAddress))
		} else {
			result = g.payWithdrawal(ctx, common.HexToAddress(req.WalletAddress), req.TokenAmount)
		}

		log.WithFields(log.Fields{
			"transferID": req.TransferID,
			"direction":  req.Direction,
			"success":    result.Success,
			"txHash":     result.TxHash,
		}).Debug("Gateway transfer resolved")
		results <- result
	}()
	return results, nil
}

// verifyDeposit waits for the transaction to be confirmed and sums the tokens it moved
// from the player's wallet to the bridge address
func (g *EthereumGateway) verifyDeposit(ctx context.Context, txHash common.Hash, from common.Address) models.TransferResult {
	failed := func(err error) models.TransferResult {
		return models.TransferResult{TxHash: txHash.Hex(), Err: err}
	}

	receipt, err := g.awaitConfirmations(ctx, txHash)
	if err != nil {
		return failed(err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return failed(fmt.Errorf("transaction %s reverted", txHash.Hex()))
	}

	total := new(big.Int)
	for _, l := range receipt.Logs {
		if l == nil || l.Address != g.token || len(l.Topics) < 3 || l.Topics[0] != transferEventSignature {
			continue
		}
		if common.BytesToAddress(l.Topics[1].Bytes()) != from || common.BytesToAddress(l.Topics[2].Bytes()) != g.bridge {
			continue
		}
		total.Add(total, new(big.Int).SetBytes(l.Data))
	}
	if total.Sign() == 0 {
		return failed(fmt.Errorf("transaction %s moved no tokens from %s to the bridge", txHash.Hex(), from.Hex()))
	}

	return models.TransferResult{
		Success:     true,
		TokenAmount: decimal.NewFromBigInt(total, 0),
		TxHash:      txHash.Hex(),
	}
}

func (g *EthereumGateway) awaitConfirmations(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(g.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := g.reader.TransactionReceipt(ctx, txHash)
		switch {
		case errors.Is(err, ethereum.NotFound):
		case err != nil:
			return nil, fmt.Errorf("failed to fetch receipt: %w", err)
		case receipt.Status != types.ReceiptStatusSuccessful:
			return receipt, nil
		default:
			confirmed, err := g.confirmed(ctx, receipt)
			if err != nil {
				return nil, err
			}
			if confirmed {
				return receipt, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("transaction %s not confirmed: %w", txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

func (g *EthereumGateway) confirmed(ctx context.Context, receipt *types.Receipt) (bool, error) {
	if g.confirmations == 0 {
		return true, nil
	}
	header, err := g.reader.HeaderByNumber(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to fetch head: %w", err)
	}
	if header == nil || header.Number == nil || receipt.BlockNumber == nil {
		return false, fmt.Errorf("block metadata unavailable")
	}
	depth := new(big.Int).Sub(header.Number, receipt.BlockNumber)
	depth.Add(depth, big.NewInt(1))
	return depth.Cmp(new(big.Int).SetUint64(g.confirmations)) >= 0, nil
}

func (g *EthereumGateway) payWithdrawal(ctx context.Context, to common.Address, amount decimal.Decimal) models.TransferResult {
	hash, err := g.contract.Transfer(ctx, to, amount.BigInt())
	if err != nil {
		result := models.TransferResult{Err: err}
		if hash != (common.Hash{}) {
			result.TxHash = hash.Hex()
		}
		return result
	}
	return models.TransferResult{
		Success:     true,
		TokenAmount: amount,
		TxHash:      hash.Hex(),
	}
}
