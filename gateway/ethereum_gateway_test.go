package gateway

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dicewager/models"
)

var (
	tokenAddress  = common.HexToAddress("0x1000000000000000000000000000000000000001")
	bridgeAddress = common.HexToAddress("0x2000000000000000000000000000000000000002")
	playerWallet  = common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	depositHash   = common.HexToHash("0xabababababababababababababababababababababababababababababababab")
)

type fakeChain struct {
	receipts []*types.Receipt // returned in order, the last one repeats
	head     int64
	calls    int
}

func (f *fakeChain) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	i := f.calls
	if i >= len(f.receipts) {
		i = len(f.receipts) - 1
	}
	f.calls++
	if f.receipts[i] == nil {
		return nil, ethereum.NotFound
	}
	return f.receipts[i], nil
}

func (f *fakeChain) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(f.head)}, nil
}

type fakeContract struct {
	rate     *big.Int
	sentTo   common.Address
	sent     *big.Int
	sendErr  error
	sendHash common.Hash
}

func (f *fakeContract) TokensPerUnit(ctx context.Context) (*big.Int, error) {
	return f.rate, nil
}

func (f *fakeContract) Transfer(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error) {
	f.sentTo = to
	f.sent = amount
	return f.sendHash, f.sendErr
}

func transferLog(token, from, to common.Address, amount int64) *types.Log {
	return &types.Log{
		Address: token,
		Topics: []common.Hash{
			transferEventSignature,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data: common.LeftPadBytes(big.NewInt(amount).Bytes(), 32),
	}
}

func newTestGateway(chain *fakeChain, contract *fakeContract, confirmations uint64) *EthereumGateway {
	g := NewEthereumGateway(chain, contract, tokenAddress, bridgeAddress, 2, confirmations)
	g.pollInterval = time.Millisecond
	g.timeout = time.Second
	return g
}

func awaitResult(t *testing.T, results <-chan models.TransferResult) models.TransferResult {
	t.Helper()
	select {
	case result := <-results:
		return result
	case <-time.After(2 * time.Second):
		t.Fatal("no transfer result")
		return models.TransferResult{}
	}
}

func depositRequest() models.TransferRequest {
	return models.TransferRequest{
		TransferID:    "transfer-1",
		Direction:     models.TransferDirectionDeposit,
		WalletAddress: playerWallet.Hex(),
		TxHash:        depositHash.Hex(),
	}
}

func TestEthereumGateway_GetExchangeRate(t *testing.T) {
	g := newTestGateway(&fakeChain{}, &fakeContract{rate: big.NewInt(150)}, 0)

	rate, err := g.GetExchangeRate(context.Background())
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1.5").Equal(rate))
}

func TestEthereumGateway_DepositWaitsForConfirmations(t *testing.T) {
	receipt := &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		BlockNumber: big.NewInt(100),
		Logs: []*types.Log{
			transferLog(tokenAddress, playerWallet, bridgeAddress, 300),
			transferLog(tokenAddress, playerWallet, bridgeAddress, 200),
			// other token, other recipient
			transferLog(bridgeAddress, playerWallet, bridgeAddress, 999),
			transferLog(tokenAddress, playerWallet, tokenAddress, 999),
		},
	}
	chain := &fakeChain{receipts: []*types.Receipt{nil, receipt}, head: 102}
	g := newTestGateway(chain, &fakeContract{}, 3)

	results, err := g.RequestTransfer(context.Background(), depositRequest())
	require.NoError(t, err)

	result := awaitResult(t, results)
	require.True(t, result.Success, "unexpected error: %v", result.Err)
	assert.True(t, decimal.NewFromInt(500).Equal(result.TokenAmount))
	assert.Equal(t, depositHash.Hex(), result.TxHash)
	assert.GreaterOrEqual(t, chain.calls, 2)

	_, open := <-results
	assert.False(t, open)
}

func TestEthereumGateway_DepositFailures(t *testing.T) {
	tests := []struct {
		name    string
		receipt *types.Receipt
		head    int64
	}{
		{
			name:    "reverted",
			receipt: &types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(1)},
			head:    10,
		},
		{
			name: "no transfer to the bridge",
			receipt: &types.Receipt{
				Status:      types.ReceiptStatusSuccessful,
				BlockNumber: big.NewInt(1),
				Logs:        []*types.Log{transferLog(tokenAddress, bridgeAddress, playerWallet, 100)},
			},
			head: 10,
		},
		{
			name:    "never confirmed",
			receipt: &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(10)},
			head:    10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGateway(&fakeChain{receipts: []*types.Receipt{tt.receipt}, head: tt.head}, &fakeContract{}, 3)
			g.timeout = 50 * time.Millisecond

			results, err := g.RequestTransfer(context.Background(), depositRequest())
			require.NoError(t, err)

			result := awaitResult(t, results)
			assert.False(t, result.Success)
			assert.Error(t, result.Err)
		})
	}
}

func TestEthereumGateway_Withdraw(t *testing.T) {
	contract := &fakeContract{sendHash: common.HexToHash("0x01")}
	g := newTestGateway(&fakeChain{}, contract, 0)

	results, err := g.RequestTransfer(context.Background(), models.TransferRequest{
		TransferID:    "transfer-2",
		Direction:     models.TransferDirectionWithdraw,
		WalletAddress: playerWallet.Hex(),
		TokenAmount:   decimal.NewFromInt(450),
	})
	require.NoError(t, err)

	result := awaitResult(t, results)
	require.True(t, result.Success)
	assert.Equal(t, playerWallet, contract.sentTo)
	assert.Equal(t, int64(450), contract.sent.Int64())
	assert.Equal(t, contract.sendHash.Hex(), result.TxHash)

	contract.sendErr = errors.New("insufficient bridge balance")
	results, err = g.RequestTransfer(context.Background(), models.TransferRequest{
		Direction:     models.TransferDirectionWithdraw,
		WalletAddress: playerWallet.Hex(),
		TokenAmount:   decimal.NewFromInt(450),
	})
	require.NoError(t, err)
	result = awaitResult(t, results)
	assert.False(t, result.Success)
	assert.ErrorContains(t, result.Err, "insufficient bridge balance")
}

func TestEthereumGateway_RejectsMalformedRequests(t *testing.T) {
	g := newTestGateway(&fakeChain{}, &fakeContract{}, 0)
	ctx := context.Background()

	bad := depositRequest()
	bad.WalletAddress = "not-an-address"
	_, err := g.RequestTransfer(ctx, bad)
	assert.Error(t, err)

	bad = depositRequest()
	bad.TxHash = "0x1234"
	_, err = g.RequestTransfer(ctx, bad)
	assert.Error(t, err)

	_, err = g.RequestTransfer(ctx, models.TransferRequest{
		Direction:     models.TransferDirectionWithdraw,
		WalletAddress: playerWallet.Hex(),
		TokenAmount:   decimal.Zero,
	})
	assert.Error(t, err)
}
