package geth

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	pcommon "github.com/ethpandaops/eip3074-protection/pkg/common"
	"github.com/ethpandaops/eip3074-protection/pkg/ethereum/execution"
)

const (
	statusError   = "error"
	statusSuccess = "success"
)

// instrumentedBackend records RPC metrics for the calls a run depends on.
type instrumentedBackend struct {
	execution.Backend

	node    string
	chainID func() *big.Int
}

func newInstrumentedBackend(backend execution.Backend, node string, chainID func() *big.Int) *instrumentedBackend {
	return &instrumentedBackend{
		Backend: backend,
		node:    node,
		chainID: chainID,
	}
}

func (b *instrumentedBackend) observe(method string, start time.Time, err error) {
	status := statusSuccess
	if err != nil {
		status = statusError
	}

	network := "unknown"
	if id := b.chainID(); id != nil {
		network = id.String()
	}

	pcommon.RPCCallDuration.WithLabelValues(network, b.node, method, status).Observe(time.Since(start).Seconds())
	pcommon.RPCCallsTotal.WithLabelValues(network, b.node, method, status).Inc()
}

func (b *instrumentedBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	start := time.Now()

	err := b.Backend.SendTransaction(ctx, tx)

	b.observe("eth_sendRawTransaction", start, err)

	return err
}

func (b *instrumentedBackend) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	start := time.Now()

	receipt, err := b.Backend.TransactionReceipt(ctx, hash)

	// Polling for a pending receipt is expected to miss.
	if err == ethereum.NotFound {
		b.observe("eth_getTransactionReceipt", start, nil)
	} else {
		b.observe("eth_getTransactionReceipt", start, err)
	}

	return receipt, err
}

func (b *instrumentedBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	start := time.Now()

	out, err := b.Backend.CallContract(ctx, call, blockNumber)

	b.observe("eth_call", start, err)

	return out, err
}

func (b *instrumentedBackend) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	start := time.Now()

	code, err := b.Backend.CodeAt(ctx, account, blockNumber)

	b.observe("eth_getCode", start, err)

	return code, err
}

func (b *instrumentedBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	start := time.Now()

	nonce, err := b.Backend.PendingNonceAt(ctx, account)

	b.observe("eth_getTransactionCount", start, err)

	return nonce, err
}

func (b *instrumentedBackend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	start := time.Now()

	tip, err := b.Backend.SuggestGasTipCap(ctx)

	b.observe("eth_maxPriorityFeePerGas", start, err)

	return tip, err
}

func (b *instrumentedBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	start := time.Now()

	header, err := b.Backend.HeaderByNumber(ctx, number)

	b.observe("eth_getBlockByNumber", start, err)

	return header, err
}
