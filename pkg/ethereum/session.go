package ethereum

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/eip3074-protection/pkg/contracts"
	"github.com/ethpandaops/eip3074-protection/pkg/ethereum/execution"
)

const (
	statusSuccess  = "success"
	statusReverted = "reverted"
	statusError    = "error"
)

// Session owns one execution node and the gas configuration every
// transaction is sent with.
type Session struct {
	log     logrus.FieldLogger
	node    execution.Node
	config  *Config
	metrics *Metrics

	ready     chan struct{}
	readyOnce sync.Once
}

// NewSession creates a session and its node from config.
func NewSession(log logrus.FieldLogger, namespace string, config *Config) (*Session, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	node, err := NewNode(log, config)
	if err != nil {
		return nil, err
	}

	return NewSessionWithNode(log, namespace, node, config), nil
}

// NewSessionWithNode creates a session around a pre-created node.
func NewSessionWithNode(log logrus.FieldLogger, namespace string, node execution.Node, config *Config) *Session {
	namespace = fmt.Sprintf("%s_ethereum", namespace)

	return &Session{
		log:     log.WithField("node", node.Name()),
		node:    node,
		config:  config,
		metrics: GetMetricsInstance(namespace),
		ready:   make(chan struct{}),
	}
}

// Start starts the node and blocks until it is ready.
func (s *Session) Start(ctx context.Context) error {
	s.node.OnReady(ctx, func(_ context.Context) error {
		s.readyOnce.Do(func() { close(s.ready) })

		return nil
	})

	if err := s.node.Start(ctx); err != nil {
		return fmt.Errorf("failed to start execution node: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.config.ReadyTimeout)
	defer cancel()

	return s.WaitForReady(waitCtx)
}

// WaitForReady blocks until the node signalled readiness or ctx ends.
func (s *Session) WaitForReady(ctx context.Context) error {
	startTime := time.Now()

	statusLogTicker := time.NewTicker(10 * time.Second)
	defer statusLogTicker.Stop()

	for {
		select {
		case <-s.ready:
			s.log.WithField("duration", time.Since(startTime).Round(time.Millisecond)).Info("Execution node is ready")

			return nil
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrNodeNotReady, ctx.Err())
		case <-statusLogTicker.C:
			s.log.WithField("waiting_for", time.Since(startTime).Round(time.Second)).Info("Waiting for execution node...")
		}
	}
}

// Ready reports whether the node has signalled readiness.
func (s *Session) Ready() bool {
	select {
	case <-s.ready:
		return true
	default:
		return false
	}
}

// Stop gracefully shuts down the session's node.
func (s *Session) Stop(ctx context.Context) error {
	s.log.Info("Stopping session")

	return s.node.Stop(ctx)
}

// Node returns the session's execution node.
func (s *Session) Node() execution.Node {
	return s.node
}

// Config returns the session configuration.
func (s *Session) Config() *Config {
	return s.config
}

// Network returns the network the node is connected to.
// If overrideNetworkName is set in config, it returns that name instead of using networkMap.
func (s *Session) Network() *Network {
	var id uint64

	if chainID := s.node.ChainID(); chainID != nil && chainID.IsUint64() {
		id = chainID.Uint64()
	}

	if s.config.OverrideNetworkName != nil && *s.config.OverrideNetworkName != "" {
		return &Network{ID: id, Name: *s.config.OverrideNetworkName}
	}

	network, err := GetNetworkByChainID(id)
	if err != nil {
		return &Network{ID: id, Name: strconv.FormatUint(id, 10)}
	}

	return network
}

// Transactor returns signing options carrying the configured gas limit and price.
func (s *Session) Transactor(ctx context.Context) (*bind.TransactOpts, error) {
	if !s.Ready() {
		return nil, ErrNodeNotReady
	}

	opts, err := bind.NewKeyedTransactorWithChainID(s.node.Account(), s.node.ChainID())
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	opts.Context = ctx
	opts.GasLimit = s.config.GasLimit

	if s.config.GasPrice > 0 {
		opts.GasPrice = new(big.Int).SetUint64(s.config.GasPrice)
	}

	return opts, nil
}

// Deploy sends a creation transaction for artifact and waits for it to be mined.
func (s *Session) Deploy(ctx context.Context, artifact *contracts.Artifact) (*Contract, *types.Receipt, error) {
	opts, err := s.Transactor(ctx)
	if err != nil {
		return nil, nil, err
	}

	backend := s.node.Backend()

	address, tx, _, err := bind.DeployContract(opts, artifact.ABI, artifact.Bytecode, backend)
	if err != nil {
		s.metrics.IncDeployments(artifact.Name, statusError)

		return nil, nil, fmt.Errorf("failed to deploy %s: %w", artifact.Name, err)
	}

	receipt, err := s.waitMined(ctx, tx)
	if err != nil {
		s.metrics.IncDeployments(artifact.Name, statusError)

		return nil, nil, fmt.Errorf("failed to deploy %s: %w", artifact.Name, err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		s.metrics.IncDeployments(artifact.Name, statusReverted)

		return nil, receipt, fmt.Errorf("failed to deploy %s: %w (tx %s)", artifact.Name, ErrTransactionReverted, tx.Hash().Hex())
	}

	code, err := backend.CodeAt(ctx, address, nil)
	if err != nil {
		s.metrics.IncDeployments(artifact.Name, statusError)

		return nil, receipt, fmt.Errorf("failed to read %s code: %w", artifact.Name, err)
	}

	switch {
	case len(code) == 0:
		s.metrics.IncDeployments(artifact.Name, statusError)

		return nil, receipt, fmt.Errorf("%s at %s: %w", artifact.Name, address.Hex(), ErrNoCode)
	case artifact.Runtime != nil && !bytes.Equal(code, artifact.Runtime):
		s.metrics.IncDeployments(artifact.Name, statusError)

		return nil, receipt, fmt.Errorf("%s at %s: %w", artifact.Name, address.Hex(), ErrCodeMismatch)
	}

	s.metrics.IncDeployments(artifact.Name, statusSuccess)

	s.log.WithFields(logrus.Fields{
		"contract": artifact.Name,
		"address":  address.Hex(),
		"tx":       tx.Hash().Hex(),
		"gas_used": receipt.GasUsed,
	}).Info("Deployed contract")

	return NewContract(artifact.Name, address, artifact.ABI, backend), receipt, nil
}

// Transact calls method on contract and waits for the transaction to be mined.
// A reverted transaction returns ErrTransactionReverted along with its receipt.
func (s *Session) Transact(ctx context.Context, contract *Contract, method string, args ...interface{}) (*types.Receipt, error) {
	opts, err := s.Transactor(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := contract.bound.Transact(opts, method, args...)
	if err != nil {
		s.metrics.IncTransactions(contract.Name, method, statusError)

		return nil, fmt.Errorf("failed to send %s.%s: %w", contract.Name, method, err)
	}

	receipt, err := s.waitMined(ctx, tx)
	if err != nil {
		s.metrics.IncTransactions(contract.Name, method, statusError)

		return nil, fmt.Errorf("failed to mine %s.%s: %w", contract.Name, method, err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		s.metrics.IncTransactions(contract.Name, method, statusReverted)

		return receipt, fmt.Errorf("%s.%s: %w (tx %s)", contract.Name, method, ErrTransactionReverted, tx.Hash().Hex())
	}

	s.metrics.IncTransactions(contract.Name, method, statusSuccess)

	s.log.WithFields(logrus.Fields{
		"contract": contract.Name,
		"method":   method,
		"tx":       tx.Hash().Hex(),
		"gas_used": receipt.GasUsed,
	}).Debug("Transaction mined")

	return receipt, nil
}

func (s *Session) waitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.ReceiptTimeout)
	defer cancel()

	return bind.WaitMined(ctx, s.node.Backend(), tx)
}
