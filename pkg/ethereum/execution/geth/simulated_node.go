package geth

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/eip3074-protection/pkg/ethereum/execution"
)

// Compile-time check that SimulatedNode implements execution.Node interface.
var _ execution.Node = (*SimulatedNode)(nil)

// SimulatedNode implements execution.Node with an in-process go-ethereum
// chain. Every transaction is mined as soon as it is sent.
type SimulatedNode struct {
	config   *execution.Config
	log      logrus.FieldLogger
	gasLimit uint64

	backend *simulated.Backend
	client  *minedClient
	key     *ecdsa.PrivateKey
	chainID *big.Int

	onReadyCallbacks []func(ctx context.Context) error

	mu sync.RWMutex
}

// NewSimulatedNode creates a simulated chain whose block gas limit is gasLimit.
func NewSimulatedNode(log logrus.FieldLogger, conf *execution.Config, gasLimit uint64) *SimulatedNode {
	return &SimulatedNode{
		config:   conf,
		gasLimit: gasLimit,
		log:      log.WithFields(logrus.Fields{"type": "execution", "source": conf.Name, "mode": "simulated"}),
	}
}

func (n *SimulatedNode) OnReady(_ context.Context, callback func(ctx context.Context) error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.onReadyCallbacks = append(n.onReadyCallbacks, callback)
}

func (n *SimulatedNode) Start(ctx context.Context) error {
	n.log.WithField("block_gas_limit", n.gasLimit).Info("Starting simulated chain")

	key, err := n.account()
	if err != nil {
		return err
	}

	alloc := types.GenesisAlloc{
		crypto.PubkeyToAddress(key.PublicKey): {Balance: n.config.BalanceWei()},
	}

	backend := simulated.NewBackend(alloc, simulated.WithBlockGasLimit(n.gasLimit))
	client := &minedClient{Client: backend.Client(), backend: backend}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		_ = backend.Close()

		return fmt.Errorf("failed to read simulated chain ID: %w", err)
	}

	n.mu.Lock()
	n.backend = backend
	n.client = client
	n.key = key
	n.chainID = chainID
	callbacks := n.onReadyCallbacks
	n.mu.Unlock()

	n.log.WithFields(logrus.Fields{
		"chain_id": chainID,
		"account":  crypto.PubkeyToAddress(key.PublicKey).Hex(),
	}).Info("Simulated chain is ready")

	for _, cb := range callbacks {
		if err := cb(ctx); err != nil {
			n.log.WithError(err).Error("Failed to run on ready callback")

			return fmt.Errorf("failed to run on ready callback: %w", err)
		}
	}

	return nil
}

func (n *SimulatedNode) account() (*ecdsa.PrivateKey, error) {
	if n.config.PrivateKey != "" {
		return parsePrivateKey(n.config.PrivateKey)
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate account key: %w", err)
	}

	return key, nil
}

func (n *SimulatedNode) Stop(_ context.Context) error {
	n.log.Info("Stopping simulated chain")

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.backend == nil {
		return nil
	}

	err := n.backend.Close()
	n.backend = nil
	n.client = nil

	return err
}

func (n *SimulatedNode) Backend() execution.Backend {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.client == nil {
		return nil
	}

	return n.client
}

func (n *SimulatedNode) Account() *ecdsa.PrivateKey {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return n.key
}

func (n *SimulatedNode) ChainID() *big.Int {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return n.chainID
}

func (n *SimulatedNode) ClientType() string {
	return "simulated"
}

func (n *SimulatedNode) Name() string {
	return n.config.Name
}

// minedClient seals a block after every accepted transaction so receipts are
// available immediately.
type minedClient struct {
	simulated.Client

	backend *simulated.Backend
}

func (c *minedClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := c.Client.SendTransaction(ctx, tx); err != nil {
		return err
	}

	c.backend.Commit()

	return nil
}
