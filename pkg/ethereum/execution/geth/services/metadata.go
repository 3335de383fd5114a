package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// MetadataService learns the client version and chain ID of an RPC node and
// reports ready once both are known.
type MetadataService struct {
	rpcClient *rpc.Client
	log       logrus.FieldLogger

	onReadyCallbacks []func(context.Context) error

	nodeVersion string
	chainID     *big.Int

	// MaxElapsedTime bounds the retry loop in Start.
	MaxElapsedTime time.Duration

	mu     sync.Mutex
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewMetadataService(log logrus.FieldLogger, rpcClient *rpc.Client) *MetadataService {
	return &MetadataService{
		rpcClient:        rpcClient,
		log:              log.WithField("module", "ethereum/execution/metadata"),
		onReadyCallbacks: []func(context.Context) error{},
		MaxElapsedTime:   2 * time.Minute,
	}
}

// Start launches the readiness loop in the background. Stop waits for it.
func (m *MetadataService) Start(ctx context.Context) error {
	m.log.Info("Starting metadata service")

	ctx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	m.wg.Add(1)

	go func() {
		defer m.wg.Done()

		// Configure the exponential backoff
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = 500 * time.Millisecond
		b.MaxInterval = 5 * time.Second
		b.MaxElapsedTime = m.MaxElapsedTime

		attemptCount := 0

		operation := func() error {
			attemptCount++

			if err := m.RefreshAll(ctx); err != nil {
				m.log.WithError(err).WithField("attempt", attemptCount).Warn("Failed to refresh metadata, will retry")

				return err
			}

			if err := m.Ready(ctx); err != nil {
				m.log.WithError(err).Warn("Metadata not ready yet, will retry")

				return err
			}

			return nil
		}

		if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
			m.log.WithError(err).Error("Failed to refresh metadata after retries")

			return
		}

		for _, cb := range m.callbacks() {
			if err := cb(ctx); err != nil {
				m.log.WithError(err).Warn("Failed to execute onReady callback")
			}
		}

		m.log.WithFields(logrus.Fields{
			"node_version": m.ClientVersion(),
			"chain_id":     m.ChainID(),
		}).Info("Metadata service initialization completed")
	}()

	return nil
}

func (m *MetadataService) Name() Name {
	return "metadata"
}

// Stop cancels the readiness loop and waits for it to return.
func (m *MetadataService) Stop(ctx context.Context) error {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})

	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("metadata service did not stop: %w", ctx.Err())
	}
}

func (m *MetadataService) OnReady(ctx context.Context, cb func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.onReadyCallbacks = append(m.onReadyCallbacks, cb)
}

func (m *MetadataService) callbacks() []func(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]func(context.Context) error{}, m.onReadyCallbacks...)
}

func (m *MetadataService) Ready(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.nodeVersion == "" {
		return errors.New("node version is not available")
	}

	if m.chainID == nil || m.chainID.Sign() == 0 {
		return errors.New("chain ID is not available")
	}

	return nil
}

func (m *MetadataService) web3ClientVersion(ctx context.Context) (string, error) {
	var version string

	err := m.rpcClient.CallContext(ctx, &version, "web3_clientVersion")
	if err != nil {
		return "", err
	}

	return version, nil
}

func (m *MetadataService) GetChainID(ctx context.Context) (*big.Int, error) {
	var chainID hexutil.Big

	if err := m.rpcClient.CallContext(ctx, &chainID, "eth_chainId"); err != nil {
		return nil, err
	}

	m.log.WithField("chain_id", chainID.String()).Debug("Retrieved chain ID from RPC")

	return chainID.ToInt(), nil
}

func (m *MetadataService) RefreshAll(ctx context.Context) error {
	version, err := m.web3ClientVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get client version: %w", err)
	}

	chainID, err := m.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to get chain ID: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nodeVersion = version
	m.chainID = chainID

	return nil
}

func (m *MetadataService) Client(ctx context.Context) string {
	return string(ClientFromString(m.ClientVersion()))
}

func (m *MetadataService) ClientVersion() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.nodeVersion
}

// ChainID returns the last known chain ID, or nil before the first refresh.
func (m *MetadataService) ChainID() *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.chainID == nil {
		return nil
	}

	return new(big.Int).Set(m.chainID)
}
