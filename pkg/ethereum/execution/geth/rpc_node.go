package geth

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/eip3074-protection/pkg/ethereum/execution"
	"github.com/ethpandaops/eip3074-protection/pkg/ethereum/execution/geth/services"
)

// Compile-time check that RPCNode implements execution.Node interface.
var _ execution.Node = (*RPCNode)(nil)

// headerTransport adds custom headers to requests and respects context cancellation.
type headerTransport struct {
	headers map[string]string
	base    http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for key, value := range t.headers {
		req.Header.Set(key, value)
	}

	if req.Context().Err() != nil {
		return nil, req.Context().Err()
	}

	return t.base.RoundTrip(req)
}

// RPCNode implements execution.Node using a JSON-RPC connection to an
// external dev network.
type RPCNode struct {
	config    *execution.Config
	log       logrus.FieldLogger
	client    *ethclient.Client
	rpcClient *rpc.Client
	backend   execution.Backend
	key       *ecdsa.PrivateKey

	services []services.Service

	onReadyCallbacks []func(ctx context.Context) error

	mu     sync.RWMutex
	cancel context.CancelFunc
}

// NewRPCNode creates a new RPC-based execution node.
func NewRPCNode(log logrus.FieldLogger, conf *execution.Config) *RPCNode {
	return &RPCNode{
		config:   conf,
		log:      log.WithFields(logrus.Fields{"type": "execution", "source": conf.Name, "mode": "rpc"}),
		services: []services.Service{},
	}
}

func (n *RPCNode) OnReady(_ context.Context, callback func(ctx context.Context) error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.onReadyCallbacks = append(n.onReadyCallbacks, callback)
}

func (n *RPCNode) Start(ctx context.Context) error {
	n.log.WithField("node_address", n.config.NodeAddress).Info("Starting execution node")

	key, err := parsePrivateKey(n.config.PrivateKey)
	if err != nil {
		return err
	}

	nodeCtx, cancel := context.WithCancel(ctx)

	// Create HTTP client without fixed timeout - let context handle it
	httpClient := http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		},
	}

	httpClient.Transport = &headerTransport{
		headers: n.config.NodeHeaders,
		base:    httpClient.Transport,
	}

	rpcClient, err := rpc.DialOptions(nodeCtx, n.config.NodeAddress, rpc.WithHTTPClient(&httpClient))
	if err != nil {
		cancel()

		n.log.WithError(err).Error("Failed to create RPC client")

		return fmt.Errorf("failed to create RPC client for %s: %w", n.config.NodeAddress, err)
	}

	client := ethclient.NewClient(rpcClient)
	metadata := services.NewMetadataService(n.log, rpcClient)

	n.mu.Lock()
	n.cancel = cancel
	n.client = client
	n.rpcClient = rpcClient
	n.key = key
	n.services = []services.Service{metadata}
	n.backend = newInstrumentedBackend(client, n.config.Name, metadata.ChainID)
	n.mu.Unlock()

	metadata.OnReady(nodeCtx, func(_ context.Context) error {
		n.log.WithFields(logrus.Fields{
			"client_type": metadata.Client(nodeCtx),
			"chain_id":    metadata.ChainID(),
			"account":     crypto.PubkeyToAddress(key.PublicKey).Hex(),
		}).Info("Execution node is ready")

		n.runCallbacks()

		return nil
	})

	if err := metadata.Start(nodeCtx); err != nil {
		n.log.WithError(err).WithField("service", metadata.Name()).Error("Failed to start service")

		return fmt.Errorf("failed to start %s service: %w", metadata.Name(), err)
	}

	return nil
}

func (n *RPCNode) runCallbacks() {
	n.mu.RLock()
	callbacks := n.onReadyCallbacks
	n.mu.RUnlock()

	for _, callback := range callbacks {
		callbackCtx, callbackCancel := context.WithTimeout(context.Background(), 10*time.Second)

		if err := callback(callbackCtx); err != nil {
			n.log.WithError(err).Error("Failed to run on ready callback")
		}

		callbackCancel()
	}
}

func (n *RPCNode) Stop(ctx context.Context) error {
	n.log.Info("Stopping execution node")

	n.mu.Lock()

	if n.cancel != nil {
		n.cancel()
	}

	n.mu.Unlock()

	// Services own their goroutines; Stop waits for each to exit.
	for _, service := range n.services {
		if err := service.Stop(ctx); err != nil {
			n.log.WithError(err).WithField("service", service.Name()).Error("Failed to stop service")
		}
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.rpcClient != nil {
		n.rpcClient.Close()
	}

	return nil
}

func (n *RPCNode) getServiceByName(name services.Name) (services.Service, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, service := range n.services {
		if service.Name() == name {
			return service, nil
		}
	}

	return nil, errors.New("service not found")
}

// Metadata returns the metadata service for this node.
func (n *RPCNode) Metadata() *services.MetadataService {
	service, err := n.getServiceByName("metadata")
	if err != nil {
		return nil
	}

	svc, ok := service.(*services.MetadataService)
	if !ok {
		return nil
	}

	return svc
}

func (n *RPCNode) Backend() execution.Backend {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return n.backend
}

func (n *RPCNode) Account() *ecdsa.PrivateKey {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return n.key
}

// ChainID returns the chain ID from the metadata service.
func (n *RPCNode) ChainID() *big.Int {
	if meta := n.Metadata(); meta != nil {
		return meta.ChainID()
	}

	return nil
}

// ClientType returns the client version reported by the node.
func (n *RPCNode) ClientType() string {
	if meta := n.Metadata(); meta != nil {
		return meta.ClientVersion()
	}

	return ""
}

func (n *RPCNode) Name() string {
	return n.config.Name
}
