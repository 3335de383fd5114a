package execution

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
)

// Backend is what contract deployment and transactions need from a chain.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Node defines a test network the runner can deploy to.
//
// Implementations include:
//   - SimulatedNode: an in-process chain that mines each transaction on send
//   - RPCNode: an external dev network reached via JSON-RPC over HTTP
//
// Lifecycle:
//  1. Create node with NewSimulatedNode or NewRPCNode
//  2. Register OnReady callbacks before calling Start
//  3. Call Start to begin initialization
//  4. Node signals readiness by executing OnReady callbacks
//  5. Call Stop to release the chain or connection
type Node interface {
	// Start initializes the node. For RPCNode readiness is signalled
	// asynchronously once metadata has been fetched.
	Start(ctx context.Context) error

	// Stop releases the node's resources.
	Stop(ctx context.Context) error

	// OnReady registers a callback to be invoked when the node becomes ready.
	// Multiple callbacks can be registered and will execute in registration order.
	OnReady(ctx context.Context, callback func(ctx context.Context) error)

	// Backend returns the chain client. Only valid once the node is ready.
	Backend() Backend

	// Account returns the key transactions are signed with.
	Account() *ecdsa.PrivateKey

	// ChainID returns the chain ID used for signing.
	ChainID() *big.Int

	// ClientType returns the client type/version string (e.g., "geth/1.14.12").
	ClientType() string

	// Name returns the configured name for this node.
	Name() string
}
