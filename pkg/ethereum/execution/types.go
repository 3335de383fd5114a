package execution

import "errors"

// NodeType names a Node implementation.
type NodeType string

const (
	// NodeTypeSimulated runs an in-process chain.
	NodeTypeSimulated NodeType = "simulated"
	// NodeTypeRPC connects to an external dev network over JSON-RPC.
	NodeTypeRPC NodeType = "rpc"
)

// ErrUnknownNodeType indicates a node type outside the known set.
var ErrUnknownNodeType = errors.New("unknown node type")
