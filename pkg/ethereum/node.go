package ethereum

import (
	"github.com/ethpandaops/eip3074-protection/pkg/ethereum/execution"
	"github.com/ethpandaops/eip3074-protection/pkg/ethereum/execution/geth"
	"github.com/sirupsen/logrus"
)

// NewNode creates the execution node described by config.
func NewNode(log logrus.FieldLogger, config *Config) (execution.Node, error) {
	switch config.Execution.Type {
	case execution.NodeTypeSimulated:
		return geth.NewSimulatedNode(log, &config.Execution, config.GasLimit), nil
	case execution.NodeTypeRPC:
		return geth.NewRPCNode(log, &config.Execution), nil
	default:
		return nil, execution.ErrUnknownNodeType
	}
}
