package execution

import (
	"fmt"
	"math/big"
)

type Config struct {
	// Name is used in logs and metric labels.
	Name string `yaml:"name" default:"local"`
	// Type selects the node implementation.
	Type NodeType `yaml:"type" default:"simulated"`
	// NodeAddress is the JSON-RPC endpoint of an rpc node.
	NodeAddress string `yaml:"nodeAddress"`
	// NodeHeaders are added to every RPC request.
	NodeHeaders map[string]string `yaml:"nodeHeaders"`
	// PrivateKey is the hex-encoded key of the sending account. Required for
	// rpc nodes; a fresh key is generated for simulated nodes when empty.
	PrivateKey string `yaml:"privateKey"`
	// Balance is the genesis balance in wei of the simulated account.
	Balance string `yaml:"balance" default:"1000000000000000000000"`
}

func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("node name is required")
	}

	switch c.Type {
	case NodeTypeSimulated:
		if _, ok := new(big.Int).SetString(c.Balance, 10); !ok {
			return fmt.Errorf("invalid simulated account balance %q", c.Balance)
		}
	case NodeTypeRPC:
		if c.NodeAddress == "" {
			return fmt.Errorf("nodeAddress is required for rpc nodes")
		}

		if c.PrivateKey == "" {
			return fmt.Errorf("privateKey is required for rpc nodes")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownNodeType, c.Type)
	}

	return nil
}

// BalanceWei returns the configured simulated balance.
func (c *Config) BalanceWei() *big.Int {
	balance, ok := new(big.Int).SetString(c.Balance, 10)
	if !ok {
		return new(big.Int)
	}

	return balance
}
