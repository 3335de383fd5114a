package ethereum

import (
	"fmt"
	"time"

	"github.com/ethpandaops/eip3074-protection/pkg/ethereum/execution"
)

// Config is the network session configuration. GasLimit and GasPrice apply
// to every transaction the session sends.
type Config struct {
	// GasLimit is the gas limit of every transaction, and the block gas
	// limit of simulated chains.
	GasLimit uint64 `yaml:"gasLimit" default:"12000000"`
	// GasPrice in wei. Zero leaves fees to the node's suggestion.
	GasPrice uint64 `yaml:"gasPrice" default:"0"`
	// ReadyTimeout bounds how long Start waits for the node.
	ReadyTimeout time.Duration `yaml:"readyTimeout" default:"2m"`
	// ReceiptTimeout bounds how long a transaction may take to be mined.
	ReceiptTimeout time.Duration `yaml:"receiptTimeout" default:"1m"`
	// Override network name for custom networks (bypasses networkMap)
	OverrideNetworkName *string `yaml:"overrideNetworkName"`
	// Execution node configuration
	Execution execution.Config `yaml:"execution"`
}

func (c *Config) Validate() error {
	if c.GasLimit == 0 {
		return fmt.Errorf("gasLimit must be greater than zero")
	}

	if c.ReceiptTimeout <= 0 {
		return fmt.Errorf("receiptTimeout must be greater than zero")
	}

	if c.ReadyTimeout <= 0 {
		return fmt.Errorf("readyTimeout must be greater than zero")
	}

	if err := c.Execution.Validate(); err != nil {
		return fmt.Errorf("invalid execution configuration: %w", err)
	}

	return nil
}
