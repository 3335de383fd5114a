package runner

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ethpandaops/eip3074-protection/pkg/gasratio"
)

// Result is the outcome of one scenario run.
type Result struct {
	ID             string         `json:"id"`
	Network        string         `json:"network"`
	ChainID        uint64         `json:"chainId"`
	StartedAt      time.Time      `json:"startedAt"`
	Duration       time.Duration  `json:"duration"`
	OnlyEOAs       common.Address `json:"onlyEOAs"`
	ProtectionTest common.Address `json:"protectionTest"`
	Measurements   []Measurement  `json:"measurements"`
	ProtectedCall  *ProtectedCall `json:"protectedCall,omitempty"`
}

// Measurement is one GasInfo event and the ratio derived from it.
type Measurement struct {
	Contract string           `json:"contract"`
	Method   string           `json:"method"`
	TxHash   common.Hash      `json:"txHash"`
	GasUsed  uint64           `json:"gasUsed"`
	GasInfo  gasratio.GasInfo `json:"gasInfo"`
	Ratio    float64          `json:"ratio"`
}

// ProtectedCall records the contract-originated call into the EOA-only method.
// Success is nil when the deployed contract does not report the outcome.
type ProtectedCall struct {
	TxHash  common.Hash    `json:"txHash"`
	GasUsed uint64         `json:"gasUsed"`
	Target  common.Address `json:"target"`
	Success *bool          `json:"success,omitempty"`
}
