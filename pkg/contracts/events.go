package contracts

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// GasInfoEvent is the decoded GasInfo(uint256 txgas, uint256 gaslimit) log.
type GasInfoEvent struct {
	Txgas    *big.Int
	Gaslimit *big.Int
}

// ProtectedCallResultEvent is the decoded ProtectedCallResult(address, bool) log.
type ProtectedCallResultEvent struct {
	Target  common.Address
	Success bool
}
