// Package gasratio converts GasInfo checkpoints into the 64ths ratio reported
// by the runner.
package gasratio

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Scale is the number of parts the ratio is expressed in, matching the
// 63/64 forwarding rule of the CALL family.
const Scale = 64.0

// ErrZeroGasLimit is returned when a ratio is requested against a zero gas limit.
var ErrZeroGasLimit = errors.New("gas limit is zero")

// GasInfo is a gas checkpoint emitted by a contract.
type GasInfo struct {
	// Remaining is the gas left at the checkpoint (txgas).
	Remaining uint64 `json:"txgas"`
	// Limit is the gas limit observed at the checkpoint (gaslimit).
	Limit uint64 `json:"gaslimit"`
}

// NewGasInfo builds a GasInfo from the uint256 event fields.
func NewGasInfo(remaining, limit *big.Int) (GasInfo, error) {
	if remaining == nil || limit == nil {
		return GasInfo{}, errors.New("gas info field is missing")
	}

	if !remaining.IsUint64() {
		return GasInfo{}, fmt.Errorf("txgas %s overflows uint64", remaining)
	}

	if !limit.IsUint64() {
		return GasInfo{}, fmt.Errorf("gaslimit %s overflows uint64", limit)
	}

	return GasInfo{Remaining: remaining.Uint64(), Limit: limit.Uint64()}, nil
}

// Ratio returns the checkpoint's ratio.
func (g GasInfo) Ratio() (float64, error) {
	return Compute(g.Remaining, g.Limit)
}

// Compute returns (gasRemaining / gasLimit) * 64.
func Compute(gasRemaining, gasLimit uint64) (float64, error) {
	if gasLimit == 0 {
		return 0, ErrZeroGasLimit
	}

	return (float64(gasRemaining) / float64(gasLimit)) * Scale, nil
}

// Format renders a ratio as a shortest-repr float printer does: scientific
// notation for exponents below -4 or from 16 up, otherwise fixed notation
// with whole numbers keeping a trailing ".0".
func Format(ratio float64) string {
	switch {
	case math.IsNaN(ratio):
		return "nan"
	case math.IsInf(ratio, 1):
		return "inf"
	case math.IsInf(ratio, -1):
		return "-inf"
	}

	sci := strconv.FormatFloat(ratio, 'e', -1, 64)

	exp, err := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if err == nil && (exp < -4 || exp >= 16) {
		return sci
	}

	s := strconv.FormatFloat(ratio, 'f', -1, 64)

	if !strings.Contains(s, ".") {
		s += ".0"
	}

	return s
}
