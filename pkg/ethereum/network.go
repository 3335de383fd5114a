package ethereum

import (
	"fmt"
)

type Network struct {
	ID   uint64
	Name string
}

var networkMap = map[uint64]Network{
	1:        {ID: 1, Name: "mainnet"},
	1337:     {ID: 1337, Name: "dev"},
	31337:    {ID: 31337, Name: "anvil"},
	11155111: {ID: 11155111, Name: "sepolia"},
	17000:    {ID: 17000, Name: "holesky"},
	560048:   {ID: 560048, Name: "hoodi"},
}

// GetNetworkByChainID returns the network information for the given chain ID
func GetNetworkByChainID(chainID uint64) (*Network, error) {
	network, exists := networkMap[chainID]
	if !exists {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedChainID, chainID)
	}

	return &network, nil
}
