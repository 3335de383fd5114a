package ethereum

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Contract is a handle to a deployed contract.
type Contract struct {
	Name    string
	Address common.Address
	ABI     abi.ABI

	bound *bind.BoundContract
}

// NewContract returns a handle for a contract already deployed at address.
func NewContract(name string, address common.Address, parsed abi.ABI, backend bind.ContractBackend) *Contract {
	return &Contract{
		Name:    name,
		Address: address,
		ABI:     parsed,
		bound:   bind.NewBoundContract(address, parsed, backend, backend, backend),
	}
}

// DecodeEvent decodes the first log of event emitted by this contract in
// receipt into out.
func (c *Contract) DecodeEvent(receipt *types.Receipt, event string, out interface{}) error {
	ev, ok := c.ABI.Events[event]
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownEvent, c.Name, event)
	}

	for _, log := range receipt.Logs {
		if log.Address != c.Address || len(log.Topics) == 0 || log.Topics[0] != ev.ID {
			continue
		}

		if len(log.Data) > 0 {
			if err := c.ABI.UnpackIntoInterface(out, event, log.Data); err != nil {
				return fmt.Errorf("failed to unpack %s: %w", event, err)
			}
		}

		var indexed abi.Arguments

		for _, arg := range ev.Inputs {
			if arg.Indexed {
				indexed = append(indexed, arg)
			}
		}

		if err := abi.ParseTopics(out, indexed, log.Topics[1:]); err != nil {
			return fmt.Errorf("failed to parse %s topics: %w", event, err)
		}

		return nil
	}

	return fmt.Errorf("%w: %s in tx %s", ErrEventNotFound, event, receipt.TxHash.Hex())
}
