package ethereum

import "errors"

// Sentinel errors for network session operations.
var (
	// ErrNodeNotReady indicates the execution node is not ready to accept transactions.
	ErrNodeNotReady = errors.New("execution node is not ready")

	// ErrTransactionReverted indicates a mined transaction has a failed status.
	ErrTransactionReverted = errors.New("transaction reverted")

	// ErrEventNotFound indicates a receipt carries no log for the requested event.
	ErrEventNotFound = errors.New("event not found in receipt")

	// ErrUnknownEvent indicates the contract ABI does not declare the requested event.
	ErrUnknownEvent = errors.New("event not declared in contract abi")

	// ErrNoCode indicates no code was installed at a deployed contract address.
	ErrNoCode = errors.New("no contract code at address")

	// ErrCodeMismatch indicates the deployed code differs from the expected runtime code.
	ErrCodeMismatch = errors.New("deployed code does not match artifact")

	// ErrUnsupportedChainID indicates an unsupported chain ID was provided.
	ErrUnsupportedChainID = errors.New("unsupported chain ID")
)
