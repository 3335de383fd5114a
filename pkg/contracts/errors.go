package contracts

import "errors"

var (
	// ErrUnknownLabel indicates a jump references a label that was never placed.
	ErrUnknownLabel = errors.New("unknown label")

	// ErrEmptyBytecode indicates an artifact carries no creation bytecode.
	ErrEmptyBytecode = errors.New("artifact has no bytecode")

	// ErrMissingMember indicates an artifact ABI lacks a method or event the runner calls.
	ErrMissingMember = errors.New("artifact abi is missing a required member")
)
