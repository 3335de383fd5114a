package contracts

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/core/vm"
)

const (
	MethodDoSomething         = "doSomething"
	MethodDoSomethingElse     = "doSomethingElse"
	MethodTryCallingProtected = "tryCallingProtected"

	EventGasInfo             = "GasInfo"
	EventProtectedCallResult = "ProtectedCallResult"
)

const onlyEOAsABI = `[
	{"type":"function","name":"doSomething","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"doSomethingElse","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"event","name":"GasInfo","anonymous":false,"inputs":[
		{"name":"txgas","type":"uint256","indexed":false},
		{"name":"gaslimit","type":"uint256","indexed":false}
	]}
]`

const protectionTestABI = `[
	{"type":"function","name":"tryCallingProtected","inputs":[{"name":"target","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"event","name":"ProtectedCallResult","anonymous":false,"inputs":[
		{"name":"target","type":"address","indexed":false},
		{"name":"success","type":"bool","indexed":false}
	]}
]`

// OnlyEOAs returns the built-in OnlyEOAs contract.
//
// doSomething emits GasInfo(gasleft(), block.gaslimit). doSomethingElse
// reverts unless msg.sender == tx.origin and then emits the same event.
func OnlyEOAs() (*Artifact, error) {
	parsed, err := abi.JSON(strings.NewReader(onlyEOAsABI))
	if err != nil {
		return nil, err
	}

	gasInfo := parsed.Events[EventGasInfo].ID

	asm := dispatcher(parsed, MethodDoSomething, MethodDoSomethingElse)

	asm.Label(MethodDoSomething).Op(vm.POP).JumpTo("emit")

	asm.Label(MethodDoSomethingElse).
		Op(vm.POP, vm.CALLER, vm.ORIGIN, vm.EQ).
		JumpIf("emit").
		Revert()

	// GasInfo(txgas, gaslimit)
	asm.Label("emit").
		Op(vm.GAS).PushUint(0x00).Op(vm.MSTORE).
		Op(vm.GASLIMIT).PushUint(0x20).Op(vm.MSTORE).
		PushFixed(gasInfo.Bytes()).PushUint(0x40).PushUint(0x00).Op(vm.LOG1).
		Op(vm.STOP)

	return assemble(OnlyEOAsName, parsed, asm)
}

// EIP3074ProtectionTest returns the built-in protection test contract.
//
// tryCallingProtected(target) calls target.doSomethingElse() from contract
// context, keeps going if it reverts, and emits ProtectedCallResult.
func EIP3074ProtectionTest() (*Artifact, error) {
	parsed, err := abi.JSON(strings.NewReader(protectionTestABI))
	if err != nil {
		return nil, err
	}

	onlyEOAs, err := abi.JSON(strings.NewReader(onlyEOAsABI))
	if err != nil {
		return nil, err
	}

	selector := onlyEOAs.Methods[MethodDoSomethingElse].ID
	result := parsed.Events[EventProtectedCallResult].ID

	asm := dispatcher(parsed, MethodTryCallingProtected)

	asm.Label(MethodTryCallingProtected).
		Op(vm.POP).
		PushUint(0x04).Op(vm.CALLDATALOAD).
		// mem[0:4] = selector
		PushFixed(selector).PushUint(0xe0).Op(vm.SHL).PushUint(0x00).Op(vm.MSTORE).
		// call(gas(), target, 0, 0, 4, 0, 0)
		PushUint(0x00).PushUint(0x00).PushUint(0x04).PushUint(0x00).PushUint(0x00).
		Op(vm.DUP6, vm.GAS, vm.CALL).
		// ProtectedCallResult(target, success)
		PushUint(0x20).Op(vm.MSTORE).
		PushUint(0x00).Op(vm.MSTORE).
		PushFixed(result.Bytes()).PushUint(0x40).PushUint(0x00).Op(vm.LOG1).
		Op(vm.STOP)

	return assemble(EIP3074ProtectionTestName, parsed, asm)
}

// dispatcher emits a selector switch jumping to a label named after each
// method. The selector stays on the stack at each entry point. Unknown
// selectors revert.
func dispatcher(parsed abi.ABI, methods ...string) *Assembly {
	asm := NewAssembly().
		PushUint(0x00).Op(vm.CALLDATALOAD).PushUint(0xe0).Op(vm.SHR)

	for _, name := range methods {
		asm.Op(vm.DUP1).
			PushFixed(parsed.Methods[name].ID).
			Op(vm.EQ).
			JumpIf(name)
	}

	return asm.Revert()
}

func assemble(name string, parsed abi.ABI, asm *Assembly) (*Artifact, error) {
	runtime, err := asm.Bytecode()
	if err != nil {
		return nil, fmt.Errorf("failed to assemble %s: %w", name, err)
	}

	initcode, err := Deployment(runtime)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap %s: %w", name, err)
	}

	return &Artifact{Name: name, ABI: parsed, Bytecode: initcode, Runtime: runtime}, nil
}
