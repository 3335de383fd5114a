package contracts

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/core/vm"
)

// Assembly builds EVM bytecode from opcodes. Jump targets are referenced by
// label and resolved to PUSH2 immediates when Bytecode is called.
type Assembly struct {
	code   []byte
	labels map[string]int
	fixups map[int]string
}

// NewAssembly returns an empty assembly.
func NewAssembly() *Assembly {
	return &Assembly{
		code:   []byte{},
		labels: make(map[string]int),
		fixups: make(map[int]string),
	}
}

// Op appends raw opcodes.
func (a *Assembly) Op(ops ...vm.OpCode) *Assembly {
	for _, op := range ops {
		a.code = append(a.code, byte(op))
	}

	return a
}

// Push appends the smallest PUSHn carrying value. An empty value pushes zero.
func (a *Assembly) Push(value []byte) *Assembly {
	for len(value) > 1 && value[0] == 0 {
		value = value[1:]
	}

	if len(value) == 0 {
		value = []byte{0}
	}

	if len(value) > 32 {
		value = value[len(value)-32:]
	}

	a.code = append(a.code, byte(vm.PUSH1)+byte(len(value)-1))
	a.code = append(a.code, value...)

	return a
}

// PushFixed appends PUSHn with exactly len(value) bytes, preserving leading zeros.
func (a *Assembly) PushFixed(value []byte) *Assembly {
	a.code = append(a.code, byte(vm.PUSH1)+byte(len(value)-1))
	a.code = append(a.code, value...)

	return a
}

// PushUint appends a PUSH of v.
func (a *Assembly) PushUint(v uint64) *Assembly {
	return a.Push(new(big.Int).SetUint64(v).Bytes())
}

// PushLabel appends a PUSH2 whose immediate is the offset of label.
func (a *Assembly) PushLabel(label string) *Assembly {
	a.code = append(a.code, byte(vm.PUSH2))
	a.fixups[len(a.code)] = label
	a.code = append(a.code, 0, 0)

	return a
}

// JumpTo appends an unconditional jump to label.
func (a *Assembly) JumpTo(label string) *Assembly {
	return a.PushLabel(label).Op(vm.JUMP)
}

// JumpIf appends a jump to label taken when the top of the stack is non-zero.
func (a *Assembly) JumpIf(label string) *Assembly {
	return a.PushLabel(label).Op(vm.JUMPI)
}

// Label marks a JUMPDEST named label at the current offset.
func (a *Assembly) Label(label string) *Assembly {
	a.labels[label] = len(a.code)

	return a.Op(vm.JUMPDEST)
}

// Revert appends an empty revert.
func (a *Assembly) Revert() *Assembly {
	return a.PushUint(0).Op(vm.DUP1, vm.REVERT)
}

// Len returns the current code size.
func (a *Assembly) Len() int {
	return len(a.code)
}

// Bytecode resolves labels and returns a copy of the code.
func (a *Assembly) Bytecode() ([]byte, error) {
	out := make([]byte, len(a.code))
	copy(out, a.code)

	for pos, label := range a.fixups {
		target, ok := a.labels[label]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownLabel, label)
		}

		if target > 0xffff {
			return nil, fmt.Errorf("label %s at offset %d does not fit PUSH2", label, target)
		}

		out[pos] = byte(target >> 8)
		out[pos+1] = byte(target)
	}

	return out, nil
}

// Deployment wraps runtime code in initcode that copies it to memory and
// returns it, so a creation transaction installs runtime as the contract code.
func Deployment(runtime []byte) ([]byte, error) {
	if len(runtime) > 0xffff {
		return nil, fmt.Errorf("runtime code of %d bytes does not fit PUSH2", len(runtime))
	}

	size := []byte{byte(len(runtime) >> 8), byte(len(runtime))}

	build := func(offset int) *Assembly {
		return NewAssembly().
			PushFixed(size).
			Op(vm.DUP1).
			PushFixed([]byte{byte(offset >> 8), byte(offset)}).
			PushUint(0).
			Op(vm.CODECOPY).
			PushUint(0).
			Op(vm.RETURN)
	}

	prefix := build(0).Len()

	initcode, err := build(prefix).Bytecode()
	if err != nil {
		return nil, err
	}

	return append(initcode, runtime...), nil
}
