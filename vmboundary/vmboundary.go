// Package vmboundary names the sandboxed-VM interface the accumulation
// engine consumes (spec.md §1's "out of scope: the sandboxed VM that
// executes service code, seen as an opaque invoke(...) boundary") and
// supplies a reference implementation driven by a fixed host-call program,
// used by the engine's own tests. A production VM implements the same
// interface; this one exists so the rest of the engine has something real
// to call during development and in testvectors.
package vmboundary

import (
	"github.com/jamaccumulate/accumulator/hostcall"
	"github.com/jamaccumulate/accumulator/ids"
	"github.com/jamaccumulate/accumulator/jamtypes"
	"github.com/jamaccumulate/accumulator/operand"
)

// VM is the accumulation engine's only dependency on service-code
// execution: invoke a service with a gas budget, its operands, and any
// incoming transfers, and get back an AccumulationResult.
type VM interface {
	Invoke(
		self ids.ServiceId,
		gasLimit jamtypes.Gas,
		ops []operand.AccumulationOperand,
		transfers []operand.TransferOperand,
		dim *hostcall.DualDimension,
		nextServiceID ids.ServiceId,
		coreCount, validatorsCount int,
	) (*operand.AccumulationResult, ids.ServiceId, error)
}

// Program is a reference "service" expressed directly as a sequence of host
// calls rather than compiled bytecode — a stand-in for the sandboxed VM's
// instruction stream, used by tests and testvectors to drive the engine
// without a real interpreter.
type Program func(emit func(op hostcall.Opcode, args []uint64) ([]uint64, hostcall.Code, error)) error

// ScriptedVM invokes a fixed Program for every service, looked up by id; a
// service with no registered Program is invoked as a no-op (it makes no host
// call, so it consumes no gas, matching an empty service body).
type ScriptedVM struct {
	Memory   hostcall.Memory
	Programs map[ids.ServiceId]Program
}

// NewScriptedVM returns a ScriptedVM sharing one Memory across all
// invocations (tests typically use a small fixed-size byte-slice backed
// Memory since no two services' spans are expected to collide in these
// fixtures).
func NewScriptedVM(mem hostcall.Memory) *ScriptedVM {
	return &ScriptedVM{Memory: mem, Programs: make(map[ids.ServiceId]Program)}
}

func (v *ScriptedVM) Invoke(
	self ids.ServiceId,
	gasLimit jamtypes.Gas,
	ops []operand.AccumulationOperand,
	transfers []operand.TransferOperand,
	dim *hostcall.DualDimension,
	nextServiceID ids.ServiceId,
	coreCount, validatorsCount int,
) (*operand.AccumulationResult, ids.ServiceId, error) {
	call := &hostcall.Call{
		Dim:               dim,
		Self:              self,
		Memory:            v.Memory,
		GasRemaining:      int64(gasLimit),
		Operands:          ops,
		IncomingTransfers: transfers,
		ProvidedPreimages: make(map[operand.ProvidedPreimageKey][]byte),
		NextServiceID:     nextServiceID,
		CoreCount:         coreCount,
		ValidatorsCount:   validatorsCount,
	}

	prog, ok := v.Programs[self]
	if ok {
		emit := func(op hostcall.Opcode, args []uint64) ([]uint64, hostcall.Code, error) {
			return hostcall.Invoke(call, op, args)
		}
		if err := prog(emit); err != nil {
			// Abnormal trap: the result reflects the exceptional dimension's
			// last checkpoint, not the (possibly half-mutated) regular one
			// (spec.md §4.3's rollback framing).
			dim.Regular = dim.Exceptional
			return &operand.AccumulationResult{
				ServiceID:          self,
				GasUsed:            jamtypes.Gas(gasLimit) - jamtypes.Gas(maxInt64(call.GasRemaining, 0)),
				CollapsedDimension: nil,
				ProvidedPreimages:  map[operand.ProvidedPreimageKey][]byte{},
			}, call.NextServiceID, nil
		}
	}

	gasUsed := jamtypes.Gas(gasLimit) - jamtypes.Gas(maxInt64(call.GasRemaining, 0))
	return &operand.AccumulationResult{
		ServiceID:          self,
		GasUsed:            gasUsed,
		CollapsedDimension: dim.Regular,
		GeneratedTransfers: call.GeneratedTransfers,
		AccumulationOutput: call.AccumulationOutput,
		ProvidedPreimages:  call.ProvidedPreimages,
	}, call.NextServiceID, nil
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// ByteMemory is a small flat-buffer Memory implementation for tests.
type ByteMemory struct {
	buf []byte
}

// NewByteMemory returns a ByteMemory with size bytes of zeroed backing
// storage.
func NewByteMemory(size int) *ByteMemory {
	return &ByteMemory{buf: make([]byte, size)}
}

func (m *ByteMemory) Read(ptr, length uint32) ([]byte, bool) {
	end := uint64(ptr) + uint64(length)
	if end > uint64(len(m.buf)) {
		return nil, false
	}
	out := make([]byte, length)
	copy(out, m.buf[ptr:end])
	return out, true
}

func (m *ByteMemory) Write(ptr uint32, data []byte) bool {
	end := uint64(ptr) + uint64(len(data))
	if end > uint64(len(m.buf)) {
		return false
	}
	copy(m.buf[ptr:end], data)
	return true
}

// Put writes data at ptr directly, bypassing the bounds-checked Write
// return value — a test convenience for seeding call arguments.
func (m *ByteMemory) Put(ptr uint32, data []byte) {
	copy(m.buf[ptr:], data)
}
