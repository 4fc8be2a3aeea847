package hostcall

import (
	"testing"

	"github.com/jamaccumulate/accumulator/accctx"
	"github.com/jamaccumulate/accumulator/ids"
	"github.com/jamaccumulate/accumulator/jamtypes"
)

type fakeMemory struct {
	buf []byte
}

func newFakeMemory(size int) *fakeMemory { return &fakeMemory{buf: make([]byte, size)} }

func (m *fakeMemory) Read(ptr, length uint32) ([]byte, bool) {
	if uint64(ptr)+uint64(length) > uint64(len(m.buf)) {
		return nil, false
	}
	out := make([]byte, length)
	copy(out, m.buf[ptr:int(ptr)+int(length)])
	return out, true
}

func (m *fakeMemory) Write(ptr uint32, data []byte) bool {
	if uint64(ptr)+uint64(len(data)) > uint64(len(m.buf)) {
		return false
	}
	copy(m.buf[ptr:], data)
	return true
}

func TestHandleTransferDebitsSenderAndQueuesOperand(t *testing.T) {
	accounts := map[ids.ServiceId]*jamtypes.ServiceAccount{
		1: jamtypes.NewServiceAccount(),
		2: jamtypes.NewServiceAccount(),
	}
	accounts[1].Balance = 1000
	accounts[2].MinGasOnTransfer = 5

	priv := jamtypes.NewPrivileges(2)
	keys := make(jamtypes.ValidatorKeys, 3)
	queue := jamtypes.NewAuthorizerQueue(2, 4)
	ctx := accctx.New(keys, queue, priv, accounts, 1, jamtypes.Hash32{})
	dim := NewDualDimension(ctx)

	call := &Call{
		Dim:          dim,
		Self:         1,
		Memory:       newFakeMemory(256),
		GasRemaining: 1000,
	}

	_, code, err := handleTransfer(call, []uint64{2, 100, 10, 0})
	if err != nil {
		t.Fatalf("handleTransfer: %v", err)
	}
	if code != OK {
		t.Fatalf("code = %v, want OK", code)
	}
	if len(call.GeneratedTransfers) != 1 {
		t.Fatalf("expected 1 generated transfer, got %d", len(call.GeneratedTransfers))
	}
	if call.GeneratedTransfers[0].Amount != 100 {
		t.Fatalf("transfer amount = %d, want 100", call.GeneratedTransfers[0].Amount)
	}
	acc, _ := ctx.ServiceAccounts.GetReadOnly(1)
	if acc.Balance != 900 {
		t.Fatalf("sender balance = %d, want 900", acc.Balance)
	}
}

func TestHandleTransferFailsLowWhenGasBelowMinimum(t *testing.T) {
	accounts := map[ids.ServiceId]*jamtypes.ServiceAccount{
		1: jamtypes.NewServiceAccount(),
		2: jamtypes.NewServiceAccount(),
	}
	accounts[1].Balance = 1000
	accounts[2].MinGasOnTransfer = 50

	priv := jamtypes.NewPrivileges(2)
	ctx := accctx.New(make(jamtypes.ValidatorKeys, 1), jamtypes.NewAuthorizerQueue(2, 1), priv, accounts, 1, jamtypes.Hash32{})
	call := &Call{Dim: NewDualDimension(ctx), Self: 1, Memory: newFakeMemory(64), GasRemaining: 1000}

	_, code, err := handleTransfer(call, []uint64{2, 100, 10, 0})
	if err != nil {
		t.Fatalf("handleTransfer: %v", err)
	}
	if code != LOW {
		t.Fatalf("code = %v, want LOW", code)
	}
}

func TestHandleTransferFailsWhoForUnknownDest(t *testing.T) {
	accounts := map[ids.ServiceId]*jamtypes.ServiceAccount{1: jamtypes.NewServiceAccount()}
	accounts[1].Balance = 1000
	priv := jamtypes.NewPrivileges(2)
	ctx := accctx.New(make(jamtypes.ValidatorKeys, 1), jamtypes.NewAuthorizerQueue(2, 1), priv, accounts, 1, jamtypes.Hash32{})
	call := &Call{Dim: NewDualDimension(ctx), Self: 1, Memory: newFakeMemory(64), GasRemaining: 1000}

	_, code, err := handleTransfer(call, []uint64{999, 1, 0, 0})
	if err != nil {
		t.Fatalf("handleTransfer: %v", err)
	}
	if code != WHO {
		t.Fatalf("code = %v, want WHO", code)
	}
}

func TestHandleSolicitThenForgetLifecycle(t *testing.T) {
	accounts := map[ids.ServiceId]*jamtypes.ServiceAccount{1: jamtypes.NewServiceAccount()}
	accounts[1].Balance = 1 << 20
	priv := jamtypes.NewPrivileges(2)
	ctx := accctx.New(make(jamtypes.ValidatorKeys, 1), jamtypes.NewAuthorizerQueue(2, 1), priv, accounts, 100, jamtypes.Hash32{})
	mem := newFakeMemory(64)
	call := &Call{Dim: NewDualDimension(ctx), Self: 1, Memory: mem, GasRemaining: 1000}

	_, code, err := handleSolicit(call, []uint64{0, 10})
	if err != nil {
		t.Fatalf("handleSolicit: %v", err)
	}
	if code != OK {
		t.Fatalf("solicit code = %v, want OK", code)
	}
	acc, _ := ctx.ServiceAccounts.GetReadOnly(1)
	status := acc.PreimageLookup[jamtypes.PreimageKey{Size: 10}]
	if !status.Requested() {
		t.Fatalf("status after solicit = %v, want Requested", status)
	}

	_, code, err = handleForget(call, []uint64{0, 10})
	if err != nil {
		t.Fatalf("handleForget: %v", err)
	}
	if code != OK {
		t.Fatalf("forget code = %v, want OK", code)
	}
	acc, _ = ctx.ServiceAccounts.GetReadOnly(1)
	if _, exists := acc.PreimageLookup[jamtypes.PreimageKey{Size: 10}]; exists {
		t.Fatalf("requested-but-never-available preimage should be removed on forget")
	}
}

func TestHandleNewReadsAllSixArgsAndRecordsCodeLen(t *testing.T) {
	accounts := map[ids.ServiceId]*jamtypes.ServiceAccount{1: jamtypes.NewServiceAccount()}
	accounts[1].Balance = 1000
	priv := jamtypes.NewPrivileges(2)
	priv.Registrar = 1
	ctx := accctx.New(make(jamtypes.ValidatorKeys, 1), jamtypes.NewAuthorizerQueue(2, 1), priv, accounts, 1, jamtypes.Hash32{})
	mem := newFakeMemory(64)
	call := &Call{Dim: NewDualDimension(ctx), Self: 1, Memory: mem, GasRemaining: 1000, NextServiceID: ids.ServiceId(70000)}

	const codeLen = uint64(42)
	const minGasAcc = uint64(5)
	const minGasXfer = uint64(6)
	const desiredID = uint64(70000) // non-reserved: public range

	results, code, err := handleNew(call, []uint64{0, codeLen, minGasAcc, minGasXfer, 0, desiredID})
	if err != nil {
		t.Fatalf("handleNew: %v", err)
	}
	if code != OK {
		t.Fatalf("code = %v, want OK", code)
	}
	if len(results) != 1 || results[0] != desiredID {
		t.Fatalf("results = %v, want [%d]", results, desiredID)
	}

	acc, ok := ctx.ServiceAccounts.GetReadOnly(ids.ServiceId(desiredID))
	if !ok {
		t.Fatalf("new account %d not created", desiredID)
	}
	if acc.MinGasAccumulate != minGasAcc {
		t.Fatalf("MinGasAccumulate = %d, want %d", acc.MinGasAccumulate, minGasAcc)
	}
	if acc.MinGasOnTransfer != minGasXfer {
		t.Fatalf("MinGasOnTransfer = %d, want %d", acc.MinGasOnTransfer, minGasXfer)
	}
	key := jamtypes.PreimageKey{Hash: acc.CodeHash, Size: codeLen}
	status, exists := acc.PreimageLookup[key]
	if !exists {
		t.Fatalf("code preimage not solicited with size %d", codeLen)
	}
	if !status.Requested() {
		t.Fatalf("code preimage status = %v, want Requested", status)
	}
}

func TestHandleNewRejectsReservedIDFromNonRegistrar(t *testing.T) {
	accounts := map[ids.ServiceId]*jamtypes.ServiceAccount{1: jamtypes.NewServiceAccount()}
	accounts[1].Balance = 1000
	priv := jamtypes.NewPrivileges(2)
	priv.Registrar = 2 // not self
	ctx := accctx.New(make(jamtypes.ValidatorKeys, 1), jamtypes.NewAuthorizerQueue(2, 1), priv, accounts, 1, jamtypes.Hash32{})
	call := &Call{Dim: NewDualDimension(ctx), Self: 1, Memory: newFakeMemory(64), GasRemaining: 1000}

	// desired_id = 0 falls in the reserved range.
	_, code, err := handleNew(call, []uint64{0, 10, 0, 0, 0, 0})
	if err != nil {
		t.Fatalf("handleNew: %v", err)
	}
	if code != WHO {
		t.Fatalf("code = %v, want WHO", code)
	}
}

func TestHandleWriteThenReadRoundTrips(t *testing.T) {
	accounts := map[ids.ServiceId]*jamtypes.ServiceAccount{1: jamtypes.NewServiceAccount()}
	accounts[1].Balance = 1000
	priv := jamtypes.NewPrivileges(2)
	ctx := accctx.New(make(jamtypes.ValidatorKeys, 1), jamtypes.NewAuthorizerQueue(2, 1), priv, accounts, 1, jamtypes.Hash32{})
	mem := newFakeMemory(256)
	call := &Call{Dim: NewDualDimension(ctx), Self: 1, Memory: mem, GasRemaining: 1000}

	var key [32]byte
	key[0] = 0xAB
	mem.Write(0, key[:])
	payload := []byte("hello storage")
	mem.Write(32, payload)

	_, code, err := handleWrite(call, []uint64{0, 32, uint64(len(payload))})
	if err != nil {
		t.Fatalf("handleWrite: %v", err)
	}
	if code != OK {
		t.Fatalf("write code = %v, want OK", code)
	}
	acc, _ := ctx.ServiceAccounts.GetReadOnly(1)
	if acc.FootprintItems != 1 {
		t.Fatalf("FootprintItems = %d, want 1", acc.FootprintItems)
	}

	outPtr := uint32(128)
	results, code, err := handleRead(call, []uint64{^uint64(0), 0, uint64(outPtr), 0, uint64(len(payload))})
	if err != nil {
		t.Fatalf("handleRead: %v", err)
	}
	if code != OK {
		t.Fatalf("read code = %v, want OK", code)
	}
	if len(results) != 1 || results[0] != uint64(len(payload)) {
		t.Fatalf("read length = %v, want [%d]", results, len(payload))
	}
	got, ok := mem.Read(outPtr, uint32(len(payload)))
	if !ok || string(got) != string(payload) {
		t.Fatalf("read bytes = %q, want %q", got, payload)
	}
}

func TestHandleInfoEncodesTargetAccount(t *testing.T) {
	accounts := map[ids.ServiceId]*jamtypes.ServiceAccount{1: jamtypes.NewServiceAccount()}
	accounts[1].Balance = 777
	priv := jamtypes.NewPrivileges(2)
	ctx := accctx.New(make(jamtypes.ValidatorKeys, 1), jamtypes.NewAuthorizerQueue(2, 1), priv, accounts, 1, jamtypes.Hash32{})
	mem := newFakeMemory(256)
	call := &Call{Dim: NewDualDimension(ctx), Self: 1, Memory: mem, GasRemaining: 1000}

	results, code, err := handleInfo(call, []uint64{^uint64(0), 0, 0, 64})
	if err != nil {
		t.Fatalf("handleInfo: %v", err)
	}
	if code != OK {
		t.Fatalf("code = %v, want OK", code)
	}
	if len(results) != 1 || results[0] == 0 {
		t.Fatalf("info length = %v, want nonzero", results)
	}
}

func TestCheckpointThenRollbackOnTrap(t *testing.T) {
	accounts := map[ids.ServiceId]*jamtypes.ServiceAccount{1: jamtypes.NewServiceAccount()}
	accounts[1].Balance = 1000
	priv := jamtypes.NewPrivileges(2)
	ctx := accctx.New(make(jamtypes.ValidatorKeys, 1), jamtypes.NewAuthorizerQueue(2, 1), priv, accounts, 1, jamtypes.Hash32{})
	dim := NewDualDimension(ctx)
	call := &Call{Dim: dim, Self: 1, Memory: newFakeMemory(64), GasRemaining: 1000}

	if _, _, err := handleCheckpoint(call, nil); err != nil {
		t.Fatalf("handleCheckpoint: %v", err)
	}
	if acc, ok := dim.Exceptional.ServiceAccounts.GetReadOnly(1); !ok || acc.Balance != 1000 {
		t.Fatalf("exceptional dimension should mirror regular at checkpoint time")
	}

	mutAcc, _, _ := dim.Regular.ServiceAccounts.GetMutable(1)
	mutAcc.Balance = 0

	excAcc, _ := dim.Exceptional.ServiceAccounts.GetReadOnly(1)
	if excAcc.Balance != 1000 {
		t.Fatalf("mutating regular after checkpoint must not affect exceptional: got %d", excAcc.Balance)
	}
}
