// Package hostcall implements the accumulate-context host-call surface of
// spec.md §4.3: a tagged-opcode dispatch table (no inheritance, mirroring
// sysaction.Registry's ActionKind-keyed dispatch in the teacher), the Dual
// Dimension regular/exceptional checkpoint model, and the shared
// OK/NONE/WHO/FULL/CORE/CASH/LOW/HUH/HIGH return-code taxonomy.
package hostcall

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"github.com/jamaccumulate/accumulator/accctx"
	"github.com/jamaccumulate/accumulator/ids"
	"github.com/jamaccumulate/accumulator/jamtypes"
	"github.com/jamaccumulate/accumulator/operand"
	"github.com/jamaccumulate/accumulator/params"
)

// Code is a host call's register-7 return code.
type Code int

const (
	OK Code = iota
	NONE
	WHO
	FULL
	CORE
	CASH
	LOW
	HUH
	HIGH
)

// Opcode identifies one recognized host call (spec.md §4.3's "Recognized
// calls").
type Opcode int

const (
	OpGas Opcode = iota
	OpLookup
	OpRead
	OpWrite
	OpInfo
	OpBless
	OpUpgrade
	OpTransfer
	OpAssign
	OpCheckpoint
	OpNew
	OpEject
	OpSolicit
	OpForget
	OpProvide
	OpQuery
	OpDesignate
	OpYield
	OpFetch
)

// ErrOutOfGas is the terminal failure when a call's base gas deduction would
// take remaining gas negative (spec.md §4.3).
type ErrOutOfGas struct{}

func (ErrOutOfGas) Error() string { return "hostcall: out of gas" }

// Memory is the caller-supplied memory span the VM boundary exposes to host
// calls for reading call arguments and writing results (spec.md's "VM
// boundary (consumed)" — intentionally minimal, the concrete sandboxed VM
// memory implementation is out of this engine's scope per spec.md §1).
type Memory interface {
	Read(ptr, length uint32) ([]byte, bool)
	Write(ptr uint32, data []byte) bool
}

// DualDimension is the {regular, exceptional} pair every invocation carries
// (spec.md §4.3): host calls mutate Regular; Checkpoint replaces
// Exceptional with a deep clone of Regular; on an abnormal VM trap, the
// invocation's result is built from Exceptional instead of Regular.
type DualDimension struct {
	Regular     *accctx.AccumulationContext
	Exceptional *accctx.AccumulationContext
}

// NewDualDimension seeds both dimensions from the same context, matching
// the pre-checkpoint state where no rollback point has been set yet.
func NewDualDimension(ctx *accctx.AccumulationContext) *DualDimension {
	return &DualDimension{Regular: ctx, Exceptional: ctx.DeepClone()}
}

// Call bundles everything one host-call invocation needs: the dual-
// dimension context, the invoking service, remaining gas, the caller's
// memory span, this invocation's operands/incoming transfers, and the
// accumulating output slots a call may append to.
type Call struct {
	Dim    *DualDimension
	Self   ids.ServiceId
	Memory Memory

	GasRemaining int64

	Operands          []operand.AccumulationOperand
	IncomingTransfers []operand.TransferOperand

	GeneratedTransfers []operand.TransferOperand
	AccumulationOutput *jamtypes.Hash32
	ProvidedPreimages  map[operand.ProvidedPreimageKey][]byte

	NextServiceID ids.ServiceId // running new_service_id, advanced by `new`
	CoreCount     int
	ValidatorsCount int
}

// Handler implements one host call's effect against args (register values,
// excluding the opcode itself), returning result registers and a return
// code written to register 7.
type Handler func(c *Call, args []uint64) (results []uint64, code Code, err error)

// Dispatch is the opcode → Handler table, built once and shared across all
// invocations (mirrors sysaction.Registry's handler list, keyed instead by
// a dense enum rather than a linear CanHandle scan since the opcode set here
// is fixed and small).
var Dispatch = map[Opcode]Handler{
	OpGas:        handleGas,
	OpLookup:     handleLookup,
	OpRead:       handleRead,
	OpWrite:      handleWrite,
	OpInfo:       handleInfo,
	OpTransfer:   handleTransfer,
	OpAssign:     handleAssign,
	OpCheckpoint: handleCheckpoint,
	OpNew:        handleNew,
	OpEject:      handleEject,
	OpSolicit:    handleSolicit,
	OpForget:     handleForget,
	OpProvide:    handleProvide,
	OpQuery:      handleQuery,
	OpDesignate:  handleDesignate,
	OpYield:      handleYield,
	OpBless:      handleBless,
	OpUpgrade:    handleUpgrade,
	OpFetch:      handleFetch,
}

// Invoke deducts the base gas for opcode, then runs its handler. Returns
// ErrOutOfGas (a terminal fault, not a return code) if the deduction alone
// would take gas negative.
func Invoke(c *Call, opcode Opcode, args []uint64) ([]uint64, Code, error) {
	c.GasRemaining -= int64(params.HostCallBaseGas)
	if c.GasRemaining < 0 {
		return nil, HIGH, ErrOutOfGas{}
	}
	h, ok := Dispatch[opcode]
	if !ok {
		return nil, NONE, nil
	}
	return h(c, args)
}

func handleGas(c *Call, _ []uint64) ([]uint64, Code, error) {
	return []uint64{uint64(c.GasRemaining)}, OK, nil
}

// handleLookup implements spec.md §4.3's lookup: reads a preimage already
// materialized into the target service's Preimages map (service_id_reg ==
// ^uint64(0) means self), writing up to limit bytes at offset into outPtr
// and returning the preimage's total length. NONE if no such preimage is
// held (distinct from WHO, which is for an unknown service).
func handleLookup(c *Call, args []uint64) ([]uint64, Code, error) {
	target := ids.ServiceId(args[0])
	if args[0] == ^uint64(0) {
		target = c.Self
	}
	hashPtr := uint32(args[1])
	outPtr := uint32(args[2])
	offset := args[3]
	limit := args[4]

	var hash jamtypes.Hash32
	if data, ok := c.Memory.Read(hashPtr, 32); ok {
		copy(hash[:], data)
	}

	targetAcc, ok := c.Dim.Regular.ServiceAccounts.GetReadOnly(target)
	if !ok {
		return nil, WHO, nil
	}
	blob, ok := targetAcc.Preimages[hash]
	if !ok {
		return []uint64{0}, NONE, nil
	}
	return []uint64{writeWindow(c.Memory, outPtr, blob, offset, limit)}, OK, nil
}

// handleRead implements spec.md §4.3's read: untyped-storage read from the
// target service's Storage map (keyed by a 32-byte key), windowed the same
// way as lookup/fetch.
func handleRead(c *Call, args []uint64) ([]uint64, Code, error) {
	target := ids.ServiceId(args[0])
	if args[0] == ^uint64(0) {
		target = c.Self
	}
	keyPtr := uint32(args[1])
	outPtr := uint32(args[2])
	offset := args[3]
	limit := args[4]

	var key jamtypes.Hash32
	if data, ok := c.Memory.Read(keyPtr, 32); ok {
		copy(key[:], data)
	}

	targetAcc, ok := c.Dim.Regular.ServiceAccounts.GetReadOnly(target)
	if !ok {
		return nil, WHO, nil
	}
	blob, ok := targetAcc.Storage[key]
	if !ok {
		return []uint64{0}, NONE, nil
	}
	return []uint64{writeWindow(c.Memory, outPtr, blob, offset, limit)}, OK, nil
}

// handleWrite implements spec.md §4.3's write: untyped-storage write against
// self's own Storage map, keyed by a 32-byte key; size 0 deletes the key.
// Fails CASH if the resulting footprint would push balance below a_t,
// leaving the account unmutated. On success returns the previous value's
// length (0 if the key didn't exist).
func handleWrite(c *Call, args []uint64) ([]uint64, Code, error) {
	keyPtr := uint32(args[0])
	dataPtr := uint32(args[1])
	size := args[2]

	var key jamtypes.Hash32
	if data, ok := c.Memory.Read(keyPtr, 32); ok {
		copy(key[:], data)
	}

	selfAcc, ok, err := c.Dim.Regular.ServiceAccounts.GetMutable(c.Self)
	if err != nil {
		return nil, HUH, err
	}
	if !ok {
		return nil, WHO, nil
	}

	prev, existed := selfAcc.Storage[key]
	prevLen := uint64(len(prev))

	if size == 0 {
		if !existed {
			return []uint64{0}, OK, nil
		}
		newItems := selfAcc.FootprintItems - 1
		newBytes := selfAcc.FootprintBytes - prevLen
		if params.MinBalancePerItem*newItems+params.MinBalancePerOctet*newBytes > selfAcc.Balance {
			return nil, CASH, nil
		}
		delete(selfAcc.Storage, key)
		selfAcc.FootprintItems = newItems
		selfAcc.FootprintBytes = newBytes
		return []uint64{prevLen}, OK, nil
	}

	data, ok := c.Memory.Read(dataPtr, uint32(size))
	if !ok {
		return nil, HUH, nil
	}

	newItems := selfAcc.FootprintItems
	if !existed {
		newItems++
	}
	newBytes := selfAcc.FootprintBytes - prevLen + size
	if params.MinBalancePerItem*newItems+params.MinBalancePerOctet*newBytes > selfAcc.Balance {
		return nil, CASH, nil
	}

	selfAcc.Storage[key] = append([]byte(nil), data...)
	selfAcc.FootprintItems = newItems
	selfAcc.FootprintBytes = newBytes
	return []uint64{prevLen}, OK, nil
}

// handleInfo implements spec.md §4.3's info: encodes the target service's
// public account fields (service_id_reg == ^uint64(0) means self) and writes
// up to limit bytes at offset into outPtr, returning the encoding's total
// length, mirroring fetch's windowed-copy convention.
func handleInfo(c *Call, args []uint64) ([]uint64, Code, error) {
	target := ids.ServiceId(args[0])
	if args[0] == ^uint64(0) {
		target = c.Self
	}
	outPtr := uint32(args[1])
	offset := args[2]
	limit := args[3]

	targetAcc, ok := c.Dim.Regular.ServiceAccounts.GetReadOnly(target)
	if !ok {
		return nil, WHO, nil
	}
	blob := encodeAccountInfo(targetAcc)
	return []uint64{writeWindow(c.Memory, outPtr, blob, offset, limit)}, OK, nil
}

func encodeAccountInfo(a *jamtypes.ServiceAccount) []byte {
	out := make([]byte, 0, 32+8*5)
	out = append(out, a.CodeHash[:]...)
	out = append(out, jamtypes.LE64(a.Balance)...)
	out = append(out, jamtypes.LE64(a.MinGasAccumulate)...)
	out = append(out, jamtypes.LE64(a.MinGasOnTransfer)...)
	out = append(out, jamtypes.LE64(a.FootprintItems)...)
	out = append(out, jamtypes.LE64(a.FootprintBytes)...)
	return out
}

// writeWindow copies blob[offset:offset+limit] (clamped to blob's length)
// into mem at ptr and returns blob's total length, the shared windowed-copy
// convention behind lookup/read/info/fetch.
func writeWindow(mem Memory, ptr uint32, blob []byte, offset, limit uint64) uint64 {
	total := uint64(len(blob))
	if offset < total {
		end := offset + limit
		if end > total {
			end = total
		}
		mem.Write(ptr, blob[offset:end])
	}
	return total
}

func handleCheckpoint(c *Call, _ []uint64) ([]uint64, Code, error) {
	c.Dim.Exceptional = c.Dim.Regular.DeepClone()
	return []uint64{uint64(c.GasRemaining)}, OK, nil
}

// handleTransfer implements spec.md §4.3's transfer: fail WHO if dest
// unknown; LOW if gas_limit < dest.min_gas_on_transfer; CASH if
// self.balance − amount < self.a_t. Debits self immediately, appends a
// TransferOperand, and deducts gas_limit as additional gas (refunded once
// the transfer is processed in the next batch, per spec.md §4.6 step 6).
func handleTransfer(c *Call, args []uint64) ([]uint64, Code, error) {
	dest := ids.ServiceId(args[0])
	amount := args[1]
	gasLimit := args[2]
	var memo [128]byte
	if len(args) > 3 {
		if data, ok := c.Memory.Read(uint32(args[3]), params.TransferMemoSize); ok {
			copy(memo[:], data)
		}
	}

	destAcc, ok := c.Dim.Regular.ServiceAccounts.GetReadOnly(dest)
	if !ok {
		return nil, WHO, nil
	}
	if gasLimit < destAcc.MinGasOnTransfer {
		return nil, LOW, nil
	}

	selfAcc, ok, err := c.Dim.Regular.ServiceAccounts.GetMutable(c.Self)
	if err != nil {
		return nil, HUH, err
	}
	if !ok {
		return nil, WHO, nil
	}
	if selfAcc.Balance < amount || selfAcc.Balance-amount < selfAcc.StorageThreshold() {
		return nil, CASH, nil
	}

	selfAcc.Balance -= amount
	c.GeneratedTransfers = append(c.GeneratedTransfers, operand.TransferOperand{
		Sender:      c.Self,
		Destination: dest,
		Amount:      amount,
		Memo:        memo,
		GasLimit:    gasLimit,
	})
	c.GasRemaining -= int64(gasLimit)
	return nil, OK, nil
}

// handleAssign implements spec.md §4.3's assign: fail CORE if core is out of
// range, HUH if self isn't the current assigner for that core, WHO if
// new_assigner overflows u32; otherwise overwrites authorizer_queue[core]
// and privileges.assign[core].
func handleAssign(c *Call, args []uint64) ([]uint64, Code, error) {
	core := int(args[0])
	queuePtr := uint32(args[1])
	newAssigner := args[2]

	priv := c.Dim.Regular.Privileges.GetReadOnly()
	if core < 0 || core >= len(priv.Assign) {
		return nil, CORE, nil
	}
	if priv.Assign[core] != c.Self {
		return nil, HUH, nil
	}
	if newAssigner > 0xFFFFFFFF {
		return nil, WHO, nil
	}

	queue := c.Dim.Regular.AuthorizerQueue.GetMutable()
	row := (*queue)[core]
	data, ok := c.Memory.Read(queuePtr, uint32(len(row))*32)
	if ok {
		for i := range row {
			copy(row[i][:], data[i*32:(i+1)*32])
		}
	}

	mutPriv := c.Dim.Regular.Privileges.GetMutable()
	(*mutPriv).Assign[core] = ids.ServiceId(newAssigner)
	return nil, OK, nil
}

// handleNew implements spec.md §4.3's new: computes the target id (reserved
// path requires self == registrar; otherwise an auto-advancing id), creates
// the account, solicits its own code preimage, and debits a_t of the new
// account from self.
func handleNew(c *Call, args []uint64) ([]uint64, Code, error) {
	codeHashPtr := uint32(args[0])
	codeLen := args[1]
	minGasAcc := args[2]
	minGasXfer := args[3]
	freeStorage := args[4]
	desiredID := ids.ServiceId(args[5])

	priv := c.Dim.Regular.Privileges.GetReadOnly()
	if ids.IsReserved(desiredID) && c.Self != priv.Registrar {
		return nil, WHO, nil
	}
	if freeStorage > 0 && c.Self != priv.Manager {
		return nil, WHO, nil
	}

	var targetID ids.ServiceId
	if ids.IsReserved(desiredID) {
		targetID = desiredID
	} else {
		targetID = c.NextServiceID
		c.NextServiceID = jamtypes.NextServiceID(c.NextServiceID)
	}

	if c.Dim.Regular.ServiceAccounts.Exists(targetID) {
		return nil, FULL, nil
	}

	selfAcc, ok, err := c.Dim.Regular.ServiceAccounts.GetMutable(c.Self)
	if err != nil {
		return nil, HUH, err
	}
	if !ok {
		return nil, WHO, nil
	}

	acc, err := c.Dim.Regular.ServiceAccounts.CreateService(targetID)
	if err != nil {
		return nil, FULL, nil
	}
	if data, ok := c.Memory.Read(codeHashPtr, 32); ok {
		copy(acc.CodeHash[:], data)
	}
	acc.MinGasAccumulate = minGasAcc
	acc.MinGasOnTransfer = minGasXfer
	acc.ParentService = c.Self
	acc.PreimageLookup[jamtypes.PreimageKey{Hash: acc.CodeHash, Size: codeLen}] = jamtypes.LookupStatus{}

	cost := acc.StorageThreshold()
	if selfAcc.Balance < cost || selfAcc.Balance-cost < selfAcc.StorageThreshold() {
		return nil, CASH, nil
	}
	selfAcc.Balance -= cost

	return []uint64{uint64(targetID)}, OK, nil
}

// handleEject implements spec.md §4.3's eject: fail WHO if target is self or
// its code hash doesn't identify self as the would-be ejector; HUH if the
// footprint/lookup preconditions aren't met. On success removes target and
// credits its balance to self.
func handleEject(c *Call, args []uint64) ([]uint64, Code, error) {
	target := ids.ServiceId(args[0])
	hashPtr := uint32(args[1])

	if target == c.Self {
		return nil, WHO, nil
	}
	targetAcc, ok := c.Dim.Regular.ServiceAccounts.GetReadOnly(target)
	if !ok {
		return nil, WHO, nil
	}
	if targetAcc.CodeHash != jamtypes.EncodeServiceID32(c.Self) {
		return nil, WHO, nil
	}
	if targetAcc.FootprintItems != 2 {
		return nil, HUH, nil
	}
	var hash jamtypes.Hash32
	if data, ok := c.Memory.Read(hashPtr, 32); ok {
		copy(hash[:], data)
	}
	found := false
	for k, v := range targetAcc.PreimageLookup {
		if k.Hash != hash {
			continue
		}
		found = true
		if len(v) != 2 {
			return nil, HUH, nil
		}
		forgottenAt := v[1]
		now := c.currentSlot()
		if !(forgottenAt+params.PreimageExpungementPeriod < now) {
			return nil, HUH, nil
		}
		break
	}
	if !found {
		return nil, HUH, nil
	}

	selfAcc, ok, err := c.Dim.Regular.ServiceAccounts.GetMutable(c.Self)
	if err != nil {
		return nil, HUH, err
	}
	if !ok {
		return nil, WHO, nil
	}
	selfAcc.Balance += targetAcc.Balance
	c.Dim.Regular.ServiceAccounts.RemoveService(target)
	return nil, OK, nil
}

func (c *Call) currentSlot() uint64 {
	return c.Dim.Regular.Slot
}

// handleSolicit implements spec.md §4.3's solicit: charges the deposit for a
// brand-new solicitation, and advances the lookup state machine (absent →
// [], [t0,t1] → [t0,t1,now] for re-solicitation).
func handleSolicit(c *Call, args []uint64) ([]uint64, Code, error) {
	var hash jamtypes.Hash32
	if data, ok := c.Memory.Read(uint32(args[0]), 32); ok {
		copy(hash[:], data)
	}
	size := args[1]

	selfAcc, ok, err := c.Dim.Regular.ServiceAccounts.GetMutable(c.Self)
	if err != nil {
		return nil, HUH, err
	}
	if !ok {
		return nil, WHO, nil
	}
	key := jamtypes.PreimageKey{Hash: hash, Size: size}
	status, exists := selfAcc.PreimageLookup[key]

	if !exists {
		cost := params.MinBalancePerItem + params.MinBalancePerOctet*(params.PreimageLookupOverheadBytes+size)
		if selfAcc.Balance < cost || selfAcc.Balance-cost < selfAcc.StorageThreshold() {
			return nil, FULL, nil
		}
		selfAcc.PreimageLookup[key] = jamtypes.LookupStatus{}
		selfAcc.Balance -= cost
		return nil, OK, nil
	}
	if len(status) == 2 {
		selfAcc.PreimageLookup[key] = jamtypes.LookupStatus{status[0], status[1], c.currentSlot()}
		return nil, OK, nil
	}
	return nil, HUH, nil
}

// handleForget implements spec.md §4.3's forget state-machine transitions.
func handleForget(c *Call, args []uint64) ([]uint64, Code, error) {
	var hash jamtypes.Hash32
	if data, ok := c.Memory.Read(uint32(args[0]), 32); ok {
		copy(hash[:], data)
	}
	size := args[1]

	selfAcc, ok, err := c.Dim.Regular.ServiceAccounts.GetMutable(c.Self)
	if err != nil {
		return nil, HUH, err
	}
	if !ok {
		return nil, WHO, nil
	}
	key := jamtypes.PreimageKey{Hash: hash, Size: size}
	status, exists := selfAcc.PreimageLookup[key]
	if !exists {
		return nil, HUH, nil
	}
	now := c.currentSlot()
	switch len(status) {
	case 0:
		delete(selfAcc.PreimageLookup, key)
	case 1:
		selfAcc.PreimageLookup[key] = jamtypes.LookupStatus{status[0], now}
	case 3:
		if status[1] >= now-params.PreimageExpungementPeriod {
			return nil, HUH, nil
		}
		selfAcc.PreimageLookup[key] = jamtypes.LookupStatus{status[2], now}
	default:
		return nil, HUH, nil
	}
	return nil, OK, nil
}

// handleProvide implements spec.md §4.3's provide: stages bytes in
// ProvidedPreimages; the engine applies them when it applies this service's
// result in its batch, only if the lookup is still empty at that time
// (spec.md §4.5's last bullet).
func handleProvide(c *Call, args []uint64) ([]uint64, Code, error) {
	target := ids.ServiceId(args[0])
	if args[0] == ^uint64(0) {
		target = c.Self
	}
	dataPtr := uint32(args[1])
	size := args[2]

	targetAcc, ok := c.Dim.Regular.ServiceAccounts.GetReadOnly(target)
	if !ok {
		return nil, WHO, nil
	}
	data, ok := c.Memory.Read(dataPtr, uint32(size))
	if !ok {
		return nil, HUH, nil
	}
	hash := keccak256(data)
	key := jamtypes.PreimageKey{Hash: hash, Size: size}
	status, exists := targetAcc.PreimageLookup[key]
	if !exists || len(status) != 0 {
		return nil, HUH, nil
	}
	pk := operand.ProvidedPreimageKey{Service: target, Hash: hash, Size: size}
	if _, already := c.ProvidedPreimages[pk]; already {
		return nil, HUH, nil
	}
	c.ProvidedPreimages[pk] = data
	return nil, OK, nil
}

// handleQuery implements spec.md §4.3's query: encodes the lookup status
// into a pair of registers.
func handleQuery(c *Call, args []uint64) ([]uint64, Code, error) {
	var hash jamtypes.Hash32
	if data, ok := c.Memory.Read(uint32(args[0]), 32); ok {
		copy(hash[:], data)
	}
	size := args[1]

	acc, ok := c.Dim.Regular.ServiceAccounts.GetReadOnly(c.Self)
	if !ok {
		return nil, WHO, nil
	}
	status, exists := acc.PreimageLookup[jamtypes.PreimageKey{Hash: hash, Size: size}]
	if !exists {
		return []uint64{0, 0}, NONE, nil
	}
	var r1, r2 uint64
	r1 = uint64(len(status))
	if len(status) > 0 {
		r1 |= status[0] << 32
	}
	if len(status) > 1 {
		r2 = status[1]
	}
	if len(status) > 2 {
		r2 |= status[2] << 32
	}
	return []uint64{r1, r2}, OK, nil
}

// handleDesignate implements spec.md §4.3's designate: only the current
// designator may overwrite the staged validator keys.
func handleDesignate(c *Call, args []uint64) ([]uint64, Code, error) {
	priv := c.Dim.Regular.Privileges.GetReadOnly()
	if c.Self != priv.Designate {
		return nil, HUH, nil
	}
	offsetPtr := uint32(args[0])
	keys := c.Dim.Regular.ValidatorKeys.GetMutable()
	data, ok := c.Memory.Read(offsetPtr, uint32(c.ValidatorsCount*336))
	if !ok {
		return nil, HUH, nil
	}
	for i := 0; i < c.ValidatorsCount && i < len(*keys); i++ {
		copy((*keys)[i][:], data[i*336:(i+1)*336])
	}
	return nil, OK, nil
}

// handleYield implements spec.md §4.3's yield: records this invocation's
// 32-byte accumulation output.
func handleYield(c *Call, args []uint64) ([]uint64, Code, error) {
	var hash jamtypes.Hash32
	if data, ok := c.Memory.Read(uint32(args[0]), 32); ok {
		copy(hash[:], data)
	}
	c.AccumulationOutput = &hash
	return nil, OK, nil
}

// handleBless implements spec.md §4.3's bless: overwrites all privileges
// wholesale. Only meaningful when self is the current manager — otherwise
// the R-merge (spec.md §4.6) discards the edit.
func handleBless(c *Call, args []uint64) ([]uint64, Code, error) {
	manager := ids.ServiceId(args[0])
	assignPtr := uint32(args[1])
	designate := ids.ServiceId(args[2])
	registrar := ids.ServiceId(args[3])
	tablePtr := uint32(args[4])
	n := args[5]

	priv := c.Dim.Regular.Privileges.GetMutable()
	coreCount := len((*priv).Assign)
	if data, ok := c.Memory.Read(assignPtr, uint32(coreCount)*4); ok {
		for i := 0; i < coreCount; i++ {
			(*priv).Assign[i] = ids.ServiceId(binary.LittleEndian.Uint32(data[i*4 : i*4+4]))
		}
	}
	(*priv).Manager = manager
	(*priv).Designate = designate
	(*priv).Registrar = registrar
	(*priv).AlwaysAccumulate = make(map[ids.ServiceId]jamtypes.Gas, n)
	if data, ok := c.Memory.Read(tablePtr, uint32(n)*12); ok {
		for i := uint64(0); i < n; i++ {
			off := i * 12
			sid := ids.ServiceId(binary.LittleEndian.Uint32(data[off : off+4]))
			gas := binary.LittleEndian.Uint64(data[off+4 : off+12])
			(*priv).AlwaysAccumulate[sid] = gas
		}
	}
	return nil, OK, nil
}

// handleUpgrade implements spec.md §4.3's upgrade: mutates self's code hash
// and gas minimums.
func handleUpgrade(c *Call, args []uint64) ([]uint64, Code, error) {
	codeHashPtr := uint32(args[0])
	minGasAcc := args[1]
	minGasXfer := args[2]

	acc, ok, err := c.Dim.Regular.ServiceAccounts.GetMutable(c.Self)
	if err != nil {
		return nil, HUH, err
	}
	if !ok {
		return nil, WHO, nil
	}
	if data, ok := c.Memory.Read(codeHashPtr, 32); ok {
		copy(acc.CodeHash[:], data)
	}
	acc.MinGasAccumulate = minGasAcc
	acc.MinGasOnTransfer = minGasXfer
	return nil, OK, nil
}

// handleFetch implements spec.md §4.3's fetch: writes at most limit bytes of
// the selected encoding starting at offset, returning the total available
// length in the result register regardless of how much was actually
// written (selectors 0/1/14/15 recognized; others NONE in accumulate
// context).
func handleFetch(c *Call, args []uint64) ([]uint64, Code, error) {
	outPtr := uint32(args[0])
	offset := args[1]
	limit := args[2]
	selector := args[3]
	index := args[4]

	var blob []byte
	switch selector {
	case 0:
		blob = encodeProtocolConstants(c)
	case 1:
		blob = c.entropy()
	case 14:
		blob = c.encodeAllInputs()
	case 15:
		data, ok := c.encodeInputAt(index)
		if !ok {
			return nil, NONE, nil
		}
		blob = data
	default:
		return nil, NONE, nil
	}

	return []uint64{writeWindow(c.Memory, outPtr, blob, offset, limit)}, OK, nil
}

func (c *Call) entropy() []byte {
	e := c.Dim.Regular.Entropy
	return e[:]
}

func encodeProtocolConstants(c *Call) []byte {
	out := make([]byte, 0, 16)
	out = append(out, jamtypes.LE64(uint64(c.CoreCount))...)
	out = append(out, jamtypes.LE64(uint64(c.ValidatorsCount))...)
	return out
}

func (c *Call) encodeAllInputs() []byte {
	var out []byte
	for _, t := range c.IncomingTransfers {
		out = append(out, encodeTransfer(t)...)
	}
	for _, op := range c.Operands {
		out = append(out, encodeOperand(op)...)
	}
	return out
}

func (c *Call) encodeInputAt(index uint64) ([]byte, bool) {
	if index < uint64(len(c.IncomingTransfers)) {
		return encodeTransfer(c.IncomingTransfers[index]), true
	}
	i := index - uint64(len(c.IncomingTransfers))
	if i < uint64(len(c.Operands)) {
		return encodeOperand(c.Operands[i]), true
	}
	return nil, false
}

func encodeTransfer(t operand.TransferOperand) []byte {
	out := make([]byte, 0, 4+4+8+8+128)
	out = append(out, jamtypes.LE32(t.Sender)...)
	out = append(out, jamtypes.LE32(t.Destination)...)
	out = append(out, jamtypes.LE64(t.Amount)...)
	out = append(out, jamtypes.LE64(t.GasLimit)...)
	out = append(out, t.Memo[:]...)
	return out
}

func encodeOperand(o operand.AccumulationOperand) []byte {
	out := make([]byte, 0, 4+8+32+len(o.ExecResult))
	out = append(out, jamtypes.LE32(o.ServiceID)...)
	out = append(out, jamtypes.LE64(o.AccumulateGas)...)
	out = append(out, o.PayloadHash[:]...)
	out = append(out, o.ExecResult...)
	return out
}

// keccak256 hashes data with the original (pre-NIST-padding) Keccak-256
// construction, matching the engine's accumulate-root commitment (spec.md
// §4.6) so preimage content-addressing uses the same hash family.
func keccak256(data []byte) jamtypes.Hash32 {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	var out jamtypes.Hash32
	copy(out[:], h.Sum(nil))
	return out
}
