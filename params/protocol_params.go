package params

// Protocol-defined constants consumed by the accumulation engine. Changing
// any of these is a protocol upgrade.
const (
	// MinPublicServiceID is the first id in the public (non-reserved) service
	// id range. Ids below this are reserved for protocol-privileged services
	// and may only be claimed by the registrar via the `new` host call.
	MinPublicServiceID uint32 = 1 << 16

	// ParallelThreshold is the minimum number of distinct services invoked in
	// a batch before the engine dispatches them as concurrent tasks instead
	// of running them sequentially in service-id order.
	ParallelThreshold = 2

	// HostCallBaseGas is deducted from the caller's remaining gas before any
	// host call's own logic runs.
	HostCallBaseGas uint64 = 10

	// TransferMemoSize is the fixed width, in bytes, of a TransferOperand's memo.
	TransferMemoSize = 128

	// PreimageExpungementPeriod is the number of timeslots a forgotten preimage
	// must remain forgotten before it can be ejected, or before a re-solicited
	// entry can be forgotten again.
	PreimageExpungementPeriod uint64 = 19200

	// MinBalancePerItem and MinBalancePerOctet set the storage-deposit rate:
	// a_t = MinBalancePerItem*items + MinBalancePerOctet*bytes.
	MinBalancePerItem  uint64 = 10
	MinBalancePerOctet uint64 = 1

	// PreimageLookupOverheadBytes is the fixed per-entry byte overhead a
	// service pays for when soliciting a new preimage, on top of its size.
	PreimageLookupOverheadBytes = 81

	// NewServiceIDStep advances the running auto-assigned service id on each
	// successful non-reserved `new` host call. The protocol-defined stepping
	// function is not specified by the available original source for this
	// spec (see DESIGN.md "Open Question decisions"); 42 is used as a
	// deterministic placeholder step.
	NewServiceIDStep uint32 = 42
)

// Config bundles the chain-shape parameters that vary across networks
// (mainnet/testnet/devnet) but are fixed for the lifetime of a chain.
type Config struct {
	// CoreCount is the number of cores (and therefore authorizer-queue rows
	// and privileges.assign slots).
	CoreCount int `toml:"core_count"`

	// ValidatorsCount is the length of the validator-key sequence.
	ValidatorsCount int `toml:"validators_count"`

	// EpochLength is the ring size of the accumulation history.
	EpochLength int `toml:"epoch_length"`

	// MaxAuthorizationsQueueItems bounds the per-core authorizer queue length.
	MaxAuthorizationsQueueItems int `toml:"max_authorizations_queue_items"`

	// TotalGasAllocAccumulation is the base per-block gas budget for
	// accumulation, before the always-accumulate augmentation.
	TotalGasAllocAccumulation uint64 `toml:"total_gas_alloc_accumulation"`

	// GasAllocAccumulation is the per-core gas budget added to the
	// augmented initial gas limit (see engine's minGasFloor).
	GasAllocAccumulation uint64 `toml:"gas_alloc_accumulation"`
}

// DefaultConfig holds canonical protocol parameters suitable for unit tests
// and the reference CLI. Mirrors the teacher's pattern of a canned
// ChainConfig instance (params.TestChainConfig) rather than requiring every
// caller to build one by hand.
var DefaultConfig = Config{
	CoreCount:                   2,
	ValidatorsCount:             6,
	EpochLength:                 12,
	MaxAuthorizationsQueueItems: 80,
	TotalGasAllocAccumulation:   3_500_000,
	GasAllocAccumulation:        10_000_000,
}
