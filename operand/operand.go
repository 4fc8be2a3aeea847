// Package operand implements the service-operand grouping of spec.md §4.4:
// distributing WorkReport results by destination service, and the
// TransferOperand record used for inter-service value movement (§4.3's
// transfer host call, §4.6's deferred-transfer carry-over).
package operand

import (
	"github.com/jamaccumulate/accumulator/accctx"
	"github.com/jamaccumulate/accumulator/ids"
	"github.com/jamaccumulate/accumulator/jamtypes"
)

// AccumulationOperand is one work-result as seen by the invoked service.
type AccumulationOperand struct {
	ServiceID     ids.ServiceId
	AccumulateGas jamtypes.Gas
	PayloadHash   jamtypes.Hash32
	CodeHash      jamtypes.Hash32
	ExecResult    []byte
}

// TransferOperand moves value (and an opaque memo) from one service to
// another: the `transfer` host call debits the sender at once and emits the
// operand, which is carried over to the next batch as a deferred transfer
// and credited to the destination there (spec.md §4.3, §4.6).
type TransferOperand struct {
	Sender      ids.ServiceId
	Destination ids.ServiceId
	Amount      uint64
	Memo        [128]byte // params.TransferMemoSize
	GasLimit    uint64
}

// Group is one destination service's ordered operands plus their summed gas.
type Group struct {
	ServiceID ids.ServiceId
	Operands  []AccumulationOperand
	GasLimit  jamtypes.Gas
}

// GroupByService distributes every result of every report into a per-service
// ordered group (spec.md §4.4), preserving (report, result) order and
// summing each group's accumulate_gas as calc_gas_limit. Deterministic with
// respect to the input report ordering: iterating reports and then their
// results in order, grouping is stable regardless of map iteration order
// because each group's slice is appended to in that same traversal order.
func GroupByService(reports []jamtypes.WorkReport) map[ids.ServiceId]*Group {
	groups := make(map[ids.ServiceId]*Group)
	for _, report := range reports {
		for _, res := range report.Results {
			g, ok := groups[res.ServiceID]
			if !ok {
				g = &Group{ServiceID: res.ServiceID}
				groups[res.ServiceID] = g
			}
			g.Operands = append(g.Operands, AccumulationOperand{
				ServiceID:     res.ServiceID,
				AccumulateGas: res.AccumulateGas,
				PayloadHash:   res.PayloadHash,
				CodeHash:      res.CodeHash,
				ExecResult:    res.ExecResult,
			})
			g.GasLimit += res.AccumulateGas
		}
	}
	return groups
}

// AccumulationResult is the per-service output of one invocation (spec.md
// §3): the gas consumed, the invoked service's mutated context dimension,
// any transfers it emitted, an optional 32-byte accumulation output, and any
// preimages it provided during execution.
type AccumulationResult struct {
	ServiceID          ids.ServiceId
	GasUsed            jamtypes.Gas
	CollapsedDimension *accctx.AccumulationContext
	GeneratedTransfers []TransferOperand
	AccumulationOutput *jamtypes.Hash32
	ProvidedPreimages  map[ProvidedPreimageKey][]byte
}

// ProvidedPreimageKey identifies one preimage supplied by the `provide` host
// call during a single invocation, pending the solicitation-status check at
// application time (spec.md §4.5's last bullet).
type ProvidedPreimageKey struct {
	Service ids.ServiceId
	Hash    jamtypes.Hash32
	Size    uint64
}
