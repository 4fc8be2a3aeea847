package jamtypes

import "github.com/jamaccumulate/accumulator/ids"

// PackageSpec identifies the work package a WorkReport was produced from.
type PackageSpec struct {
	Hash Hash32
	// remaining fields (erasure-coding root, length, ...) are produced and
	// consumed by the refinement/availability stages, out of scope here
	// (spec.md §1); only Hash is read by the accumulation engine.
}

// ReportContext carries the prerequisite work-package hashes a report
// declares, used by an upstream subsystem (not this engine, see spec.md's
// "stale report" open question) to filter the accumulatable list.
type ReportContext struct {
	Prerequisites []Hash32
}

// WorkResult is one service's outcome within a WorkReport (spec.md §3).
type WorkResult struct {
	ServiceID      ids.ServiceId
	CodeHash       Hash32
	PayloadHash    Hash32
	AccumulateGas  Gas
	ExecResult     []byte // opaque refinement output consumed as an operand
}

// WorkReport is a container of per-service results produced by refinement,
// already filtered to the accumulatable set by an upstream subsystem
// (spec.md §9: the "stale report" removal logic is explicitly out of scope
// for this engine).
type WorkReport struct {
	PackageSpec PackageSpec
	CoreIndex   int
	Results     []WorkResult
	Context     ReportContext
}

// TotalAccumulateGas sums every result's AccumulateGas.
func (r *WorkReport) TotalAccumulateGas() Gas {
	var total Gas
	for _, res := range r.Results {
		total += res.AccumulateGas
	}
	return total
}
