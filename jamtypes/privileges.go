package jamtypes

import "github.com/jamaccumulate/accumulator/ids"

// Gas is a gas quantity. It is an alias of uint64, not a distinct type; the
// name documents intent at call sites that juggle gas limits, gas used, and
// refunds.
type Gas = uint64

// Privileges (χ) names the manager, registrar, validator-set designator, and
// per-core assigners, plus the always-accumulate gas table (spec.md §3).
// Invariant: at most one service holds each named role (enforced by callers;
// the struct itself has no constraint checking, matching spec.md's framing
// of the invariant as a property of valid states rather than of the setter).
type Privileges struct {
	Manager   ids.ServiceId
	Registrar ids.ServiceId
	Designate ids.ServiceId
	Assign    []ids.ServiceId // length == core_count

	// AlwaysAccumulate maps a service id to its dedicated per-batch gas
	// allocation; these services are invoked every batch regardless of
	// whether any work report targets them.
	AlwaysAccumulate map[ids.ServiceId]Gas
}

// NewPrivileges returns a zero-value Privileges sized for coreCount cores.
func NewPrivileges(coreCount int) *Privileges {
	return &Privileges{
		Assign:           make([]ids.ServiceId, coreCount),
		AlwaysAccumulate: make(map[ids.ServiceId]Gas),
	}
}

// Clone deep-copies the privileges (Assign slice and AlwaysAccumulate map).
func (p *Privileges) Clone() *Privileges {
	if p == nil {
		return nil
	}
	out := *p
	out.Assign = make([]ids.ServiceId, len(p.Assign))
	copy(out.Assign, p.Assign)
	out.AlwaysAccumulate = make(map[ids.ServiceId]Gas, len(p.AlwaysAccumulate))
	for k, v := range p.AlwaysAccumulate {
		out.AlwaysAccumulate[k] = v
	}
	return &out
}

// ValidatorKey is one validator's key bundle. The exact cryptographic key
// material is out of this engine's scope (spec.md §1 excludes crypto
// primitives); the 336-byte fixed encoding named by spec.md §6 is preserved
// opaquely as a fixed-size blob so designate can write it
// without interpreting it.
type ValidatorKey [336]byte

// ValidatorKeys (ι) is the ordered sequence of validator key bundles.
type ValidatorKeys []ValidatorKey

// Clone returns an independent copy.
func (v ValidatorKeys) Clone() ValidatorKeys {
	out := make(ValidatorKeys, len(v))
	copy(out, v)
	return out
}

// AuthorizerQueue (ϕ) is a [core_count][queue_length] array of hashes.
type AuthorizerQueue [][]Hash32

// NewAuthorizerQueue returns an authorizer queue sized for coreCount cores,
// each row holding up to queueLength hashes.
func NewAuthorizerQueue(coreCount, queueLength int) AuthorizerQueue {
	q := make(AuthorizerQueue, coreCount)
	for i := range q {
		q[i] = make([]Hash32, queueLength)
	}
	return q
}

// Clone deep-copies every row.
func (q AuthorizerQueue) Clone() AuthorizerQueue {
	out := make(AuthorizerQueue, len(q))
	for i, row := range q {
		cp := make([]Hash32, len(row))
		copy(cp, row)
		out[i] = cp
	}
	return out
}
