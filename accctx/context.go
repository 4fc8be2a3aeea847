// Package accctx bundles the mutable handles and immutable inputs a service
// invocation sees while accumulating (spec.md §4.2), mirroring the
// small bundle-of-handles-plus-immutable-fields Context the teacher threads
// through a dispatch call (sysaction.Context in sysaction/executor.go).
package accctx

import (
	"github.com/jamaccumulate/accumulator/ids"
	"github.com/jamaccumulate/accumulator/jamtypes"
	"github.com/jamaccumulate/accumulator/state"
)

// AccumulationContext (U) is everything a single service invocation's host
// calls can read or stage mutations into: four CoW-backed state dimensions,
// plus the slot/entropy/original-role-holder inputs that never change
// within one outer-loop batch.
type AccumulationContext struct {
	ValidatorKeys   *state.Cow[jamtypes.ValidatorKeys]
	AuthorizerQueue *state.Cow[jamtypes.AuthorizerQueue]
	Privileges      *state.Cow[*jamtypes.Privileges]
	ServiceAccounts *state.DeltaSnapshot

	Slot    uint64
	Entropy jamtypes.Hash32

	// Original role holders, captured once at the start of the outer loop
	// (spec.md §4.2): CommitForService consults these, not the live
	// (possibly already-reassigned) Privileges value, when deciding
	// whether a given service is allowed to commit validator_keys or
	// authorizer_queue.
	OriginalManager   ids.ServiceId
	OriginalDesignate ids.ServiceId
	OriginalAssign    []ids.ServiceId
	OriginalRegistrar ids.ServiceId
}

func cloneValidatorKeys(v jamtypes.ValidatorKeys) jamtypes.ValidatorKeys { return v.Clone() }
func cloneAuthorizerQueue(q jamtypes.AuthorizerQueue) jamtypes.AuthorizerQueue { return q.Clone() }
func clonePrivileges(p *jamtypes.Privileges) *jamtypes.Privileges { return p.Clone() }

// New builds a fresh AccumulationContext over the given base state, capturing
// the current privileges as the "original" role holders for CommitForService.
func New(
	validatorKeys jamtypes.ValidatorKeys,
	authorizerQueue jamtypes.AuthorizerQueue,
	privileges *jamtypes.Privileges,
	accounts map[ids.ServiceId]*jamtypes.ServiceAccount,
	slot uint64,
	entropy jamtypes.Hash32,
) *AccumulationContext {
	assign := make([]ids.ServiceId, len(privileges.Assign))
	copy(assign, privileges.Assign)
	return &AccumulationContext{
		ValidatorKeys:     state.NewCow(validatorKeys, cloneValidatorKeys),
		AuthorizerQueue:   state.NewCow(authorizerQueue, cloneAuthorizerQueue),
		Privileges:        state.NewCow(privileges, clonePrivileges),
		ServiceAccounts:   state.NewDeltaSnapshot(accounts),
		Slot:              slot,
		Entropy:           entropy,
		OriginalManager:   privileges.Manager,
		OriginalDesignate: privileges.Designate,
		OriginalAssign:    assign,
		OriginalRegistrar: privileges.Registrar,
	}
}

// DeepClone returns an isolated context for a parallel service invocation
// (spec.md §4.5): every CoW handle and the DeltaSnapshot are independently
// cloned, so no mutation made by this clone is visible to the original or to
// any sibling clone taken from the same parent.
func (c *AccumulationContext) DeepClone() *AccumulationContext {
	assign := make([]ids.ServiceId, len(c.OriginalAssign))
	copy(assign, c.OriginalAssign)
	return &AccumulationContext{
		ValidatorKeys:     c.ValidatorKeys.DeepClone(),
		AuthorizerQueue:   c.AuthorizerQueue.DeepClone(),
		Privileges:        c.Privileges.DeepClone(),
		ServiceAccounts:   c.ServiceAccounts.DeepClone(),
		Slot:              c.Slot,
		Entropy:           c.Entropy,
		OriginalManager:   c.OriginalManager,
		OriginalDesignate: c.OriginalDesignate,
		OriginalAssign:    assign,
		OriginalRegistrar: c.OriginalRegistrar,
	}
}

// Commit promotes every staged dimension unconditionally: used for the
// regular-dimension context of a batch's lone/first-committed invocation,
// and by the engine after R-merging sibling contexts (spec.md §4.6), where
// by that point every dimension is meant to land regardless of which
// service produced it.
func (c *AccumulationContext) Commit() error {
	if err := c.ValidatorKeys.Commit(); err != nil {
		return err
	}
	if err := c.AuthorizerQueue.Commit(); err != nil {
		return err
	}
	if err := c.Privileges.Commit(); err != nil {
		return err
	}
	return c.ServiceAccounts.Commit()
}

// CommitForService applies spec.md §4.2's per-service commit rule to a
// single invoked service's own context, before any cross-service R-merge:
//
//   - service_accounts always commit (every service owns its own changes).
//   - validator_keys commits only if id is the original validator-set
//     designator (only that service is entitled to call `designate`).
//   - authorizer_queue commits only if id is one of the original per-core
//     assigners (only those services are entitled to call `assign`).
//   - privileges never commits here — reassigning manager/registrar/
//     designate/assign/always_accumulate is reconciled later across all
//     invoked services by the R-merge (spec.md §4.6), since more than one
//     service could attempt it in the same batch.
func (c *AccumulationContext) CommitForService(id ids.ServiceId) error {
	if err := c.ServiceAccounts.Commit(); err != nil {
		return err
	}
	if id == c.OriginalDesignate {
		if err := c.ValidatorKeys.Commit(); err != nil {
			return err
		}
	} else {
		c.ValidatorKeys.Deinit()
	}
	if isOriginalAssigner(c.OriginalAssign, id) {
		if err := c.AuthorizerQueue.Commit(); err != nil {
			return err
		}
	} else {
		c.AuthorizerQueue.Deinit()
	}
	c.Privileges.Deinit()
	return nil
}

func isOriginalAssigner(assign []ids.ServiceId, id ids.ServiceId) bool {
	for _, a := range assign {
		if a == id {
			return true
		}
	}
	return false
}
