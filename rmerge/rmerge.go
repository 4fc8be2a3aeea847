// Package rmerge implements the R-function merge of spec.md §4.6 (protocol
// §12.17): reconciling concurrently-mutated privileged-service state
// (manager's privileges edits, per-core assigner's authorizer_queue edits,
// the delegator's validator_keys edits) into one deterministic outcome.
package rmerge

import (
	"github.com/jamaccumulate/accumulator/accctx"
	"github.com/jamaccumulate/accumulator/ids"
	"github.com/jamaccumulate/accumulator/jamtypes"
	"github.com/jamaccumulate/accumulator/operand"
)

// R is the pure three-way merge named in spec.md §9's explicit call to
// extract it: R(o,a,b) = if a == o then b else a. a wins whenever it
// differs from the original; otherwise b (the privileged owner's own view)
// is kept.
func R[T comparable](o, a, b T) T {
	if a == o {
		return b
	}
	return a
}

// Merge reconciles outerCtx's privileges, authorizer_queue, and
// validator_keys against the values captured at batch start, using each
// invoked service's own post-accumulation result (spec.md §4.6).
//
//   - manager accumulated this batch  → its post value supplies `a`;
//     manager/always_accumulate come directly from it.
//   - assign[core]/validator_keys are finalized per-field from the
//     relevant original role-holder's post value, R-merged against the
//     manager's edit when the manager also accumulated.
//   - If the manager did not accumulate, no merge occurs at all: the
//     outer context's privileges are left exactly as committed by
//     commit_for_service.
func Merge(
	outerCtx *accctx.AccumulationContext,
	originalPrivileges *jamtypes.Privileges,
	originalAssign []ids.ServiceId,
	results map[ids.ServiceId]*operand.AccumulationResult,
) {
	managerResult, managerAccumulated := results[originalPrivileges.Manager]
	if !managerAccumulated || managerResult.CollapsedDimension == nil {
		return
	}
	a := managerResult.CollapsedDimension.Privileges.GetReadOnly()

	mergedPriv := outerCtx.Privileges.GetMutable()
	(*mergedPriv).Manager = a.Manager
	(*mergedPriv).Registrar = R(originalPrivileges.Registrar, a.Registrar, bRegistrar(results, originalPrivileges))
	(*mergedPriv).Designate = R(originalPrivileges.Designate, a.Designate, bDesignate(results, originalAssign, originalPrivileges))
	(*mergedPriv).AlwaysAccumulate = a.AlwaysAccumulate

	mergedAssign := make([]ids.ServiceId, len(originalAssign))
	for core := range mergedAssign {
		o := originalAssign[core]
		var aVal ids.ServiceId
		if core < len(a.Assign) {
			aVal = a.Assign[core]
		}
		bVal := o
		if res, ok := results[o]; ok && res.CollapsedDimension != nil {
			bp := res.CollapsedDimension.Privileges.GetReadOnly()
			if core < len(bp.Assign) {
				bVal = bp.Assign[core]
			}
		}
		mergedAssign[core] = R(o, aVal, bVal)
	}
	(*mergedPriv).Assign = mergedAssign

	finalizeAuthorizerQueue(outerCtx, originalAssign, results)
	finalizeValidatorKeys(outerCtx, originalPrivileges.Designate, results)
}

func bRegistrar(results map[ids.ServiceId]*operand.AccumulationResult, original *jamtypes.Privileges) ids.ServiceId {
	if res, ok := results[original.Registrar]; ok && res.CollapsedDimension != nil {
		return res.CollapsedDimension.Privileges.GetReadOnly().Registrar
	}
	return original.Registrar
}

func bDesignate(
	results map[ids.ServiceId]*operand.AccumulationResult,
	originalAssign []ids.ServiceId,
	original *jamtypes.Privileges,
) ids.ServiceId {
	if res, ok := results[original.Designate]; ok && res.CollapsedDimension != nil {
		return res.CollapsedDimension.Privileges.GetReadOnly().Designate
	}
	return original.Designate
}

// finalizeAuthorizerQueue copies each core's post-accumulation queue from
// the original assigner for that core, if it accumulated this batch
// (spec.md §4.6).
func finalizeAuthorizerQueue(
	outerCtx *accctx.AccumulationContext,
	originalAssign []ids.ServiceId,
	results map[ids.ServiceId]*operand.AccumulationResult,
) {
	mergedQueue := outerCtx.AuthorizerQueue.GetMutable()
	for core, assigner := range originalAssign {
		res, ok := results[assigner]
		if !ok || res.CollapsedDimension == nil {
			continue
		}
		row := res.CollapsedDimension.AuthorizerQueue.GetReadOnly()
		if core < len(row) && core < len(*mergedQueue) {
			(*mergedQueue)[core] = row[core]
		}
	}
}

// finalizeValidatorKeys takes validator_keys from the original delegator's
// (designator's) post value, if it accumulated this batch.
func finalizeValidatorKeys(
	outerCtx *accctx.AccumulationContext,
	originalDesignate ids.ServiceId,
	results map[ids.ServiceId]*operand.AccumulationResult,
) {
	res, ok := results[originalDesignate]
	if !ok || res.CollapsedDimension == nil {
		return
	}
	keys := outerCtx.ValidatorKeys.GetMutable()
	*keys = res.CollapsedDimension.ValidatorKeys.GetReadOnly()
}
