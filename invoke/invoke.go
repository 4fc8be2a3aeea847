// Package invoke implements single- and parallel-service accumulation
// (spec.md §4.5): per-service gas-limit resolution, the
// sequential-vs-task-group dispatch at PARALLEL_THRESHOLD, and the
// deterministic ascending-service-id result application that follows.
package invoke

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	mapset "github.com/deckarep/golang-set"

	"github.com/jamaccumulate/accumulator/accctx"
	"github.com/jamaccumulate/accumulator/hostcall"
	"github.com/jamaccumulate/accumulator/ids"
	"github.com/jamaccumulate/accumulator/jamtypes"
	"github.com/jamaccumulate/accumulator/operand"
	"github.com/jamaccumulate/accumulator/params"
	"github.com/jamaccumulate/accumulator/vmboundary"
)

// SingleServiceAccumulation implements spec.md §4.5's single_service_accumulation:
// look up the destination account (empty result if absent/deleted), credit
// incoming transfer amounts, resolve the gas limit from
// always_accumulate or the operand/transfer gas sums, and invoke the VM.
func SingleServiceAccumulation(
	ctx *accctx.AccumulationContext,
	vm vmboundary.VM,
	self ids.ServiceId,
	ops []operand.AccumulationOperand,
	incoming []operand.TransferOperand,
	nextServiceID ids.ServiceId,
	coreCount, validatorsCount int,
) (*operand.AccumulationResult, ids.ServiceId, bool) {
	acc, ok, err := ctx.ServiceAccounts.GetMutable(self)
	if err != nil || !ok {
		return nil, nextServiceID, false
	}

	var transfersGas jamtypes.Gas
	for _, t := range incoming {
		acc.Balance += t.Amount
		transfersGas += t.GasLimit
	}

	var operandsGas jamtypes.Gas
	for _, op := range ops {
		operandsGas += op.AccumulateGas
	}

	priv := ctx.Privileges.GetReadOnly()
	gasLimit, always := priv.AlwaysAccumulate[self]
	if !always {
		gasLimit = operandsGas + transfersGas
	}
	if gasLimit == 0 {
		return nil, nextServiceID, false
	}

	dim := hostcall.NewDualDimension(ctx)
	result, newNextID, err := vm.Invoke(self, gasLimit, ops, incoming, dim, nextServiceID, coreCount, validatorsCount)
	if err != nil {
		return nil, nextServiceID, false
	}
	if result.CollapsedDimension == nil {
		result.CollapsedDimension = dim.Exceptional
	}
	return result, newNextID, true
}

// ServiceIDSet computes the batch's service_ids (spec.md §4.5 step 1): the
// always_accumulate keys (if includePrivileged), every result's
// service_id, and the destinations of pending transfers that currently
// exist. invokedOut records every id visited, in first-seen order.
func ServiceIDSet(
	ctx *accctx.AccumulationContext,
	groups map[ids.ServiceId]*operand.Group,
	pendingTransfers []operand.TransferOperand,
	includePrivileged bool,
	invokedOut *ids.OrderedSet,
) []ids.ServiceId {
	set := mapset.NewSet()
	if includePrivileged {
		priv := ctx.Privileges.GetReadOnly()
		for sid := range priv.AlwaysAccumulate {
			set.Add(sid)
		}
	}
	for sid := range groups {
		set.Add(sid)
	}
	byDest := make(map[ids.ServiceId][]operand.TransferOperand)
	for _, t := range pendingTransfers {
		if ctx.ServiceAccounts.Exists(t.Destination) {
			set.Add(t.Destination)
		}
		byDest[t.Destination] = append(byDest[t.Destination], t)
	}

	ordered := ids.UnionSorted(set)
	for _, sid := range ordered {
		invokedOut.Add(sid)
	}
	return ordered
}

// ParallelizedAccumulation implements spec.md §4.5's parallelized_accumulation:
// groups operands, computes the batch's service_ids, and invokes each
// either as goroutine tasks (over independently deep-cloned contexts) or
// sequentially, depending on PARALLEL_THRESHOLD.
func ParallelizedAccumulation(
	ctx *accctx.AccumulationContext,
	vm vmboundary.VM,
	reports []jamtypes.WorkReport,
	pendingTransfers []operand.TransferOperand,
	includePrivileged bool,
	nextServiceID ids.ServiceId,
	coreCount, validatorsCount int,
	invokedOut *ids.OrderedSet,
) (map[ids.ServiceId]*operand.AccumulationResult, ids.ServiceId, error) {
	groups := operand.GroupByService(reports)
	serviceIDs := ServiceIDSet(ctx, groups, pendingTransfers, includePrivileged, invokedOut)

	transfersByDest := make(map[ids.ServiceId][]operand.TransferOperand)
	for _, t := range pendingTransfers {
		transfersByDest[t.Destination] = append(transfersByDest[t.Destination], t)
	}

	opsFor := func(sid ids.ServiceId) []operand.AccumulationOperand {
		if g, ok := groups[sid]; ok {
			return g.Operands
		}
		return nil
	}

	results := make(map[ids.ServiceId]*operand.AccumulationResult, len(serviceIDs))

	if len(serviceIDs) >= params.ParallelThreshold {
		type taskResult struct {
			sid        ids.ServiceId
			result     *operand.AccumulationResult
			ok         bool
			nextID     ids.ServiceId
		}
		taskResults := make([]taskResult, len(serviceIDs))

		g, _ := errgroup.WithContext(context.Background())
		for i, sid := range serviceIDs {
			i, sid := i, sid
			cloned := ctx.DeepClone()
			g.Go(func() error {
				res, newNextID, ok := SingleServiceAccumulation(
					cloned, vm, sid, opsFor(sid), transfersByDest[sid], nextServiceID, coreCount, validatorsCount,
				)
				taskResults[i] = taskResult{sid: sid, result: res, ok: ok, nextID: newNextID}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, nextServiceID, err
		}
		for _, tr := range taskResults {
			if tr.ok {
				results[tr.sid] = tr.result
				nextServiceID = tr.nextID
			}
		}
		return results, nextServiceID, nil
	}

	for _, sid := range serviceIDs {
		res, newNextID, ok := SingleServiceAccumulation(
			ctx, vm, sid, opsFor(sid), transfersByDest[sid], nextServiceID, coreCount, validatorsCount,
		)
		if ok {
			results[sid] = res
			nextServiceID = newNextID
		}
	}
	return results, nextServiceID, nil
}

// AscendingIDs returns the keys of results sorted ascending, giving the
// deterministic application order spec.md §4.5 mandates.
func AscendingIDs(results map[ids.ServiceId]*operand.AccumulationResult) []ids.ServiceId {
	out := make([]ids.ServiceId, 0, len(results))
	for sid := range results {
		out = append(out, sid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
