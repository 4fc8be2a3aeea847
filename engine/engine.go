// Package engine implements the outer accumulation loop of spec.md §4.6:
// gas-bounded batch selection, per-batch invocation, the R-merge, the
// deterministic result application, gas accounting with refunds, deferred
// transfer carry-over, the accumulate-root commitment, and the
// accumulation-history shift-and-insert.
package engine

import (
	"github.com/jamaccumulate/accumulator/accctx"
	"github.com/jamaccumulate/accumulator/ids"
	"github.com/jamaccumulate/accumulator/invoke"
	"github.com/jamaccumulate/accumulator/jamtypes"
	"github.com/jamaccumulate/accumulator/merkle"
	"github.com/jamaccumulate/accumulator/operand"
	"github.com/jamaccumulate/accumulator/params"
	"github.com/jamaccumulate/accumulator/rmerge"
	"github.com/jamaccumulate/accumulator/vmboundary"
	"github.com/jamaccumulate/accumulator/xlog"
	"github.com/jamaccumulate/accumulator/xmetrics"
)

var (
	batchMeter   = xmetrics.NewRegisteredMeter("engine/batches", nil)
	invokedMeter = xmetrics.NewRegisteredMeter("engine/invoked_services", nil)
	gasUsedMeter = xmetrics.NewRegisteredMeter("engine/gas_used", nil)
)

// ServiceStats is one service's accumulated gas and invocation count across
// the whole outer loop.
type ServiceStats struct {
	GasUsed         jamtypes.Gas
	AccumulatedCount int
}

// Result is the outer loop's final output (spec.md §4.6).
type Result struct {
	AccumulatedCount    int
	AccumulateRoot      jamtypes.Hash32
	GasUsedPerService   map[ids.ServiceId]*ServiceStats
	InvokedServices     []ids.ServiceId
	ProcessedHashes     []jamtypes.Hash32
}

// Execute runs the full outer accumulation loop over reports against ctx,
// using vm as the service-code execution boundary, and folds processed
// work-package hashes into history. cfg supplies core_count,
// total_gas_alloc_accumulation, and gas_alloc_accumulation.
func Execute(
	ctx *accctx.AccumulationContext,
	vm vmboundary.VM,
	reports []jamtypes.WorkReport,
	history *jamtypes.AccumulationHistory,
	cfg params.Config,
	nextServiceID ids.ServiceId,
) (*Result, error) {
	originalPrivileges := ctx.Privileges.GetReadOnly().Clone()
	originalAssign := make([]ids.ServiceId, len(originalPrivileges.Assign))
	copy(originalAssign, originalPrivileges.Assign)

	var alwaysAccumulateTotal jamtypes.Gas
	for _, g := range originalPrivileges.AlwaysAccumulate {
		alwaysAccumulateTotal += g
	}
	gasLimit := int64(minGasFloor(cfg, alwaysAccumulateTotal))

	var pendingTransfers []operand.TransferOperand
	invokedServices := ids.NewOrderedSet()
	gasPerService := make(map[ids.ServiceId]*ServiceStats)
	var outputs []merkle.Leaf
	var processedHashes []jamtypes.Hash32

	firstBatch := true
	remaining := reports

	for {
		k, batchGas := selectPrefix(remaining, gasLimit)
		if k == 0 && len(pendingTransfers) == 0 {
			break
		}

		batch := remaining[:k]
		results, newNextID, err := invoke.ParallelizedAccumulation(
			ctx, vm, batch, pendingTransfers, firstBatch, nextServiceID,
			cfg.CoreCount, cfg.ValidatorsCount, invokedServices,
		)
		if err != nil {
			return nil, err
		}
		nextServiceID = newNextID

		rmerge.Merge(ctx, originalPrivileges, originalAssign, results)

		var batchGasUsed jamtypes.Gas
		var nextTransfers []operand.TransferOperand
		for _, sid := range invoke.AscendingIDs(results) {
			res := results[sid]
			applyCollapsedDimension(ctx, res)
			if err := ctx.CommitForService(sid); err != nil {
				return nil, err
			}

			nextTransfers = append(nextTransfers, res.GeneratedTransfers...)
			batchGasUsed += res.GasUsed

			stats, ok := gasPerService[sid]
			if !ok {
				stats = &ServiceStats{}
				gasPerService[sid] = stats
			}
			stats.GasUsed += res.GasUsed
			stats.AccumulatedCount++

			if res.AccumulationOutput != nil {
				outputs = append(outputs, merkle.Leaf{ServiceID: sid, Output: *res.AccumulationOutput})
			}
			applyProvidedPreimages(ctx, res.ProvidedPreimages)
		}

		var gasRefund jamtypes.Gas
		for _, t := range pendingTransfers {
			gasRefund += t.GasLimit
		}
		gasLimit = saturatingSub(gasLimit, int64(batchGasUsed)) + int64(gasRefund)

		for _, r := range batch {
			processedHashes = append(processedHashes, r.PackageSpec.Hash)
		}

		pendingTransfers = nextTransfers
		remaining = remaining[k:]
		firstBatch = false

		batchMeter.Mark(1)
		gasUsedMeter.Mark(int64(batchGasUsed))
		_ = batchGas

		if len(remaining) == 0 && len(pendingTransfers) == 0 {
			break
		}
		if gasLimit <= 0 {
			break
		}
	}

	history.ShiftDown()
	for _, h := range processedHashes {
		history.InsertAt0(h)
	}

	root := merkle.Root(outputs)
	invokedMeter.Mark(int64(invokedServices.Len()))

	xlog.Info("accumulation batch complete",
		"invoked", invokedServices.Len(),
		"outputs", len(outputs),
	)

	return &Result{
		AccumulatedCount:  len(processedHashes),
		AccumulateRoot:    root,
		GasUsedPerService: gasPerService,
		InvokedServices:   invokedServices.Slice(),
		ProcessedHashes:   processedHashes,
	}, nil
}

// selectPrefix implements spec.md §4.6 step 1: the largest k such that the
// sum of reports[0..k)'s total accumulate gas fits within gasLimit.
func selectPrefix(reports []jamtypes.WorkReport, gasLimit int64) (int, jamtypes.Gas) {
	var sum jamtypes.Gas
	k := 0
	for _, r := range reports {
		g := r.TotalAccumulateGas()
		if int64(sum+g) > gasLimit {
			break
		}
		sum += g
		k++
	}
	return k, sum
}

// minGasFloor implements spec.md §4.6's initial gas_limit: at least
// gas_alloc_accumulation·core_count + Σ always_accumulate.values(),
// augmenting total_gas_alloc_accumulation if it falls short.
func minGasFloor(cfg params.Config, alwaysAccumulateTotal jamtypes.Gas) uint64 {
	floor := cfg.GasAllocAccumulation*uint64(cfg.CoreCount) + uint64(alwaysAccumulateTotal)
	if cfg.TotalGasAllocAccumulation > floor {
		return cfg.TotalGasAllocAccumulation
	}
	return floor
}

func saturatingSub(a, b int64) int64 {
	if b > a {
		return 0
	}
	return a - b
}

// applyCollapsedDimension merges res's collapsed service-account
// modifications and deletions into the outer context's DeltaSnapshot
// (spec.md §4.5's "phase 1, then phase 2" merge), ahead of commit_for_service.
func applyCollapsedDimension(ctx *accctx.AccumulationContext, res *operand.AccumulationResult) {
	if res.CollapsedDimension == nil {
		return
	}
	src := res.CollapsedDimension.ServiceAccounts
	for id, acc := range src.PendingModifications() {
		if mut, ok, err := ctx.ServiceAccounts.GetMutable(id); err == nil && ok {
			*mut = *acc
		} else {
			ctx.ServiceAccounts.CreateService(id)
			if mut, ok, _ := ctx.ServiceAccounts.GetMutable(id); ok {
				*mut = *acc
			}
		}
	}
	for id := range src.PendingDeletions() {
		ctx.ServiceAccounts.RemoveService(id)
	}
}

// applyProvidedPreimages stores provided bytes into the committed account
// map only if the lookup status is still the empty (requested) state at
// application time (spec.md §4.5's last bullet).
func applyProvidedPreimages(ctx *accctx.AccumulationContext, provided map[operand.ProvidedPreimageKey][]byte) {
	for key, data := range provided {
		acc, ok, err := ctx.ServiceAccounts.GetMutable(key.Service)
		if err != nil || !ok {
			continue
		}
		lookupKey := jamtypes.PreimageKey{Hash: key.Hash, Size: key.Size}
		status, exists := acc.PreimageLookup[lookupKey]
		if !exists || len(status) != 0 {
			continue
		}
		acc.Preimages[key.Hash] = data
		acc.PreimageLookup[lookupKey] = jamtypes.LookupStatus{ctx.Slot}
	}
}
