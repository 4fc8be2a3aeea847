package engine

import (
	"testing"

	"github.com/jamaccumulate/accumulator/accctx"
	"github.com/jamaccumulate/accumulator/ids"
	"github.com/jamaccumulate/accumulator/jamtypes"
	"github.com/jamaccumulate/accumulator/params"
	"github.com/jamaccumulate/accumulator/vmboundary"
)

func newTestReports(n int, gasEach uint64) []jamtypes.WorkReport {
	reports := make([]jamtypes.WorkReport, n)
	for i := range reports {
		var hash jamtypes.Hash32
		hash[0] = byte(i + 1)
		reports[i] = jamtypes.WorkReport{
			PackageSpec: jamtypes.PackageSpec{Hash: hash},
			CoreIndex:   0,
			Results: []jamtypes.WorkResult{
				{ServiceID: ids.ServiceId(1000 + i), AccumulateGas: gasEach},
			},
		}
	}
	return reports
}

func newTestContext(t *testing.T, cfg params.Config, reports []jamtypes.WorkReport) *accctx.AccumulationContext {
	t.Helper()
	accounts := make(map[ids.ServiceId]*jamtypes.ServiceAccount)
	for _, r := range reports {
		for _, res := range r.Results {
			acc := jamtypes.NewServiceAccount()
			acc.Balance = 1 << 30
			accounts[res.ServiceID] = acc
		}
	}
	priv := jamtypes.NewPrivileges(cfg.CoreCount)
	keys := make(jamtypes.ValidatorKeys, cfg.ValidatorsCount)
	queue := jamtypes.NewAuthorizerQueue(cfg.CoreCount, 4)
	return accctx.New(keys, queue, priv, accounts, 1, jamtypes.Hash32{})
}

func TestExecuteProcessesAllReportsWithinGasBudget(t *testing.T) {
	cfg := params.DefaultConfig
	cfg.TotalGasAllocAccumulation = 1000
	cfg.GasAllocAccumulation = 0
	reports := newTestReports(3, 100)

	ctx := newTestContext(t, cfg, reports)
	history := jamtypes.NewAccumulationHistory(cfg.EpochLength)
	vm := vmboundary.NewScriptedVM(vmboundary.NewByteMemory(1 << 12))

	result, err := Execute(ctx, vm, reports, history, cfg, ids.ServiceId(params.MinPublicServiceID))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.AccumulatedCount != 3 {
		t.Fatalf("AccumulatedCount = %d, want 3", result.AccumulatedCount)
	}
	if len(result.InvokedServices) != 3 {
		t.Fatalf("InvokedServices = %v, want 3 entries", result.InvokedServices)
	}
}

// TestExecuteBatchesWhenPerRoundGasIsTight forces selectPrefix to admit only
// one report per round (2x100 gas exceeds the 150 budget), verifying the
// outer loop still drains every report across several rounds rather than
// stalling.
func TestExecuteBatchesWhenPerRoundGasIsTight(t *testing.T) {
	cfg := params.DefaultConfig
	cfg.TotalGasAllocAccumulation = 150
	cfg.GasAllocAccumulation = 0
	reports := newTestReports(5, 100)

	ctx := newTestContext(t, cfg, reports)
	history := jamtypes.NewAccumulationHistory(cfg.EpochLength)
	vm := vmboundary.NewScriptedVM(vmboundary.NewByteMemory(1 << 12))

	result, err := Execute(ctx, vm, reports, history, cfg, ids.ServiceId(params.MinPublicServiceID))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.AccumulatedCount != 5 {
		t.Fatalf("AccumulatedCount = %d, want 5 (all reports drained across multiple rounds)", result.AccumulatedCount)
	}
	if len(result.InvokedServices) != 5 {
		t.Fatalf("InvokedServices = %v, want 5 distinct services", result.InvokedServices)
	}
}

func TestExecuteHistoryRecordsProcessedHashes(t *testing.T) {
	cfg := params.DefaultConfig
	cfg.TotalGasAllocAccumulation = 1000
	reports := newTestReports(2, 50)

	ctx := newTestContext(t, cfg, reports)
	history := jamtypes.NewAccumulationHistory(cfg.EpochLength)
	vm := vmboundary.NewScriptedVM(vmboundary.NewByteMemory(1 << 12))

	result, err := Execute(ctx, vm, reports, history, cfg, ids.ServiceId(params.MinPublicServiceID))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, h := range result.ProcessedHashes {
		if !history.ContainsAt0(h) {
			t.Fatalf("history missing processed hash %x", h)
		}
	}
}
