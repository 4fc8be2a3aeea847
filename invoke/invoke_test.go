package invoke

import (
	"testing"

	"github.com/jamaccumulate/accumulator/accctx"
	"github.com/jamaccumulate/accumulator/ids"
	"github.com/jamaccumulate/accumulator/jamtypes"
	"github.com/jamaccumulate/accumulator/operand"
	"github.com/jamaccumulate/accumulator/vmboundary"
)

func newCtx(t *testing.T, services ...ids.ServiceId) *accctx.AccumulationContext {
	t.Helper()
	accounts := make(map[ids.ServiceId]*jamtypes.ServiceAccount)
	for _, sid := range services {
		acc := jamtypes.NewServiceAccount()
		acc.Balance = 1 << 20
		accounts[sid] = acc
	}
	priv := jamtypes.NewPrivileges(2)
	keys := make(jamtypes.ValidatorKeys, 3)
	queue := jamtypes.NewAuthorizerQueue(2, 4)
	return accctx.New(keys, queue, priv, accounts, 1, jamtypes.Hash32{})
}

func reportsFor(services ...ids.ServiceId) []jamtypes.WorkReport {
	results := make([]jamtypes.WorkResult, len(services))
	for i, sid := range services {
		results[i] = jamtypes.WorkResult{ServiceID: sid, AccumulateGas: 50}
	}
	return []jamtypes.WorkReport{{Results: results}}
}

func TestParallelizedAccumulationSequentialPath(t *testing.T) {
	ctx := newCtx(t, 1)
	vm := vmboundary.NewScriptedVM(vmboundary.NewByteMemory(256))
	invoked := ids.NewOrderedSet()

	results, _, err := ParallelizedAccumulation(ctx, vm, reportsFor(1), nil, true, ids.ServiceId(70000), 2, 3, invoked)
	if err != nil {
		t.Fatalf("ParallelizedAccumulation: %v", err)
	}
	if _, ok := results[1]; !ok {
		t.Fatalf("expected result for service 1")
	}
	if invoked.Len() != 1 {
		t.Fatalf("invoked.Len() = %d, want 1", invoked.Len())
	}
}

func TestParallelizedAccumulationParallelPath(t *testing.T) {
	ctx := newCtx(t, 1, 2, 3)
	vm := vmboundary.NewScriptedVM(vmboundary.NewByteMemory(256))
	invoked := ids.NewOrderedSet()

	results, _, err := ParallelizedAccumulation(ctx, vm, reportsFor(1, 2, 3), nil, true, ids.ServiceId(70000), 2, 3, invoked)
	if err != nil {
		t.Fatalf("ParallelizedAccumulation: %v", err)
	}
	for _, sid := range []ids.ServiceId{1, 2, 3} {
		if _, ok := results[sid]; !ok {
			t.Fatalf("missing result for service %d", sid)
		}
	}
	if invoked.Len() != 3 {
		t.Fatalf("invoked.Len() = %d, want 3", invoked.Len())
	}
}

func TestAscendingIDsIsSorted(t *testing.T) {
	results := map[ids.ServiceId]*operand.AccumulationResult{
		30: {ServiceID: 30},
		10: {ServiceID: 10},
		20: {ServiceID: 20},
	}
	got := AscendingIDs(results)
	want := []ids.ServiceId{10, 20, 30}
	if len(got) != len(want) {
		t.Fatalf("AscendingIDs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("AscendingIDs() = %v, want %v", got, want)
		}
	}
}
