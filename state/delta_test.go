package state

import (
	"testing"

	"github.com/jamaccumulate/accumulator/ids"
	"github.com/jamaccumulate/accumulator/jamtypes"
)

func newDelta(t *testing.T) *DeltaSnapshot {
	t.Helper()
	base := map[ids.ServiceId]*jamtypes.ServiceAccount{
		1: jamtypes.NewServiceAccount(),
	}
	base[1].Balance = 100
	return NewDeltaSnapshot(base)
}

func TestDeltaSnapshotGetMutableStagesCopy(t *testing.T) {
	d := newDelta(t)
	acc, ok, err := d.GetMutable(1)
	if err != nil || !ok {
		t.Fatalf("GetMutable(1) = %v, %v, %v", acc, ok, err)
	}
	acc.Balance = 5
	if d.base[1].Balance != 100 {
		t.Fatalf("base mutated before commit: %d", d.base[1].Balance)
	}
	if err := d.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if d.base[1].Balance != 5 {
		t.Fatalf("base not updated after commit: %d", d.base[1].Balance)
	}
}

func TestDeltaSnapshotRemoveThenGetMutableFails(t *testing.T) {
	d := newDelta(t)
	d.RemoveService(1)
	if _, ok, err := d.GetMutable(1); err != ErrServiceGone || ok {
		t.Fatalf("GetMutable after RemoveService = %v, %v, want ErrServiceGone", ok, err)
	}
	if _, ok := d.GetReadOnly(1); ok {
		t.Fatalf("GetReadOnly should report gone after RemoveService before commit")
	}
}

func TestDeltaSnapshotCreateServiceAlreadyExists(t *testing.T) {
	d := newDelta(t)
	if _, err := d.CreateService(1); err != ErrAlreadyExists {
		t.Fatalf("CreateService(1) = %v, want ErrAlreadyExists", err)
	}
	if _, err := d.CreateService(2); err != nil {
		t.Fatalf("CreateService(2): %v", err)
	}
	if _, err := d.CreateService(2); err != ErrAlreadyExists {
		t.Fatalf("CreateService(2) again = %v, want ErrAlreadyExists", err)
	}
}

func TestDeltaSnapshotCreateThenRemoveLeavesAbsentAfterCommit(t *testing.T) {
	d := newDelta(t)
	if _, err := d.CreateService(2); err != nil {
		t.Fatalf("CreateService: %v", err)
	}
	d.RemoveService(2)
	if err := d.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, ok := d.base[2]; ok {
		t.Fatalf("service 2 should be absent after create-then-remove commit")
	}
	if len(d.PendingModifications()) != 0 || len(d.PendingDeletions()) != 0 {
		t.Fatalf("modifications/deletions not cleared after commit")
	}
}

func TestDeltaSnapshotDeepCloneIsolation(t *testing.T) {
	d := newDelta(t)
	clone := d.DeepClone()

	acc, _, err := clone.GetMutable(1)
	if err != nil {
		t.Fatalf("GetMutable on clone: %v", err)
	}
	acc.Balance = 999
	if err := clone.Commit(); err != nil {
		t.Fatalf("Commit clone: %v", err)
	}

	original, ok := d.GetReadOnly(1)
	if !ok {
		t.Fatalf("original service missing")
	}
	if original.Balance != 100 {
		t.Fatalf("clone mutation leaked into original: balance=%d", original.Balance)
	}
}
