package xmetrics

import "testing"

func TestMeterMarkAccumulates(t *testing.T) {
	m := NewRegisteredMeter("test/accumulates", nil)
	m.Mark(3)
	m.Mark(4)
	if got := m.Count(); got != 7 {
		t.Fatalf("Count() = %d, want 7", got)
	}
}

func TestSnapshotIncludesRegisteredMeters(t *testing.T) {
	name := "test/snapshot-unique"
	m := NewRegisteredMeter(name, nil)
	m.Mark(5)
	snap := Snapshot()
	if got := snap[name]; got != 5 {
		t.Fatalf("Snapshot()[%q] = %d, want 5", name, got)
	}
}
