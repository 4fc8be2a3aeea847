package jamtypes

import "testing"

func TestAccumulationHistoryShiftDownAges(t *testing.T) {
	h := NewAccumulationHistory(3)
	var hash Hash32
	hash[0] = 0xAB
	h.InsertAt0(hash)
	if !h.ContainsAt0(hash) {
		t.Fatalf("expected hash in slot 0 after insert")
	}
	h.ShiftDown()
	if h.ContainsAt0(hash) {
		t.Fatalf("hash should have aged out of slot 0 after shift")
	}
}

func TestAccumulationHistoryZeroedAfterEpochPlusOneShifts(t *testing.T) {
	const epochLength = 4
	h := NewAccumulationHistory(epochLength)
	var hash Hash32
	hash[0] = 1
	h.InsertAt0(hash)
	for i := 0; i < epochLength+1; i++ {
		h.ShiftDown()
	}
	if !h.IsZeroed() {
		t.Fatalf("history should be fully zeroed after epochLength+1 shifts")
	}
}

func TestAccumulationHistoryNoDuplicateWithinSlot(t *testing.T) {
	h := NewAccumulationHistory(2)
	var hash Hash32
	hash[0] = 7
	h.InsertAt0(hash)
	h.InsertAt0(hash)
	if len(h.slots[0]) != 1 {
		t.Fatalf("duplicate insert within a slot should be a no-op, got %d entries", len(h.slots[0]))
	}
}
