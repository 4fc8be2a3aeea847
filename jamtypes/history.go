package jamtypes

// AccumulationHistory (ξ) is an epoch-length ring of work-package-hash sets.
// ξ[0] always holds the hashes processed in the most recently accumulated
// slot; ShiftDown ages every entry by one slot.
type AccumulationHistory struct {
	epochLength int
	slots       []map[Hash32]struct{}
}

// NewAccumulationHistory returns a zeroed (all-empty) history ring sized for
// epochLength slots.
func NewAccumulationHistory(epochLength int) *AccumulationHistory {
	h := &AccumulationHistory{epochLength: epochLength}
	h.slots = make([]map[Hash32]struct{}, epochLength)
	for i := range h.slots {
		h.slots[i] = make(map[Hash32]struct{})
	}
	return h
}

// ShiftDown drops the oldest slot and inserts a fresh empty slot at index 0.
func (h *AccumulationHistory) ShiftDown() {
	h.slots = append([]map[Hash32]struct{}{make(map[Hash32]struct{})}, h.slots[:h.epochLength-1]...)
}

// InsertAt0 records hash as processed in the current (index 0) slot. Inserting
// the same hash twice in one slot is a no-op, preserving the "no duplicate
// hash within a single slot" invariant (spec.md §8).
func (h *AccumulationHistory) InsertAt0(hash Hash32) {
	h.slots[0][hash] = struct{}{}
}

// ContainsAt0 reports whether hash was recorded in the current slot.
func (h *AccumulationHistory) ContainsAt0(hash Hash32) bool {
	_, ok := h.slots[0][hash]
	return ok
}

// Clone deep-copies the ring.
func (h *AccumulationHistory) Clone() *AccumulationHistory {
	out := &AccumulationHistory{epochLength: h.epochLength}
	out.slots = make([]map[Hash32]struct{}, len(h.slots))
	for i, s := range h.slots {
		cp := make(map[Hash32]struct{}, len(s))
		for k := range s {
			cp[k] = struct{}{}
		}
		out.slots[i] = cp
	}
	return out
}

// IsZeroed reports whether every slot is empty — used to verify ShiftDown's
// idempotence invariant (spec.md §8): applying ShiftDown epochLength+1 times
// to any history yields an all-empty ring.
func (h *AccumulationHistory) IsZeroed() bool {
	for _, s := range h.slots {
		if len(s) != 0 {
			return false
		}
	}
	return true
}
