// Package ids defines the ServiceId type and the ordered-set representation
// used throughout the accumulation engine for invoked_services and similar
// deterministically-ordered collections.
package ids

import (
	"sort"

	mapset "github.com/deckarep/golang-set"

	"github.com/jamaccumulate/accumulator/params"
)

// ServiceId is the 32-bit service identifier (spec.md §3).
type ServiceId uint32

// IsReserved reports whether id is below the public range and therefore only
// claimable by the registrar.
func IsReserved(id ServiceId) bool {
	return uint32(id) < params.MinPublicServiceID
}

// OrderedSet is an append-ordered set of ServiceIds: a slice preserving
// insertion order paired with a membership map for O(1) Contains, mirroring
// the teacher's Validators/ValidatorsMap dual representation
// (consensus/dpos/snapshot.go).
type OrderedSet struct {
	order []ServiceId
	seen  map[ServiceId]struct{}
}

// NewOrderedSet returns an empty OrderedSet.
func NewOrderedSet() *OrderedSet {
	return &OrderedSet{seen: make(map[ServiceId]struct{})}
}

// Add appends id if not already present. Returns true if id was newly added.
func (s *OrderedSet) Add(id ServiceId) bool {
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	s.order = append(s.order, id)
	return true
}

// Contains reports set membership.
func (s *OrderedSet) Contains(id ServiceId) bool {
	_, ok := s.seen[id]
	return ok
}

// Slice returns the ids in insertion order. The caller must not mutate it.
func (s *OrderedSet) Slice() []ServiceId { return s.order }

// Len returns the number of distinct ids.
func (s *OrderedSet) Len() int { return len(s.order) }

// UnionSorted builds the union of several unordered membership sets (used
// while computing a batch's service_ids per spec.md §4.5: the
// always-accumulate keys, the result service ids, and the pending-transfer
// destinations) and returns it sorted ascending by ServiceId. golang-set is
// used for the unordered accumulation step since the union's insertion
// order is not semantically meaningful — only the final ascending order is
// (spec.md §4.5/§4.6 mandate ascending-service-id application order).
func UnionSorted(sets ...mapset.Set) []ServiceId {
	union := mapset.NewSet()
	for _, s := range sets {
		union = union.Union(s)
	}
	out := make([]ServiceId, 0, union.Cardinality())
	for v := range union.Iter() {
		out = append(out, v.(ServiceId))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SetOf builds a mapset.Set from a slice of ServiceIds.
func SetOf(ids ...ServiceId) mapset.Set {
	s := mapset.NewSet()
	for _, id := range ids {
		s.Add(id)
	}
	return s
}
