package state

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/jamaccumulate/accumulator/ids"
	"github.com/jamaccumulate/accumulator/jamtypes"
)

// baseCloneCacheSize bounds the LRU of merged effective account maps, keyed
// by gen, that DeepClone reuses when no staging operation happened since the
// map was built (see DESIGN.md's "state" entry). Each DeepClone still
// deep-copies every account of the cached map.
const baseCloneCacheSize = 8

// DeltaSnapshot is the service-account CoW handle (spec.md §4.1). It stages
// mutations as base + modifications + deletions rather than cloning the
// whole account map, so that:
//
//	accounts' = (accounts ∪ modifications) \ deletions
//
// holds by construction, and commit only ever copies the entries that
// actually changed.
type DeltaSnapshot struct {
	base          map[ids.ServiceId]*jamtypes.ServiceAccount
	modifications map[ids.ServiceId]*jamtypes.ServiceAccount
	deletions     map[ids.ServiceId]struct{}

	// gen counts staging operations (it is never reset), so the merged effective
	// map computed for one DeepClone can be reused by sibling DeepClones
	// taken at the same point (spec.md §4.5's parallel fan-out clones the
	// same context many times before any of them mutates it).
	gen        uint64
	cloneCache *lru.ARCCache
}

// NewDeltaSnapshot wraps base, which DeltaSnapshot takes ownership of: the
// caller must not mutate it directly afterwards.
func NewDeltaSnapshot(base map[ids.ServiceId]*jamtypes.ServiceAccount) *DeltaSnapshot {
	cache, _ := lru.NewARC(baseCloneCacheSize)
	return &DeltaSnapshot{
		base:          base,
		modifications: make(map[ids.ServiceId]*jamtypes.ServiceAccount),
		deletions:     make(map[ids.ServiceId]struct{}),
		cloneCache:    cache,
	}
}

// GetReadOnly returns the effective account for id: from modifications if
// staged, else from base unless id is staged for deletion.
func (d *DeltaSnapshot) GetReadOnly(id ids.ServiceId) (*jamtypes.ServiceAccount, bool) {
	if acc, ok := d.modifications[id]; ok {
		return acc, true
	}
	if _, gone := d.deletions[id]; gone {
		return nil, false
	}
	acc, ok := d.base[id]
	return acc, ok
}

// Exists reports whether id currently resolves to an account (spec.md
// §4.1's get_read_only semantics: modifications ∪ (base \ deletions)).
func (d *DeltaSnapshot) Exists(id ids.ServiceId) bool {
	_, ok := d.GetReadOnly(id)
	return ok
}

// GetMutable returns a mutable staged copy of id's account, cloning from the
// effective value on first access. Fails with ErrServiceGone if id is
// staged for deletion, and reports ok=false if id does not exist at all.
func (d *DeltaSnapshot) GetMutable(id ids.ServiceId) (acc *jamtypes.ServiceAccount, ok bool, err error) {
	if _, gone := d.deletions[id]; gone {
		return nil, false, ErrServiceGone
	}
	if staged, ok := d.modifications[id]; ok {
		return staged, true, nil
	}
	base, ok := d.base[id]
	if !ok {
		return nil, false, nil
	}
	cp := base.Clone()
	d.modifications[id] = cp
	d.gen++
	return cp, true, nil
}

// CreateService stages a new empty account under id. Fails with
// ErrAlreadyExists if id is present anywhere (base, modifications, or
// pending deletion — a deletion is a tombstone over base, not a green light
// to recreate within the same batch).
func (d *DeltaSnapshot) CreateService(id ids.ServiceId) (*jamtypes.ServiceAccount, error) {
	if _, gone := d.deletions[id]; gone {
		return nil, ErrAlreadyExists
	}
	if _, ok := d.modifications[id]; ok {
		return nil, ErrAlreadyExists
	}
	if _, ok := d.base[id]; ok {
		return nil, ErrAlreadyExists
	}
	acc := jamtypes.NewServiceAccount()
	d.modifications[id] = acc
	d.gen++
	return acc, nil
}

// RemoveService moves id into the deletions set, dropping any staged
// modification. The removal from base itself only happens at Commit
// (apply_deletions), matching spec.md §4.1's "removes from base lazily at
// commit".
func (d *DeltaSnapshot) RemoveService(id ids.ServiceId) {
	delete(d.modifications, id)
	d.deletions[id] = struct{}{}
	d.gen++
}

// ApplyModifications merges staged modifications into base (phase 1 of
// commit's two-phase realization of accounts' = (accounts ∪ modifications) \ deletions).
func (d *DeltaSnapshot) ApplyModifications() {
	for id, acc := range d.modifications {
		d.base[id] = acc
	}
	d.modifications = make(map[ids.ServiceId]*jamtypes.ServiceAccount)
}

// ApplyDeletions removes every staged deletion from base (phase 2).
func (d *DeltaSnapshot) ApplyDeletions() {
	for id := range d.deletions {
		delete(d.base, id)
	}
	d.deletions = make(map[ids.ServiceId]struct{})
}

// Commit realizes accounts' = (accounts ∪ modifications) \ deletions via the
// two-phase apply, matching spec.md §4.1 exactly: modifications first, then
// deletions, so that a create-then-delete within the same batch still
// results in the account being absent.
func (d *DeltaSnapshot) Commit() error {
	d.ApplyModifications()
	d.ApplyDeletions()
	return nil
}

// Modifications/Deletions are empty and disjoint after Commit (spec.md §8's
// invariant); exposed for the engine's result application and for tests.
func (d *DeltaSnapshot) PendingModifications() map[ids.ServiceId]*jamtypes.ServiceAccount {
	return d.modifications
}
func (d *DeltaSnapshot) PendingDeletions() map[ids.ServiceId]struct{} { return d.deletions }

// DeepClone produces an isolated DeltaSnapshot: base is a fresh deep copy of
// this snapshot's current effective account map (base ∪ modifications, less
// deletions), and it starts with no staged modifications/deletions of its
// own. This is what gives parallel service invocations their isolation
// guarantee (spec.md §5): no clone can observe another's writes.
func (d *DeltaSnapshot) DeepClone() *DeltaSnapshot {
	if cached, ok := d.cloneCache.Get(d.gen); ok {
		base := cached.(map[ids.ServiceId]*jamtypes.ServiceAccount)
		return NewDeltaSnapshot(cloneAccountMap(base))
	}
	merged := d.effectiveMap()
	d.cloneCache.Add(d.gen, merged)
	return NewDeltaSnapshot(cloneAccountMap(merged))
}

func (d *DeltaSnapshot) effectiveMap() map[ids.ServiceId]*jamtypes.ServiceAccount {
	out := make(map[ids.ServiceId]*jamtypes.ServiceAccount, len(d.base)+len(d.modifications))
	for id, acc := range d.base {
		if _, gone := d.deletions[id]; gone {
			continue
		}
		out[id] = acc
	}
	for id, acc := range d.modifications {
		out[id] = acc
	}
	return out
}

func cloneAccountMap(in map[ids.ServiceId]*jamtypes.ServiceAccount) map[ids.ServiceId]*jamtypes.ServiceAccount {
	out := make(map[ids.ServiceId]*jamtypes.ServiceAccount, len(in))
	for id, acc := range in {
		out[id] = acc.Clone()
	}
	return out
}
