// Package state implements the copy-on-write snapshot fabric of spec.md
// §4.1: a CoW handle per mutable state dimension (validator keys,
// authorizer queue, privileges), plus DeltaSnapshot for the service-account
// map, which is large enough that a full clone on every batch would be
// wasteful (spec.md §9's design note prefers base+modifications+deletions
// deltas over a full persistent-map clone).
//
// The discipline mirrors the teacher repository's
// consensus/dpos/snapshot.go: a cached value is never mutated in place;
// every mutating path first produces an owned copy ("snap := s.copy()")
// before touching it, because the unmutated base may be shared (there, via
// an LRU cache across goroutines; here, across independently cloned
// AccumulationContexts used by concurrent service invocations).
package state

// Cow is a copy-on-write handle over one mutable state dimension of type T.
// It either borrows base read-only, or — after the first GetMutable —
// exclusively owns a staged copy that Commit later promotes into base.
type Cow[T any] struct {
	base   T
	staged *T
	clone  func(T) T
}

// NewCow wraps an initial value. clone must return an independent deep copy
// of its argument; it is called by GetMutable (to stage a copy) and by
// DeepClone (to produce an isolated handle for a parallel task).
func NewCow[T any](base T, clone func(T) T) *Cow[T] {
	return &Cow[T]{base: base, clone: clone}
}

// GetReadOnly returns the current effective value: staged if present, else
// base. The caller must not mutate the returned value in place; use
// GetMutable for that.
func (c *Cow[T]) GetReadOnly() T {
	if c.staged != nil {
		return *c.staged
	}
	return c.base
}

// GetMutable returns a mutable reference to the staged copy, cloning base
// into it on first call. Idempotent thereafter: subsequent calls return the
// same staged copy.
func (c *Cow[T]) GetMutable() *T {
	if c.staged == nil {
		cp := c.clone(c.base)
		c.staged = &cp
	}
	return c.staged
}

// Commit promotes a staged value into base and clears the staged slot. A
// handle with no staged value is a no-op, matching spec.md §4.1's framing of
// commit as total except for the OutOfMemory failure mode (which this
// in-memory implementation never actually hits — the error exists in the
// package's vocabulary per spec.md §7 so callers have somewhere to route a
// real allocator failure on constrained deployments).
func (c *Cow[T]) Commit() error {
	if c.staged != nil {
		c.base = *c.staged
		c.staged = nil
	}
	return nil
}

// Deinit releases the staged copy without committing it, discarding any
// pending mutations.
func (c *Cow[T]) Deinit() {
	c.staged = nil
}

// DeepClone returns a new handle whose base is an independent deep copy of
// this handle's current effective value (staged if present, else base),
// with no staged copy of its own. Used when forking an AccumulationContext
// for a parallel service invocation (spec.md §4.5): the clone's mutations
// can never be observed by the original or by any sibling clone.
func (c *Cow[T]) DeepClone() *Cow[T] {
	return &Cow[T]{base: c.clone(c.GetReadOnly()), clone: c.clone}
}

// IsStaged reports whether GetMutable has been called since the last Commit
// or Deinit.
func (c *Cow[T]) IsStaged() bool {
	return c.staged != nil
}
