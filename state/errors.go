package state

import "errors"

var (
	// ErrServiceGone is returned by DeltaSnapshot.GetMutable when the
	// requested service id is staged for deletion.
	ErrServiceGone = errors.New("state: service has been deleted in this context")

	// ErrAlreadyExists is returned by DeltaSnapshot.CreateService when the id
	// is already present, either committed or staged.
	ErrAlreadyExists = errors.New("state: service already exists")

	// ErrOutOfMemory is the sole failure mode of Commit (spec.md §4.1's
	// "failure semantics"): an engine fault that aborts the current batch.
	ErrOutOfMemory = errors.New("state: out of memory during commit")
)
