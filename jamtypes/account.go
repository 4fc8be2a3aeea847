// Package jamtypes holds the accumulation engine's data model (spec.md §3):
// service accounts, privileges, validator keys, the authorizer queue, work
// reports/results, and the accumulation history ring.
package jamtypes

import (
	"github.com/jamaccumulate/accumulator/ids"
	"github.com/jamaccumulate/accumulator/params"
)

// Hash32 is a 32-byte protocol hash (code hashes, payload hashes, preimage
// hashes, accumulation outputs, work-package hashes).
type Hash32 [32]byte

// PreimageKey identifies one solicited preimage by its hash and declared size.
type PreimageKey struct {
	Hash Hash32
	Size uint64
}

// LookupStatus is the 0..3-length timeslot sequence tracking a preimage's
// request/availability/forgetting/re-solicitation history (spec.md §3):
//
//	len 0: [] requested
//	len 1: [t0] available since t0
//	len 2: [t0,t1] available t0..t1 then forgotten
//	len 3: [t0,t1,t2] re-solicited at t2 after the prior window
type LookupStatus []uint64

// Requested reports whether the preimage has been requested but never made
// available (the empty status).
func (s LookupStatus) Requested() bool { return len(s) == 0 }

// Available reports whether the status has length 1 (available since t0,
// never forgotten). A length-3 (re-solicited) status reports false.
func (s LookupStatus) Available() bool { return len(s) == 1 }

// Clone returns an independent copy of the status sequence.
func (s LookupStatus) Clone() LookupStatus {
	out := make(LookupStatus, len(s))
	copy(out, s)
	return out
}

// ServiceAccount is one service's full on-chain footprint (spec.md §3).
type ServiceAccount struct {
	CodeHash            Hash32
	Balance             uint64
	MinGasAccumulate    uint64
	MinGasOnTransfer    uint64
	StorageOffset       uint64
	CreationSlot        uint64
	LastAccumulationSlot uint64
	ParentService       ids.ServiceId
	FootprintItems      uint64
	FootprintBytes      uint64

	Storage        map[Hash32][]byte
	Preimages      map[Hash32][]byte
	PreimageLookup map[PreimageKey]LookupStatus
}

// NewServiceAccount returns a zero-value account with initialized maps.
func NewServiceAccount() *ServiceAccount {
	return &ServiceAccount{
		Storage:        make(map[Hash32][]byte),
		Preimages:      make(map[Hash32][]byte),
		PreimageLookup: make(map[PreimageKey]LookupStatus),
	}
}

// Clone deep-copies the account, including its maps, so a cloned
// AccumulationContext cannot observe another clone's mutations
// (spec.md §4.1's deep_clone requirement).
func (a *ServiceAccount) Clone() *ServiceAccount {
	if a == nil {
		return nil
	}
	out := *a
	out.Storage = make(map[Hash32][]byte, len(a.Storage))
	for k, v := range a.Storage {
		cp := make([]byte, len(v))
		copy(cp, v)
		out.Storage[k] = cp
	}
	out.Preimages = make(map[Hash32][]byte, len(a.Preimages))
	for k, v := range a.Preimages {
		cp := make([]byte, len(v))
		copy(cp, v)
		out.Preimages[k] = cp
	}
	out.PreimageLookup = make(map[PreimageKey]LookupStatus, len(a.PreimageLookup))
	for k, v := range a.PreimageLookup {
		out.PreimageLookup[k] = v.Clone()
	}
	return &out
}

// StorageThreshold returns a_t = MinBalancePerItem*items + MinBalancePerOctet*bytes,
// the minimum balance the account must hold given its current footprint
// (spec.md §3's invariant: balance >= a_t after every mutation).
func (a *ServiceAccount) StorageThreshold() uint64 {
	return params.MinBalancePerItem*a.FootprintItems + params.MinBalancePerOctet*a.FootprintBytes
}

// MeetsStorageThreshold reports whether the account's current balance
// satisfies its own storage-deposit invariant.
func (a *ServiceAccount) MeetsStorageThreshold() bool {
	return a.Balance >= a.StorageThreshold()
}
