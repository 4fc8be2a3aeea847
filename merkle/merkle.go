// Package merkle computes the accumulate-root commitment of spec.md §4.6: a
// binary Merkle root (Keccak-256) over service_id-then-output-sorted
// {service_id, output} blobs.
package merkle

import (
	"bytes"
	"sort"

	"golang.org/x/crypto/sha3"

	"github.com/jamaccumulate/accumulator/ids"
	"github.com/jamaccumulate/accumulator/jamtypes"
)

// Leaf is one committed {service_id, output} pair.
type Leaf struct {
	ServiceID ids.ServiceId
	Output    jamtypes.Hash32
}

// Root computes the binary Merkle root over leaves, sorted ascending by
// (service_id, then output) and encoded as LE32(service_id) ‖ output before
// hashing (spec.md §4.6). An empty leaf set roots to the Keccak-256 hash of
// the empty byte string, which is not the all-zero hash.
func Root(leaves []Leaf) jamtypes.Hash32 {
	sorted := make([]Leaf, len(leaves))
	copy(sorted, leaves)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].ServiceID != sorted[j].ServiceID {
			return sorted[i].ServiceID < sorted[j].ServiceID
		}
		return bytes.Compare(sorted[i].Output[:], sorted[j].Output[:]) < 0
	})

	blobs := make([][]byte, len(sorted))
	for i, leaf := range sorted {
		blob := make([]byte, 0, 36)
		blob = append(blob, jamtypes.LE32(leaf.ServiceID)...)
		blob = append(blob, leaf.Output[:]...)
		blobs[i] = blob
	}
	return binaryRoot(blobs)
}

func binaryRoot(level [][]byte) jamtypes.Hash32 {
	if len(level) == 0 {
		return keccak256(nil)
	}
	hashes := make([]jamtypes.Hash32, len(level))
	for i, blob := range level {
		hashes[i] = keccak256(blob)
	}
	for len(hashes) > 1 {
		next := make([]jamtypes.Hash32, 0, (len(hashes)+1)/2)
		for i := 0; i < len(hashes); i += 2 {
			if i+1 < len(hashes) {
				next = append(next, keccak256(concat(hashes[i], hashes[i+1])))
			} else {
				// Odd node carries up unchanged, matching the standard
				// binary-tree convention for an unpaired final leaf.
				next = append(next, hashes[i])
			}
		}
		hashes = next
	}
	return hashes[0]
}

func concat(a, b jamtypes.Hash32) []byte {
	out := make([]byte, 0, 64)
	out = append(out, a[:]...)
	out = append(out, b[:]...)
	return out
}

func keccak256(data []byte) jamtypes.Hash32 {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	var out jamtypes.Hash32
	copy(out[:], h.Sum(nil))
	return out
}
