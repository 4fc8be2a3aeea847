package jamtypes

import (
	"encoding/binary"

	"github.com/jamaccumulate/accumulator/ids"
)

// EncodeServiceID32 returns E32(id): the 32-byte little-endian-padded
// encoding of a service id, used by the `eject` host call to check that a
// target's code hash identifies its own (would-be) ejector (spec.md §4.3).
func EncodeServiceID32(id ids.ServiceId) Hash32 {
	var out Hash32
	binary.LittleEndian.PutUint32(out[:4], uint32(id))
	return out
}

// LE32 encodes id as 4 little-endian bytes, used by the accumulate-root
// commitment blob layout (spec.md §6).
func LE32(id ids.ServiceId) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, uint32(id))
	return out
}

// LE64 encodes a gas/amount value as 8 little-endian bytes, used by the
// host calls' info, fetch and transfer-operand encodings.
func LE64(v uint64) []byte {
	out := make([]byte, 8)
	binary.LittleEndian.PutUint64(out, v)
	return out
}
