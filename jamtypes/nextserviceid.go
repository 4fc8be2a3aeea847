package jamtypes

import (
	"github.com/jamaccumulate/accumulator/ids"
	"github.com/jamaccumulate/accumulator/params"
)

// NextServiceID advances the running auto-assigned service id used by the
// `new` host call's non-reserved path (spec.md §4.3). See DESIGN.md's "Open
// Question decisions" for why the step constant is a documented placeholder
// rather than a value recovered from an original implementation.
func NextServiceID(prev ids.ServiceId) ids.ServiceId {
	const rangeEnd = uint64(1) << 32
	span := rangeEnd - uint64(params.MinPublicServiceID)
	offset := (uint64(prev) - uint64(params.MinPublicServiceID) + uint64(params.NewServiceIDStep)) % span
	return ids.ServiceId(uint64(params.MinPublicServiceID) + offset)
}
