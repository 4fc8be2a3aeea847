package jamtypes

import (
	"testing"

	"github.com/jamaccumulate/accumulator/ids"
	"github.com/jamaccumulate/accumulator/params"
)

func TestNextServiceIDStaysInPublicRange(t *testing.T) {
	id := ids.ServiceId(params.MinPublicServiceID)
	for i := 0; i < 1000; i++ {
		id = NextServiceID(id)
		if uint32(id) < params.MinPublicServiceID {
			t.Fatalf("NextServiceID produced reserved id %d at iteration %d", id, i)
		}
	}
}

func TestNextServiceIDWrapsAroundSpan(t *testing.T) {
	near := ids.ServiceId(^uint32(0) - params.NewServiceIDStep/2)
	next := NextServiceID(near)
	if uint32(next) < params.MinPublicServiceID {
		t.Fatalf("wrapped id %d fell below MinPublicServiceID", next)
	}
}
