package accctx

import (
	"testing"

	"github.com/jamaccumulate/accumulator/ids"
	"github.com/jamaccumulate/accumulator/jamtypes"
)

func newTestContext(t *testing.T) *AccumulationContext {
	t.Helper()
	priv := jamtypes.NewPrivileges(2)
	priv.Designate = 10
	priv.Assign = []ids.ServiceId{20, 21}

	accounts := map[ids.ServiceId]*jamtypes.ServiceAccount{
		10: jamtypes.NewServiceAccount(),
		20: jamtypes.NewServiceAccount(),
		99: jamtypes.NewServiceAccount(),
	}
	keys := make(jamtypes.ValidatorKeys, 3)
	queue := jamtypes.NewAuthorizerQueue(2, 4)

	return New(keys, queue, priv, accounts, 1, jamtypes.Hash32{})
}

func TestCommitForServiceOnlyCommitsOwnedDimensions(t *testing.T) {
	ctx := newTestContext(t)

	// Service 99 is neither the designator nor an assigner: its edits to
	// validator_keys/authorizer_queue must not land.
	(*ctx.ValidatorKeys.GetMutable())[0][0] = 0xFF
	row := ctx.AuthorizerQueue.GetMutable()
	(*row)[0][0][0] = 0xFF

	if err := ctx.CommitForService(99); err != nil {
		t.Fatalf("CommitForService: %v", err)
	}

	if ctx.ValidatorKeys.GetReadOnly()[0][0] == 0xFF {
		t.Fatalf("validator_keys should not commit for a non-designator service")
	}
	if ctx.AuthorizerQueue.GetReadOnly()[0][0][0] == 0xFF {
		t.Fatalf("authorizer_queue should not commit for a non-assigner service")
	}
}

func TestCommitForServiceDesignatorCommitsValidatorKeys(t *testing.T) {
	ctx := newTestContext(t)
	(*ctx.ValidatorKeys.GetMutable())[0][0] = 0xAB

	if err := ctx.CommitForService(10); err != nil {
		t.Fatalf("CommitForService: %v", err)
	}
	if ctx.ValidatorKeys.GetReadOnly()[0][0] != 0xAB {
		t.Fatalf("validator_keys should commit for the original designator")
	}
}

func TestCommitForServiceAssignerCommitsAuthorizerQueue(t *testing.T) {
	ctx := newTestContext(t)
	row := ctx.AuthorizerQueue.GetMutable()
	(*row)[0][0][0] = 0xCD

	if err := ctx.CommitForService(20); err != nil {
		t.Fatalf("CommitForService: %v", err)
	}
	if ctx.AuthorizerQueue.GetReadOnly()[0][0][0] != 0xCD {
		t.Fatalf("authorizer_queue should commit for core 0's original assigner")
	}
}

func TestCommitForServiceNeverCommitsPrivileges(t *testing.T) {
	ctx := newTestContext(t)
	(*ctx.Privileges.GetMutable()).Manager = 42

	if err := ctx.CommitForService(10); err != nil {
		t.Fatalf("CommitForService: %v", err)
	}
	if ctx.Privileges.GetReadOnly().Manager == 42 {
		t.Fatalf("privileges must never commit via CommitForService")
	}
}

func TestDeepCloneIsolatesServiceAccounts(t *testing.T) {
	ctx := newTestContext(t)
	clone := ctx.DeepClone()

	acc, _, err := clone.ServiceAccounts.GetMutable(10)
	if err != nil {
		t.Fatalf("GetMutable: %v", err)
	}
	acc.Balance = 555
	clone.ServiceAccounts.Commit()

	original, _ := ctx.ServiceAccounts.GetReadOnly(10)
	if original.Balance == 555 {
		t.Fatalf("clone mutation leaked into original context")
	}
}
