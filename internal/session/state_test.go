package session

import (
	"testing"
)

func TestStateApplyAndReset(t *testing.T) {
	state := NewState()

	sess := sampleSession()
	sess.LoggedIn = true
	state.Apply(sess)

	if !state.LoggedIn() || state.Role() != "founder" {
		t.Errorf("apply did not take: loggedIn=%v role=%q", state.LoggedIn(), state.Role())
	}
	if state.User().Email != "ada@example.com" {
		t.Errorf("user not mirrored: %+v", state.User())
	}

	state.Reset()

	snap := state.Snapshot()
	if snap.LoggedIn || snap.Role != "" || snap.User != (User{}) ||
		snap.HasSubscription || len(snap.AppliedPrograms) != 0 ||
		snap.AuthProvider != "" || snap.FounderRole != "" {
		t.Errorf("reset left residue: %+v", snap)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	state := NewState()
	sess := sampleSession()
	state.Apply(sess)

	snap := state.Snapshot()
	snap.AppliedPrograms["new"] = "value"

	if _, ok := state.Snapshot().AppliedPrograms["new"]; ok {
		t.Error("mutating a snapshot leaked into state")
	}
}
