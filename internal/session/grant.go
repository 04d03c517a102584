package session

import (
	"context"

	"dashboard-realtime/internal/bus"
)

// Establish is the grant-path counterpart of Guard.Revoke: it persists a
// freshly issued session as one unit, mirrors it into memory, and announces
// the change. Called by the login-completion flow.
func Establish(ctx context.Context, store Store, state *State, b *bus.Bus, sess Session) error {
	if sess.Token == "" {
		return ErrEmptyToken
	}
	sess.LoggedIn = true
	if err := store.Save(ctx, sess); err != nil {
		return err
	}
	if state != nil {
		state.Apply(sess)
	}
	if b != nil {
		b.Publish(bus.Event{Topic: bus.TopicSessionChanged, Reason: "granted"})
	}
	return nil
}
