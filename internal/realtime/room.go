// Package realtime owns the single shared duplex connection to the backend
// and routes inbound status events to room-scoped subscribers.
package realtime

import (
	"fmt"
	"strings"
)

// RoomKind names the entity class a room tracks.
type RoomKind string

const (
	RoomChallenge RoomKind = "challenge"
	RoomSolution  RoomKind = "solution"
)

// Room identifies one server-side subscriber group: all listeners interested
// in a single entity's status updates.
type Room struct {
	Kind RoomKind
	ID   string
}

func ChallengeRoom(id string) Room { return Room{Kind: RoomChallenge, ID: id} }
func SolutionRoom(id string) Room  { return Room{Kind: RoomSolution, ID: id} }

// Key is the deterministic wire identifier, e.g. "challenge_17".
func (r Room) Key() string {
	return fmt.Sprintf("%s_%s", r.Kind, r.ID)
}

func (r Room) IsZero() bool {
	return r.Kind == "" && r.ID == ""
}

// ParseRoomKey inverts Key.
func ParseRoomKey(key string) (Room, error) {
	kind, id, ok := strings.Cut(key, "_")
	if !ok || id == "" {
		return Room{}, fmt.Errorf("malformed room key %q", key)
	}
	switch RoomKind(kind) {
	case RoomChallenge, RoomSolution:
		return Room{Kind: RoomKind(kind), ID: id}, nil
	default:
		return Room{}, fmt.Errorf("unknown room kind %q", kind)
	}
}
