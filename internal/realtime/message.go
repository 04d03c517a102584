package realtime

import (
	"encoding/json"
)

// EventName is a named event on the duplex channel.
type EventName string

const (
	// Outbound room management events.
	EventJoin          EventName = "join"
	EventJoinSolution  EventName = "join_solution"
	EventLeave         EventName = "leave"
	EventLeaveSolution EventName = "leave_solution"

	// Inbound status event. The server multiplexes many entities over this
	// one name; the payload's entity id decides which room it belongs to.
	EventSolutionStatusUpdated EventName = "solution_status_updated"
)

// Envelope is the wire frame: an event name plus its JSON payload.
type Envelope struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// roomPayload is the outbound join/leave payload. Challenge rooms go by
// roomId, solution rooms by bare solutionId.
type roomPayload struct {
	RoomID     string `json:"roomId,omitempty"`
	SolutionID string `json:"solutionId,omitempty"`
}

// StatusUpdate is the payload of a solution_status_updated event. Raw keeps
// the original bytes so callbacks see exactly what the server sent.
type StatusUpdate struct {
	SolutionID  string `json:"solutionId,omitempty"`
	ChallengeID string `json:"challengeId,omitempty"`
	Status      string `json:"status,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// Rooms lists the rooms this update addresses. Empty means the payload
// carries no recognizable entity id and must be dropped.
func (u StatusUpdate) Rooms() []Room {
	var rooms []Room
	if u.SolutionID != "" {
		rooms = append(rooms, SolutionRoom(u.SolutionID))
	}
	if u.ChallengeID != "" {
		rooms = append(rooms, ChallengeRoom(u.ChallengeID))
	}
	return rooms
}

func joinEnvelope(room Room) Envelope {
	return roomEnvelope(EventJoin, EventJoinSolution, room)
}

func leaveEnvelope(room Room) Envelope {
	return roomEnvelope(EventLeave, EventLeaveSolution, room)
}

func roomEnvelope(challengeEvent, solutionEvent EventName, room Room) Envelope {
	var payload roomPayload
	event := challengeEvent
	if room.Kind == RoomSolution {
		event = solutionEvent
		payload.SolutionID = room.ID
	} else {
		payload.RoomID = room.Key()
	}
	data, _ := json.Marshal(payload)
	return Envelope{Event: event, Data: data}
}
