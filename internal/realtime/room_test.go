package realtime

import (
	"testing"
)

func TestRoomKeyIsDeterministic(t *testing.T) {
	tests := []struct {
		room Room
		want string
	}{
		{ChallengeRoom("17"), "challenge_17"},
		{SolutionRoom("42"), "solution_42"},
		{ChallengeRoom("abc-def"), "challenge_abc-def"},
	}
	for _, tt := range tests {
		if got := tt.room.Key(); got != tt.want {
			t.Errorf("Key(%+v) = %q, want %q", tt.room, got, tt.want)
		}
		if tt.room.Key() != tt.room.Key() {
			t.Errorf("Key(%+v) is not stable", tt.room)
		}
	}
}

func TestParseRoomKey(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		for _, room := range []Room{ChallengeRoom("17"), SolutionRoom("42")} {
			parsed, err := ParseRoomKey(room.Key())
			if err != nil {
				t.Fatalf("parse %q: %v", room.Key(), err)
			}
			if parsed != room {
				t.Errorf("round trip %q: got %+v", room.Key(), parsed)
			}
		}
	})

	t.Run("Malformed", func(t *testing.T) {
		for _, key := range []string{"", "challenge", "challenge_", "room_17", "17"} {
			if _, err := ParseRoomKey(key); err == nil {
				t.Errorf("expected error for %q", key)
			}
		}
	})
}

func TestStatusUpdateRooms(t *testing.T) {
	tests := []struct {
		name string
		upd  StatusUpdate
		want []string
	}{
		{"SolutionOnly", StatusUpdate{SolutionID: "42"}, []string{"solution_42"}},
		{"ChallengeOnly", StatusUpdate{ChallengeID: "7"}, []string{"challenge_7"}},
		{"Both", StatusUpdate{SolutionID: "42", ChallengeID: "7"}, []string{"solution_42", "challenge_7"}},
		{"Neither", StatusUpdate{Status: "Valid"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rooms := tt.upd.Rooms()
			if len(rooms) != len(tt.want) {
				t.Fatalf("got %d rooms, want %d", len(rooms), len(tt.want))
			}
			for i, room := range rooms {
				if room.Key() != tt.want[i] {
					t.Errorf("room[%d] = %q, want %q", i, room.Key(), tt.want[i])
				}
			}
		})
	}
}
