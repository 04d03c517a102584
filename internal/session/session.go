// Package session holds the persisted credential/session consistency unit,
// its store backends, the in-memory auth state, and the guard that validates
// the credential against the remote API once per app mount.
package session

import (
	"encoding/json"
	"fmt"
)

// Persisted key names. Every backend uses the same set, and the whole set is
// always written or cleared together.
const (
	KeyToken           = "token"
	KeyIsLoggedIn      = "isLoggedIn"
	KeyUserRole        = "userRole"
	KeyUser            = "user"
	KeyHasSubscription = "hasSubscription"
	KeyAppliedPrograms = "appliedPrograms"
	KeyAuthProvider    = "authProvider"
	KeyFounderRole     = "founder_role"
)

// Keys returns the full persisted key set in a stable order.
func Keys() []string {
	return []string{
		KeyToken,
		KeyIsLoggedIn,
		KeyUserRole,
		KeyUser,
		KeyHasSubscription,
		KeyAppliedPrograms,
		KeyAuthProvider,
		KeyFounderRole,
	}
}

// User is the cached profile subset stored under KeyUser.
type User struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Session is the full consistency unit: the bearer token plus every dependent
// cached field. If Token is empty, every other field must be at its zero
// value; partial sessions are never written.
type Session struct {
	Token           string
	LoggedIn        bool
	Role            string
	User            User
	HasSubscription bool
	AppliedPrograms map[string]string
	AuthProvider    string
	FounderRole     string
}

// encodeSession flattens a session into the persisted key/value form.
func encodeSession(s Session) (map[string]string, error) {
	userJSON, err := json.Marshal(s.User)
	if err != nil {
		return nil, fmt.Errorf("encode user: %w", err)
	}
	programs := s.AppliedPrograms
	if programs == nil {
		programs = map[string]string{}
	}
	programsJSON, err := json.Marshal(programs)
	if err != nil {
		return nil, fmt.Errorf("encode applied programs: %w", err)
	}
	return map[string]string{
		KeyToken:           s.Token,
		KeyIsLoggedIn:      formatBool(s.LoggedIn),
		KeyUserRole:        s.Role,
		KeyUser:            string(userJSON),
		KeyHasSubscription: formatBool(s.HasSubscription),
		KeyAppliedPrograms: string(programsJSON),
		KeyAuthProvider:    s.AuthProvider,
		KeyFounderRole:     s.FounderRole,
	}, nil
}

// decodeSession rebuilds a session from the persisted key/value form.
// Unparseable cached fields degrade to their zero values rather than failing
// the load; the token is the only field that gates anything.
func decodeSession(values map[string]string) Session {
	s := Session{
		Token:           values[KeyToken],
		LoggedIn:        values[KeyIsLoggedIn] == "true",
		Role:            values[KeyUserRole],
		HasSubscription: values[KeyHasSubscription] == "true",
		AuthProvider:    values[KeyAuthProvider],
		FounderRole:     values[KeyFounderRole],
	}
	if raw := values[KeyUser]; raw != "" {
		var u User
		if err := json.Unmarshal([]byte(raw), &u); err == nil {
			s.User = u
		}
	}
	if raw := values[KeyAppliedPrograms]; raw != "" {
		var programs map[string]string
		if err := json.Unmarshal([]byte(raw), &programs); err == nil {
			s.AppliedPrograms = programs
		}
	}
	return s
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
