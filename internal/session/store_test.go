package session

import (
	"context"
	"errors"
	"testing"
)

func sampleSession() Session {
	return Session{
		Token:           "tok-123",
		Role:            "founder",
		User:            User{Name: "Ada", Email: "ada@example.com"},
		HasSubscription: true,
		AppliedPrograms: map[string]string{"accelerator": "applied"},
		AuthProvider:    "google",
		FounderRole:     "ceo",
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	in := sampleSession()
	in.LoggedIn = true
	if err := store.Save(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out.Token != in.Token || out.Role != in.Role || out.User != in.User {
		t.Errorf("loaded session differs: %+v", out)
	}
	if !out.LoggedIn || !out.HasSubscription {
		t.Errorf("flags lost: %+v", out)
	}
	if out.AppliedPrograms["accelerator"] != "applied" {
		t.Errorf("applied programs lost: %+v", out.AppliedPrograms)
	}

	token, err := store.Token(ctx)
	if err != nil || token != "tok-123" {
		t.Errorf("Token() = %q, %v", token, err)
	}
}

func TestMemoryStoreRejectsEmptyToken(t *testing.T) {
	store := NewMemoryStore()
	err := store.Save(context.Background(), Session{Role: "user"})
	if !errors.Is(err, ErrEmptyToken) {
		t.Errorf("expected ErrEmptyToken, got %v", err)
	}
}

func TestMemoryStoreClearRemovesEverything(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Save(ctx, sampleSession()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	// The whole key set goes at once: no token, no session, no residue.
	if _, err := store.Load(ctx); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession after clear, got %v", err)
	}
	if token, _ := store.Token(ctx); token != "" {
		t.Errorf("token survived clear: %q", token)
	}

	// Clearing an empty store stays a no-op.
	if err := store.Clear(ctx); err != nil {
		t.Errorf("second clear: %v", err)
	}
}

func TestDecodeSessionDegradesCorruptFields(t *testing.T) {
	values := map[string]string{
		KeyToken:           "tok",
		KeyIsLoggedIn:      "true",
		KeyUser:            "{not json",
		KeyAppliedPrograms: "also not json",
	}
	s := decodeSession(values)
	if s.Token != "tok" || !s.LoggedIn {
		t.Errorf("core fields lost: %+v", s)
	}
	if s.User != (User{}) {
		t.Errorf("corrupt user should decode to zero value, got %+v", s.User)
	}
	if s.AppliedPrograms != nil {
		t.Errorf("corrupt programs should decode to nil, got %+v", s.AppliedPrograms)
	}
}
