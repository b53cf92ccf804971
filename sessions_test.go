package authcore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	ac "github.com/planfair/authcore"
	"github.com/planfair/authcore/stores/memory"
)

const testSessionDuration = 7 * 24 * time.Hour

func newTestSessions(t *testing.T) (*ac.SessionManager, *memory.Store) {
	t.Helper()
	store := memory.New()
	return ac.NewSessionManager(store, 32, testSessionDuration), store
}

func TestSessionCreateAndValidate(t *testing.T) {
	ctx := context.Background()
	sessions, _ := newTestSessions(t)

	session, err := sessions.Create(ctx, 1, 1)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(session.Token) != 32 {
		t.Errorf("token length = %d, want 32", len(session.Token))
	}
	if session.ExpiresAt == nil {
		t.Fatal("session has no expiry")
	}
	remaining := time.Until(*session.ExpiresAt)
	if remaining < testSessionDuration-time.Minute || remaining > testSessionDuration {
		t.Errorf("expiry %v away, want about %v", remaining, testSessionDuration)
	}

	got, err := sessions.Validate(ctx, sessions.IDTokenForCookie(session))
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if got == nil || got.ID != session.ID {
		t.Fatalf("Validate returned %+v, want session %d", got, session.ID)
	}
}

func TestSessionValidateRejects(t *testing.T) {
	ctx := context.Background()
	sessions, _ := newTestSessions(t)

	session, err := sessions.Create(ctx, 1, 1)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	tests := []struct {
		name    string
		idToken string
	}{
		{"empty", ""},
		{"no separator", "garbage"},
		{"missing token", "1:"},
		{"missing id", ":abcdef"},
		{"non-numeric id", "abc:def"},
		{"negative id", "-1:" + session.Token},
		{"unknown id", "99999:" + session.Token},
		{"wrong token", sessions.IDTokenForCookie(session) + "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sessions.Validate(ctx, tt.idToken)
			if err != nil {
				t.Fatalf("Validate errored: %v", err)
			}
			if got != nil {
				t.Errorf("Validate(%q) returned a session, want nil", tt.idToken)
			}
		})
	}
}

func TestSessionValidateExpired(t *testing.T) {
	ctx := context.Background()
	sessions, store := newTestSessions(t)

	session, err := sessions.Create(ctx, 1, 1)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	past := time.Now().Add(-time.Minute)
	if _, err := store.UpdateSession(ctx, session.ID, ac.SessionUpdate{ExpiresAt: &past}); err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}

	got, err := sessions.Validate(ctx, sessions.IDTokenForCookie(session))
	if err != nil {
		t.Fatalf("Validate errored: %v", err)
	}
	if got != nil {
		t.Error("expired session validated")
	}
}

// A session deep inside its lifetime must not be touched; one inside the
// final quarter must come back with a fresh full window.
func TestSessionRollingRenewal(t *testing.T) {
	ctx := context.Background()
	sessions, store := newTestSessions(t)

	session, err := sessions.Create(ctx, 1, 1)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	t.Run("ample life is a no-op", func(t *testing.T) {
		before := *session.ExpiresAt
		got, err := sessions.Validate(ctx, sessions.IDTokenForCookie(session))
		if err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		if !got.ExpiresAt.Equal(before) {
			t.Errorf("expiry moved from %v to %v with ample life left", before, got.ExpiresAt)
		}
	})

	t.Run("final quarter renews", func(t *testing.T) {
		nearExpiry := time.Now().Add(testSessionDuration / 8)
		if _, err := store.UpdateSession(ctx, session.ID, ac.SessionUpdate{ExpiresAt: &nearExpiry}); err != nil {
			t.Fatalf("UpdateSession failed: %v", err)
		}
		got, err := sessions.Validate(ctx, sessions.IDTokenForCookie(session))
		if err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		if got == nil || got.ExpiresAt == nil {
			t.Fatal("renewed session missing expiry")
		}
		remaining := time.Until(*got.ExpiresAt)
		if remaining < testSessionDuration-time.Minute {
			t.Errorf("renewal extended only to %v away, want about %v", remaining, testSessionDuration)
		}

		// validating again right away must not move the expiry further
		again, err := sessions.Validate(ctx, sessions.IDTokenForCookie(session))
		if err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		if again.ExpiresAt.Sub(*got.ExpiresAt) > time.Second {
			t.Errorf("back-to-back validation moved expiry from %v to %v", got.ExpiresAt, again.ExpiresAt)
		}
	})
}

func TestSessionDeleteRequiresMatchingToken(t *testing.T) {
	ctx := context.Background()
	sessions, _ := newTestSessions(t)

	session, err := sessions.Create(ctx, 1, 1)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// wrong token must leave the session alive
	if _, err := sessions.Delete(ctx, sessions.IDTokenForCookie(session)+"x"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got, _ := sessions.Validate(ctx, sessions.IDTokenForCookie(session)); got == nil {
		t.Fatal("session deleted despite token mismatch")
	}

	ok, err := sessions.Delete(ctx, sessions.IDTokenForCookie(session))
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !ok {
		t.Error("Delete returned false for a parsable token")
	}
	if got, _ := sessions.Validate(ctx, sessions.IDTokenForCookie(session)); got != nil {
		t.Error("session still validates after deletion")
	}
}

func TestSessionDeleteAllAndExpiredSweep(t *testing.T) {
	ctx := context.Background()
	sessions, store := newTestSessions(t)

	first, _ := sessions.Create(ctx, 1, 1)
	second, _ := sessions.Create(ctx, 1, 1)
	other, _ := sessions.Create(ctx, 2, 2)

	if err := sessions.DeleteAll(ctx, 1); err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}
	for _, id := range []int64{first.ID, second.ID} {
		if got, _ := sessions.Get(ctx, id); got != nil {
			t.Errorf("session %d survived DeleteAll", id)
		}
	}
	if got, _ := sessions.Get(ctx, other.ID); got == nil {
		t.Error("DeleteAll removed another user's session")
	}

	past := time.Now().Add(-time.Minute)
	if _, err := store.UpdateSession(ctx, other.ID, ac.SessionUpdate{ExpiresAt: &past}); err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}
	if err := sessions.DeleteExpired(ctx); err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if got, _ := sessions.Get(ctx, other.ID); got != nil {
		t.Error("expired session survived the sweep")
	}
}

func TestCreateUserWithEverythingRollsBack(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	users := ac.NewUserManager(store)
	sessions := ac.NewSessionManager(store, 32, testSessionDuration)

	body, err := sessions.CreateBody(0, 0)
	if err != nil {
		t.Fatalf("CreateBody failed: %v", err)
	}
	store.FailSessionCreate = errors.New("simulated insert failure")

	_, err = users.CreateWithEverything(ctx, ac.AnonKey{ID: "anon-1"}, body, nil)
	if err == nil {
		t.Fatal("composite create succeeded despite session insert failure")
	}

	// no orphan user or key may survive the rollback
	if user, _ := users.Get(ctx, 1); user != nil {
		t.Error("orphan user row left behind")
	}
	keys := ac.NewKeyManager(store)
	if key, _ := keys.FindByIdentification(ctx, ac.KeyKindAnon, "anon-1"); key != nil {
		t.Error("orphan key row left behind")
	}
}
