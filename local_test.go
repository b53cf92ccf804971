package authcore_test

import (
	"context"
	"testing"
	"time"

	ac "github.com/planfair/authcore"
	"github.com/planfair/authcore/stores/memory"
	"golang.org/x/crypto/bcrypt"
)

type testStack struct {
	store     *memory.Store
	users     *ac.UserManager
	keys      *ac.KeyManager
	sessions  *ac.SessionManager
	password  *ac.PasswordProvider
	anonymous *ac.AnonymousProvider
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	store := memory.New()
	users := ac.NewUserManager(store)
	keys := ac.NewKeyManager(store)
	sessions := ac.NewSessionManager(store, 32, 7*24*time.Hour)
	hasher := ac.NewPasswordHasher("test-pepper", bcrypt.MinCost)
	return &testStack{
		store:     store,
		users:     users,
		keys:      keys,
		sessions:  sessions,
		password:  ac.NewPasswordProvider(users, keys, sessions, hasher, 32),
		anonymous: ac.NewAnonymousProvider(users, sessions),
	}
}

func TestPasswordSignUpAndSignIn(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t)

	signedUp, err := s.password.SignUp(ctx, "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if signedUp.User == nil || signedUp.Key == nil || signedUp.Session == nil {
		t.Fatalf("SignUp returned incomplete result: %+v", signedUp)
	}
	if signedUp.User.Email == nil || *signedUp.User.Email != "alice@example.com" {
		t.Errorf("user email = %v, want alice@example.com", signedUp.User.Email)
	}
	if signedUp.Key.Kind != ac.KeyKindEmail {
		t.Errorf("key kind = %v, want email", signedUp.Key.Kind)
	}
	if signedUp.Key.Secret == nil || *signedUp.Key.Secret == "password123" {
		t.Error("password stored unhashed or not at all")
	}
	if signedUp.Session.UserID != signedUp.User.ID || signedUp.Session.KeyID != signedUp.Key.ID {
		t.Error("session does not reference the created user and key")
	}

	signedIn, err := s.password.SignIn(ctx, "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if signedIn == nil {
		t.Fatal("SignIn rejected valid credentials")
	}
	if signedIn.User.ID != signedUp.User.ID {
		t.Errorf("SignIn resolved user %d, want %d", signedIn.User.ID, signedUp.User.ID)
	}
	if signedIn.Session.ID == signedUp.Session.ID {
		t.Error("SignIn reused the sign-up session instead of issuing a fresh one")
	}
}

func TestPasswordSignInFailuresAreUniform(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t)

	if _, err := s.password.SignUp(ctx, "alice@example.com", "password123"); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "alice@example.com", "not-the-password"},
		{"unknown email", "nobody@example.com", "password123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.password.SignIn(ctx, tt.email, tt.password)
			if err != nil {
				t.Fatalf("SignIn errored: %v", err)
			}
			if got != nil {
				t.Error("SignIn accepted bad credentials")
			}
		})
	}
}

func TestIsEmailTaken(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t)

	taken, err := s.password.IsEmailTaken(ctx, "alice@example.com")
	if err != nil || taken {
		t.Fatalf("IsEmailTaken before sign-up = (%v, %v), want (false, nil)", taken, err)
	}
	if _, err := s.password.SignUp(ctx, "alice@example.com", "password123"); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	taken, err = s.password.IsEmailTaken(ctx, "alice@example.com")
	if err != nil || !taken {
		t.Fatalf("IsEmailTaken after sign-up = (%v, %v), want (true, nil)", taken, err)
	}
}

func TestAnonymousUpgradeKeepsUser(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t)

	anon, err := s.anonymous.SignUp(ctx)
	if err != nil {
		t.Fatalf("anonymous SignUp failed: %v", err)
	}
	if anon.User.Email != nil {
		t.Errorf("anonymous user has email %q", *anon.User.Email)
	}
	if anon.Key.Kind != ac.KeyKindAnon || anon.Key.Identification == "" {
		t.Errorf("anon key = %+v, want anon kind with random identification", anon.Key)
	}

	// upgrade with a password credential, then sign in with it
	if _, err := s.password.Attach(ctx, anon.User.ID, "bob@example.com", "password123"); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	signedIn, err := s.password.SignIn(ctx, "bob@example.com", "password123")
	if err != nil {
		t.Fatalf("SignIn after upgrade failed: %v", err)
	}
	if signedIn == nil {
		t.Fatal("SignIn rejected the attached credential")
	}
	if signedIn.User.ID != anon.User.ID {
		t.Errorf("upgrade changed user id from %d to %d", anon.User.ID, signedIn.User.ID)
	}
	// the null email is backfilled on first password sign-in
	if signedIn.User.Email == nil || *signedIn.User.Email != "bob@example.com" {
		t.Errorf("user email after upgrade = %v, want bob@example.com", signedIn.User.Email)
	}

	keys, err := s.keys.GetAll(ctx, anon.User.ID)
	if err != nil {
		t.Fatalf("GetAll keys failed: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("user has %d keys after upgrade, want 2 (anon + email)", len(keys))
	}
}

func TestPasswordResetTokenSingleUse(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t)

	if _, err := s.password.SignUp(ctx, "alice@example.com", "old-password"); err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}

	unknown, err := s.password.CreatePasswordResetToken(ctx, "nobody@example.com")
	if err != nil || unknown != nil {
		t.Fatalf("reset token for unknown email = (%v, %v), want (nil, nil)", unknown, err)
	}

	resetKey, err := s.password.CreatePasswordResetToken(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("CreatePasswordResetToken failed: %v", err)
	}
	if resetKey == nil || resetKey.Kind != ac.KeyKindResetPasswordToken {
		t.Fatalf("reset key = %+v, want a reset token key", resetKey)
	}

	session, err := s.password.ValidatePasswordResetToken(ctx, resetKey.Identification, "new-password")
	if err != nil {
		t.Fatalf("ValidatePasswordResetToken failed: %v", err)
	}
	if session == nil {
		t.Fatal("valid reset token rejected")
	}

	// the token is consumed: a second use must fail
	again, err := s.password.ValidatePasswordResetToken(ctx, resetKey.Identification, "another-password")
	if err != nil {
		t.Fatalf("second ValidatePasswordResetToken errored: %v", err)
	}
	if again != nil {
		t.Error("reset token accepted twice")
	}

	if got, _ := s.password.SignIn(ctx, "alice@example.com", "old-password"); got != nil {
		t.Error("old password still works after reset")
	}
	if got, _ := s.password.SignIn(ctx, "alice@example.com", "new-password"); got == nil {
		t.Error("new password does not work after reset")
	}
}

func TestPasswordResetInvalidatesSessions(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t)

	signedUp, err := s.password.SignUp(ctx, "alice@example.com", "old-password")
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	extra, err := s.password.SignIn(ctx, "alice@example.com", "old-password")
	if err != nil || extra == nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	resetKey, err := s.password.CreatePasswordResetToken(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("CreatePasswordResetToken failed: %v", err)
	}
	fresh, err := s.password.ValidatePasswordResetToken(ctx, resetKey.Identification, "new-password")
	if err != nil || fresh == nil {
		t.Fatalf("ValidatePasswordResetToken failed: (%v, %v)", fresh, err)
	}

	for _, old := range []*ac.Session{signedUp.Session, extra.Session} {
		if got, _ := s.sessions.Validate(ctx, s.sessions.IDTokenForCookie(old)); got != nil {
			t.Errorf("session %d survived the password reset", old.ID)
		}
	}
	if got, _ := s.sessions.Validate(ctx, s.sessions.IDTokenForCookie(fresh)); got == nil {
		t.Error("the fresh post-reset session does not validate")
	}
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	s := newTestStack(t)

	signedUp, err := s.password.SignUp(ctx, "alice@example.com", "old-password")
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}

	t.Run("wrong old password", func(t *testing.T) {
		got, err := s.password.ChangePassword(ctx, signedUp.User.ID, "not-it", "new-password")
		if err != nil {
			t.Fatalf("ChangePassword errored: %v", err)
		}
		if got != nil {
			t.Fatal("ChangePassword accepted a wrong old password")
		}
		if in, _ := s.password.SignIn(ctx, "alice@example.com", "old-password"); in == nil {
			t.Error("old password stopped working after a rejected change")
		}
	})

	t.Run("correct old password", func(t *testing.T) {
		fresh, err := s.password.ChangePassword(ctx, signedUp.User.ID, "old-password", "new-password")
		if err != nil {
			t.Fatalf("ChangePassword failed: %v", err)
		}
		if fresh == nil {
			t.Fatal("ChangePassword rejected the correct old password")
		}
		if got, _ := s.sessions.Validate(ctx, s.sessions.IDTokenForCookie(signedUp.Session)); got != nil {
			t.Error("pre-change session survived the password change")
		}
		if got, _ := s.sessions.Validate(ctx, s.sessions.IDTokenForCookie(fresh)); got == nil {
			t.Error("post-change session does not validate")
		}
		if in, _ := s.password.SignIn(ctx, "alice@example.com", "new-password"); in == nil {
			t.Error("new password does not work")
		}
	})
}
