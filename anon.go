package authcore

import (
	"context"

	"github.com/google/uuid"
)

// AnonymousProvider creates throwaway identities: a user with no profile
// data, an anon key with a fresh random identification and a session, all in
// one transaction. There is no sign-in counterpart; an anonymous identity is
// used until it is upgraded with a real credential.
type AnonymousProvider struct {
	users    *UserManager
	sessions *SessionManager
}

func NewAnonymousProvider(users *UserManager, sessions *SessionManager) *AnonymousProvider {
	return &AnonymousProvider{users: users, sessions: sessions}
}

func (p *AnonymousProvider) SignUp(ctx context.Context) (*Everything, error) {
	body, err := p.sessions.CreateBody(0, 0)
	if err != nil {
		return nil, err
	}
	return p.users.CreateWithEverything(ctx, AnonKey{ID: uuid.NewString()}, body, nil)
}
