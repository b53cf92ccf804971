// Package oauth2 implements the federated login providers. Each provider
// runs the OAuth2 authorization-code flow against its vendor and maps the
// vendor profile onto a user, a linked-identity key and a session.
package oauth2

import (
	"context"
	"fmt"
	"io"
	"net/http"

	xoauth2 "golang.org/x/oauth2"

	"github.com/planfair/authcore"
)

const stateLength = 32

// Profile is the vendor-agnostic slice of an OAuth user profile this module
// cares about. Subject is the vendor's stable unique id and is the only
// required field.
type Profile struct {
	Subject   string
	Email     string
	FirstName string
	LastName  string
	PhotoURL  string
}

// Provider holds the flow mechanics shared by every vendor. Vendors differ
// only in their oauth2 endpoint, their profile endpoint and how the profile
// payload is parsed.
type Provider struct {
	name   string
	config xoauth2.Config

	// UserInfoURL is the vendor's profile endpoint. Exposed so tests can
	// point it at a mock server.
	UserInfoURL  string
	parseProfile func(data []byte) (Profile, error)
	keyFor       func(subject string) authcore.KeySpec

	users    *authcore.UserManager
	keys     *authcore.KeyManager
	sessions *authcore.SessionManager
}

// Name returns the provider's short name ("google", "facebook").
func (p *Provider) Name() string { return p.name }

// StateCookieName returns the name of the per-provider anti-CSRF state
// cookie the HTTP boundary should use.
func (p *Provider) StateCookieName() string { return p.name + "_auth_state" }

// SetEndpoint overrides the vendor token/auth endpoint. Test hook.
func (p *Provider) SetEndpoint(endpoint xoauth2.Endpoint) { p.config.Endpoint = endpoint }

// RedirectURL generates a fresh anti-CSRF state and returns the vendor's
// authorization URL carrying it. The caller must stash the state in a
// short-lived httpOnly cookie and present it again on the callback.
func (p *Provider) RedirectURL() (url, state string, err error) {
	state, err = authcore.RandomHex(stateLength)
	if err != nil {
		return "", "", err
	}
	return p.config.AuthCodeURL(state), state, nil
}

// Validate completes the authorization-code flow. State handling is strict:
// a missing or mismatched state, or a missing code, is a hard error and
// never a silent failure, since it may indicate a forged callback.
//
// A subject that already has a key is a returning user: a new session is
// created and any profile fields still unset on the user are backfilled from
// the vendor. An unknown subject is a new user: user, key and session are
// created in one storage transaction.
func (p *Provider) Validate(ctx context.Context, code, state, storedState string) (*authcore.Everything, error) {
	if state == "" || storedState == "" || state != storedState {
		return nil, authcore.ErrOAuthStateMismatch
	}
	if code == "" {
		return nil, authcore.ErrOAuthMissingCode
	}

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s code exchange failed: %w", p.name, err)
	}
	if token.AccessToken == "" {
		return nil, authcore.ErrOAuthNoToken
	}

	profile, err := p.fetchProfile(ctx, token)
	if err != nil {
		return nil, err
	}
	if profile.Subject == "" {
		return nil, authcore.ErrOAuthNoSubject
	}

	spec := p.keyFor(profile.Subject)
	existingKey, err := p.keys.FindByIdentification(ctx, spec.Kind(), spec.Identification())
	if err != nil {
		return nil, err
	}
	if existingKey != nil {
		return p.signInExisting(ctx, existingKey, profile)
	}
	return p.signUpNew(ctx, spec, profile)
}

func (p *Provider) fetchProfile(ctx context.Context, token *xoauth2.Token) (Profile, error) {
	client := p.config.Client(ctx, token)
	resp, err := client.Get(p.UserInfoURL)
	if err != nil {
		return Profile{}, fmt.Errorf("%s profile fetch failed: %w", p.name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("%s profile fetch returned %d", p.name, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Profile{}, fmt.Errorf("%s profile read failed: %w", p.name, err)
	}
	return p.parseProfile(data)
}

func (p *Provider) signInExisting(ctx context.Context, key *authcore.Key, profile Profile) (*authcore.Everything, error) {
	user, err := p.users.Get(ctx, key.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%s key %d references missing user %d", p.name, key.ID, key.UserID)
	}
	session, err := p.sessions.Create(ctx, key.UserID, key.ID)
	if err != nil {
		return nil, err
	}

	// Backfill profile fields the vendor knows but the user row does not,
	// issuing a single update and only when something actually changed.
	update := backfill(user, profile)
	if !update.IsEmpty() {
		updated, err := p.users.Update(ctx, user.ID, update)
		if err != nil {
			return nil, err
		}
		if updated != nil {
			user = updated
		}
	}
	return &authcore.Everything{User: user, Key: key, Session: session}, nil
}

func (p *Provider) signUpNew(ctx context.Context, spec authcore.KeySpec, profile Profile) (*authcore.Everything, error) {
	body, err := p.sessions.CreateBody(0, 0)
	if err != nil {
		return nil, err
	}
	return p.users.CreateWithEverything(ctx, spec, body, profileAsUser(profile))
}

func backfill(user *authcore.User, profile Profile) authcore.UserProfile {
	var update authcore.UserProfile
	if user.Email == nil && profile.Email != "" {
		update.Email = &profile.Email
	}
	if user.FirstName == nil && profile.FirstName != "" {
		update.FirstName = &profile.FirstName
	}
	if user.LastName == nil && profile.LastName != "" {
		update.LastName = &profile.LastName
	}
	if user.PhotoURL == nil && profile.PhotoURL != "" {
		update.PhotoURL = &profile.PhotoURL
	}
	return update
}

func profileAsUser(profile Profile) *authcore.UserProfile {
	var p authcore.UserProfile
	if profile.Email != "" {
		p.Email = &profile.Email
	}
	if profile.FirstName != "" {
		p.FirstName = &profile.FirstName
	}
	if profile.LastName != "" {
		p.LastName = &profile.LastName
	}
	if profile.PhotoURL != "" {
		p.PhotoURL = &profile.PhotoURL
	}
	return &p
}
