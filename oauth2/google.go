package oauth2

import (
	"encoding/json"
	"fmt"

	xoauth2 "golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/planfair/authcore"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo?alt=json"

// googleUser is the slice of Google's userinfo payload we consume.
type googleUser struct {
	Sub        string `json:"sub"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

// NewGoogle builds a Google sign-in provider using the standard Google
// OAuth2 endpoint and userinfo API.
func NewGoogle(users *authcore.UserManager, keys *authcore.KeyManager, sessions *authcore.SessionManager, clientID, clientSecret, redirectURL string) *Provider {
	return &Provider{
		name: "google",
		config: xoauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"email", "profile"},
			Endpoint:     google.Endpoint,
		},
		UserInfoURL:  googleUserInfoURL,
		parseProfile: parseGoogleProfile,
		keyFor: func(subject string) authcore.KeySpec {
			return authcore.GoogleKey{Subject: subject}
		},
		users:    users,
		keys:     keys,
		sessions: sessions,
	}
}

func parseGoogleProfile(data []byte) (Profile, error) {
	var u googleUser
	if err := json.Unmarshal(data, &u); err != nil {
		return Profile{}, fmt.Errorf("google profile decode failed: %w", err)
	}
	return Profile{
		Subject:   u.Sub,
		Email:     u.Email,
		FirstName: u.GivenName,
		LastName:  u.FamilyName,
		PhotoURL:  u.Picture,
	}, nil
}
