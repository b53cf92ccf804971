package oauth2

import (
	"encoding/json"
	"fmt"

	xoauth2 "golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"

	"github.com/planfair/authcore"
)

// Facebook's Graph API only returns the fields you ask for.
const facebookUserInfoURL = "https://graph.facebook.com/me?fields=id,name,first_name,last_name,picture,email"

type facebookUser struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Picture   struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

// NewFacebook builds a Facebook login provider using the Graph API oauth
// endpoint. clientID/clientSecret are the Facebook app id and app secret.
func NewFacebook(users *authcore.UserManager, keys *authcore.KeyManager, sessions *authcore.SessionManager, clientID, clientSecret, redirectURL string) *Provider {
	return &Provider{
		name: "facebook",
		config: xoauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     facebook.Endpoint,
		},
		UserInfoURL:  facebookUserInfoURL,
		parseProfile: parseFacebookProfile,
		keyFor: func(subject string) authcore.KeySpec {
			return authcore.FacebookKey{Subject: subject}
		},
		users:    users,
		keys:     keys,
		sessions: sessions,
	}
}

func parseFacebookProfile(data []byte) (Profile, error) {
	var u facebookUser
	if err := json.Unmarshal(data, &u); err != nil {
		return Profile{}, fmt.Errorf("facebook profile decode failed: %w", err)
	}
	return Profile{
		Subject:   u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		PhotoURL:  u.Picture.Data.URL,
	}, nil
}
