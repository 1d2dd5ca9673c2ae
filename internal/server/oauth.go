package server

import (
	"github.com/desertthunder/g2commons/internal/shared"
	"golang.org/x/oauth2"
)

const (
	googleAuthURL  = "https://accounts.google.com/o/oauth2/auth"
	googleTokenURL = "https://oauth2.googleapis.com/token"

	// MediaWiki OAuth extension REST endpoints on Commons.
	wikiAuthURL  = "https://commons.wikimedia.org/w/rest.php/oauth2/authorize"
	wikiTokenURL = "https://commons.wikimedia.org/w/rest.php/oauth2/access_token"
)

// googleScopes limits the grant to read-only Drive metadata and content.
var googleScopes = []string{
	"https://www.googleapis.com/auth/drive.readonly",
}

// GoogleOAuthConfig builds the authorization-code flow config for Google.
func GoogleOAuthConfig(c shared.GoogleConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURI,
		Scopes:       googleScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  googleAuthURL,
			TokenURL: googleTokenURL,
		},
	}
}

// WikiOAuthConfig builds the authorization-code flow config for the Wikimedia
// OAuth extension. Scopes are fixed by the registered consumer, so none are
// requested here.
func WikiOAuthConfig(c shared.WikimediaConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:  wikiAuthURL,
			TokenURL: wikiTokenURL,
		},
	}
}
