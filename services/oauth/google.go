package oauthsvc

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/edutech/backend/core"
	"github.com/edutech/backend/core/user"
)

const (
	providerGoogle    = "google"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// GoogleService drives the authorization-code flow against Google and
// resolves the resulting token to an identity.
type GoogleService struct {
	conf *oauth2.Config
}

func NewGoogleService(conf *core.Config) *GoogleService {
	return &GoogleService{
		conf: &oauth2.Config{
			ClientID:     conf.Google.ClientID,
			ClientSecret: conf.Google.ClientSecret,
			RedirectURL:  conf.Google.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

// AuthURL returns the Google consent page URL for the given anti-forgery state.
func (svc *GoogleService) AuthURL(state string) string {
	return svc.conf.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

type googleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Exchange trades an authorization code for a token and fetches the
// account's profile.
func (svc *GoogleService) Exchange(ctx context.Context, code string) (user.OAuthUserInfo, error) {
	token, err := svc.conf.Exchange(ctx, code)
	if err != nil {
		return user.OAuthUserInfo{}, errors.Wrap(err, "exchanging authorization code")
	}

	res, err := svc.conf.Client(ctx, token).Get(googleUserInfoURL)
	if err != nil {
		return user.OAuthUserInfo{}, errors.Wrap(err, "fetching user info")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return user.OAuthUserInfo{}, errors.Errorf("fetching user info - status: %d", res.StatusCode)
	}

	var info googleUserInfo
	if err = json.NewDecoder(res.Body).Decode(&info); err != nil {
		return user.OAuthUserInfo{}, errors.Wrap(err, "decoding user info")
	}

	return user.OAuthUserInfo{
		Provider:          providerGoogle,
		ProviderAccountID: info.ID,
		Email:             info.Email,
		FullName:          info.Name,
		AvatarURL:         info.Picture,
		AccessToken:       token.AccessToken,
		ExpiresAt:         token.Expiry,
	}, nil
}
