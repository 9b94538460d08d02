package oauth2

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// HandleUserFunc is called with the provider's subject identifier after a
// successful code exchange. It owns the rest of the login (find-or-create,
// session start, redirect).
type HandleUserFunc func(googleId string, token *oauth2.Token, w http.ResponseWriter, r *http.Request)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleOAuth2 runs the 3-legged authorization-code flow against Google.
// Only the basic profile scope is requested; the callback extracts the
// subject identifier and nothing else.
type GoogleOAuth2 struct {
	Config oauth2.Config

	// Endpoint serving the user profile for an access token. Defaults to
	// Google's userinfo API.
	UserInfoURL string

	// Where to send the browser when the provider or the exchange fails.
	// No session is created on that path.
	FailureURL string

	HandleUser HandleUserFunc
}

func NewGoogleOAuth2(clientId string, clientSecret string, callbackUrl string, handleUser HandleUserFunc) *GoogleOAuth2 {
	if clientId == "" {
		clientId = os.Getenv("OAUTH2_GOOGLE_CLIENT_ID")
	}
	if clientSecret == "" {
		clientSecret = os.Getenv("OAUTH2_GOOGLE_CLIENT_SECRET")
	}
	if callbackUrl == "" {
		callbackUrl = os.Getenv("OAUTH2_GOOGLE_CALLBACK_URL")
	}

	return &GoogleOAuth2{
		Config: oauth2.Config{
			ClientID:     clientId,
			ClientSecret: clientSecret,
			RedirectURL:  callbackUrl,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		UserInfoURL: googleUserInfoURL,
		FailureURL:  "/login",
		HandleUser:  handleUser,
	}
}

// HandleRedirect begins the flow: set a state cookie and send the browser to
// the provider's consent screen.
func (g *GoogleOAuth2) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	oauthState := generateStateOauthCookie(w)
	u := g.Config.AuthCodeURL(oauthState)
	http.Redirect(w, r, u, http.StatusFound)
}

// HandleCallback completes the flow: check the state cookie, exchange the
// code, fetch the subject id and hand off to HandleUser. Every failure ends
// in a redirect to FailureURL with no session created.
func (g *GoogleOAuth2) HandleCallback(w http.ResponseWriter, r *http.Request) {
	oauthState, _ := r.Cookie("oauthstate")
	if oauthState == nil || r.FormValue("state") != oauthState.Value {
		log.Warn().Msg("invalid oauth google state")
		http.SetCookie(w, &http.Cookie{Name: "oauthstate", MaxAge: -1})
		http.Redirect(w, r, g.FailureURL, http.StatusFound)
		return
	}

	code := r.FormValue("code")
	token, err := g.Config.Exchange(r.Context(), code)
	if err != nil {
		log.Warn().Err(err).Msg("code exchange failed")
		http.Redirect(w, r, g.FailureURL, http.StatusFound)
		return
	}

	googleId, err := g.fetchSubject(r, token)
	if err != nil {
		log.Warn().Err(err).Msg("error fetching google profile")
		http.Redirect(w, r, g.FailureURL, http.StatusFound)
		return
	}

	g.HandleUser(googleId, token, w, r)
}

// fetchSubject retrieves the provider's subject identifier for the token.
func (g *GoogleOAuth2) fetchSubject(r *http.Request, token *oauth2.Token) (string, error) {
	client := g.Config.Client(r.Context(), token)
	response, err := client.Get(g.UserInfoURL)
	if err != nil {
		return "", fmt.Errorf("failed getting user info: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo returned status %d", response.StatusCode)
	}

	var userInfo struct {
		Id string `json:"id"`
	}
	if err := json.NewDecoder(response.Body).Decode(&userInfo); err != nil {
		return "", fmt.Errorf("failed decoding user info: %w", err)
	}
	if userInfo.Id == "" {
		return "", fmt.Errorf("no subject identifier in user info")
	}
	return userInfo.Id, nil
}
