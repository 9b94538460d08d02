package oauth2

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// mockProvider stands in for Google: a token endpoint and a userinfo
// endpoint, each scriptable per test.
type mockProvider struct {
	server *httptest.Server

	tokenStatus    int
	userInfoStatus int
	subjectId      string
}

func newMockProvider(t *testing.T) *mockProvider {
	t.Helper()
	p := &mockProvider{
		tokenStatus:    http.StatusOK,
		userInfoStatus: http.StatusOK,
		subjectId:      "google-sub-123",
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if p.tokenStatus != http.StatusOK {
			http.Error(w, "exchange refused", p.tokenStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"mock-access-token","token_type":"bearer"}`)
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if p.userInfoStatus != http.StatusOK {
			http.Error(w, "no profile for you", p.userInfoStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":%q,"name":"Mock User"}`, p.subjectId)
	})
	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *mockProvider) newFlow(handleUser HandleUserFunc) *GoogleOAuth2 {
	g := NewGoogleOAuth2("test-client-id", "test-client-secret",
		"http://localhost/auth/google/callback", handleUser)
	g.Config.Endpoint = oauth2.Endpoint{
		AuthURL:  p.server.URL + "/auth",
		TokenURL: p.server.URL + "/token",
	}
	g.UserInfoURL = p.server.URL + "/userinfo"
	return g
}

func stateCookie(t *testing.T, res *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range res.Cookies() {
		if c.Name == "oauthstate" {
			return c
		}
	}
	t.Fatal("no oauthstate cookie set")
	return nil
}

func TestHandleRedirect(t *testing.T) {
	provider := newMockProvider(t)
	g := provider.newFlow(nil)

	rec := httptest.NewRecorder()
	g.HandleRedirect(rec, httptest.NewRequest(http.MethodGet, "/auth/google", nil))

	res := rec.Result()
	require.Equal(t, http.StatusFound, res.StatusCode)

	cookie := stateCookie(t, res)
	assert.NotEmpty(t, cookie.Value)
	assert.True(t, cookie.HttpOnly)

	location, err := url.Parse(res.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, provider.server.URL+"/auth", location.Scheme+"://"+location.Host+location.Path)
	// the state round-trips through the consent URL and the cookie together
	assert.Equal(t, cookie.Value, location.Query().Get("state"))
	assert.Equal(t, "test-client-id", location.Query().Get("client_id"))
}

func TestHandleCallbackStateMismatch(t *testing.T) {
	provider := newMockProvider(t)
	called := false
	g := provider.newFlow(func(googleId string, token *oauth2.Token, w http.ResponseWriter, r *http.Request) {
		called = true
	})

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=forged&code=anything", nil)
	req.AddCookie(&http.Cookie{Name: "oauthstate", Value: "the-real-state"})
	rec := httptest.NewRecorder()
	g.HandleCallback(rec, req)

	res := rec.Result()
	assert.Equal(t, http.StatusFound, res.StatusCode)
	assert.Equal(t, g.FailureURL, res.Header.Get("Location"))
	assert.False(t, called, "user handler must not run on a forged state")
}

func TestHandleCallbackMissingStateCookie(t *testing.T) {
	provider := newMockProvider(t)
	called := false
	g := provider.newFlow(func(googleId string, token *oauth2.Token, w http.ResponseWriter, r *http.Request) {
		called = true
	})

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=whatever&code=anything", nil)
	rec := httptest.NewRecorder()
	g.HandleCallback(rec, req)

	assert.Equal(t, http.StatusFound, rec.Result().StatusCode)
	assert.Equal(t, g.FailureURL, rec.Result().Header.Get("Location"))
	assert.False(t, called)
}

func TestHandleCallbackExchangeFails(t *testing.T) {
	provider := newMockProvider(t)
	provider.tokenStatus = http.StatusInternalServerError

	called := false
	g := provider.newFlow(func(googleId string, token *oauth2.Token, w http.ResponseWriter, r *http.Request) {
		called = true
	})

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=good-state&code=bad-code", nil)
	req.AddCookie(&http.Cookie{Name: "oauthstate", Value: "good-state"})
	rec := httptest.NewRecorder()
	g.HandleCallback(rec, req)

	res := rec.Result()
	assert.Equal(t, http.StatusFound, res.StatusCode)
	assert.Equal(t, g.FailureURL, res.Header.Get("Location"))
	assert.False(t, called)
}

func TestHandleCallbackUserInfoFails(t *testing.T) {
	provider := newMockProvider(t)
	provider.userInfoStatus = http.StatusForbidden

	called := false
	g := provider.newFlow(func(googleId string, token *oauth2.Token, w http.ResponseWriter, r *http.Request) {
		called = true
	})

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=good-state&code=good-code", nil)
	req.AddCookie(&http.Cookie{Name: "oauthstate", Value: "good-state"})
	rec := httptest.NewRecorder()
	g.HandleCallback(rec, req)

	assert.Equal(t, http.StatusFound, rec.Result().StatusCode)
	assert.Equal(t, g.FailureURL, rec.Result().Header.Get("Location"))
	assert.False(t, called)
}

func TestHandleCallbackSuccess(t *testing.T) {
	provider := newMockProvider(t)

	var gotId string
	var gotToken *oauth2.Token
	g := provider.newFlow(func(googleId string, token *oauth2.Token, w http.ResponseWriter, r *http.Request) {
		gotId = googleId
		gotToken = token
		http.Redirect(w, r, "/secrets", http.StatusFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=good-state&code=good-code", nil)
	req.AddCookie(&http.Cookie{Name: "oauthstate", Value: "good-state"})
	rec := httptest.NewRecorder()
	g.HandleCallback(rec, req)

	res := rec.Result()
	assert.Equal(t, http.StatusFound, res.StatusCode)
	assert.Equal(t, "/secrets", res.Header.Get("Location"))
	assert.Equal(t, "google-sub-123", gotId)
	require.NotNil(t, gotToken)
	assert.Equal(t, "mock-access-token", gotToken.AccessToken)
}
