package whisperwall

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
)

type userParamNameKey string

// Middleware resolves the request's identity before the route layer runs.
// ExtractUser only attaches the identity (or ""); EnsureUser additionally
// redirects unauthenticated requests to the login page.
type Middleware struct {
	Sessions *SessionManager

	// Where EnsureUser sends unauthenticated requests.
	LoginURL string
}

func (a *Middleware) EnsureReasonableDefaults() {
	if a.LoginURL == "" {
		a.LoginURL = "/login"
	}
}

// GetLoggedInUserId returns the id of the logged in user for the current
// request, or "" if unauthenticated. The session is consulted first, then the
// signed auth token cookie. Missing, invalid or expired tokens resolve to ""
// rather than failing the request.
func (a *Middleware) GetLoggedInUserId(r *http.Request) string {
	if v := r.Context().Value(userParamNameKey(UserParamName)); v != nil {
		if loggedInUserId := v.(string); loggedInUserId != "" {
			return loggedInUserId
		}
	}

	if userParam := a.Sessions.CurrentUserID(r); userParam != "" {
		return userParam
	}

	// see if a signed cookie was sent instead - the session store may have
	// been restarted since login
	for _, cookie := range r.Cookies() {
		if cookie.Name != AuthTokenCookieName || len(cookie.Value) == 0 {
			continue
		}
		loggedInUserId, err := a.Sessions.VerifyAuthToken(cookie.Value)
		if err == nil && loggedInUserId != "" {
			return loggedInUserId
		} else if err != nil {
			log.Warn().Err(err).Msg("error verifying auth token")
		}
	}

	return ""
}

// ExtractUser fetches the user id from the request and makes it available to
// downstream handlers as a request scoped variable. It performs no redirects:
// handlers serving public content use this alone.
func (a *Middleware) ExtractUser(next http.Handler) http.Handler {
	a.EnsureReasonableDefaults()
	return http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			userParam := a.GetLoggedInUserId(r)
			next.ServeHTTP(w, a.setLoggedInUserId(userParam, r))
		},
	)
}

// EnsureUser behaves like ExtractUser but redirects to the login page when no
// user is logged in.
func (a *Middleware) EnsureUser(next http.Handler) http.Handler {
	a.EnsureReasonableDefaults()
	return http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			userParam := a.GetLoggedInUserId(r)
			if userParam == "" {
				http.Redirect(w, r, a.LoginURL, http.StatusFound)
				return
			}
			next.ServeHTTP(w, a.setLoggedInUserId(userParam, r))
		},
	)
}

// Set the logged in user id into the request's variable set so it is
// available to all other handlers downstream.
func (a *Middleware) setLoggedInUserId(userId string, r *http.Request) *http.Request {
	contextWithUser := context.WithValue(r.Context(), userParamNameKey(UserParamName), userId)
	return r.WithContext(contextWithUser)
}
