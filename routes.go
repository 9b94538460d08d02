package whisperwall

import (
	"errors"
	"net/http"

	"golang.org/x/oauth2"
)

func (a *App) handleHome(w http.ResponseWriter, r *http.Request) {
	a.renderPage(w, "home", nil)
}

func (a *App) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	a.renderPage(w, "login", nil)
}

func (a *App) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	a.renderPage(w, "register", nil)
}

func (a *App) handleRegister(w http.ResponseWriter, r *http.Request) {
	username, password, ok := a.parseCredentialsForm(w, r)
	if !ok {
		return
	}

	user, err := a.Auth.Register(r.Context(), username, password)
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateUsername):
			a.renderError(w, http.StatusConflict, "That username is already taken.")
		case errors.Is(err, ErrStoreUnavailable):
			a.Logger.Error().Err(err).Msg("registration store error")
			a.renderError(w, http.StatusBadGateway, "We could not create your account. Please try again.")
		default:
			a.Logger.Error().Err(err).Msg("registration failed")
			a.renderError(w, http.StatusBadRequest, "We could not create your account. Please try again.")
		}
		return
	}

	a.startSessionAndRedirect(w, r, user)
}

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	username, password, ok := a.parseCredentialsForm(w, r)
	if !ok {
		return
	}

	user, err := a.Auth.Verify(r.Context(), username, password)
	if err != nil {
		// ErrNotFound and ErrInvalidCredentials get the same response so a
		// failed login never reveals whether the username exists.
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidCredentials) {
			a.renderError(w, http.StatusUnauthorized, "Invalid username or password.")
			return
		}
		a.Logger.Error().Err(err).Msg("login store error")
		a.renderError(w, http.StatusBadGateway, "We could not sign you in. Please try again.")
		return
	}

	a.startSessionAndRedirect(w, r, user)
}

// onGoogleUser completes a delegated login: the bridge verified the subject
// identifier, now resolve it to a local user (creating one if absent) and
// start the session. A second login with the same identifier resolves to the
// same record.
func (a *App) onGoogleUser(googleId string, token *oauth2.Token, w http.ResponseWriter, r *http.Request) {
	user, err := a.Store.EnsureGoogleUser(r.Context(), googleId)
	if err != nil {
		a.Logger.Error().Err(err).Msg("google find-or-create failed")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	a.startSessionAndRedirect(w, r, user)
}

func (a *App) handleSecrets(w http.ResponseWriter, r *http.Request) {
	users, err := a.Store.ListUsersWithSecrets(r.Context())
	if err != nil {
		// read path degrades to an empty page rather than failing
		a.Logger.Error().Err(err).Msg("error listing secrets")
		users = nil
	}

	// only the secret text crosses into the page: secrets are never
	// attributed to a user
	secrets := make([]string, 0, len(users))
	for _, u := range users {
		if u.Secret != nil {
			secrets = append(secrets, *u.Secret)
		}
	}
	a.renderPage(w, "secrets", secretsPage{Secrets: secrets})
}

func (a *App) handleSubmitForm(w http.ResponseWriter, r *http.Request) {
	a.renderPage(w, "submit", nil)
}

func (a *App) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.renderError(w, http.StatusBadRequest, "Invalid form submission.")
		return
	}
	// accepted as-is: no length or content validation, and a resubmission
	// overwrites the previous secret
	secret := r.FormValue("secret")

	userId := a.Middleware.GetLoggedInUserId(r)
	if err := a.Store.SetSecret(r.Context(), userId, secret); err != nil {
		if errors.Is(err, ErrNotFound) {
			// session refers to a user the store no longer knows about
			a.Sessions.End(w, r)
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		a.Logger.Error().Err(err).Msg("error saving secret")
		a.renderError(w, http.StatusBadGateway, "We could not save your secret. Please try again.")
		return
	}

	http.Redirect(w, r, "/secrets", http.StatusFound)
}

func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	// End logs (and swallows) invalidation errors: logout always redirects
	// home and the client is treated as unauthenticated from here on
	a.Sessions.End(w, r)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *App) startSessionAndRedirect(w http.ResponseWriter, r *http.Request, user *User) {
	if err := a.Sessions.Start(w, r, user); err != nil {
		a.Logger.Error().Err(err).Msg("error starting session")
		a.renderError(w, http.StatusInternalServerError, "We could not sign you in. Please try again.")
		return
	}
	http.Redirect(w, r, "/secrets", http.StatusFound)
}

func (a *App) parseCredentialsForm(w http.ResponseWriter, r *http.Request) (username, password string, ok bool) {
	if err := r.ParseForm(); err != nil {
		a.renderError(w, http.StatusBadRequest, "Invalid form submission.")
		return "", "", false
	}
	username = r.FormValue("username")
	password = r.FormValue("password")
	if username == "" || password == "" {
		a.renderError(w, http.StatusBadRequest, "Username and password are required.")
		return "", "", false
	}
	return username, password, true
}
