package whisperwall

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	wwoauth "github.com/panyam/whisperwall/oauth2"
)

// Config carries the boundary configuration the app cannot invent: the
// session signing secret and the Google OAuth2 client. The store is opened by
// the caller and passed in ready to use.
type Config struct {
	SessionSecret      string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string
}

// App is the application context: every collaborator is constructed once at
// startup and handed to the route layer through this struct. There is no
// package-level mutable state.
type App struct {
	Store      UserStore
	Auth       *LocalAuth
	Sessions   *SessionManager
	Middleware *Middleware
	Google     *wwoauth.GoogleOAuth2
	Renderer   *PageRenderer
	Logger     zerolog.Logger
}

func New(store UserStore, cfg Config, logger zerolog.Logger) *App {
	app := &App{
		Store:    store,
		Auth:     &LocalAuth{Store: store},
		Sessions: NewSessionManager(cfg.SessionSecret),
		Renderer: NewPageRenderer(),
		Logger:   logger,
	}
	app.Middleware = &Middleware{Sessions: app.Sessions, LoginURL: "/login"}
	app.Google = wwoauth.NewGoogleOAuth2(
		cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL,
		app.onGoogleUser)
	return app
}

// Handler assembles the route layer. Every request flows through the session
// middleware first, then user extraction, then the routes; /submit is
// additionally gated on a logged in user.
func (a *App) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/", a.handleHome).Methods(http.MethodGet)
	r.HandleFunc("/login", a.handleLoginForm).Methods(http.MethodGet)
	r.HandleFunc("/login", a.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/register", a.handleRegisterForm).Methods(http.MethodGet)
	r.HandleFunc("/register", a.handleRegister).Methods(http.MethodPost)

	r.HandleFunc("/auth/google", a.Google.HandleRedirect).Methods(http.MethodGet)
	r.HandleFunc("/auth/google/callback", a.Google.HandleCallback).Methods(http.MethodGet)

	// reads are public and anonymous, writes require a session
	r.HandleFunc("/secrets", a.handleSecrets).Methods(http.MethodGet)
	r.Handle("/submit", a.Middleware.EnsureUser(http.HandlerFunc(a.handleSubmitForm))).Methods(http.MethodGet)
	r.Handle("/submit", a.Middleware.EnsureUser(http.HandlerFunc(a.handleSubmit))).Methods(http.MethodPost)

	r.HandleFunc("/logout", a.handleLogout).Methods(http.MethodGet)

	return a.Sessions.Session.LoadAndSave(a.Middleware.ExtractUser(r))
}
