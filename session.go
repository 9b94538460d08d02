package whisperwall

import (
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

const (
	// Name of the session variable (and fallback cookie) where the logged in
	// user id is kept.
	UserParamName = "loggedInUserId"

	// Name of the cookie carrying the signed auth token.
	AuthTokenCookieName = "WhisperwallAuthToken"
)

// SessionManager owns the authenticated/unauthenticated state of a browsing
// context. Identity is tracked two ways on a successful login: an entry in
// the scs-managed server side session, and a signed JWT cookie that the
// middleware accepts as a fallback when the session is empty. scs only writes
// a session once something is put into it and only re-saves modified
// sessions, so unauthenticated traffic never creates session state.
type SessionManager struct {
	Session *scs.SessionManager

	JwtIssuer    string
	JWTSecretKey string

	// How long a login is valid for. Defaults to 1 day.
	SessionTimeoutInSeconds int
}

func NewSessionManager(jwtSecretKey string) *SessionManager {
	out := &SessionManager{JWTSecretKey: jwtSecretKey}
	return out.EnsureDefaults()
}

func (m *SessionManager) EnsureDefaults() *SessionManager {
	if m.SessionTimeoutInSeconds <= 0 {
		m.SessionTimeoutInSeconds = 86400
	}
	if m.JwtIssuer == "" {
		m.JwtIssuer = "Whisperwall-Issuer"
	}
	if m.Session == nil {
		m.Session = scs.New()
		m.Session.Lifetime = time.Second * time.Duration(m.SessionTimeoutInSeconds)
		m.Session.Cookie.HttpOnly = true
	}
	return m
}

// Start attaches an authenticated identity to the request's session. The
// session token is renewed first so a pre-login session id is never carried
// into an authenticated context.
func (m *SessionManager) Start(w http.ResponseWriter, r *http.Request, user *User) error {
	m.EnsureDefaults()
	if err := m.Session.RenewToken(r.Context()); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionInvalid, err)
	}
	m.Session.Put(r.Context(), UserParamName, user.ID)

	tokenString, err := m.signAuthToken(user.ID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     AuthTokenCookieName,
		Value:    tokenString,
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Now().Add(time.Second * time.Duration(m.SessionTimeoutInSeconds)),
		MaxAge:   m.SessionTimeoutInSeconds,
	})
	return nil
}

// End invalidates the session and clears the auth token cookie. Idempotent.
// A failed session destroy is logged but not returned: from the user's
// perspective logout always succeeds and the caller redirects regardless.
func (m *SessionManager) End(w http.ResponseWriter, r *http.Request) {
	m.EnsureDefaults()
	if err := m.Session.Destroy(r.Context()); err != nil {
		log.Warn().Err(err).Msg("error destroying session")
	}
	http.SetCookie(w, &http.Cookie{
		Name:     AuthTokenCookieName,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
		Expires:  time.Now(),
	})
}

// CurrentUserID resolves the request's identity from the session. Returns ""
// for unauthenticated requests; it never fails the request.
func (m *SessionManager) CurrentUserID(r *http.Request) string {
	m.EnsureDefaults()
	return m.Session.GetString(r.Context(), UserParamName)
}

func (m *SessionManager) signAuthToken(userId string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userId,
		"iss": m.JwtIssuer,
		"exp": time.Now().Add(time.Second * time.Duration(m.SessionTimeoutInSeconds)).Unix(),
		"iat": time.Now().Unix(),
	})
	tokenString, err := token.SignedString([]byte(m.JWTSecretKey))
	if err != nil {
		return "", fmt.Errorf("error signing token: %w", err)
	}
	return tokenString, nil
}

// VerifyAuthToken parses and verifies a signed auth token and returns the
// user id it vouches for.
func (m *SessionManager) VerifyAuthToken(tokenString string) (loggedInUserId string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte(m.JWTSecretKey), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims == nil {
		return "", fmt.Errorf("claims is not a map")
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return "", err
	} else if sub == "" {
		return "", fmt.Errorf("subject not found")
	}
	return sub, nil
}
