package oauth2

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

func generateStateOauthCookie(w http.ResponseWriter) string {
	var expiration = time.Now().Add(time.Hour)
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		log.Error().Err(err).Msg("error generating oauth state")
	}
	state := base64.URLEncoding.EncodeToString(b)
	cookie := http.Cookie{Name: "oauthstate", Value: state, Path: "/", Expires: expiration, HttpOnly: true}
	http.SetCookie(w, &cookie)
	return state
}
