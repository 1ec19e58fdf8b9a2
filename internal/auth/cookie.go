package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"time"
)

// SessionCookieName is the only client-held artifact of a session.
const SessionCookieName = "shopfront_session"

// CookieCodec writes and reads the session cookie. The cookie value is
// "token.signature" where the signature is an HMAC-SHA256 of the token
// under the session secret, so a forged cookie is rejected before any
// session store lookup.
type CookieCodec struct {
	secret []byte
	ttl    time.Duration
}

func NewCookieCodec(secret string, ttl time.Duration) *CookieCodec {
	return &CookieCodec{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

func (cc *CookieCodec) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token + "." + cc.sign(token),
		Path:     "/",
		MaxAge:   int(cc.ttl.Seconds()),
		HttpOnly: true,
		// Secure is left unset here; a real deployment behind TLS must set it
		SameSite: http.SameSiteLaxMode,
	})
}

func (cc *CookieCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Read extracts and verifies the session token from the request cookie.
// Any malformed or badly signed cookie reads as "no session".
func (cc *CookieCodec) Read(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", false
	}

	token, signature, found := strings.Cut(cookie.Value, ".")
	if !found || token == "" {
		return "", false
	}

	if !hmac.Equal([]byte(signature), []byte(cc.sign(token))) {
		return "", false
	}

	return token, true
}

func (cc *CookieCodec) sign(token string) string {
	mac := hmac.New(sha256.New, cc.secret)
	mac.Write([]byte(token))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
