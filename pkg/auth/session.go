package auth

import (
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const SessionCookieName = "relaydash_session"

// FlashCookieName carries queued notices for visitors without a session.
const FlashCookieName = "relaydash_flash"

const flashMaxAge = 5 * time.Minute

// SessionCodec signs (and, with a block key, encrypts) the session ID
// carried in the browser cookie.
type SessionCodec struct {
	sc     *securecookie.SecureCookie
	maxAge time.Duration
	secure bool
}

// NewSessionCodec builds a codec. blockKey may be nil for sign-only cookies.
// secure marks the cookie HTTPS-only.
func NewSessionCodec(hashKey, blockKey []byte, maxAge time.Duration, secure bool) *SessionCodec {
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(maxAge.Seconds()))
	return &SessionCodec{sc: sc, maxAge: maxAge, secure: secure}
}

// GenerateKey returns a random key suitable for hashKey or blockKey.
func GenerateKey(n int) []byte { return securecookie.GenerateRandomKey(n) }

func (c *SessionCodec) EncodeToCookie(w http.ResponseWriter, sessionID string) error {
	val, err := c.sc.Encode(SessionCookieName, sessionID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    val,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   c.secure,
		MaxAge:   int(c.maxAge.Seconds()),
	})
	return nil
}

// DecodeFromRequest returns the session ID from a valid, untampered cookie.
func (c *SessionCodec) DecodeFromRequest(r *http.Request) (string, bool) {
	ck, err := r.Cookie(SessionCookieName)
	if err != nil {
		return "", false
	}
	var id string
	if err := c.sc.Decode(SessionCookieName, ck.Value, &id); err != nil || id == "" {
		return "", false
	}
	return id, true
}

func (c *SessionCodec) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   c.secure,
		MaxAge:   -1,
	})
}

// EncodeFlashes stores msgs in the signed flash cookie. An empty list clears it.
func (c *SessionCodec) EncodeFlashes(w http.ResponseWriter, msgs []string) error {
	if len(msgs) == 0 {
		c.ClearFlashes(w)
		return nil
	}
	val, err := c.sc.Encode(FlashCookieName, msgs)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    val,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   c.secure,
		MaxAge:   int(flashMaxAge.Seconds()),
	})
	return nil
}

// DecodeFlashes returns the notices in a valid flash cookie, or nil.
func (c *SessionCodec) DecodeFlashes(r *http.Request) []string {
	ck, err := r.Cookie(FlashCookieName)
	if err != nil {
		return nil
	}
	var msgs []string
	if err := c.sc.Decode(FlashCookieName, ck.Value, &msgs); err != nil {
		return nil
	}
	return msgs
}

func (c *SessionCodec) ClearFlashes(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   c.secure,
		MaxAge:   -1,
	})
}
