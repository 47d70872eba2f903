package middleware

import (
	"net/http"
	"time"

	"github.com/MrEthical07/authgate"
)

func tokenCookie(cfg authgate.Config, name, value string, maxAge time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     cfg.Cookie.Path,
		Domain:   cfg.Cookie.Domain,
		HttpOnly: true,
		Secure:   cfg.SecureCookies(),
		SameSite: cfg.Cookie.SameSite,
	}
	if maxAge < 0 {
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
	} else {
		c.MaxAge = int(maxAge / time.Second)
	}
	return c
}

// SetTokenCookies writes the access and refresh cookies for pair. Lifetimes follow
// the configured token TTLs.
func SetTokenCookies(w http.ResponseWriter, cfg authgate.Config, pair authgate.TokenPair) {
	http.SetCookie(w, tokenCookie(cfg, cfg.Cookie.AccessName, pair.AccessToken, cfg.JWT.AccessTTL))
	http.SetCookie(w, tokenCookie(cfg, cfg.Cookie.RefreshName, pair.RefreshToken, cfg.JWT.RefreshTTL))
}

// ClearTokenCookies expires both token cookies.
func ClearTokenCookies(w http.ResponseWriter, cfg authgate.Config) {
	http.SetCookie(w, tokenCookie(cfg, cfg.Cookie.AccessName, "", -1))
	http.SetCookie(w, tokenCookie(cfg, cfg.Cookie.RefreshName, "", -1))
}
