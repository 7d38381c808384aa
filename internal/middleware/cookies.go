package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Cookie names shared by the login handler and the authentication gate.
const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

// CookieConfig controls the attributes of auth cookies.  Secure should only
// be off for plain-http local development.
type CookieConfig struct {
	Secure bool
	Path   string
}

func (cc CookieConfig) path() string {
	if cc.Path == "" {
		return "/"
	}
	return cc.Path
}

// SetCookie writes an HttpOnly, SameSite=Strict auth cookie.
func SetCookie(c echo.Context, cc CookieConfig, name, value string, ttl time.Duration) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     cc.path(),
		MaxAge:   int(ttl / time.Second),
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearCookie expires an auth cookie on the client.
func ClearCookie(c echo.Context, cc CookieConfig, name string) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     cc.path(),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func cookieValue(c echo.Context, name string) string {
	ck, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}
