package dashboard

import (
	"net/url"
	"strings"
)

const (
	HomePath     = "/"
	LoginPath    = "/auth/login"
	RegisterPath = "/auth/register"
)

// Guard decides whether a page may be shown for the session. When it may
// not, redirect is where to send the user instead.
//
// Signed-out users may only see the home page and the auth pages; they are
// sent to the login page with the requested path preserved. Signed-in users
// are sent home from any auth page.
func Guard(path string, session Session) (redirect string, ok bool) {
	isAuthPage := path == "/auth" || strings.HasPrefix(path, "/auth/")
	isPublic := path == LoginPath || path == RegisterPath || path == HomePath

	if !session.Authenticated() && !isPublic {
		q := url.Values{"redirect": {path}}
		return LoginPath + "?" + q.Encode(), false
	}
	if session.Authenticated() && isAuthPage {
		return HomePath, false
	}
	return "", true
}
