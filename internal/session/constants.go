// Package session provides shared session constants used by both
// the handler and middleware packages.
package session

import "time"

const (
	// CookieName is the name of the cookie that stores the session token.
	CookieName = "notegenie_session"

	// CookiePath ensures the cookie is sent with all requests.
	CookiePath = "/"
)

// CookieMaxAge converts a session lifetime into a cookie Max-Age in seconds.
func CookieMaxAge(d time.Duration) int {
	return int(d / time.Second)
}
