package api

import "strings"

// TokenProvider supplies the bearer token for live requests. A false result
// means the request goes out unauthenticated.
type TokenProvider interface {
	Token() (string, bool)
}

// StaticToken is a fixed token. The empty string means no token.
type StaticToken string

// Token implements TokenProvider.
func (t StaticToken) Token() (string, bool) {
	v := strings.TrimSpace(string(t))
	return v, v != ""
}

// TokenFunc adapts a function to TokenProvider.
type TokenFunc func() (string, bool)

// Token implements TokenProvider.
func (f TokenFunc) Token() (string, bool) {
	if f == nil {
		return "", false
	}
	return f()
}
