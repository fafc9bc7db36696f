package settings

import "strings"

// DefaultTokenKey holds the bearer token issued at login.
const DefaultTokenKey = "access_token"

// TokenSource reads the bearer token from the store on every request.
type TokenSource struct {
	Store *Store
	Key   string
}

// Token implements api.TokenProvider.
func (t TokenSource) Token() (string, bool) {
	if t.Store == nil {
		return "", false
	}
	key := t.Key
	if key == "" {
		key = DefaultTokenKey
	}
	v, ok := t.Store.Get(key, nil).(string)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}
