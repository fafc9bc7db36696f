// Package store provides the key/value backends that persist the runtime
// configuration snapshot.
package store

import (
	"errors"
	"fmt"
	"strings"

	"watchparty/internal/config"
)

// ErrUnsupportedScheme is returned by Open for an unknown store URL.
var ErrUnsupportedScheme = errors.New("unsupported store scheme")

// KV is a string key/value store. Read reports false for an absent key.
type KV interface {
	Read(key string) (string, bool, error)
	Write(key, value string) error
	Close() error
}

// Open selects a backend from a store URL:
//
//	sqlite:PATH      SQLite database file
//	file:PATH        TOML document
//	redis://HOST/N   Redis server
//	memory:          process memory, lost on exit
func Open(url string) (KV, error) {
	url = strings.TrimSpace(url)
	scheme, rest, ok := strings.Cut(url, ":")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, url)
	}

	switch scheme {
	case "memory":
		return NewMemory(), nil
	case "sqlite":
		path, err := config.ExpandPath(rest)
		if err != nil {
			return nil, fmt.Errorf("sqlite store: %w", err)
		}
		return NewSQLite(path)
	case "file":
		path, err := config.ExpandPath(strings.TrimPrefix(rest, "//"))
		if err != nil {
			return nil, fmt.Errorf("file store: %w", err)
		}
		return NewFile(path), nil
	case "redis", "rediss":
		return NewRedis(url)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
}
