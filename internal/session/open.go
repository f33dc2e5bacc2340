package session

import "fmt"

// Open returns the store named by backend (memory|sqlite|redis)
func Open(backend, sqlitePath, redisURL string) (Store, error) {
	switch backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(sqlitePath)
	case "redis":
		return NewRedisStore(redisURL)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", backend)
	}
}
