package store

import "context"

// SecureStore holds small, sensitive values (the auth token). Implementations
// may be size-limited; callers keep payloads short.
//
// A missing key is not an error: Get returns ("", nil).
type SecureStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// GeneralStore holds larger JSON blobs (cached profile, screen cache entries,
// last-activity timestamp, recent accounts, read-tracking map).
//
// A missing key is not an error: Get returns (nil, nil). Callers treat a
// malformed value the same as a miss.
type GeneralStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}
