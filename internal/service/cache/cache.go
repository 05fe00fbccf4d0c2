package cache

import "time"

// BytesCache stores serialized API responses keyed by request shape.
// A (nil, false, nil) return is a miss; err is reserved for backend faults.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
