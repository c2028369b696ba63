package cache

import "time"

// BytesCache is the cache API the data manager writes through: raw bytes per
// logical key with a per-entry TTL. Entries are replaced wholesale, never
// mutated in place.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
