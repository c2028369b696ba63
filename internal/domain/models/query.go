package models

import "time"

// Source tags the provenance of a returned value.
type Source string

const (
	SourceLive     Source = "live"
	SourceCached   Source = "cached"
	SourceFallback Source = "fallback"
)

// QueryResult is the envelope every data-access method returns. Data is always
// present and shaped like a live payload, even in fallback mode; Error carries
// the reason the live tier was skipped or failed.
type QueryResult[T any] struct {
	Data      T         `json:"data"`
	Source    Source    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
	Error     string    `json:"error,omitempty"`
}

// Live wraps a freshly fetched value.
func Live[T any](data T) QueryResult[T] {
	return QueryResult[T]{Data: data, Source: SourceLive, FetchedAt: time.Now()}
}

// Cached wraps a value served from the cache after a live failure.
func Cached[T any](data T, reason string) QueryResult[T] {
	return QueryResult[T]{Data: data, Source: SourceCached, FetchedAt: time.Now(), Error: reason}
}

// Fallback wraps a synthetic placeholder when neither live nor cache
// could serve.
func Fallback[T any](data T, reason string) QueryResult[T] {
	return QueryResult[T]{Data: data, Source: SourceFallback, FetchedAt: time.Now(), Error: reason}
}
