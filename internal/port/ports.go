// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the service
// layer from concrete storage implementations.
package port

import "context"

// Cache provides generic caching with TTL.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V)
	Delete(key K)
}

// Pinger is implemented by repositories that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}
