// Package metadata stores small key/value records used by offline login
// (username, auth salt, verifier). Values are opaque bytes.
package metadata

import "context"

// Repository is the local metadata contract.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
