package drafts

import (
	"context"
	"time"
)

// Row is one durable draft record. Envelope is an AEAD nonce‖ciphertext
// buffer of the serialized snapshot; Version tags the record layout so
// malformed or legacy rows can be discarded on read instead of crashing the
// load path.
type Row struct {
	Date      string
	Version   int
	Envelope  []byte
	UpdatedAt time.Time
}

// Repository is the durable draft store contract.
type Repository interface {
	Get(ctx context.Context, date string) (*Row, error)
	Put(ctx context.Context, row *Row) error
	Delete(ctx context.Context, date string) error
}
