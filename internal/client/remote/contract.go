// Package remote defines the narrow contracts the journal core consumes from
// its external collaborators (remote store, directory, auth, profile) and an
// HTTP implementation of all of them. The core never talks to the network
// except through these interfaces, and no plaintext content ever crosses
// them: entry and goal payloads travel as {ciphertext, nonce, aad?} plus
// non-sensitive scalars.
package remote

import (
	"context"

	"github.com/quietpage/quietpage/internal/client/models"
)

// Store is the durable backend contract for journal data.
//
// All methods honor context cancellation. Lookups that miss return
// common.ErrNotFound (keyring) or common.ErrEntryNotFound /
// common.ErrGoalNotFound; entry lookups never reveal whether a row exists
// under another owner.
type Store interface {
	// Keyring.
	KeyringGet(ctx context.Context) (*models.KeyringRecord, error)
	KeyringPut(ctx context.Context, rec *models.KeyringRecord) error

	// Entries.
	EntryGetByDate(ctx context.Context, date string) (*models.EntryRecord, error)
	EntryUpsert(ctx context.Context, rec *models.EntryRecord) (*models.EntryRecord, error)
	EntryListMeta(ctx context.Context, from, to string) ([]models.EntryMeta, error)

	// Goals and goal↔entry links.
	GoalList(ctx context.Context) ([]models.GoalRecord, error)
	GoalUpsert(ctx context.Context, rec *models.GoalRecord) (*models.GoalRecord, error)
	GoalDelete(ctx context.Context, id string) error
	GoalLink(ctx context.Context, goalID, entryID string) error
	GoalUnlink(ctx context.Context, goalID, entryID string) error

	// Shares. The store verifies the professional link and writes the audit
	// record atomically with the share row.
	Share(ctx context.Context, entryID, professionalID string, envelope []byte) error
	RevokeShare(ctx context.Context, entryID, professionalID string) error
	ListShared(ctx context.Context) ([]models.ShareRecord, error)

	// Coach prompts (read side; administration happens elsewhere).
	PromptList(ctx context.Context, f models.PromptFilter) ([]models.CoachPrompt, error)
}

// Directory resolves share counterparts.
type Directory interface {
	ListLinkedProfessionals(ctx context.Context) ([]models.Professional, error)
	// GetProfessionalPublicKey returns the X25519 public key for id, or
	// common.ErrKeyNotFound.
	GetProfessionalPublicKey(ctx context.Context, id string) ([]byte, error)
}

// Auth exposes the session the rest of the client runs under.
type Auth interface {
	// RequireAuth returns the current session or common.ErrUnauthenticated.
	RequireAuth(ctx context.Context) (*models.Session, error)
	// GetCurrentSession returns the session, or nil when not authenticated.
	GetCurrentSession(ctx context.Context) *models.Session
}

// Profile looks up the non-sensitive profile of a user.
type Profile interface {
	GetUserProfile(ctx context.Context) (*models.Profile, error)
}
