// Package models defines client-side record types exchanged with the remote
// store. Encrypted fields carry AEAD ciphertext alongside their nonces; the
// plaintext forms live in internal/journal and never appear here.
package models

import (
	"time"

	"github.com/quietpage/quietpage/internal/cryptox"
)

// KeyringRecord is the wrapped-at-rest form of the master key, persisted
// remotely per user. WrappedMasterKey is a nonce‖ciphertext envelope of the
// master key under a key derived from the user's password and Salt.
type KeyringRecord struct {
	WrappedMasterKey []byte            `json:"wrappedMasterKey"`
	Salt             []byte            `json:"salt"`
	KDF              cryptox.KDFParams `json:"kdfParams"`
}

// EntryRecord is the remote row for one (user, date) journal entry.
// Ciphertext decrypts (under the master key) to journal.EntryContent.
type EntryRecord struct {
	ID string `json:"id"`

	// Date in common.DateLayout. Unique per user, enforced remotely.
	Date string `json:"dateISO"`

	Ciphertext []byte `json:"ciphertext"`
	Nonce      []byte `json:"nonce"`
	AAD        []byte `json:"aad,omitempty"`

	// Non-sensitive scalar metadata, stored in plaintext for calendar and
	// heatmap rendering without decryption.
	WordCount int    `json:"wordCount,omitempty"`
	Mood      string `json:"mood,omitempty"`
	TZAtEntry string `json:"tzAtEntry,omitempty"`

	// SharedWith lists professional IDs holding an active share envelope.
	SharedWith []string `json:"sharedWith,omitempty"`

	// UpdatedAt is the server-side row timestamp.
	UpdatedAt time.Time `json:"updatedAt"`
}

// EntryMeta is the non-sensitive projection of an entry used by calendar
// views and by navigation materialization. Derived remotely, never stored
// separately.
type EntryMeta struct {
	Date                  string   `json:"dateISO"`
	WordCount             int      `json:"wordCount,omitempty"`
	Mood                  string   `json:"mood,omitempty"`
	TZAtEntry             string   `json:"tzAtEntry,omitempty"`
	SharedProfessionalIDs []string `json:"sharedProfessionalIds,omitempty"`
	GoalIDs               []string `json:"goalIds,omitempty"`
}

// GoalRecord is an encrypted goal row; Ciphertext decrypts to
// journal.GoalContent.
type GoalRecord struct {
	ID         string    `json:"id"`
	Ciphertext []byte    `json:"ciphertext"`
	Nonce      []byte    `json:"nonce"`
	AAD        []byte    `json:"aad,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ShareRecord grants one professional access to one entry. Envelope is the
// raw master key sealed to the professional's public key.
type ShareRecord struct {
	EntryID        string    `json:"entryId"`
	OwnerUserID    string    `json:"ownerUserId"`
	ProfessionalID string    `json:"professionalId"`
	Envelope       []byte    `json:"envelope"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Professional is a directory listing of a linked counterpart.
type Professional struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Active      bool   `json:"active"`
}

// CoachPrompt is a plaintext, admin-curated writing prompt.
type CoachPrompt struct {
	ID        string     `json:"id"`
	Locale    string     `json:"locale"`
	Scope     string     `json:"scope"`
	Text      string     `json:"text"`
	Tags      []string   `json:"tags,omitempty"`
	Weight    int        `json:"weight"`
	Enabled   bool       `json:"enabled"`
	StartAt   *time.Time `json:"startAt,omitempty"`
	EndAt     *time.Time `json:"endAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// PromptFilter narrows a coach prompt listing.
type PromptFilter struct {
	Locale          string     `json:"locale,omitempty"`
	Scope           string     `json:"scope,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	ActiveAt        *time.Time `json:"activeAt,omitempty"`
	IncludeDisabled bool       `json:"includeDisabled,omitempty"`
}

// Profile is the minimal user-profile projection the client consumes.
type Profile struct {
	Avatar   string `json:"avatar,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// Session identifies the authenticated user on this client.
type Session struct {
	UserID string `json:"id"`
	Role   string `json:"role"`
}
