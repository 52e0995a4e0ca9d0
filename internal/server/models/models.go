// Package models defines the server-side row types. The server is an
// untrusted-but-available store: entry and goal payloads arrive and leave as
// ciphertext, and the only key material it ever holds is wrapped or
// re-wrapped to someone else's key.
package models

import "time"

type User struct {
	ID        string
	UserName  string
	Role      string
	Salt      []byte
	Verifier  []byte
	CreatedAt time.Time
}

type RefreshToken struct {
	UserID  string
	Token   string
	Expires time.Time
}

// Keyring is the wrapped-at-rest master key of one user.
type Keyring struct {
	UserID           string
	WrappedMasterKey []byte
	Salt             []byte
	KDFParams        []byte // JSON-encoded cryptox.KDFParams
	UpdatedAt        time.Time
}

// Entry is one (user, date) journal row. The date is unique per user.
type Entry struct {
	ID         string
	UserID     string
	Date       string
	Ciphertext []byte
	Nonce      []byte
	AAD        []byte
	WordCount  int
	Mood       string
	TZAtEntry  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Goal struct {
	ID         string
	UserID     string
	Ciphertext []byte
	Nonce      []byte
	AAD        []byte
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Share grants one professional access to one entry via a re-wrapped key
// envelope.
type Share struct {
	EntryID        string
	OwnerUserID    string
	ProfessionalID string
	Envelope       []byte
	UpdatedAt      time.Time
}

// ShareAudit is an append-only trail row written in the same transaction as
// the share change it records.
type ShareAudit struct {
	ID             int64
	EntryID        string
	OwnerUserID    string
	ProfessionalID string
	Action         string // "shared" or "revoked"
	CreatedAt      time.Time
}

// ProfessionalLink relates a user to a professional who may receive shares.
type ProfessionalLink struct {
	UserID         string
	ProfessionalID string
	Active         bool
	CreatedAt      time.Time
}

// Professional is a share recipient with a published X25519 public key.
type Professional struct {
	ID          string
	DisplayName string
	PublicKey   []byte
	Active      bool
	CreatedAt   time.Time
}

type Prompt struct {
	ID        string
	Locale    string
	Scope     string
	Text      string
	Tags      []string
	Weight    int
	Enabled   bool
	StartAt   *time.Time
	EndAt     *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Profile is the non-sensitive user profile projection.
type Profile struct {
	UserID   string
	Avatar   string
	Timezone string
}
