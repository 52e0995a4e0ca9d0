package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/quietpage/quietpage/internal/cryptox"
	"github.com/quietpage/quietpage/internal/server/models"
	"github.com/quietpage/quietpage/internal/server/repositories/repomanager"
)

// EntryMeta is the non-sensitive projection of an entry served to calendar
// views: plaintext scalars plus share and goal-link IDs, never ciphertext.
type EntryMeta struct {
	Date                  string   `json:"dateISO"`
	WordCount             int      `json:"wordCount,omitempty"`
	Mood                  string   `json:"mood,omitempty"`
	TZAtEntry             string   `json:"tzAtEntry,omitempty"`
	SharedProfessionalIDs []string `json:"sharedProfessionalIds,omitempty"`
	GoalIDs               []string `json:"goalIds,omitempty"`
}

// EntryService stores and serves encrypted journal entries and the wrapped
// keyring record. It never decrypts anything.
type EntryService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewEntryService(db *sql.DB, m repomanager.RepositoryManager) *EntryService {
	return &EntryService{db: db, repomanager: m}
}

// GetKeyring returns the user's wrapped keyring record, or common.ErrNotFound.
func (s *EntryService) GetKeyring(ctx context.Context, userID string) (*models.Keyring, error) {
	return s.repomanager.Keyrings(s.db).Get(ctx, userID)
}

// PutKeyring validates and stores the wrapped keyring record. The KDF params
// must parse; the blob itself is opaque.
func (s *EntryService) PutKeyring(ctx context.Context, rec *models.Keyring) error {
	var params cryptox.KDFParams
	if err := json.Unmarshal(rec.KDFParams, &params); err != nil {
		return fmt.Errorf("bad kdf params: %w", err)
	}
	return s.repomanager.Keyrings(s.db).Put(ctx, rec)
}

// GetByDate returns the user's entry for date (common.ErrEntryNotFound when
// absent or owned by someone else).
func (s *EntryService) GetByDate(ctx context.Context, userID, date string) (*models.Entry, error) {
	return s.repomanager.Entries(s.db).GetByDate(ctx, userID, date)
}

// Upsert writes the encrypted entry row for its (user, date) key and returns
// the stored row with server timestamps.
func (s *EntryService) Upsert(ctx context.Context, entry *models.Entry) (*models.Entry, error) {
	return s.repomanager.Entries(s.db).Upsert(ctx, entry)
}

// ListMeta returns the metadata projection for the user's entries in
// [from, to], with active shares and goal links folded in.
func (s *EntryService) ListMeta(ctx context.Context, userID, from, to string) ([]EntryMeta, error) {
	rows, err := s.repomanager.Entries(s.db).ListRange(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	shared, err := s.repomanager.Shares(s.db).ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	sharedByEntry := map[string][]string{}
	for _, sh := range shared {
		sharedByEntry[sh.EntryID] = append(sharedByEntry[sh.EntryID], sh.ProfessionalID)
	}

	links, err := s.repomanager.Goals(s.db).ListLinks(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]EntryMeta, 0, len(rows))
	for _, e := range rows {
		out = append(out, EntryMeta{
			Date:                  e.Date,
			WordCount:             e.WordCount,
			Mood:                  e.Mood,
			TZAtEntry:             e.TZAtEntry,
			SharedProfessionalIDs: sharedByEntry[e.ID],
			GoalIDs:               links[e.ID],
		})
	}
	return out, nil
}
