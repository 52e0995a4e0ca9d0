// Package share implements entry sharing with linked professionals: the
// owner's master key is re-wrapped to the recipient's public key and handed
// to the remote store, which verifies the link and writes the audit record
// atomically with the share row.
package share

import (
	"context"
	"fmt"
	"sync"

	"github.com/quietpage/quietpage/internal/client/models"
	"github.com/quietpage/quietpage/internal/client/remote"
	"github.com/quietpage/quietpage/internal/common"
	"github.com/quietpage/quietpage/internal/cryptox"
	"github.com/quietpage/quietpage/internal/logging"
)

// KeySource yields the master key, or common.ErrLocked when unavailable.
type KeySource interface {
	MasterKey() ([]byte, error)
}

// Store is the slice of the remote contract the service needs.
type Store interface {
	Share(ctx context.Context, entryID, professionalID string, envelope []byte) error
	RevokeShare(ctx context.Context, entryID, professionalID string) error
	ListShared(ctx context.Context) ([]models.ShareRecord, error)
}

// Service grants and revokes per-entry access. It caches professional public
// keys; the cache entry is dropped on revoke so a re-share always refetches.
type Service struct {
	store     Store
	directory remote.Directory
	keys      KeySource
	log       logging.Logger

	mu      sync.Mutex
	pubKeys map[string][]byte
}

// NewService wires the sharing service to its collaborators.
func NewService(store Store, directory remote.Directory, keys KeySource, log logging.Logger) *Service {
	return &Service{
		store:     store,
		directory: directory,
		keys:      keys,
		log:       log.With("component", "share"),
		pubKeys:   make(map[string][]byte),
	}
}

// ShareEntry grants professionalID access to entryID. Requires an unlocked
// keyring. Directory and crypto failures surface to the caller with no
// partial state committed; the remote store rejects shares to unlinked
// professionals with common.ErrProfessionalNotLinked.
func (s *Service) ShareEntry(ctx context.Context, entryID, professionalID string) error {
	masterKey, err := s.keys.MasterKey()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(masterKey)

	pub, err := s.publicKey(ctx, professionalID)
	if err != nil {
		return err
	}

	envelope, err := cryptox.RewrapForRecipient(masterKey, pub)
	if err != nil {
		return fmt.Errorf("rewrap for %s: %w", professionalID, err)
	}

	if err := s.store.Share(ctx, entryID, professionalID, envelope); err != nil {
		return err
	}
	s.log.Info(ctx, "entry shared", "entry", entryID, "professional", professionalID)
	return nil
}

// RevokeShare deletes the share row (the store appends the revoked audit
// entry) and drops the professional's cached public key.
func (s *Service) RevokeShare(ctx context.Context, entryID, professionalID string) error {
	if err := s.store.RevokeShare(ctx, entryID, professionalID); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.pubKeys, professionalID)
	s.mu.Unlock()

	s.log.Info(ctx, "share revoked", "entry", entryID, "professional", professionalID)
	return nil
}

// ListShared returns every active share of the current user.
func (s *Service) ListShared(ctx context.Context) ([]models.ShareRecord, error) {
	return s.store.ListShared(ctx)
}

// ListProfessionals lists the linked counterparts available as recipients.
func (s *Service) ListProfessionals(ctx context.Context) ([]models.Professional, error) {
	return s.directory.ListLinkedProfessionals(ctx)
}

func (s *Service) publicKey(ctx context.Context, professionalID string) ([]byte, error) {
	s.mu.Lock()
	pub, ok := s.pubKeys[professionalID]
	s.mu.Unlock()
	if ok {
		return pub, nil
	}

	pub, err := s.directory.GetProfessionalPublicKey(ctx, professionalID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.pubKeys[professionalID] = pub
	s.mu.Unlock()
	return pub, nil
}
