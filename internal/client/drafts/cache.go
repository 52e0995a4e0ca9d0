// Package drafts implements the per-date draft cache: local snapshots of
// unsynced edits. While the keyring is unlocked, drafts are serialized,
// AEAD-encrypted under the master key and written to durable SQLite rows.
// While locked, drafts live only in a volatile in-memory map and are lost on
// restart — unencrypted-at-rest caching is never permitted.
package drafts

import (
	"context"
	"errors"
	"sync"

	"github.com/quietpage/quietpage/internal/common"
	"github.com/quietpage/quietpage/internal/cryptox"
	"github.com/quietpage/quietpage/internal/journal"
	"github.com/quietpage/quietpage/internal/logging"
)

// currentVersion tags durable rows written by this build. Rows with any
// other tag are treated as legacy and discarded on read.
const currentVersion = 1

// KeySource yields the master key, or common.ErrLocked when unavailable.
type KeySource interface {
	MasterKey() ([]byte, error)
}

// Cache is the draft cache. Safe for concurrent use.
type Cache struct {
	repo Repository
	keys KeySource
	log  logging.Logger

	mu       sync.Mutex
	volatile map[string]journal.DraftSnapshot
}

// NewCache builds a cache over the given durable repository and key source.
func NewCache(repo Repository, keys KeySource, log logging.Logger) *Cache {
	return &Cache{
		repo:     repo,
		keys:     keys,
		log:      log.With("component", "drafts"),
		volatile: make(map[string]journal.DraftSnapshot),
	}
}

// Save records a snapshot for date. With a key available the snapshot is
// persisted encrypted; otherwise it is kept in the volatile map only.
func (c *Cache) Save(ctx context.Context, date string, snap journal.DraftSnapshot) error {
	key, err := c.keys.MasterKey()
	if err != nil {
		if !errors.Is(err, common.ErrLocked) {
			return err
		}
		c.mu.Lock()
		c.volatile[date] = snap
		c.mu.Unlock()
		return nil
	}
	defer common.WipeByteArray(key)

	plaintext, err := journal.EncodeDraft(snap)
	if err != nil {
		return err
	}
	envelope, err := cryptox.SealEnvelope(key, plaintext)
	if err != nil {
		return err
	}

	row := &Row{Date: date, Version: currentVersion, Envelope: envelope, UpdatedAt: snap.UpdatedAt}
	if err := c.repo.Put(ctx, row); err != nil {
		return err
	}

	// A durable copy supersedes any volatile one for the same date.
	c.mu.Lock()
	delete(c.volatile, date)
	c.mu.Unlock()
	return nil
}

// Load returns the snapshot for date, or nil when none exists. When both a
// durable and a volatile snapshot exist, the newer one wins. Durable rows
// that are malformed, legacy-tagged, or fail decryption are discarded rather
// than surfaced as errors: a broken draft must never break the load path.
func (c *Cache) Load(ctx context.Context, date string) (*journal.DraftSnapshot, error) {
	var durable *journal.DraftSnapshot

	if key, err := c.keys.MasterKey(); err == nil {
		durable = c.loadDurable(ctx, date, key)
		common.WipeByteArray(key)
	} else if !errors.Is(err, common.ErrLocked) {
		return nil, err
	}

	c.mu.Lock()
	vol, ok := c.volatile[date]
	c.mu.Unlock()

	switch {
	case durable == nil && !ok:
		return nil, nil
	case durable == nil:
		return &vol, nil
	case !ok || durable.UpdatedAt.After(vol.UpdatedAt):
		return durable, nil
	default:
		return &vol, nil
	}
}

func (c *Cache) loadDurable(ctx context.Context, date string, key []byte) *journal.DraftSnapshot {
	row, err := c.repo.Get(ctx, date)
	if err != nil || row == nil {
		if err != nil {
			c.log.Warn(ctx, "draft read failed", "date", date, "error", err)
		}
		return nil
	}
	if row.Version != currentVersion {
		c.log.Warn(ctx, "discarding legacy draft", "date", date, "version", row.Version)
		_ = c.repo.Delete(ctx, date)
		return nil
	}

	plaintext, err := cryptox.OpenEnvelope(key, row.Envelope)
	if err != nil {
		c.log.Warn(ctx, "discarding undecryptable draft", "date", date)
		_ = c.repo.Delete(ctx, date)
		return nil
	}
	snap, err := journal.DecodeDraft(plaintext)
	if err != nil {
		c.log.Warn(ctx, "discarding malformed draft", "date", date)
		_ = c.repo.Delete(ctx, date)
		return nil
	}
	return &snap
}

// Clear removes both the durable and volatile forms of a draft. Called when
// a remote save succeeds or the user empties the editor.
func (c *Cache) Clear(ctx context.Context, date string) error {
	c.mu.Lock()
	delete(c.volatile, date)
	c.mu.Unlock()
	return c.repo.Delete(ctx, date)
}
