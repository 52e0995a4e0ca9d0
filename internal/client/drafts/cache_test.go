package drafts

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/quietpage/quietpage/internal/common"
	"github.com/quietpage/quietpage/internal/cryptox"
	"github.com/quietpage/quietpage/internal/journal"
	"github.com/quietpage/quietpage/internal/logging"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS drafts (
  date        TEXT PRIMARY KEY,
  version     INTEGER NOT NULL,
  envelope    BLOB NOT NULL,
  updated_at  TIMESTAMP NOT NULL
);`)
	require.NoError(t, err)
	return db
}

// fixedKey is a KeySource that is either locked or holds a fixed key.
type fixedKey struct {
	key    []byte
	locked bool
}

func (f *fixedKey) MasterKey() ([]byte, error) {
	if f.locked || f.key == nil {
		return nil, common.ErrLocked
	}
	k := make([]byte, len(f.key))
	copy(k, f.key)
	return k, nil
}

func newCache(t *testing.T, db *sql.DB, keys KeySource) *Cache {
	t.Helper()
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	return NewCache(NewSQLiteRepository(db), keys, log)
}

func TestCache_SaveLoadClear_Unlocked(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	keys := &fixedKey{key: cryptox.GenerateMasterKey()}
	c := newCache(t, db, keys)

	snap := journal.DraftSnapshot{Body: "unsent thoughts", UpdatedAt: time.Now().UTC()}
	require.NoError(t, c.Save(ctx, "2025-02-01", snap))

	got, err := c.Load(ctx, "2025-02-01")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, snap.Body, got.Body)

	// Row on disk must be ciphertext, not the plaintext body.
	var envelope []byte
	require.NoError(t, db.QueryRow(`SELECT envelope FROM drafts WHERE date = ?`, "2025-02-01").Scan(&envelope))
	require.NotContains(t, string(envelope), "unsent thoughts")

	require.NoError(t, c.Clear(ctx, "2025-02-01"))
	got, err = c.Load(ctx, "2025-02-01")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestCache_VolatileFallbackWhenLocked(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	keys := &fixedKey{locked: true}
	c := newCache(t, db, keys)

	snap := journal.DraftSnapshot{Body: "locked-session note", UpdatedAt: time.Now().UTC()}
	require.NoError(t, c.Save(ctx, "2025-02-02", snap))

	// Nothing durable may be written while locked.
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM drafts`).Scan(&n))
	require.Zero(t, n)

	got, err := c.Load(ctx, "2025-02-02")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, snap.Body, got.Body)
}

func TestCache_NewerFormWins(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	keys := &fixedKey{key: cryptox.GenerateMasterKey()}
	c := newCache(t, db, keys)

	old := journal.DraftSnapshot{Body: "older durable", UpdatedAt: time.Now().Add(-time.Hour).UTC()}
	require.NoError(t, c.Save(ctx, "2025-02-03", old))

	// A later volatile edit written while locked must win over the durable row.
	keys.locked = true
	newer := journal.DraftSnapshot{Body: "newer volatile", UpdatedAt: time.Now().UTC()}
	require.NoError(t, c.Save(ctx, "2025-02-03", newer))
	keys.locked = false

	got, err := c.Load(ctx, "2025-02-03")
	require.NoError(t, err)
	require.Equal(t, "newer volatile", got.Body)
}

func TestCache_DiscardsLegacyVersion(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	keys := &fixedKey{key: cryptox.GenerateMasterKey()}
	c := newCache(t, db, keys)

	_, err := db.Exec(`INSERT INTO drafts (date, version, envelope, updated_at) VALUES (?, ?, ?, ?)`,
		"2025-02-04", 99, []byte("whatever"), time.Now())
	require.NoError(t, err)

	got, err := c.Load(ctx, "2025-02-04")
	require.NoError(t, err)
	require.Nil(t, got)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM drafts WHERE date = ?`, "2025-02-04").Scan(&n))
	require.Zero(t, n, "legacy row must be deleted on read")
}

func TestCache_DiscardsUndecryptableRow(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	keys := &fixedKey{key: cryptox.GenerateMasterKey()}
	c := newCache(t, db, keys)

	snap := journal.DraftSnapshot{Body: "x", UpdatedAt: time.Now().UTC()}
	require.NoError(t, c.Save(ctx, "2025-02-05", snap))

	// Key rotation (re-setup) makes old rows undecryptable; they must be
	// dropped silently.
	keys.key = cryptox.GenerateMasterKey()

	got, err := c.Load(ctx, "2025-02-05")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestCache_LockedLoadSkipsDurable(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	keys := &fixedKey{key: cryptox.GenerateMasterKey()}
	c := newCache(t, db, keys)

	require.NoError(t, c.Save(ctx, "2025-02-06", journal.DraftSnapshot{Body: "secret", UpdatedAt: time.Now().UTC()}))

	keys.locked = true
	got, err := c.Load(ctx, "2025-02-06")
	require.NoError(t, err)
	require.Nil(t, got, "durable drafts are unreadable while locked")
}
