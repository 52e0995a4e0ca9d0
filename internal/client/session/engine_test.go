package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/quietpage/quietpage/internal/client/models"
	"github.com/quietpage/quietpage/internal/common"
	"github.com/quietpage/quietpage/internal/cryptox"
	"github.com/quietpage/quietpage/internal/journal"
	"github.com/quietpage/quietpage/internal/logging"
	"github.com/stretchr/testify/require"
)

// fakeClock drives AfterFunc callbacks synchronously from Advance.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return !t.fired
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

// fakeStore records every call in order and can gate reads to exercise
// interleavings.
type fakeStore struct {
	mu        sync.Mutex
	entries   map[string]*models.EntryRecord
	ops       []string
	gates     map[string]chan struct{}
	getErr    error
	upsertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: map[string]*models.EntryRecord{}, gates: map[string]chan struct{}{}}
}

func (s *fakeStore) EntryGetByDate(ctx context.Context, date string) (*models.EntryRecord, error) {
	s.mu.Lock()
	gate := s.gates[date]
	s.ops = append(s.ops, "get:"+date)
	rec := s.entries[date]
	getErr := s.getErr
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if getErr != nil {
		return nil, getErr
	}
	if rec == nil {
		return nil, common.ErrEntryNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *fakeStore) EntryUpsert(ctx context.Context, rec *models.EntryRecord) (*models.EntryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return nil, s.upsertErr
	}
	s.ops = append(s.ops, "upsert:"+rec.Date)
	cp := *rec
	cp.UpdatedAt = time.Now().UTC()
	s.entries[rec.Date] = &cp
	return &cp, nil
}

func (s *fakeStore) upserts(date string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, op := range s.ops {
		if op == "upsert:"+date {
			n++
		}
	}
	return n
}

// memDrafts is an in-memory DraftCache.
type memDrafts struct {
	mu sync.Mutex
	m  map[string]journal.DraftSnapshot
}

func newMemDrafts() *memDrafts { return &memDrafts{m: map[string]journal.DraftSnapshot{}} }

func (d *memDrafts) Save(ctx context.Context, date string, snap journal.DraftSnapshot) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.m[date] = snap
	return nil
}

func (d *memDrafts) Load(ctx context.Context, date string) (*journal.DraftSnapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	snap, ok := d.m[date]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (d *memDrafts) Clear(ctx context.Context, date string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.m, date)
	return nil
}

type staticKey struct{ key []byte }

func (s staticKey) MasterKey() ([]byte, error) {
	k := make([]byte, len(s.key))
	copy(k, s.key)
	return k, nil
}

type harness struct {
	engine *Engine
	store  *fakeStore
	drafts *memDrafts
	clock  *fakeClock
	key    []byte
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:  newFakeStore(),
		drafts: newMemDrafts(),
		clock:  newFakeClock(),
		key:    cryptox.GenerateMasterKey(),
	}
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	h.engine = NewEngine(h.store, h.drafts, staticKey{key: h.key}, h.clock, log)
	return h
}

// seedRemote places an encrypted entry into the fake store.
func (h *harness) seedRemote(t *testing.T, date, body string, updatedAt time.Time) {
	t.Helper()
	content := journal.EntryContent{Body: body, CreatedAt: updatedAt, UpdatedAt: updatedAt}
	plaintext, err := journal.EncodeEntryContent(content)
	require.NoError(t, err)
	ciphertext, nonce, err := cryptox.Seal(h.key, plaintext, []byte(date))
	require.NoError(t, err)
	h.store.entries[date] = &models.EntryRecord{
		Date: date, Ciphertext: ciphertext, Nonce: nonce, AAD: []byte(date), UpdatedAt: updatedAt,
	}
}

func (h *harness) decryptRemote(t *testing.T, date string) journal.EntryContent {
	t.Helper()
	rec := h.store.entries[date]
	require.NotNil(t, rec)
	plaintext, err := cryptox.Open(h.key, rec.Ciphertext, rec.Nonce, rec.AAD)
	require.NoError(t, err)
	content, err := journal.DecodeEntryContent(plaintext)
	require.NoError(t, err)
	return content
}

func TestEngine_DebounceCoalescing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, h.engine.Open(ctx, "2025-01-10"))

	// Keystrokes one second apart; each resets the window.
	for i := 0; i <= 5; i++ {
		h.engine.SetBody(ctx, fmt.Sprintf("Hello world %d", i))
		if i < 5 {
			h.clock.Advance(time.Second)
		}
	}
	h.clock.Advance(9 * time.Second)
	require.Zero(t, h.store.upserts("2025-01-10"), "save must not fire before the full window elapses")

	h.clock.Advance(time.Second)
	require.Equal(t, 1, h.store.upserts("2025-01-10"), "exactly one coalesced save")
	require.Equal(t, "Hello world 5", h.decryptRemote(t, "2025-01-10").Body)
	require.False(t, h.engine.Dirty())
}

func TestEngine_FlushOnSwitch(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, h.engine.Open(ctx, "2025-01-10"))
	h.engine.SetBody(ctx, "pending body for A")

	require.NoError(t, h.engine.Open(ctx, "2025-01-11"))

	require.Equal(t, 1, h.store.upserts("2025-01-10"))
	require.Equal(t, "pending body for A", h.decryptRemote(t, "2025-01-10").Body)

	// The flush for A must precede B's load.
	h.store.mu.Lock()
	ops := append([]string(nil), h.store.ops...)
	h.store.mu.Unlock()
	iUpsert, iGet := -1, -1
	for i, op := range ops {
		if op == "upsert:2025-01-10" {
			iUpsert = i
		}
		if op == "get:2025-01-11" {
			iGet = i
		}
	}
	require.GreaterOrEqual(t, iUpsert, 0)
	require.Greater(t, iGet, iUpsert)
}

func TestEngine_StaleLoadRejected(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	now := h.clock.Now()
	h.seedRemote(t, "2025-01-10", "body of A", now)
	h.seedRemote(t, "2025-01-11", "body of B", now)

	gate := make(chan struct{})
	h.store.gates["2025-01-10"] = gate

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = h.engine.Open(ctx, "2025-01-10") // blocks on the gate
	}()

	// Wait until A's read is issued, then supersede it with B.
	require.Eventually(t, func() bool {
		h.store.mu.Lock()
		defer h.store.mu.Unlock()
		for _, op := range h.store.ops {
			if op == "get:2025-01-10" {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)

	require.NoError(t, h.engine.Open(ctx, "2025-01-11"))
	require.Equal(t, "body of B", h.engine.Body())

	close(gate)
	wg.Wait()

	// A's late result must not clobber the editor.
	require.Equal(t, "2025-01-11", h.engine.ActiveDate())
	require.Equal(t, "body of B", h.engine.Body())
}

func TestEngine_NoOpShortCircuit(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, h.engine.Open(ctx, "2025-01-10"))

	h.engine.SetBody(ctx, "same text")
	h.clock.Advance(DefaultDebounce)
	require.Equal(t, 1, h.store.upserts("2025-01-10"))

	// Re-entering identical content issues zero additional network calls.
	h.engine.SetBody(ctx, "same text")
	h.clock.Advance(2 * DefaultDebounce)
	require.NoError(t, h.engine.Flush(ctx))
	require.Equal(t, 1, h.store.upserts("2025-01-10"))
	require.False(t, h.engine.Dirty())
}

func TestEngine_DraftNewerThanRemoteWins(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	now := h.clock.Now()
	h.seedRemote(t, "2025-02-01", "older remote body", now.Add(-time.Hour))
	require.NoError(t, h.drafts.Save(ctx, "2025-02-01", journal.DraftSnapshot{Body: "newer draft body", UpdatedAt: now}))

	require.NoError(t, h.engine.Open(ctx, "2025-02-01"))
	require.Equal(t, "newer draft body", h.engine.Body())
	require.True(t, h.engine.Dirty())

	// The recovered draft must eventually flush on its own.
	h.clock.Advance(DefaultDebounce)
	require.Equal(t, "newer draft body", h.decryptRemote(t, "2025-02-01").Body)
	snap, err := h.drafts.Load(ctx, "2025-02-01")
	require.NoError(t, err)
	require.Nil(t, snap, "draft cleared after a successful save")
}

func TestEngine_RemoteNewerThanDraftApplies(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	now := h.clock.Now()
	h.seedRemote(t, "2025-02-01", "fresher remote body", now)
	require.NoError(t, h.drafts.Save(ctx, "2025-02-01", journal.DraftSnapshot{Body: "old", UpdatedAt: now.Add(-time.Hour)}))

	require.NoError(t, h.engine.Open(ctx, "2025-02-01"))
	require.Equal(t, "fresher remote body", h.engine.Body())
	require.False(t, h.engine.Dirty())
}

func TestEngine_ShorterRemoteIgnoredAgainstInFlightEdits(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	now := h.clock.Now()
	h.seedRemote(t, "2025-01-10", "tiny", now)

	gate := make(chan struct{})
	h.store.gates["2025-01-10"] = gate

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = h.engine.Open(ctx, "2025-01-10")
	}()
	require.Eventually(t, func() bool {
		h.store.mu.Lock()
		defer h.store.mu.Unlock()
		for _, op := range h.store.ops {
			if op == "get:2025-01-10" {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)

	// The user keeps typing while the load is in flight.
	h.engine.SetBody(ctx, "a much longer local body still being typed")
	close(gate)
	wg.Wait()

	require.Equal(t, "a much longer local body still being typed", h.engine.Body())
	require.True(t, h.engine.Dirty())
}

func TestEngine_FailedSaveKeepsPendingForRetry(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, h.engine.Open(ctx, "2025-01-10"))

	h.store.mu.Lock()
	h.store.upsertErr = errors.New("network down")
	h.store.mu.Unlock()

	h.engine.SetBody(ctx, "must not be lost")
	h.clock.Advance(DefaultDebounce)
	require.Zero(t, h.store.upserts("2025-01-10"))
	require.True(t, h.engine.Dirty())

	// The draft stays cached until a save actually succeeds.
	snap, err := h.drafts.Load(ctx, "2025-01-10")
	require.NoError(t, err)
	require.NotNil(t, snap)
	require.Equal(t, "must not be lost", snap.Body)

	h.store.mu.Lock()
	h.store.upsertErr = nil
	h.store.mu.Unlock()

	require.NoError(t, h.engine.Flush(ctx))
	require.Equal(t, 1, h.store.upserts("2025-01-10"))
	require.Equal(t, "must not be lost", h.decryptRemote(t, "2025-01-10").Body)
	require.False(t, h.engine.Dirty())
}

func TestEngine_OpenRecoversDraftWhenRemoteUnreachable(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	now := h.clock.Now()
	require.NoError(t, h.drafts.Save(ctx, "2025-01-10", journal.DraftSnapshot{Body: "offline draft", UpdatedAt: now}))

	h.store.mu.Lock()
	h.store.getErr = errors.New("network down")
	h.store.mu.Unlock()

	// The load failure is reported, but the cached draft still reaches the
	// editor instead of leaving an empty page the next keystroke would
	// overwrite.
	err := h.engine.Open(ctx, "2025-01-10")
	require.Error(t, err)
	require.Equal(t, "2025-01-10", h.engine.ActiveDate())
	require.Equal(t, "offline draft", h.engine.Body())
	require.True(t, h.engine.Dirty())

	h.store.mu.Lock()
	h.store.getErr = nil
	h.store.mu.Unlock()

	require.NoError(t, h.engine.Flush(ctx))
	require.Equal(t, "offline draft", h.decryptRemote(t, "2025-01-10").Body)
}

func TestEngine_SavePreservesCreatedAt(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	created := h.clock.Now().Add(-48 * time.Hour)
	h.seedRemote(t, "2025-01-08", "first version", created)

	require.NoError(t, h.engine.Open(ctx, "2025-01-08"))
	h.engine.SetBody(ctx, "second version")
	require.NoError(t, h.engine.Flush(ctx))

	content := h.decryptRemote(t, "2025-01-08")
	require.Equal(t, "second version", content.Body)
	require.True(t, created.Equal(content.CreatedAt))
	require.True(t, content.UpdatedAt.After(content.CreatedAt))
}

func TestEngine_CloseFlushesAllPending(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, h.engine.Open(ctx, "2025-01-10"))
	h.engine.SetBody(ctx, "entry A")
	require.NoError(t, h.engine.Open(ctx, "2025-01-11"))
	h.engine.SetBody(ctx, "entry B")

	require.NoError(t, h.engine.Close(ctx))
	require.Equal(t, "entry A", h.decryptRemote(t, "2025-01-10").Body)
	require.Equal(t, "entry B", h.decryptRemote(t, "2025-01-11").Body)
}

func TestEngine_WordCountStoredAsPlainMetadata(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, h.engine.Open(ctx, "2025-01-10"))
	h.engine.SetBody(ctx, "one two  three\nfour")
	require.NoError(t, h.engine.Flush(ctx))
	require.Equal(t, 4, h.store.entries["2025-01-10"].WordCount)
}
