// Package session implements the entry session engine: the single source of
// truth for what the editor shows for the active date, and the
// debounce/flush machinery that guarantees edits eventually reach the remote
// store without losing concurrent updates from another device.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/quietpage/quietpage/internal/client/models"
	"github.com/quietpage/quietpage/internal/common"
	"github.com/quietpage/quietpage/internal/cryptox"
	"github.com/quietpage/quietpage/internal/journal"
	"github.com/quietpage/quietpage/internal/logging"
)

// DefaultDebounce is the delay after the last keystroke before a save fires.
const DefaultDebounce = 10 * time.Second

// EntryStore is the slice of the remote contract the engine needs.
type EntryStore interface {
	EntryGetByDate(ctx context.Context, date string) (*models.EntryRecord, error)
	EntryUpsert(ctx context.Context, rec *models.EntryRecord) (*models.EntryRecord, error)
}

// DraftCache is the local snapshot store for unsynced edits.
type DraftCache interface {
	Save(ctx context.Context, date string, snap journal.DraftSnapshot) error
	Load(ctx context.Context, date string) (*journal.DraftSnapshot, error)
	Clear(ctx context.Context, date string) error
}

// KeySource yields the master key, or common.ErrLocked when unavailable.
type KeySource interface {
	MasterKey() ([]byte, error)
}

// Engine owns the editing session. Methods are safe for concurrent use; the
// mutex is never held across network or crypto calls, so interleavings are
// resolved by the load-generation counter and the last-saved short circuit
// rather than by blocking.
type Engine struct {
	store    EntryStore
	drafts   DraftCache
	keys     KeySource
	clock    Clock
	log      logging.Logger
	debounce time.Duration
	tz       string

	mu      sync.Mutex
	active  string
	body    string
	dirty   bool
	loadSeq uint64

	// Per-date bookkeeping. pending holds the body awaiting a remote save;
	// lastSaved the body most recently persisted remotely, used to
	// short-circuit redundant saves.
	timers    map[string]Timer
	pending   map[string]string
	lastSaved map[string]string
	createdAt map[string]time.Time
	promptIDs map[string]string
	moods     map[string]string
}

// NewEngine wires the engine to its collaborators. The debounce window is
// DefaultDebounce.
func NewEngine(store EntryStore, drafts DraftCache, keys KeySource, clock Clock, log logging.Logger) *Engine {
	return &Engine{
		store:     store,
		drafts:    drafts,
		keys:      keys,
		clock:     clock,
		log:       log.With("component", "session"),
		debounce:  DefaultDebounce,
		tz:        time.Now().Location().String(),
		timers:    make(map[string]Timer),
		pending:   make(map[string]string),
		lastSaved: make(map[string]string),
		createdAt: make(map[string]time.Time),
		promptIDs: make(map[string]string),
		moods:     make(map[string]string),
	}
}

// ActiveDate returns the date currently being edited, or "".
func (e *Engine) ActiveDate() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Body returns the body currently shown by the editor.
func (e *Engine) Body() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.body
}

// Dirty reports whether the shown body has edits not yet persisted remotely.
func (e *Engine) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirty
}

// PromptID returns the coach prompt attached to the active date's entry, or "".
func (e *Engine) PromptID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.promptIDs[e.active]
}

// Open switches the active date. Any pending save for the outgoing date is
// flushed synchronously first (never dropped), then the draft and remote
// entry for the new date are loaded and reconciled. A load that is no longer
// the most recent one for the engine is discarded without touching the
// editor.
func (e *Engine) Open(ctx context.Context, date string) error {
	e.mu.Lock()
	prev := e.active
	e.loadSeq++
	seq := e.loadSeq
	e.active = date
	e.body = ""
	e.dirty = false
	e.mu.Unlock()

	if prev != "" && prev != date {
		if err := e.saveDate(ctx, prev); err != nil {
			// The draft is still cached and the pending body retained; the
			// next flush retries it.
			e.log.Warn(ctx, "flush on switch failed", "date", prev, "error", err)
		}
	}

	draft, err := e.drafts.Load(ctx, date)
	if err != nil {
		e.log.Warn(ctx, "draft load failed", "date", date, "error", err)
		draft = nil
	}

	remote, remoteUpdated, rerr := e.loadRemote(ctx, date)
	if rerr != nil {
		// Unreachable remote is treated as absent so the cached draft still
		// reaches the editor; the error is surfaced to the caller alongside.
		e.log.Warn(ctx, "remote entry load failed", "date", date, "error", rerr)
		remote, remoteUpdated = nil, time.Time{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if seq != e.loadSeq || e.active != date {
		return rerr
	}
	e.reconcileLocked(date, draft, remote, remoteUpdated)
	return rerr
}

// loadRemote fetches and decrypts the remote entry for date. A missing entry
// and a locked keyring both yield (nil, zero, nil): the editor simply has no
// remote content to show.
func (e *Engine) loadRemote(ctx context.Context, date string) (*journal.EntryContent, time.Time, error) {
	rec, err := e.store.EntryGetByDate(ctx, date)
	if err != nil {
		if errors.Is(err, common.ErrEntryNotFound) {
			return nil, time.Time{}, nil
		}
		return nil, time.Time{}, fmt.Errorf("entry load: %w", err)
	}

	key, err := e.keys.MasterKey()
	if err != nil {
		if errors.Is(err, common.ErrLocked) {
			e.log.Debug(ctx, "remote entry present but keyring locked", "date", date)
			return nil, time.Time{}, nil
		}
		return nil, time.Time{}, err
	}
	defer common.WipeByteArray(key)

	plaintext, err := cryptox.Open(key, rec.Ciphertext, rec.Nonce, rec.AAD)
	if err != nil {
		e.log.Warn(ctx, "remote entry failed decryption", "date", date)
		return nil, time.Time{}, nil
	}
	content, err := journal.DecodeEntryContent(plaintext)
	if err != nil {
		e.log.Warn(ctx, "remote entry malformed", "date", date)
		return nil, time.Time{}, nil
	}
	return &content, rec.UpdatedAt, nil
}

// reconcileLocked applies the reconciliation policy once both loads settled.
func (e *Engine) reconcileLocked(date string, draft *journal.DraftSnapshot, remote *journal.EntryContent, remoteUpdated time.Time) {
	if remote != nil {
		e.createdAt[date] = remote.CreatedAt
		e.promptIDs[date] = remote.CoachPromptID
	}

	switch {
	case draft == nil && remote == nil:
		// Editor stays empty.
	case draft != nil && (remote == nil || draft.UpdatedAt.After(remoteUpdated)):
		// The draft is the freshest copy: show it, mark dirty and arm a save
		// so it eventually flushes.
		e.body = draft.Body
		e.dirty = true
		e.pending[date] = draft.Body
		e.armTimerLocked(date)
	default:
		if len(remote.Body) < len(e.body) {
			// A remote body strictly shorter than what is rendered is
			// treated as stale relative to in-flight local edits.
			return
		}
		e.body = remote.Body
		e.dirty = false
		e.lastSaved[date] = remote.Body
	}
}

// SetBody records a keystroke: it updates the shown body, persists a draft
// snapshot, and re-arms the debounced save. Enqueue is a no-op when the body
// equals the last remotely persisted one.
func (e *Engine) SetBody(ctx context.Context, body string) {
	e.mu.Lock()
	date := e.active
	if date == "" {
		e.mu.Unlock()
		return
	}
	e.body = body

	if last, ok := e.lastSaved[date]; ok && body == last {
		e.dirty = false
		delete(e.pending, date)
		e.stopTimerLocked(date)
		e.mu.Unlock()
		return
	}

	e.dirty = true
	e.pending[date] = body
	e.armTimerLocked(date)
	snap := journal.DraftSnapshot{Body: body, UpdatedAt: e.clock.Now().UTC()}
	e.mu.Unlock()

	if err := e.drafts.Save(ctx, date, snap); err != nil {
		e.log.Warn(ctx, "draft save failed", "date", date, "error", err)
	}
}

// SetPrompt attaches a coach prompt to the active date's entry. Treated as an
// edit: the entry is re-saved with the prompt recorded in its content.
func (e *Engine) SetPrompt(promptID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == "" {
		return
	}
	e.promptIDs[e.active] = promptID
	e.dirty = true
	e.pending[e.active] = e.body
	e.armTimerLocked(e.active)
}

// SetMood records the mood scalar for the active date. Moods are
// non-sensitive metadata stored in plaintext next to the ciphertext.
func (e *Engine) SetMood(mood string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == "" {
		return
	}
	e.moods[e.active] = mood
	e.dirty = true
	e.pending[e.active] = e.body
	e.armTimerLocked(e.active)
}

// Flush forces an immediate save of the active date's pending edit.
func (e *Engine) Flush(ctx context.Context) error {
	e.mu.Lock()
	date := e.active
	e.mu.Unlock()
	if date == "" {
		return nil
	}
	return e.saveDate(ctx, date)
}

// Close flushes every date with a pending edit and stops all timers. Called
// on shutdown.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	dates := make([]string, 0, len(e.pending))
	for date := range e.pending {
		dates = append(dates, date)
	}
	e.mu.Unlock()

	var firstErr error
	for _, date := range dates {
		if err := e.saveDate(ctx, date); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// saveDate performs one save attempt for date. On failure the pending body
// is retained so the next flush retries it; nothing is discarded locally.
func (e *Engine) saveDate(ctx context.Context, date string) error {
	e.mu.Lock()
	e.stopTimerLocked(date)
	body, ok := e.pending[date]
	if !ok || body == e.lastSaved[date] {
		delete(e.pending, date)
		e.mu.Unlock()
		return nil
	}
	createdAt := e.createdAt[date]
	promptID := e.promptIDs[date]
	mood := e.moods[date]
	e.mu.Unlock()

	key, err := e.keys.MasterKey()
	if err != nil {
		e.log.Warn(ctx, "save skipped", "date", date, "error", err)
		return err
	}
	defer common.WipeByteArray(key)

	now := e.clock.Now().UTC()
	if createdAt.IsZero() {
		createdAt = now
	}
	content := journal.EntryContent{Body: body, CreatedAt: createdAt, UpdatedAt: now, CoachPromptID: promptID}
	plaintext, err := journal.EncodeEntryContent(content)
	if err != nil {
		return err
	}
	// The date doubles as AAD so a ciphertext cannot be replayed under
	// another date's row.
	ciphertext, nonce, err := cryptox.Seal(key, plaintext, []byte(date))
	if err != nil {
		return err
	}

	rec := &models.EntryRecord{
		Date:       date,
		Ciphertext: ciphertext,
		Nonce:      nonce,
		AAD:        []byte(date),
		WordCount:  journal.WordCount(body),
		Mood:       mood,
		TZAtEntry:  e.tz,
	}
	if _, err := e.store.EntryUpsert(ctx, rec); err != nil {
		e.log.Warn(ctx, "entry save failed", "date", date, "error", err)
		return err
	}

	e.mu.Lock()
	e.lastSaved[date] = body
	e.createdAt[date] = createdAt
	clearDraft := false
	if e.pending[date] == body {
		delete(e.pending, date)
		clearDraft = true
	}
	if e.active == date && e.body == body {
		e.dirty = false
	}
	e.mu.Unlock()

	if clearDraft {
		if err := e.drafts.Clear(ctx, date); err != nil {
			e.log.Warn(ctx, "draft clear failed", "date", date, "error", err)
		}
	}
	e.log.Debug(ctx, "entry saved", "date", date, "words", rec.WordCount)
	return nil
}

// armTimerLocked (re)arms the debounce timer for date. A later enqueue always
// supersedes an earlier pending one. Timer fires are best-effort: failures
// are logged and the pending body is retried by the next flush trigger.
func (e *Engine) armTimerLocked(date string) {
	e.stopTimerLocked(date)
	e.timers[date] = e.clock.AfterFunc(e.debounce, func() {
		_ = e.saveDate(context.Background(), date)
	})
}

func (e *Engine) stopTimerLocked(date string) {
	if t, ok := e.timers[date]; ok {
		t.Stop()
		delete(e.timers, date)
	}
}
