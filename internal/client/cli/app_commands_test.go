package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quietpage/quietpage/internal/client/config"
	"github.com/quietpage/quietpage/internal/client/keyring"
	"github.com/quietpage/quietpage/internal/client/models"
	"github.com/quietpage/quietpage/internal/client/nav"
	"github.com/quietpage/quietpage/internal/client/prompts"
	"github.com/quietpage/quietpage/internal/client/session"
	"github.com/quietpage/quietpage/internal/client/share"
	"github.com/quietpage/quietpage/internal/common"
)

// fakeStore is an in-memory remote.Store plus remote.Directory for command
// tests.
type fakeStore struct {
	keyringRec *models.KeyringRecord

	entries map[string]*models.EntryRecord
	nextID  int

	metaFrom, metaTo string
	metas            []models.EntryMeta

	goals      []models.GoalRecord
	goalLinks  [][2]string
	shareCalls []models.ShareRecord
	revokes    [][2]string
	prompts    []models.CoachPrompt

	professionals []models.Professional
	pubKeys       map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: map[string]*models.EntryRecord{}, pubKeys: map[string][]byte{}}
}

func (s *fakeStore) KeyringGet(context.Context) (*models.KeyringRecord, error) {
	if s.keyringRec == nil {
		return nil, common.ErrNotFound
	}
	return s.keyringRec, nil
}
func (s *fakeStore) KeyringPut(_ context.Context, rec *models.KeyringRecord) error {
	s.keyringRec = rec
	return nil
}

func (s *fakeStore) EntryGetByDate(_ context.Context, date string) (*models.EntryRecord, error) {
	rec, ok := s.entries[date]
	if !ok {
		return nil, common.ErrEntryNotFound
	}
	return rec, nil
}
func (s *fakeStore) EntryUpsert(_ context.Context, rec *models.EntryRecord) (*models.EntryRecord, error) {
	out := *rec
	if prev, ok := s.entries[rec.Date]; ok {
		out.ID = prev.ID
	} else {
		s.nextID++
		out.ID = "entry-" + string(rune('0'+s.nextID))
	}
	out.UpdatedAt = time.Now().UTC()
	s.entries[rec.Date] = &out
	return &out, nil
}
func (s *fakeStore) EntryListMeta(_ context.Context, from, to string) ([]models.EntryMeta, error) {
	s.metaFrom, s.metaTo = from, to
	return s.metas, nil
}

func (s *fakeStore) GoalList(context.Context) ([]models.GoalRecord, error) { return s.goals, nil }
func (s *fakeStore) GoalUpsert(_ context.Context, rec *models.GoalRecord) (*models.GoalRecord, error) {
	s.goals = append(s.goals, *rec)
	return rec, nil
}
func (s *fakeStore) GoalDelete(context.Context, string) error { return nil }
func (s *fakeStore) GoalLink(_ context.Context, goalID, entryID string) error {
	s.goalLinks = append(s.goalLinks, [2]string{goalID, entryID})
	return nil
}
func (s *fakeStore) GoalUnlink(context.Context, string, string) error { return nil }

func (s *fakeStore) Share(_ context.Context, entryID, professionalID string, envelope []byte) error {
	s.shareCalls = append(s.shareCalls, models.ShareRecord{
		EntryID: entryID, ProfessionalID: professionalID, Envelope: envelope,
	})
	return nil
}
func (s *fakeStore) RevokeShare(_ context.Context, entryID, professionalID string) error {
	s.revokes = append(s.revokes, [2]string{entryID, professionalID})
	return nil
}
func (s *fakeStore) ListShared(context.Context) ([]models.ShareRecord, error) {
	return s.shareCalls, nil
}

func (s *fakeStore) PromptList(context.Context, models.PromptFilter) ([]models.CoachPrompt, error) {
	return s.prompts, nil
}

func (s *fakeStore) ListLinkedProfessionals(context.Context) ([]models.Professional, error) {
	return s.professionals, nil
}
func (s *fakeStore) GetProfessionalPublicKey(_ context.Context, id string) ([]byte, error) {
	pub, ok := s.pubKeys[id]
	if !ok {
		return nil, common.ErrKeyNotFound
	}
	return pub, nil
}

func newCommandApp(t *testing.T, store *fakeStore) *App {
	t.Helper()
	silencePrintln(t)

	km := keyring.NewManager(store, discardLog())
	require.NoError(t, km.Init(context.Background()))

	month := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	return &App{
		config:   &config.Config{Locale: "en"},
		client:   store,
		keyring:  km,
		session:  session.NewEngine(store, noopDrafts{}, km, session.NewClock(), discardLog()),
		shares:   share.NewService(store, store, km, discardLog()),
		picker:   prompts.NewPicker(store),
		nav:      nav.NewNavigator(&consoleRouter{}, month, nil),
		log:      discardLog(),
		userName: "alice",
		Mode:     ModeOnline,
		reader:   bufio.NewReader(bytes.NewReader(nil)),
	}
}

func unlock(t *testing.T, a *App) {
	t.Helper()
	require.NoError(t, a.keyring.Setup(context.Background(), []byte("journal-pw")))
	require.Equal(t, keyring.StateReady, a.keyring.State())
}

func stubMultiline(t *testing.T, body string) {
	t.Helper()
	orig := getMultiline
	getMultiline = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) { return body, nil }
	t.Cleanup(func() { getMultiline = orig })
}

func TestGoto_DateOpensPage(t *testing.T) {
	a := newCommandApp(t, newFakeStore())

	require.NoError(t, a.Goto(context.Background(), "2025-03-14"))

	assert.Equal(t, "2025-03-14", a.session.ActiveDate())
	assert.Equal(t, "2025-03-14", a.nav.ActiveDate())
	assert.Equal(t, a.nav.IndexFor("2025-03-14"), a.nav.CurrentIndex())
}

func TestGoto_ReservedIndexLeavesSessionAlone(t *testing.T) {
	a := newCommandApp(t, newFakeStore())

	require.NoError(t, a.Goto(context.Background(), "2"))

	assert.Equal(t, nav.IndexCalendar, a.nav.CurrentIndex())
	assert.Empty(t, a.session.ActiveDate())
}

func TestGoto_BadArgumentIsRejected(t *testing.T) {
	a := newCommandApp(t, newFakeStore())

	require.NoError(t, a.Goto(context.Background(), "14-03-2025"))
	assert.Empty(t, a.session.ActiveDate())

	require.NoError(t, a.Goto(context.Background(), "9999"))
	assert.Equal(t, 0, a.nav.CurrentIndex())
}

func TestWriteAndSync_EncryptsUnderDateAAD(t *testing.T) {
	store := newFakeStore()
	a := newCommandApp(t, store)
	unlock(t, a)
	stubMultiline(t, "three little words")

	require.NoError(t, a.Goto(context.Background(), "2025-03-14"))
	require.NoError(t, a.Write(context.Background()))
	assert.True(t, a.session.Dirty())

	require.NoError(t, a.Sync(context.Background()))
	assert.False(t, a.session.Dirty())

	rec := store.entries["2025-03-14"]
	require.NotNil(t, rec)
	assert.Equal(t, []byte("2025-03-14"), rec.AAD)
	assert.Equal(t, 3, rec.WordCount)
	assert.NotContains(t, string(rec.Ciphertext), "little")
}

func TestWrite_OpensTodayWhenNoPage(t *testing.T) {
	store := newFakeStore()
	a := newCommandApp(t, store)
	unlock(t, a)
	stubMultiline(t, "hello")

	require.NoError(t, a.Write(context.Background()))

	today := time.Now().UTC().Format(common.DateLayout)
	assert.Equal(t, today, a.session.ActiveDate())
	assert.Equal(t, "hello", a.session.Body())
}

func TestMonth_QueriesWholeMonth(t *testing.T) {
	store := newFakeStore()
	store.metas = []models.EntryMeta{{Date: "2025-03-14", WordCount: 12, Mood: "calm"}}
	a := newCommandApp(t, store)

	require.NoError(t, a.Month(context.Background(), "2025-03"))

	assert.Equal(t, "2025-03-01", store.metaFrom)
	assert.Equal(t, "2025-03-31", store.metaTo)
	assert.Equal(t, nav.ReservedPages+nav.PagesPerDate*31, a.nav.PageCount())
}

func TestMonth_PinsEntryBearingDates(t *testing.T) {
	store := newFakeStore()
	store.metas = []models.EntryMeta{{Date: "2025-03-14", WordCount: 12}}
	a := newCommandApp(t, store)

	require.NoError(t, a.Month(context.Background(), "2025-03"))
	require.NotEqual(t, -1, a.nav.IndexFor("2025-03-14"))

	// Leaving the month drops plain scaffold days but keeps the entry-bearing
	// one indexed.
	store.metas = nil
	require.NoError(t, a.Month(context.Background(), "2025-04"))
	assert.Equal(t, -1, a.nav.IndexFor("2025-03-15"))
	assert.NotEqual(t, -1, a.nav.IndexFor("2025-03-14"))
}

func TestPinKnownDates_IndexesUnvisitedDates(t *testing.T) {
	store := newFakeStore()
	store.metas = []models.EntryMeta{{Date: "2024-07-04"}, {Date: "2025-03-02"}}
	a := newCommandApp(t, store)

	a.pinKnownDates(context.Background())

	assert.Equal(t, "1970-01-01", store.metaFrom)
	assert.NotEqual(t, -1, a.nav.IndexFor("2024-07-04"), "out-of-month date indexed without a visit")
	assert.NotEqual(t, -1, a.nav.IndexFor("2025-03-02"))
}

func TestShare_UsesEntryRowID(t *testing.T) {
	store := newFakeStore()
	store.pubKeys["pro-1"] = bytes.Repeat([]byte{7}, 32)
	a := newCommandApp(t, store)
	unlock(t, a)
	stubMultiline(t, "private thoughts")

	require.NoError(t, a.Goto(context.Background(), "2025-03-14"))
	require.NoError(t, a.Write(context.Background()))
	require.NoError(t, a.Sync(context.Background()))

	require.NoError(t, a.Share(context.Background(), "pro-1"))

	require.Len(t, store.shareCalls, 1)
	assert.Equal(t, store.entries["2025-03-14"].ID, store.shareCalls[0].EntryID)
	assert.Equal(t, "pro-1", store.shareCalls[0].ProfessionalID)
	assert.NotEmpty(t, store.shareCalls[0].Envelope)
}

func TestShare_NoOpenPage(t *testing.T) {
	store := newFakeStore()
	a := newCommandApp(t, store)

	require.NoError(t, a.Share(context.Background(), "pro-1"))
	assert.Empty(t, store.shareCalls)
}

func TestPrompt_AttachesToOpenEntry(t *testing.T) {
	store := newFakeStore()
	store.prompts = []models.CoachPrompt{{ID: "p-1", Text: "What went well today?", Weight: 1, Enabled: true}}
	a := newCommandApp(t, store)
	unlock(t, a)

	require.NoError(t, a.Goto(context.Background(), "2025-03-14"))
	require.NoError(t, a.Prompt(context.Background()))

	assert.Equal(t, "p-1", a.session.PromptID())
}

func TestLinkGoal_ResolvesEntryID(t *testing.T) {
	store := newFakeStore()
	a := newCommandApp(t, store)
	unlock(t, a)
	stubMultiline(t, "progress")

	require.NoError(t, a.Goto(context.Background(), "2025-03-14"))
	require.NoError(t, a.Write(context.Background()))
	require.NoError(t, a.Sync(context.Background()))

	require.NoError(t, a.LinkGoal(context.Background(), "goal-1"))

	require.Len(t, store.goalLinks, 1)
	assert.Equal(t, "goal-1", store.goalLinks[0][0])
	assert.Equal(t, store.entries["2025-03-14"].ID, store.goalLinks[0][1])
}
