package services

import (
	"context"
	"errors"
	"testing"

	"github.com/quietpage/quietpage/internal/common"
	"github.com/quietpage/quietpage/internal/server/models"
)

type fakeEntriesRepo struct {
	getByIDOut *models.Entry
	getByIDErr error
}

func (f *fakeEntriesRepo) GetByDate(context.Context, string, string) (*models.Entry, error) {
	return nil, common.ErrEntryNotFound
}
func (f *fakeEntriesRepo) GetByID(context.Context, string, string) (*models.Entry, error) {
	if f.getByIDErr != nil {
		return nil, f.getByIDErr
	}
	return f.getByIDOut, nil
}
func (f *fakeEntriesRepo) Upsert(_ context.Context, e *models.Entry) (*models.Entry, error) {
	return e, nil
}
func (f *fakeEntriesRepo) ListRange(context.Context, string, string, string) ([]models.Entry, error) {
	return nil, nil
}

type fakeProfessionalsRepo struct {
	linked    bool
	linkedErr error
	pubKey    []byte
}

func (f *fakeProfessionalsRepo) ListLinked(context.Context, string) ([]models.Professional, error) {
	return nil, nil
}
func (f *fakeProfessionalsRepo) GetPublicKey(context.Context, string) ([]byte, error) {
	if f.pubKey == nil {
		return nil, common.ErrKeyNotFound
	}
	return f.pubKey, nil
}
func (f *fakeProfessionalsRepo) IsLinked(context.Context, string, string) (bool, error) {
	return f.linked, f.linkedErr
}

type fakeSharesRepo struct {
	upserts []models.Share
	audits  []models.ShareAudit

	upsertErr error
	deleteErr error
	auditErr  error

	deletes [][3]string
}

func (f *fakeSharesRepo) Upsert(_ context.Context, s *models.Share) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts = append(f.upserts, *s)
	return nil
}
func (f *fakeSharesRepo) Delete(_ context.Context, entryID, ownerUserID, professionalID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletes = append(f.deletes, [3]string{entryID, ownerUserID, professionalID})
	return nil
}
func (f *fakeSharesRepo) ListByOwner(context.Context, string) ([]models.Share, error) {
	return nil, nil
}
func (f *fakeSharesRepo) InsertAudit(_ context.Context, a *models.ShareAudit) error {
	if f.auditErr != nil {
		return f.auditErr
	}
	f.audits = append(f.audits, *a)
	return nil
}

func TestShare_WritesRowAndAuditInOneTx(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	sharesRepo := &fakeSharesRepo{}
	rm := &fakeRepoManager{
		e:  &fakeEntriesRepo{getByIDOut: &models.Entry{ID: "e1", UserID: "u1"}},
		pr: &fakeProfessionalsRepo{linked: true},
		sh: sharesRepo,
	}
	s := NewShareService(db, rm)

	err := s.Share(context.Background(), "u1", "e1", "pro-1", []byte("envelope"))
	if err != nil {
		t.Fatalf("Share error: %v", err)
	}
	if len(sharesRepo.upserts) != 1 || sharesRepo.upserts[0].ProfessionalID != "pro-1" {
		t.Fatalf("share row not written: %+v", sharesRepo.upserts)
	}
	if len(sharesRepo.audits) != 1 || sharesRepo.audits[0].Action != "shared" {
		t.Fatalf("shared audit not written: %+v", sharesRepo.audits)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestShare_UnlinkedProfessional(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	sharesRepo := &fakeSharesRepo{}
	rm := &fakeRepoManager{
		e:  &fakeEntriesRepo{getByIDOut: &models.Entry{ID: "e1", UserID: "u1"}},
		pr: &fakeProfessionalsRepo{linked: false},
		sh: sharesRepo,
	}
	s := NewShareService(db, rm)

	err := s.Share(context.Background(), "u1", "e1", "pro-1", []byte("envelope"))
	if !errors.Is(err, common.ErrProfessionalNotLinked) {
		t.Fatalf("want ErrProfessionalNotLinked, got %v", err)
	}
	if len(sharesRepo.upserts) != 0 {
		t.Fatalf("share row written despite missing link")
	}
	// No transaction should have been opened.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestShare_UnownedEntry(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{
		e:  &fakeEntriesRepo{getByIDErr: common.ErrEntryNotFound},
		pr: &fakeProfessionalsRepo{linked: true},
		sh: &fakeSharesRepo{},
	}
	s := NewShareService(db, rm)

	err := s.Share(context.Background(), "intruder", "e1", "pro-1", []byte("envelope"))
	if !errors.Is(err, common.ErrEntryNotFound) {
		t.Fatalf("want ErrEntryNotFound, got %v", err)
	}
}

func TestShare_AuditFailureRollsBack(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	rm := &fakeRepoManager{
		e:  &fakeEntriesRepo{getByIDOut: &models.Entry{ID: "e1", UserID: "u1"}},
		pr: &fakeProfessionalsRepo{linked: true},
		sh: &fakeSharesRepo{auditErr: errBoom{}},
	}
	s := NewShareService(db, rm)

	if err := s.Share(context.Background(), "u1", "e1", "pro-1", []byte("envelope")); err == nil {
		t.Fatalf("want error from audit insert")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestRevoke_WritesAudit(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	sharesRepo := &fakeSharesRepo{}
	rm := &fakeRepoManager{sh: sharesRepo}
	s := NewShareService(db, rm)

	if err := s.Revoke(context.Background(), "u1", "e1", "pro-1"); err != nil {
		t.Fatalf("Revoke error: %v", err)
	}
	if len(sharesRepo.deletes) != 1 {
		t.Fatalf("share row not deleted")
	}
	if len(sharesRepo.audits) != 1 || sharesRepo.audits[0].Action != AuditRevoked {
		t.Fatalf("revoked audit not written: %+v", sharesRepo.audits)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}
