package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/quietpage/quietpage/internal/common"
	"github.com/quietpage/quietpage/internal/server/models"
	"github.com/quietpage/quietpage/internal/server/services"
)

func (s *Server) handleKeyringGet(w http.ResponseWriter, r *http.Request) {
	rec, err := s.entries.GetKeyring(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, keyringDTO{
		WrappedMasterKey: rec.WrappedMasterKey,
		Salt:             rec.Salt,
		KDFParams:        json.RawMessage(rec.KDFParams),
	})
}

func (s *Server) handleKeyringPut(w http.ResponseWriter, r *http.Request) {
	var req keyringDTO
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if len(req.WrappedMasterKey) == 0 || len(req.Salt) == 0 || !json.Valid(req.KDFParams) {
		badRequest(w, "wrappedMasterKey, salt and kdfParams are required")
		return
	}

	err := s.entries.PutKeyring(r.Context(), &models.Keyring{
		UserID:           userIDFrom(r.Context()),
		WrappedMasterKey: req.WrappedMasterKey,
		Salt:             req.Salt,
		KDFParams:        []byte(req.KDFParams),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleEntryGet(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "entryRef")
	if !validDate(date) {
		badRequest(w, "invalid date")
		return
	}
	userID := userIDFrom(r.Context())

	entry, err := s.entries.GetByDate(r.Context(), userID, date)
	if err != nil {
		writeError(w, err)
		return
	}

	sharedWith, err := s.sharedWith(r, userID, entry.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entryToDTO(entry, sharedWith))
}

func (s *Server) handleEntryPut(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "entryRef")
	if !validDate(date) {
		badRequest(w, "invalid date")
		return
	}

	var req entryDTO
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if len(req.Ciphertext) == 0 || len(req.Nonce) == 0 {
		badRequest(w, "ciphertext and nonce are required")
		return
	}

	saved, err := s.entries.Upsert(r.Context(), &models.Entry{
		UserID:     userIDFrom(r.Context()),
		Date:       date,
		Ciphertext: req.Ciphertext,
		Nonce:      req.Nonce,
		AAD:        req.AAD,
		WordCount:  req.WordCount,
		Mood:       req.Mood,
		TZAtEntry:  req.TZAtEntry,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entryToDTO(saved, nil))
}

func (s *Server) handleEntryListMeta(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if !validDate(from) || !validDate(to) {
		badRequest(w, "from and to must be dates")
		return
	}

	meta, err := s.entries.ListMeta(r.Context(), userIDFrom(r.Context()), from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	if meta == nil {
		meta = []services.EntryMeta{}
	}
	writeJSON(w, http.StatusOK, meta)
}

// sharedWith lists the professional IDs currently holding a share envelope
// for the entry.
func (s *Server) sharedWith(r *http.Request, userID, entryID string) ([]string, error) {
	shares, err := s.shares.ListShared(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, sh := range shares {
		if sh.EntryID == entryID {
			ids = append(ids, sh.ProfessionalID)
		}
	}
	return ids, nil
}

func validDate(date string) bool {
	_, err := time.Parse(common.DateLayout, date)
	return err == nil
}
