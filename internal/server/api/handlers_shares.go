package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	var req shareRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if len(req.Envelope) == 0 {
		badRequest(w, "envelope is required")
		return
	}

	err := s.shares.Share(r.Context(), userIDFrom(r.Context()),
		chi.URLParam(r, "entryRef"), chi.URLParam(r, "professionalID"), req.Envelope)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	err := s.shares.Revoke(r.Context(), userIDFrom(r.Context()),
		chi.URLParam(r, "entryRef"), chi.URLParam(r, "professionalID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleShareList(w http.ResponseWriter, r *http.Request) {
	shares, err := s.shares.ListShared(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]shareDTO, 0, len(shares))
	for _, sh := range shares {
		out = append(out, shareToDTO(sh))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleProfessionalList(w http.ResponseWriter, r *http.Request) {
	pros, err := s.shares.ListLinkedProfessionals(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]professionalDTO, 0, len(pros))
	for _, p := range pros {
		out = append(out, professionalDTO{ID: p.ID, DisplayName: p.DisplayName, Active: p.Active})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleProfessionalKey(w http.ResponseWriter, r *http.Request) {
	key, err := s.shares.GetProfessionalPublicKey(r.Context(), chi.URLParam(r, "professionalID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, publicKeyResponse{PublicKey: key})
}
