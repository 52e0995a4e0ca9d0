package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/quietpage/quietpage/internal/server/models"
)

func (s *Server) handleGoalList(w http.ResponseWriter, r *http.Request) {
	goals, err := s.goals.List(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]goalDTO, 0, len(goals))
	for i := range goals {
		out = append(out, goalToDTO(&goals[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGoalPut(w http.ResponseWriter, r *http.Request) {
	var req goalDTO
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if len(req.Ciphertext) == 0 || len(req.Nonce) == 0 {
		badRequest(w, "ciphertext and nonce are required")
		return
	}

	saved, err := s.goals.Upsert(r.Context(), &models.Goal{
		ID:         chi.URLParam(r, "goalID"),
		UserID:     userIDFrom(r.Context()),
		Ciphertext: req.Ciphertext,
		Nonce:      req.Nonce,
		AAD:        req.AAD,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, goalToDTO(saved))
}

func (s *Server) handleGoalDelete(w http.ResponseWriter, r *http.Request) {
	err := s.goals.Delete(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "goalID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleGoalLink(w http.ResponseWriter, r *http.Request) {
	err := s.goals.Link(r.Context(), userIDFrom(r.Context()),
		chi.URLParam(r, "goalID"), chi.URLParam(r, "entryID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleGoalUnlink(w http.ResponseWriter, r *http.Request) {
	err := s.goals.Unlink(r.Context(), userIDFrom(r.Context()),
		chi.URLParam(r, "goalID"), chi.URLParam(r, "entryID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}
