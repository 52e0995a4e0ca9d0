package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/quietpage/quietpage/internal/server/models"
	"github.com/quietpage/quietpage/internal/server/repositories/prompts"
)

func (s *Server) handlePromptList(w http.ResponseWriter, r *http.Request) {
	f, err := promptFilterFromQuery(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	list, err := s.prompts.List(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]promptDTO, 0, len(list))
	for i := range list {
		out = append(out, promptToDTO(&list[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePromptCreate(w http.ResponseWriter, r *http.Request) {
	var req promptDTO
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if req.Text == "" {
		badRequest(w, "text is required")
		return
	}

	saved, err := s.prompts.Create(r.Context(), promptFromDTO(&req))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, promptToDTO(saved))
}

func (s *Server) handlePromptUpdate(w http.ResponseWriter, r *http.Request) {
	var req promptDTO
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	p := promptFromDTO(&req)
	p.ID = chi.URLParam(r, "promptID")

	if err := s.prompts.Update(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handlePromptDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.prompts.Delete(r.Context(), chi.URLParam(r, "promptID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func promptFromDTO(d *promptDTO) *models.Prompt {
	return &models.Prompt{
		ID:      d.ID,
		Locale:  d.Locale,
		Scope:   d.Scope,
		Text:    d.Text,
		Tags:    d.Tags,
		Weight:  d.Weight,
		Enabled: d.Enabled,
		StartAt: d.StartAt,
		EndAt:   d.EndAt,
	}
}

func promptFilterFromQuery(r *http.Request) (prompts.Filter, error) {
	q := r.URL.Query()
	f := prompts.Filter{
		Locale:          q.Get("locale"),
		Scope:           q.Get("scope"),
		IncludeDisabled: q.Get("includeDisabled") == "true",
	}
	if tags := q.Get("tags"); tags != "" {
		f.Tags = strings.Split(tags, ",")
	}
	if at := q.Get("activeAt"); at != "" {
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return f, err
		}
		f.ActiveAt = &t
	}
	return f, nil
}
