package api

import (
	"encoding/json"
	"time"

	"github.com/quietpage/quietpage/internal/server/models"
)

// Wire shapes. Field tags match what clients serialize; the server never
// inspects ciphertext or envelopes beyond length checks.

type registerRequest struct {
	Username string `json:"username"`
	Salt     []byte `json:"salt"`
	Verifier []byte `json:"verifier"`
}

type loginRequest struct {
	Username string `json:"username"`
	Verifier []byte `json:"verifier"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type saltResponse struct {
	Salt []byte `json:"salt"`
}

type sessionResponse struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

type profileResponse struct {
	Avatar   string `json:"avatar,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

type keyringDTO struct {
	WrappedMasterKey []byte          `json:"wrappedMasterKey"`
	Salt             []byte          `json:"salt"`
	KDFParams        json.RawMessage `json:"kdfParams"`
}

type entryDTO struct {
	ID         string    `json:"id"`
	Date       string    `json:"dateISO"`
	Ciphertext []byte    `json:"ciphertext"`
	Nonce      []byte    `json:"nonce"`
	AAD        []byte    `json:"aad,omitempty"`
	WordCount  int       `json:"wordCount,omitempty"`
	Mood       string    `json:"mood,omitempty"`
	TZAtEntry  string    `json:"tzAtEntry,omitempty"`
	SharedWith []string  `json:"sharedWith,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type goalDTO struct {
	ID         string    `json:"id"`
	Ciphertext []byte    `json:"ciphertext"`
	Nonce      []byte    `json:"nonce"`
	AAD        []byte    `json:"aad,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type shareRequest struct {
	Envelope []byte `json:"envelope"`
}

type shareDTO struct {
	EntryID        string    `json:"entryId"`
	OwnerUserID    string    `json:"ownerUserId"`
	ProfessionalID string    `json:"professionalId"`
	Envelope       []byte    `json:"envelope"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type professionalDTO struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Active      bool   `json:"active"`
}

type publicKeyResponse struct {
	PublicKey []byte `json:"publicKey"`
}

type promptDTO struct {
	ID        string     `json:"id"`
	Locale    string     `json:"locale"`
	Scope     string     `json:"scope"`
	Text      string     `json:"text"`
	Tags      []string   `json:"tags,omitempty"`
	Weight    int        `json:"weight"`
	Enabled   bool       `json:"enabled"`
	StartAt   *time.Time `json:"startAt,omitempty"`
	EndAt     *time.Time `json:"endAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func entryToDTO(e *models.Entry, sharedWith []string) entryDTO {
	return entryDTO{
		ID:         e.ID,
		Date:       e.Date,
		Ciphertext: e.Ciphertext,
		Nonce:      e.Nonce,
		AAD:        e.AAD,
		WordCount:  e.WordCount,
		Mood:       e.Mood,
		TZAtEntry:  e.TZAtEntry,
		SharedWith: sharedWith,
		UpdatedAt:  e.UpdatedAt,
	}
}

func goalToDTO(g *models.Goal) goalDTO {
	return goalDTO{
		ID:         g.ID,
		Ciphertext: g.Ciphertext,
		Nonce:      g.Nonce,
		AAD:        g.AAD,
		CreatedAt:  g.CreatedAt,
		UpdatedAt:  g.UpdatedAt,
	}
}

func shareToDTO(sh models.Share) shareDTO {
	return shareDTO{
		EntryID:        sh.EntryID,
		OwnerUserID:    sh.OwnerUserID,
		ProfessionalID: sh.ProfessionalID,
		Envelope:       sh.Envelope,
		UpdatedAt:      sh.UpdatedAt,
	}
}

func promptToDTO(p *models.Prompt) promptDTO {
	return promptDTO{
		ID:        p.ID,
		Locale:    p.Locale,
		Scope:     p.Scope,
		Text:      p.Text,
		Tags:      p.Tags,
		Weight:    p.Weight,
		Enabled:   p.Enabled,
		StartAt:   p.StartAt,
		EndAt:     p.EndAt,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
