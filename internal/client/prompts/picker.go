// Package prompts picks a coach prompt to offer alongside an empty entry.
// The catalog itself is plaintext and admin-curated; only the chosen prompt
// ID ends up inside the encrypted entry content.
package prompts

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/quietpage/quietpage/internal/client/models"
	"github.com/quietpage/quietpage/internal/common"
)

// Source is the slice of the remote contract the picker needs.
type Source interface {
	PromptList(ctx context.Context, f models.PromptFilter) ([]models.CoachPrompt, error)
}

// Picker selects prompts weighted-randomly from the active catalog.
type Picker struct {
	source Source
	intn   func(n int) int
}

// NewPicker builds a picker using the default random source.
func NewPicker(source Source) *Picker {
	return &Picker{source: source, intn: rand.N[int]}
}

// Pick returns one enabled, in-window prompt matching locale and scope,
// chosen with probability proportional to its weight. Weights below one
// count as one so a misconfigured row can still be offered. An empty catalog
// returns common.ErrPromptNotFound.
func (p *Picker) Pick(ctx context.Context, locale, scope string, now time.Time) (*models.CoachPrompt, error) {
	list, err := p.source.PromptList(ctx, models.PromptFilter{
		Locale:   locale,
		Scope:    scope,
		ActiveAt: &now,
	})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, common.ErrPromptNotFound
	}

	total := 0
	for _, c := range list {
		total += weightOf(c)
	}

	r := p.intn(total)
	for i := range list {
		r -= weightOf(list[i])
		if r < 0 {
			return &list[i], nil
		}
	}
	return &list[len(list)-1], nil
}

func weightOf(c models.CoachPrompt) int {
	if c.Weight < 1 {
		return 1
	}
	return c.Weight
}
