package cli

import (
	"context"
	"fmt"
	"log"
	"time"
)

// entryIDForActiveDate flushes the open entry and resolves its remote row ID.
// Shares and goal links reference the row, not the date.
func (a *App) entryIDForActiveDate(ctx context.Context) (string, error) {
	date := a.session.ActiveDate()
	if date == "" {
		return "", nil
	}
	if err := a.session.Flush(ctx); err != nil {
		return "", err
	}
	rec, err := a.client.EntryGetByDate(ctx, date)
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

// Share grants a linked professional access to the open entry.
func (a *App) Share(ctx context.Context, professionalID string) error {
	entryID, err := a.entryIDForActiveDate(ctx)
	if err != nil {
		log.Printf("Share failed: %s", err.Error())
		return err
	}
	if entryID == "" {
		printlnFn("No page open. Use 'today' or 'goto' first.")
		return nil
	}

	if err := a.shares.ShareEntry(ctx, entryID, professionalID); err != nil {
		log.Printf("Share failed: %s", err.Error())
		return err
	}
	printlnFn(fmt.Sprintf("Shared %s with %s.", a.session.ActiveDate(), professionalID))
	return nil
}

// Revoke withdraws a professional's access to the open entry.
func (a *App) Revoke(ctx context.Context, professionalID string) error {
	entryID, err := a.entryIDForActiveDate(ctx)
	if err != nil {
		log.Printf("Revoke failed: %s", err.Error())
		return err
	}
	if entryID == "" {
		printlnFn("No page open. Use 'today' or 'goto' first.")
		return nil
	}

	if err := a.shares.RevokeShare(ctx, entryID, professionalID); err != nil {
		log.Printf("Revoke failed: %s", err.Error())
		return err
	}
	printlnFn("Share revoked.")
	return nil
}

// Shares lists every active share of the current user.
func (a *App) Shares(ctx context.Context) error {
	recs, err := a.shares.ListShared(ctx)
	if err != nil {
		log.Printf("Share list failed: %s", err.Error())
		return err
	}
	if len(recs) == 0 {
		printlnFn("Nothing is shared.")
		return nil
	}
	for _, rec := range recs {
		printlnFn(fmt.Sprintf("entry %s → %s  (since %s)", rec.EntryID, rec.ProfessionalID, rec.UpdatedAt.Format(time.RFC3339)))
	}
	return nil
}

// Professionals lists the linked counterparts available as share recipients.
func (a *App) Professionals(ctx context.Context) error {
	pros, err := a.shares.ListProfessionals(ctx)
	if err != nil {
		log.Printf("Directory lookup failed: %s", err.Error())
		return err
	}
	if len(pros) == 0 {
		printlnFn("No linked professionals.")
		return nil
	}
	for _, p := range pros {
		state := "active"
		if !p.Active {
			state = "inactive"
		}
		printlnFn(fmt.Sprintf("%s  %s (%s)", p.ID, p.DisplayName, state))
	}
	return nil
}

// Prompt draws a weighted random writing prompt for the configured locale and
// attaches it to the open entry, so the choice survives in the encrypted
// payload.
func (a *App) Prompt(ctx context.Context) error {
	p, err := a.picker.Pick(ctx, a.config.Locale, "daily", time.Now().UTC())
	if err != nil {
		log.Printf("No prompt available: %s", err.Error())
		return err
	}

	printlnFn("Prompt:", p.Text)
	if a.session.ActiveDate() != "" {
		a.session.SetPrompt(p.ID)
	}
	return nil
}
