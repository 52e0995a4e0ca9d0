package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/quietpage/quietpage/internal/client/models"
	"github.com/quietpage/quietpage/internal/common"
	"github.com/quietpage/quietpage/internal/cryptox"
	"github.com/quietpage/quietpage/internal/journal"
)

// Goals lists the user's goals, decrypting each title with the master key.
// Goals that fail decryption are listed by ID only rather than aborting the
// listing.
func (a *App) Goals(ctx context.Context) error {
	recs, err := a.client.GoalList(ctx)
	if err != nil {
		log.Printf("Goal list failed: %s", err.Error())
		return err
	}
	if len(recs) == 0 {
		printlnFn("No goals yet. Use 'addgoal'.")
		return nil
	}

	key, err := a.keyring.MasterKey()
	if err != nil {
		log.Printf("Goals are encrypted; unlock first: %s", err.Error())
		return err
	}
	defer common.WipeByteArray(key)

	for _, rec := range recs {
		plaintext, err := cryptox.Open(key, rec.Ciphertext, rec.Nonce, rec.AAD)
		if err != nil {
			printlnFn(fmt.Sprintf("%s  (undecryptable)", rec.ID))
			continue
		}
		content, err := journal.DecodeGoalContent(plaintext)
		if err != nil {
			printlnFn(fmt.Sprintf("%s  (malformed)", rec.ID))
			continue
		}
		line := fmt.Sprintf("%s  [p%d] %s", rec.ID, content.Priority, content.Title)
		if content.Deadline != nil {
			line += "  due " + content.Deadline.Format(common.DateLayout)
		}
		printlnFn(line)
	}
	return nil
}

// AddGoal prompts for a title, optional description, deadline and priority,
// encrypts the goal under the master key and upserts it. The goal ID is
// minted on this client so the same command works against a flaky link:
// retries upsert the same row.
func (a *App) AddGoal(ctx context.Context) error {
	title, err := getSimpleText(a.reader, "Goal title", os.Stdout)
	if err != nil {
		return err
	}
	if title == "" {
		printlnFn("A goal needs a title.")
		return nil
	}
	description, err := getSimpleText(a.reader, "Description (optional)", os.Stdout)
	if err != nil {
		return err
	}
	deadlineText, err := getSimpleText(a.reader, "Deadline YYYY-MM-DD (optional)", os.Stdout)
	if err != nil {
		return err
	}
	var deadline *time.Time
	if deadlineText != "" {
		d, err := time.Parse(common.DateLayout, deadlineText)
		if err != nil {
			printlnFn("Deadline must be YYYY-MM-DD.")
			return nil
		}
		deadline = &d
	}
	priorityText, err := getSimpleText(a.reader, "Priority 1-5 (default 3)", os.Stdout)
	if err != nil {
		return err
	}
	priority := 3
	if priorityText != "" {
		p, err := strconv.Atoi(priorityText)
		if err != nil || p < 1 || p > 5 {
			printlnFn("Priority must be 1-5.")
			return nil
		}
		priority = p
	}

	now := time.Now().UTC()
	content := journal.GoalContent{
		Title:       title,
		Description: description,
		Deadline:    deadline,
		Priority:    priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	plaintext, err := journal.EncodeGoalContent(content)
	if err != nil {
		return err
	}

	key, err := a.keyring.MasterKey()
	if err != nil {
		log.Printf("Unlock first: %s", err.Error())
		return err
	}
	defer common.WipeByteArray(key)

	// The goal ID doubles as AAD, same scheme as entries and their dates.
	id := uuid.New().String()
	aad := []byte(id)
	ciphertext, nonce, err := cryptox.Seal(key, plaintext, aad)
	if err != nil {
		return err
	}

	rec := &models.GoalRecord{ID: id, Ciphertext: ciphertext, Nonce: nonce, AAD: aad}
	if _, err := a.client.GoalUpsert(ctx, rec); err != nil {
		log.Printf("Goal save failed: %s", err.Error())
		return err
	}

	printlnFn("Goal created:", id)
	return nil
}

// DeleteGoal removes a goal and its entry links.
func (a *App) DeleteGoal(ctx context.Context, id string) error {
	if err := a.client.GoalDelete(ctx, id); err != nil {
		log.Printf("Goal delete failed: %s", err.Error())
		return err
	}
	printlnFn("Goal deleted.")
	return nil
}

// LinkGoal attaches the open entry to a goal. The entry must already exist
// remotely (flushed at least once) because links reference the entry row ID.
func (a *App) LinkGoal(ctx context.Context, goalID string) error {
	date := a.session.ActiveDate()
	if date == "" {
		printlnFn("No page open. Use 'today' or 'goto' first.")
		return nil
	}
	if err := a.session.Flush(ctx); err != nil {
		log.Printf("Flush failed: %s", err.Error())
		return err
	}

	rec, err := a.client.EntryGetByDate(ctx, date)
	if err != nil {
		log.Printf("Entry lookup failed: %s", err.Error())
		return err
	}

	if err := a.client.GoalLink(ctx, goalID, rec.ID); err != nil {
		log.Printf("Link failed: %s", err.Error())
		return err
	}
	printlnFn(fmt.Sprintf("Linked %s to goal %s.", date, goalID))
	return nil
}
