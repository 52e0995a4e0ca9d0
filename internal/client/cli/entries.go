package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/quietpage/quietpage/internal/common"
)

// openDate switches the session and the navigator to date and renders the
// page.
func (a *App) openDate(ctx context.Context, date string) error {
	err := a.session.Open(ctx, date)
	if err != nil {
		// The engine falls back to the cached draft when the remote load
		// fails, so the page is still worth rendering.
		log.Printf("Remote load failed, showing local copy: %s", err.Error())
	}
	a.nav.SetDate(date)
	a.printPage()
	return err
}

// printPage renders the active entry: date header, prompt if one is attached,
// body, and a dirty marker while a save is pending.
func (a *App) printPage() {
	date := a.session.ActiveDate()
	if date == "" {
		printlnFn("No page open. Use 'today' or 'goto'.")
		return
	}

	header := fmt.Sprintf("=== %s (page %d)", date, a.nav.CurrentIndex())
	if a.session.Dirty() {
		header += " [unsaved]"
	}
	printlnFn(header)
	if id := a.session.PromptID(); id != "" {
		printlnFn("Prompt:", id)
	}
	body := a.session.Body()
	if body == "" {
		printlnFn("(empty)")
	} else {
		printlnFn(body)
	}
}

// pinKnownDates feeds every entry-bearing date into the navigator so it holds
// a stable page index before being visited. Failures are logged and skipped:
// dates still materialize lazily on visit.
func (a *App) pinKnownDates(ctx context.Context) {
	to := time.Now().UTC().Format(common.DateLayout)
	metas, err := a.client.EntryListMeta(ctx, "1970-01-01", to)
	if err != nil {
		log.Printf("Known entry dates load failed: %s", err.Error())
		return
	}
	dates := make([]string, 0, len(metas))
	for _, m := range metas {
		dates = append(dates, m.Date)
	}
	a.nav.PinDates(dates)
}

// Today opens the entry for the current UTC date.
func (a *App) Today(ctx context.Context) error {
	return a.openDate(ctx, time.Now().UTC().Format(common.DateLayout))
}

// Goto opens a page by date (YYYY-MM-DD) or by virtual page index. Reserved
// indices land on non-day pages; day indices open the date they carry.
func (a *App) Goto(ctx context.Context, arg string) error {
	if i, err := strconv.Atoi(arg); err == nil {
		if i < 0 || i >= a.nav.PageCount() {
			printlnFn(fmt.Sprintf("Page index out of range (0..%d)", a.nav.PageCount()-1))
			return nil
		}
		a.nav.SetIndex(i)
		if date := a.nav.ActiveDate(); date != "" {
			return a.openDate(ctx, date)
		}
		printlnFn(fmt.Sprintf("On reserved page %d", i))
		return nil
	}

	if _, err := time.Parse(common.DateLayout, arg); err != nil {
		printlnFn("Usage: goto <YYYY-MM-DD | page index>")
		return nil
	}
	return a.openDate(ctx, arg)
}

// Write reads a multiline body for the open entry and hands it to the session
// engine, which debounces the encrypted save. With no page open it opens
// today first.
func (a *App) Write(ctx context.Context) error {
	if a.session.ActiveDate() == "" {
		if err := a.Today(ctx); err != nil {
			return err
		}
	}

	body, err := getMultiline(a.reader, fmt.Sprintf("Entry for %s", a.session.ActiveDate()), os.Stdout)
	if err != nil {
		return err
	}

	a.session.SetBody(ctx, body)
	printlnFn("Draft saved locally; it syncs automatically.")
	return nil
}

// Show re-renders the open entry.
func (a *App) Show(ctx context.Context) error {
	a.printPage()
	return nil
}

// Month switches the navigator to the given month (YYYY-MM, default: the
// active or current month) and prints the calendar: one line per day that has
// an entry, with its plaintext metadata.
func (a *App) Month(ctx context.Context, arg string) error {
	var month time.Time
	switch {
	case arg != "":
		m, err := time.Parse("2006-01", arg)
		if err != nil {
			printlnFn("Usage: month [YYYY-MM]")
			return nil
		}
		month = m
	case a.session.ActiveDate() != "":
		m, _ := time.Parse(common.DateLayout, a.session.ActiveDate())
		month = m
	default:
		month = time.Now().UTC()
	}

	a.nav.SetMonth(month)

	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	metas, err := a.client.EntryListMeta(ctx, first.Format(common.DateLayout), last.Format(common.DateLayout))
	if err != nil {
		log.Printf("Calendar load failed: %s", err.Error())
		return err
	}

	// Entry-bearing days stay indexed after the next month switch.
	dates := make([]string, 0, len(metas))
	for _, m := range metas {
		dates = append(dates, m.Date)
	}
	a.nav.PinDates(dates)

	printlnFn(fmt.Sprintf("=== %s — %d entries", first.Format("2006-01"), len(metas)))
	for _, m := range metas {
		line := fmt.Sprintf("%s  %4d words", m.Date, m.WordCount)
		if m.Mood != "" {
			line += "  mood:" + m.Mood
		}
		if len(m.SharedProfessionalIDs) > 0 {
			line += "  shared:" + strings.Join(m.SharedProfessionalIDs, ",")
		}
		if len(m.GoalIDs) > 0 {
			line += "  goals:" + strings.Join(m.GoalIDs, ",")
		}
		printlnFn(line)
	}
	return nil
}

// Meta prints the non-sensitive metadata of the open entry: word count, mood,
// timezone at entry, active shares and goal links. Nothing is decrypted.
func (a *App) Meta(ctx context.Context) error {
	date := a.session.ActiveDate()
	if date == "" {
		printlnFn("No page open. Use 'today' or 'goto'.")
		return nil
	}

	metas, err := a.client.EntryListMeta(ctx, date, date)
	if err != nil {
		log.Printf("Metadata load failed: %s", err.Error())
		return err
	}
	if len(metas) == 0 {
		printlnFn("No synced entry for", date)
		return nil
	}

	m := metas[0]
	printlnFn("date:     ", m.Date)
	printlnFn("words:    ", m.WordCount)
	if m.Mood != "" {
		printlnFn("mood:     ", m.Mood)
	}
	if m.TZAtEntry != "" {
		printlnFn("timezone: ", m.TZAtEntry)
	}
	if len(m.SharedProfessionalIDs) > 0 {
		printlnFn("shared:   ", strings.Join(m.SharedProfessionalIDs, ", "))
	}
	if len(m.GoalIDs) > 0 {
		printlnFn("goals:    ", strings.Join(m.GoalIDs, ", "))
	}
	return nil
}

// Pages prints the virtual page index space: the reserved pages followed by
// each materialized date at its left leaf index.
func (a *App) Pages(ctx context.Context) error {
	reserved := []string{"cover", "goals", "calendar", "shares", "prompts", "settings"}
	for i, name := range reserved {
		a.printPageLine(i, name)
	}
	for i := len(reserved); i < a.nav.PageCount(); i++ {
		if date := a.nav.DateAt(i); date != "" && a.nav.IndexFor(date) == i {
			a.printPageLine(i, date)
		}
	}
	return nil
}

func (a *App) printPageLine(i int, label string) {
	marker := "  "
	if i == a.nav.CurrentIndex() {
		marker = "* "
	}
	printlnFn(fmt.Sprintf("%s%3d  %s", marker, i, label))
}

// Sync forces an immediate flush of any pending entry save.
func (a *App) Sync(ctx context.Context) error {
	if err := a.session.Flush(ctx); err != nil {
		log.Printf("Sync failed: %s", err.Error())
		return err
	}
	printlnFn("Synced.")
	return nil
}
