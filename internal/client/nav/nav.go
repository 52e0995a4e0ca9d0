// Package nav implements the virtual page index space: a small fixed set of
// non-day pages followed by two indices (left/right leaf) per materialized
// date. Dates materialize lazily, so the index space stays small while still
// giving every date a stable position once visited.
package nav

import (
	"sync"
	"time"

	"github.com/quietpage/quietpage/internal/common"
)

// ReservedPages is the count of leading non-day page indices.
const ReservedPages = 6

// Reserved page indices.
const (
	IndexCover    = 0
	IndexGoals    = 1
	IndexCalendar = 2
	IndexShares   = 3
	IndexPrompts  = 4
	IndexSettings = 5
)

// PagesPerDate is how many indices each materialized date occupies.
const PagesPerDate = 2

// DeepLink is the navigation state carried in an incoming link. When both
// fields are set, Index wins.
type DeepLink struct {
	Date  string
	Index *int
}

// Router is the side-effecting navigation collaborator. It carries no
// business logic.
type Router interface {
	NavigateToDate(date string)
	NavigateToIndex(i int)
	ReadDeepLink() *DeepLink
}

// Navigator maps between virtual page indices and dates. Safe for concurrent
// use.
type Navigator struct {
	router Router

	mu      sync.Mutex
	dates   []string        // materialized dates, newest prepends first
	pairs   map[string]int  // date → left index
	pinned  map[string]bool // entry-bearing or explicitly selected dates
	nextOrd int
	active  string
	current int
}

// NewNavigator materializes the days of month plus the given known entry
// dates and starts on the cover page.
func NewNavigator(router Router, month time.Time, knownDates []string) *Navigator {
	n := &Navigator{router: router, pairs: map[string]int{}, pinned: map[string]bool{}}
	for _, d := range monthDates(month) {
		n.materializeLocked(d, false)
	}
	for _, d := range knownDates {
		n.materializeLocked(d, true)
	}
	return n
}

// ActiveDate returns the date shown by the current page, or "" on a non-day
// page.
func (n *Navigator) ActiveDate() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.active
}

// CurrentIndex returns the current virtual page index.
func (n *Navigator) CurrentIndex() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// PageCount returns the size of the current index space.
func (n *Navigator) PageCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return ReservedPages + PagesPerDate*len(n.dates)
}

// DateAt resolves the date occupying index i, or "" for reserved and
// unmaterialized indices.
func (n *Navigator) DateAt(i int) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dateAtLocked(i)
}

// IndexFor returns the left index of date, or -1 when not materialized.
func (n *Navigator) IndexFor(date string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	left, ok := n.pairs[date]
	if !ok {
		return -1
	}
	return left
}

// SetIndex jumps to page i. Day pages set the active date and deep-link by
// date; non-day pages clear it and deep-link by index.
func (n *Navigator) SetIndex(i int) {
	n.mu.Lock()
	n.current = i
	date := n.dateAtLocked(i)
	n.active = date
	n.mu.Unlock()

	if date != "" {
		n.router.NavigateToDate(date)
	} else {
		n.router.NavigateToIndex(i)
	}
}

// PinDates materializes entry-bearing dates and marks them pinned so they
// keep an index across month switches. The current page does not move.
func (n *Navigator) PinDates(dates []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, d := range dates {
		n.materializeLocked(d, true)
	}
}

// SetDate jumps to date's left leaf, materializing the date first when it is
// new.
func (n *Navigator) SetDate(date string) {
	n.mu.Lock()
	left := n.materializeLocked(date, true)
	n.current = left
	n.active = date
	n.mu.Unlock()

	n.router.NavigateToDate(date)
}

// SetMonth rebuilds the materialized list to exactly the days of month plus
// any pinned out-of-month dates, reassigning all indices. The old month's
// plain scaffold days are dropped.
func (n *Navigator) SetMonth(month time.Time) {
	n.mu.Lock()
	inMonth := map[string]bool{}
	for _, d := range monthDates(month) {
		inMonth[d] = true
	}
	var keep []string
	for _, d := range n.dates {
		if n.pinned[d] && !inMonth[d] {
			keep = append(keep, d)
		}
	}
	wasPinned := n.pinned

	n.dates = nil
	n.pairs = map[string]int{}
	n.pinned = map[string]bool{}
	n.nextOrd = 0
	for _, d := range monthDates(month) {
		n.materializeLocked(d, wasPinned[d])
	}
	for _, d := range keep {
		n.materializeLocked(d, true)
	}

	// The active date survives the rebuild at its new index when possible.
	if left, ok := n.pairs[n.active]; ok {
		n.current = left
	} else {
		n.active = ""
		n.current = IndexCalendar
	}
	current, active := n.current, n.active
	n.mu.Unlock()

	if active != "" {
		n.router.NavigateToDate(active)
	} else {
		n.router.NavigateToIndex(current)
	}
}

// Mount resolves the incoming deep link: an explicit index wins over a date;
// with neither, the navigator lands on the cover.
func (n *Navigator) Mount() {
	link := n.router.ReadDeepLink()
	switch {
	case link != nil && link.Index != nil:
		n.SetIndex(*link.Index)
	case link != nil && link.Date != "":
		n.SetDate(link.Date)
	default:
		n.SetIndex(IndexCover)
	}
}

// materializeLocked ensures date has an index pair, prepending new dates and
// assigning them the next available pair. Returns the left index.
func (n *Navigator) materializeLocked(date string, pinned bool) int {
	if pinned {
		n.pinned[date] = true
	}
	if left, ok := n.pairs[date]; ok {
		return left
	}
	left := ReservedPages + PagesPerDate*n.nextOrd
	n.nextOrd++
	n.pairs[date] = left
	n.dates = append([]string{date}, n.dates...)
	return left
}

func (n *Navigator) dateAtLocked(i int) string {
	if i < ReservedPages {
		return ""
	}
	for date, left := range n.pairs {
		if i == left || i == left+1 {
			return date
		}
	}
	return ""
}

// monthDates lists every day of month's calendar month in common.DateLayout.
func monthDates(month time.Time) []string {
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	next := first.AddDate(0, 1, 0)
	var out []string
	for d := first; d.Before(next); d = d.AddDate(0, 0, 1) {
		out = append(out, d.Format(common.DateLayout))
	}
	return out
}
