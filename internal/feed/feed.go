// Package feed drives an incrementally loaded message timeline: a
// cursor-based loader plus the day grouping and compaction rules the
// client renders from.
package feed

import (
	"context"
	"sort"
	"sync"
	"time"
)

type Status string

const (
	StatusLoadingFirstPage Status = "loading-first-page"
	StatusCanLoadMore      Status = "can-load-more"
	StatusLoadingMore      Status = "loading-more"
	StatusExhausted        Status = "exhausted"
)

// compactWindow is the maximum gap between two messages from the same
// author before the second one gets its own full header.
const compactWindow = 5 * time.Minute

type Item struct {
	ID         string
	MemberID   string
	AuthorName string
	Body       string
	CreatedAt  time.Time
	Compact    bool
}

// FetchFunc loads one page. cursor is the exclusive upper bound from the
// previous page, zero for the first page.
type FetchFunc func(ctx context.Context, cursor int64, limit int) (items []Item, continueCursor int64, done bool, err error)

type Loader struct {
	mu     sync.Mutex
	fetch  FetchFunc
	limit  int
	status Status
	cursor int64
	items  []Item
}

func NewLoader(fetch FetchFunc, limit int) *Loader {
	if limit <= 0 {
		limit = 20
	}
	return &Loader{
		fetch:  fetch,
		limit:  limit,
		status: StatusLoadingFirstPage,
	}
}

func (l *Loader) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// Items returns the loaded messages, newest first.
func (l *Loader) Items() []Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Item, len(l.items))
	copy(out, l.items)
	return out
}

// Load fetches the first page. Subsequent calls reset the loader.
func (l *Loader) Load(ctx context.Context) error {
	l.mu.Lock()
	l.status = StatusLoadingFirstPage
	l.cursor = 0
	l.items = nil
	l.mu.Unlock()

	items, cursor, done, err := l.fetch(ctx, 0, l.limit)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.status = StatusCanLoadMore
		return err
	}
	l.items = items
	l.cursor = cursor
	if done {
		l.status = StatusExhausted
	} else {
		l.status = StatusCanLoadMore
	}
	return nil
}

// LoadMore fetches the next page. It is a no-op unless the loader is in
// the can-load-more state, so concurrent scroll events cannot double
// fetch and an exhausted feed stays exhausted.
func (l *Loader) LoadMore(ctx context.Context) error {
	l.mu.Lock()
	if l.status != StatusCanLoadMore {
		l.mu.Unlock()
		return nil
	}
	l.status = StatusLoadingMore
	cursor := l.cursor
	l.mu.Unlock()

	items, next, done, err := l.fetch(ctx, cursor, l.limit)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.status = StatusCanLoadMore
		return err
	}
	l.items = append(l.items, items...)
	l.cursor = next
	if done {
		l.status = StatusExhausted
	} else {
		l.status = StatusCanLoadMore
	}
	return nil
}

type DayGroup struct {
	Label string
	Date  time.Time
	Items []Item
}

// GroupByDay buckets items into calendar days in the viewer's location,
// oldest day first and oldest message first within a day. Items from the
// same author within the compaction window are flagged Compact so the
// client can suppress the repeated header.
func GroupByDay(items []Item, now time.Time, loc *time.Location) []DayGroup {
	if loc == nil {
		loc = time.Local
	}

	// Oldest first for rendering.
	ordered := make([]Item, len(items))
	copy(ordered, items)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	var groups []DayGroup
	for _, item := range ordered {
		day := startOfDay(item.CreatedAt.In(loc))
		if len(groups) == 0 || !groups[len(groups)-1].Date.Equal(day) {
			groups = append(groups, DayGroup{
				Label: dayLabel(day, now.In(loc)),
				Date:  day,
			})
		}
		group := &groups[len(groups)-1]
		if len(group.Items) > 0 {
			previous := group.Items[len(group.Items)-1]
			item.Compact = previous.MemberID == item.MemberID &&
				item.CreatedAt.Sub(previous.CreatedAt) < compactWindow
		}
		group.Items = append(group.Items, item)
	}
	return groups
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func dayLabel(day, now time.Time) string {
	today := startOfDay(now)
	switch {
	case day.Equal(today):
		return "Today"
	case day.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	default:
		return day.Format("Monday, January 2")
	}
}
