package feed

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// pagedFetch serves fixed items newest first, honoring the cursor as an
// exclusive upper bound on a per-item sequence number.
func pagedFetch(total int, base time.Time) FetchFunc {
	return func(_ context.Context, cursor int64, limit int) ([]Item, int64, bool, error) {
		upper := int64(total)
		if cursor > 0 && cursor <= upper {
			upper = cursor - 1
		}
		var items []Item
		for seq := upper; seq >= 1 && len(items) < limit; seq-- {
			items = append(items, Item{
				ID:        fmt.Sprintf("msg_%d", seq),
				MemberID:  "mem_a",
				CreatedAt: base.Add(time.Duration(seq) * time.Hour),
			})
		}
		if len(items) == 0 {
			return nil, 0, true, nil
		}
		last := items[len(items)-1]
		var lastSeq int64
		fmt.Sscanf(last.ID, "msg_%d", &lastSeq)
		return items, lastSeq, lastSeq == 1, nil
	}
}

func TestLoaderPagination(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	loader := NewLoader(pagedFetch(5, base), 2)

	if loader.Status() != StatusLoadingFirstPage {
		t.Fatalf("initial status %s", loader.Status())
	}

	if err := loader.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if loader.Status() != StatusCanLoadMore {
		t.Fatalf("status after first page %s", loader.Status())
	}
	if items := loader.Items(); len(items) != 2 || items[0].ID != "msg_5" {
		t.Fatalf("unexpected first page %v", items)
	}

	if err := loader.LoadMore(context.Background()); err != nil {
		t.Fatalf("load more: %v", err)
	}
	if items := loader.Items(); len(items) != 4 {
		t.Fatalf("expected 4 items after second page, got %d", len(items))
	}

	if err := loader.LoadMore(context.Background()); err != nil {
		t.Fatalf("final page: %v", err)
	}
	if loader.Status() != StatusExhausted {
		t.Fatalf("status after final page %s", loader.Status())
	}
	if items := loader.Items(); len(items) != 5 {
		t.Fatalf("expected all 5 items, got %d", len(items))
	}
}

func TestLoadMoreIsNoOpWhenExhausted(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	calls := 0
	fetch := func(ctx context.Context, cursor int64, limit int) ([]Item, int64, bool, error) {
		calls++
		return pagedFetch(1, base)(ctx, cursor, limit)
	}
	loader := NewLoader(fetch, 10)

	if err := loader.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if loader.Status() != StatusExhausted {
		t.Fatalf("status %s, want exhausted", loader.Status())
	}

	if err := loader.LoadMore(context.Background()); err != nil {
		t.Fatalf("load more: %v", err)
	}
	if calls != 1 {
		t.Fatalf("exhausted loader fetched again: %d calls", calls)
	}
}

func TestLoadMoreBeforeLoadIsNoOp(t *testing.T) {
	calls := 0
	loader := NewLoader(func(context.Context, int64, int) ([]Item, int64, bool, error) {
		calls++
		return nil, 0, true, nil
	}, 10)

	if err := loader.LoadMore(context.Background()); err != nil {
		t.Fatalf("load more: %v", err)
	}
	if calls != 0 {
		t.Fatal("loader fetched before the first page was requested")
	}
}

func TestGroupByDayLabels(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, loc)

	items := []Item{
		{ID: "old", MemberID: "a", CreatedAt: now.AddDate(0, 0, -6)},
		{ID: "yesterday", MemberID: "a", CreatedAt: now.AddDate(0, 0, -1)},
		{ID: "today", MemberID: "a", CreatedAt: now.Add(-time.Hour)},
	}

	groups := GroupByDay(items, now, loc)
	if len(groups) != 3 {
		t.Fatalf("expected 3 day groups, got %d", len(groups))
	}
	if groups[0].Label != "Wednesday, March 4" {
		t.Fatalf("old label %q", groups[0].Label)
	}
	if groups[1].Label != "Yesterday" {
		t.Fatalf("yesterday label %q", groups[1].Label)
	}
	if groups[2].Label != "Today" {
		t.Fatalf("today label %q", groups[2].Label)
	}
}

func TestGroupByDayCompaction(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, loc)
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, loc)

	items := []Item{
		{ID: "m1", MemberID: "a", CreatedAt: base},
		{ID: "m2", MemberID: "a", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "m3", MemberID: "b", CreatedAt: base.Add(3 * time.Minute)},
		{ID: "m4", MemberID: "b", CreatedAt: base.Add(20 * time.Minute)},
	}

	groups := GroupByDay(items, now, loc)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	got := groups[0].Items
	if got[0].Compact {
		t.Fatal("first message compacted")
	}
	if !got[1].Compact {
		t.Fatal("same author within window not compacted")
	}
	if got[2].Compact {
		t.Fatal("different author compacted")
	}
	if got[3].Compact {
		t.Fatal("same author beyond window compacted")
	}
}
