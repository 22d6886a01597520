package navigator

import (
	"errors"
	"testing"
)

func rect(l, t, r, b float64) Rect { return Rect{Left: l, Top: t, Right: r, Bottom: b} }

func order(n int) *int { return &n }

type scrollRecorder struct {
	items []string
}

func (s *scrollRecorder) RequestVisible(_ string, it Item) { s.items = append(s.items, it.ID) }

func newTestNavigator(t *testing.T, l *Layout) (*Navigator, *LayoutStore, *scrollRecorder) {
	t.Helper()
	store := NewLayoutStore()
	if l.Scope == "" {
		l.Scope = "main"
	}
	if err := store.Set(l); err != nil {
		t.Fatalf("set layout: %v", err)
	}
	sc := &scrollRecorder{}
	return New(store, sc, l.Scope, nil), store, sc
}

func mustFocus(t *testing.T, n *Navigator, id string) {
	t.Helper()
	if !n.Focus(id) {
		t.Fatalf("expected to focus %q", id)
	}
}

func mustMove(t *testing.T, n *Navigator, d Direction, want string) {
	t.Helper()
	it, ok := n.Move(d)
	if !ok {
		t.Fatalf("move %s: expected focus on %q, got no move", d, want)
	}
	if it.ID != want || n.FocusedID() != want {
		t.Fatalf("move %s: expected %q, got %q", d, want, it.ID)
	}
}

func TestMove_RightPicksOverlappingNeighbour(t *testing.T) {
	n, _, _ := newTestNavigator(t, &Layout{Items: []Item{
		{ID: "a", Rect: rect(0, 0, 100, 100)},
		{ID: "b", Rect: rect(120, 0, 220, 100)},
		{ID: "c", Rect: rect(120, 200, 220, 300)},
	}})
	mustFocus(t, n, "a")

	mustMove(t, n, Right, "b")
}

func TestMove_SingleItemIsNoop(t *testing.T) {
	n, _, _ := newTestNavigator(t, &Layout{Items: []Item{
		{ID: "only", Rect: rect(0, 0, 100, 100)},
	}})
	mustFocus(t, n, "only")

	for _, d := range []Direction{Left, Right, Up, Down} {
		if _, ok := n.Move(d); ok {
			t.Fatalf("expected move %s to be a no-op", d)
		}
	}
	if n.FocusedID() != "only" {
		t.Fatalf("expected focus to stay, got %q", n.FocusedID())
	}
}

func TestMove_LeftThenRightReturns(t *testing.T) {
	n, _, _ := newTestNavigator(t, &Layout{Items: []Item{
		{ID: "a", Rect: rect(0, 0, 100, 100)},
		{ID: "b", Rect: rect(120, 0, 220, 100)},
	}})
	mustFocus(t, n, "b")

	mustMove(t, n, Left, "a")
	mustMove(t, n, Right, "b")
}

func TestMove_NoItemsIsNoop(t *testing.T) {
	n, _, _ := newTestNavigator(t, &Layout{})
	if _, ok := n.Move(Down); ok {
		t.Fatalf("expected no move without items")
	}

	missing := New(NewLayoutStore(), nil, "nowhere", nil)
	if _, ok := missing.Move(Down); ok {
		t.Fatalf("expected no move without a layout")
	}
}

func TestMove_InitialSelectionLowestGroup(t *testing.T) {
	n, _, sc := newTestNavigator(t, &Layout{
		Items: []Item{
			{ID: "x", Rect: rect(0, 0, 100, 100), SelectOrder: order(1)},
			{ID: "y", Rect: rect(0, 200, 100, 300), Path: []string{"menu"}},
			{ID: "z", Rect: rect(200, 200, 300, 300), Path: []string{"menu"}},
		},
		Containers: []Container{{ID: "menu", SelectOrder: order(-1)}},
	})

	var changes []FocusChange
	n.OnFocus(func(c FocusChange) { changes = append(changes, c) })

	mustMove(t, n, Right, "y")
	if len(changes) != 1 || !changes[0].Initial || changes[0].Current.ID != "y" {
		t.Fatalf("expected one initial focus change to y, got %+v", changes)
	}
	if len(sc.items) != 1 || sc.items[0] != "y" {
		t.Fatalf("expected scroll request for y, got %v", sc.items)
	}
}

func TestMove_InitialSelectionWhenFocusedItemGone(t *testing.T) {
	n, store, _ := newTestNavigator(t, &Layout{Items: []Item{
		{ID: "a", Rect: rect(0, 0, 100, 100)},
		{ID: "b", Rect: rect(120, 0, 220, 100)},
	}})
	mustFocus(t, n, "b")

	if err := store.Set(&Layout{Scope: "main", Items: []Item{
		{ID: "c", Rect: rect(0, 0, 100, 100)},
		{ID: "d", Rect: rect(120, 0, 220, 100)},
	}}); err != nil {
		t.Fatalf("set layout: %v", err)
	}

	mustMove(t, n, Right, "c")
}

func TestMove_GroupLeaveDirections(t *testing.T) {
	n, _, _ := newTestNavigator(t, &Layout{Items: []Item{
		{ID: "nav", Rect: rect(0, 0, 100, 100), SelectOrder: order(0), ChangeOrderDirection: "down"},
		{ID: "side", Rect: rect(120, 0, 220, 100), SelectOrder: order(1)},
		{ID: "below", Rect: rect(0, 200, 100, 300), SelectOrder: order(1)},
	}})
	mustFocus(t, n, "nav")

	if it, ok := n.Move(Right); ok {
		t.Fatalf("expected right to be blocked by the group, got %q", it.ID)
	}
	mustMove(t, n, Down, "below")
}

func TestMove_UpPrefersNearestEdge(t *testing.T) {
	n, _, _ := newTestNavigator(t, &Layout{Items: []Item{
		{ID: "tl", Rect: rect(0, 0, 100, 100)},
		{ID: "tr", Rect: rect(200, 0, 300, 100)},
		{ID: "bl", Rect: rect(0, 200, 100, 300)},
		{ID: "br", Rect: rect(200, 200, 300, 300)},
	}})
	mustFocus(t, n, "br")

	mustMove(t, n, Up, "tr")
	mustMove(t, n, Down, "br")
	mustMove(t, n, Left, "bl")
	mustMove(t, n, Up, "tl")
}

func TestMove_DownInColumnTakesNearestRegardlessOfAncestors(t *testing.T) {
	n, _, _ := newTestNavigator(t, &Layout{Items: []Item{
		{ID: "cur", Rect: rect(0, 0, 100, 100), Path: []string{"grid", "r1"}},
		{ID: "other", Rect: rect(0, 200, 100, 300), Path: []string{"grid", "r2"}},
		{ID: "sibling", Rect: rect(0, 400, 100, 500), Path: []string{"grid", "r1"}},
	}})
	mustFocus(t, n, "cur")

	mustMove(t, n, Down, "other")
}

func TestMove_OutsideBandPrefersLessRelatedSubtree(t *testing.T) {
	n, _, _ := newTestNavigator(t, &Layout{Items: []Item{
		{ID: "cur", Rect: rect(0, 0, 100, 100), Path: []string{"grid", "r1"}},
		{ID: "sibling", Rect: rect(200, 200, 300, 300), Path: []string{"grid", "r1"}},
		{ID: "cousin", Rect: rect(200, 400, 300, 500), Path: []string{"grid", "r2"}},
	}})
	mustFocus(t, n, "cur")
	mustMove(t, n, Down, "cousin")

	n, _, _ = newTestNavigator(t, &Layout{Items: []Item{
		{ID: "cur", Rect: rect(200, 400, 300, 500), Path: []string{"grid", "r1"}},
		{ID: "sibling", Rect: rect(0, 200, 100, 300), Path: []string{"grid", "r1"}},
		{ID: "cousin", Rect: rect(0, 0, 100, 100), Path: []string{"grid", "r2"}},
	}})
	mustFocus(t, n, "cur")
	mustMove(t, n, Up, "cousin")
}

func TestMove_UpPrefersOverlappingColumn(t *testing.T) {
	n, _, _ := newTestNavigator(t, &Layout{Items: []Item{
		{ID: "cur", Rect: rect(100, 200, 200, 300)},
		{ID: "side", Rect: rect(205, 0, 300, 100)},
		{ID: "above", Rect: rect(50, 0, 250, 100)},
	}})
	mustFocus(t, n, "cur")

	mustMove(t, n, Up, "above")
}

func TestMove_DownPrefersOverlappingColumn(t *testing.T) {
	n, _, _ := newTestNavigator(t, &Layout{Items: []Item{
		{ID: "cur", Rect: rect(100, 0, 200, 100)},
		{ID: "side", Rect: rect(0, 200, 95, 300)},
		{ID: "below", Rect: rect(50, 200, 250, 300)},
	}})
	mustFocus(t, n, "cur")

	mustMove(t, n, Down, "below")
}

func TestMove_VerticalTieBreakOnCrossAxis(t *testing.T) {
	items := []Item{
		{ID: "cur", Rect: rect(100, 200, 200, 300)},
		{ID: "a", Rect: rect(50, 0, 150, 100)},
		{ID: "b", Rect: rect(150, 0, 250, 100)},
		{ID: "c", Rect: rect(50, 400, 150, 500)},
		{ID: "d", Rect: rect(150, 400, 250, 500)},
	}
	n, _, _ := newTestNavigator(t, &Layout{Items: items})
	mustFocus(t, n, "cur")
	mustMove(t, n, Up, "b")

	mustFocus(t, n, "cur")
	mustMove(t, n, Down, "c")
}

func TestMove_DownPrefersHigherGroup(t *testing.T) {
	n, _, _ := newTestNavigator(t, &Layout{Items: []Item{
		{ID: "cur", Rect: rect(0, 0, 100, 100), SelectOrder: order(1)},
		{ID: "low", Rect: rect(0, 200, 100, 300), SelectOrder: order(0)},
		{ID: "high", Rect: rect(200, 200, 300, 300), SelectOrder: order(2)},
	}})
	mustFocus(t, n, "cur")

	mustMove(t, n, Down, "high")
}

func TestMove_LeftWrapsToPreviousRow(t *testing.T) {
	n, _, _ := newTestNavigator(t, &Layout{Items: []Item{
		{ID: "r1a", Rect: rect(0, 0, 100, 100)},
		{ID: "r1b", Rect: rect(120, 0, 220, 100)},
		{ID: "r2a", Rect: rect(0, 120, 100, 220)},
	}})
	mustFocus(t, n, "r2a")

	mustMove(t, n, Left, "r1b")
}

func TestMove_SkipsOccludedAndDisabledItems(t *testing.T) {
	n, _, _ := newTestNavigator(t, &Layout{
		Viewport: rect(0, 0, 1000, 1000),
		Items: []Item{
			{ID: "a", Rect: rect(0, 0, 100, 100)},
			{ID: "covered", Rect: rect(120, 0, 220, 100)},
			{ID: "off", Rect: rect(240, 0, 340, 100), Disabled: true},
			{ID: "far", Rect: rect(360, 0, 460, 100)},
		},
		Overlays: []Overlay{{ID: "toast", Rect: rect(110, 0, 230, 110), Z: 1}},
	})
	mustFocus(t, n, "a")

	mustMove(t, n, Right, "far")
}

func TestVisible(t *testing.T) {
	l := &Layout{
		Viewport: rect(0, 0, 1000, 1000),
		Items: []Item{
			{ID: "under", Rect: rect(100, 100, 200, 200)},
			{ID: "dialog-ok", Rect: rect(300, 300, 400, 350), Path: []string{"dialog"}, Z: 2},
			{ID: "edge", Rect: rect(900, 900, 1100, 1100)},
			{ID: "flat", Rect: rect(500, 500, 600, 500)},
		},
		Overlays: []Overlay{{ID: "dialog", Rect: rect(0, 0, 1000, 1000), Z: 1}},
	}

	got := l.Visible()
	ids := make([]string, len(got))
	for i, it := range got {
		ids[i] = it.ID
	}
	if len(ids) != 2 || ids[0] != "dialog-ok" || ids[1] != "edge" {
		t.Fatalf("expected [dialog-ok edge], got %v", ids)
	}
}

func TestFocus_NotifiesAndScrollsWhenOffscreen(t *testing.T) {
	n, _, sc := newTestNavigator(t, &Layout{
		Viewport: rect(0, 0, 500, 500),
		Items: []Item{
			{ID: "on", Rect: rect(0, 0, 100, 100)},
			{ID: "below", Rect: rect(0, 600, 100, 700)},
		},
	})

	var changes []FocusChange
	n.OnFocus(func(c FocusChange) { changes = append(changes, c) })

	mustFocus(t, n, "on")
	if len(sc.items) != 0 {
		t.Fatalf("expected no scroll for an item on screen, got %v", sc.items)
	}
	mustMove(t, n, Down, "below")
	if len(sc.items) != 1 || sc.items[0] != "below" {
		t.Fatalf("expected scroll request for below, got %v", sc.items)
	}
	if len(changes) != 2 || changes[1].Previous != "on" || changes[1].Direction != Down {
		t.Fatalf("expected change from on moving down, got %+v", changes)
	}

	if n.Focus("missing") {
		t.Fatalf("expected unknown item to be rejected")
	}
	if it, ok := n.Focused(); !ok || it.ID != "below" {
		t.Fatalf("expected focused below, got %+v ok=%v", it, ok)
	}
}

func TestLayoutStore_RejectsDuplicates(t *testing.T) {
	store := NewLayoutStore()
	err := store.Set(&Layout{Scope: "main", Items: []Item{
		{ID: "a", Rect: rect(0, 0, 1, 1)},
		{ID: "a", Rect: rect(2, 0, 3, 1)},
	}})
	if !errors.Is(err, ErrDuplicateItemID) {
		t.Fatalf("expected ErrDuplicateItemID, got %v", err)
	}
	err = store.Set(&Layout{Scope: "main", Items: []Item{{Rect: rect(0, 0, 1, 1)}}})
	if !errors.Is(err, ErrEmptyItemID) {
		t.Fatalf("expected ErrEmptyItemID, got %v", err)
	}
	if _, ok := store.Layout("main"); ok {
		t.Fatalf("expected invalid layouts not to be stored")
	}
}

func TestParseDirections(t *testing.T) {
	if got := ParseDirections(""); got != AllDirections {
		t.Fatalf("expected all directions, got %b", got)
	}
	got := ParseDirections(" left  DOWN sideways ")
	if !got.Has(Left) || !got.Has(Down) || got.Has(Up) || got.Has(Right) {
		t.Fatalf("expected left|down, got %b", got)
	}
	if _, err := ParseDirection("north"); err == nil {
		t.Fatalf("expected error for unknown direction")
	}
}
