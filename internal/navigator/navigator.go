// Package navigator moves keyboard/controller focus between the focusable
// items of a 2D layout.
//
// The UI reports its items as a Layout (geometry plus group attributes). Every
// move takes a fresh snapshot from the Provider, filters it to the items that
// are actually visible, and ranks the candidates for the requested direction.
// Focus is a single item id; changes are announced to subscribers and, when
// the new item is not fully on screen, to the Scroller.
package navigator

import (
	"log/slog"

	"kioskpad/internal/observer"
)

// Scroller is asked to bring a newly focused item into view.
type Scroller interface {
	RequestVisible(scope string, item Item)
}

// FocusChange describes one focus transition.
type FocusChange struct {
	Scope     string    `json:"scope"`
	Previous  string    `json:"previous,omitempty"`
	Current   Item      `json:"current"`
	Direction Direction `json:"-"`
	Initial   bool      `json:"initial,omitempty"`
}

// Navigator owns the focus state. It is not safe for concurrent use; the
// input service drives it from one goroutine.
type Navigator struct {
	provider Provider
	scroller Scroller
	logger   *slog.Logger

	scope   string
	focused string

	changes *observer.List[FocusChange]
}

// New returns a navigator over provider's layouts for scope. scroller may be
// nil.
func New(provider Provider, scroller Scroller, scope string, logger *slog.Logger) *Navigator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Navigator{
		provider: provider,
		scroller: scroller,
		logger:   logger,
		scope:    scope,
		changes:  observer.New[FocusChange]("focus", logger),
	}
}

// OnFocus subscribes to focus changes.
func (n *Navigator) OnFocus(fn func(FocusChange)) (unsubscribe func()) {
	return n.changes.Subscribe(fn)
}

func (n *Navigator) Scope() string { return n.scope }

// SetScope switches the layout scope moves operate on. The focused id is kept;
// if it is not part of the new scope the next move picks an initial item.
func (n *Navigator) SetScope(scope string) {
	n.scope = scope
}

// FocusedID returns the focused item id, or "" when nothing has focus.
func (n *Navigator) FocusedID() string { return n.focused }

// Focused returns the focused item with its current geometry.
func (n *Navigator) Focused() (Item, bool) {
	if n.focused == "" {
		return Item{}, false
	}
	l, ok := n.provider.Layout(n.scope)
	if !ok {
		return Item{}, false
	}
	return l.Item(n.focused)
}

// Focus gives focus to the item with the given id, as when the UI selects it
// directly. It reports false if the item is not in the current layout.
func (n *Navigator) Focus(id string) bool {
	l, ok := n.provider.Layout(n.scope)
	if !ok {
		return false
	}
	it, ok := l.Item(id)
	if !ok || it.Disabled {
		return false
	}
	n.setFocus(l, it, 0, false)
	return true
}

// Move moves focus one step in direction d and returns the newly focused item.
// With no focus, or when the focused item is gone or hidden, the first item of
// the lowest group is selected instead. It reports false when focus did not
// change.
func (n *Navigator) Move(d Direction) (Item, bool) {
	better := comparatorFor(d)
	if better == nil {
		return Item{}, false
	}
	l, ok := n.provider.Layout(n.scope)
	if !ok {
		return Item{}, false
	}
	visible := l.Visible()
	if len(visible) == 0 {
		return Item{}, false
	}

	var (
		cur   Item
		found bool
	)
	for _, it := range visible {
		if it.ID == n.focused {
			cur, found = it, true
			break
		}
	}
	if !found {
		initial := initialItem(l, visible)
		n.setFocus(l, initial, d, true)
		return initial, true
	}

	curOrder, leave := l.group(cur)
	current := candidate{Rect: cur.Rect, item: cur, order: curOrder}

	var best *candidate
	for _, it := range visible {
		if it.ID == cur.ID {
			continue
		}
		order, _ := l.group(it)
		if order != curOrder && !leave.Has(d) {
			continue
		}
		next := candidate{
			Rect:            it.Rect,
			item:            it,
			order:           order,
			commonAncestors: commonAncestors(cur, it),
		}
		if better(current, next, best) {
			best = &next
		}
	}
	if best == nil {
		return Item{}, false
	}

	n.logger.Debug("focus moved", "direction", d, "from", cur.ID, "item", best.item.ID)
	n.setFocus(l, best.item, d, false)
	return best.item, true
}

// initialItem is the first item with the lowest select order.
func initialItem(l *Layout, items []Item) Item {
	pick := items[0]
	lowest, _ := l.group(pick)
	for _, it := range items[1:] {
		if order, _ := l.group(it); order < lowest {
			pick, lowest = it, order
		}
	}
	return pick
}

func (n *Navigator) setFocus(l *Layout, it Item, d Direction, initial bool) {
	prev := n.focused
	n.focused = it.ID

	if n.scroller != nil && (l.Viewport.Empty() || !it.Rect.Inside(l.Viewport)) {
		n.scroller.RequestVisible(n.scope, it)
	}
	n.changes.Notify(FocusChange{
		Scope:     n.scope,
		Previous:  prev,
		Current:   it,
		Direction: d,
		Initial:   initial,
	})
}
