package navigator

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
)

// Rect is a rectangle in viewport pixels.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

func (r Rect) Width() float64  { return r.Right - r.Left }
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// Empty reports whether r has no area.
func (r Rect) Empty() bool { return r.Width() <= 0 || r.Height() <= 0 }

// Contains reports whether (x, y) lies in r, edges included.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.Left && x <= r.Right && y >= r.Top && y <= r.Bottom
}

// Inside reports whether r lies entirely within outer.
func (r Rect) Inside(outer Rect) bool {
	return r.Left >= outer.Left && r.Top >= outer.Top && r.Right <= outer.Right && r.Bottom <= outer.Bottom
}

// samplePoints are the centre, the edge midpoints and the corners.
func (r Rect) samplePoints() [9][2]float64 {
	cx := r.Left + r.Width()/2
	cy := r.Top + r.Height()/2
	return [9][2]float64{
		{cx, cy},
		{cx, r.Top},
		{cx, r.Bottom},
		{r.Left, cy},
		{r.Right, cy},
		{r.Left, r.Top},
		{r.Left, r.Bottom},
		{r.Right, r.Top},
		{r.Right, r.Bottom},
	}
}

// Item is one focusable element as reported by the UI.
//
// Path lists the ids of the item's ancestor containers from the outermost
// inwards. SelectOrder and ChangeOrderDirection are optional; when unset they
// are inherited from the nearest container in Path that sets SelectOrder.
type Item struct {
	ID                   string   `json:"id"`
	Rect                 Rect     `json:"rect"`
	Path                 []string `json:"path,omitempty"`
	SelectOrder          *int     `json:"select_order,omitempty"`
	ChangeOrderDirection string   `json:"change_order_direction,omitempty"`
	Disabled             bool     `json:"disabled,omitempty"`
	Z                    int      `json:"z,omitempty"`
}

// Container carries group attributes for the items below it.
type Container struct {
	ID                   string `json:"id"`
	SelectOrder          *int   `json:"select_order,omitempty"`
	ChangeOrderDirection string `json:"change_order_direction,omitempty"`
}

// Overlay is a non-focusable element painted above the page, such as a
// dialog backdrop. Items it covers are not visible unless they are inside it.
type Overlay struct {
	ID   string   `json:"id"`
	Rect Rect     `json:"rect"`
	Path []string `json:"path,omitempty"`
	Z    int      `json:"z,omitempty"`
}

// Layout is a full snapshot of the focusable items of one scope.
// Items and Overlays are in document (paint) order.
type Layout struct {
	Scope      string      `json:"scope"`
	Viewport   Rect        `json:"viewport"`
	Items      []Item      `json:"items"`
	Containers []Container `json:"containers,omitempty"`
	Overlays   []Overlay   `json:"overlays,omitempty"`
}

var (
	ErrEmptyItemID     = errors.New("item id must not be empty")
	ErrDuplicateItemID = errors.New("duplicate item id")
)

// Validate checks that item ids are present and unique.
func (l *Layout) Validate() error {
	seen := make(map[string]struct{}, len(l.Items))
	for i, it := range l.Items {
		if it.ID == "" {
			return fmt.Errorf("items[%d]: %w", i, ErrEmptyItemID)
		}
		if _, dup := seen[it.ID]; dup {
			return fmt.Errorf("items[%d] %q: %w", i, it.ID, ErrDuplicateItemID)
		}
		seen[it.ID] = struct{}{}
	}
	return nil
}

// Item returns the item with the given id.
func (l *Layout) Item(id string) (Item, bool) {
	for _, it := range l.Items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// group resolves an item's select order and the directions that may leave it.
func (l *Layout) group(it Item) (int, Direction) {
	if it.SelectOrder != nil {
		return *it.SelectOrder, ParseDirections(it.ChangeOrderDirection)
	}
	for i := len(it.Path) - 1; i >= 0; i-- {
		for _, c := range l.Containers {
			if c.ID == it.Path[i] && c.SelectOrder != nil {
				return *c.SelectOrder, ParseDirections(c.ChangeOrderDirection)
			}
		}
	}
	return 0, AllDirections
}

// element is anything that takes part in hit testing.
type element struct {
	id   string
	rect Rect
	path []string
	z    int
}

// hitTest returns the topmost element at (x, y). Elements are painted in
// ascending Z, document order within the same Z.
func hitTest(paint []element, x, y float64) (element, bool) {
	for i := len(paint) - 1; i >= 0; i-- {
		if paint[i].rect.Contains(x, y) {
			return paint[i], true
		}
	}
	return element{}, false
}

func (l *Layout) paintOrder() []element {
	paint := make([]element, 0, len(l.Items)+len(l.Overlays))
	for _, it := range l.Items {
		if it.Disabled || it.Rect.Empty() {
			continue
		}
		paint = append(paint, element{id: it.ID, rect: it.Rect, path: it.Path, z: it.Z})
	}
	for _, o := range l.Overlays {
		paint = append(paint, element{id: o.ID, rect: o.Rect, path: o.Path, z: o.Z})
	}
	sort.SliceStable(paint, func(i, j int) bool { return paint[i].z < paint[j].z })
	return paint
}

// Visible returns the items that can take focus right now, in document order.
// An item is visible when it is enabled, has an area, and at least one of its
// nine sample points hits the item itself or something inside it. A sample
// point outside the viewport counts as visible.
func (l *Layout) Visible() []Item {
	paint := l.paintOrder()
	out := make([]Item, 0, len(l.Items))
	for _, it := range l.Items {
		if it.Disabled || it.Rect.Empty() {
			continue
		}
		if l.pointsVisible(paint, it) {
			out = append(out, it)
		}
	}
	return out
}

func (l *Layout) pointsVisible(paint []element, it Item) bool {
	for _, p := range it.Rect.samplePoints() {
		if !l.Viewport.Empty() && !l.Viewport.Contains(p[0], p[1]) {
			return true
		}
		hit, ok := hitTest(paint, p[0], p[1])
		if !ok {
			continue
		}
		if hit.id == it.ID || slices.Contains(hit.path, it.ID) {
			return true
		}
	}
	return false
}

// commonAncestors counts the shared leading entries of two items'
// ancestor chains, each chain ending with the item itself.
func commonAncestors(a, b Item) int {
	ca := append(append([]string(nil), a.Path...), a.ID)
	cb := append(append([]string(nil), b.Path...), b.ID)
	n := 0
	for n < len(ca) && n < len(cb) && ca[n] == cb[n] {
		n++
	}
	return n
}

// Provider supplies the current layout for a scope.
type Provider interface {
	Layout(scope string) (*Layout, bool)
}

// LayoutStore keeps the most recent layout per scope. The UI replaces a
// scope's layout whole whenever its geometry changes.
type LayoutStore struct {
	mu      sync.RWMutex
	layouts map[string]*Layout
}

func NewLayoutStore() *LayoutStore {
	return &LayoutStore{layouts: make(map[string]*Layout)}
}

// Set validates and stores l under l.Scope.
func (s *LayoutStore) Set(l *Layout) error {
	if err := l.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.layouts[l.Scope] = l
	s.mu.Unlock()
	return nil
}

func (s *LayoutStore) Layout(scope string) (*Layout, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.layouts[scope]
	return l, ok
}

// Scopes returns the stored scope names, sorted.
func (s *LayoutStore) Scopes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.layouts))
	for k := range s.layouts {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
