package navigator

import "math"

// candidate is an item's geometry plus the attributes the comparators rank on.
type candidate struct {
	Rect
	item            Item
	order           int
	commonAncestors int
}

// comparator reports whether next is a better destination than best when
// moving away from cur. best is nil for the first eligible candidate.
type comparator func(cur, next candidate, best *candidate) bool

func comparatorFor(d Direction) comparator {
	switch d {
	case Left:
		return betterLeft
	case Right:
		return betterRight
	case Up:
		return betterUp
	case Down:
		return betterDown
	default:
		return nil
	}
}

// rankShared applies the ranking steps every direction has in common:
// outside the current band the less related subtree wins, then the group
// preference, then candidates inside the band beat those outside it.
// decided is false when next and best tie on all of them.
func rankShared(next, best candidate, nextIn, bestIn, lowerGroupWins bool) (better, decided bool) {
	if !nextIn && !bestIn && next.commonAncestors != best.commonAncestors {
		return next.commonAncestors < best.commonAncestors, true
	}
	if next.order != best.order {
		if lowerGroupWins {
			return next.order < best.order, true
		}
		return next.order > best.order, true
	}
	if nextIn != bestIn {
		return nextIn, true
	}
	return false, false
}

// inRow reports whether c overlaps the current item's row.
func inRow(cur, c candidate) bool { return c.Top < cur.Bottom && c.Bottom > cur.Top }

// inColumn reports whether c overlaps the current item's column.
func inColumn(cur, c candidate) bool { return c.Left < cur.Right && c.Right > cur.Left }

// betterLeft prefers the nearest candidate to the left that overlaps the
// current row, then the lowest one fully above it. Lower groups win.
func betterLeft(cur, next candidate, best *candidate) bool {
	if next.Top >= cur.Bottom {
		return false
	}
	if next.Left > cur.Left && (next.Bottom > cur.Top || next.order != cur.order) {
		return false
	}
	if next.Left <= cur.Left && next.Bottom > cur.Bottom && next.Top > cur.Top && next.order >= cur.order {
		return false
	}
	if best == nil {
		return true
	}

	nextIn, bestIn := inRow(cur, next), inRow(cur, *best)
	if better, ok := rankShared(next, *best, nextIn, bestIn, true); ok {
		return better
	}
	if !nextIn && next.Bottom != best.Bottom {
		// Both are above the current row.
		return next.Bottom > best.Bottom
	}
	if next.Left != best.Left {
		return next.Left > best.Left
	}
	return next.Top > best.Top
}

// betterRight mirrors betterLeft: the nearest candidate to the right in the
// current row, then the highest one fully below it. Higher groups win.
func betterRight(cur, next candidate, best *candidate) bool {
	if next.Bottom <= cur.Top {
		return false
	}
	if next.Left <= cur.Left && (next.Top <= cur.Bottom || next.order != cur.order) {
		return false
	}
	if next.Left >= cur.Left && next.Top < cur.Top && next.Bottom < cur.Bottom {
		return false
	}
	if best == nil {
		return true
	}

	nextIn, bestIn := inRow(cur, next), inRow(cur, *best)
	if better, ok := rankShared(next, *best, nextIn, bestIn, false); ok {
		return better
	}
	if !nextIn && next.Top != best.Top {
		// Both are below the current row.
		return next.Top < best.Top
	}
	if next.Left != best.Left {
		return next.Left < best.Left
	}
	return next.Top < best.Top
}

// betterUp prefers candidates entirely above the current item that overlap
// its column, nearest bottom edge first. Outside the column the smallest
// horizontal edge distance wins. Lower groups win.
func betterUp(cur, next candidate, best *candidate) bool {
	if next.Bottom > cur.Top {
		return false
	}
	if best == nil {
		return true
	}

	nextIn, bestIn := inColumn(cur, next), inColumn(cur, *best)
	if better, ok := rankShared(next, *best, nextIn, bestIn, true); ok {
		return better
	}
	if next.Bottom != best.Bottom {
		return next.Bottom > best.Bottom
	}
	if !nextIn {
		if dn, db := edgeDistance(cur, next), edgeDistance(cur, *best); dn != db {
			return dn < db
		}
	}
	return next.Left > best.Left
}

// betterDown mirrors betterUp: nearest top edge below the current item,
// column overlap first. Higher groups win.
func betterDown(cur, next candidate, best *candidate) bool {
	if next.Top < cur.Bottom {
		return false
	}
	if best == nil {
		return true
	}

	nextIn, bestIn := inColumn(cur, next), inColumn(cur, *best)
	if better, ok := rankShared(next, *best, nextIn, bestIn, false); ok {
		return better
	}
	if next.Top != best.Top {
		return next.Top < best.Top
	}
	if !nextIn {
		if dn, db := edgeDistance(cur, next), edgeDistance(cur, *best); dn != db {
			return dn < db
		}
	}
	return next.Left < best.Left
}

// edgeDistance is the smallest horizontal distance between any vertical edge
// of c and any vertical edge of cur.
func edgeDistance(cur, c candidate) float64 {
	return min(
		math.Abs(c.Left-cur.Left),
		math.Abs(c.Right-cur.Right),
		math.Abs(c.Left-cur.Right),
		math.Abs(c.Right-cur.Left),
	)
}
