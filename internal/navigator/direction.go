package navigator

import (
	"fmt"
	"strings"
)

// Direction is a focus movement direction.
type Direction uint8

const (
	Left Direction = 1 << iota
	Right
	Up
	Down
)

// AllDirections is the default set of directions an item may be left by.
const AllDirections = Left | Right | Up | Down

func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Right:
		return "right"
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// ParseDirection accepts "left", "right", "up" or "down" in any case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	default:
		return 0, fmt.Errorf("invalid direction %q", s)
	}
}

// ParseDirections reads a whitespace-separated direction list such as
// "left up". Unknown words are skipped. An empty list means all directions.
func ParseDirections(s string) Direction {
	var set Direction
	for _, f := range strings.Fields(s) {
		if d, err := ParseDirection(f); err == nil {
			set |= d
		}
	}
	if set == 0 {
		return AllDirections
	}
	return set
}

// Has reports whether d is in the set.
func (set Direction) Has(d Direction) bool {
	return set&d != 0
}
