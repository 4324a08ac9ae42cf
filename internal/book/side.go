package book

import (
	"fmt"
	"strings"
)

// Side is a physical half of a spread or of the unfolded cover.
type Side string

const (
	SideLeft  Side = "Left"
	SideRight Side = "Right"
)

// Opposite returns the geometric complement of s.
func (s Side) Opposite() Side {
	if s == SideLeft {
		return SideRight
	}
	return SideLeft
}

// Valid reports whether s is one of the two known sides.
func (s Side) Valid() bool {
	return s == SideLeft || s == SideRight
}

// ParseSide accepts "left"/"right" in any case.
func ParseSide(value string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "left", "l":
		return SideLeft, nil
	case "right", "r":
		return SideRight, nil
	default:
		return "", fmt.Errorf("unknown side %q", value)
	}
}

// Direction is the writing direction of the book's language.
type Direction string

const (
	LeftToRight Direction = "ltr"
	RightToLeft Direction = "rtl"
)

// Flip returns the other writing direction.
func (d Direction) Flip() Direction {
	if d == RightToLeft {
		return LeftToRight
	}
	return RightToLeft
}

// Panel is one horizontal section of the unfolded cover.
type Panel string

const (
	PanelBack  Panel = "Back"
	PanelSpine Panel = "Spine"
	PanelFront Panel = "Front"
)

// CoverPanels is the physical arrangement of the unfolded cover for a writing
// direction. FrontSide and BackSide are the single source for every cover
// placement decision.
type CoverPanels struct {
	Order     [3]Panel
	FrontSide Side
	BackSide  Side
}

// PanelsFor derives the cover arrangement: left-to-right books open with the
// front on the right, right-to-left books with the front on the left.
func PanelsFor(dir Direction) CoverPanels {
	if dir == RightToLeft {
		return CoverPanels{
			Order:     [3]Panel{PanelFront, PanelSpine, PanelBack},
			FrontSide: SideLeft,
			BackSide:  SideRight,
		}
	}
	return CoverPanels{
		Order:     [3]Panel{PanelBack, PanelSpine, PanelFront},
		FrontSide: SideRight,
		BackSide:  SideLeft,
	}
}

func (c CoverPanels) String() string {
	return fmt.Sprintf("[%s|%s|%s]", c.Order[0], c.Order[1], c.Order[2])
}
