package termimage

import (
	"fmt"
	"strings"
)

// Style selects a render backend
type Style int

const (
	// Auto picks the best style the terminal answered to
	Auto Style = iota
	// Block renders ANSI 24-bit half-block cells; works on any ANSI terminal
	Block
	// Kitty uses the kitty graphics protocol
	Kitty
	// ITerm2 uses the iTerm2 inline images protocol
	ITerm2
	// Sixel uses DEC sixel graphics
	Sixel
)

// String returns the string representation of the style
func (s Style) String() string {
	switch s {
	case Auto:
		return "Auto"
	case Block:
		return "Block"
	case Kitty:
		return "Kitty"
	case ITerm2:
		return "iTerm2"
	case Sixel:
		return "Sixel"
	default:
		return fmt.Sprintf("Style(%d)", int(s))
	}
}

// ParseStyle parses a style name, case-insensitively
func ParseStyle(name string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return Auto, nil
	case "block", "blocks", "halfblocks", "ansi":
		return Block, nil
	case "kitty":
		return Kitty, nil
	case "iterm", "iterm2":
		return ITerm2, nil
	case "sixel":
		return Sixel, nil
	default:
		return Auto, fmt.Errorf("%w: %q", ErrUnsupportedStyle, name)
	}
}

// SelectStyle returns the highest fidelity style the capabilities allow.
// Block is the universal fallback.
func SelectStyle(caps Capabilities) Style {
	switch {
	case caps.Kitty:
		return Kitty
	case caps.ITerm2:
		return ITerm2
	case caps.Sixel:
		return Sixel
	default:
		return Block
	}
}
