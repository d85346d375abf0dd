package termimage

import (
	"regexp"
	"strconv"
	"strings"
)

// Allowances subtracted from the terminal size when a format leaves the
// padding size unset. The vertical allowance keeps room for a shell prompt.
const (
	HAllowance = 0
	VAllowance = 2
)

var (
	formatRe     = regexp.MustCompile(`^(([<|>])?(\d+)?)?(\.([-^_])?(\d+)?)?(#(\.\d+|[0-9a-fA-F]{6}|#)?)?(\+(.+))?$`)
	noVerticalRe = regexp.MustCompile(`^(([<|>])?(\d+)?)?\.(#(\.\d+|[0-9a-fA-F]{6})?)?$`)
)

// FormatSpec is a parsed format string.
//
//	[<|>][width][.[-^_][height]][#[.threshold|rrggbb|#]][+style]
type FormatSpec struct {
	HAlign HAlign
	VAlign VAlign
	// PadWidth and PadHeight are 0 when the terminal size should be used
	PadWidth  int
	PadHeight int
	// Transparency is nil when the format does not mention it
	Transparency *Transparency
	// Style holds backend specific flags from the +style suffix
	Style StyleOptions
}

// StyleOptions are the backend specific format flags.
//
//	z<0-9>  kitty zlib compression level
//	j       iTerm2 JPEG payload
//	m       block mosaic method
//	l       kitty and iTerm2 lines method, one image per cell row
type StyleOptions struct {
	Compression int
	JPEG        bool
	Mosaic      bool
	Lines       bool
}

// ParseFormat parses the format mini-language
func ParseFormat(spec string) (FormatSpec, error) {
	fs := FormatSpec{HAlign: AlignCenter, VAlign: AlignMiddle, Style: StyleOptions{Compression: -1}}

	m := formatRe.FindStringSubmatch(spec)
	if m == nil || noVerticalRe.MatchString(spec) {
		return fs, WrapInvalidFormat(spec, "does not match [<|>][width][.[-^_][height]][#[.threshold|rrggbb|#]][+style]")
	}

	switch m[2] {
	case "<":
		fs.HAlign = AlignLeft
	case ">":
		fs.HAlign = AlignRight
	}
	switch m[5] {
	case "^":
		fs.VAlign = AlignTop
	case "_":
		fs.VAlign = AlignBottom
	}

	var err error
	if fs.PadWidth, err = parsePad(spec, m[3]); err != nil {
		return fs, err
	}
	if fs.PadHeight, err = parsePad(spec, m[6]); err != nil {
		return fs, err
	}

	if m[7] != "" {
		t, err := parseTransparency(spec, m[8])
		if err != nil {
			return fs, err
		}
		fs.Transparency = &t
	}

	if m[9] != "" {
		if fs.Style, err = parseStyleOptions(spec, m[10]); err != nil {
			return fs, err
		}
	}
	return fs, nil
}

func parsePad(spec, s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, WrapInvalidFormat(spec, "padding must be a positive integer")
	}
	return n, nil
}

func parseTransparency(spec, s string) (Transparency, error) {
	switch {
	case s == "":
		return Opaque(), nil
	case s == "#":
		return DefaultBackground(), nil
	case strings.HasPrefix(s, "."):
		v, err := strconv.ParseFloat("0"+s, 64)
		if err != nil {
			return Transparency{}, WrapInvalidFormat(spec, "bad alpha threshold")
		}
		return AlphaThreshold(v), nil
	default:
		t, err := BackgroundHex("#" + s)
		if err != nil {
			return Transparency{}, WrapInvalidFormat(spec, err.Error())
		}
		return t, nil
	}
}

func parseStyleOptions(spec, s string) (StyleOptions, error) {
	opts := StyleOptions{Compression: -1}
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case 'z':
			if i+1 >= len(s) || s[i+1] < '0' || s[i+1] > '9' {
				return opts, WrapInvalidFormat(spec, "z needs a compression level 0-9")
			}
			opts.Compression = int(s[i+1] - '0')
			i++
		case 'j':
			opts.JPEG = true
		case 'm':
			opts.Mosaic = true
		case 'l':
			opts.Lines = true
		default:
			return opts, WrapInvalidFormat(spec, "unknown style flag "+strconv.QuoteRune(rune(c)))
		}
	}
	return opts, nil
}

// apply copies the format's layout into spec. Unset padding falls back to
// the terminal size less the allowances.
func (fs FormatSpec) apply(spec RenderSpec, term Bounds) RenderSpec {
	spec.HAlign = fs.HAlign
	spec.VAlign = fs.VAlign
	spec.PadWidth = fs.PadWidth
	if spec.PadWidth == 0 {
		spec.PadWidth = max(0, term.Cols-HAllowance)
	}
	spec.PadHeight = fs.PadHeight
	if spec.PadHeight == 0 {
		spec.PadHeight = max(0, term.Rows-VAllowance)
	}
	return spec
}

// PadText surrounds rendered text with space padding per g.
// Lines of text are assumed to be g.Cols cells wide.
func PadText(text string, g Geometry) string {
	if g.PadLeft == 0 && g.PadRight == 0 && g.PadTop == 0 && g.PadBottom == 0 {
		return text
	}

	width := g.Width()
	left := strings.Repeat(" ", g.PadLeft)
	right := strings.Repeat(" ", g.PadRight)
	blank := strings.Repeat(" ", width)

	var b strings.Builder
	for range g.PadTop {
		b.WriteString(blank)
		b.WriteByte('\n')
	}
	b.WriteString(left)
	b.WriteString(strings.ReplaceAll(text, "\n", right+"\n"+left))
	b.WriteString(right)
	for range g.PadBottom {
		b.WriteByte('\n')
		b.WriteString(blank)
	}
	return b.String()
}
