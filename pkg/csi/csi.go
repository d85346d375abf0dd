/*
Package csi provides the terminal query sequences used for capability
detection and pure parsers for the replies they produce.
*/
package csi

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
)

// KittyQueryID is the image id used by the graphics support probe
const KittyQueryID = 31

// Query sequences
const (
	// KittyQuery asks the terminal to validate (not display) a 1x1 RGB image
	KittyQuery = "\x1b_Gi=31,s=1,v=1,a=q,t=d,f=24;AAAA\x1b\\"
	// ITermCellSizeQuery asks iTerm2 compatible terminals for the cell size in points
	ITermCellSizeQuery = "\x1b]1337;ReportCellSize\x07"
	// CellSizeQuery is XTWINOPS 16: report character cell size in pixels
	CellSizeQuery = "\x1b[16t"
	// TextAreaSizeQuery is XTWINOPS 14: report text area size in pixels
	TextAreaSizeQuery = "\x1b[14t"
	// PrimaryDeviceAttributes (DA1) is answered by every terminal, so it terminates a batch
	PrimaryDeviceAttributes = "\x1b[c"
)

var (
	da1Re       = regexp.MustCompile(`\x1b\[\?([0-9;]*)c`)
	cellSizeRe  = regexp.MustCompile(`\x1b\[6;(\d+);(\d+)t`)
	textAreaRe  = regexp.MustCompile(`\x1b\[4;(\d+);(\d+)t`)
	itermCellRe = regexp.MustCompile(`\x1b\]1337;ReportCellSize=([0-9.]+);([0-9.]+)(?:;([0-9.]+))?(?:\x07|\x1b\\)`)
	kittyOK     = []byte("\x1b_Gi=31;OK")
)

// Passthrough wraps seq in a tmux DCS passthrough, doubling every ESC
func Passthrough(seq string) string {
	if !strings.HasPrefix(seq, "\x1b") {
		return seq
	}
	return "\x1bPtmux;" + strings.ReplaceAll(seq, "\x1b", "\x1b\x1b") + "\x1b\\"
}

// Probe builds the combined capability query. DA1 goes last and unwrapped so
// that tmux itself answers it once the passthrough replies are in.
func Probe(tmux bool) []byte {
	var b strings.Builder
	for _, q := range []string{KittyQuery, ITermCellSizeQuery, CellSizeQuery} {
		if tmux {
			q = Passthrough(q)
		}
		b.WriteString(q)
	}
	b.WriteString(PrimaryDeviceAttributes)
	return []byte(b.String())
}

// HasDA1 reports whether buf holds a complete primary device attributes reply
func HasDA1(buf []byte) bool {
	return da1Re.Match(buf)
}

// ParseDA1 returns the attribute list of a DA1 reply
func ParseDA1(buf []byte) ([]int, bool) {
	m := da1Re.FindSubmatch(buf)
	if m == nil {
		return nil, false
	}
	var attrs []int
	for _, part := range strings.Split(string(m[1]), ";") {
		if v, err := strconv.Atoi(part); err == nil {
			attrs = append(attrs, v)
		}
	}
	return attrs, true
}

// SixelInDA1 reports whether the DA1 reply advertises sixel graphics (attribute 4)
func SixelInDA1(buf []byte) bool {
	attrs, ok := ParseDA1(buf)
	if !ok {
		return false
	}
	// the first attribute is the conformance level
	for i, a := range attrs {
		if i > 0 && a == 4 {
			return true
		}
	}
	return false
}

// ParseKittyOK reports whether buf contains a successful graphics probe reply
func ParseKittyOK(buf []byte) bool {
	return bytes.Contains(buf, kittyOK)
}

// ParseCellSize parses CSI 6 ; height ; width t
func ParseCellSize(buf []byte) (width, height int, ok bool) {
	return parseHW(cellSizeRe, buf)
}

// ParseTextAreaSize parses CSI 4 ; height ; width t
func ParseTextAreaSize(buf []byte) (width, height int, ok bool) {
	return parseHW(textAreaRe, buf)
}

func parseHW(re *regexp.Regexp, buf []byte) (width, height int, ok bool) {
	m := re.FindSubmatch(buf)
	if m == nil {
		return 0, 0, false
	}
	height, _ = strconv.Atoi(string(m[1]))
	width, _ = strconv.Atoi(string(m[2]))
	if width <= 0 || height <= 0 {
		return 0, 0, false
	}
	return width, height, true
}

// ParseITermCellSize parses the ReportCellSize reply.
// The reply is height;width in points with an optional scale; the returned
// size is in pixels.
func ParseITermCellSize(buf []byte) (width, height float64, ok bool) {
	m := itermCellRe.FindSubmatch(buf)
	if m == nil {
		return 0, 0, false
	}
	height, err := strconv.ParseFloat(string(m[1]), 64)
	if err != nil {
		return 0, 0, false
	}
	width, err = strconv.ParseFloat(string(m[2]), 64)
	if err != nil {
		return 0, 0, false
	}
	if len(m[3]) > 0 {
		if scale, err := strconv.ParseFloat(string(m[3]), 64); err == nil && scale > 0 {
			width *= scale
			height *= scale
		}
	}
	if width <= 0 || height <= 0 {
		return 0, 0, false
	}
	return width, height, true
}
