package csi

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPassthrough(t *testing.T) {
	assert.Equal(t, "\x1bPtmux;\x1b\x1b[16t\x1b\\", Passthrough("\x1b[16t"))
	assert.Equal(t, "plain", Passthrough("plain"))
}

func TestProbe(t *testing.T) {
	p := string(Probe(false))
	assert.True(t, strings.HasPrefix(p, KittyQuery))
	assert.True(t, strings.HasSuffix(p, PrimaryDeviceAttributes))
	assert.Contains(t, p, ITermCellSizeQuery)
	assert.Contains(t, p, CellSizeQuery)

	wrapped := string(Probe(true))
	assert.Equal(t, 3, strings.Count(wrapped, "\x1bPtmux;"))
	assert.True(t, strings.HasSuffix(wrapped, PrimaryDeviceAttributes))
}

func TestParseDA1(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		complete  bool
		wantSixel bool
	}{
		{"xterm with sixel", "\x1b[?63;1;2;4;6;9;15;22c", true, true},
		{"vt220 no sixel", "\x1b[?62;22c", true, false},
		{"level 4 only", "\x1b[?4c", true, false},
		{"mixed with other replies", "\x1b_Gi=31;OK\x1b\\\x1b[?62;4c", true, true},
		{"incomplete", "\x1b[?62;4", false, false},
		{"empty", "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.complete, HasDA1([]byte(tt.reply)))
			assert.Equal(t, tt.wantSixel, SixelInDA1([]byte(tt.reply)))
		})
	}
}

func TestParseKittyOK(t *testing.T) {
	assert.True(t, ParseKittyOK([]byte("\x1b_Gi=31;OK\x1b\\\x1b[?62c")))
	assert.False(t, ParseKittyOK([]byte("\x1b_Gi=31;ENOENT:bad\x1b\\")))
	assert.False(t, ParseKittyOK([]byte("\x1b[?62c")))
}

func TestParseCellSize(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		w, h  int
		ok    bool
	}{
		{"valid", "\x1b[6;16;8t", 8, 16, true},
		{"inside batch", "junk\x1b[6;20;10t\x1b[?1c", 10, 20, true},
		{"zero", "\x1b[6;0;0t", 0, 0, false},
		{"text area only", "\x1b[4;768;1024t", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, ok := ParseCellSize([]byte(tt.reply))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.w, w)
			assert.Equal(t, tt.h, h)
		})
	}

	w, h, ok := ParseTextAreaSize([]byte("\x1b[4;768;1024t"))
	assert.True(t, ok)
	assert.Equal(t, 1024, w)
	assert.Equal(t, 768, h)
}

func TestParseITermCellSize(t *testing.T) {
	w, h, ok := ParseITermCellSize([]byte("\x1b]1337;ReportCellSize=17.0;8.0;2.0\x07"))
	assert.True(t, ok)
	assert.InDelta(t, 16.0, w, 1e-9)
	assert.InDelta(t, 34.0, h, 1e-9)

	w, h, ok = ParseITermCellSize([]byte("\x1b]1337;ReportCellSize=16;8\x1b\\"))
	assert.True(t, ok)
	assert.InDelta(t, 8.0, w, 1e-9)
	assert.InDelta(t, 16.0, h, 1e-9)

	_, _, ok = ParseITermCellSize([]byte("\x1b]1337;ReportCellSize=16"))
	assert.False(t, ok)
}
