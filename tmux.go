package termimage

import (
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/blacktop/termimage/pkg/csi"
)

var (
	tmuxPassthroughOnce    sync.Once
	tmuxPassthroughEnabled bool
)

// inTmux reports whether the environment says we run inside tmux
func inTmux() bool {
	return os.Getenv("TMUX") != "" || os.Getenv("TERM_PROGRAM") == "tmux"
}

// EnableTmuxPassthrough asks tmux to forward graphics sequences for the
// current pane. It runs at most once per process.
func EnableTmuxPassthrough() bool {
	tmuxPassthroughOnce.Do(func() {
		// -p sets the option for the current pane only
		cmd := exec.Command("tmux", "set", "-p", "allow-passthrough", "on")
		cmd.Stdin, cmd.Stdout, cmd.Stderr = nil, nil, nil
		if err := cmd.Run(); err != nil {
			logf().WithError(err).Debug("tmux allow-passthrough")
			return
		}
		tmuxPassthroughEnabled = true
	})
	return tmuxPassthroughEnabled
}

// wrapTmux wraps every escape sequence in out for tmux passthrough.
// Plain text (footprint spaces, newlines, CSI cursor moves) is left for tmux
// to handle itself.
func wrapTmux(seqs ...string) string {
	var b strings.Builder
	for _, s := range seqs {
		b.WriteString(csi.Passthrough(s))
	}
	return b.String()
}
