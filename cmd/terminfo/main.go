package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/apex/log"
	clihander "github.com/apex/log/handlers/cli"
	"github.com/blacktop/termimage"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	bold = color.New(color.Bold).SprintFunc()
	ok   = color.New(color.FgGreen).SprintFunc()
	no   = color.New(color.FgYellow).SprintFunc()
)

var (
	timeout time.Duration
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "terminfo",
	Short: "Report the terminal's graphics capabilities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetLevel(log.DebugLevel)
			termimage.SetLogger(log.Log)
		}

		cfg := termimage.ConfigFromEnv()
		cfg.QueryTimeout = timeout
		term, err := termimage.OpenTerminal(cfg)
		if err != nil {
			return err
		}
		defer term.Close()

		report(term)
		return nil
	},
}

func main() {
	log.SetHandler(clihander.Default)
	rootCmd.Flags().DurationVarP(&timeout, "timeout", "t", termimage.DefaultQueryTimeout, "Capability probe timeout")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "V", false, "Log the probe exchange")
	if err := rootCmd.Execute(); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func report(term *termimage.Terminal) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	caps := term.Capabilities(ctx)
	elapsed := time.Since(start)

	fmt.Println(bold("Terminal Environment:"))
	fmt.Printf("  TERM:         %s\n", caps.TermName)
	fmt.Printf("  TERM_PROGRAM: %s\n", caps.TermProgram)
	fmt.Printf("  Interactive:  %s\n", yesNo(caps.Interactive))
	fmt.Printf("  In tmux:      %s\n", yesNo(caps.Tmux))
	fmt.Println()

	fmt.Println(bold("Graphics Protocol Support:"))
	fmt.Printf("  Kitty:  %s\n", yesNo(caps.Kitty))
	fmt.Printf("  iTerm2: %s\n", yesNo(caps.ITerm2))
	fmt.Printf("  Sixel:  %s\n", yesNo(caps.Sixel))
	fmt.Println()

	fmt.Println(bold("Font and Size Information:"))
	if caps.CellWidth > 0 && caps.CellHeight > 0 {
		fmt.Printf("  Cell Size:  %dx%d pixels\n", caps.CellWidth, caps.CellHeight)
	} else {
		fmt.Printf("  Cell Size:  %s\n", no("not reported"))
	}
	fmt.Printf("  Font Ratio: %.3f\n", caps.FontRatio)
	b := term.Bounds()
	fmt.Printf("  Window:     %dx%d cells\n", b.Cols, b.Rows)
	fmt.Printf("  Probe took: %s\n", elapsed.Round(time.Millisecond))
	fmt.Println()

	best := termimage.SelectStyle(caps)
	fmt.Printf("%s %s\n", bold("Best protocol:"), ok(best))
	if used := term.Style(ctx, termimage.Auto); used != best {
		fmt.Printf("%s %s (from %s)\n", bold("Configured:"), ok(used), termimage.EnvStyle)
	}
	if best == termimage.Block {
		fmt.Fprintln(os.Stderr, no("No graphics protocol answered; images fall back to half blocks"))
	}
}

func yesNo(v bool) string {
	if v {
		return ok("yes")
	}
	return no("no")
}
