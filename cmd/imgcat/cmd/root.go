/*
Copyright © 2024 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	clihander "github.com/apex/log/handlers/cli"
	"github.com/blacktop/termimage"
	"github.com/blacktop/termimage/pkg/tty"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	clear      bool
	detect     bool
	configPath string
	format     string
	flags      Config
)

// openDevice returns the device images are drawn on
var openDevice = func() tty.Device {
	return tty.NewFileDevice(os.Stdin, os.Stdout)
}

func init() {
	log.SetHandler(clihander.Default)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "V", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default is $XDG_CONFIG_HOME/imgcat/config.toml)")

	rootCmd.Flags().BoolVarP(&clear, "clear", "c", false, "Clear the image after displaying it")
	rootCmd.Flags().BoolVarP(&detect, "detect", "d", false, "Print the detected terminal capabilities and exit")
	rootCmd.Flags().StringVarP(&format, "format", "f", "", "Layout format, e.g. '<60.^20#101010+z9'")
	rootCmd.Flags().IntVarP(&flags.Width, "width", "W", 0, "Width in cells")
	rootCmd.Flags().IntVarP(&flags.Height, "height", "H", 0, "Height in cells")
	rootCmd.Flags().StringVarP(&flags.Style, "style", "s", "", "Render style: auto, block, kitty, iterm2, sixel")
	rootCmd.Flags().IntP("repeat", "r", 0, "Animation passes (-1 loops forever, 0 shows the first frame)")
	rootCmd.Flags().StringVarP(&flags.Background, "background", "b", "", "Blend transparent pixels over this rrggbb color")
	rootCmd.Flags().BoolVar(&flags.Tmux, "tmux", false, "Force tmux passthrough")
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "imgcat [flags] <image>...",
	Short: "Display images in your terminal",
	Args: func(cmd *cobra.Command, args []string) error {
		if detect {
			return nil
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetLevel(log.DebugLevel)
			termimage.SetLogger(log.Log)
		}

		conf, err := LoadConfig(configPath)
		if err != nil {
			return err
		}
		mergeFlags(cmd, conf)

		tcfg, err := conf.TerminalConfig()
		if err != nil {
			return err
		}
		term := termimage.NewTerminal(openDevice(), tcfg)
		defer term.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if detect {
			return printCapabilities(cmd, term.Capabilities(ctx), term.Style(ctx, termimage.Auto))
		}

		for _, path := range args {
			if err := show(ctx, term, conf, path); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return fmt.Errorf("%s: %w", path, err)
			}
		}
		return nil
	},
}

// mergeFlags overrides config file values with the flags set on the command line
func mergeFlags(cmd *cobra.Command, conf *Config) {
	fs := cmd.Flags()
	if fs.Changed("width") {
		conf.Width = flags.Width
	}
	if fs.Changed("height") {
		conf.Height = flags.Height
	}
	if fs.Changed("style") {
		conf.Style = flags.Style
	}
	if fs.Changed("background") {
		conf.Background = flags.Background
	}
	if fs.Changed("tmux") {
		conf.Tmux = flags.Tmux
	}
	if fs.Changed("repeat") {
		n, _ := fs.GetInt("repeat")
		conf.Repeat = &n
	}
}

func show(ctx context.Context, term *termimage.Terminal, conf *Config, path string) error {
	img, err := termimage.Open(path)
	if err != nil {
		return err
	}
	defer img.Close()

	img.Terminal(term)
	if err := conf.Apply(img); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"path":   path,
		"frames": img.Len(),
	}).Debug("Displaying image")

	if format != "" {
		out, err := img.Format(format)
		if err != nil {
			return err
		}
		if err := term.WriteString(out + "\n"); err != nil {
			return err
		}
	} else if err := img.Draw(ctx); err != nil {
		return err
	}

	if clear { // Clear the image after displaying it
		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
		}
		out, err := img.Clear()
		if err != nil {
			return err
		}
		return term.WriteString(out)
	}
	return nil
}

func printCapabilities(cmd *cobra.Command, caps termimage.Capabilities, best termimage.Style) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "TERM:          %s\n", caps.TermName)
	fmt.Fprintf(w, "TERM_PROGRAM:  %s\n", caps.TermProgram)
	fmt.Fprintf(w, "Interactive:   %t\n", caps.Interactive)
	fmt.Fprintf(w, "Tmux:          %t\n", caps.Tmux)
	fmt.Fprintf(w, "Kitty:         %t\n", caps.Kitty)
	fmt.Fprintf(w, "iTerm2:        %t\n", caps.ITerm2)
	fmt.Fprintf(w, "Sixel:         %t\n", caps.Sixel)
	fmt.Fprintf(w, "Cell size:     %dx%d (font ratio %.3f)\n", caps.CellWidth, caps.CellHeight, caps.FontRatio)
	_, err := fmt.Fprintf(w, "Best protocol: %s\n", best)
	return err
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}
