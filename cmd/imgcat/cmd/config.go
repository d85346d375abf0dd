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
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blacktop/termimage"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the imgcat config file, ~/.config/imgcat/config.toml
type Config struct {
	Style        string  `koanf:"style"`         // auto, block, kitty, iterm2 or sixel
	Width        int     `koanf:"width"`         // cells
	Height       int     `koanf:"height"`        // cells
	Repeat       *int    `koanf:"repeat"`        // animation passes, -1 forever
	Background   string  `koanf:"background"`    // [#]rrggbb blended under transparent pixels
	FontRatio    float64 `koanf:"font_ratio"`    // cell width / cell height
	QueryTimeout string  `koanf:"query_timeout"` // e.g. "300ms"
	Tmux         bool    `koanf:"tmux"`          // force tmux passthrough
}

// LoadConfig reads the default config file, then any extra paths in order
// (last wins). Missing files are skipped.
func LoadConfig(extra ...string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range append(configPaths(), extra...) {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	}

	conf := &Config{}
	if err := k.Unmarshal("", conf); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return conf, nil
}

func configPaths() []string {
	var paths []string
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "imgcat", "config.toml"))
	}
	return paths
}

// TerminalConfig builds the terminal settings, starting from TERMIMAGE_*
// environment overrides
func (c *Config) TerminalConfig() (termimage.Config, error) {
	cfg := termimage.ConfigFromEnv()
	if c.Style != "" {
		s, err := termimage.ParseStyle(c.Style)
		if err != nil {
			return cfg, err
		}
		cfg.DefaultStyle = s
	}
	if c.FontRatio < 0 {
		return cfg, fmt.Errorf("invalid font_ratio %v", c.FontRatio)
	}
	if c.FontRatio > 0 {
		cfg.FontRatio = c.FontRatio
	}
	if c.QueryTimeout != "" {
		d, err := time.ParseDuration(c.QueryTimeout)
		if err != nil {
			return cfg, fmt.Errorf("invalid query_timeout: %w", err)
		}
		cfg.QueryTimeout = d
	}
	if c.Tmux {
		cfg.ForceTmux = true
	}
	return cfg, nil
}

// Apply configures img. Invalid sizes surface when the image is rendered.
func (c *Config) Apply(img *termimage.Image) error {
	if c.Width != 0 {
		img.Width(c.Width)
	}
	if c.Height != 0 {
		img.Height(c.Height)
	}
	if c.Style != "" {
		s, err := termimage.ParseStyle(c.Style)
		if err != nil {
			return err
		}
		img.Style(s)
	}
	if c.Repeat != nil {
		img.Repeat(*c.Repeat)
	}
	if c.Background != "" {
		t, err := termimage.BackgroundHex("#" + strings.TrimPrefix(c.Background, "#"))
		if err != nil {
			return err
		}
		img.Transparency(t)
	}
	return nil
}
