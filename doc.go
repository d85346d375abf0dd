/*
Package termimage renders images and animations inside terminal emulators.

Frames are encoded with one of four styles: 24-bit colour half blocks,
the kitty graphics protocol, iTerm2 inline images or sixel. Auto asks the
terminal what it supports, once per process, and picks the best answer,
falling back to blocks when the terminal stays silent.

Every byte written to the terminal and every capability query goes through a
single gate (see pkg/tty), so images rendered from several goroutines never
interleave their escape sequences.

Basic Usage:

	// Draw a file, animating GIFs until they finish or ctx is cancelled
	err := termimage.PrintFile(ctx, "image.png")

	// Configure before drawing
	img, err := termimage.Open("cat.gif")
	if err != nil {
	    log.Fatal(err)
	}
	defer img.Close()

	err = img.Width(40).Repeat(3).Draw(ctx)

Rendering to text:

	// Render returns the current frame without writing it
	text, err := img.Style(termimage.Block).Height(10).Render()

	// Format lays the frame out in a padded box:
	// [<|>][width][.[-^_][height]][#[.threshold|rrggbb|#]][+style]
	text, err = img.Format("<60.^20#101010")

Sizes are in cells. With only one dimension set, the other follows the source
aspect ratio corrected for the terminal font (cell width / cell height):

	rows = round(cols * (h / w) * fontRatio)

Detection:

	caps := termimage.DefaultTerminal().Capabilities(ctx)
	fmt.Println(termimage.SelectStyle(caps))

TUI Integration:

	w := termimage.NewWidget(img).SetSize(30, 15)
	// w is a tea.Model; embed it in your own model's Update and View
*/
package termimage
