package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/blacktop/termimage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if len(os.Args) > 1 {
		// If a file is provided, render it
		renderFile(ctx, os.Args[1])
	} else {
		// Otherwise, create a test pattern
		renderTestPattern(ctx)
	}
}

func renderFile(ctx context.Context, path string) {
	fmt.Printf("Rendering image: %s\n\n", path)

	// Simple one-liner to draw a file
	if err := termimage.PrintFile(ctx, path); err != nil {
		log.Fatalf("Error rendering file: %v", err)
	}

	fmt.Println("\nUsing fluent API with custom settings:")

	img, err := termimage.Open(path)
	if err != nil {
		log.Fatalf("Error opening file: %v", err)
	}
	defer img.Close()

	err = img.
		Width(80).
		Height(40).
		Fit(termimage.FitContain).
		Style(termimage.Auto).
		Repeat(1).
		Draw(ctx)
	if err != nil {
		log.Fatalf("Error rendering with fluent API: %v", err)
	}
}

func renderTestPattern(ctx context.Context) {
	fmt.Print("Creating test pattern...\n\n")

	img := createTestPattern()
	caps := termimage.DefaultTerminal().Capabilities(ctx)

	styles := []struct {
		name      string
		style     termimage.Style
		supported bool
	}{
		{"Block", termimage.Block, true},
		{"Kitty", termimage.Kitty, caps.Kitty},
		{"Sixel", termimage.Sixel, caps.Sixel},
		{"iTerm2", termimage.ITerm2, caps.ITerm2},
		{"Auto-detect", termimage.Auto, true},
	}

	for _, s := range styles {
		fmt.Printf("\n=== %s ===\n", s.name)
		if !s.supported {
			fmt.Printf("❌ %s is not supported in this terminal\n", s.name)
			continue
		}
		err := termimage.New(img).
			Width(40).
			Style(s.style).
			Draw(ctx)
		if err != nil {
			fmt.Printf("Error with %s: %v\n", s.name, err)
		} else {
			fmt.Printf("%s rendering completed\n", s.name)
		}

		fmt.Print(strings.Repeat("-", 50) + "\n")
	}

	fmt.Println("\n=== Format Examples ===")

	for _, f := range []string{"<30", "60.12", ">60._12#202020+m"} {
		fmt.Printf("\n%q:\n", f)
		out, err := termimage.New(img).Format(f)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		fmt.Println(out)
	}

	fmt.Println("\nMosaic blocks:")
	out, err := termimage.New(img).Style(termimage.Block).Mosaic(true).Width(30).Render()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
	}
	fmt.Println(out)
}

func createTestPattern() image.Image {
	const size = 200
	img := image.NewRGBA(image.Rect(0, 0, size, size))

	// Create a gradient pattern
	for y := range size {
		for x := range size {
			r := uint8((x * 255) / size)
			g := uint8((y * 255) / size)
			b := uint8(((x + y) * 255) / (2 * size))
			img.Set(x, y, color.RGBA{r, g, b, 255})
		}
	}

	// Add some shapes
	// Red square
	draw.Draw(img, image.Rect(20, 20, 60, 60),
		&image.Uniform{color.RGBA{255, 0, 0, 255}},
		image.Point{}, draw.Src)

	// Green circle (approximated with a square for simplicity)
	draw.Draw(img, image.Rect(140, 20, 180, 60),
		&image.Uniform{color.RGBA{0, 255, 0, 255}},
		image.Point{}, draw.Src)

	// Blue square
	draw.Draw(img, image.Rect(20, 140, 60, 180),
		&image.Uniform{color.RGBA{0, 0, 255, 255}},
		image.Point{}, draw.Src)

	// White square
	draw.Draw(img, image.Rect(140, 140, 180, 180),
		&image.Uniform{color.RGBA{255, 255, 255, 255}},
		image.Point{}, draw.Src)

	return img
}
