// media — Card raster generator: verification QR codes and circular
// profile photos, as the renderer embeds them.
//
// Usage:
//
//	media qr -id <membership id> [-base <url>] -o <file>
//	media circle -in <photo> -size <pt> [-border <pt>] [-color <hex>] -o <file>
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/xob0t/CardStencil/pkg/generator"
	"github.com/xob0t/CardStencil/pkg/render"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "qr":
		err = runQR(os.Args[2:])
	case "circle":
		err = runCircle(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runQR(args []string) error {
	fs := flag.NewFlagSet("qr", flag.ExitOnError)

	var (
		id      string
		base    string
		payload string
		output  string
	)

	fs.StringVar(&id, "id", "", "Membership id to encode in the verification URL")
	fs.StringVar(&base, "base", render.DefaultVerifyBaseURL, "Verification site base URL")
	fs.StringVar(&payload, "payload", "", "Raw payload (overrides -id)")
	fs.StringVar(&output, "o", "", "Output PNG path")
	fs.StringVar(&output, "output", "", "Output PNG path")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if output == "" {
		return fmt.Errorf("output file is required (-o)")
	}
	if payload == "" {
		if id == "" {
			return fmt.Errorf("-id or -payload is required")
		}
		payload = generator.VerificationURL(base, id)
	}

	data, err := generator.QRCode(payload)
	if err != nil {
		return err
	}
	if err := generator.WritePNG(output, data); err != nil {
		return err
	}
	fmt.Printf("Encoded %q: %s\n", payload, output)
	return nil
}

func runCircle(args []string) error {
	fs := flag.NewFlagSet("circle", flag.ExitOnError)

	var (
		input  string
		output string
		width  int
		height int
		border float64
		color  string
	)

	fs.StringVar(&input, "in", "", "Input photo (PNG, JPEG, GIF, BMP, TIFF, WebP)")
	fs.StringVar(&output, "o", "", "Output PNG path")
	fs.StringVar(&output, "output", "", "Output PNG path")
	fs.IntVar(&width, "size", 100, "Field size in points (square)")
	fs.IntVar(&width, "width", 100, "Field width in points")
	fs.IntVar(&height, "height", 0, "Field height in points (default: width)")
	fs.Float64Var(&border, "border", 1, "Border width in points")
	fs.StringVar(&color, "color", "#000000", "Border color (hex)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if input == "" || output == "" {
		return fmt.Errorf("-in and -o are required")
	}
	if height <= 0 {
		height = width
	}
	if _, _, _, err := generator.ParseColor(color); err != nil {
		return err
	}

	src, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read photo: %w", err)
	}
	data, err := generator.Circle(src, generator.CircleOptions{
		Width:       width,
		Height:      height,
		BorderWidth: border,
		BorderColor: color,
	})
	if err != nil {
		return err
	}
	if err := generator.WritePNG(output, data); err != nil {
		return err
	}
	fmt.Printf("Composited %s: %s (%dx%d px)\n", input, output, width*generator.Supersample, height*generator.Supersample)
	return nil
}

func printUsage() {
	fmt.Print(`media — Card raster generator

USAGE:
    media qr -id <membership id> [-base <url>] -o <file>
    media qr -payload <text> -o <file>
    media circle -in <photo> -size <pt> [-border <pt>] [-color <hex>] -o <file>

EXAMPLES:
    media qr -id MSL-2024-0001 -o qr.png
    media circle -in photo.jpg -size 64 -border 2 -color "#1f4e79" -o photo.png
`)
}
