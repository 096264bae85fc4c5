package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"linefollow"

	"go.viam.com/rdk/rimage"
)

func main() {
	y := flag.Int("y", 300, "vert_scan_y")
	height := flag.Int("height", 30, "vert_scan_height")
	x := flag.Int("x", 125, "horz_scan_x")
	width := flag.Int("width", 500, "horz_scan_width")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <input.jpg> [output.jpg]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  If output is not specified, it will be <input>_output.jpg\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	inputFile := flag.Arg(0)

	// Determine output file name
	var outputFile string
	if flag.NArg() >= 2 {
		outputFile = flag.Arg(1)
	} else {
		ext := filepath.Ext(inputFile)
		base := strings.TrimSuffix(inputFile, ext)
		outputFile = base + "_output" + ext
	}

	input, err := rimage.ReadImageFromFile(inputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading image: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Image size: %dx%d\n", input.Bounds().Dx(), input.Bounds().Dy())

	geometry := linefollow.StripGeometry{Y: *y, Height: *height, X: *x, Width: *width}
	settings := linefollow.DefaultSettings()
	p, err := linefollow.NewPerception(geometry, settings.Colors, settings.Noise)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Bad settings: %v\n", err)
		os.Exit(1)
	}

	res, err := p.Process(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error processing image: %v\n", err)
		os.Exit(1)
	}

	for i, o := range res.Observations {
		fmt.Printf("  %-8s column %4d  peak %4d  blob %v (area %d)  usable %v  mask pixels %d\n",
			o.Label, o.Column, o.Estimate.Peak, o.Estimate.HasBlob, o.Estimate.Blob.Area, o.Usable, res.Masks[i].Count())
	}

	output, err := linefollow.StripDebugImage(input, p)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error drawing debug image: %v\n", err)
		os.Exit(1)
	}

	err = rimage.WriteImageToFile(outputFile, output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output image: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Saved output image to %s\n", outputFile)
}
