/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/platesolve
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

// Package render draws a debug overlay PNG over a grayscale imageview.View:
// every extracted star circled, and (when a quadsolver.Solution is given)
// the solution's stars circled in a highlight colour, each labelled with its
// Designation when it carries one. Promoted from a one-off example into a
// reusable package, in the teacher's examples/solve/main.go idiom.
package render

/*****************************************************************************************************************/

import (
	"fmt"
	"image/color"
	"image/png"
	"io"

	"github.com/fogleman/gg"
	"github.com/observerly/platesolve/pkg/imageview"
	"github.com/observerly/platesolve/pkg/quadsolver"
	"github.com/observerly/platesolve/pkg/star"
)

/*****************************************************************************************************************/

var (
	starColor   = color.RGBA{R: 241, G: 245, B: 249, A: 255}
	matchColor  = color.RGBA{R: 129, G: 140, B: 248, A: 255}
	labelColor  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	starRadius  = 16.0
	matchRadius = 20.0
)

/*****************************************************************************************************************/

// Overlay rasterizes view's pixel data to grayscale, circles every entry in
// stars, and, when solution is non-nil, circles solution.Stars in a second
// colour, drawing the Designation of any star that has a non-empty one alongside.
func Overlay(view *imageview.View, stars []star.Star, solution *quadsolver.Solution) (*gg.Context, error) {
	stat := view.Stat()

	if stat.Width <= 0 || stat.Height <= 0 {
		return nil, fmt.Errorf("render: view has non-positive dimensions %dx%d", stat.Width, stat.Height)
	}

	dc := gg.NewContext(stat.Width, stat.Height)

	min, max := view.Raw()[0], view.Raw()[0]
	for _, v := range view.Raw() {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if max == min {
		max = min + 1
	}

	for y := 0; y < stat.Height; y++ {
		for x := 0; x < stat.Width; x++ {
			normalised := float64(view.ReadPixel(x, y)-min) / float64(max-min)
			dc.SetRGB(normalised, normalised, normalised)
			dc.SetPixel(x, y)
		}
	}

	for _, s := range stars {
		dc.SetColor(starColor)
		dc.DrawCircle(s.X, s.Y, starRadius)
		dc.SetLineWidth(2)
		dc.Stroke()
	}

	if solution != nil {
		for _, s := range solution.Stars {
			dc.SetColor(matchColor)
			dc.DrawCircle(s.X, s.Y, matchRadius)
			dc.SetLineWidth(2)
			dc.Stroke()

			if s.Designation != "" {
				dc.SetColor(labelColor)
				dc.DrawString(s.Designation, s.X, s.Y-30)
			}
		}
	}

	return dc, nil
}

/*****************************************************************************************************************/

// WritePNG encodes an overlay's drawing context to w as a PNG.
func WritePNG(dc *gg.Context, w io.Writer) error {
	return png.Encode(w, dc.Image())
}

/*****************************************************************************************************************/
