/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/platesolve
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package render

/*****************************************************************************************************************/

import (
	"bytes"
	"testing"

	"github.com/observerly/platesolve/pkg/imageview"
	"github.com/observerly/platesolve/pkg/quadsolver"
	"github.com/observerly/platesolve/pkg/star"
)

/*****************************************************************************************************************/

func newTestView(t *testing.T, width, height int) *imageview.View {
	t.Helper()

	samples := make([]uint16, width*height)
	for i := range samples {
		samples[i] = uint16(i % 65535)
	}

	view, err := imageview.New(samples, width, height, 1, imageview.U16, imageview.RED)
	if err != nil {
		t.Fatalf("imageview.New() returned an error: %v", err)
	}

	return view
}

/*****************************************************************************************************************/

func TestOverlayDrawsExtractedStarsOnly(t *testing.T) {
	view := newTestView(t, 16, 16)

	stars := []star.Star{
		{X: 4, Y: 4},
		{X: 10, Y: 10},
	}

	dc, err := Overlay(view, stars, nil)
	if err != nil {
		t.Fatalf("Overlay() returned an error: %v", err)
	}

	img := dc.Image()
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 16 {
		t.Fatalf("expected a 16x16 image, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

/*****************************************************************************************************************/

func TestOverlayDrawsMatchedSolutionStars(t *testing.T) {
	view := newTestView(t, 32, 32)

	stars := []star.Star{{X: 8, Y: 8}}

	solution := &quadsolver.Solution{
		Stars: []star.Star{
			{X: 16, Y: 16, Designation: "GAIA DR3 1234"},
		},
		LogOdds: 42,
	}

	dc, err := Overlay(view, stars, solution)
	if err != nil {
		t.Fatalf("Overlay() returned an error: %v", err)
	}

	var buf bytes.Buffer
	if err := WritePNG(dc, &buf); err != nil {
		t.Fatalf("WritePNG() returned an error: %v", err)
	}

	if buf.Len() == 0 {
		t.Fatalf("expected a non-empty PNG buffer")
	}
}

/*****************************************************************************************************************/
