/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/platesolve
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package star

/*****************************************************************************************************************/

import "github.com/observerly/platesolve/pkg/geometry"

/*****************************************************************************************************************/

// Star is the record produced by the extraction kernel (C3) for a single
// detected source, and later enriched with RA/Dec once a WCS is known.
//
// Pixel coordinates follow the 1-based convention: the first pixel center is
// (1.0, 1.0).
type Star struct {
	Designation string // catalog ID or colloquial name, set only for catalog-sourced stars

	// Position:
	X float64 // x position in original-image pixels
	Y float64 // y position in original-image pixels

	// Shape, from the second-moment fit (step 5 of the extraction kernel):
	A     float64 // semi-major axis of the best-fit ellipse
	B     float64 // semi-minor axis of the best-fit ellipse
	Theta float64 // orientation of the best-fit ellipse, in degrees

	// Photometry:
	Flux      float64 // integrated flux within the chosen aperture
	Peak      float64 // peak pixel intensity
	Magnitude float64 // m = magzero - 2.5*log10(flux)
	HFR       float64 // half-flux radius; zero when not requested

	NumPixels int // number of pixels occupied by the detection

	// Optional sky position, populated only once a WCS handle exists:
	RA  float64
	Dec float64

	Intensity float64 // ranks stars for the quad/asterism kernel: peak pixel for extracted stars, G mean flux for catalog stars
}

/*****************************************************************************************************************/

// Valid reports whether the star satisfies the data-model invariants of
// spec.md §3: a ≥ b ≥ 0, flux > 0, numPixels ≥ minarea.
func (s Star) Valid(minarea int) bool {
	return s.A >= s.B && s.B >= 0 && s.Flux > 0 && s.NumPixels >= minarea
}

/*****************************************************************************************************************/

func (s Star) EuclidianDistanceTo(point Star) float64 {
	return geometry.DistanceBetweenTwoCartesianPoints(s.X, s.Y, point.X, point.Y)
}

/*****************************************************************************************************************/
