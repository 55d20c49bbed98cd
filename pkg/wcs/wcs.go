/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/platesolve
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package wcs

/*****************************************************************************************************************/

import (
	"math"

	"github.com/observerly/platesolve/pkg/astrometry"
	"github.com/observerly/platesolve/pkg/transform"
)

/*****************************************************************************************************************/

// Projection names the analytic sky projection a WCS uses, mirroring the
// FITS CTYPE convention referenced in the GLOSSARY's "WCS" entry.
type Projection int

const (
	// RADEC_TAN is a gnomonic (tangent-plane) projection, the only
	// projection produced by the solving pipeline's final affine/SIP fit.
	RADEC_TAN Projection = iota
)

/*****************************************************************************************************************/

// WCS is the "WCS Handle" referenced throughout spec.md §3: an opaque
// object produced once a solve succeeds, answering pixel->sky and
// sky->pixel queries. The core owns its lifetime until a new solve
// replaces it; nothing downstream re-derives the projection math.
type WCS struct {
	Projection Projection

	CRPIX1 float64 // reference pixel X
	CRPIX2 float64 // reference pixel Y
	CRVAL1 float64 // RA at the reference pixel, degrees
	CRVAL2 float64 // Dec at the reference pixel, degrees
	CD1_1  float64 // d(RA)/dx
	CD1_2  float64 // d(RA)/dy
	CD2_1  float64 // d(Dec)/dx
	CD2_2  float64 // d(Dec)/dy

	// SIP carries optional non-linear pixel->sky distortion correction
	// terms; nil when the solve settled on a pure affine fit.
	SIP *transform.SIP2DForwardParameters

	// SIPInverse carries the corresponding sky->pixel distortion terms;
	// nil under the same condition as SIP.
	SIPInverse *transform.SIP2DInverseParameters
}

/*****************************************************************************************************************/

// NewWorldCoordinateSystem constructs a WCS handle from a reference pixel
// and an affine pixel->sky transform. The reference sky position is the
// affine transform evaluated at the reference pixel itself, so that
// PixelToEquatorialCoordinate(crpix1, crpix2) always returns (CRVAL1, CRVAL2).
func NewWorldCoordinateSystem(
	crpix1, crpix2 float64,
	affine transform.Affine2DParameters,
) WCS {
	return WCS{
		Projection: RADEC_TAN,
		CRPIX1:     crpix1,
		CRPIX2:     crpix2,
		CRVAL1:     affine.A*crpix1 + affine.B*crpix2 + affine.C,
		CRVAL2:     affine.D*crpix1 + affine.E*crpix2 + affine.F,
		CD1_1:      affine.A,
		CD1_2:      affine.B,
		CD2_1:      affine.D,
		CD2_2:      affine.E,
	}
}

/*****************************************************************************************************************/

// PixelToEquatorialCoordinate is the "pixel -> sky" query of the WCS Handle.
func (wcs *WCS) PixelToEquatorialCoordinate(
	x, y float64,
) (coordinate astrometry.ICRSEquatorialCoordinate) {
	dx, dy := x-wcs.CRPIX1, y-wcs.CRPIX2

	if wcs.SIP != nil {
		dx, dy = applySIPCorrection(wcs.SIP.APower, wcs.SIP.BPower, dx, dy)
	}

	return astrometry.ICRSEquatorialCoordinate{
		RA:  wcs.CRVAL1 + wcs.CD1_1*dx + wcs.CD1_2*dy,
		Dec: wcs.CRVAL2 + wcs.CD2_1*dx + wcs.CD2_2*dy,
	}
}

/*****************************************************************************************************************/

// EquatorialCoordinateToPixel is the "sky -> pixel" query of the WCS Handle,
// inverting the affine map solved by PixelToEquatorialCoordinate.
func (wcs *WCS) EquatorialCoordinateToPixel(
	eq astrometry.ICRSEquatorialCoordinate,
) (x, y float64) {
	det := wcs.CD1_1*wcs.CD2_2 - wcs.CD1_2*wcs.CD2_1

	if det == 0 {
		return wcs.CRPIX1, wcs.CRPIX2
	}

	dRA := eq.RA - wcs.CRVAL1
	dDec := eq.Dec - wcs.CRVAL2

	dx := (wcs.CD2_2*dRA - wcs.CD1_2*dDec) / det
	dy := (wcs.CD1_1*dDec - wcs.CD2_1*dRA) / det

	if wcs.SIPInverse != nil {
		dx, dy = applySIPCorrection(wcs.SIPInverse.APPower, wcs.SIPInverse.BPPower, dx, dy)
	}

	return wcs.CRPIX1 + dx, wcs.CRPIX2 + dy
}

/*****************************************************************************************************************/

// applySIPCorrection evaluates a pair of SIP polynomials (keyed "i_j" ->
// coefficient, for coefficient * u^i * v^j) and adds their correction to
// the given offsets.
func applySIPCorrection(aPower, bPower map[string]float64, u, v float64) (float64, float64) {
	return u + evaluateSIPPolynomial(aPower, u, v), v + evaluateSIPPolynomial(bPower, u, v)
}

/*****************************************************************************************************************/

func evaluateSIPPolynomial(power map[string]float64, u, v float64) float64 {
	sum := 0.0

	for key, coefficient := range power {
		i, j, ok := parseSIPKey(key)

		if !ok {
			continue
		}

		sum += coefficient * math.Pow(u, float64(i)) * math.Pow(v, float64(j))
	}

	return sum
}

/*****************************************************************************************************************/

// parseSIPKey parses a "i_j" SIP term key into its two integer exponents.
func parseSIPKey(key string) (i, j int, ok bool) {
	for pos := 0; pos < len(key); pos++ {
		if key[pos] == '_' {
			a, erra := parseInt(key[:pos])
			b, errb := parseInt(key[pos+1:])

			if erra != nil || errb != nil {
				return 0, 0, false
			}

			return a, b, true
		}
	}

	return 0, 0, false
}

/*****************************************************************************************************************/

func parseInt(s string) (int, error) {
	n := 0

	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errNotDigit
		}

		n = n*10 + int(r-'0')
	}

	return n, nil
}

/*****************************************************************************************************************/

var errNotDigit = &sipParseError{}

type sipParseError struct{}

func (e *sipParseError) Error() string { return "wcs: invalid SIP term key" }

/*****************************************************************************************************************/
