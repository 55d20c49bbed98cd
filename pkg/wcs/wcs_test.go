/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/platesolve
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package wcs

/*****************************************************************************************************************/

import (
	"math"
	"testing"

	"github.com/observerly/platesolve/pkg/astrometry"
	"github.com/observerly/platesolve/pkg/transform"
)

/*****************************************************************************************************************/

func TestNewWorldCoordinateSystemIdentity(t *testing.T) {
	w := NewWorldCoordinateSystem(1000, 1000, transform.Affine2DParameters{
		A: 1,
		B: 0,
		C: 0,
		D: 0,
		E: 1,
		F: 0,
	})

	if w.CRPIX1 != 1000 || w.CRPIX2 != 1000 {
		t.Errorf("expected CRPIX to be (1000,1000), got (%v,%v)", w.CRPIX1, w.CRPIX2)
	}

	if w.CRVAL1 != 1000 || w.CRVAL2 != 1000 {
		t.Errorf("expected CRVAL to be (1000,1000) for an identity affine, got (%v,%v)", w.CRVAL1, w.CRVAL2)
	}

	if w.CD1_1 != 1 || w.CD1_2 != 0 || w.CD2_1 != 0 || w.CD2_2 != 1 {
		t.Errorf("expected identity CD matrix, got [%v %v; %v %v]", w.CD1_1, w.CD1_2, w.CD2_1, w.CD2_2)
	}
}

/*****************************************************************************************************************/

func TestWCSReferencePixelMapsToReferenceValue(t *testing.T) {
	w := NewWorldCoordinateSystem(512, 384, transform.Affine2DParameters{
		A: 0.0002,
		B: 0.00001,
		C: 83.5,
		D: -0.00001,
		E: 0.0002,
		F: -5.2,
	})

	coordinate := w.PixelToEquatorialCoordinate(512, 384)

	if math.Abs(coordinate.RA-w.CRVAL1) > 1e-9 {
		t.Errorf("expected the reference pixel to map back to CRVAL1=%v, got %v", w.CRVAL1, coordinate.RA)
	}

	if math.Abs(coordinate.Dec-w.CRVAL2) > 1e-9 {
		t.Errorf("expected the reference pixel to map back to CRVAL2=%v, got %v", w.CRVAL2, coordinate.Dec)
	}
}

/*****************************************************************************************************************/

func TestPixelToEquatorialCoordinate(t *testing.T) {
	w := WCS{
		CRPIX1: 200,
		CRPIX2: 200,
		CRVAL1: 0,
		CRVAL2: 0,
		CD1_1:  0.2,
		CD1_2:  0,
		CD2_1:  0,
		CD2_2:  0.2,
	}

	coordinate := w.PixelToEquatorialCoordinate(300, 250)

	if math.Abs(coordinate.RA-20) > 1e-9 {
		t.Errorf("expected RA=20, got %v", coordinate.RA)
	}

	if math.Abs(coordinate.Dec-10) > 1e-9 {
		t.Errorf("expected Dec=10, got %v", coordinate.Dec)
	}
}

/*****************************************************************************************************************/

// TestEquatorialCoordinateToPixelRoundTrips verifies that converting a
// pixel to an equatorial coordinate and back recovers the original pixel,
// for a purely affine WCS (no SIP terms).
func TestEquatorialCoordinateToPixelRoundTrips(t *testing.T) {
	w := NewWorldCoordinateSystem(256, 256, transform.Affine2DParameters{
		A: 0.0003,
		B: 0.00002,
		C: 10.5,
		D: -0.00002,
		E: 0.0003,
		F: 41.2,
	})

	for _, pixel := range [][2]float64{{0, 0}, {256, 256}, {512, 512}, {1, 400}} {
		eq := w.PixelToEquatorialCoordinate(pixel[0], pixel[1])

		x, y := w.EquatorialCoordinateToPixel(eq)

		if math.Abs(x-pixel[0]) > 1e-6 || math.Abs(y-pixel[1]) > 1e-6 {
			t.Errorf("round trip for pixel (%v,%v) returned (%v,%v)", pixel[0], pixel[1], x, y)
		}
	}
}

/*****************************************************************************************************************/

// TestPixelToEquatorialCoordinateAppliesSIP verifies that a non-nil SIP
// forward term perturbs the affine-only result.
func TestPixelToEquatorialCoordinateAppliesSIP(t *testing.T) {
	w := WCS{
		CRPIX1: 0,
		CRPIX2: 0,
		CRVAL1: 0,
		CRVAL2: 0,
		CD1_1:  1,
		CD1_2:  0,
		CD2_1:  0,
		CD2_2:  1,
		SIP: &transform.SIP2DForwardParameters{
			AOrder: 2,
			APower: map[string]float64{"2_0": 0.01},
			BOrder: 2,
			BPower: map[string]float64{},
		},
	}

	withSIP := w.PixelToEquatorialCoordinate(10, 0)

	w.SIP = nil

	withoutSIP := w.PixelToEquatorialCoordinate(10, 0)

	if math.Abs(withSIP.RA-withoutSIP.RA) < 1e-9 {
		t.Errorf("expected SIP correction to perturb RA, got identical values %v", withSIP.RA)
	}

	expected := 10 + 0.01*10*10

	if math.Abs(withSIP.RA-expected) > 1e-9 {
		t.Errorf("expected SIP-corrected RA=%v, got %v", expected, withSIP.RA)
	}
}

/*****************************************************************************************************************/

func TestICRSEquatorialCoordinateRoundTripIsStable(t *testing.T) {
	w := NewWorldCoordinateSystem(100, 100, transform.Affine2DParameters{
		A: 0.0001,
		B: 0,
		C: 45,
		D: 0,
		E: 0.0001,
		F: 12,
	})

	eq := astrometry.ICRSEquatorialCoordinate{RA: 45.01, Dec: 12.01}

	x, y := w.EquatorialCoordinateToPixel(eq)

	roundTripped := w.PixelToEquatorialCoordinate(x, y)

	if math.Abs(roundTripped.RA-eq.RA) > 1e-9 || math.Abs(roundTripped.Dec-eq.Dec) > 1e-9 {
		t.Errorf("expected round trip to recover (%v,%v), got (%v,%v)", eq.RA, eq.Dec, roundTripped.RA, roundTripped.Dec)
	}
}

/*****************************************************************************************************************/
