/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/platesolve
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package quadsolver

/*****************************************************************************************************************/

import (
	"math"
	"testing"

	"github.com/observerly/platesolve/pkg/params"
	"github.com/observerly/platesolve/pkg/quad"
	"github.com/observerly/platesolve/pkg/spatial"
	"github.com/observerly/platesolve/pkg/star"
	"github.com/observerly/platesolve/pkg/transform"
	"github.com/observerly/platesolve/pkg/wcs"
)

/*****************************************************************************************************************/

// starsAt builds four stars from plain (x, y) pairs for quad construction.
func starsAt(points [4][2]float64) [4]star.Star {
	var out [4]star.Star
	for i, p := range points {
		out[i] = star.Star{X: p[0], Y: p[1], Intensity: 1000}
	}
	return out
}

/*****************************************************************************************************************/

func TestFitAffineLeastSquaresRecoversIdentityMapping(t *testing.T) {
	pixelXY := [][2]float64{{0, 0}, {10, 0}, {0, 10}, {10, 10}}
	skyRADec := [][2]float64{{0, 0}, {10, 0}, {0, 10}, {10, 10}}

	affine, residual, ok := fitAffineLeastSquares(pixelXY, skyRADec)
	if !ok {
		t.Fatal("expected a valid fit")
	}

	if residual > 1e-6 {
		t.Errorf("expected near-zero residual for an exact identity mapping, got %v", residual)
	}

	if math.Abs(affine.A-1) > 1e-6 || math.Abs(affine.E-1) > 1e-6 {
		t.Errorf("expected an identity affine, got %+v", affine)
	}
}

/*****************************************************************************************************************/

func TestFitAffineLeastSquaresRejectsTooFewPoints(t *testing.T) {
	_, _, ok := fitAffineLeastSquares([][2]float64{{0, 0}, {1, 1}}, [][2]float64{{0, 0}, {1, 1}})
	if ok {
		t.Fatal("expected the fit to be rejected for fewer than 3 points")
	}
}

/*****************************************************************************************************************/

func TestNearestCorrespondencesFindsMatchWithinTolerance(t *testing.T) {
	catalogPoints := starsAt([4][2]float64{{10, 10}, {12, 12}, {10, 11}, {11, 10}})
	catalogQuad, err := quad.NewQuad(catalogPoints[0], catalogPoints[1], catalogPoints[2], catalogPoints[3], DefaultPrecision)
	if err != nil {
		t.Fatalf("unexpected error building catalog quad: %v", err)
	}

	matcher, err := spatial.NewQuadMatcher([]quad.Quad{catalogQuad})
	if err != nil {
		t.Fatalf("unexpected error building matcher: %v", err)
	}

	// An image quad with the same shape, at a different pixel location, must
	// still hash to (nearly) the same normalised coordinates.
	imagePoints := starsAt([4][2]float64{{100, 100}, {102, 102}, {100, 101}, {101, 100}})
	imageQuad, err := quad.NewQuad(imagePoints[0], imagePoints[1], imagePoints[2], imagePoints[3], DefaultPrecision)
	if err != nil {
		t.Fatalf("unexpected error building image quad: %v", err)
	}

	correspondences := nearestCorrespondences(matcher, []quad.Quad{imageQuad}, 0.5)
	if len(correspondences) != 1 {
		t.Fatalf("expected one correspondence, got %d", len(correspondences))
	}

	// The catalog side of the correspondence must be the unmutated catalog
	// quad: its points still carry the original catalog X/Y, never the
	// image quad's.
	got := correspondences[0].catalog
	if got.A.X != catalogQuad.A.X || got.A.Y != catalogQuad.A.Y {
		t.Errorf("expected the catalog quad's points to be left unmutated, got %+v", got.A)
	}
}

/*****************************************************************************************************************/

func TestNearestCorrespondencesRejectsBeyondTolerance(t *testing.T) {
	catalogPoints := starsAt([4][2]float64{{10, 10}, {12, 12}, {10, 11}, {11, 10}})
	catalogQuad, err := quad.NewQuad(catalogPoints[0], catalogPoints[1], catalogPoints[2], catalogPoints[3], DefaultPrecision)
	if err != nil {
		t.Fatalf("unexpected error building catalog quad: %v", err)
	}

	matcher, err := spatial.NewQuadMatcher([]quad.Quad{catalogQuad})
	if err != nil {
		t.Fatalf("unexpected error building matcher: %v", err)
	}

	// A wildly different shape should not match within a tight tolerance.
	imagePoints := starsAt([4][2]float64{{0, 0}, {100, 100}, {10, 60}, {70, 20}})
	imageQuad, err := quad.NewQuad(imagePoints[0], imagePoints[1], imagePoints[2], imagePoints[3], DefaultPrecision)
	if err != nil {
		t.Fatalf("unexpected error building image quad: %v", err)
	}

	correspondences := nearestCorrespondences(matcher, []quad.Quad{imageQuad}, 1e-6)
	if len(correspondences) != 0 {
		t.Errorf("expected no correspondences within a tight tolerance, got %d", len(correspondences))
	}
}

/*****************************************************************************************************************/

func TestFitFromCorrespondencesRejectsTooFew(t *testing.T) {
	_, ok := fitFromCorrespondences(nil, 0, 0)
	if ok {
		t.Fatal("expected rejection with no correspondences")
	}
}

/*****************************************************************************************************************/

func TestSolveRejectsFewerThanFourStars(t *testing.T) {
	s := NewQuadSolver()
	_, err := s.Solve(nil, []star.Star{{X: 0, Y: 0}, {X: 1, Y: 1}}, nil, SolveConfig{})
	if err == nil {
		t.Fatal("expected an error for fewer than 4 stars")
	}
}

/*****************************************************************************************************************/

func TestSummariseComputesFieldSizeOrientationAndParity(t *testing.T) {
	handle := wcs.WCS{
		CRVAL1: 10,
		CRVAL2: 20,
		CD1_1:  0.001,
		CD1_2:  0,
		CD2_1:  0,
		CD2_2:  0.0008,
	}

	cfg := SolveConfig{ImageWidth: 100, ImageHeight: 50}

	summary := summarise(handle, cfg)

	if math.Abs(summary.FieldWidthArcmin-6) > 1e-9 {
		t.Errorf("expected field width 6 arcmin, got %v", summary.FieldWidthArcmin)
	}
	if math.Abs(summary.FieldHeightArcmin-2.4) > 1e-9 {
		t.Errorf("expected field height 2.4 arcmin, got %v", summary.FieldHeightArcmin)
	}
	if math.Abs(summary.PixelScaleArcsec-3.24) > 1e-9 {
		t.Errorf("expected pixel scale 3.24 arcsec/pixel, got %v", summary.PixelScaleArcsec)
	}
	if summary.Parity != params.NEGATIVE {
		t.Errorf("expected NEGATIVE parity for a positive CD-matrix determinant, got %v", summary.Parity)
	}
	if math.Abs(summary.RA-10.05) > 1e-9 || math.Abs(summary.Dec-20.02) > 1e-9 {
		t.Errorf("expected field center (10.05, 20.02), got (%v, %v)", summary.RA, summary.Dec)
	}
}

/*****************************************************************************************************************/

func TestSummariseComputesPositionErrorAgainstSeed(t *testing.T) {
	handle := wcs.WCS{CRVAL1: 10, CRVAL2: 20, CD1_1: 0.001, CD2_2: 0.0008}

	cfg := SolveConfig{
		ImageWidth:  100,
		ImageHeight: 50,
		HasPosition: true,
		RA:          10.1,
		Dec:         20.0,
	}

	summary := summarise(handle, cfg)

	if math.Abs(summary.RAErrorArcsec-180) > 1e-6 {
		t.Errorf("expected RA error of 180 arcsec, got %v", summary.RAErrorArcsec)
	}
	if math.Abs(summary.DecErrorArcsec-(-72)) > 1e-6 {
		t.Errorf("expected Dec error of -72 arcsec, got %v", summary.DecErrorArcsec)
	}
}

/*****************************************************************************************************************/

func TestSummariseNoPositionErrorWithoutSeed(t *testing.T) {
	handle := wcs.WCS{CRVAL1: 10, CRVAL2: 20, CD1_1: 0.001, CD2_2: 0.0008}

	summary := summarise(handle, SolveConfig{ImageWidth: 100, ImageHeight: 50})

	if summary.RAErrorArcsec != 0 || summary.DecErrorArcsec != 0 {
		t.Errorf("expected zero position error with no seed, got RA=%v Dec=%v", summary.RAErrorArcsec, summary.DecErrorArcsec)
	}
}

/*****************************************************************************************************************/

func TestFitSIPDistortionRejectsTooFewPoints(t *testing.T) {
	affine := transform.Affine2DParameters{A: 0.001, E: 0.0008}

	pixelXY := [][2]float64{{0, 0}, {10, 0}, {0, 10}}
	skyRADec := [][2]float64{{10, 20}, {10.01, 20}, {10, 20.008}}

	_, ok := fitSIPDistortion(pixelXY, skyRADec, affine, 2)
	if ok {
		t.Fatal("expected rejection with fewer points than the order-2 basis needs")
	}
}

/*****************************************************************************************************************/

func TestFitSIPDistortionRecoversZeroCorrectionForAPureAffineField(t *testing.T) {
	affine := transform.Affine2DParameters{A: 0.001, C: 10, E: 0.0008, F: 20}

	var pixelXY, skyRADec [][2]float64

	// A 4x4 grid of points lying exactly on the affine map: no distortion
	// to recover, so every fitted coefficient should settle near zero.
	for x := 0.0; x < 4; x++ {
		for y := 0.0; y < 4; y++ {
			pixelXY = append(pixelXY, [2]float64{x * 20, y * 20})
			skyRADec = append(skyRADec, [2]float64{
				affine.A*x*20 + affine.B*y*20 + affine.C,
				affine.D*x*20 + affine.E*y*20 + affine.F,
			})
		}
	}

	sip, ok := fitSIPDistortion(pixelXY, skyRADec, affine, 2)
	if !ok {
		t.Fatal("expected a successful fit with 16 points over an order-2 basis")
	}

	for key, v := range sip.APower {
		if math.Abs(v) > 1e-9 {
			t.Errorf("expected near-zero A coefficient for an undistorted field, %s = %v", key, v)
		}
	}

	for key, v := range sip.BPower {
		if math.Abs(v) > 1e-9 {
			t.Errorf("expected near-zero B coefficient for an undistorted field, %s = %v", key, v)
		}
	}
}
