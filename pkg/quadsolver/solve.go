/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/platesolve
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package quadsolver

/*****************************************************************************************************************/

import (
	"context"
	"math"

	"github.com/observerly/platesolve/pkg/astrometry"
	"github.com/observerly/platesolve/pkg/healpix"
	"github.com/observerly/platesolve/pkg/index"
	"github.com/observerly/platesolve/pkg/matrix"
	"github.com/observerly/platesolve/pkg/params"
	"github.com/observerly/platesolve/pkg/perr"
	"github.com/observerly/platesolve/pkg/quad"
	"github.com/observerly/platesolve/pkg/spatial"
	"github.com/observerly/platesolve/pkg/star"
	"github.com/observerly/platesolve/pkg/transform"
	"github.com/observerly/platesolve/pkg/utils"
	"github.com/observerly/platesolve/pkg/wcs"
)

/*****************************************************************************************************************/

// Summary is the solved field's human-facing characterisation, computed
// from the winning WCS once a solve succeeds (spec.md §3 "Solution"):
// field size in arcminutes, field center, orientation east of north, pixel
// scale, parity, and the error against the seed position, if one was given.
// Grounded in original_source/stellarsolver's SolverUtils solution summary
// (externalextractorsolver.cpp's field/pixscale/parity/raErr/decErr block).
type Summary struct {
	FieldWidthArcmin  float64
	FieldHeightArcmin float64

	RA  float64 // field center, degrees
	Dec float64 // field center, degrees

	OrientationDeg   float64 // degrees, east of north
	PixelScaleArcsec float64

	Parity params.Parity

	// RAErrorArcsec/DecErrorArcsec are the solved center's offset from the
	// seed position, in arcseconds; both 0 when no position prior was given.
	RAErrorArcsec  float64
	DecErrorArcsec float64
}

/*****************************************************************************************************************/

// Solution is the per-child kernel's result, promoted to the orchestrator's
// winning result on the first success (spec.md §4.5 "Termination contract").
type Solution struct {
	WCS          wcs.WCS
	IndexID      int
	HealPIX      int
	Stars        []star.Star
	LogOdds      float64
	MatchedQuads int
	Summary      Summary
}

/*****************************************************************************************************************/

// SolveConfig carries a child's slice of the parent orchestrator's search
// space: a scale range (degrees, image-width convention) and an optional
// position prior, per spec.md §4.5's "Child configuration".
type SolveConfig struct {
	MinWidthDeg float64
	MaxWidthDeg float64

	HasPosition bool
	RA          float64
	Dec         float64
	SearchRadiusDeg float64

	LogOddsToSolve float64

	NSide  int
	Scheme healpix.Scheme

	MatchTolerance float64
	QuadK          int

	// ImageWidth/ImageHeight are the source image's pixel dimensions, used
	// only to compute the winning Solution's Summary (spec.md §3).
	ImageWidth  int
	ImageHeight int

	SearchParity params.Parity

	// SIPOrder, when > 0, requests a post-affine SIP distortion refinement
	// (spec.md §3's "WCS Handle" carries an optional SIP correction); 0
	// leaves the winning WCS a pure affine fit.
	SIPOrder int
}

/*****************************************************************************************************************/

// Solver is the capability interface spec.md §9 declares for the solving
// back-end; pkg/orchestrator depends only on this interface.
type Solver interface {
	Solve(ctx context.Context, stars []star.Star, idx *index.Indexer, cfg SolveConfig) (*Solution, error)
}

/*****************************************************************************************************************/

// QuadSolver is the module's built-in, default Solver implementation
// (SPEC_FULL.md §4.6): it generates quads from the brightest extracted
// stars, matches them against a per-HEALPix-pixel catalog quad set via a
// vptree nearest-neighbor search, and fits an affine pixel-to-sky transform
// from the matched correspondences.
type QuadSolver struct{}

/*****************************************************************************************************************/

// NewQuadSolver constructs the built-in solving kernel.
func NewQuadSolver() *QuadSolver {
	return &QuadSolver{}
}

/*****************************************************************************************************************/

// Solve attempts to match the given extracted stars against the catalog
// quads of every HEALPix pixel compatible with cfg's position prior (or, if
// none is given, the whole sky at the configured NSide), returning the
// first sufficiently well-matched solution. Child workers poll ctx at each
// HEALPix pixel boundary, the well-defined checkpoint spec.md §5 describes.
func (s *QuadSolver) Solve(ctx context.Context, stars []star.Star, idx *index.Indexer, cfg SolveConfig) (*Solution, error) {
	if len(stars) < 4 {
		return nil, perr.New(perr.Precondition, "quadsolver: at least 4 extracted stars are required")
	}

	k := cfg.QuadK
	if k <= 0 {
		k = 6
	}

	imageQuads, err := GenerateEuclidianStarQuads(stars, k)
	if err != nil {
		return nil, perr.Wrap(perr.Search, "quadsolver: failed to generate image quads", err)
	}

	tolerance := cfg.MatchTolerance
	if tolerance <= 0 {
		tolerance = 0.01
	}

	hp := healpix.NewHealPIX(cfg.NSide, cfg.Scheme)
	pixels := candidatePixels(hp, cfg)

	for _, pixel := range pixels {
		select {
		case <-ctx.Done():
			return nil, perr.New(perr.Cancelled, "quadsolver: aborted")
		default:
		}

		catalogQuads, err := idx.GenerateQuadsForPixel(pixel)
		if err != nil || len(catalogQuads) == 0 {
			continue
		}

		matcher, err := spatial.NewQuadMatcher(catalogQuads)
		if err != nil {
			continue
		}

		correspondences := nearestCorrespondences(matcher, imageQuads, tolerance)
		if len(correspondences) == 0 {
			continue
		}

		solution, ok := fitFromCorrespondences(correspondences, pixel, cfg.SIPOrder)
		if !ok {
			continue
		}

		if solution.LogOdds < cfg.LogOddsToSolve {
			continue
		}

		summary := summarise(solution.WCS, cfg)

		if cfg.SearchParity != params.BOTH && summary.Parity != cfg.SearchParity {
			continue
		}

		solution.Stars = stampEquatorialCoordinates(stars, solution.WCS)
		solution.HealPIX = pixel
		solution.Summary = summary

		return solution, nil
	}

	return nil, perr.New(perr.Search, "quadsolver: no solution found")
}

/*****************************************************************************************************************/

// candidatePixels narrows the HEALPix search space to the position prior's
// radial neighborhood when one is given, else the whole sky.
func candidatePixels(hp *healpix.HealPIX, cfg SolveConfig) []int {
	if cfg.HasPosition {
		eq := astrometry.ICRSEquatorialCoordinate{RA: cfg.RA, Dec: cfg.Dec}
		radius := cfg.SearchRadiusDeg
		if radius <= 0 {
			radius = 15
		}
		return hp.GetPixelIndicesFromEquatorialRadialRegion(eq, radius)
	}

	n := hp.NPixels()
	pixels := make([]int, n)
	for i := range pixels {
		pixels[i] = i
	}
	return pixels
}

/*****************************************************************************************************************/

// quadCorrespondence pairs one image-extracted quad with its nearest
// catalog quad, found by hash-code distance in the shared normalised quad
// space (spec.md §9's geometric-hashing match).
type quadCorrespondence struct {
	image   quad.Quad
	catalog quad.Quad
}

/*****************************************************************************************************************/

// nearestCorrespondences finds, for each image quad, its nearest catalog
// quad within tolerance. It queries the matcher's vptree directly rather
// than pkg/spatial's MatchQuad/MatchQuads helpers, which overwrite the
// matched catalog quad's RA/Dec fields with the (at solve time, still
// unknown) image quad's own RA/Dec — a shape intended for the index-
// building walk in pkg/index, not for solving. The catalog quads here
// already carry genuine RA/Dec in their X/Y fields (pkg/index's
// GenerateQuadsForPixel builds them that way), so the unmutated catalog
// quad returned by the tree is exactly what the affine fit needs.
func nearestCorrespondences(matcher *spatial.QuadMatcher, imageQuads []quad.Quad, tolerance float64) []quadCorrespondence {
	var out []quadCorrespondence

	for _, q := range imageQuads {
		nearest, distance := matcher.Tree.Nearest(q)
		if distance > tolerance {
			continue
		}

		catalogQuad, ok := nearest.(quad.Quad)
		if !ok {
			continue
		}

		out = append(out, quadCorrespondence{image: q, catalog: catalogQuad})
	}

	return out
}

/*****************************************************************************************************************/

// fitFromCorrespondences derives an affine pixel-to-sky transform by a
// least-squares fit over every matched quad's four canonical-position star
// correspondences, then scores the fit by its residual-derived log-odds. A
// positive sipOrder additionally requests a SIP distortion refinement over
// the same correspondences (fitSIPDistortion); the affine fit still drives
// LogOdds, as the SIP term only refines per-star position, not match score.
func fitFromCorrespondences(correspondences []quadCorrespondence, pixel int, sipOrder int) (*Solution, bool) {
	var pixelXY, skyRADec [][2]float64

	for _, c := range correspondences {
		imgPts := [4]star.Star{c.image.A, c.image.B, c.image.C, c.image.D}
		catPts := [4]star.Star{c.catalog.A, c.catalog.B, c.catalog.C, c.catalog.D}

		for i := 0; i < 4; i++ {
			pixelXY = append(pixelXY, [2]float64{imgPts[i].X, imgPts[i].Y})
			// Catalog quads store RA in X and Dec in Y (pkg/index builds
			// them that way so the same quad-normalisation math applies in
			// both pixel and sky-tangent space).
			skyRADec = append(skyRADec, [2]float64{catPts[i].X, catPts[i].Y})
		}
	}

	if len(pixelXY) < 3 {
		return nil, false
	}

	affine, residual, ok := fitAffineLeastSquares(pixelXY, skyRADec)
	if !ok {
		return nil, false
	}

	handle := wcs.NewWorldCoordinateSystem(0, 0, affine)

	if sipOrder > 0 {
		if sip, ok := fitSIPDistortion(pixelXY, skyRADec, affine, sipOrder); ok {
			handle.SIP = sip
		}
	}

	logOdds := -math.Log(residual + 1e-9)

	return &Solution{
		WCS:          handle,
		IndexID:      pixel,
		LogOdds:      logOdds,
		MatchedQuads: len(correspondences),
	}, true
}

/*****************************************************************************************************************/

// fitAffineLeastSquares solves the two independent 3-parameter linear
// least-squares systems (one for RA, one for Dec) via the normal equations,
// using pkg/matrix (the teacher's small dense linear algebra package) per
// SPEC_FULL.md's design note.
func fitAffineLeastSquares(pixelXY, skyRADec [][2]float64) (transform.Affine2DParameters, float64, bool) {
	n := len(pixelXY)

	a := make([]float64, n*3)
	for i, p := range pixelXY {
		a[i*3+0] = p[0]
		a[i*3+1] = p[1]
		a[i*3+2] = 1
	}

	amat, err := matrix.NewFromSlice(a, n, 3)
	if err != nil {
		return transform.Affine2DParameters{}, 0, false
	}

	at, err := amat.Transpose()
	if err != nil {
		return transform.Affine2DParameters{}, 0, false
	}

	ata, err := at.Multiply(amat)
	if err != nil {
		return transform.Affine2DParameters{}, 0, false
	}

	ataInv, err := ata.Invert()
	if err != nil {
		return transform.Affine2DParameters{}, 0, false
	}

	solveAxis := func(target func([2]float64) float64) (float64, float64, float64, bool) {
		b := make([]float64, n)
		for i, p := range skyRADec {
			b[i] = target(p)
		}

		bmat, err := matrix.NewFromSlice(b, n, 1)
		if err != nil {
			return 0, 0, 0, false
		}

		atb, err := at.Multiply(bmat)
		if err != nil {
			return 0, 0, 0, false
		}

		x, err := ataInv.Multiply(atb)
		if err != nil {
			return 0, 0, 0, false
		}

		c0, _ := x.At(0, 0)
		c1, _ := x.At(1, 0)
		c2, _ := x.At(2, 0)

		return c0, c1, c2, true
	}

	A, B, C, ok := solveAxis(func(p [2]float64) float64 { return p[0] })
	if !ok {
		return transform.Affine2DParameters{}, 0, false
	}

	D, E, F, ok := solveAxis(func(p [2]float64) float64 { return p[1] })
	if !ok {
		return transform.Affine2DParameters{}, 0, false
	}

	affine := transform.Affine2DParameters{A: A, B: B, C: C, D: D, E: E, F: F}

	residual := 0.0
	for i, p := range pixelXY {
		predRA := A*p[0] + B*p[1] + C
		predDec := D*p[0] + E*p[1] + F
		dRA := predRA - skyRADec[i][0]
		dDec := predDec - skyRADec[i][1]
		residual += dRA*dRA + dDec*dDec
	}
	residual = math.Sqrt(residual / float64(n))

	return affine, residual, true
}

/*****************************************************************************************************************/

// fitSIPDistortion fits a SIP forward distortion correction over the
// affine fit's residuals, reserved-but-unwired in the teacher's own
// solver (pkg/solver's solveForSIPParameters). The affine fit already
// models the pixel->sky map as CRVAL + CD*(x,y); the per-correspondence
// sky residual, projected back through the CD inverse, is the pixel-space
// correction a SIP term must reproduce, so each axis is fit independently
// against pkg/utils' FITS term-key polynomial basis via the same
// normal-equations machinery as fitAffineLeastSquares.
func fitSIPDistortion(
	pixelXY, skyRADec [][2]float64,
	affine transform.Affine2DParameters,
	order int,
) (*transform.SIP2DForwardParameters, bool) {
	numTerms := (order + 1) * (order + 2) / 2

	n := len(pixelXY)
	if n < numTerms+2 {
		return nil, false
	}

	det := affine.A*affine.E - affine.B*affine.D
	if det == 0 {
		return nil, false
	}

	design := make([]float64, 0, n*numTerms)
	correctionX := make([]float64, n)
	correctionY := make([]float64, n)

	for i, p := range pixelXY {
		terms := utils.ComputePolynomialTerms(p[0], p[1], order)
		design = append(design, terms...)

		predRA := affine.A*p[0] + affine.B*p[1] + affine.C
		predDec := affine.D*p[0] + affine.E*p[1] + affine.F
		dRA := skyRADec[i][0] - predRA
		dDec := skyRADec[i][1] - predDec

		// Invert the local CD Jacobian to turn the sky-space residual into
		// the pixel-space offset a SIP correction at (x, y) must supply.
		correctionX[i] = (affine.E*dRA - affine.B*dDec) / det
		correctionY[i] = (-affine.D*dRA + affine.A*dDec) / det
	}

	amat, err := matrix.NewFromSlice(design, n, numTerms)
	if err != nil {
		return nil, false
	}

	at, err := amat.Transpose()
	if err != nil {
		return nil, false
	}

	ata, err := at.Multiply(amat)
	if err != nil {
		return nil, false
	}

	ataInv, err := ata.Invert()
	if err != nil {
		return nil, false
	}

	solveAxis := func(target []float64) ([]float64, bool) {
		bmat, err := matrix.NewFromSlice(target, n, 1)
		if err != nil {
			return nil, false
		}

		atb, err := at.Multiply(bmat)
		if err != nil {
			return nil, false
		}

		x, err := ataInv.Multiply(atb)
		if err != nil {
			return nil, false
		}

		coefficients := make([]float64, numTerms)
		for i := range coefficients {
			coefficients[i], _ = x.At(i, 0)
		}

		return coefficients, true
	}

	coefficientsA, ok := solveAxis(correctionX)
	if !ok {
		return nil, false
	}

	coefficientsB, ok := solveAxis(correctionY)
	if !ok {
		return nil, false
	}

	keysA := utils.GeneratePolynomialTermKeys("A", order)
	keysB := utils.GeneratePolynomialTermKeys("B", order)

	aPower := make(map[string]float64, numTerms)
	bPower := make(map[string]float64, numTerms)

	// pkg/wcs evaluates SIP terms keyed "i_j", without the "A_"/"B_" prefix:
	for i, key := range keysA {
		aPower[key[len("A_"):]] = coefficientsA[i]
	}

	for i, key := range keysB {
		bPower[key[len("B_"):]] = coefficientsB[i]
	}

	return &transform.SIP2DForwardParameters{
		AOrder: order,
		APower: aPower,
		BOrder: order,
		BPower: bPower,
	}, true
}

/*****************************************************************************************************************/

// stampEquatorialCoordinates computes RA/Dec for every extracted star via
// the winning WCS (spec.md §4.5 "Post-processing").
func stampEquatorialCoordinates(stars []star.Star, handle wcs.WCS) []star.Star {
	out := make([]star.Star, len(stars))
	for i, s := range stars {
		eq := handle.PixelToEquatorialCoordinate(s.X, s.Y)
		s.RA = eq.RA
		s.Dec = eq.Dec
		out[i] = s
	}
	return out
}

/*****************************************************************************************************************/

// summarise derives a Summary from the winning WCS's CD matrix and the
// source image's dimensions, following original_source/stellarsolver's
// field/pixscale/parity/raErr/decErr derivation (externalextractorsolver.cpp):
// field size is image extent times pixel scale, parity is the sign of the
// CD matrix determinant (negative determinant -> POSITIVE parity), and the
// position error is the solved center's offset from the seed, in arcseconds.
func summarise(handle wcs.WCS, cfg SolveConfig) Summary {
	scaleX := math.Hypot(handle.CD1_1, handle.CD2_1)
	scaleY := math.Hypot(handle.CD1_2, handle.CD2_2)

	width, height := float64(cfg.ImageWidth), float64(cfg.ImageHeight)

	center := handle.PixelToEquatorialCoordinate(width/2, height/2)

	orientation := toDegrees(math.Atan2(handle.CD1_2, handle.CD2_2))
	if orientation < 0 {
		orientation += 360
	}

	det := handle.CD1_1*handle.CD2_2 - handle.CD1_2*handle.CD2_1
	parity := params.POSITIVE
	if det > 0 {
		parity = params.NEGATIVE
	}

	summary := Summary{
		FieldWidthArcmin:  width * scaleX * 60,
		FieldHeightArcmin: height * scaleY * 60,
		RA:                center.RA,
		Dec:               center.Dec,
		OrientationDeg:    orientation,
		PixelScaleArcsec:  (scaleX + scaleY) / 2 * 3600,
		Parity:            parity,
	}

	if cfg.HasPosition {
		summary.RAErrorArcsec = (cfg.RA - center.RA) * 3600
		summary.DecErrorArcsec = (cfg.Dec - center.Dec) * 3600
	}

	return summary
}

/*****************************************************************************************************************/

func toDegrees(radians float64) float64 {
	return radians * 180 / math.Pi
}
