/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/platesolve
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

// Package extract implements the extraction kernel (spec.md §4.3, C3): the
// detection/deblending/photometry pipeline run over a single background-
// subtracted region by the partitioned extractor (pkg/partition).
package extract

/*****************************************************************************************************************/

import (
	"math"
	"sort"

	"github.com/observerly/platesolve/pkg/params"
	"github.com/observerly/platesolve/pkg/perr"
	"github.com/observerly/platesolve/pkg/star"
	"gonum.org/v1/gonum/mat"
)

/*****************************************************************************************************************/

// Extractor is the capability interface spec.md §9 declares for the
// detection/photometry back-end; pkg/partition depends only on this
// interface so alternate kernels can be substituted.
type Extractor interface {
	Extract(region []float32, w, h int, globalRMS float64, p params.Parameters, keepBudget int) ([]star.Star, error)
}

/*****************************************************************************************************************/

// Kernel is the module's built-in Extractor (spec.md §4.3's design-level
// algorithm, steps 1-9).
type Kernel struct{}

/*****************************************************************************************************************/

// NewKernel constructs the built-in extraction kernel.
func NewKernel() *Kernel {
	return &Kernel{}
}

/*****************************************************************************************************************/

type component struct {
	pixels    []int // flat indices into region
	touchesEdge bool
}

/*****************************************************************************************************************/

// Extract runs the full detection pipeline (spec.md §4.3 steps 1-9) over a
// single contiguous, background-subtracted f32 region.
func (k *Kernel) Extract(region []float32, w, h int, globalRMS float64, p params.Parameters, keepBudget int) ([]star.Star, error) {
	if w <= 0 || h <= 0 || len(region) != w*h {
		return nil, perr.New(perr.Precondition, "extract: region dimensions do not match buffer length")
	}

	if p.Subpix <= 0 {
		return nil, perr.New(perr.Kernel, "extract: illegal subpix parameter")
	}

	// Step 1: detection threshold.
	tau := p.ThresholdBGMultiple*globalRMS + p.ThresholdOffset
	if tau <= 0 {
		return nil, perr.New(perr.Precondition, "extract: non-positive detection threshold")
	}

	// Step 2: matched filter.
	filtered := convolve(region, w, h, buildFilter(p.ConvFilterType, p.FWHM))

	// Step 3: connected-component labeling.
	components, err := labelComponents(filtered, w, h, tau, p.MinArea)
	if err != nil {
		return nil, err
	}

	// Step 4: deblending.
	var deblended []component
	for _, c := range components {
		parts, err := deblend(c, region, w, tau, p.DeblendThresh, p.DeblendContrast)
		if err != nil {
			return nil, err
		}
		deblended = append(deblended, parts...)
	}

	// Steps 5-7: shape fit, photometry, optional HFR.
	stars := make([]star.Star, 0, len(deblended))
	wantHFR := p.Process == params.EXTRACT_WITH_HFR

	for _, c := range deblended {
		s, ok := measure(c, region, w, p, wantHFR)
		if !ok {
			continue
		}

		// Step 9: truncation rejection.
		if c.touchesEdge {
			continue
		}

		stars = append(stars, s)
	}

	// Step 8: ordering by a^2+b^2 descending, truncate to keep budget.
	sort.Slice(stars, func(i, j int) bool {
		return ovalSize(stars[i]) > ovalSize(stars[j])
	})

	if keepBudget > 0 && len(stars) > keepBudget {
		stars = stars[:keepBudget]
	}

	return stars, nil
}

/*****************************************************************************************************************/

func ovalSize(s star.Star) float64 {
	return s.A*s.A + s.B*s.B
}

/*****************************************************************************************************************/

// buildFilter returns a (2*ceil(fwhm)+1)-sided square convolution kernel,
// per spec.md §4.3 step 2's explicit sizing rule.
func buildFilter(t params.ConvolutionFilterType, fwhm float64) [][]float64 {
	if fwhm <= 0 {
		fwhm = 2
	}

	radius := int(math.Ceil(fwhm))
	size := radius*2 + 1
	kernel := make([][]float64, size)
	for i := range kernel {
		kernel[i] = make([]float64, size)
	}

	sigma := fwhm / 2.3548200450309493 // FWHM = 2*sqrt(2*ln2)*sigma

	sum := 0.0
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			d2 := float64(x*x + y*y)
			var v float64

			switch t {
			case params.TOP_HAT:
				if math.Sqrt(d2) <= fwhm/2 {
					v = 1
				}
			case params.RING:
				r := math.Sqrt(d2)
				if r >= fwhm/2 && r <= fwhm {
					v = 1
				}
			case params.MEXICAN_HAT:
				v = (1 - d2/(2*sigma*sigma)) * math.Exp(-d2/(2*sigma*sigma))
			case params.CUSTOM, params.GAUSSIAN, params.DEFAULT:
				fallthrough
			default:
				v = math.Exp(-d2 / (2 * sigma * sigma))
			}

			kernel[y+radius][x+radius] = v
			sum += v
		}
	}

	if sum != 0 {
		for y := range kernel {
			for x := range kernel[y] {
				kernel[y][x] /= sum
			}
		}
	}

	return kernel
}

/*****************************************************************************************************************/

func convolve(region []float32, w, h int, kernel [][]float64) []float32 {
	kh := len(kernel)
	kw := len(kernel[0])
	ry, rx := kh/2, kw/2

	out := make([]float32, w*h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := 0.0
			for ky := 0; ky < kh; ky++ {
				sy := y + ky - ry
				if sy < 0 || sy >= h {
					continue
				}
				for kx := 0; kx < kw; kx++ {
					sx := x + kx - rx
					if sx < 0 || sx >= w {
						continue
					}
					sum += float64(region[sy*w+sx]) * kernel[ky][kx]
				}
			}
			out[y*w+x] = float32(sum)
		}
	}

	return out
}

/*****************************************************************************************************************/

// labelComponents labels 8-connected pixels exceeding tau with a stack-based
// flood fill started from each unlabeled seed pixel in row-major order; it is
// not Lutz's one-pass scanline algorithm. Components smaller than minarea
// are rejected. Components whose bounding box touches the region
// edge are flagged for step 9's truncation rejection.
func labelComponents(filtered []float32, w, h int, tau float64, minarea int) ([]component, error) {
	labels := make([]int, w*h) // 0 = unlabeled
	var components []component

	var stack []int

	for start := 0; start < w*h; start++ {
		if labels[start] != 0 || float64(filtered[start]) <= tau {
			continue
		}

		id := len(components) + 1
		stack = stack[:0]
		stack = append(stack, start)
		labels[start] = id

		var pixels []int
		touchesEdge := false

		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			pixels = append(pixels, idx)

			if len(pixels) > maxComponentPixels(w, h) {
				return nil, perr.New(perr.Resource, "extract: pixel-stack overflow during labeling")
			}

			x, y := idx%w, idx/w
			if x == 0 || x == w-1 || y == 0 || y == h-1 {
				touchesEdge = true
			}

			for dy := -1; dy <= 1; dy++ {
				ny := y + dy
				if ny < 0 || ny >= h {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					nx := x + dx
					if nx < 0 || nx >= w {
						continue
					}

					nIdx := ny*w + nx
					if labels[nIdx] != 0 || float64(filtered[nIdx]) <= tau {
						continue
					}

					labels[nIdx] = id
					stack = append(stack, nIdx)
				}
			}
		}

		if len(pixels) < minarea {
			continue
		}

		components = append(components, component{pixels: pixels, touchesEdge: touchesEdge})
	}

	return components, nil
}

/*****************************************************************************************************************/

// maxComponentPixels is the component size above which labelComponents
// reports a pixel-stack overflow (spec.md §4.3). It equals the region's full
// pixel count w*h, which no component can exceed, so the overflow error is
// never raised: an all-above-threshold region becomes a single component.
func maxComponentPixels(w, h int) int {
	return w * h
}

/*****************************************************************************************************************/

// deblend evaluates deblend_thresh logarithmically spaced sub-thresholds
// between tau and the component's peak value, promoting a sub-peak to its
// own object when its flux above the branching threshold is at least
// deblend_contrast times the parent's total flux (spec.md §4.3 step 4).
func deblend(c component, region []float32, w int, tau float64, deblendThresh int, deblendContrast float64) ([]component, error) {
	if deblendThresh <= 0 {
		return []component{c}, nil
	}

	if len(c.pixels) > maxDeblendQueue {
		return nil, perr.New(perr.Resource, "extract: deblend queue overflow")
	}

	peak := math.Inf(-1)
	for _, idx := range c.pixels {
		v := float64(region[idx])
		if v > peak {
			peak = v
		}
	}

	if peak <= tau {
		return []component{c}, nil
	}

	totalFlux := 0.0
	for _, idx := range c.pixels {
		totalFlux += float64(region[idx]) - tau
	}
	if totalFlux <= 0 {
		return []component{c}, nil
	}

	logTau, logPeak := math.Log(tau), math.Log(peak)
	step := (logPeak - logTau) / float64(deblendThresh)

	// Partition the component's pixel set at each sub-threshold into
	// connected sub-groups (within the parent's pixel membership only),
	// keeping any sub-group whose flux above its branching threshold
	// clears deblend_contrast * totalFlux.
	memberSet := make(map[int]bool, len(c.pixels))
	for _, idx := range c.pixels {
		memberSet[idx] = true
	}

	var promoted []component
	claimed := make(map[int]bool, len(c.pixels))

	for level := deblendThresh - 1; level >= 1; level-- {
		branchThresh := math.Exp(logTau + step*float64(level))

		groups := connectedSubgroups(c.pixels, memberSet, region, w, branchThresh, claimed)

		for _, g := range groups {
			flux := 0.0
			for _, idx := range g {
				flux += float64(region[idx]) - branchThresh
			}

			if flux >= deblendContrast*totalFlux {
				for _, idx := range g {
					claimed[idx] = true
				}
				promoted = append(promoted, component{pixels: g, touchesEdge: c.touchesEdge})
			}
		}
	}

	remaining := make([]int, 0, len(c.pixels))
	for _, idx := range c.pixels {
		if !claimed[idx] {
			remaining = append(remaining, idx)
		}
	}

	if len(promoted) == 0 || len(remaining) == 0 {
		return []component{c}, nil
	}

	promoted = append(promoted, component{pixels: remaining, touchesEdge: c.touchesEdge})

	return promoted, nil
}

/*****************************************************************************************************************/

const maxDeblendQueue = 1 << 20

/*****************************************************************************************************************/

// connectedSubgroups finds 8-connected groups, within member, of pixels
// exceeding threshold that have not already been claimed by a prior
// (higher) deblend level.
func connectedSubgroups(pixels []int, member map[int]bool, region []float32, w int, threshold float64, claimed map[int]bool) [][]int {
	visited := make(map[int]bool, len(pixels))
	var groups [][]int

	for _, idx := range pixels {
		if visited[idx] || claimed[idx] || float64(region[idx]) <= threshold {
			continue
		}

		var group []int
		stack := []int{idx}
		visited[idx] = true

		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			group = append(group, cur)

			x, y := cur%w, cur/w
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					n := (y+dy)*w + (x + dx)
					if n < 0 || n >= len(region) {
						continue
					}
					if !member[n] || visited[n] || claimed[n] || float64(region[n]) <= threshold {
						continue
					}
					visited[n] = true
					stack = append(stack, n)
				}
			}
		}

		groups = append(groups, group)
	}

	return groups
}

/*****************************************************************************************************************/

// measure computes the second-moment shape fit, selects the photometric
// aperture, performs Kron-radius flux integration, and optionally the
// half-flux radius for one connected component (spec.md §4.3 steps 5-7).
func measure(c component, region []float32, w int, p params.Parameters, wantHFR bool) (star.Star, bool) {
	n := len(c.pixels)
	if n == 0 {
		return star.Star{}, false
	}

	sumFlux, sumX, sumY := 0.0, 0.0, 0.0
	peak := math.Inf(-1)

	for _, idx := range c.pixels {
		x, y := float64(idx%w), float64(idx/w)
		v := math.Max(0, float64(region[idx]))
		sumFlux += v
		sumX += v * x
		sumY += v * y
		if float64(region[idx]) > peak {
			peak = float64(region[idx])
		}
	}

	if sumFlux <= 0 {
		return star.Star{}, false
	}

	cx, cy := sumX/sumFlux, sumY/sumFlux

	var sxx, syy, sxy float64
	for _, idx := range c.pixels {
		x, y := float64(idx%w), float64(idx/w)
		v := math.Max(0, float64(region[idx]))
		dx, dy := x-cx, y-cy
		sxx += v * dx * dx
		syy += v * dy * dy
		sxy += v * dx * dy
	}
	sxx /= sumFlux
	syy /= sumFlux
	sxy /= sumFlux

	a, b, theta, ok := fitEllipse(sxx, syy, sxy)
	if !ok {
		return star.Star{}, false
	}

	aperShape := p.ApertureShape
	kronRadius := kronRadius(c, region, w, cx, cy, a, b, theta)

	if aperShape == params.AUTO {
		if kronRadius*p.KronFact*math.Sqrt(a*b) < p.RMin {
			aperShape = params.CIRCLE
		} else {
			aperShape = params.ELLIPSE
		}
	}

	var flux float64
	switch aperShape {
	case params.CIRCLE:
		flux = apertureFluxCircle(region, w, cx, cy, p.RMin, p.Subpix)
	default: // ELLIPSE
		flux = apertureFluxEllipse(region, w, cx, cy, a, b, theta, p.KronFact*kronRadius, p.Subpix)
	}

	if flux <= 0 {
		return star.Star{}, false
	}

	s := star.Star{
		X:         cx + 1, // 1-based pixel convention (star.Star doc comment)
		Y:         cy + 1,
		A:         a,
		B:         b,
		Theta:     theta,
		Flux:      flux,
		Peak:      peak,
		Magnitude: p.Magzero - 2.5*math.Log10(flux),
		NumPixels: n,
		Intensity: peak,
	}

	if wantHFR {
		s.HFR = halfFluxRadius(region, w, cx, cy, flux, 50)
	}

	return s, true
}

/*****************************************************************************************************************/

// fitEllipse derives a, b, theta from the eigendecomposition of the 2x2
// second-moment covariance matrix (spec.md §4.3 step 5), using
// gonum/mat.EigenSym per SPEC_FULL.md's design note.
func fitEllipse(sxx, syy, sxy float64) (a, b, theta float64, ok bool) {
	sym := mat.NewSymDense(2, []float64{sxx, sxy, sxy, syy})

	var eig mat.EigenSym
	if !eig.Factorize(sym, true) {
		return 0, 0, 0, false
	}

	values := eig.Values(nil)
	lambda1, lambda2 := values[1], values[0] // ascending order from gonum; want lambda1 >= lambda2
	if lambda1 < lambda2 {
		lambda1, lambda2 = lambda2, lambda1
	}

	if lambda1 <= 0 || lambda2 < 0 {
		return 0, 0, 0, false
	}

	a = math.Sqrt(lambda1)
	b = math.Sqrt(lambda2)
	theta = math.Atan2(sxy, lambda1-syy) * 180 / math.Pi

	return a, b, theta, true
}

/*****************************************************************************************************************/

// kronRadius computes the flux-weighted first moment radius (the Kron
// radius) by moment integration with a fixed cutoff of 6 effective radii
// (spec.md §4.3 step 6).
func kronRadius(c component, region []float32, w int, cx, cy, a, b, theta float64) float64 {
	const cutoff = 6.0

	rad := math.Ceil(cutoff * math.Max(a, b))
	if rad < 1 {
		rad = 1
	}

	sumR, sumFlux := 0.0, 0.0
	cosT, sinT := math.Cos(theta*math.Pi/180), math.Sin(theta*math.Pi/180)

	x0, y0 := int(cx-rad), int(cy-rad)
	x1, y1 := int(cx+rad), int(cy+rad)
	h := len(region) / w

	for y := y0; y <= y1; y++ {
		if y < 0 || y >= h {
			continue
		}
		for x := x0; x <= x1; x++ {
			if x < 0 || x >= w {
				continue
			}

			dx, dy := float64(x)-cx, float64(y)-cy
			u := dx*cosT + dy*sinT
			v := -dx*sinT + dy*cosT

			var r float64
			if a > 0 && b > 0 {
				r = math.Hypot(u/a, v/b)
			} else {
				r = math.Hypot(dx, dy)
			}
			if r > cutoff {
				continue
			}

			value := math.Max(0, float64(region[y*w+x]))
			sumR += r * value
			sumFlux += value
		}
	}

	if sumFlux <= 0 {
		return 1
	}

	return sumR / sumFlux
}

/*****************************************************************************************************************/

// apertureFluxCircle integrates flux within a circular aperture of the
// given radius, sampling each boundary-straddling pixel subpix x subpix
// times (spec.md §4.3 step 6's "sub-pixel sampling depth").
func apertureFluxCircle(region []float32, w int, cx, cy, radius float64, subpix int) float64 {
	h := len(region) / w
	x0, y0 := int(cx-radius)-1, int(cy-radius)-1
	x1, y1 := int(cx+radius)+1, int(cy+radius)+1

	flux := 0.0
	step := 1.0 / float64(subpix)

	for y := y0; y <= y1; y++ {
		if y < 0 || y >= h {
			continue
		}
		for x := x0; x <= x1; x++ {
			if x < 0 || x >= w {
				continue
			}

			value := math.Max(0, float64(region[y*w+x]))
			inside, total := 0, 0
			for sy := 0; sy < subpix; sy++ {
				py := float64(y) + (float64(sy)+0.5)*step
				for sx := 0; sx < subpix; sx++ {
					px := float64(x) + (float64(sx)+0.5)*step
					total++
					if math.Hypot(px-cx, py-cy) <= radius {
						inside++
					}
				}
			}

			flux += value * float64(inside) / float64(total)
		}
	}

	return flux
}

/*****************************************************************************************************************/

// apertureFluxEllipse integrates flux within a rotated elliptical aperture
// of semi-axes kronScale*a, kronScale*b, oriented at theta degrees.
func apertureFluxEllipse(region []float32, w int, cx, cy, a, b, theta, kronScale float64, subpix int) float64 {
	ra, rb := kronScale*a, kronScale*b
	if ra <= 0 || rb <= 0 {
		return 0
	}

	h := len(region) / w
	maxR := math.Max(ra, rb)
	x0, y0 := int(cx-maxR)-1, int(cy-maxR)-1
	x1, y1 := int(cx+maxR)+1, int(cy+maxR)+1

	cosT, sinT := math.Cos(theta*math.Pi/180), math.Sin(theta*math.Pi/180)
	step := 1.0 / float64(subpix)
	flux := 0.0

	for y := y0; y <= y1; y++ {
		if y < 0 || y >= h {
			continue
		}
		for x := x0; x <= x1; x++ {
			if x < 0 || x >= w {
				continue
			}

			value := math.Max(0, float64(region[y*w+x]))
			inside, total := 0, 0
			for sy := 0; sy < subpix; sy++ {
				py := float64(y) + (float64(sy)+0.5)*step
				for sx := 0; sx < subpix; sx++ {
					px := float64(x) + (float64(sx)+0.5)*step
					total++

					dx, dy := px-cx, py-cy
					u := dx*cosT + dy*sinT
					v := -dx*sinT + dy*cosT
					if (u*u)/(ra*ra)+(v*v)/(rb*rb) <= 1 {
						inside++
					}
				}
			}

			flux += value * float64(inside) / float64(total)
		}
	}

	return flux
}

/*****************************************************************************************************************/

// halfFluxRadius finds the radius enclosing 50% of the flux inside a
// maximum radius of maxRadius pixels (spec.md §4.3 step 7).
func halfFluxRadius(region []float32, w int, cx, cy, totalFlux float64, maxRadius float64) float64 {
	target := totalFlux * 0.5

	const steps = 64
	for i := 1; i <= steps; i++ {
		r := maxRadius * float64(i) / float64(steps)
		flux := apertureFluxCircle(region, w, cx, cy, r, 3)
		if flux >= target {
			return r
		}
	}

	return maxRadius
}
