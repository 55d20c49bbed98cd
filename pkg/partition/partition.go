/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/platesolve
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

// Package partition implements the partitioned extractor (spec.md §4.4,
// C4): it splits an image view into a grid of margined partitions, runs
// the background model and extraction kernel over each partition on a
// worker pool sized to hardware parallelism, then aggregates and filters
// the combined star list.
package partition

/*****************************************************************************************************************/

import (
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/observerly/platesolve/pkg/background"
	"github.com/observerly/platesolve/pkg/extract"
	"github.com/observerly/platesolve/pkg/imageview"
	"github.com/observerly/platesolve/pkg/params"
	"github.com/observerly/platesolve/pkg/star"
)

/*****************************************************************************************************************/

const (
	// targetPartitionSize is the default partition side length (spec.md §4.4).
	targetPartitionSize = 200

	minMargin = 20
	maxMargin = 50

	// defaultMaxStarSize is the assumed star envelope used to size the
	// partition margin when params.Parameters.MaxSize is left at its
	// unset (zero) value.
	defaultMaxStarSize = 40
)

/*****************************************************************************************************************/

// window is a partition's outer (margined) and inner (margin-less) extent,
// both expressed in original-image pixel coordinates.
type window struct {
	outerX0, outerY0, outerX1, outerY1 int
	innerX0, innerY0, innerX1, innerY1 int
}

/*****************************************************************************************************************/

// marginFor computes M = clamp(max_star_size/2, 20, 50), per spec.md §4.4.
func marginFor(p params.Parameters) int {
	maxStarSize := p.MaxSize
	if maxStarSize <= 0 {
		maxStarSize = defaultMaxStarSize
	}

	m := int(math.Round(maxStarSize / 2))
	if m < minMargin {
		m = minMargin
	}
	if m > maxMargin {
		m = maxMargin
	}

	return m
}

/*****************************************************************************************************************/

// computeWindows lays out the partition grid. Partitioning is skipped
// (a single full-image window is returned) when the image is smaller than
// the partition target in either axis, or when there is no parallelism to
// exploit. The grid target is otherwise shrunk until it produces at least
// as many partitions as available workers, then the last column/row of
// each axis absorbs the remainder.
func computeWindows(w, h int, workers int, margin int) []window {
	if w < targetPartitionSize || h < targetPartitionSize || workers <= 1 {
		return []window{fullImageWindow(w, h, margin)}
	}

	target := targetPartitionSize
	cols := maxInt(1, w/target)
	rows := maxInt(1, h/target)

	for cols*rows < workers && target > 50 {
		target -= 20
		cols = maxInt(1, w/target)
		rows = maxInt(1, h/target)
	}

	colWidth := (w + cols - 1) / cols
	rowHeight := (h + rows - 1) / rows

	windows := make([]window, 0, cols*rows)

	for ty := 0; ty < rows; ty++ {
		iy0 := ty * rowHeight
		iy1 := iy0 + rowHeight
		if ty == rows-1 || iy1 > h {
			iy1 = h
		}

		for tx := 0; tx < cols; tx++ {
			ix0 := tx * colWidth
			ix1 := ix0 + colWidth
			if tx == cols-1 || ix1 > w {
				ix1 = w
			}

			windows = append(windows, window{
				outerX0: maxInt(0, ix0-margin),
				outerY0: maxInt(0, iy0-margin),
				outerX1: minInt(w, ix1+margin),
				outerY1: minInt(h, iy1+margin),
				innerX0: ix0,
				innerY0: iy0,
				innerX1: ix1,
				innerY1: iy1,
			})
		}
	}

	return windows
}

/*****************************************************************************************************************/

func fullImageWindow(w, h, margin int) window {
	return window{
		outerX0: 0, outerY0: 0, outerX1: w, outerY1: h,
		innerX0: 0, innerY0: 0, innerX1: w, innerY1: h,
	}
}

/*****************************************************************************************************************/

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

/*****************************************************************************************************************/

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

/*****************************************************************************************************************/

// Extractor runs the partitioned extraction pipeline over an ImageView,
// producing the aggregated, filtered star list and combined Report
// (spec.md §4.4).
type Extractor struct {
	Kernel     extract.Extractor
	Background *background.Model
}

/*****************************************************************************************************************/

// New constructs a partitioned Extractor over the given kernel and
// background model, defaulting both when nil.
func New(kernel extract.Extractor, bg *background.Model) *Extractor {
	if kernel == nil {
		kernel = extract.NewKernel()
	}
	if bg == nil {
		bg = background.New(0, 0, 0)
	}
	return &Extractor{Kernel: kernel, Background: bg}
}

/*****************************************************************************************************************/

type partitionResult struct {
	stars  []star.Star
	report background.Report
	err    error
}

/*****************************************************************************************************************/

// Extract runs C2 and C3 over every partition of view's pixel grid on a
// worker pool of size runtime.GOMAXPROCS(0), then aggregates background
// reports and applies the star-filter chain (spec.md §4.4) to the combined
// list, translated back into original-image coordinates.
func (e *Extractor) Extract(view *imageview.View, p params.Parameters, keepBudget int) ([]star.Star, background.Report, error) {
	stat := view.Stat()
	workers := runtime.GOMAXPROCS(0)
	margin := marginFor(p)

	windows := computeWindows(stat.Width, stat.Height, workers, margin)

	jobs := make(chan int, len(windows))
	results := make([]partitionResult, len(windows))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = e.runPartition(view, windows[idx], p, keepBudget)
			}
		}()
	}

	for i := range windows {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var allStars []star.Star
	var reports []background.Report

	for _, r := range results {
		if r.err != nil {
			// A failed partition is silently dropped (spec.md §4.3: "the
			// overall extraction continues").
			continue
		}
		allStars = append(allStars, r.stars...)
		reports = append(reports, r.report)
	}

	aggregated := aggregateReports(reports)

	filtered := applyFilterChain(allStars, p, stat.Type)
	aggregated.NumStarsDetected = len(filtered)

	return filtered, aggregated, nil
}

/*****************************************************************************************************************/

func (e *Extractor) runPartition(view *imageview.View, win window, p params.Parameters, keepBudget int) partitionResult {
	w := win.outerX1 - win.outerX0
	h := win.outerY1 - win.outerY0

	region := view.ReadRegion(win.outerX0, win.outerY0, w, h)

	report, err := e.Background.Subtract(region, w, h)
	if err != nil {
		return partitionResult{err: err}
	}

	stars, err := e.Kernel.Extract(region, w, h, report.GlobalRMS, p, keepBudget)
	if err != nil {
		return partitionResult{err: err}
	}

	// Inner-rectangle centroid filtering (spec.md §4.4): discard detections
	// whose centroid lies outside the inner rectangle, then translate
	// surviving centroids back to original-image coordinates.
	kept := stars[:0]
	for _, s := range stars {
		origX := s.X + float64(win.outerX0)
		origY := s.Y + float64(win.outerY0)

		if origX < float64(win.innerX0) || origX >= float64(win.innerX1) ||
			origY < float64(win.innerY0) || origY >= float64(win.innerY1) {
			continue
		}

		s.X = origX
		s.Y = origY
		kept = append(kept, s)
	}

	return partitionResult{stars: kept, report: report}
}

/*****************************************************************************************************************/

// aggregateReports combines per-partition background reports per spec.md
// §4.4's "Aggregation" rule: bw/bh inherited from the first partition,
// global mean averaged, global RMS combined in quadrature.
func aggregateReports(reports []background.Report) background.Report {
	if len(reports) == 0 {
		return background.Report{}
	}

	out := background.Report{
		TileWidth:  reports[0].TileWidth,
		TileHeight: reports[0].TileHeight,
	}

	sumMean, sumVar := 0.0, 0.0
	for _, r := range reports {
		sumMean += r.GlobalMean
		sumVar += r.GlobalRMS * r.GlobalRMS
	}

	out.GlobalMean = sumMean / float64(len(reports))
	out.GlobalRMS = math.Sqrt(sumVar / float64(len(reports)))

	return out
}

/*****************************************************************************************************************/

// applyFilterChain runs the 8-step star-filter chain in the exact order
// spec.md §4.4 documents.
func applyFilterChain(stars []star.Star, p params.Parameters, t imageview.ElementType) []star.Star {
	// Step 1: resort by magnitude ascending (brighter first).
	if p.Resort {
		sort.Slice(stars, func(i, j int) bool { return stars[i].Magnitude < stars[j].Magnitude })
	}

	// Step 2: max size drop.
	if p.MaxSize > 0 {
		stars = filterStars(stars, func(s star.Star) bool { return s.A <= p.MaxSize && s.B <= p.MaxSize })
	}

	// Step 3: min size drop.
	if p.MinSize > 0 {
		stars = filterStars(stars, func(s star.Star) bool { return s.A >= p.MinSize && s.B >= p.MinSize })
	}

	// Step 4: remove brightest top p%.
	if p.RemoveBrightestP > 0 && len(stars) > 0 {
		n := int(float64(len(stars)) * p.RemoveBrightestP / 100)
		if n > 0 {
			if n > len(stars) {
				n = len(stars)
			}
			stars = stars[n:]
		}
	}

	// Step 5: remove dimmest bottom p%.
	if p.RemoveDimmestP > 0 && len(stars) > 0 {
		n := int(float64(len(stars)) * p.RemoveDimmestP / 100)
		if n > 0 {
			if n > len(stars) {
				n = len(stars)
			}
			stars = stars[:len(stars)-n]
		}
	}

	// Step 6: max ellipticity drop.
	if p.MaxEllipse > 0 {
		stars = filterStars(stars, func(s star.Star) bool {
			return s.B == 0 || s.A/s.B <= p.MaxEllipse
		})
	}

	// Step 7: saturation drop (integer element types only; float sources
	// have no finite type max and are left untouched, per spec.md §4.4).
	if p.SaturationLimitP > 0 {
		typeMax, ok := t.TypeMax()
		stars = ApplySaturationFilter(stars, p.SaturationLimitP, typeMax, ok)
	}

	// Step 8: keep-N brightest (only when resort is enabled).
	if p.Resort && p.KeepNum > 0 && len(stars) > p.KeepNum {
		stars = stars[:p.KeepNum]
	}

	return stars
}

/*****************************************************************************************************************/

// ApplySaturationFilter performs star-filter-chain step 7 (spec.md §4.4):
// discard detections whose peak meets or exceeds saturation_fraction *
// type_max. Only meaningful for integer element types; float sources have
// no finite type_max and this is a no-op for them (ok=false).
func ApplySaturationFilter(stars []star.Star, saturationFraction float64, typeMax float64, ok bool) []star.Star {
	if !ok || saturationFraction <= 0 {
		return stars
	}

	threshold := saturationFraction * typeMax
	return filterStars(stars, func(s star.Star) bool { return s.Peak < threshold })
}

/*****************************************************************************************************************/

func filterStars(stars []star.Star, keep func(star.Star) bool) []star.Star {
	out := stars[:0]
	for _, s := range stars {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}
