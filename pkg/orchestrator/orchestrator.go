/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/platesolve
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

// Package orchestrator implements the parallel solver orchestrator
// (spec.md §4.5, C5): algorithm auto-selection, per-algorithm child
// spawning, and the first-winner-wins termination contract over a pool of
// quadsolver.Solver children.
package orchestrator

/*****************************************************************************************************************/

import (
	"context"
	"crypto/rand"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid"
	"github.com/observerly/platesolve/pkg/healpix"
	"github.com/observerly/platesolve/pkg/index"
	"github.com/observerly/platesolve/pkg/logsink"
	"github.com/observerly/platesolve/pkg/params"
	"github.com/observerly/platesolve/pkg/perr"
	"github.com/observerly/platesolve/pkg/quadsolver"
	"github.com/observerly/platesolve/pkg/star"
	"github.com/observerly/platesolve/pkg/sysinfo"
)

/*****************************************************************************************************************/

// ScalePrior is the orchestrator's optional scale-range input (spec.md
// §4.5). When Known is false, the child-spawning algorithms fall back to
// params.Parameters' MinWidth/MaxWidth, per spec.md's documented fallback.
type ScalePrior struct {
	Known   bool
	LowDeg  float64
	HighDeg float64
}

/*****************************************************************************************************************/

// PositionPrior is the orchestrator's optional position input (spec.md
// §4.5). It is a solve-time caller input, not a tunable parameter: it has
// no home in params.Parameters' flat enumeration (spec.md §6).
type PositionPrior struct {
	Known bool
	RA    float64
	Dec   float64
}

/*****************************************************************************************************************/

// Status is the terminal disposition of a top-level solve (spec.md §4.5
// "Termination contract").
type Status int

const (
	Unsolved Status = iota
	Solved
	TimedOut
	Aborted
)

/*****************************************************************************************************************/

func (s Status) String() string {
	switch s {
	case Solved:
		return "solved"
	case TimedOut:
		return "timed out"
	case Aborted:
		return "aborted"
	default:
		return "unsolved"
	}
}

/*****************************************************************************************************************/

// Result is the orchestrator's single, exactly-once completion
// notification (spec.md §4.5 "Invariant"). RunID identifies this Solve
// call across log lines, for correlating child solver messages in a run
// with many concurrent solves.
type Result struct {
	RunID    string
	Status   Status
	Solution *quadsolver.Solution
}

/*****************************************************************************************************************/

var entropy = ulid.Monotonic(rand.Reader, 0)

// newRunID mints a run identifier sortable by creation time, used to tag a
// single Solve call's log lines.
func newRunID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

/*****************************************************************************************************************/

// Orchestrator fans a star list out to a pool of Solver children and
// returns the first winner, per spec.md §4.5/§5.
type Orchestrator struct {
	Solver  quadsolver.Solver
	NSide   int
	Scheme  healpix.Scheme
	LogSink *logsink.Sink
}

/*****************************************************************************************************************/

// New constructs an Orchestrator over the given Solver, defaulting to the
// built-in quadsolver.QuadSolver and a LogSink at logsink.NORMAL when nil.
func New(solver quadsolver.Solver, nSide int, scheme healpix.Scheme, sink *logsink.Sink) *Orchestrator {
	if solver == nil {
		solver = quadsolver.NewQuadSolver()
	}
	if sink == nil {
		sink = logsink.New(logsink.NORMAL, nil)
	}
	return &Orchestrator{Solver: solver, NSide: nSide, Scheme: scheme, LogSink: sink}
}

/*****************************************************************************************************************/

// childJob is one spawned child's star subset and solving configuration.
type childJob struct {
	stars []star.Star
	cfg   quadsolver.SolveConfig
}

/*****************************************************************************************************************/

// Solve runs the parallel solver orchestrator over the given extracted star
// list, using idx to resolve per-HEALPix-pixel catalog quads and
// indexSetBytes as the on-disk footprint of the index files idx is backed
// by (spec.md §5 "Resource admission").
func (o *Orchestrator) Solve(
	ctx context.Context,
	stars []star.Star,
	idx *index.Indexer,
	p params.Parameters,
	scale ScalePrior,
	position PositionPrior,
	indexSetBytes uint64,
	imageWidth int,
	imageHeight int,
) (*Result, error) {
	runID := newRunID()

	if len(stars) == 0 {
		return nil, perr.New(perr.Precondition, "orchestrator: no extracted stars to solve from")
	}

	if p.LogRatioToKeep > p.LogRatioToSolve {
		return nil, perr.New(perr.Precondition, "orchestrator: log_odds_to_keep must be <= log_odds_to_solve")
	}

	o.LogSink.Log("run %s: solving %d extracted stars", runID, len(stars))

	inParallel := p.InParallel
	if inParallel && indexSetBytes > 0 && !sysinfo.CanLoadInParallel(indexSetBytes) {
		inParallel = false
		o.LogSink.Environment("insufficient RAM for in-parallel index loading, downgrading to sequential solve")
	}

	algorithm := resolveAlgorithm(p.MultiAlgorithm, scale.Known, position.Known)

	jobs := buildChildJobs(algorithm, stars, p, scale, position, o.NSide, o.Scheme, imageWidth, imageHeight)

	workers := runtime.GOMAXPROCS(0)
	if !inParallel {
		workers = 1
	}

	timeout := p.SolverTimeLimit
	if timeout <= 0 {
		timeout = 600
	}

	solveCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout*float64(time.Second)))
	defer cancel()

	coord := newCoordinator(cancel)

	jobCh := make(chan childJob, len(jobs))
	for _, j := range jobs {
		jobCh <- j
	}
	close(jobCh)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				if coord.won.Load() {
					return
				}

				solution, err := o.Solver.Solve(solveCtx, job.stars, idx, job.cfg)
				if err != nil || solution == nil {
					continue
				}

				if solution.LogOdds < p.LogRatioToSolve {
					continue
				}

				coord.tryWin(solution)
			}
		}()
	}

	wg.Wait()

	select {
	case solution := <-coord.result:
		o.LogSink.Log("run %s: solved", runID)
		return &Result{RunID: runID, Status: Solved, Solution: solution}, nil
	default:
	}

	if ctx.Err() == context.Canceled {
		o.LogSink.Log("run %s: aborted", runID)
		return &Result{RunID: runID, Status: Aborted}, nil
	}

	if solveCtx.Err() == context.DeadlineExceeded {
		o.LogSink.Log("run %s: timed out", runID)
		return &Result{RunID: runID, Status: TimedOut}, nil
	}

	o.LogSink.Log("run %s: unsolved", runID)
	return &Result{RunID: runID, Status: Unsolved}, nil
}

/*****************************************************************************************************************/

// coordinator is the "first-winner-wins" result slot of spec.md §5: a
// sync.Once-guarded result channel plus a monotonic atomic.Bool flag other
// workers poll to stop pulling further jobs once a winner is found.
type coordinator struct {
	once   sync.Once
	won    atomic.Bool
	cancel context.CancelFunc
	result chan *quadsolver.Solution
}

/*****************************************************************************************************************/

func newCoordinator(cancel context.CancelFunc) *coordinator {
	return &coordinator{cancel: cancel, result: make(chan *quadsolver.Solution, 1)}
}

/*****************************************************************************************************************/

// tryWin records solution as the winner exactly once; redundant wins are
// silently dropped, per spec.md §4.5's invariant.
func (c *coordinator) tryWin(solution *quadsolver.Solution) {
	c.once.Do(func() {
		c.won.Store(true)
		c.result <- solution
		c.cancel()
	})
}

/*****************************************************************************************************************/

// resolveAlgorithm applies spec.md §4.5's MULTI_AUTO selection table.
func resolveAlgorithm(algo params.MultiAlgo, hasScale, hasPosition bool) params.MultiAlgo {
	if algo != params.MULTI_AUTO {
		return algo
	}

	switch {
	case hasScale && hasPosition:
		return params.NOT_MULTI
	case hasPosition:
		return params.MULTI_SCALES
	case hasScale:
		return params.MULTI_DEPTHS
	default:
		return params.MULTI_SCALES
	}
}

/*****************************************************************************************************************/

// buildChildJobs spawns the per-algorithm child configurations of spec.md
// §4.5 "Child spawning".
func buildChildJobs(
	algo params.MultiAlgo,
	stars []star.Star,
	p params.Parameters,
	scale ScalePrior,
	position PositionPrior,
	nside int,
	scheme healpix.Scheme,
	imageWidth int,
	imageHeight int,
) []childJob {
	base := quadsolver.SolveConfig{
		LogOddsToSolve: p.LogRatioToSolve,
		NSide:          nside,
		Scheme:         scheme,
		ImageWidth:     imageWidth,
		ImageHeight:    imageHeight,
		SearchParity:   p.SearchParity,
		SIPOrder:       p.SIPOrder,
	}

	if position.Known {
		base.HasPosition = true
		base.RA = position.RA
		base.Dec = position.Dec
		base.SearchRadiusDeg = p.SearchRadiusDeg
	}

	switch algo {
	case params.NOT_MULTI:
		cfg := base
		cfg.MinWidthDeg, cfg.MaxWidthDeg = scaleRange(scale, p)
		return []childJob{{stars: stars, cfg: cfg}}

	case params.MULTI_DEPTHS:
		return buildDepthJobs(stars, p, base)

	case params.MULTI_SCALES:
		fallthrough
	default:
		return buildScaleJobs(stars, p, scale, base)
	}
}

/*****************************************************************************************************************/

func scaleRange(scale ScalePrior, p params.Parameters) (float64, float64) {
	if scale.Known {
		return scale.LowDeg, scale.HighDeg
	}
	return p.MinWidth, p.MaxWidth
}

/*****************************************************************************************************************/

// buildScaleJobs partitions [lo, hi] into T quadratic-schedule bins, per
// spec.md §4.5 "MULTI_SCALES": bin i covers [lo + k*i^2, lo + k*(i+1)^2]
// with k = (hi-lo)/T^2, so wider (larger-scale) bins get proportionally
// more of the range.
func buildScaleJobs(stars []star.Star, p params.Parameters, scale ScalePrior, base quadsolver.SolveConfig) []childJob {
	lo, hi := scaleRange(scale, p)

	t := runtime.GOMAXPROCS(0)
	if t < 1 {
		t = 1
	}

	k := (hi - lo) / float64(t*t)

	jobs := make([]childJob, 0, t)
	for i := 0; i < t; i++ {
		cfg := base
		cfg.MinWidthDeg = lo + k*float64(i*i)
		cfg.MaxWidthDeg = lo + k*float64((i+1)*(i+1))
		jobs = append(jobs, childJob{stars: stars, cfg: cfg})
	}

	return jobs
}

/*****************************************************************************************************************/

// buildDepthJobs partitions the brightness-sorted star list into
// non-overlapping depth windows, per spec.md §4.5 "MULTI_DEPTHS": total
// budget N = max(keep_num, 200), step Δ = max(N/T, 10), windows
// [1, 1+Δ], [1+Δ, 1+2Δ], … until N is exhausted. Every child shares the
// same (full) scale range; only the star subset differs.
func buildDepthJobs(stars []star.Star, p params.Parameters, base quadsolver.SolveConfig) []childJob {
	sorted := make([]star.Star, len(stars))
	copy(sorted, stars)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Intensity > sorted[j].Intensity })

	n := p.KeepNum
	if n < 200 {
		n = 200
	}

	t := runtime.GOMAXPROCS(0)
	if t < 1 {
		t = 1
	}

	delta := n / t
	if delta < 10 {
		delta = 10
	}

	var jobs []childJob
	for start := 1; start < n; start += delta {
		end := start + delta
		if end > n+1 {
			end = n + 1
		}

		lo := start - 1
		hi := end - 1
		if lo >= len(sorted) {
			break
		}
		if hi > len(sorted) {
			hi = len(sorted)
		}

		window := sorted[lo:hi]
		if len(window) == 0 {
			continue
		}

		cfg := base
		cfg.MinWidthDeg, cfg.MaxWidthDeg = p.MinWidth, p.MaxWidth
		jobs = append(jobs, childJob{stars: window, cfg: cfg})
	}

	if len(jobs) == 0 {
		cfg := base
		cfg.MinWidthDeg, cfg.MaxWidthDeg = p.MinWidth, p.MaxWidth
		jobs = append(jobs, childJob{stars: sorted, cfg: cfg})
	}

	return jobs
}
