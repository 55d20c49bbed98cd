/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/platesolve
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package params

/*****************************************************************************************************************/

import "math"

/*****************************************************************************************************************/

// ApertureShape selects the photometric aperture the extraction kernel
// applies in step 6 of the extraction kernel (spec.md §4.3).
type ApertureShape int

const (
	AUTO ApertureShape = iota
	CIRCLE
	ELLIPSE
)

/*****************************************************************************************************************/

// ConvolutionFilterType selects the matched filter convolved with the
// background-subtracted region before labeling (spec.md §4.3 step 2).
type ConvolutionFilterType int

const (
	DEFAULT ConvolutionFilterType = iota
	CUSTOM
	GAUSSIAN
	MEXICAN_HAT
	TOP_HAT
	RING
)

/*****************************************************************************************************************/

// MultiAlgo selects the parallel-search strategy of the solver orchestrator
// (spec.md §4.5).
type MultiAlgo int

const (
	NOT_MULTI MultiAlgo = iota
	MULTI_SCALES
	MULTI_DEPTHS
	MULTI_AUTO
)

/*****************************************************************************************************************/

// ScaleUnit names the unit a scale prior is expressed in.
type ScaleUnit int

const (
	DEG_WIDTH ScaleUnit = iota
	ARCMIN_WIDTH
	ARCSEC_PER_PIX
	FOCAL_MM
)

/*****************************************************************************************************************/

// Parity is the sign of the image coordinate determinant (spec.md's
// GLOSSARY "Parity"). BOTH is the zero value, so a zero-value SolveConfig
// filters on nothing, matching original_source's "default: try both".
type Parity int

const (
	BOTH Parity = iota
	POSITIVE
	NEGATIVE
)

/*****************************************************************************************************************/

// ProcessType selects how much work a top-level operation performs,
// recovered from original_source's explicit mode switch (not present as a
// named field in spec.md's distillation, but implied by the optional-HFR
// language in §4.3 step 7 and the extract/solve split in §2).
type ProcessType int

const (
	EXTRACT ProcessType = iota
	EXTRACT_WITH_HFR
	SOLVE
)

/*****************************************************************************************************************/

// ExtractorType tags which extraction back-end produced a star list.
// Only INTERNAL is implemented; the others are declared per spec.md §9's
// "tagged variants for back-end selection" but return a Precondition error
// if selected (external-process and remote extractors are out of scope,
// spec.md §1).
type ExtractorType int

const (
	EXTRACTOR_INTERNAL ExtractorType = iota
	EXTRACTOR_EXTERNAL
	EXTRACTOR_BUILTIN
)

/*****************************************************************************************************************/

// SolverKind tags which solver back-end a solve request targets. Only
// QUAD (the module's built-in geometric-hashing kernel, pkg/quadsolver) is
// implemented; the rest are declared, unimplemented, per spec.md §9.
type SolverKind int

const (
	SOLVER_QUAD SolverKind = iota
	SOLVER_LOCAL_ASTROMETRY
	SOLVER_ASTAP
	SOLVER_WATNEY
	SOLVER_ONLINE
)

/*****************************************************************************************************************/

// Parameters is the flat struct of spec.md §3/§6: extraction thresholds,
// filter thresholds, convolution-filter choice and FWHM, scale and
// position priors, parallel-search algorithm, and odds-ratio thresholds.
//
// Equality deliberately ignores ProfileName (spec.md §3): use Equal, not
// ==, when ProfileName may differ between two otherwise-identical sets.
type Parameters struct {
	ProfileName        string
	ProfileDescription string

	Process   ProcessType
	Extractor ExtractorType
	Solver    SolverKind

	// Aperture:
	ApertureShape ApertureShape
	KronFact      float64
	Subpix        int
	RMin          float64

	// Detection:
	Magzero             float64
	MinArea             int
	DeblendThresh       int
	DeblendContrast     float64
	Clean               bool
	CleanParam          float64
	ThresholdOffset     float64
	ThresholdBGMultiple float64

	// Convolution:
	ConvFilterType ConvolutionFilterType
	FWHM           float64

	// Partitioning:
	Partition bool

	// Filter chain:
	MaxSize          float64
	MinSize          float64
	MaxEllipse       float64
	InitialKeep      int
	KeepNum          int
	RemoveBrightestP float64
	RemoveDimmestP   float64
	SaturationLimitP float64
	Resort           bool

	// Solver:
	MultiAlgorithm  MultiAlgo
	InParallel      bool
	SolverTimeLimit float64 // seconds
	MinWidth        float64 // degrees
	MaxWidth        float64 // degrees
	AutoDownsample  bool
	Downsample      int
	SearchParity    Parity
	SearchRadiusDeg float64

	// SIPOrder, when > 0, requests a SIP distortion refinement over the
	// winning affine fit (0 disables it, leaving a pure affine WCS).
	SIPOrder int

	// Odds (natural log):
	LogRatioToSolve float64
	LogRatioToKeep  float64
	LogRatioToTune  float64
}

/*****************************************************************************************************************/

// Equal compares two Parameters, ignoring ProfileName/ProfileDescription
// per spec.md §3.
func (p Parameters) Equal(other Parameters) bool {
	p.ProfileName, p.ProfileDescription = "", ""
	other.ProfileName, other.ProfileDescription = "", ""
	return p == other
}

/*****************************************************************************************************************/

// Default returns the baseline Parameters set, field defaults grounded in
// original_source/stellarsolver/parameters.h's Parameters class.
func Default() Parameters {
	return Parameters{
		ProfileName:         "Default",
		ProfileDescription:  "Balanced parameters suitable for most fields",
		Process:             SOLVE,
		Extractor:           EXTRACTOR_INTERNAL,
		Solver:              SOLVER_QUAD,
		ApertureShape:       AUTO,
		KronFact:            2.5,
		Subpix:              5,
		RMin:                3.5,
		Magzero:             20,
		MinArea:             10,
		DeblendThresh:       32,
		DeblendContrast:     0.005,
		Clean:               false,
		CleanParam:          1.0,
		ThresholdOffset:     0,
		ThresholdBGMultiple: 2.0,
		ConvFilterType:      DEFAULT,
		FWHM:                2,
		Partition:           true,
		MaxSize:             0,
		MinSize:             0,
		MaxEllipse:          0,
		InitialKeep:         1_000_000,
		KeepNum:             0,
		RemoveBrightestP:    0,
		RemoveDimmestP:      0,
		SaturationLimitP:    0,
		Resort:              true,
		MultiAlgorithm:      MULTI_AUTO,
		InParallel:          true,
		SolverTimeLimit:     600,
		MinWidth:            0.1,
		MaxWidth:            180,
		AutoDownsample:      true,
		Downsample:          1,
		SearchParity:        BOTH,
		SearchRadiusDeg:     15,
		SIPOrder:            0,
		LogRatioToSolve:     math.Log(1e9),
		LogRatioToKeep:      math.Log(1e9),
		LogRatioToTune:      math.Log(1e6),
	}
}

/*****************************************************************************************************************/

// Profile names the eight named parameter profiles of spec.md §6.
type Profile int

const (
	ProfileDefault Profile = iota
	ProfileSingleThreadSolving
	ProfileParallelLargeScale
	ProfileParallelSmallScale
	ProfileAllStars
	ProfileSmallStars
	ProfileMidStars
	ProfileBigStars
)

/*****************************************************************************************************************/

// For returns the named profile's Parameters, starting from Default and
// applying the profile's field overrides as a whole-struct overlay.
func For(profile Profile) Parameters {
	p := Default()

	switch profile {
	case ProfileDefault:
		return p

	case ProfileSingleThreadSolving:
		p.ProfileName = "SingleThreadSolving"
		p.ProfileDescription = "Non-parallel solving, suitable for small fields"
		p.MultiAlgorithm = NOT_MULTI

	case ProfileParallelLargeScale:
		p.ProfileName = "ParallelLargeScale"
		p.ProfileDescription = "Parallel search across a wide scale range"
		p.MinWidth = 10
		p.MaxWidth = 180
		p.MultiAlgorithm = MULTI_SCALES

	case ProfileParallelSmallScale:
		p.ProfileName = "ParallelSmallScale"
		p.ProfileDescription = "Parallel search across a narrow scale range"
		p.MinWidth = 0.1
		p.MaxWidth = 10
		p.MultiAlgorithm = MULTI_SCALES

	case ProfileAllStars:
		p.ProfileName = "AllStars"
		p.ProfileDescription = "Extraction only, tuned for small FWHM"
		p.Process = EXTRACT
		p.FWHM = 1

	case ProfileSmallStars:
		p.ProfileName = "SmallStars"
		p.ProfileDescription = "Extraction tuned for small stars"
		p.Process = EXTRACT
		p.MaxSize = 5
		p.SaturationLimitP = 0.8

	case ProfileMidStars:
		p.ProfileName = "MidStars"
		p.ProfileDescription = "Extraction tuned for mid-sized stars"
		p.Process = EXTRACT
		p.MinSize = 2
		p.MaxSize = 10
		p.RemoveDimmestP = 20

	case ProfileBigStars:
		p.ProfileName = "BigStars"
		p.ProfileDescription = "Extraction tuned for large/bright stars"
		p.Process = EXTRACT
		p.MinSize = 5
		p.RemoveDimmestP = 50
	}

	return p
}

/*****************************************************************************************************************/
