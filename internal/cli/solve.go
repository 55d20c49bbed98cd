/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/platesolve
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package cli

/*****************************************************************************************************************/

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/observerly/platesolve/pkg/catalog"
	"github.com/observerly/platesolve/pkg/healpix"
	"github.com/observerly/platesolve/pkg/imageview"
	"github.com/observerly/platesolve/pkg/index"
	"github.com/observerly/platesolve/pkg/orchestrator"
	"github.com/observerly/platesolve/pkg/params"
	"github.com/observerly/platesolve/pkg/partition"
	"github.com/observerly/platesolve/pkg/quadsolver"
	"github.com/observerly/platesolve/pkg/render"
	"github.com/observerly/platesolve/pkg/star"
	"github.com/spf13/cobra"
)

/*****************************************************************************************************************/

var (
	SolveInputFileLocation  string
	SolveWidth              int
	SolveHeight             int
	SolveChannels           int
	SolveType               string
	SolveChannelPolicy      string
	SolveProfile            string
	SolveOutputFileLocation string

	SolveRA           float64
	SolveDec          float64
	SolveSearchRadius float64
	SolveMinWidth     float64
	SolveMaxWidth     float64
	SolveNSide        int
	SolveScheme       string
	SolveCatalog      string
	SolveOverlayFile  string
	SolveSIPOrder     int
)

/*****************************************************************************************************************/

var SolveCommand = &cobra.Command{
	Use:   "solve",
	Short: "plate solve a raw image buffer against a catalog-backed index",
	Long:  "extract sources from a raw image buffer and plate solve them against a catalog-backed HEALPix index, writing the winning WCS solution as JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunSolve(RunSolveParams{
			InputFile:     SolveInputFileLocation,
			Width:         SolveWidth,
			Height:        SolveHeight,
			Channels:      SolveChannels,
			Type:          SolveType,
			ChannelPolicy: SolveChannelPolicy,
			Profile:       SolveProfile,
			OutputFile:    SolveOutputFileLocation,
			RA:            SolveRA,
			Dec:           SolveDec,
			SearchRadius:  SolveSearchRadius,
			MinWidth:      SolveMinWidth,
			MaxWidth:      SolveMaxWidth,
			NSide:         SolveNSide,
			Scheme:        SolveScheme,
			Catalog:       SolveCatalog,
			OverlayFile:   SolveOverlayFile,
			SIPOrder:      SolveSIPOrder,
		})
	},
}

/*****************************************************************************************************************/

func init() {
	SolveCommand.Flags().StringVarP(&SolveInputFileLocation, "input", "i", "", "The raw image buffer file location on the filesystem")
	SolveCommand.MarkFlagRequired("input")

	SolveCommand.Flags().IntVarP(&SolveWidth, "width", "w", 0, "The image width, in pixels")
	SolveCommand.MarkFlagRequired("width")

	SolveCommand.Flags().IntVarP(&SolveHeight, "height", "", 0, "The image height, in pixels")
	SolveCommand.MarkFlagRequired("height")

	SolveCommand.Flags().IntVarP(&SolveChannels, "channels", "c", 1, "The number of interleaved channels (1 or 3)")

	SolveCommand.Flags().StringVarP(&SolveType, "type", "t", "u16", "The raw sample element type (u8, i16, u16, i32, u32, f32, f64)")

	SolveCommand.Flags().StringVarP(&SolveChannelPolicy, "channel-policy", "", "RED", "The channel-merge policy for 3-channel input")

	SolveCommand.Flags().StringVarP(&SolveProfile, "profile", "p", "Default", "The named parameter profile to apply")

	SolveCommand.Flags().StringVarP(&SolveOutputFileLocation, "output", "o", "", "Output file for the JSON solve report (defaults to stdout)")

	SolveCommand.Flags().Float64VarP(&SolveRA, "ra", "", math.NaN(), "The approximate right ascension of the image, in degrees")
	SolveCommand.Flags().Float64VarP(&SolveDec, "dec", "", math.NaN(), "The approximate declination of the image, in degrees")
	SolveCommand.Flags().Float64VarP(&SolveSearchRadius, "search-radius", "", 15, "The search radius around ra/dec, in degrees")

	SolveCommand.Flags().Float64VarP(&SolveMinWidth, "minwidth", "", math.NaN(), "The minimum field-of-view width prior, in degrees")
	SolveCommand.Flags().Float64VarP(&SolveMaxWidth, "maxwidth", "", math.NaN(), "The maximum field-of-view width prior, in degrees")

	SolveCommand.Flags().IntVarP(&SolveNSide, "nside", "n", 2, "The number of sides for the HealPIX index grid")
	SolveCommand.Flags().StringVarP(&SolveScheme, "scheme", "s", "NESTED", "The HealPIX pixel numbering scheme (NESTED or RING)")

	SolveCommand.Flags().StringVarP(&SolveCatalog, "catalog", "", "GAIA", "The backing star catalog (GAIA or SIMBAD)")

	SolveCommand.Flags().IntVarP(&SolveSIPOrder, "sip-order", "", 0, "SIP distortion polynomial order to fit over the winning affine solution (0 disables)")

	SolveCommand.Flags().StringVarP(&SolveOverlayFile, "overlay", "", "", "Write a PNG debug overlay of the extracted and matched stars to this file")
}

/*****************************************************************************************************************/

type RunSolveParams struct {
	InputFile     string
	Width         int
	Height        int
	Channels      int
	Type          string
	ChannelPolicy string
	Profile       string
	OutputFile    string

	RA           float64
	Dec          float64
	SearchRadius float64
	MinWidth     float64
	MaxWidth     float64
	NSide        int
	Scheme       string
	Catalog      string
	OverlayFile  string
	SIPOrder     int
}

/*****************************************************************************************************************/

// RunSolve decodes the raw buffer, extracts its stars, and plate solves
// them against a catalog-backed HEALPix index (spec.md §4.5/§6).
func RunSolve(p RunSolveParams) error {
	view, _, err := loadImageView(p.InputFile, p.Width, p.Height, p.Channels, p.Type, p.ChannelPolicy)
	if err != nil {
		return err
	}

	profile, err := resolveProfile(p.Profile)
	if err != nil {
		return err
	}

	if !math.IsNaN(p.MinWidth) {
		profile.MinWidth = p.MinWidth
	}
	if !math.IsNaN(p.MaxWidth) {
		profile.MaxWidth = p.MaxWidth
	}
	if p.SearchRadius > 0 {
		profile.SearchRadiusDeg = p.SearchRadius
	}
	if p.SIPOrder > 0 {
		profile.SIPOrder = p.SIPOrder
	}

	ex := partition.New(nil, nil)
	stars, _, err := ex.Extract(view, profile, profile.InitialKeep)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	if len(stars) < 4 {
		return fmt.Errorf("only %d stars extracted, at least 4 are required to solve", len(stars))
	}

	scheme := healpix.NESTED
	if p.Scheme == "RING" {
		scheme = healpix.RING
	}

	cat := catalog.GAIA
	if p.Catalog == "SIMBAD" {
		cat = catalog.SIMBAD
	}

	service := catalog.NewCatalogService(cat, catalog.Params{Limit: 100, Threshold: 16})
	healPix := healpix.NewHealPIX(p.NSide, scheme)
	idx := index.NewIndexer(*healPix, *service)

	o := orchestrator.New(nil, p.NSide, scheme, nil)

	position := orchestrator.PositionPrior{}
	if !math.IsNaN(p.RA) && !math.IsNaN(p.Dec) {
		position = orchestrator.PositionPrior{Known: true, RA: p.RA, Dec: p.Dec}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(profile.SolverTimeLimit)*time.Second)
	defer cancel()

	result, err := o.Solve(ctx, stars, idx, profile, orchestrator.ScalePrior{}, position, 0, p.Width, p.Height)
	if err != nil {
		return fmt.Errorf("solve failed: %w", err)
	}

	if p.OverlayFile != "" {
		var solution *quadsolver.Solution
		if result.Status == orchestrator.Solved {
			solution = result.Solution
		}

		if err := writeOverlay(view, stars, solution, p.OverlayFile); err != nil {
			return err
		}
	}

	if result.Status != orchestrator.Solved {
		return fmt.Errorf("solve %s", result.Status)
	}

	return writeJSON(result.Solution, p.OutputFile)
}

/*****************************************************************************************************************/

func writeOverlay(view *imageview.View, stars []star.Star, solution *quadsolver.Solution, path string) error {
	dc, err := render.Overlay(view, stars, solution)
	if err != nil {
		return fmt.Errorf("failed to render overlay: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create overlay file: %w", err)
	}
	defer f.Close()

	if err := render.WritePNG(dc, f); err != nil {
		return fmt.Errorf("failed to write overlay PNG: %w", err)
	}

	fmt.Printf("Overlay written to: %s\n", path)
	return nil
}
