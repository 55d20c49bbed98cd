/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/platesolve
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package cli

/*****************************************************************************************************************/

import (
	"fmt"
	"math"
	"time"

	"github.com/observerly/platesolve/pkg/astrometry"
	"github.com/observerly/platesolve/pkg/catalog"
	"github.com/observerly/platesolve/pkg/sky"
	"github.com/observerly/sidera/pkg/humanize"
	"github.com/spf13/cobra"
)

/*****************************************************************************************************************/

var (
	SimulateRA                 float64
	SimulateDec                float64
	SimulateWidth              int
	SimulateHeight             int
	SimulateExposureSeconds    float64
	SimulateOutputFileLocation string
)

/*****************************************************************************************************************/

var SimulateCommand = &cobra.Command{
	Use:   "simulate",
	Short: "render a synthetic sky field against a live catalog, for exercising extract/solve",
	Long:  "fetch real catalog sources around ra/dec and render them as a synthetic raw u32 image buffer, for use as a test fixture for the extract and solve commands.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunSimulate(RunSimulateParams{
			RA:              SimulateRA,
			Dec:             SimulateDec,
			Width:           SimulateWidth,
			Height:          SimulateHeight,
			ExposureSeconds: SimulateExposureSeconds,
			OutputFile:      SimulateOutputFileLocation,
		})
	},
}

/*****************************************************************************************************************/

func init() {
	SimulateCommand.Flags().Float64VarP(&SimulateRA, "ra", "", 0, "The right ascension of the field center, in degrees")
	SimulateCommand.MarkFlagRequired("ra")

	SimulateCommand.Flags().Float64VarP(&SimulateDec, "dec", "", 0, "The declination of the field center, in degrees")
	SimulateCommand.MarkFlagRequired("dec")

	SimulateCommand.Flags().IntVarP(&SimulateWidth, "width", "w", 1024, "The image width, in pixels")
	SimulateCommand.Flags().IntVarP(&SimulateHeight, "height", "", 1024, "The image height, in pixels")

	SimulateCommand.Flags().Float64VarP(&SimulateExposureSeconds, "exposure", "", 30, "The simulated exposure duration, in seconds")

	SimulateCommand.Flags().StringVarP(&SimulateOutputFileLocation, "output", "o", "", "Output file for the raw u32 image buffer")
	SimulateCommand.MarkFlagRequired("output")
}

/*****************************************************************************************************************/

type RunSimulateParams struct {
	RA     float64
	Dec    float64
	Width  int
	Height int

	ExposureSeconds float64

	OutputFile string
}

/*****************************************************************************************************************/

// RunSimulate renders a synthetic star field by placing live catalog
// sources onto a simulated CCD frame (pkg/sky), for use as a repeatable
// test fixture for the extract and solve commands.
func RunSimulate(p RunSimulateParams) error {
	eq := astrometry.ICRSEquatorialCoordinate{RA: p.RA, Dec: p.Dec}

	// Representative amateur-telescope sensor/optics characteristics, in
	// the same units and ballpark as the teacher's own demonstration field.
	params := sky.Params{
		ExposureDuration:         time.Duration(p.ExposureSeconds * float64(time.Second)),
		MaxADU:                   65535,
		BiasOffset:               300,
		Gain:                     0.5,
		ReadNoise:                1.2,
		DarkCurrent:              0.2,
		BinningX:                 1,
		BinningY:                 1,
		PixelSizeX:               0.00054,
		PixelSizeY:               0.00054,
		FocalLength:              1.2,
		ApertureDiameter:         0.417,
		SkyBackground:            50,
		Seeing:                   1.5,
		AverageQuantumEfficiency: 0.93,
	}

	field, err := sky.NewSimulatedSky(p.Width, p.Height, eq, params)
	if err != nil {
		return fmt.Errorf("failed to construct simulated field: %w", err)
	}

	fovX := 2 * math.Atan((float64(p.Width)*params.PixelSizeX)/(2*params.FocalLength)) * (180 / math.Pi)
	fovY := 2 * math.Atan((float64(p.Height)*params.PixelSizeY)/(2*params.FocalLength)) * (180 / math.Pi)
	radius := math.Ceil(math.Hypot(fovX, fovY)/2*10) / 10

	service := catalog.NewCatalogService(catalog.GAIA, catalog.Params{Limit: 1000, Threshold: 13})

	sources, err := service.PerformRadialSearch(eq, radius)
	if err != nil {
		return fmt.Errorf("catalog search failed: %w", err)
	}

	image, err := field.GenerateFieldImage(sources)
	if err != nil {
		return fmt.Errorf("failed to render field image: %w", err)
	}

	buf := make([]uint32, p.Width*p.Height)
	for y, row := range image {
		copy(buf[y*p.Width:(y+1)*p.Width], row)
	}

	if err := writeRawU32Buffer(buf, p.OutputFile); err != nil {
		return err
	}

	fmt.Printf(
		"Simulated field at RA %s, Dec %s (%d sources, %.2f° radius) written to: %s\n",
		humanize.FormatDecimalToDMS(p.RA, "%s%d%d%.2f"),
		humanize.FormatDecimalToDMS(p.Dec, "%s%d%d%.2f"),
		len(sources),
		radius,
		p.OutputFile,
	)

	return nil
}

/*****************************************************************************************************************/
