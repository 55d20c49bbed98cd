/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/platesolve
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package cli

/*****************************************************************************************************************/

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/observerly/platesolve/pkg/params"
	"github.com/observerly/platesolve/pkg/partition"
	"github.com/observerly/platesolve/pkg/star"
	"github.com/spf13/cobra"
)

/*****************************************************************************************************************/

var (
	ExtractInputFileLocation  string
	ExtractWidth              int
	ExtractHeight             int
	ExtractChannels           int
	ExtractType               string
	ExtractChannelPolicy      string
	ExtractProfile            string
	ExtractOutputFileLocation string
)

/*****************************************************************************************************************/

var ExtractCommand = &cobra.Command{
	Use:   "extract",
	Short: "extract sources from a raw image buffer",
	Long:  "extract sources from a raw image buffer, writing the detected star list and background report as JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunExtract(RunExtractParams{
			InputFile:     ExtractInputFileLocation,
			Width:         ExtractWidth,
			Height:        ExtractHeight,
			Channels:      ExtractChannels,
			Type:          ExtractType,
			ChannelPolicy: ExtractChannelPolicy,
			Profile:       ExtractProfile,
			OutputFile:    ExtractOutputFileLocation,
		})
	},
}

/*****************************************************************************************************************/

func init() {
	ExtractCommand.Flags().StringVarP(&ExtractInputFileLocation, "input", "i", "", "The raw image buffer file location on the filesystem")
	ExtractCommand.MarkFlagRequired("input")

	ExtractCommand.Flags().IntVarP(&ExtractWidth, "width", "w", 0, "The image width, in pixels")
	ExtractCommand.MarkFlagRequired("width")

	ExtractCommand.Flags().IntVarP(&ExtractHeight, "height", "", 0, "The image height, in pixels")
	ExtractCommand.MarkFlagRequired("height")

	ExtractCommand.Flags().IntVarP(&ExtractChannels, "channels", "c", 1, "The number of interleaved channels (1 or 3)")

	ExtractCommand.Flags().StringVarP(&ExtractType, "type", "t", "u16", "The raw sample element type (u8, i16, u16, i32, u32, f32, f64)")

	ExtractCommand.Flags().StringVarP(&ExtractChannelPolicy, "channel-policy", "", "RED", "The channel-merge policy for 3-channel input (RED, GREEN, BLUE, AVERAGE_RGB, INTEGRATED_RGB)")

	ExtractCommand.Flags().StringVarP(&ExtractProfile, "profile", "p", "Default", "The named parameter profile to apply")

	ExtractCommand.Flags().StringVarP(&ExtractOutputFileLocation, "output", "o", "", "Output file for the JSON extraction report (defaults to stdout)")
}

/*****************************************************************************************************************/

type RunExtractParams struct {
	InputFile     string
	Width         int
	Height        int
	Channels      int
	Type          string
	ChannelPolicy string
	Profile       string
	OutputFile    string
}

/*****************************************************************************************************************/

type extractionReport struct {
	Stars      []star.Star `json:"stars"`
	GlobalMean float64     `json:"globalMean"`
	GlobalRMS  float64     `json:"globalRms"`
}

/*****************************************************************************************************************/

// RunExtract decodes the raw buffer at params.InputFile and runs the
// partitioned extraction pipeline (C1-C4) over it, per the named profile.
func RunExtract(p RunExtractParams) error {
	view, _, err := loadImageView(p.InputFile, p.Width, p.Height, p.Channels, p.Type, p.ChannelPolicy)
	if err != nil {
		return err
	}

	profile, err := resolveProfile(p.Profile)
	if err != nil {
		return err
	}

	ex := partition.New(nil, nil)
	stars, report, err := ex.Extract(view, profile, profile.InitialKeep)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	out := extractionReport{
		Stars:      stars,
		GlobalMean: report.GlobalMean,
		GlobalRMS:  report.GlobalRMS,
	}

	return writeJSON(out, p.OutputFile)
}

/*****************************************************************************************************************/

func resolveProfile(name string) (params.Parameters, error) {
	switch name {
	case "", "Default":
		return params.Default(), nil
	case "SingleThreadSolving":
		return params.For(params.ProfileSingleThreadSolving), nil
	case "ParallelLargeScale":
		return params.For(params.ProfileParallelLargeScale), nil
	case "ParallelSmallScale":
		return params.For(params.ProfileParallelSmallScale), nil
	case "AllStars":
		return params.For(params.ProfileAllStars), nil
	case "SmallStars":
		return params.For(params.ProfileSmallStars), nil
	case "MidStars":
		return params.For(params.ProfileMidStars), nil
	case "BigStars":
		return params.For(params.ProfileBigStars), nil
	default:
		return params.Parameters{}, fmt.Errorf("unknown profile %q", name)
	}
}

/*****************************************************************************************************************/

func writeJSON(v interface{}, outputFile string) error {
	encoded, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if outputFile == "" {
		fmt.Println(string(encoded))
		return nil
	}

	if err := os.WriteFile(outputFile, encoded, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	fmt.Printf("Report written to: %s\n", outputFile)
	return nil
}
