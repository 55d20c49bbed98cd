/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/platesolve
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package cmd

/*****************************************************************************************************************/

import (
	"github.com/observerly/platesolve/internal/cli"
	"github.com/observerly/platesolve/internal/indexer"
	"github.com/spf13/cobra"
)

/*****************************************************************************************************************/

var rootCommand = &cobra.Command{
	Use:   "platesolve",
	Short: "platesolve is a command-line tool for extracting sources from, and plate solving, astronomical images.",
	Long:  "platesolve is a command-line tool for extracting sources from, and plate solving, astronomical images.",
}

/*****************************************************************************************************************/

func init() {
	rootCommand.AddCommand(indexer.IndexCommand)
	rootCommand.AddCommand(cli.ExtractCommand)
	rootCommand.AddCommand(cli.SolveCommand)
	rootCommand.AddCommand(cli.SimulateCommand)
}

/*****************************************************************************************************************/

func Execute() {
	if err := rootCommand.Execute(); err != nil {
		panic(err)
	}
}

/*****************************************************************************************************************/
