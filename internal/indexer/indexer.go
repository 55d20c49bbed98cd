/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/platesolve
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package indexer

/*****************************************************************************************************************/

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"

	"github.com/observerly/platesolve/internal/indexregistry"
	"github.com/observerly/platesolve/pkg/catalog"
	"github.com/observerly/platesolve/pkg/healpix"
	"github.com/observerly/platesolve/pkg/index"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

/*****************************************************************************************************************/

var (
	NSide    int
	Scheme   string
	Registry string
)

/*****************************************************************************************************************/

var IndexCommand = &cobra.Command{
	Use:   "indexer",
	Short: "indexer",
	Long:  "indexer",
	Run: func(cmd *cobra.Command, args []string) {
		var scheme healpix.Scheme

		// Extract the scheme from the user input:
		switch strings.ToUpper(Scheme) {
		case "NESTED":
			// Set the scheme to the nested scheme:
			scheme = healpix.NESTED
		case "RING":
			// Set the scheme to the ring scheme:
			scheme = healpix.RING
		default:
			// Set the scheme to the nested scheme by default:
			scheme = healpix.NESTED
		}

		params := RunIndexerParams{
			NSide:    NSide,
			Scheme:   scheme,
			Registry: Registry,
		}

		// Attempt to run the indexer with the given parameters:
		err := RunIndexer(params)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
	},
}

/*****************************************************************************************************************/

func init() {
	// Add the nside flag tp the indexer command for the number of sides for the HealPIX scheme:
	// example usage: --nside 256 or -n 256
	IndexCommand.Flags().IntVarP(
		&NSide,
		"nside",
		"n",
		2,
		"The number of sides for the HealPIX scheme",
	)
	IndexCommand.MarkFlagRequired("nside")

	// Add the scheme flag to the indexer command for the HealPIX scheme:
	// example usage: --scheme NESTED or -s NESTED
	IndexCommand.Flags().StringVarP(
		&Scheme,
		"scheme",
		"s",
		"NESTED",
		"The HealPIX scheme to use",
	)

	// Add the registry flag for the sqlite database tracking written index files:
	IndexCommand.Flags().StringVarP(
		&Registry,
		"registry",
		"r",
		"indexes/registry.sqlite",
		"The sqlite database file tracking written index files",
	)
}

/*****************************************************************************************************************/

// Track created files for rollback
var createdFilePaths []string

/*****************************************************************************************************************/

type RunIndexerParams struct {
	NSide    int
	Scheme   healpix.Scheme
	Registry string
}

/*****************************************************************************************************************/

func RunIndexer(params RunIndexerParams) error {
	// Create a new GAIA service client:
	service := catalog.NewCatalogService(catalog.GAIA, catalog.Params{
		Limit:     8,  // Limit the number of records to 8
		Threshold: 16, // Limiting Magntiude, filter out any stars that are magnitude 16 or above (fainter)
	})

	// Number of sides for the HealPIX:
	sides := params.NSide

	// Create a new HealPIX instance with the given sides:
	healPix := healpix.NewHealPIX(sides, params.Scheme)

	// Get the number of pixels for the given sides:
	pixels := healPix.NPixels()

	// Setup signal handling for cleanup on interrupt:
	signalChannel := make(chan os.Signal, 1)

	// Listen for interrupt signals on the SIGTERM system call, or os.Interrupt:
	signal.Notify(signalChannel, os.Interrupt, syscall.SIGTERM)

	// Listen for interrupt signal in a concurrent goroutine, and rollback if received:
	go func() {
		<-signalChannel
		fmt.Println("\nInterrupt received. Rolling back...")
		rollback(createdFilePaths)
		os.Exit(1)
	}()

	// Create a new indexer instance:
	indexer := index.NewIndexer(*healPix, *service)

	// Open the registry tracking every index file written to disk, so callers
	// can size their in-parallel index loads without re-statting the tree:
	registryPath := params.Registry
	if registryPath == "" {
		registryPath = "indexes/registry.sqlite"
	}

	registry, err := indexregistry.Open(registryPath)
	if err != nil {
		return fmt.Errorf("failed to open index registry: %w", err)
	}
	defer registry.Close()

	// Create the directory structure: indexes/<SIDES>
	directoryPath := filepath.Join("indexes", fmt.Sprint(sides))
	if err := os.MkdirAll(directoryPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Bound how many pixels we query the catalog service for concurrently,
	// so indexing a fine-grained grid doesn't hammer the GAIA/SIMBAD TAP
	// endpoint with hundreds of simultaneous radial searches at once:
	concurrency := int64(runtime.GOMAXPROCS(0))
	if concurrency > 8 {
		concurrency = 8
	}
	sem := semaphore.NewWeighted(concurrency)

	var mu sync.Mutex

	group, ctx := errgroup.WithContext(context.Background())

	// Generate quads for each pixel in the HealPIX grid for the given sides parameter:
	for pixel := 0; pixel < pixels; pixel++ {
		pixel := pixel

		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		group.Go(func() error {
			defer sem.Release(1)

			// Generate quads for the given pixel:
			quads, err := indexer.GenerateQuadsForPixel(pixel)
			if err != nil {
				return fmt.Errorf("failed to generate quads for pixel %d: %w", pixel, err)
			}

			quadsMarshalled, err := json.Marshal(quads)
			if err != nil {
				return fmt.Errorf("failed to marshal quads for pixel %d: %w", pixel, err)
			}

			// File path: indexes/<SIDES>/<PIXEL_INDEX>.json
			filePath := filepath.Join(directoryPath, fmt.Sprintf("%d.json", pixel))

			// Write the JSON data to the file
			if err := os.WriteFile(filePath, quadsMarshalled, 0644); err != nil {
				return fmt.Errorf("failed to write file %s: %w", filePath, err)
			}

			mu.Lock()
			createdFilePaths = append(createdFilePaths, filePath)
			if err := registry.Record(indexregistry.IndexFile{
				Path:      filePath,
				NSide:     sides,
				Scheme:    params.Scheme,
				HealPixel: pixel,
				SizeBytes: int64(len(quadsMarshalled)),
			}); err != nil {
				fmt.Printf("Warning: failed to record index file %s in registry: %v\n", filePath, err)
			}
			mu.Unlock()

			fmt.Printf("Quads saved to %s\n", filePath)

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		rollback(createdFilePaths)
		return err
	}

	// Return nil if the indexer ran successfully:
	return nil
}

/*****************************************************************************************************************/

// rollback deletes created files in case of failure or interruption
func rollback(filepaths []string) {
	for _, file := range filepaths {
		if err := os.Remove(file); err != nil {
			fmt.Printf("Warning: Failed to remove file %s: %v\n", file, err)
		} else {
			fmt.Printf("Rolled back: %s\n", file)
		}
	}
}

/*****************************************************************************************************************/
