/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/platesolve
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package quadsolver

/*****************************************************************************************************************/

import (
	"errors"

	"github.com/observerly/platesolve/pkg/quad"
	"github.com/observerly/platesolve/pkg/star"
)

/*****************************************************************************************************************/

// DefaultPrecision is the Precision value stored on every generated quad;
// a quad's normalised hash code is not rounded to it.
const DefaultPrecision = 3

/*****************************************************************************************************************/

// GenerateEuclidianStarQuads builds every valid four-point quad out of the
// k brightest of the given stars. k bounds the combinatorial explosion of
// C(n,4) quads: the default solving kernel (spec.md §4.6) calls this with
// the brightest ~5-8 stars in a partition or index pixel, never the full
// detection list.
func GenerateEuclidianStarQuads(stars []star.Star, k int) ([]quad.Quad, error) {
	if len(stars) < 4 {
		return nil, errors.New("quadsolver: at least 4 stars are required to generate a quad")
	}

	if k > len(stars) {
		k = len(stars)
	}

	candidates := brightestK(stars, k)

	quads := make([]quad.Quad, 0, combinations(len(candidates), 4))

	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			for l := j + 1; l < len(candidates); l++ {
				for m := l + 1; m < len(candidates); m++ {
					q, err := quad.NewQuad(candidates[i], candidates[j], candidates[l], candidates[m], DefaultPrecision)

					if err != nil {
						continue
					}

					quads = append(quads, q)
				}
			}
		}
	}

	if len(quads) == 0 {
		return nil, errors.New("quadsolver: no valid quads could be generated from the given stars")
	}

	return quads, nil
}

/*****************************************************************************************************************/

// brightestK returns (a copy of) the k stars with the largest Intensity,
// sorted descending.
func brightestK(stars []star.Star, k int) []star.Star {
	sorted := make([]star.Star, len(stars))
	copy(sorted, stars)

	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1].Intensity < sorted[j].Intensity; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}

	if k > len(sorted) {
		k = len(sorted)
	}

	return sorted[:k]
}

/*****************************************************************************************************************/

func combinations(n, r int) int {
	if r > n {
		return 0
	}

	result := 1

	for i := 0; i < r; i++ {
		result = result * (n - i) / (i + 1)
	}

	return result
}

/*****************************************************************************************************************/
