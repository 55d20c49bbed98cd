/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/platesolve
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package stats

/*****************************************************************************************************************/

import (
	"math"

	"github.com/valyala/fastrand"
)

/*****************************************************************************************************************/

// uniform returns a uniformly distributed float64 in [0, 1), drawn from a
// fast non-cryptographic PRNG: synthetic sky/noise generation runs this in
// the hot path of per-pixel image synthesis, where math/rand's locking is
// wasteful.
func uniform() float64 {
	return float64(fastrand.Uint32n(1<<24)) / (1 << 24)
}

/*****************************************************************************************************************/

// Uniform exposes the package's underlying fastrand-backed uniform draw,
// for callers needing a plain uniform sample rather than a distribution
// built on top of it (synthetic image per-pixel noise scaling).
func Uniform() float64 {
	return uniform()
}

/*****************************************************************************************************************/

// NormalDistributedRandomNumber generates a normally distributed random number.
// mean: the mean of the distribution.
// stdDev: the standard deviation of the distribution.
func NormalDistributedRandomNumber(mean, stdDev float64) float64 {
	// Box-Muller transform using two independent uniform draws:
	u1, u2 := uniform(), uniform()

	for u1 == 0 {
		u1 = uniform()
	}

	z0 := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

	return z0*stdDev + mean
}

/*****************************************************************************************************************/

// PoissonDistributedRandomNumber generates a Poisson-distributed random
// number with the given mean (lambda), using Knuth's algorithm. Used to
// model photon shot noise (dark current, sky background) in synthetic
// sky images.
func PoissonDistributedRandomNumber(lambda float64) float64 {
	if lambda <= 0 {
		return 0
	}

	// Knuth's algorithm is only efficient for small lambda; for larger
	// lambda we fall back to a normal approximation, which is accurate to
	// within shot-noise tolerances for lambda > 30.
	if lambda > 30 {
		return math.Max(0, NormalDistributedRandomNumber(lambda, math.Sqrt(lambda)))
	}

	l := math.Exp(-lambda)
	k := 0
	p := 1.0

	for {
		k++
		p *= uniform()

		if p <= l {
			break
		}
	}

	return float64(k - 1)
}

/*****************************************************************************************************************/
