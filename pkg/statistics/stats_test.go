/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/platesolve
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package stats

/*****************************************************************************************************************/

import (
	"math"
	"testing"
)

/*****************************************************************************************************************/

func TestNormalDistributedRandomNumberConvergesToMean(t *testing.T) {
	sum := 0.0
	n := 20000

	for i := 0; i < n; i++ {
		sum += NormalDistributedRandomNumber(10, 2)
	}

	mean := sum / float64(n)

	if math.Abs(mean-10) > 0.25 {
		t.Errorf("expected sample mean near 10, got %v", mean)
	}
}

/*****************************************************************************************************************/

func TestPoissonDistributedRandomNumberIsNonNegative(t *testing.T) {
	for i := 0; i < 5000; i++ {
		if PoissonDistributedRandomNumber(5) < 0 {
			t.Errorf("expected a non-negative Poisson sample")
		}
	}
}

/*****************************************************************************************************************/

func TestPoissonDistributedRandomNumberZeroLambda(t *testing.T) {
	if PoissonDistributedRandomNumber(0) != 0 {
		t.Errorf("expected lambda=0 to always return 0")
	}
}

/*****************************************************************************************************************/

func TestPoissonDistributedRandomNumberConvergesToMean(t *testing.T) {
	sum := 0.0
	n := 20000

	for i := 0; i < n; i++ {
		sum += PoissonDistributedRandomNumber(40)
	}

	mean := sum / float64(n)

	if math.Abs(mean-40) > 3 {
		t.Errorf("expected sample mean near 40, got %v", mean)
	}
}

/*****************************************************************************************************************/
