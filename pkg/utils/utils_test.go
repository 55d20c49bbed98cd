/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/platesolve
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package utils

/*****************************************************************************************************************/

import (
	"math"
	"testing"
)

/*****************************************************************************************************************/

func TestComputePolynomialTermsOrderZeroIsConstantOne(t *testing.T) {
	terms := ComputePolynomialTerms(3, 7, 0)

	if len(terms) != 1 {
		t.Fatalf("expected 1 term for order 0, got %d", len(terms))
	}

	if terms[0] != 1 {
		t.Errorf("expected the order-0 term to be 1, got %v", terms[0])
	}
}

/*****************************************************************************************************************/

func TestComputePolynomialTermsCountMatchesTriangularNumber(t *testing.T) {
	for order := 0; order <= 4; order++ {
		terms := ComputePolynomialTerms(2, 3, order)
		expected := (order + 1) * (order + 2) / 2

		if len(terms) != expected {
			t.Errorf("order %d: expected %d terms, got %d", order, expected, len(terms))
		}
	}
}

/*****************************************************************************************************************/

func TestComputePolynomialTermsMatchesHandComputedOrderTwo(t *testing.T) {
	x, y := 2.0, 3.0

	terms := ComputePolynomialTerms(x, y, 2)

	expected := []float64{1, x, y, x * x, x * y, y * y}

	if len(terms) != len(expected) {
		t.Fatalf("expected %d terms, got %d", len(expected), len(terms))
	}

	for i, v := range expected {
		if math.Abs(terms[i]-v) > 1e-12 {
			t.Errorf("term %d: expected %v, got %v", i, v, terms[i])
		}
	}
}

/*****************************************************************************************************************/

func TestGeneratePolynomialTermKeysAlignsWithComputePolynomialTerms(t *testing.T) {
	for order := 0; order <= 3; order++ {
		terms := ComputePolynomialTerms(1.5, 2.5, order)
		keys := GeneratePolynomialTermKeys("A", order)

		if len(terms) != len(keys) {
			t.Fatalf("order %d: %d terms but %d keys, the two must stay index-aligned for SIP fitting", order, len(terms), len(keys))
		}
	}
}

/*****************************************************************************************************************/

func TestGeneratePolynomialTermKeysUsesThePrefix(t *testing.T) {
	keys := GeneratePolynomialTermKeys("B", 1)

	for _, k := range keys {
		if len(k) == 0 || k[0] != 'B' {
			t.Errorf("expected every key to carry the %q prefix, got %q", "B", k)
		}
	}
}
