/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/platesolve
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package astrometry

/*****************************************************************************************************************/

import (
	"github.com/observerly/platesolve/pkg/geometry"
	"github.com/observerly/platesolve/pkg/star"
)

/*****************************************************************************************************************/

type ICRSEquatorialCoordinate struct {
	RA  float64
	Dec float64
}

/*****************************************************************************************************************/

// Asterism is a triangle of three stars, either extracted from an image or
// drawn from a catalog/index, together with its scale- and rotation-invariant
// geometric features, used to match star patterns during solving.
type Asterism struct {
	A        star.Star
	B        star.Star
	C        star.Star
	Features geometry.InvariantFeatures
}

/*****************************************************************************************************************/
