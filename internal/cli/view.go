/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/platesolve
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package cli

/*****************************************************************************************************************/

import (
	"fmt"

	"github.com/observerly/platesolve/pkg/imageview"
)

/*****************************************************************************************************************/

// loadImageView reads a raw buffer file into an imageview.View per the
// given dimensions, element type, and channel-merge policy (spec.md §4.1).
func loadImageView(path string, width, height, channels int, typeName, channelPolicyName string) (*imageview.View, imageview.ElementType, error) {
	elementType, err := parseElementType(typeName)
	if err != nil {
		return nil, 0, err
	}

	policy, err := parseChannelPolicy(channelPolicyName)
	if err != nil {
		return nil, 0, err
	}

	raw, err := readRawBuffer(path, width, height, channels, elementType)
	if err != nil {
		return nil, 0, err
	}

	view, err := imageview.New(raw, width, height, channels, elementType, policy)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build image view: %w", err)
	}

	return view, elementType, nil
}
