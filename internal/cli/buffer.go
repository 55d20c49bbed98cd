/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/platesolve
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

// Package cli implements the extract and solve cobra subcommands over a
// caller-supplied raw image buffer file (spec.md §6's "Image input: a
// caller-owned image buffer plus its description. No on-disk format is
// part of the core" — the file format here is the CLI's own concern, not
// the core module's).
package cli

/*****************************************************************************************************************/

import (
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"github.com/observerly/platesolve/pkg/imageview"
)

/*****************************************************************************************************************/

// parseElementType maps a CLI --type flag value onto an imageview.ElementType.
func parseElementType(s string) (imageview.ElementType, error) {
	switch strings.ToLower(s) {
	case "u8":
		return imageview.U8, nil
	case "i16":
		return imageview.I16, nil
	case "u16":
		return imageview.U16, nil
	case "i32":
		return imageview.I32, nil
	case "u32":
		return imageview.U32, nil
	case "f32":
		return imageview.F32, nil
	case "f64":
		return imageview.F64, nil
	default:
		return 0, fmt.Errorf("unknown element type %q (expected one of u8, i16, u16, i32, u32, f32, f64)", s)
	}
}

/*****************************************************************************************************************/

// parseChannelPolicy maps a CLI --channel-policy flag value onto an
// imageview.ChannelPolicy.
func parseChannelPolicy(s string) (imageview.ChannelPolicy, error) {
	switch strings.ToUpper(s) {
	case "RED":
		return imageview.RED, nil
	case "GREEN":
		return imageview.GREEN, nil
	case "BLUE":
		return imageview.BLUE, nil
	case "AVERAGE_RGB":
		return imageview.AVERAGE_RGB, nil
	case "INTEGRATED_RGB":
		return imageview.INTEGRATED_RGB, nil
	default:
		return 0, fmt.Errorf("unknown channel policy %q", s)
	}
}

/*****************************************************************************************************************/

// readRawBuffer reads width*height*channels samples of the given element
// type from path, little-endian, and returns them as the concrete typed
// slice imageview.New expects.
func readRawBuffer(path string, width, height, channels int, t imageview.ElementType) (interface{}, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	n := width * height * channels

	switch t {
	case imageview.U8:
		buf := make([]uint8, n)
		if err := binary.Read(file, binary.LittleEndian, &buf); err != nil {
			return nil, fmt.Errorf("failed to read u8 buffer: %w", err)
		}
		return buf, nil

	case imageview.I16:
		buf := make([]int16, n)
		if err := binary.Read(file, binary.LittleEndian, &buf); err != nil {
			return nil, fmt.Errorf("failed to read i16 buffer: %w", err)
		}
		return buf, nil

	case imageview.U16:
		buf := make([]uint16, n)
		if err := binary.Read(file, binary.LittleEndian, &buf); err != nil {
			return nil, fmt.Errorf("failed to read u16 buffer: %w", err)
		}
		return buf, nil

	case imageview.I32:
		buf := make([]int32, n)
		if err := binary.Read(file, binary.LittleEndian, &buf); err != nil {
			return nil, fmt.Errorf("failed to read i32 buffer: %w", err)
		}
		return buf, nil

	case imageview.U32:
		buf := make([]uint32, n)
		if err := binary.Read(file, binary.LittleEndian, &buf); err != nil {
			return nil, fmt.Errorf("failed to read u32 buffer: %w", err)
		}
		return buf, nil

	case imageview.F32:
		buf := make([]float32, n)
		if err := binary.Read(file, binary.LittleEndian, &buf); err != nil {
			return nil, fmt.Errorf("failed to read f32 buffer: %w", err)
		}
		return buf, nil

	case imageview.F64:
		buf := make([]float64, n)
		if err := binary.Read(file, binary.LittleEndian, &buf); err != nil {
			return nil, fmt.Errorf("failed to read f64 buffer: %w", err)
		}
		return buf, nil

	default:
		return nil, fmt.Errorf("unsupported element type")
	}
}

/*****************************************************************************************************************/

// writeRawU32Buffer writes buf to path as little-endian uint32 samples, the
// inverse of readRawBuffer's imageview.U32 branch.
func writeRawU32Buffer(buf []uint32, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := binary.Write(file, binary.LittleEndian, buf); err != nil {
		return fmt.Errorf("failed to write u32 buffer: %w", err)
	}

	return nil
}

/*****************************************************************************************************************/

// typeMax reports the element type's maximum representable value and
// whether it is a finite (integer) type, for the saturation filter
// (spec.md §4.4 step 7, partition.ApplySaturationFilter).
func typeMax(t imageview.ElementType) (max float64, ok bool) {
	return t.TypeMax()
}
