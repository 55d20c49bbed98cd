/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/platesolve
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package imageview

/*****************************************************************************************************************/

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/observerly/platesolve/pkg/perr"
)

/*****************************************************************************************************************/

// ElementType is one of the seven numeric pixel element types an ImageView
// may be constructed over (spec.md §3 "Image Statistic").
type ElementType int

/*****************************************************************************************************************/

const (
	U8 ElementType = iota
	I16
	U16
	I32
	U32
	F32
	F64
)

/*****************************************************************************************************************/

// BytesPerSample returns the on-disk/in-buffer width of one sample of t.
func (t ElementType) BytesPerSample() int {
	switch t {
	case U8:
		return 1
	case I16, U16:
		return 2
	case I32, U32, F32:
		return 4
	case F64:
		return 8
	default:
		return 0
	}
}

/*****************************************************************************************************************/

// TypeMax returns the maximum representable value of an integer element
// type, used by the saturation filter (spec.md §4.4 step 7). Float types
// have no finite max and return false.
func (t ElementType) TypeMax() (max float64, ok bool) {
	switch t {
	case U8:
		return 255, true
	case I16:
		return 32767, true
	case U16:
		return 65535, true
	case I32:
		return 2147483647, true
	case U32:
		return 4294967295, true
	default:
		return 0, false
	}
}

/*****************************************************************************************************************/

// ChannelPolicy selects which channel(s) of a multi-channel source feed the
// logical single-channel f32 grid downstream components see.
type ChannelPolicy int

/*****************************************************************************************************************/

const (
	RED ChannelPolicy = iota
	GREEN
	BLUE
	AVERAGE_RGB
	INTEGRATED_RGB
)

/*****************************************************************************************************************/

// Statistic is the immutable description of an image buffer: dimensions,
// channel count, and element type (spec.md §3 "Image Statistic").
type Statistic struct {
	Width       int
	Height      int
	Channels    int
	Type        ElementType
	BytesPerPix int
}

/*****************************************************************************************************************/

func newStatistic(width, height, channels int, t ElementType) Statistic {
	return Statistic{
		Width:       width,
		Height:      height,
		Channels:    channels,
		Type:        t,
		BytesPerPix: t.BytesPerSample() * channels,
	}
}

/*****************************************************************************************************************/

// Samples returns the total sample count W*H*C.
func (s Statistic) Samples() int {
	return s.Width * s.Height * s.Channels
}

/*****************************************************************************************************************/

// View is a read-only, strided view over a caller-owned pixel buffer,
// resolved at construction to a logical single-channel f32 grid (spec.md
// §4.1). Out-of-range reads are a caller precondition violation, not a
// recoverable error, matching spec.md's "programming error" language.
type View struct {
	stat Statistic
	data []float32 // single-channel, row-major, length Width*Height
}

/*****************************************************************************************************************/

// New constructs a View from a raw buffer of the given element type and
// channel count, resolving the channel policy once so downstream reads
// never need to know about the original layout.
func New(raw interface{}, width, height, channels int, t ElementType, policy ChannelPolicy) (*View, error) {
	if width <= 0 || height <= 0 || channels <= 0 {
		return nil, perr.New(perr.Precondition, "imageview: non-positive dimensions")
	}

	if channels != 1 && channels != 3 {
		return nil, perr.New(perr.Precondition, "imageview: channel count must be 1 or 3")
	}

	samples, err := toFloat32Samples(raw, t)
	if err != nil {
		return nil, err
	}

	want := width * height * channels
	if len(samples) != want {
		return nil, perr.New(perr.Precondition, fmt.Sprintf("imageview: buffer holds %d samples, want %d", len(samples), want))
	}

	data := samples
	if channels == 3 {
		data, err = collapseChannels(samples, width, height, policy)
		if err != nil {
			return nil, err
		}
	}

	return &View{
		stat: newStatistic(width, height, 1, t),
		data: data,
	}, nil
}

/*****************************************************************************************************************/

func toFloat32Samples(raw interface{}, t ElementType) ([]float32, error) {
	switch v := raw.(type) {
	case []uint8:
		if t != U8 {
			return nil, perr.New(perr.Precondition, "imageview: buffer type does not match []uint8")
		}
		return widen(v, func(x uint8) float32 { return float32(x) }), nil
	case []int16:
		if t != I16 {
			return nil, perr.New(perr.Precondition, "imageview: buffer type does not match []int16")
		}
		return widen(v, func(x int16) float32 { return float32(x) }), nil
	case []uint16:
		if t != U16 {
			return nil, perr.New(perr.Precondition, "imageview: buffer type does not match []uint16")
		}
		return widen(v, func(x uint16) float32 { return float32(x) }), nil
	case []int32:
		if t != I32 {
			return nil, perr.New(perr.Precondition, "imageview: buffer type does not match []int32")
		}
		return widen(v, func(x int32) float32 { return float32(x) }), nil
	case []uint32:
		if t != U32 {
			return nil, perr.New(perr.Precondition, "imageview: buffer type does not match []uint32")
		}
		return widen(v, func(x uint32) float32 { return float32(x) }), nil
	case []float32:
		if t != F32 {
			return nil, perr.New(perr.Precondition, "imageview: buffer type does not match []float32")
		}
		out := make([]float32, len(v))
		copy(out, v)
		return out, nil
	case []float64:
		if t != F64 {
			return nil, perr.New(perr.Precondition, "imageview: buffer type does not match []float64")
		}
		return widen(v, func(x float64) float32 { return float32(x) }), nil
	default:
		return nil, perr.New(perr.Precondition, "imageview: unsupported buffer element type")
	}
}

/*****************************************************************************************************************/

func widen[T any](src []T, f func(T) float32) []float32 {
	out := make([]float32, len(src))
	for i, v := range src {
		out[i] = f(v)
	}
	return out
}

/*****************************************************************************************************************/

// collapseChannels resolves an interleaved RGB buffer to a single-channel
// f32 grid per the chosen policy. AVERAGE_RGB uses go-colorful's perceptual
// luminance weighting; INTEGRATED_RGB sums the three channels unweighted
// (the "integrated" = summed reading).
func collapseChannels(samples []float32, width, height int, policy ChannelPolicy) ([]float32, error) {
	out := make([]float32, width*height)

	switch policy {
	case RED, GREEN, BLUE:
		offset := 0
		switch policy {
		case GREEN:
			offset = 1
		case BLUE:
			offset = 2
		}
		for i := 0; i < width*height; i++ {
			out[i] = samples[i*3+offset]
		}

	case AVERAGE_RGB:
		for i := 0; i < width*height; i++ {
			r, g, b := samples[i*3], samples[i*3+1], samples[i*3+2]
			c := colorful.Color{R: clamp01(r), G: clamp01(g), B: clamp01(b)}
			_, y, _ := c.Xyz()
			out[i] = y * maxOf3(r, g, b, 1)
		}

	case INTEGRATED_RGB:
		for i := 0; i < width*height; i++ {
			out[i] = samples[i*3] + samples[i*3+1] + samples[i*3+2]
		}

	default:
		return nil, perr.New(perr.Precondition, "imageview: unknown channel policy")
	}

	return out, nil
}

/*****************************************************************************************************************/

func clamp01(v float32) float64 {
	f := float64(v)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

/*****************************************************************************************************************/

// maxOf3 rescales go-colorful's normalized [0,1] luminance back into the
// original sample's dynamic range, since sources are rarely already
// normalized to [0,1] (raw ADU counts, for instance).
func maxOf3(r, g, b float32, fallback float64) float32 {
	m := r
	if g > m {
		m = g
	}
	if b > m {
		m = b
	}
	if m <= 0 {
		return float32(fallback)
	}
	return m
}

/*****************************************************************************************************************/

// Stat returns the view's immutable description.
func (v *View) Stat() Statistic {
	return v.stat
}

/*****************************************************************************************************************/

// ReadPixel returns the f32 sample at (x, y). Out-of-range access is a
// caller precondition violation (spec.md §4.1) and panics rather than
// returning an error, matching the "programming error" classification.
func (v *View) ReadPixel(x, y int) float32 {
	if x < 0 || x >= v.stat.Width || y < 0 || y >= v.stat.Height {
		panic(fmt.Sprintf("imageview: pixel (%d,%d) out of range for %dx%d view", x, y, v.stat.Width, v.stat.Height))
	}
	return v.data[y*v.stat.Width+x]
}

/*****************************************************************************************************************/

// ReadRegion returns a freshly allocated, row-major copy of the w*h
// subregion anchored at (x, y).
func (v *View) ReadRegion(x, y, w, h int) []float32 {
	if x < 0 || y < 0 || w < 0 || h < 0 || x+w > v.stat.Width || y+h > v.stat.Height {
		panic(fmt.Sprintf("imageview: region (%d,%d,%d,%d) out of range for %dx%d view", x, y, w, h, v.stat.Width, v.stat.Height))
	}

	out := make([]float32, w*h)
	for row := 0; row < h; row++ {
		srcOff := (y+row)*v.stat.Width + x
		copy(out[row*w:(row+1)*w], v.data[srcOff:srcOff+w])
	}

	return out
}

/*****************************************************************************************************************/

// Downsample returns a new View over a freshly allocated buffer, mean-
// pooling non-overlapping d*d tiles (spec.md §3 "Downsample Factor"). The
// receiver is left unmodified. d==1 returns a copy of the receiver; d<=0 is
// a Precondition error.
func (v *View) Downsample(d int) (*View, error) {
	if d <= 0 {
		return nil, perr.New(perr.Precondition, "imageview: downsample factor must be positive")
	}

	if d == 1 {
		cp := make([]float32, len(v.data))
		copy(cp, v.data)
		return &View{stat: v.stat, data: cp}, nil
	}

	dw := (v.stat.Width + d - 1) / d
	dh := (v.stat.Height + d - 1) / d
	out := make([]float32, dw*dh)

	for ty := 0; ty < dh; ty++ {
		y0 := ty * d
		y1 := y0 + d
		if y1 > v.stat.Height {
			y1 = v.stat.Height
		}

		for tx := 0; tx < dw; tx++ {
			x0 := tx * d
			x1 := x0 + d
			if x1 > v.stat.Width {
				x1 = v.stat.Width
			}

			sum := float32(0)
			count := 0
			for y := y0; y < y1; y++ {
				rowOff := y * v.stat.Width
				for x := x0; x < x1; x++ {
					sum += v.data[rowOff+x]
					count++
				}
			}

			out[ty*dw+tx] = sum / float32(count)
		}
	}

	return &View{
		stat: newStatistic(dw, dh, 1, F32),
		data: out,
	}, nil
}

/*****************************************************************************************************************/

// DownsampleScale returns the multiplier a pixel-scale estimate (arcsec per
// pixel) must be scaled by after Downsample(d), per spec.md §3.
func DownsampleScale(d int) float64 {
	if d < 1 {
		d = 1
	}
	return float64(d)
}

/*****************************************************************************************************************/

// Raw returns the view's underlying single-channel f32 buffer. Callers must
// not mutate the returned slice in place; C3/C4 copy it into their own
// working buffers before subtracting the background.
func (v *View) Raw() []float32 {
	return v.data
}

/*****************************************************************************************************************/
