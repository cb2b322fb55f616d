package imageio

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"strings"
)

// ErrRowWidth is returned when a scanline does not match the image width
var ErrRowWidth = errors.New("scanline width does not match image width")

// ErrTooManyRows is returned when more scanlines arrive than the image height
var ErrTooManyRows = errors.New("image already has all its scanlines")

// Writer receives an image one scanline at a time, top row first.
// Close must be called once all rows are written.
type Writer interface {
	WriteScanline(pixels []color.RGBA) error
	Close() error
}

// Format names an output encoding
type Format string

const (
	FormatPPM Format = "ppm"
	FormatPNG Format = "png"
)

// ParseFormat resolves a format name, case-insensitively
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case FormatPPM, FormatPNG:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want ppm or png)", name)
	}
}

// NewWriter creates a writer for the given format
func NewWriter(format Format, w io.Writer, width, height int) (Writer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", width, height)
	}
	switch format {
	case FormatPPM:
		return NewPPMWriter(w, width, height), nil
	case FormatPNG:
		return NewPNGWriter(w, width, height), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// rowCounter tracks how many scanlines a writer has accepted
type rowCounter struct {
	width, height int
	rows          int
}

func (c *rowCounter) accept(pixels []color.RGBA) error {
	if len(pixels) != c.width {
		return fmt.Errorf("%w: got %d pixels, want %d", ErrRowWidth, len(pixels), c.width)
	}
	if c.rows >= c.height {
		return fmt.Errorf("%w: height %d", ErrTooManyRows, c.height)
	}
	c.rows++
	return nil
}
