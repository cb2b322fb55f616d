package imageio

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
)

// PNGWriter collects scanlines into an image and encodes it on Close
type PNGWriter struct {
	out     io.Writer
	img     *image.RGBA
	counter rowCounter
}

// NewPNGWriter creates a PNG writer for a width x height image
func NewPNGWriter(w io.Writer, width, height int) *PNGWriter {
	return &PNGWriter{
		out:     w,
		img:     image.NewRGBA(image.Rect(0, 0, width, height)),
		counter: rowCounter{width: width, height: height},
	}
}

func (p *PNGWriter) WriteScanline(pixels []color.RGBA) error {
	row := p.counter.rows
	if err := p.counter.accept(pixels); err != nil {
		return err
	}
	for x, c := range pixels {
		p.img.SetRGBA(x, row, c)
	}
	return nil
}

func (p *PNGWriter) Close() error {
	if p.counter.rows != p.counter.height {
		return fmt.Errorf("incomplete PNG image: %d of %d rows written", p.counter.rows, p.counter.height)
	}
	if err := png.Encode(p.out, p.img); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}
