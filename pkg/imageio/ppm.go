package imageio

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"strconv"
)

// PPMWriter streams a plain-text (P3) PPM image.
// Each row is encoded as soon as it arrives, so output can start before the
// render finishes.
type PPMWriter struct {
	out     *bufio.Writer
	counter rowCounter
	header  bool
	line    []byte
}

// NewPPMWriter creates a P3 writer for a width x height image
func NewPPMWriter(w io.Writer, width, height int) *PPMWriter {
	return &PPMWriter{
		out:     bufio.NewWriter(w),
		counter: rowCounter{width: width, height: height},
	}
}

func (p *PPMWriter) writeHeader() error {
	if p.header {
		return nil
	}
	p.header = true
	_, err := fmt.Fprintf(p.out, "P3\n%d %d\n255\n", p.counter.width, p.counter.height)
	return err
}

// WriteScanline encodes one row as "R G B" lines, one per pixel
func (p *PPMWriter) WriteScanline(pixels []color.RGBA) error {
	if err := p.counter.accept(pixels); err != nil {
		return err
	}
	if err := p.writeHeader(); err != nil {
		return fmt.Errorf("failed to write PPM header: %w", err)
	}

	for _, c := range pixels {
		p.line = p.line[:0]
		p.line = strconv.AppendUint(p.line, uint64(c.R), 10)
		p.line = append(p.line, ' ')
		p.line = strconv.AppendUint(p.line, uint64(c.G), 10)
		p.line = append(p.line, ' ')
		p.line = strconv.AppendUint(p.line, uint64(c.B), 10)
		p.line = append(p.line, '\n')
		if _, err := p.out.Write(p.line); err != nil {
			return fmt.Errorf("failed to write PPM pixel: %w", err)
		}
	}
	return nil
}

// Close flushes buffered output. Missing rows are an error.
func (p *PPMWriter) Close() error {
	if err := p.writeHeader(); err != nil {
		return fmt.Errorf("failed to write PPM header: %w", err)
	}
	if err := p.out.Flush(); err != nil {
		return fmt.Errorf("failed to flush PPM output: %w", err)
	}
	if p.counter.rows != p.counter.height {
		return fmt.Errorf("incomplete PPM image: %d of %d rows written", p.counter.rows, p.counter.height)
	}
	return nil
}
