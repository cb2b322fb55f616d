package renderer

import (
	"io"
	"log"
	"os"

	"github.com/milkru/go-tracer/pkg/core"
)

// NewDefaultLogger creates a logger writing to stderr, leaving stdout free
// for image data
func NewDefaultLogger() core.Logger {
	return NewWriterLogger(os.Stderr)
}

// NewWriterLogger creates a logger writing to w
func NewWriterLogger(w io.Writer) core.Logger {
	return log.New(w, "", log.LstdFlags)
}

// NopLogger discards all output
type NopLogger struct{}

func (NopLogger) Printf(format string, args ...interface{}) {}
