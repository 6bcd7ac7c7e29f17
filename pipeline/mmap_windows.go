//go:build windows

package pipeline

import (
	"errors"
	"os"
)

// mmapFile has no portable implementation on windows; callers fall back to
// ordinary buffered reads (see Options.DisableMmap's effect in pipeline.go).
func mmapFile(f *os.File) ([]byte, func() error, error) {
	return nil, nil, errors.New("pipeline: mmap unsupported on this platform")
}
