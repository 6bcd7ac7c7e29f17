//go:build !windows

package pipeline

import (
	"os"

	"golang.org/x/sys/unix"
)

// mmapFile maps the whole of f for reading (C8's mmap-per-window path,
// applied here to the whole file since jqstream's windows are a processing
// granularity, not a separate mapping per window). The returned closer must
// be called once the bytes are no longer needed.
func mmapFile(f *os.File) ([]byte, func() error, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	size := info.Size()
	if size == 0 {
		return nil, func() error { return nil }, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}
	return data, func() error { return unix.Munmap(data) }, nil
}
