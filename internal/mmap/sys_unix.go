//go:build unix

package mmap

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

var madvice = [...]int{
	AccessNormal:     unix.MADV_NORMAL,
	AccessSequential: unix.MADV_SEQUENTIAL,
	AccessRandom:     unix.MADV_RANDOM,
	AccessWillNeed:   unix.MADV_WILLNEED,
	AccessDontNeed:   unix.MADV_DONTNEED,
}

func mapFile(f *os.File, n int) ([]byte, func() error, error) {
	b, err := unix.Mmap(int(f.Fd()), 0, n, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}
	return b, func() error { return unix.Munmap(b) }, nil
}

func advise(b []byte, p AccessPattern) error {
	if len(b) == 0 || int(p) >= len(madvice) {
		return nil
	}
	// Regions rarely start on a page boundary; the kernel rejects those.
	if err := unix.Madvise(b, madvice[p]); err != nil && !errors.Is(err, unix.EINVAL) {
		return err
	}
	return nil
}
