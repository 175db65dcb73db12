package io

import (
	"golang.org/x/sys/unix"
)

// FD owns a descriptor received over the command channel. Ownership is
// move-only: a handler that keeps the descriptor calls Release, every
// other path calls Close. Construct with NewFD or InvalidFD; the zero
// struct wraps descriptor 0 and is not the no-descriptor value.
type FD struct {
	fd int
}

func NewFD(raw int) FD {
	if raw < 0 {
		raw = -1
	}
	return FD{fd: raw}
}

func InvalidFD() FD {
	return FD{fd: -1}
}

func (f *FD) IsValid() bool {
	return f.fd >= 0
}

// Release moves the raw descriptor out; the FD becomes invalid and will
// not close it.
func (f *FD) Release() int {
	fd := f.fd
	f.fd = -1
	return fd
}

// Close closes the descriptor if still owned. Safe after Release.
func (f *FD) Close() {
	if f.fd >= 0 {
		unix.Close(f.fd)
		f.fd = -1
	}
}
