package io

import (
	"errors"

	"github.com/golang/glog"
	"golang.org/x/sys/unix"
)

// LogError logs a channel i/o error at a severity matching its cause:
// expected teardown errnos are noise, everything else is a warning.
func LogError(err error) {
	if err == nil {
		return
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		switch errno {
		case unix.ECONNRESET, unix.EPIPE, unix.ESHUTDOWN:
			glog.V(2).InfoDepth(1, err)
			return
		}
	}
	glog.WarningDepth(1, err)
}
