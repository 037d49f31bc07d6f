// SPDX-License-Identifier: MIT

package fetch

import (
	"errors"
	"os"
	"syscall"
)

// RetryableStatus reports whether an HTTP status code is worth retrying.
// 5xx is server-side transient, 429 rate limiting, 408 request timeout and
// 425 too-early; every other non-success code is terminal.
func RetryableStatus(code int) bool {
	switch code {
	case 408, 425, 429:
		return true
	}
	return code >= 500
}

// ClassifyTransfer classifies the error of a transfer attempt that failed
// before or at the HTTP response stage. Classification is total: every
// error maps to exactly one class.
func ClassifyTransfer(err error) Outcome {
	var se *StatusError
	if errors.As(err, &se) {
		return Outcome{
			Class:     ClassHTTPStatus,
			Status:    se.Code,
			Retryable: RetryableStatus(se.Code),
			Err:       err,
		}
	}
	// No response at all: connection, DNS or TLS failure.
	return Outcome{Class: ClassTransport, Retryable: true, Err: err}
}

// ClassifyWrite classifies a filesystem error raised while reading the
// response body or publishing the payload.
func ClassifyWrite(err error) Outcome {
	return Outcome{Class: ClassLocalIO, Retryable: retryableIO(err), Err: err}
}

// retryableIO reports whether a local I/O failure is plausibly transient on
// the host. Conditions that cannot self-resolve (no space, quota, path
// shape errors, read-only filesystem) are terminal; interrupted syscalls,
// would-block, timeouts, permission errors (file locks and AV scanners
// release them) and anything unclassified are retried.
func retryableIO(err error) bool {
	for _, terminal := range []error{
		syscall.ENOSPC,
		syscall.EDQUOT,
		syscall.ENAMETOOLONG,
		syscall.ENOTDIR,
		syscall.EISDIR,
		syscall.EROFS,
		os.ErrNotExist,
		os.ErrInvalid,
	} {
		if errors.Is(err, terminal) {
			return false
		}
	}
	return true
}
