package errs

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"syscall"
)

// FromNetErr classifies a stdlib error (typically returned by a net.Conn,
// os.File, or context) into a category Error. This is the one boundary
// where we lean on the standard library: no ecosystem package maps Go's
// portable error sentinels (net.Error, syscall.Errno, context errors) onto a
// custom taxonomy better than errors.Is/errors.As already do, so a hand
// rolled errno switch here is justified rather than adopting a dependency.
func FromNetErr(err error) *Error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return New(Timeout, err.Error())
	case errors.Is(err, context.Canceled):
		return New(Other, err.Error())
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return New(ConnectionClosed, err.Error())
	case errors.Is(err, syscall.ECONNREFUSED):
		return New(ConnectionRefused, err.Error())
	case errors.Is(err, syscall.ECONNRESET):
		return New(ConnectionReset, err.Error())
	case errors.Is(err, syscall.ECONNABORTED):
		return New(ConnectionAborted, err.Error())
	case errors.Is(err, syscall.ENETUNREACH), errors.Is(err, syscall.ENETDOWN):
		return New(NetworkUnreachable, err.Error())
	case errors.Is(err, syscall.EHOSTUNREACH), errors.Is(err, syscall.EHOSTDOWN):
		return New(HostUnreachable, err.Error())
	case errors.Is(err, syscall.EPIPE):
		return New(BrokenPipe, err.Error())
	case errors.Is(err, syscall.EAGAIN):
		return New(WouldBlock, err.Error())
	case errors.Is(err, syscall.EINTR):
		return New(Interrupted, err.Error())
	case errors.Is(err, syscall.EBUSY):
		return New(Busy, err.Error())
	case errors.Is(err, syscall.ETXTBSY):
		return New(TextBusy, err.Error())
	case errors.Is(err, os.ErrPermission):
		return New(PermissionDenied, err.Error())
	case errors.Is(err, os.ErrNotExist):
		return New(NotFound, err.Error())
	case errors.Is(err, syscall.ENOSPC):
		return New(NoSpace, err.Error())
	case errors.Is(err, syscall.EINVAL):
		return New(InvalidArgument, err.Error())
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return New(Timeout, err.Error())
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTemporary {
			return New(DNSTemporary, err.Error())
		}
		return New(DNSPermanent, err.Error())
	}

	return New(IO, err.Error())
}
