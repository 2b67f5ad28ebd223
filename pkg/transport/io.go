package transport

import (
	"errors"
	"io"
	"net"
	"syscall"
)

// ioVerdict is the disposition of a failed TLS I/O primitive.
type ioVerdict uint8

const (
	// ioAgainReadable: retry once the socket is readable.
	ioAgainReadable ioVerdict = iota

	// ioAgainWritable: retry once the socket is writable.
	ioAgainWritable

	// ioDisconnected: the peer closed the connection.
	ioDisconnected

	// ioFailed: unrecoverable failure.
	ioFailed
)

// classifyIOError maps an error from a TLS primitive onto a verdict and
// a bounded reason string. A clean peer close in any of its shapes is
// reported as plain "Disconnected" so teardown reads the same
// everywhere; an OS-level socket error carries its strerror text.
func classifyIOError(err error) (ioVerdict, string) {
	var wb *WouldBlockError
	if errors.As(err, &wb) {
		if wb.Wait == WaitWritable {
			return ioAgainWritable, ""
		}
		return ioAgainReadable, ""
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return ioDisconnected, "Disconnected"
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return ioFailed, "transport error: " + describeError(err)
	}
	return ioFailed, describeError(err)
}
