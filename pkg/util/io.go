package util

import (
	"io"
)

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// NopWriteCloser adds a Close method that does nothing to w.
func NopWriteCloser(w io.Writer) io.WriteCloser {
	return nopWriteCloser{w}
}

// DiscardCloser swallows writes and closes. It stands in for the input of a process that never started.
var DiscardCloser io.WriteCloser = nopWriteCloser{io.Discard}
