package pool

import (
	"bufio"
	"io"
	"sync"
)

// DefaultWriterSize is the buffer size of pooled writers.
const DefaultWriterSize = 4096

// Writer is a strongly typed wrapper around a sync.Pool for *bufio.Writer.
type Writer struct {
	p sync.Pool
}

// NewWriter returns a pool of writers with size byte buffers.
func NewWriter(size int) *Writer {
	if size <= 0 {
		size = DefaultWriterSize
	}
	return &Writer{
		p: sync.Pool{
			New: func() interface{} {
				return bufio.NewWriterSize(nil, size)
			},
		},
	}
}

// Get returns a writer that buffers into w.
func (p *Writer) Get(w io.Writer) *bufio.Writer {
	bw := p.p.Get().(*bufio.Writer)
	bw.Reset(w)
	return bw
}

// Put returns bw to the pool. Anything still buffered is dropped, flush first.
func (p *Writer) Put(bw *bufio.Writer) {
	bw.Reset(nil)
	p.p.Put(bw)
}
