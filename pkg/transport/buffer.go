package transport

// ByteSource yields the readable bytes of an outgoing buffer as
// contiguous chunks. Implementations need not be safe for concurrent
// use.
type ByteSource interface {
	// Peek returns the next contiguous chunk. An empty slice means the
	// source is exhausted.
	Peek() []byte

	// Advance consumes n bytes of the current chunk. Advancing past the
	// end of the chunk is a programming error and panics.
	Advance(n int)
}

// ByteSink exposes the writable regions of an incoming buffer.
type ByteSink interface {
	// Writable returns the next contiguous writable region. An empty
	// slice means the sink is full.
	Writable() []byte

	// Commit marks the first n bytes of the current region as filled.
	Commit(n int)
}

// Slice is a ByteSource over one or more byte segments. Segments are
// consumed in order without copying.
type Slice struct {
	segs [][]byte
	off  int
}

// NewSlice creates a source over the given segments.
func NewSlice(segs ...[]byte) *Slice {
	return &Slice{segs: segs}
}

// Peek returns the unread remainder of the current segment.
func (s *Slice) Peek() []byte {
	for len(s.segs) > 0 && s.off == len(s.segs[0]) {
		s.segs = s.segs[1:]
		s.off = 0
	}
	if len(s.segs) == 0 {
		return nil
	}
	return s.segs[0][s.off:]
}

// Advance consumes n bytes of the current segment.
func (s *Slice) Advance(n int) {
	if n > len(s.Peek()) {
		panic("transport: Advance past end of current chunk")
	}
	s.off += n
}

// Remaining returns the number of unread bytes across all segments.
func (s *Slice) Remaining() int {
	total := -s.off
	for _, seg := range s.segs {
		total += len(seg)
	}
	if total < 0 {
		return 0
	}
	return total
}

// Buffer is a ByteSink over a single contiguous region.
type Buffer struct {
	buf  []byte
	used int
}

// NewBuffer creates a sink with the given capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{buf: make([]byte, capacity)}
}

// WrapBuffer creates a sink that fills the caller's slice in place.
func WrapBuffer(p []byte) *Buffer {
	return &Buffer{buf: p}
}

// Writable returns the unfilled remainder of the region.
func (b *Buffer) Writable() []byte {
	return b.buf[b.used:]
}

// Commit marks n bytes as filled.
func (b *Buffer) Commit(n int) {
	if n > len(b.buf)-b.used {
		panic("transport: Commit past end of writable region")
	}
	b.used += n
}

// Bytes returns the filled portion of the region.
func (b *Buffer) Bytes() []byte {
	return b.buf[:b.used]
}

// Len returns the number of filled bytes.
func (b *Buffer) Len() int {
	return b.used
}

// Reset marks the whole region writable again.
func (b *Buffer) Reset() {
	b.used = 0
}
