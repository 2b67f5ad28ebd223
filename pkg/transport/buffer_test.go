package transport

import (
	"bytes"
	"testing"
)

func TestSliceSingleSegment(t *testing.T) {
	s := NewSlice([]byte("hello"))

	if got := s.Remaining(); got != 5 {
		t.Errorf("Remaining = %d, want 5", got)
	}
	if got := s.Peek(); !bytes.Equal(got, []byte("hello")) {
		t.Errorf("Peek = %q, want %q", got, "hello")
	}

	s.Advance(2)
	if got := s.Peek(); !bytes.Equal(got, []byte("llo")) {
		t.Errorf("Peek after Advance = %q, want %q", got, "llo")
	}

	s.Advance(3)
	if got := s.Peek(); len(got) != 0 {
		t.Errorf("Peek after full consume = %q, want empty", got)
	}
	if got := s.Remaining(); got != 0 {
		t.Errorf("Remaining after full consume = %d, want 0", got)
	}
}

func TestSliceMultiSegment(t *testing.T) {
	s := NewSlice([]byte("ab"), nil, []byte("cde"))

	if got := s.Remaining(); got != 5 {
		t.Errorf("Remaining = %d, want 5", got)
	}

	var out []byte
	for {
		chunk := s.Peek()
		if len(chunk) == 0 {
			break
		}
		out = append(out, chunk[0])
		s.Advance(1)
	}
	if !bytes.Equal(out, []byte("abcde")) {
		t.Errorf("consumed %q, want %q", out, "abcde")
	}
}

func TestSliceAdvancePastChunkPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on Advance past chunk end")
		}
	}()
	s := NewSlice([]byte("ab"))
	s.Advance(3)
}

func TestBuffer(t *testing.T) {
	b := NewBuffer(8)

	if got := len(b.Writable()); got != 8 {
		t.Errorf("Writable length = %d, want 8", got)
	}

	copy(b.Writable(), "abc")
	b.Commit(3)

	if got := b.Len(); got != 3 {
		t.Errorf("Len = %d, want 3", got)
	}
	if got := len(b.Writable()); got != 5 {
		t.Errorf("Writable length after commit = %d, want 5", got)
	}
	if got := b.Bytes(); !bytes.Equal(got, []byte("abc")) {
		t.Errorf("Bytes = %q, want %q", got, "abc")
	}

	b.Reset()
	if got := b.Len(); got != 0 {
		t.Errorf("Len after Reset = %d, want 0", got)
	}
}

func TestBufferCommitPastRegionPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on Commit past region end")
		}
	}()
	b := NewBuffer(2)
	b.Commit(3)
}

func TestWrapBuffer(t *testing.T) {
	backing := make([]byte, 4)
	b := WrapBuffer(backing)

	copy(b.Writable(), "hi")
	b.Commit(2)

	if !bytes.Equal(backing[:2], []byte("hi")) {
		t.Errorf("backing slice = %q, want %q", backing[:2], "hi")
	}
}
