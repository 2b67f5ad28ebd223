package transport

import "testing"

func TestLibraryRefcount(t *testing.T) {
	before := libraryRefs()

	InitLibrary()
	InitLibrary()
	if got := libraryRefs(); got != before+2 {
		t.Errorf("refs = %d, want %d", got, before+2)
	}

	TermLibrary()
	if got := libraryRefs(); got != before+1 {
		t.Errorf("refs after one term = %d, want %d", got, before+1)
	}

	TermLibrary()
	if got := libraryRefs(); got != before {
		t.Errorf("refs after balanced terms = %d, want %d", got, before)
	}
}

func TestTermLibraryExtraCallsIgnored(t *testing.T) {
	before := libraryRefs()
	for i := 0; i < 3+before; i++ {
		TermLibrary()
	}
	if got := libraryRefs(); got != 0 {
		t.Errorf("refs = %d, want 0", got)
	}
	// Restore the balance for other tests.
	for i := 0; i < before; i++ {
		InitLibrary()
	}
}
