package transport

import "sync"

// The TLS stack needs no process-wide setup, but callers embedding the
// client next to other TLS users still want balanced init/term
// semantics. The reference count lets the last TermLibrary observe that
// all contexts are gone.
var (
	libMu   sync.Mutex
	libRefs int
)

// InitLibrary registers a user of the transport layer. Each call must be
// balanced by a TermLibrary call.
func InitLibrary() {
	libMu.Lock()
	defer libMu.Unlock()
	libRefs++
}

// TermLibrary releases a registration made by InitLibrary. Extra calls
// are ignored.
func TermLibrary() {
	libMu.Lock()
	defer libMu.Unlock()
	if libRefs > 0 {
		libRefs--
	}
}

func libraryRefs() int {
	libMu.Lock()
	defer libMu.Unlock()
	return libRefs
}
