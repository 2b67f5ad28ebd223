package cert

import (
	"crypto/x509"
)

// PlatformRoots loads the platform's native root certificates.
//
// The second return value reports whether any roots were available. An
// unavailable or empty platform store is a soft failure: callers are
// expected to fall back to the library default trust paths rather than
// fail the connection handle. Platforms without a usable native store
// report (nil, false) deterministically.
func PlatformRoots() (*x509.CertPool, bool) {
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		return nil, false
	}
	if pool.Equal(x509.NewCertPool()) {
		return nil, false
	}
	return pool, true
}
