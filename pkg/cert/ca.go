package cert

import (
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"
)

// LoadCALocation loads CA certificates from a file or directory path into
// a new certificate pool. A file is treated as a PEM bundle; a directory
// is scanned and every regular file in it is parsed as PEM certificates
// (the hashed-directory layout used by TLS libraries). Errors carry the
// offending path.
func LoadCALocation(path string) (*x509.CertPool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("CA location %s: %w", path, err)
	}

	pool := x509.NewCertPool()

	if !info.IsDir() {
		if err := appendCAFile(pool, path); err != nil {
			return nil, err
		}
		return pool, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("CA location %s: %w", path, err)
	}

	loaded := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		// Non-certificate files in the directory are skipped, matching
		// on-demand lookup in hashed cert directories.
		if err := appendCAFile(pool, filepath.Join(path, entry.Name())); err != nil {
			continue
		}
		loaded++
	}
	if loaded == 0 {
		return nil, fmt.Errorf("CA location %s: no certificates found in directory", path)
	}

	return pool, nil
}

func appendCAFile(pool *x509.CertPool, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("CA location %s: %w", path, err)
	}
	if !pool.AppendCertsFromPEM(data) {
		return fmt.Errorf("CA location %s: no certificates in PEM data", path)
	}
	return nil
}
