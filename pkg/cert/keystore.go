package cert

import (
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/pkcs12"
)

// Keystore errors.
var (
	ErrKeystoreNoKey       = errors.New("keystore contains no private key")
	ErrKeystoreNoCert      = errors.New("keystore contains no certificate")
	ErrKeystoreWrongFormat = errors.New("keystore key has multiple private keys")
)

// LoadKeystore reads a PKCS#12 keystore file and extracts exactly one
// private key and one leaf certificate as a tls.Certificate. Any bundled
// CA chain in the container is discarded; CA trust is managed separately.
// Sensitive intermediate material is scrubbed on every exit path.
func LoadKeystore(path, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to open keystore %s: %w", path, err)
	}

	blocks, err := pkcs12.ToPEM(data, password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to parse PKCS#12 file %s: %w", path, err)
	}
	// Only key material is secret. The certificate DER must survive the
	// scrub: x509.ParseCertificate aliases its input as Certificate.Raw,
	// so the leaf is parsed from a private copy.
	defer func() {
		for _, block := range blocks {
			if block.Type == "PRIVATE KEY" {
				Scrub(block.Bytes)
			}
		}
	}()

	var (
		key  crypto.PrivateKey
		leaf *x509.Certificate
	)
	for _, block := range blocks {
		switch block.Type {
		case "PRIVATE KEY":
			if key != nil {
				return tls.Certificate{}, fmt.Errorf("keystore %s: %w", path, ErrKeystoreWrongFormat)
			}
			key, err = parseKeystoreKey(block.Bytes)
			if err != nil {
				return tls.Certificate{}, fmt.Errorf("keystore %s: %w", path, err)
			}
		case "CERTIFICATE":
			if leaf != nil {
				// Trailing certificates are the bundled CA chain.
				continue
			}
			der := make([]byte, len(block.Bytes))
			copy(der, block.Bytes)
			leaf, err = x509.ParseCertificate(der)
			if err != nil {
				return tls.Certificate{}, fmt.Errorf("keystore %s: %w", path, err)
			}
		}
	}

	if key == nil {
		return tls.Certificate{}, fmt.Errorf("keystore %s: %w", path, ErrKeystoreNoKey)
	}
	if leaf == nil {
		return tls.Certificate{}, fmt.Errorf("keystore %s: %w", path, ErrKeystoreNoCert)
	}

	return tls.Certificate{
		Certificate: [][]byte{leaf.Raw},
		PrivateKey:  key,
		Leaf:        leaf,
	}, nil
}

// parseKeystoreKey parses a key extracted from a PKCS#12 safe bag. The
// container encodes keys as PKCS#8; older tooling may produce PKCS#1 or
// SEC1 bags, so those are tried as fallbacks.
func parseKeystoreKey(der []byte) (crypto.PrivateKey, error) {
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	return nil, errors.New("unsupported private key format")
}
