package cert

import (
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/youmark/pkcs8"
)

// PEM decoding errors.
var (
	ErrInvalidPEM       = errors.New("invalid PEM data")
	ErrNoCertificate    = errors.New("no certificate found in PEM data")
	ErrNoPrivateKey     = errors.New("no private key found in PEM data")
	ErrPasswordRequired = errors.New("private key requires password but no password configured")
)

// PasswordFunc supplies the password for an encrypted private key.
// It is invoked synchronously on the calling thread and must not block on
// I/O beyond returning the already-configured password.
type PasswordFunc func() ([]byte, error)

// FixedPassword returns a PasswordFunc that always supplies pw.
// A nil or empty pw behaves as "no password configured".
func FixedPassword(pw []byte) PasswordFunc {
	if len(pw) == 0 {
		return nil
	}
	return func() ([]byte, error) { return pw, nil }
}

// Scrub overwrites sensitive key material so it does not persist in
// readable memory once consumed.
func Scrub(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// DecodeCertPEM decodes the first PEM-encoded X.509 certificate in data.
func DecodeCertPEM(data []byte) (*x509.Certificate, error) {
	certs, err := DecodeCertsPEM(data)
	if err != nil {
		return nil, err
	}
	return certs[0], nil
}

// DecodeCertsPEM decodes all PEM-encoded X.509 certificates in data.
// Non-certificate blocks are skipped.
func DecodeCertsPEM(data []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	for len(data) > 0 {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse certificate: %w", err)
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, ErrNoCertificate
	}
	return certs, nil
}

// DecodeKeyPEM decodes a PEM-encoded private key. Plain PKCS#1, SEC1 and
// PKCS#8 keys are handled directly; legacy DEK-Info encrypted PEM and
// PBES2-encrypted PKCS#8 keys are decrypted with the supplied password.
// A password-protected key with a nil password function fails with
// ErrPasswordRequired.
func DecodeKeyPEM(data []byte, password PasswordFunc) (crypto.PrivateKey, error) {
	for len(data) > 0 {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}

		switch {
		case block.Type == "ENCRYPTED PRIVATE KEY":
			pw, err := requirePassword(password)
			if err != nil {
				return nil, err
			}
			key, err := pkcs8.ParsePKCS8PrivateKey(block.Bytes, pw)
			if err != nil {
				return nil, fmt.Errorf("failed to decrypt private key: %w", err)
			}
			return key, nil

		case x509.IsEncryptedPEMBlock(block):
			pw, err := requirePassword(password)
			if err != nil {
				return nil, err
			}
			der, err := x509.DecryptPEMBlock(block, pw)
			if err != nil {
				return nil, fmt.Errorf("failed to decrypt private key: %w", err)
			}
			key, err := parseKeyDER(block.Type, der)
			Scrub(der)
			return key, err

		case isKeyBlock(block.Type):
			return parseKeyDER(block.Type, block.Bytes)
		}
	}
	return nil, ErrNoPrivateKey
}

// X509KeyPair assembles a tls.Certificate from PEM certificate chain and
// key material, decrypting the key when needed. The first certificate
// block becomes the leaf.
func X509KeyPair(certPEM, keyPEM []byte, password PasswordFunc) (tls.Certificate, error) {
	certs, err := DecodeCertsPEM(certPEM)
	if err != nil {
		return tls.Certificate{}, err
	}

	key, err := DecodeKeyPEM(keyPEM, password)
	if err != nil {
		return tls.Certificate{}, err
	}

	chain := make([][]byte, len(certs))
	for i, c := range certs {
		chain[i] = c.Raw
	}

	return tls.Certificate{
		Certificate: chain,
		PrivateKey:  key,
		Leaf:        certs[0],
	}, nil
}

func requirePassword(password PasswordFunc) ([]byte, error) {
	if password == nil {
		return nil, ErrPasswordRequired
	}
	pw, err := password()
	if err != nil {
		return nil, fmt.Errorf("password callback failed: %w", err)
	}
	if len(pw) == 0 {
		return nil, ErrPasswordRequired
	}
	return pw, nil
}

func isKeyBlock(blockType string) bool {
	switch blockType {
	case "PRIVATE KEY", "RSA PRIVATE KEY", "EC PRIVATE KEY":
		return true
	default:
		return false
	}
}

func parseKeyDER(blockType string, der []byte) (crypto.PrivateKey, error) {
	switch blockType {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(der)
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA private key: %w", err)
		}
		return key, nil
	case "EC PRIVATE KEY":
		key, err := x509.ParseECPrivateKey(der)
		if err != nil {
			return nil, fmt.Errorf("failed to parse EC private key: %w", err)
		}
		return key, nil
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(der)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: unexpected block type %q", ErrInvalidPEM, blockType)
	}
}
