package cert

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"
)

// CRL errors.
var (
	ErrCRLExpired = errors.New("CRL is past its next update time")
	ErrRevoked    = errors.New("certificate has been revoked")
)

// LoadCRL reads a certificate revocation list from a PEM or DER file.
func LoadCRL(path string) (*x509.RevocationList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("CRL location %s: %w", path, err)
	}

	if block, _ := pem.Decode(data); block != nil {
		if block.Type != "X509 CRL" {
			return nil, fmt.Errorf("CRL location %s: unexpected PEM block %q", path, block.Type)
		}
		data = block.Bytes
	}

	crl, err := x509.ParseRevocationList(data)
	if err != nil {
		return nil, fmt.Errorf("CRL location %s: %w", path, err)
	}
	return crl, nil
}

// CheckRevocation rejects any certificate in chain that the CRL lists as
// revoked. Only certificates issued by the CRL's issuer are checked; when
// that issuer is present in the chain, the CRL signature is verified
// against it first.
func CheckRevocation(chain []*x509.Certificate, crl *x509.RevocationList) error {
	if crl == nil || len(chain) == 0 {
		return nil
	}

	if !crl.NextUpdate.IsZero() && time.Now().After(crl.NextUpdate) {
		return ErrCRLExpired
	}

	for _, cert := range chain {
		if bytes.Equal(cert.RawSubject, crl.RawIssuer) {
			if err := crl.CheckSignatureFrom(cert); err != nil {
				return fmt.Errorf("CRL signature check failed: %w", err)
			}
			break
		}
	}

	for _, cert := range chain {
		if !bytes.Equal(cert.RawIssuer, crl.RawIssuer) {
			continue
		}
		for _, entry := range crl.RevokedCertificateEntries {
			if cert.SerialNumber.Cmp(entry.SerialNumber) == 0 {
				return fmt.Errorf("%w: subject=%s serial=%s",
					ErrRevoked, cert.Subject, cert.SerialNumber)
			}
		}
	}

	return nil
}
