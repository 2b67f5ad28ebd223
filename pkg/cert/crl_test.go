package cert

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// testCA builds a self-signed issuing CA for CRL tests.
func testCA(t *testing.T) (*x509.Certificate, *ecdsa.PrivateKey) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "crl-test-ca"},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("failed to create CA certificate: %v", err)
	}
	ca, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("failed to parse CA certificate: %v", err)
	}
	return ca, key
}

// issueCert issues a leaf certificate with the given serial from the CA.
func issueCert(t *testing.T, ca *x509.Certificate, caKey *ecdsa.PrivateKey, serial int64) *x509.Certificate {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(serial),
		Subject:      pkix.Name{CommonName: "crl-test-leaf"},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, ca, &key.PublicKey, caKey)
	if err != nil {
		t.Fatalf("failed to issue certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("failed to parse certificate: %v", err)
	}
	return cert
}

func makeCRL(t *testing.T, ca *x509.Certificate, caKey *ecdsa.PrivateKey, revoked []int64, thisUpdate, nextUpdate time.Time) *x509.RevocationList {
	t.Helper()

	var entries []x509.RevocationListEntry
	for _, serial := range revoked {
		entries = append(entries, x509.RevocationListEntry{
			SerialNumber:   big.NewInt(serial),
			RevocationTime: time.Now(),
		})
	}
	template := &x509.RevocationList{
		Number:                    big.NewInt(1),
		ThisUpdate:                thisUpdate,
		NextUpdate:                nextUpdate,
		RevokedCertificateEntries: entries,
	}
	der, err := x509.CreateRevocationList(rand.Reader, template, ca, caKey)
	if err != nil {
		t.Fatalf("failed to create CRL: %v", err)
	}
	crl, err := x509.ParseRevocationList(der)
	if err != nil {
		t.Fatalf("failed to parse CRL: %v", err)
	}
	return crl
}

func TestCheckRevocation(t *testing.T) {
	ca, caKey := testCA(t)
	revokedCert := issueCert(t, ca, caKey, 42)
	okCert := issueCert(t, ca, caKey, 43)
	crl := makeCRL(t, ca, caKey, []int64{42}, time.Now(), time.Now().Add(time.Hour))

	if err := CheckRevocation([]*x509.Certificate{okCert, ca}, crl); err != nil {
		t.Errorf("CheckRevocation rejected a valid chain: %v", err)
	}

	err := CheckRevocation([]*x509.Certificate{revokedCert, ca}, crl)
	if !errors.Is(err, ErrRevoked) {
		t.Errorf("err = %v, want ErrRevoked", err)
	}
}

func TestCheckRevocationExpiredCRL(t *testing.T) {
	ca, caKey := testCA(t)
	cert := issueCert(t, ca, caKey, 1)
	// Both timestamps sit in the past so the CRL is valid at issue time
	// but stale now.
	crl := makeCRL(t, ca, caKey, nil, time.Now().Add(-2*time.Hour), time.Now().Add(-time.Hour))

	if err := CheckRevocation([]*x509.Certificate{cert, ca}, crl); !errors.Is(err, ErrCRLExpired) {
		t.Errorf("err = %v, want ErrCRLExpired", err)
	}
}

func TestCheckRevocationNilCRL(t *testing.T) {
	ca, caKey := testCA(t)
	cert := issueCert(t, ca, caKey, 1)

	if err := CheckRevocation([]*x509.Certificate{cert}, nil); err != nil {
		t.Errorf("nil CRL must be a no-op, got %v", err)
	}
}

func TestLoadCRL(t *testing.T) {
	ca, caKey := testCA(t)
	crl := makeCRL(t, ca, caKey, []int64{7}, time.Now(), time.Now().Add(time.Hour))

	dir := t.TempDir()

	derPath := filepath.Join(dir, "test.crl")
	if err := os.WriteFile(derPath, crl.Raw, 0644); err != nil {
		t.Fatalf("failed to write CRL: %v", err)
	}
	loaded, err := LoadCRL(derPath)
	if err != nil {
		t.Fatalf("LoadCRL(DER) failed: %v", err)
	}
	if len(loaded.RevokedCertificateEntries) != 1 {
		t.Errorf("revoked entries = %d, want 1", len(loaded.RevokedCertificateEntries))
	}

	pemPath := filepath.Join(dir, "test.crl.pem")
	pemData := pem.EncodeToMemory(&pem.Block{Type: "X509 CRL", Bytes: crl.Raw})
	if err := os.WriteFile(pemPath, pemData, 0644); err != nil {
		t.Fatalf("failed to write CRL: %v", err)
	}
	if _, err := LoadCRL(pemPath); err != nil {
		t.Fatalf("LoadCRL(PEM) failed: %v", err)
	}
}

func TestLoadCRLMissing(t *testing.T) {
	if _, err := LoadCRL(filepath.Join(t.TempDir(), "nope.crl")); err == nil {
		t.Error("LoadCRL succeeded on missing file")
	}
}
