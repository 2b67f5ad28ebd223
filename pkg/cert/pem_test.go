package cert

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func readTestdata(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to read testdata %s: %v", name, err)
	}
	return data
}

func TestDecodeCertPEM(t *testing.T) {
	data := readTestdata(t, "client_cert.pem")

	cert, err := DecodeCertPEM(data)
	if err != nil {
		t.Fatalf("DecodeCertPEM failed: %v", err)
	}
	if cert.Subject.CommonName != "corvo-client" {
		t.Errorf("CommonName = %q, want %q", cert.Subject.CommonName, "corvo-client")
	}
}

func TestDecodeCertsPEMBundle(t *testing.T) {
	data := readTestdata(t, "ca_bundle.pem")

	certs, err := DecodeCertsPEM(data)
	if err != nil {
		t.Fatalf("DecodeCertsPEM failed: %v", err)
	}
	if len(certs) != 2 {
		t.Fatalf("got %d certificates, want 2", len(certs))
	}
}

func TestDecodeCertsPEMInvalid(t *testing.T) {
	if _, err := DecodeCertsPEM([]byte("not pem at all")); !errors.Is(err, ErrNoCertificate) {
		t.Errorf("err = %v, want ErrNoCertificate", err)
	}
}

func TestDecodeKeyPEMPlain(t *testing.T) {
	data := readTestdata(t, "client_key.pem")

	key, err := DecodeKeyPEM(data, nil)
	if err != nil {
		t.Fatalf("DecodeKeyPEM failed: %v", err)
	}
	if _, ok := key.(*ecdsa.PrivateKey); !ok {
		t.Errorf("key type = %T, want *ecdsa.PrivateKey", key)
	}
}

func TestDecodeKeyPEMEncryptedPKCS8(t *testing.T) {
	data := readTestdata(t, "key_enc_pkcs8.pem")

	key, err := DecodeKeyPEM(data, FixedPassword([]byte("sesame")))
	if err != nil {
		t.Fatalf("DecodeKeyPEM failed: %v", err)
	}
	if _, ok := key.(*ecdsa.PrivateKey); !ok {
		t.Errorf("key type = %T, want *ecdsa.PrivateKey", key)
	}
}

func TestDecodeKeyPEMEncryptedLegacy(t *testing.T) {
	data := readTestdata(t, "key_enc_legacy.pem")

	key, err := DecodeKeyPEM(data, FixedPassword([]byte("sesame")))
	if err != nil {
		t.Fatalf("DecodeKeyPEM failed: %v", err)
	}
	if _, ok := key.(*rsa.PrivateKey); !ok {
		t.Errorf("key type = %T, want *rsa.PrivateKey", key)
	}
}

func TestDecodeKeyPEMMissingPassword(t *testing.T) {
	for _, name := range []string{"key_enc_pkcs8.pem", "key_enc_legacy.pem"} {
		t.Run(name, func(t *testing.T) {
			data := readTestdata(t, name)
			if _, err := DecodeKeyPEM(data, nil); !errors.Is(err, ErrPasswordRequired) {
				t.Errorf("err = %v, want ErrPasswordRequired", err)
			}
		})
	}
}

func TestDecodeKeyPEMWrongPassword(t *testing.T) {
	data := readTestdata(t, "key_enc_pkcs8.pem")
	if _, err := DecodeKeyPEM(data, FixedPassword([]byte("wrong"))); err == nil {
		t.Error("DecodeKeyPEM succeeded with wrong password")
	}
}

func TestX509KeyPair(t *testing.T) {
	certPEM := readTestdata(t, "client_cert.pem")
	keyPEM := readTestdata(t, "client_key.pem")

	pair, err := X509KeyPair(certPEM, keyPEM, nil)
	if err != nil {
		t.Fatalf("X509KeyPair failed: %v", err)
	}
	if len(pair.Certificate) != 1 {
		t.Errorf("chain length = %d, want 1", len(pair.Certificate))
	}
	if pair.Leaf == nil || pair.Leaf.Subject.CommonName != "corvo-client" {
		t.Errorf("unexpected leaf: %+v", pair.Leaf)
	}
}

func TestScrub(t *testing.T) {
	b := []byte("secret key material")
	Scrub(b)
	if !bytes.Equal(b, make([]byte, len(b))) {
		t.Error("Scrub did not zero the buffer")
	}
}

func TestFixedPasswordEmpty(t *testing.T) {
	if FixedPassword(nil) != nil {
		t.Error("FixedPassword(nil) should be nil")
	}
	if FixedPassword([]byte{}) != nil {
		t.Error("FixedPassword(empty) should be nil")
	}
}
