package cert

import (
	"crypto/ecdsa"
	"crypto/x509"
	"path/filepath"
	"testing"
)

func TestLoadKeystore(t *testing.T) {
	pair, err := LoadKeystore(filepath.Join("testdata", "keystore.p12"), "sesame")
	if err != nil {
		t.Fatalf("LoadKeystore failed: %v", err)
	}

	if len(pair.Certificate) != 1 {
		t.Errorf("chain length = %d, want 1 (leaf only)", len(pair.Certificate))
	}
	if pair.Leaf == nil || pair.Leaf.Subject.CommonName != "corvo-client" {
		t.Errorf("unexpected leaf: %+v", pair.Leaf)
	}
	if _, ok := pair.PrivateKey.(*ecdsa.PrivateKey); !ok {
		t.Errorf("key type = %T, want *ecdsa.PrivateKey", pair.PrivateKey)
	}
}

func TestLoadKeystoreCertSurvivesScrub(t *testing.T) {
	// The returned DER must stay usable after the intermediate PEM
	// blocks are zeroed.
	pair, err := LoadKeystore(filepath.Join("testdata", "keystore.p12"), "sesame")
	if err != nil {
		t.Fatalf("LoadKeystore failed: %v", err)
	}

	reparsed, err := x509.ParseCertificate(pair.Certificate[0])
	if err != nil {
		t.Fatalf("returned certificate DER does not parse: %v", err)
	}
	if reparsed.Subject.CommonName != "corvo-client" {
		t.Errorf("reparsed leaf CN = %q, want %q", reparsed.Subject.CommonName, "corvo-client")
	}
	for i, b := range pair.Leaf.Raw {
		if b != 0 {
			break
		}
		if i == len(pair.Leaf.Raw)-1 {
			t.Error("Leaf.Raw is zero-filled")
		}
	}
}

func TestLoadKeystoreDiscardsChain(t *testing.T) {
	// The container bundles two CA certificates; only the leaf survives.
	pair, err := LoadKeystore(filepath.Join("testdata", "keystore_chain.p12"), "sesame")
	if err != nil {
		t.Fatalf("LoadKeystore failed: %v", err)
	}
	if len(pair.Certificate) != 1 {
		t.Errorf("chain length = %d, want 1 (CA chain must be discarded)", len(pair.Certificate))
	}
	if pair.Leaf == nil || pair.Leaf.Subject.CommonName != "corvo-client" {
		t.Errorf("unexpected leaf: %+v", pair.Leaf)
	}
}

func TestLoadKeystoreWrongPassword(t *testing.T) {
	if _, err := LoadKeystore(filepath.Join("testdata", "keystore.p12"), "wrong"); err == nil {
		t.Error("LoadKeystore succeeded with wrong password")
	}
}

func TestLoadKeystoreCorrupt(t *testing.T) {
	if _, err := LoadKeystore(filepath.Join("testdata", "keystore_corrupt.p12"), "sesame"); err == nil {
		t.Error("LoadKeystore accepted a corrupted container")
	}
}

func TestLoadKeystoreMissingFile(t *testing.T) {
	if _, err := LoadKeystore(filepath.Join("testdata", "nope.p12"), "sesame"); err == nil {
		t.Error("LoadKeystore succeeded on missing file")
	}
}
