package transport

import (
	"crypto/x509"
	"errors"
	"time"

	"github.com/corvo-protocol/corvo-go/pkg/cert"
)

// VerifyCode classifies why a broker certificate was rejected.
type VerifyCode int

const (
	// VerifyOK means no objection.
	VerifyOK VerifyCode = iota

	// VerifyNoCertificate means the broker presented no certificate.
	VerifyNoCertificate

	// VerifyExpired means a certificate in the chain is outside its
	// validity window.
	VerifyExpired

	// VerifyUnknownAuthority means the chain does not lead to a trusted
	// root.
	VerifyUnknownAuthority

	// VerifyHostnameMismatch means the certificate does not cover the
	// broker endpoint.
	VerifyHostnameMismatch

	// VerifyRevoked means a certificate in the chain is listed in the
	// configured CRL.
	VerifyRevoked

	// VerifyOther covers all remaining failures.
	VerifyOther
)

// String returns the verify code name.
func (c VerifyCode) String() string {
	switch c {
	case VerifyOK:
		return "OK"
	case VerifyNoCertificate:
		return "NO_CERTIFICATE"
	case VerifyExpired:
		return "EXPIRED"
	case VerifyUnknownAuthority:
		return "UNKNOWN_AUTHORITY"
	case VerifyHostnameMismatch:
		return "HOSTNAME_MISMATCH"
	case VerifyRevoked:
		return "REVOKED"
	default:
		return "OTHER"
	}
}

// VerifyStatus carries the pending verdict for one certificate into the
// application callback. The callback may overwrite Message to explain a
// rejection.
type VerifyStatus struct {
	Code    VerifyCode
	Message string
}

// CertVerifyFunc is the application hook invoked for every certificate
// the broker presented, root side first (depth counts down to 0 at the
// leaf). Returning false rejects the connection even when the built-in
// checks passed; returning true clears a pending non-fatal verdict.
type CertVerifyFunc func(broker string, nodeID int32, der []byte, depth int, status *VerifyStatus) bool

// VerificationError is the terminal result of broker certificate
// verification.
type VerificationError struct {
	Code   VerifyCode
	Reason string
}

// Error implements the error interface.
func (e *VerificationError) Error() string {
	if e.Code == VerifyNoCertificate {
		return "broker did not provide a certificate"
	}
	return "failed to verify broker certificate: " + e.Reason
}

// newPeerVerifier builds the per-session certificate verifier. host is
// the broker hostname used for matching (an address literal suppresses
// SNI but still participates here); nodename and nodeID identify the
// broker to the application callback.
func newPeerVerifier(c *Context, host, nodename string, nodeID int32) func([][]byte, [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if len(rawCerts) == 0 {
			return &VerificationError{Code: VerifyNoCertificate}
		}
		chain := make([]*x509.Certificate, 0, len(rawCerts))
		for _, der := range rawCerts {
			crt, err := x509.ParseCertificate(der)
			if err != nil {
				return &VerificationError{Code: VerifyOther, Reason: "bad certificate: " + describeError(err)}
			}
			chain = append(chain, crt)
		}
		leaf := chain[0]

		intermediates := x509.NewCertPool()
		for _, crt := range chain[1:] {
			intermediates.AddCert(crt)
		}
		opts := x509.VerifyOptions{
			Roots:         c.roots,
			Intermediates: intermediates,
			CurrentTime:   time.Now(),
			KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		}
		verified, verr := leaf.Verify(opts)
		if verr == nil && c.endpointID == IdentifyHostname {
			verr = leaf.VerifyHostname(host)
		}
		if verr == nil && c.crl != nil && len(verified) > 0 {
			verr = cert.CheckRevocation(verified[0], c.crl)
		}

		if c.verifyCb != nil {
			for depth := len(chain) - 1; depth >= 0; depth-- {
				status := &VerifyStatus{}
				if verr != nil {
					status.Code = verifyCode(verr)
					status.Message = describeError(verr)
				}
				if !c.verifyCb(nodename, nodeID, chain[depth].Raw, depth, status) {
					code := status.Code
					if code == VerifyOK {
						code = VerifyOther
					}
					reason := status.Message
					if reason == "" {
						reason = "rejected by application callback"
					}
					return &VerificationError{Code: code, Reason: reason}
				}
				// Accepted: a pending non-fatal verdict is cleared.
				verr = nil
			}
		}
		if verr != nil {
			return &VerificationError{Code: verifyCode(verr), Reason: describeError(verr)}
		}
		return nil
	}
}

func verifyCode(err error) VerifyCode {
	var (
		invalid   x509.CertificateInvalidError
		authority x509.UnknownAuthorityError
		hostname  x509.HostnameError
	)
	switch {
	case errors.As(err, &invalid):
		if invalid.Reason == x509.Expired {
			return VerifyExpired
		}
		return VerifyOther
	case errors.As(err, &authority):
		return VerifyUnknownAuthority
	case errors.As(err, &hostname):
		return VerifyHostnameMismatch
	case errors.Is(err, cert.ErrRevoked):
		return VerifyRevoked
	}
	return VerifyOther
}
