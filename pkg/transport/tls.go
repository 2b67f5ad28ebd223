package transport

import (
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/corvo-protocol/corvo-go/pkg/cert"
	"github.com/corvo-protocol/corvo-go/pkg/log"
	"github.com/corvo-protocol/corvo-go/pkg/version"
)

// Protocol constants for Corvo connections.
const (
	// ALPNProtocol is the ALPN identifier negotiated with brokers.
	ALPNProtocol = "corvo/1"

	// DefaultPort is the default Corvo broker port.
	DefaultPort = 9092
)

// Identification controls how the broker certificate is matched against
// the endpoint.
type Identification uint8

const (
	// IdentifyNone skips hostname matching; only the chain is verified.
	IdentifyNone Identification = iota

	// IdentifyHostname requires the certificate to cover the broker
	// hostname, or the address literal when the endpoint is numeric.
	IdentifyHostname
)

// TLSConfig configures the TLS context shared by all broker connections.
// When several certificate or key sources are set the later one in field
// order wins, with the keystore overriding everything.
type TLSConfig struct {
	// EnableVerify turns broker certificate verification on.
	EnableVerify bool

	// EndpointIdentification selects hostname matching.
	EndpointIdentification Identification

	// CipherSuites is a comma separated list of cipher suite names
	// applied to TLS 1.2 connections. TLS 1.3 suites are fixed by the
	// TLS stack.
	CipherSuites string

	// Curves is a comma separated list of key exchange curve names.
	Curves string

	// SignatureAlgorithms is a comma separated list of signature scheme
	// names. The list is validated and recorded; the handshake schedule
	// itself is managed by the TLS stack.
	SignatureAlgorithms string

	// CA is an in-memory trusted root pool. Takes precedence over
	// CALocation.
	CA *x509.CertPool

	// CALocation is a PEM file or a directory of PEM files holding
	// trusted roots.
	CALocation string

	// CRLLocation is a PEM or DER revocation list checked against the
	// verified chain.
	CRLLocation string

	// Certificate is an in-memory client certificate with private key.
	Certificate *tls.Certificate

	// CertLocation is a PEM file with the client certificate chain.
	CertLocation string

	// CertPEM is the client certificate chain as in-memory PEM.
	CertPEM []byte

	// KeyLocation is a PEM file with the client private key, possibly
	// encrypted with KeyPassword.
	KeyLocation string

	// KeyPEM is the client private key as in-memory PEM. The bytes are
	// wiped once the key has been installed.
	KeyPEM []byte

	// KeyPassword decrypts an encrypted private key.
	KeyPassword string

	// KeystoreLocation is a PKCS#12 bundle holding certificate and key,
	// unlocked with KeystorePassword. Only the first private key and the
	// leaf certificate are used; any bundled CA chain is ignored.
	KeystoreLocation string

	// KeystorePassword unlocks the keystore.
	KeystorePassword string

	// VerifyCallback lets the application accept or reject each broker
	// certificate after the built-in checks ran.
	VerifyCallback CertVerifyFunc

	// Logger receives security events (optional).
	Logger log.Logger
}

// Context is the immutable TLS context shared by broker sessions. Build
// it once with NewContext and release it with Close after the last
// session is gone.
type Context struct {
	base       *tls.Config
	roots      *x509.CertPool
	crl        *x509.RevocationList
	verify     bool
	endpointID Identification
	verifyCb   CertVerifyFunc
	sigalgs    []string
	logger     log.Logger

	closeOnce sync.Once
}

// NewContext validates cfg and assembles the shared TLS context. Any
// failure discards the partial context and reports which configuration
// step failed.
func NewContext(cfg *TLSConfig) (*Context, error) {
	if cfg == nil {
		return nil, errors.New("TLS configuration is required")
	}

	base := &tls.Config{
		MinVersion:             tls.VersionTLS12,
		NextProtos:             version.SupportedALPNProtocols(),
		SessionTicketsDisabled: true,
		CurvePreferences:       []tls.CurveID{tls.X25519, tls.CurveP256},
		// Chain verification runs in the session verifier so hostname
		// matching stays decoupled from SNI.
		InsecureSkipVerify: true,
	}

	if cfg.CipherSuites != "" {
		suites, err := parseCipherSuites(cfg.CipherSuites)
		if err != nil {
			return nil, fmt.Errorf("cipher suites: %w", err)
		}
		base.CipherSuites = suites
	}
	if cfg.Curves != "" {
		curves, err := parseCurves(cfg.Curves)
		if err != nil {
			return nil, fmt.Errorf("curves: %w", err)
		}
		base.CurvePreferences = curves
	}
	var sigalgs []string
	if cfg.SignatureAlgorithms != "" {
		parsed, err := parseSignatureAlgorithms(cfg.SignatureAlgorithms)
		if err != nil {
			return nil, fmt.Errorf("signature algorithms: %w", err)
		}
		sigalgs = parsed
	}

	ctx := &Context{
		base:       base,
		verify:     cfg.EnableVerify,
		endpointID: cfg.EndpointIdentification,
		verifyCb:   cfg.VerifyCallback,
		sigalgs:    sigalgs,
		logger:     cfg.Logger,
	}

	if err := ctx.loadRoots(cfg); err != nil {
		return nil, err
	}
	if cfg.CRLLocation != "" {
		crl, err := cert.LoadCRL(cfg.CRLLocation)
		if err != nil {
			return nil, fmt.Errorf("CRL location: %w", err)
		}
		ctx.crl = crl
	}

	clientCert, ok, err := loadClientCredentials(cfg)
	if err != nil {
		return nil, err
	}
	if ok {
		base.Certificates = []tls.Certificate{clientCert}
	}

	InitLibrary()
	return ctx, nil
}

// OpenSession wraps an established raw connection to the named broker in
// a TLS session. nodename carries an optional port suffix; an address
// literal hostname suppresses SNI but still participates in hostname
// matching. The session starts in CONNECTING and is advanced with
// DriveHandshake or Await.
func (c *Context) OpenSession(raw net.Conn, nodename string, nodeID int32) *Session {
	host := endpointHost(nodename)
	sni := ""
	if !isNumericHost(host) {
		sni = host
	}
	s := &Session{
		engine:     newConnEngine(raw, c.sessionConfig(host, sni, nodename, nodeID)),
		state:      SessionConnecting,
		wait:       WaitWritable,
		connID:     uuid.New().String(),
		broker:     nodename,
		nodeID:     nodeID,
		host:       host,
		serverName: sni,
		logger:     c.logger,
	}
	if addr := raw.RemoteAddr(); addr != nil {
		s.remoteAddr = addr.String()
	}
	s.logState(SessionInit, SessionConnecting, "")
	return s
}

// VerifyEnabled reports whether broker certificate verification is on.
func (c *Context) VerifyEnabled() bool {
	return c.verify
}

// SignatureAlgorithms returns the validated signature scheme names.
func (c *Context) SignatureAlgorithms() []string {
	return c.sigalgs
}

// Close releases the context. Sessions already opened keep working; the
// raw sockets they ride on are unaffected. Safe on nil and safe to call
// repeatedly.
func (c *Context) Close() {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() {
		for i := range c.base.Certificates {
			c.base.Certificates[i] = tls.Certificate{}
		}
		c.base.Certificates = nil
		c.roots = nil
		c.crl = nil
		TermLibrary()
	})
}

func (c *Context) sessionConfig(host, sni, nodename string, nodeID int32) *tls.Config {
	cfg := c.base.Clone()
	cfg.ServerName = sni
	if c.verify {
		cfg.VerifyPeerCertificate = newPeerVerifier(c, host, nodename, nodeID)
	}
	return cfg
}

// loadRoots resolves the trusted root pool: an in-memory pool wins over
// a configured location, which wins over the platform store. When none
// of those yields roots the TLS stack's compiled-in trust paths are
// used; that fallback is logged but not fatal.
func (c *Context) loadRoots(cfg *TLSConfig) error {
	switch {
	case cfg.CA != nil:
		c.roots = cfg.CA
	case cfg.CALocation != "":
		pool, err := cert.LoadCALocation(cfg.CALocation)
		if err != nil {
			return fmt.Errorf("CA location: %w", err)
		}
		c.roots = pool
	default:
		if pool, ok := cert.PlatformRoots(); ok {
			c.roots = pool
			return nil
		}
		c.securityEvent("platform trust store unavailable, using default certificate locations")
	}
	return nil
}

func (c *Context) securityEvent(msg string) {
	if c.logger == nil {
		return
	}
	c.logger.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerSecurity,
		Category:  log.CategorySecurity,
		Error: &log.ErrorEventData{
			Message: msg,
		},
	})
}

// loadClientCredentials assembles the client certificate from the
// configured sources. Certificate and key must pair up; the key bytes of
// an in-memory PEM source are wiped after a successful load.
func loadClientCredentials(cfg *TLSConfig) (tls.Certificate, bool, error) {
	var (
		chain [][]byte
		key   crypto.PrivateKey
	)

	if cfg.Certificate != nil {
		chain = cfg.Certificate.Certificate
		key = cfg.Certificate.PrivateKey
	}
	if cfg.CertLocation != "" {
		data, err := os.ReadFile(cfg.CertLocation)
		if err != nil {
			return tls.Certificate{}, false, fmt.Errorf("certificate location: %w", err)
		}
		certs, err := cert.DecodeCertsPEM(data)
		if err != nil {
			return tls.Certificate{}, false, fmt.Errorf("certificate location: %w", err)
		}
		chain = rawChain(certs)
	}
	if len(cfg.CertPEM) > 0 {
		certs, err := cert.DecodeCertsPEM(cfg.CertPEM)
		if err != nil {
			return tls.Certificate{}, false, fmt.Errorf("certificate PEM: %w", err)
		}
		chain = rawChain(certs)
	}

	password := cert.FixedPassword([]byte(cfg.KeyPassword))
	if cfg.KeyLocation != "" {
		data, err := os.ReadFile(cfg.KeyLocation)
		if err != nil {
			return tls.Certificate{}, false, fmt.Errorf("key location: %w", err)
		}
		k, err := cert.DecodeKeyPEM(data, password)
		if err != nil {
			return tls.Certificate{}, false, fmt.Errorf("key location: %w", err)
		}
		key = k
	}
	if len(cfg.KeyPEM) > 0 {
		k, err := cert.DecodeKeyPEM(cfg.KeyPEM, password)
		if err != nil {
			return tls.Certificate{}, false, fmt.Errorf("key PEM: %w", err)
		}
		cert.Scrub(cfg.KeyPEM)
		key = k
	}

	if cfg.KeystoreLocation != "" {
		bundle, err := cert.LoadKeystore(cfg.KeystoreLocation, cfg.KeystorePassword)
		if err != nil {
			return tls.Certificate{}, false, fmt.Errorf("keystore: %w", err)
		}
		chain = bundle.Certificate
		key = bundle.PrivateKey
	}

	if len(chain) == 0 && key == nil {
		return tls.Certificate{}, false, nil
	}
	if len(chain) == 0 || key == nil {
		return tls.Certificate{}, false, errors.New("private key check: certificate and key must both be configured")
	}
	clientCert := tls.Certificate{Certificate: chain, PrivateKey: key}
	if err := checkKeyPair(&clientCert); err != nil {
		return tls.Certificate{}, false, fmt.Errorf("private key check: %w", err)
	}
	return clientCert, true, nil
}

func rawChain(certs []*x509.Certificate) [][]byte {
	raw := make([][]byte, len(certs))
	for i, crt := range certs {
		raw[i] = crt.Raw
	}
	return raw
}

// checkKeyPair verifies that the private key matches the leaf
// certificate's public key and caches the parsed leaf.
func checkKeyPair(clientCert *tls.Certificate) error {
	leaf, err := x509.ParseCertificate(clientCert.Certificate[0])
	if err != nil {
		return err
	}
	signer, ok := clientCert.PrivateKey.(crypto.Signer)
	if !ok {
		return errors.New("private key does not implement crypto.Signer")
	}
	public, ok := leaf.PublicKey.(interface{ Equal(crypto.PublicKey) bool })
	if !ok {
		return errors.New("unsupported public key type")
	}
	if !public.Equal(signer.Public()) {
		return errors.New("private key does not match certificate")
	}
	clientCert.Leaf = leaf
	return nil
}

func parseCipherSuites(list string) ([]uint16, error) {
	byName := make(map[string]uint16)
	for _, suite := range tls.CipherSuites() {
		byName[suite.Name] = suite.ID
	}
	for _, suite := range tls.InsecureCipherSuites() {
		byName[suite.Name] = suite.ID
	}
	var ids []uint16
	for _, name := range splitList(list) {
		id, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown cipher suite %q", name)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("empty cipher suite list")
	}
	return ids, nil
}

var curveNames = map[string]tls.CurveID{
	"X25519": tls.X25519,
	"P-256":  tls.CurveP256,
	"P-384":  tls.CurveP384,
	"P-521":  tls.CurveP521,
}

func parseCurves(list string) ([]tls.CurveID, error) {
	var curves []tls.CurveID
	for _, name := range splitList(list) {
		id, ok := curveNames[name]
		if !ok {
			return nil, fmt.Errorf("unknown curve %q", name)
		}
		curves = append(curves, id)
	}
	if len(curves) == 0 {
		return nil, errors.New("empty curve list")
	}
	return curves, nil
}

var knownSignatureSchemes = []tls.SignatureScheme{
	tls.PKCS1WithSHA256,
	tls.PKCS1WithSHA384,
	tls.PKCS1WithSHA512,
	tls.PSSWithSHA256,
	tls.PSSWithSHA384,
	tls.PSSWithSHA512,
	tls.ECDSAWithP256AndSHA256,
	tls.ECDSAWithP384AndSHA384,
	tls.ECDSAWithP521AndSHA512,
	tls.Ed25519,
}

func parseSignatureAlgorithms(list string) ([]string, error) {
	byName := make(map[string]struct{}, len(knownSignatureSchemes))
	for _, scheme := range knownSignatureSchemes {
		byName[scheme.String()] = struct{}{}
	}
	var names []string
	for _, name := range splitList(list) {
		if _, ok := byName[name]; !ok {
			return nil, fmt.Errorf("unknown signature algorithm %q", name)
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, errors.New("empty signature algorithm list")
	}
	return names, nil
}

func splitList(list string) []string {
	var out []string
	for _, part := range strings.Split(list, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// VerifyTLS checks that a connection negotiated at least TLS 1.2.
func VerifyTLS(state tls.ConnectionState) error {
	if state.Version < tls.VersionTLS12 {
		return fmt.Errorf("TLS version %x is below TLS 1.2", state.Version)
	}
	return nil
}

// VerifyALPN checks the negotiated ALPN protocol. An empty protocol is
// accepted for brokers that do not speak ALPN.
func VerifyALPN(state tls.ConnectionState) error {
	if state.NegotiatedProtocol == "" {
		return nil
	}
	major, err := version.MajorFromALPN(state.NegotiatedProtocol)
	if err != nil {
		return fmt.Errorf("ALPN protocol %q is not %q", state.NegotiatedProtocol, ALPNProtocol)
	}
	current, _ := version.Parse(version.Current)
	if major != current.Major {
		return fmt.Errorf("ALPN protocol %q is not %q", state.NegotiatedProtocol, ALPNProtocol)
	}
	return nil
}

// VerifyConnection performs the standard post-handshake checks.
func VerifyConnection(state tls.ConnectionState) error {
	if err := VerifyTLS(state); err != nil {
		return err
	}
	return VerifyALPN(state)
}
