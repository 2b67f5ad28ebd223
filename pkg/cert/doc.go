// Package cert loads certificate and key material for broker TLS connections.
//
// Material can come from several sources: PEM bytes already in memory, PEM
// files or hashed-certificate directories, PKCS#12 keystores, the platform
// trust store, and CRL files. Loaders return standard crypto/tls and
// crypto/x509 objects; policy (which source wins, verification mode) lives
// in the transport package.
package cert
