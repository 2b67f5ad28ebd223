// Command corvo-broker runs a development broker endpoint.
//
// The broker accepts TLS connections, answers keep-alive pings and
// echoes application messages back to the sender. It exists for
// integration testing and for probing clients against a live endpoint,
// not for production use.
//
// Usage:
//
//	corvo-broker [flags]
//
// Flags:
//
//	-listen string   Listen address (default ":9092")
//	-cert string     Server certificate (PEM)
//	-key string      Server private key (PEM)
//	-client-ca string Require client certificates signed by this CA
//	-self-signed     Generate an ephemeral self-signed certificate
//	-advertise string Announce the broker over mDNS under this instance name
//	-node-id int     Numeric broker node id for the announcement
//	-log string      Write protocol events to a CBOR log file
//
// Examples:
//
//	# Ephemeral broker for local testing
//	corvo-broker -self-signed -listen 127.0.0.1:9092
//
//	# Broker with mutual TLS
//	corvo-broker -cert broker.pem -key broker.key -client-ca ca.pem
package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"flag"
	"fmt"
	"math/big"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corvo-protocol/corvo-go/pkg/cert"
	"github.com/corvo-protocol/corvo-go/pkg/discovery"
	"github.com/corvo-protocol/corvo-go/pkg/log"
	"github.com/corvo-protocol/corvo-go/pkg/transport"
)

func main() {
	var (
		listen     = flag.String("listen", ":9092", "listen address")
		certFile   = flag.String("cert", "", "server certificate (PEM)")
		keyFile    = flag.String("key", "", "server private key (PEM)")
		clientCA   = flag.String("client-ca", "", "require client certificates signed by this CA")
		selfSigned = flag.Bool("self-signed", false, "generate an ephemeral self-signed certificate")
		advertise  = flag.String("advertise", "", "announce the broker over mDNS under this instance name")
		nodeID     = flag.Int("node-id", -1, "numeric broker node id for the announcement")
		logFile    = flag.String("log", "", "write protocol events to a CBOR log file")
	)
	flag.Parse()

	if err := run(*listen, *certFile, *keyFile, *clientCA, *selfSigned, *advertise, int32(*nodeID), *logFile); err != nil {
		fmt.Fprintf(os.Stderr, "corvo-broker: %v\n", err)
		os.Exit(1)
	}
}

func run(listen, certFile, keyFile, clientCA string, selfSigned bool, advertise string, nodeID int32, logFile string) error {
	serverCert, err := loadServerCert(certFile, keyFile, selfSigned)
	if err != nil {
		return err
	}

	var logger log.Logger = log.NoopLogger{}
	if logFile != "" {
		fl, err := log.NewFileLogger(logFile)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer fl.Close()
		logger = fl
	}

	config := transport.ServerConfig{
		Certificate: serverCert,
		Address:     listen,
		Logger:      logger,
		OnConnect: func(conn *transport.ServerConn) {
			fmt.Printf("connect %s from %s\n", conn.ConnID(), conn.RemoteAddr())
		},
		OnDisconnect: func(conn *transport.ServerConn) {
			fmt.Printf("disconnect %s\n", conn.ConnID())
		},
		OnMessage: func(conn *transport.ServerConn, msg []byte) {
			// Echo
			if err := conn.Send(msg); err != nil {
				fmt.Printf("echo to %s failed: %v\n", conn.ConnID(), err)
			}
		},
		OnError: func(conn *transport.ServerConn, err error) {
			fmt.Printf("error: %v\n", err)
		},
	}

	if clientCA != "" {
		pool, err := cert.LoadCALocation(clientCA)
		if err != nil {
			return fmt.Errorf("client CA: %w", err)
		}
		config.ClientCAs = pool
		config.RequireClientCert = true
	}

	srv, err := transport.NewServer(config)
	if err != nil {
		return err
	}
	if err := srv.Start(context.Background()); err != nil {
		return err
	}
	fmt.Printf("broker listening on %s\n", srv.Addr())

	if advertise != "" {
		adv := discovery.NewAdvertiser(discovery.AdvertiserConfig{})
		port := uint16(transport.DefaultPort)
		if tcp, ok := srv.Addr().(*net.TCPAddr); ok {
			port = uint16(tcp.Port)
		}
		err := adv.Advertise(&discovery.BrokerInfo{
			InstanceName: advertise,
			Port:         port,
			NodeID:       nodeID,
		})
		if err != nil {
			return fmt.Errorf("mDNS announcement: %w", err)
		}
		defer adv.Stop()
		fmt.Printf("announced as %q via mDNS\n", advertise)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	fmt.Println("shutting down")
	return srv.Stop()
}

func loadServerCert(certFile, keyFile string, selfSigned bool) (tls.Certificate, error) {
	if selfSigned {
		return generateSelfSigned()
	}
	if certFile == "" || keyFile == "" {
		return tls.Certificate{}, fmt.Errorf("need -cert and -key, or -self-signed")
	}
	c, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to load certificate: %w", err)
	}
	return c, nil
}

func generateSelfSigned() (tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, err
	}

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: "corvo-broker"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(30 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("::1")},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, err
	}

	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	fmt.Printf("ephemeral certificate:\n%s", pemBytes)

	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
	}, nil
}
