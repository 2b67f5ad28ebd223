// Command corvo-probe checks TLS connectivity to a Corvo broker.
//
// The probe dials the broker, runs the TLS handshake, verifies the
// broker certificate and prints the negotiated parameters. With -ping
// it also exchanges a keep-alive round trip, and with -watch it stays
// connected behind an interactive shell and reconnects with backoff
// after connection loss. -discover browses the local network for
// advertised brokers instead of connecting.
//
// Usage:
//
//	corvo-probe [flags]
//
// Flags:
//
//	-config string   Configuration file path (YAML)
//	-broker string   Broker address, host or host:port (overrides config)
//	-node-id int     Numeric broker node id (default -1)
//	-ca string       Trusted CA bundle (PEM file or directory)
//	-cert string     Client certificate (PEM)
//	-key string      Client private key (PEM)
//	-insecure        Disable broker certificate verification
//	-timeout duration Connect timeout (default 30s)
//	-ping            Send a ping and wait for the pong
//	-watch           Stay connected and reconnect on loss
//	-discover        Browse the local network for brokers
//	-log string      Write protocol events to a CBOR log file
//
// Examples:
//
//	# One-shot handshake check against a broker
//	corvo-probe -broker broker.example.com -ca /etc/corvo/ca.pem
//
//	# Mutual TLS with a ping round trip
//	corvo-probe -broker 10.0.0.5:9093 -ca ca.pem -cert client.pem -key client.key -ping
//
//	# Supervised connection from a config file
//	corvo-probe -config client.yaml -watch
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/corvo-protocol/corvo-go/cmd/corvo-probe/interactive"
	"github.com/corvo-protocol/corvo-go/pkg/config"
	"github.com/corvo-protocol/corvo-go/pkg/connection"
	"github.com/corvo-protocol/corvo-go/pkg/discovery"
	"github.com/corvo-protocol/corvo-go/pkg/log"
	"github.com/corvo-protocol/corvo-go/pkg/transport"
	"github.com/corvo-protocol/corvo-go/pkg/wire"
)

func main() {
	var (
		configFile = flag.String("config", "", "configuration file path (YAML)")
		broker     = flag.String("broker", "", "broker address, host or host:port")
		nodeID     = flag.Int("node-id", -1, "numeric broker node id")
		caFile     = flag.String("ca", "", "trusted CA bundle (PEM file or directory)")
		certFile   = flag.String("cert", "", "client certificate (PEM)")
		keyFile    = flag.String("key", "", "client private key (PEM)")
		insecure   = flag.Bool("insecure", false, "disable broker certificate verification")
		timeout    = flag.Duration("timeout", 0, "connect timeout (default from config, 30s)")
		ping       = flag.Bool("ping", false, "send a ping and wait for the pong")
		watch      = flag.Bool("watch", false, "stay connected and reconnect on loss")
		discover   = flag.Bool("discover", false, "browse the local network for brokers")
		logFile    = flag.String("log", "", "write protocol events to a CBOR log file")
	)
	flag.Parse()

	if *discover {
		if err := runDiscover(*timeout); err != nil {
			fmt.Fprintf(os.Stderr, "corvo-probe: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := buildConfig(*configFile, *broker, int32(*nodeID), *caFile, *certFile, *keyFile, *insecure, *timeout, *logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "corvo-probe: %v\n", err)
		os.Exit(2)
	}

	if err := run(cfg, *ping, *watch); err != nil {
		fmt.Fprintf(os.Stderr, "corvo-probe: %v\n", err)
		os.Exit(1)
	}
}

func buildConfig(path, broker string, nodeID int32, ca, cert, key string, insecure bool, timeout time.Duration, logFile string) (*config.Config, error) {
	var cfg *config.Config
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	if broker != "" {
		cfg.Broker.Nodename = broker
	}
	if nodeID != -1 {
		cfg.Broker.NodeID = nodeID
	}
	if ca != "" {
		cfg.TLS.CALocation = ca
	}
	if cert != "" {
		cfg.TLS.CertLocation = cert
	}
	if key != "" {
		cfg.TLS.KeyLocation = key
	}
	if insecure {
		cfg.TLS.EnableVerify = false
	}
	if timeout > 0 {
		cfg.Broker.ConnectTimeout = config.Duration(timeout)
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}

	if cfg.Broker.Nodename == "" {
		return nil, fmt.Errorf("no broker address, use -broker or a config file")
	}
	return cfg, cfg.Validate()
}

func run(cfg *config.Config, ping, watch bool) error {
	var logger log.Logger = log.NoopLogger{}
	if cfg.LogFile != "" {
		fl, err := log.NewFileLogger(cfg.LogFile)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer fl.Close()
		logger = fl
	}

	if watch {
		return runWatch(cfg, logger)
	}
	return runOnce(cfg, ping, logger)
}

func runOnce(cfg *config.Config, ping bool, logger log.Logger) error {
	clientCfg := cfg.ClientConfig()
	clientCfg.Logger = logger

	client, err := transport.NewClient(*clientCfg)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Broker.ConnectTimeout.Std())
	defer cancel()

	start := time.Now()
	conn, err := client.Connect(ctx, cfg.Broker.Nodename, cfg.Broker.NodeID)
	if err != nil {
		return err
	}
	defer conn.Close()

	printConnection(conn, time.Since(start))

	if ping {
		if err := pingPong(conn); err != nil {
			return err
		}
	}
	return nil
}

func printConnection(conn *transport.ClientConn, elapsed time.Duration) {
	state := conn.TLSState()
	fmt.Printf("connected to %s in %s\n", conn.RemoteAddr(), elapsed.Round(time.Millisecond))
	fmt.Printf("  connection id:  %s\n", conn.ConnID())
	fmt.Printf("  tls version:    %s\n", tls.VersionName(state.Version))
	fmt.Printf("  cipher suite:   %s\n", tls.CipherSuiteName(state.CipherSuite))
	fmt.Printf("  alpn protocol:  %s\n", orDash(state.NegotiatedProtocol))
	fmt.Printf("  sni sent:       %s\n", orDash(conn.Session().ServerName()))
	if len(state.PeerCertificates) > 0 {
		leaf := state.PeerCertificates[0]
		fmt.Printf("  broker subject: %s\n", leaf.Subject)
		fmt.Printf("  broker issuer:  %s\n", leaf.Issuer)
		fmt.Printf("  not after:      %s\n", leaf.NotAfter.Format(time.RFC3339))
	}
}

func pingPong(conn *transport.ClientConn) error {
	start := time.Now()
	if err := conn.SendPing(1); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	data, err := conn.Receive(5 * time.Second)
	if err != nil {
		return fmt.Errorf("no pong: %w", err)
	}
	msg, err := wire.DecodeControlMessage(data)
	if err != nil || msg.Type != wire.ControlPong {
		return fmt.Errorf("unexpected reply to ping")
	}
	fmt.Printf("  ping rtt:       %s\n", time.Since(start).Round(time.Microsecond))
	return nil
}

func runWatch(cfg *config.Config, logger log.Logger) error {
	tlsCfg := cfg.TLSConfig()
	tlsCfg.Logger = logger

	tlsCtx, err := transport.NewContext(tlsCfg)
	if err != nil {
		return fmt.Errorf("failed to create TLS context: %w", err)
	}
	defer tlsCtx.Close()

	supCfg := cfg.SupervisorConfig()
	supCfg.Logger = logger

	var shell *interactive.Shell
	sup := connection.NewSupervisor(tlsCtx, supCfg, func(msg []byte) {
		out := io.Writer(os.Stdout)
		if shell != nil {
			out = shell.Stdout()
		}
		fmt.Fprintf(out, "message: %q\n", msg)
	})
	defer sup.Close()

	startCtx, startCancel := context.WithTimeout(context.Background(), cfg.Broker.ConnectTimeout.Std())
	err = sup.Start(startCtx)
	startCancel()
	if err != nil {
		return err
	}
	fmt.Printf("connected to %s\n", cfg.Broker.Nodename)

	shell, err = interactive.New(sup, cfg.Broker.Nodename)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go shell.Run(ctx, cancel)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sig:
	case <-ctx.Done():
	}
	fmt.Println("shutting down")
	return nil
}

// runDiscover browses the local network for advertised brokers.
func runDiscover(timeout time.Duration) error {
	browser := discovery.NewBrowser(discovery.BrowserConfig{})
	defer browser.Stop()

	if timeout <= 0 {
		timeout = discovery.BrowseTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	brokers, err := browser.Browse(ctx)
	if err != nil {
		return err
	}

	found := 0
	for info := range brokers {
		found++
		fmt.Printf("%s\n", info.InstanceName)
		fmt.Printf("  address:  %s port %d\n", strings.Join(info.Addresses, ", "), info.Port)
		if info.NodeID >= 0 {
			fmt.Printf("  node id:  %d\n", info.NodeID)
		}
		if info.Version != "" {
			fmt.Printf("  version:  %s\n", info.Version)
		}
		if info.Cluster != "" {
			fmt.Printf("  cluster:  %s\n", info.Cluster)
		}
	}
	if found == 0 {
		return fmt.Errorf("no brokers found")
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
