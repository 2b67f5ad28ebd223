package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/corvo-protocol/corvo-go/pkg/connection"
	"github.com/corvo-protocol/corvo-go/pkg/transport"
)

// Duration wraps time.Duration with YAML support for Go duration syntax.
type Duration time.Duration

// UnmarshalYAML decodes "30s" style strings and bare integers (seconds).
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	// An integer node decodes into a string without error, so the tag
	// decides which form this is.
	if value.Tag == "!!int" {
		var secs int64
		if err := value.Decode(&secs); err != nil {
			return fmt.Errorf("invalid duration on line %d", value.Line)
		}
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}

	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("invalid duration on line %d", value.Line)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the Go duration string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// BrokerConfig identifies the broker and bounds the dial.
type BrokerConfig struct {
	// Nodename is host or host:port; the default port is appended when
	// missing.
	Nodename string `yaml:"nodename"`

	// NodeID is the numeric broker node id, -1 when unknown.
	NodeID int32 `yaml:"node_id"`

	// ConnectTimeout bounds dial plus TLS handshake.
	ConnectTimeout Duration `yaml:"connect_timeout"`

	// MaxMessageSize caps framed messages in bytes.
	MaxMessageSize uint32 `yaml:"max_message_size"`
}

// TLSSection mirrors transport.TLSConfig for file-based settings.
type TLSSection struct {
	EnableVerify bool `yaml:"enable_verify"`

	// EndpointIdentification is "https" for hostname matching or "none".
	EndpointIdentification string `yaml:"endpoint_identification"`

	CipherSuites        string `yaml:"cipher_suites"`
	Curves              string `yaml:"curves"`
	SignatureAlgorithms string `yaml:"sigalgs"`

	CALocation       string `yaml:"ca_location"`
	CRLLocation      string `yaml:"crl_location"`
	CertLocation     string `yaml:"cert_location"`
	KeyLocation      string `yaml:"key_location"`
	KeyPassword      string `yaml:"key_password"`
	KeystoreLocation string `yaml:"keystore_location"`
	KeystorePassword string `yaml:"keystore_password"`
}

// KeepAliveSection configures ping/pong probing.
type KeepAliveSection struct {
	Enabled        bool     `yaml:"enabled"`
	PingInterval   Duration `yaml:"ping_interval"`
	PongTimeout    Duration `yaml:"pong_timeout"`
	MaxMissedPongs int      `yaml:"max_missed_pongs"`
}

// ReconnectSection configures automatic reconnection.
type ReconnectSection struct {
	Enabled        bool     `yaml:"enabled"`
	InitialBackoff Duration `yaml:"initial_backoff"`
	MaxBackoff     Duration `yaml:"max_backoff"`
}

// Config is the full client configuration file.
type Config struct {
	Broker    BrokerConfig     `yaml:"broker"`
	TLS       TLSSection       `yaml:"tls"`
	KeepAlive KeepAliveSection `yaml:"keepalive"`
	Reconnect ReconnectSection `yaml:"reconnect"`

	// LogFile receives protocol events as CBOR records when set.
	LogFile string `yaml:"log_file"`
}

// Default returns a configuration with verification on and the
// transport defaults filled in.
func Default() *Config {
	ka := transport.DefaultKeepAliveConfig()
	return &Config{
		Broker: BrokerConfig{
			NodeID:         -1,
			ConnectTimeout: Duration(30 * time.Second),
			MaxMessageSize: transport.DefaultMaxMessageSize,
		},
		TLS: TLSSection{
			EnableVerify:           true,
			EndpointIdentification: "https",
		},
		KeepAlive: KeepAliveSection{
			Enabled:        ka.Enabled,
			PingInterval:   Duration(ka.PingInterval),
			PongTimeout:    Duration(ka.PongTimeout),
			MaxMissedPongs: ka.MaxMissedPongs,
		},
		Reconnect: ReconnectSection{
			Enabled:        true,
			InitialBackoff: Duration(connection.InitialBackoff),
			MaxBackoff:     Duration(connection.MaxBackoff),
		},
	}
}

// Parse decodes YAML into a configuration on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	return Parse(data)
}

// Validate checks cross-field constraints the YAML schema cannot.
func (c *Config) Validate() error {
	if c.Broker.Nodename == "" {
		return fmt.Errorf("broker.nodename is required")
	}
	switch c.TLS.EndpointIdentification {
	case "", "none", "https":
	default:
		return fmt.Errorf("tls.endpoint_identification: unknown value %q", c.TLS.EndpointIdentification)
	}
	if (c.TLS.CertLocation == "") != (c.TLS.KeyLocation == "") && c.TLS.KeystoreLocation == "" {
		return fmt.Errorf("tls.cert_location and tls.key_location must be set together")
	}
	if c.Broker.ConnectTimeout < 0 {
		return fmt.Errorf("broker.connect_timeout must not be negative")
	}
	if c.Reconnect.InitialBackoff.Std() > c.Reconnect.MaxBackoff.Std() {
		return fmt.Errorf("reconnect.initial_backoff exceeds reconnect.max_backoff")
	}
	return nil
}

// TLSConfig converts the TLS section into transport settings.
func (c *Config) TLSConfig() *transport.TLSConfig {
	id := transport.IdentifyNone
	if c.TLS.EndpointIdentification == "https" {
		id = transport.IdentifyHostname
	}

	return &transport.TLSConfig{
		EnableVerify:           c.TLS.EnableVerify,
		EndpointIdentification: id,
		CipherSuites:           c.TLS.CipherSuites,
		Curves:                 c.TLS.Curves,
		SignatureAlgorithms:    c.TLS.SignatureAlgorithms,
		CALocation:             c.TLS.CALocation,
		CRLLocation:            c.TLS.CRLLocation,
		CertLocation:           c.TLS.CertLocation,
		KeyLocation:            c.TLS.KeyLocation,
		KeyPassword:            c.TLS.KeyPassword,
		KeystoreLocation:       c.TLS.KeystoreLocation,
		KeystorePassword:       c.TLS.KeystorePassword,
	}
}

// KeepAliveConfig converts the keepalive section.
func (c *Config) KeepAliveConfig() transport.KeepAliveConfig {
	ka := transport.KeepAliveConfig{
		Enabled:        c.KeepAlive.Enabled,
		PingInterval:   c.KeepAlive.PingInterval.Std(),
		PongTimeout:    c.KeepAlive.PongTimeout.Std(),
		MaxMissedPongs: c.KeepAlive.MaxMissedPongs,
	}
	def := transport.DefaultKeepAliveConfig()
	if ka.PingInterval <= 0 {
		ka.PingInterval = def.PingInterval
	}
	if ka.PongTimeout <= 0 {
		ka.PongTimeout = def.PongTimeout
	}
	if ka.MaxMissedPongs <= 0 {
		ka.MaxMissedPongs = def.MaxMissedPongs
	}
	return ka
}

// ClientConfig converts the file into a transport client configuration.
func (c *Config) ClientConfig() *transport.ClientConfig {
	return &transport.ClientConfig{
		TLS:            c.TLSConfig(),
		MaxMessageSize: c.Broker.MaxMessageSize,
		ConnectTimeout: c.Broker.ConnectTimeout.Std(),
		KeepAlive:      c.KeepAliveConfig(),
	}
}

// ConnectionConfig converts the file into per-connection settings.
func (c *Config) ConnectionConfig() transport.ConnectionConfig {
	cc := transport.DefaultConnectionConfig()
	if c.Broker.MaxMessageSize > 0 {
		cc.MaxMessageSize = c.Broker.MaxMessageSize
	}
	cc.KeepAlive = c.KeepAliveConfig()
	return cc
}

// SupervisorConfig converts the file into supervised connection settings.
func (c *Config) SupervisorConfig() connection.SupervisorConfig {
	return connection.SupervisorConfig{
		Nodename:         c.Broker.Nodename,
		NodeID:           c.Broker.NodeID,
		Connection:       c.ConnectionConfig(),
		ConnectTimeout:   c.Broker.ConnectTimeout.Std(),
		DisableReconnect: !c.Reconnect.Enabled,
		Backoff: connection.BackoffConfig{
			Initial: c.Reconnect.InitialBackoff.Std(),
			Max:     c.Reconnect.MaxBackoff.Std(),
		},
	}
}
