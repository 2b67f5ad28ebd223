// Package config loads client configuration from YAML.
//
// A configuration file maps onto the transport and connection settings:
//
//	broker:
//	  nodename: broker.example.com:9092
//	  connect_timeout: 30s
//	tls:
//	  enable_verify: true
//	  endpoint_identification: https
//	  ca_location: /etc/corvo/ca.pem
//	  cert_location: /etc/corvo/client.pem
//	  key_location: /etc/corvo/client.key
//	keepalive:
//	  enabled: true
//	  ping_interval: 30s
//	reconnect:
//	  enabled: true
//	  initial_backoff: 1s
//	  max_backoff: 60s
//
// Durations accept Go syntax ("30s", "1m30s"). Unset sections fall back
// to the package defaults of the layer they configure.
package config
