// Package discovery finds Corvo brokers on the local network via mDNS.
//
// Brokers advertise the _corvo._tcp service with TXT records carrying
// their node id and protocol version. Clients browse the service to
// build a bootstrap list without static configuration. Discovery is a
// development convenience; production deployments normally configure
// broker addresses explicitly.
package discovery
