package database

import (
	"fmt"
	"net/url"
	"strings"
)

// Transport identifies how queries reach the database.
type Transport int

const (
	TransportDirect Transport = iota + 1
	TransportBridge
)

func (t Transport) String() string {
	switch t {
	case TransportDirect:
		return "direct"
	case TransportBridge:
		return "bridge"
	default:
		return "unknown"
	}
}

// Descriptor is a parsed connection descriptor. The transport is decided once
// here and never re-derived from the URL afterwards.
type Descriptor struct {
	Transport Transport
	URL       string
}

// ParseDescriptor selects the transport from the descriptor scheme:
// postgres:// and postgresql:// connect directly, http:// and https:// go
// through the bridge server.
func ParseDescriptor(raw string) (Descriptor, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Descriptor{}, &ConfigurationError{Reason: "descriptor is empty"}
	}

	u, err := url.Parse(raw)
	if err != nil {
		// url.Parse errors echo the input, which may contain a password.
		return Descriptor{}, &ConfigurationError{Reason: "descriptor is not a valid URL"}
	}

	var transport Transport
	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql":
		transport = TransportDirect
	case "http", "https":
		transport = TransportBridge
	case "":
		return Descriptor{}, &ConfigurationError{Reason: "descriptor has no scheme"}
	default:
		return Descriptor{}, &ConfigurationError{Reason: fmt.Sprintf("unsupported scheme %q", u.Scheme)}
	}

	if u.Host == "" {
		return Descriptor{}, &ConfigurationError{Reason: "descriptor has no host"}
	}

	if transport == TransportBridge {
		raw = strings.TrimRight(raw, "/")
	}

	return Descriptor{Transport: transport, URL: raw}, nil
}

// Redacted returns the descriptor with any password masked, for logging.
func (d Descriptor) Redacted() string {
	u, err := url.Parse(d.URL)
	if err != nil {
		return d.Transport.String()
	}
	return u.Redacted()
}
