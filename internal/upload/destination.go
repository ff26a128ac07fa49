package upload

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/CDrummond/bliss-analyser/internal/services"
)

// Destination is a parsed "[user:pass@]host" mixer location.
type Destination struct {
	Host     string
	User     string
	Password string
	JSONPort int
}

// ParseDestination parses host, which may embed credentials as
// "user:pass@host".
func ParseDestination(host string, jsonPort int) (Destination, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return Destination{}, fmt.Errorf("%w: empty server host", services.ErrConfiguration)
	}
	if jsonPort <= 0 || jsonPort > 65535 {
		return Destination{}, fmt.Errorf("%w: invalid JSON-RPC port %d", services.ErrConfiguration, jsonPort)
	}

	dest := Destination{JSONPort: jsonPort}
	if at := strings.LastIndex(host, "@"); at >= 0 {
		creds := host[:at]
		host = host[at+1:]
		user, pass, ok := strings.Cut(creds, ":")
		if !ok || user == "" {
			return Destination{}, fmt.Errorf("%w: credentials must be user:pass", services.ErrConfiguration)
		}
		dest.User = user
		dest.Password = pass
	}
	if host == "" || strings.ContainsAny(host, "/ ") {
		return Destination{}, fmt.Errorf("%w: invalid server host %q", services.ErrConfiguration, host)
	}
	dest.Host = host
	return dest, nil
}

// HasCredentials reports whether basic auth should be sent.
func (d Destination) HasCredentials() bool {
	return d.User != ""
}

// JSONRPCURL returns the server's JSON-RPC endpoint.
func (d Destination) JSONRPCURL() string {
	return "http://" + net.JoinHostPort(d.Host, strconv.Itoa(d.JSONPort)) + "/jsonrpc.js"
}

// UploadURL returns the plugin's upload endpoint on port.
func (d Destination) UploadURL(port int) string {
	return "http://" + net.JoinHostPort(d.Host, strconv.Itoa(port)) + "/upload"
}

// String renders the destination without its password.
func (d Destination) String() string {
	hostPort := net.JoinHostPort(d.Host, strconv.Itoa(d.JSONPort))
	if d.HasCredentials() {
		return d.User + "@" + hostPort
	}
	return hostPort
}
