// Package certcheck inspects the TLS certificate presented by a host.
package certcheck

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidHost is returned for an empty or unparsable host.
	ErrInvalidHost = errors.New("certcheck: invalid host")

	// ErrUpstream wraps dial and handshake failures.
	ErrUpstream = errors.New("certcheck: upstream failure")
)

// DefaultPort is the port probed when the host does not name one.
const DefaultPort = 443

// DefaultTimeout bounds a single check.
const DefaultTimeout = 10 * time.Second

// Result describes the leaf certificate of a host.
type Result struct {
	DaysRemaining int       `json:"daysRemaining"`
	Valid         bool      `json:"valid"`
	ValidFrom     time.Time `json:"validFrom"`
	ValidTo       time.Time `json:"validTo"`
	ValidFor      []string  `json:"validFor"`
}

// Checker reports on the certificate served by host.
type Checker interface {
	Check(ctx context.Context, host string) (*Result, error)
}

// TLSChecker dials hosts over TLS. The zero value probes port 443 with a
// ten second timeout.
type TLSChecker struct {
	Port    int
	Timeout time.Duration
	Now     func() time.Time
}

// Check dials host and inspects the leaf certificate. Verification is
// disabled so expired and self-signed certificates are still reported.
func (c *TLSChecker) Check(ctx context.Context, host string) (*Result, error) {
	addr, serverName, err := c.address(host)
	if err != nil {
		return nil, err
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	d := &tls.Dialer{Config: &tls.Config{
		ServerName:         serverName,
		InsecureSkipVerify: true,
	}}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", ErrUpstream, addr, err)
	}
	defer conn.Close()

	certs := conn.(*tls.Conn).ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return nil, fmt.Errorf("%w: %s presented no certificate", ErrUpstream, addr)
	}
	leaf := certs[0]

	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}

	validFor := make([]string, 0, len(leaf.DNSNames)+len(leaf.IPAddresses))
	validFor = append(validFor, leaf.DNSNames...)
	for _, ip := range leaf.IPAddresses {
		validFor = append(validFor, ip.String())
	}
	if len(validFor) == 0 && leaf.Subject.CommonName != "" {
		validFor = append(validFor, leaf.Subject.CommonName)
	}

	return &Result{
		DaysRemaining: int(leaf.NotAfter.Sub(now).Hours() / 24),
		Valid:         !now.Before(leaf.NotBefore) && !now.After(leaf.NotAfter),
		ValidFrom:     leaf.NotBefore.UTC(),
		ValidTo:       leaf.NotAfter.UTC(),
		ValidFor:      validFor,
	}, nil
}

// address reduces host to host:port. URLs keep only their host part; an
// explicit port wins over the checker's port.
func (c *TLSChecker) address(host string) (addr, serverName string, err error) {
	host = strings.TrimSpace(host)
	if strings.Contains(host, "://") {
		u, err := url.Parse(host)
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrInvalidHost, err)
		}
		host = u.Host
	} else if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	if host == "" {
		return "", "", ErrInvalidHost
	}

	port := c.Port
	if port <= 0 {
		port = DefaultPort
	}
	if h, p, err := net.SplitHostPort(host); err == nil {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 || n > 65535 {
			return "", "", fmt.Errorf("%w: bad port %q", ErrInvalidHost, p)
		}
		host, port = h, n
	}
	host = strings.Trim(host, "[]")
	if host == "" {
		return "", "", ErrInvalidHost
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), host, nil
}
