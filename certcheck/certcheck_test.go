package certcheck_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuberootdigital/sig-backend/certcheck"
)

func TestCheckLocalServer(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	leaf := srv.Certificate()
	checker := &certcheck.TLSChecker{Timeout: 5 * time.Second}

	res, err := checker.Check(context.Background(), srv.URL+"/some/path")
	require.NoError(t, err)

	assert.True(t, res.Valid)
	assert.Contains(t, res.ValidFor, "example.com")
	assert.Contains(t, res.ValidFor, "127.0.0.1")
	assert.True(t, res.ValidFrom.Equal(leaf.NotBefore))
	assert.True(t, res.ValidTo.Equal(leaf.NotAfter))
	assert.Positive(t, res.DaysRemaining)
}

func TestCheckExpired(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	after := srv.Certificate().NotAfter.Add(48 * time.Hour)
	checker := &certcheck.TLSChecker{Now: func() time.Time { return after }}

	res, err := checker.Check(context.Background(), srv.Listener.Addr().String())
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, -2, res.DaysRemaining)
}

func TestCheckUsesConfiguredPort(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	_, port, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	p, err := net.LookupPort("tcp", port)
	require.NoError(t, err)

	checker := &certcheck.TLSChecker{Port: p}
	res, err := checker.Check(context.Background(), "127.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Valid)
}

func TestCheckUnreachable(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	checker := &certcheck.TLSChecker{Timeout: 2 * time.Second}
	_, err = checker.Check(context.Background(), addr)
	assert.ErrorIs(t, err, certcheck.ErrUpstream)
}

func TestCheckInvalidHost(t *testing.T) {
	checker := &certcheck.TLSChecker{}
	for _, host := range []string{"", "   ", "https://", "/path-only", "example.com:notaport"} {
		_, err := checker.Check(context.Background(), host)
		assert.ErrorIs(t, err, certcheck.ErrInvalidHost, host)
	}
}
