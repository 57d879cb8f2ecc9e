package submission

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/rbright/vcinteract/internal/resilience"
)

// TransportConfig mirrors the server.* timeouts.
type TransportConfig struct {
	CallTimeout              time.Duration
	ConnectTimeout           time.Duration
	ReadTimeout              time.Duration
	WriteTimeout             time.Duration
	MaxIdleConns             int
	IdleTimeout              time.Duration
	RetryOnConnectionFailure bool
}

// DefaultTransportConfig matches the stock server timeouts.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		CallTimeout:              45 * time.Second,
		ConnectTimeout:           15 * time.Second,
		ReadTimeout:              30 * time.Second,
		WriteTimeout:             30 * time.Second,
		MaxIdleConns:             5,
		IdleTimeout:              30 * time.Second,
		RetryOnConnectionFailure: true,
	}
}

// NewHTTPClient builds the pooled client shared by all submissions.
func NewHTTPClient(cfg TransportConfig, logger *slog.Logger) *http.Client {
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout, KeepAlive: cfg.IdleTimeout}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return &deadlineConn{Conn: conn, read: cfg.ReadTimeout, write: cfg.WriteTimeout}, nil
		},
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConns,
		IdleConnTimeout:       cfg.IdleTimeout,
		ResponseHeaderTimeout: cfg.ReadTimeout,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ExpectContinueTimeout: time.Second,
	}

	var rt http.RoundTripper = transport
	if cfg.RetryOnConnectionFailure {
		rt = &retryTransport{base: transport, logger: logger}
	}
	return &http.Client{Transport: rt, Timeout: cfg.CallTimeout}
}

// deadlineConn applies per-operation read and write deadlines.
type deadlineConn struct {
	net.Conn
	read  time.Duration
	write time.Duration
}

func (c *deadlineConn) Read(b []byte) (int, error) {
	if c.read > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.read)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(b)
}

func (c *deadlineConn) Write(b []byte) (int, error) {
	if c.write > 0 {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(c.write)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Write(b)
}

// retryTransport retries a request once when the connection fails before
// the server could have seen it. The body is rewound through GetBody.
type retryTransport struct {
	base   http.RoundTripper
	logger *slog.Logger
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rewindable := req.Body == nil || req.Body == http.NoBody || req.GetBody != nil

	var (
		resp    *http.Response
		attempt int
	)
	err := resilience.Retry(req.Context(), resilience.Config{
		MaxRetries: 1,
		BaseDelay:  50 * time.Millisecond,
		Logger:     t.logger,
		IsRetryable: func(err error) bool {
			return rewindable && resilience.IsConnectionFailure(err)
		},
	}, func() error {
		attempt++
		outgoing := req
		if attempt > 1 {
			outgoing = req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return err
				}
				outgoing.Body = body
			}
		}
		var err error
		resp, err = t.base.RoundTrip(outgoing)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
