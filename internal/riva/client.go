// Package riva calls the NVIDIA Riva offline Recognize RPC over gRPC.
package riva

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Config controls connection setup.
type Config struct {
	Endpoint    string
	DialTimeout time.Duration
	DialOptions []grpc.DialOption
}

// Client is one ready gRPC connection to a Riva server.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to endpoint and waits until the channel is Ready.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("riva endpoint is empty")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 3 * time.Second
	}

	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, cfg.DialOptions...)
	conn, err := grpc.NewClient(endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial riva grpc %q: %w", endpoint, err)
	}

	readyCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	conn.Connect()
	if err := waitForReady(readyCtx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("wait for riva grpc readiness: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Recognize sends one complete utterance of 16-bit mono PCM and returns the
// hypotheses in server order.
func (c *Client) Recognize(ctx context.Context, pcm []byte, cfg RecognitionConfig) ([]Alternative, error) {
	if len(pcm) == 0 {
		return nil, errors.New("recognize: empty audio")
	}

	req := &rawMessage{data: encodeRecognizeRequest(cfg, pcm)}
	resp := &rawMessage{}
	if err := c.conn.Invoke(ctx, recognizeMethod, req, resp, grpc.ForceCodec(rawCodec{})); err != nil {
		return nil, fmt.Errorf("riva recognize: %w", err)
	}
	return decodeRecognizeResponse(resp.data)
}

// Health queries the standard gRPC health service. An empty service name
// checks the server as a whole.
func (c *Client) Health(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := healthpb.NewHealthClient(c.conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// waitForReady blocks until the channel is Ready, shut down, or ctx expires.
func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		if state == connectivity.Ready {
			return nil
		}
		if state == connectivity.Shutdown {
			return errors.New("grpc connection entered shutdown state")
		}
		if conn.WaitForStateChange(ctx, state) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("still %s: %w", state, err)
		}
		return fmt.Errorf("grpc readiness wait timed out in state %s", state)
	}
}
