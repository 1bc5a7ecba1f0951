// NOVA - Telemetry Truth Store and Playback System
// Copyright 2026 NOVA Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nova-telemetry/nova

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultNATSImage matches the server version NOVA embeds, so
	// integration tests exercise the same broker behavior.
	DefaultNATSImage = "nats:2.10-alpine"

	// DefaultNATSPort is the NATS client port.
	DefaultNATSPort = "4222"
)

// NATSContainer is a running nats-server for integration testing.
type NATSContainer struct {
	testcontainers.Container
	host string
	port string
}

// NATSOption configures the NATS container.
type NATSOption func(*natsConfig)

type natsConfig struct {
	image        string
	jetstream    bool
	startTimeout time.Duration
}

// WithNATSImage sets a custom nats-server image.
func WithNATSImage(image string) NATSOption {
	return func(c *natsConfig) {
		c.image = image
	}
}

// WithoutJetStream starts a plain core-NATS broker. The default
// enables JetStream since the ingest pipeline requires it.
func WithoutJetStream() NATSOption {
	return func(c *natsConfig) {
		c.jetstream = false
	}
}

// WithNATSStartTimeout sets the startup wait timeout.
func WithNATSStartTimeout(timeout time.Duration) NATSOption {
	return func(c *natsConfig) {
		c.startTimeout = timeout
	}
}

// NewNATSContainer starts a nats-server container and waits until it
// reports readiness on its log stream.
//
//	broker, err := NewNATSContainer(ctx)
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer CleanupContainer(t, ctx, broker.Container)
//	conn, err := nats.Connect(broker.ClientURL())
func NewNATSContainer(ctx context.Context, opts ...NATSOption) (*NATSContainer, error) {
	cfg := &natsConfig{
		image:        DefaultNATSImage,
		jetstream:    true,
		startTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	var cmd []string
	if cfg.jetstream {
		cmd = []string{"-js"}
	}

	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		Cmd:          cmd,
		ExposedPorts: []string{DefaultNATSPort + "/tcp"},
		WaitingFor: wait.ForLog("Server is ready").
			WithStartupTimeout(cfg.startTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create nats container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, DefaultNATSPort)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get mapped port: %w", err)
	}

	return &NATSContainer{
		Container: container,
		host:      host,
		port:      port.Port(),
	}, nil
}

// ClientURL returns the nats:// URL clients connect to.
func (c *NATSContainer) ClientURL() string {
	return fmt.Sprintf("nats://%s:%s", c.host, c.port)
}

// Logs returns the broker logs for debugging failed assertions.
func (c *NATSContainer) Logs(ctx context.Context) (string, error) {
	reader, err := c.Container.Logs(ctx)
	if err != nil {
		return "", fmt.Errorf("get logs: %w", err)
	}
	defer reader.Close()

	var logs []byte
	buf := make([]byte, 1024)
	for {
		n, rerr := reader.Read(buf)
		if n > 0 {
			logs = append(logs, buf[:n]...)
		}
		if rerr != nil {
			break
		}
	}
	return string(logs), nil
}
