// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package objstore accesses the S3-compatible object store that serves
// product archives: client construction, storage URI handling, and
// prefix downloads. See docs/ARCHITECTURE § Acquisition.
package objstore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/pdiddy/eo-engine/pkg/types"
)

// Connector holds the connection parameters for an S3-compatible endpoint
// and builds clients from them. It adds no behavior over the SDK: retries,
// signing, and connection reuse are the SDK's business.
type Connector struct {
	cfg types.StorageConfig
}

// NewConnector validates the storage settings and returns a Connector.
func NewConnector(cfg types.StorageConfig) (*Connector, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("storage endpoint is required")
	}
	if cfg.Region == "" {
		cfg.Region = "default"
	}
	return &Connector{cfg: cfg}, nil
}

// Bucket returns the configured default bucket.
func (c *Connector) Bucket() string { return c.cfg.Bucket }

// Client builds an S3 client for the configured endpoint. When access and
// secret keys are set they are used as static credentials; otherwise the
// SDK's default credential chain applies (environment, shared config).
func (c *Connector) Client(ctx context.Context) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(c.cfg.Region),
	}
	if c.cfg.AccessKey != "" || c.cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.cfg.AccessKey, c.cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading storage configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(c.cfg.Endpoint)
		o.UsePathStyle = c.cfg.UsePathStyle
	})
	return client, nil
}
