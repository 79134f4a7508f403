/*
Copyright © 2025 Imgvault Authors
SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/imgvault/imgvault/pkg/errors"
)

// Environment variables consulted by FromEnv.
const (
	EnvAccountID       = "CLOUDFLARE_ACCOUNT_ID"
	EnvBucket          = "R2_BUCKET"
	EnvAccessKeyID     = "R2_ACCESS_KEY_ID"
	EnvSecretAccessKey = "R2_SECRET_ACCESS_KEY"
	EnvEndpoint        = "R2_ENDPOINT"
)

// r2EndpointTemplate builds the default Cloudflare R2 S3 endpoint for an account.
const r2EndpointTemplate = "https://%s.r2.cloudflarestorage.com"

// Storage holds the resolved destination object store configuration.
type Storage struct {
	// AccountID is the Cloudflare account identifier. Required unless
	// Endpoint is set explicitly.
	AccountID string
	// Bucket is the destination bucket name.
	Bucket string
	// AccessKeyID and SecretAccessKey are the S3 API credentials.
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint overrides the derived R2 endpoint. Any S3-compatible
	// endpoint works here (useful for minio in tests).
	Endpoint string
}

// FromEnv resolves storage configuration from the environment.
// All validation failures are CONFIG-coded so callers can surface them
// before any conversion or upload work begins.
func FromEnv() (*Storage, error) {
	s := &Storage{
		AccountID:       strings.TrimSpace(os.Getenv(EnvAccountID)),
		Bucket:          strings.TrimSpace(os.Getenv(EnvBucket)),
		AccessKeyID:     strings.TrimSpace(os.Getenv(EnvAccessKeyID)),
		SecretAccessKey: os.Getenv(EnvSecretAccessKey),
		Endpoint:        strings.TrimSpace(os.Getenv(EnvEndpoint)),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks that every required field is present.
func (s *Storage) Validate() error {
	if s.Bucket == "" {
		return errors.New(errors.ErrCodeConfig, fmt.Sprintf("%s is not set", EnvBucket))
	}
	if s.AccessKeyID == "" {
		return errors.New(errors.ErrCodeConfig, fmt.Sprintf("%s is not set", EnvAccessKeyID))
	}
	if s.SecretAccessKey == "" {
		return errors.New(errors.ErrCodeConfig, fmt.Sprintf("%s is not set", EnvSecretAccessKey))
	}
	if s.AccountID == "" && s.Endpoint == "" {
		return errors.New(errors.ErrCodeConfig,
			fmt.Sprintf("either %s or %s must be set", EnvAccountID, EnvEndpoint))
	}
	return nil
}

// EndpointURL returns the S3 endpoint to use: the explicit override when
// set, otherwise the account-derived Cloudflare R2 endpoint.
func (s *Storage) EndpointURL() string {
	if s.Endpoint != "" {
		return s.Endpoint
	}
	return fmt.Sprintf(r2EndpointTemplate, s.AccountID)
}
