package publish

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvEndpoint  = "PLDBUILD_S3_ENDPOINT"
	EnvAccessKey = "PLDBUILD_S3_ACCESS_KEY"
	EnvSecretKey = "PLDBUILD_S3_SECRET_KEY"
	EnvRegion    = "PLDBUILD_S3_REGION"
	EnvBucket    = "PLDBUILD_S3_BUCKET"
	EnvSecure    = "PLDBUILD_S3_SECURE"
)

// DefaultRegion is used when no region is configured.
const DefaultRegion = "us-east-1"

// Config locates the object storage bucket artifacts are published to.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	Prefix    string
	Secure    bool
}

// ConfigFromEnv overlays environment variables on base and validates the
// result. Credentials only come from the environment.
func ConfigFromEnv(lookup func(string) (string, bool), base Config) (Config, error) {
	cfg, err := OverlayEnv(lookup, base)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// OverlayEnv is ConfigFromEnv without validation, for callers that apply
// further overrides.
func OverlayEnv(lookup func(string) (string, bool), base Config) (Config, error) {
	cfg := base
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str(EnvEndpoint, &cfg.Endpoint)
	str(EnvAccessKey, &cfg.AccessKey)
	str(EnvSecretKey, &cfg.SecretKey)
	str(EnvRegion, &cfg.Region)
	str(EnvBucket, &cfg.Bucket)

	if v, ok := lookup(EnvSecure); ok && v != "" {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvSecure, err)
		}
		cfg.Secure = secure
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	return cfg, nil
}

// Validate checks that every required field is set.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return fmt.Errorf("access key is required (set %s)", EnvAccessKey)
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return fmt.Errorf("secret key is required (set %s)", EnvSecretKey)
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("bucket is required")
	}
	return nil
}
