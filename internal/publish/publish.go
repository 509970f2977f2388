// Package publish uploads build artifacts to S3-compatible object storage.
//
// Objects are content addressed: the key embeds the artifact's digest so a
// republished identical file lands on the same key.
package publish

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/roach88/pldbuild/internal/artifact"
)

// ObjectStore is the subset of *minio.Client used for publishing.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Upload timeout per object.
const putTimeout = 10 * time.Minute

// Result describes one uploaded artifact.
type Result struct {
	Artifact artifact.Artifact `json:"artifact"`
	Bucket   string            `json:"bucket"`
	Key      string            `json:"key"`
	ETag     string            `json:"etag,omitempty"`
	Location string            `json:"location"`
}

// Publisher uploads artifacts to one bucket.
type Publisher struct {
	store ObjectStore
	cfg   Config
}

// New connects to the configured endpoint.
func New(cfg Config) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.Secure,
		Region:    cfg.Region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
	}
	return NewWithStore(client, cfg), nil
}

// NewWithStore creates a Publisher over an existing store.
func NewWithStore(store ObjectStore, cfg Config) *Publisher {
	return &Publisher{store: store, cfg: cfg}
}

// ObjectName returns the key for an artifact:
// <prefix>/<algorithm>/<hex>/<base name>.
func ObjectName(prefix string, a artifact.Artifact) string {
	return path.Join(prefix, a.Digest.Algorithm().String(), a.Digest.Encoded(), a.Name())
}

// Location returns the s3:// URL of an object.
func Location(bucket, key string) string {
	return "s3://" + bucket + "/" + key
}

// CheckBucket verifies the target bucket exists.
func (p *Publisher) CheckBucket(ctx context.Context) error {
	exists, err := p.store.BucketExists(ctx, p.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", p.cfg.Bucket, err)
	}
	if !exists {
		return fmt.Errorf("bucket missing: %s", p.cfg.Bucket)
	}
	return nil
}

// Publish uploads one artifact.
func (p *Publisher) Publish(ctx context.Context, a artifact.Artifact) (Result, error) {
	f, err := os.Open(a.Path)
	if err != nil {
		return Result{}, fmt.Errorf("publish %s: %w", a.Path, err)
	}
	defer f.Close()

	key := ObjectName(p.cfg.Prefix, a)

	putCtx, cancel := context.WithTimeout(ctx, putTimeout)
	info, err := p.store.PutObject(putCtx, p.cfg.Bucket, key, f, a.Size, minio.PutObjectOptions{
		ContentType:  "application/octet-stream",
		UserMetadata: map[string]string{"digest": a.Digest.String()},
	})
	cancel()
	if err != nil {
		return Result{}, fmt.Errorf("publish %s: %w", a.Path, err)
	}

	slog.Debug("artifact published", "path", a.Path, "bucket", p.cfg.Bucket, "key", key)

	return Result{
		Artifact: a,
		Bucket:   p.cfg.Bucket,
		Key:      key,
		ETag:     info.ETag,
		Location: Location(p.cfg.Bucket, key),
	}, nil
}

// PublishAll checks the bucket and uploads each artifact in order,
// stopping at the first failure.
func (p *Publisher) PublishAll(ctx context.Context, artifacts []artifact.Artifact) ([]Result, error) {
	if err := p.CheckBucket(ctx); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(artifacts))
	for _, a := range artifacts {
		r, err := p.Publish(ctx, a)
		if err != nil {
			return results, err
		}
		results = append(results, r)
	}
	return results, nil
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
