// Package objectstore uploads finished order archives to an S3-compatible
// bucket.
package objectstore

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"bookforge/internal/config"
	"bookforge/internal/services"
)

const archiveContentType = "application/zip"

// Uploader puts archives into a single bucket under an optional prefix.
type Uploader struct {
	client *minio.Client
	bucket string
	region string
	prefix string
}

// Upload records where an archive was stored.
type Upload struct {
	Bucket string
	Key    string
	ETag   string
	Size   int64
}

// New builds an uploader from the storage section. It returns nil, nil when
// storage is disabled.
func New(cfg config.Storage) (*Uploader, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if strings.Contains(endpoint, "://") {
		return nil, services.Wrap(services.ErrConfiguration, "package", "storage client",
			fmt.Sprintf("endpoint must not include scheme: %q", endpoint), nil)
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
		Transport:    newTransport(),
	})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "package", "storage client", "create minio client", err)
	}
	return &Uploader{client: client, bucket: cfg.Bucket, region: cfg.Region, prefix: cfg.Prefix}, nil
}

// Key returns the object key for an order archive.
func (u *Uploader) Key(orderID, name string) string {
	return path.Join(u.prefix, orderID, name)
}

// Bucket returns the configured bucket name.
func (u *Uploader) Bucket() string { return u.bucket }

// BucketExists reports whether the configured bucket is reachable and present.
func (u *Uploader) BucketExists(ctx context.Context) (bool, error) {
	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return false, services.Wrap(services.ErrPackaging, "package", "check bucket", u.bucket, err)
	}
	return exists, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (u *Uploader) EnsureBucket(ctx context.Context) error {
	exists, err := u.BucketExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{Region: u.region}); err != nil {
		return services.Wrap(services.ErrPackaging, "package", "create bucket", u.bucket, err)
	}
	return nil
}

// UploadFile streams the archive at localPath to the bucket under
// <prefix>/<orderID>/<file name>.
func (u *Uploader) UploadFile(ctx context.Context, localPath, orderID string) (*Upload, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return nil, services.Wrap(services.ErrPackaging, "package", "open archive", localPath, err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return nil, services.Wrap(services.ErrPackaging, "package", "stat archive", localPath, err)
	}

	if err := u.EnsureBucket(ctx); err != nil {
		return nil, err
	}

	key := u.Key(orderID, path.Base(localPath))
	putCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()
	uploaded, err := u.client.PutObject(putCtx, u.bucket, key, file, info.Size(), minio.PutObjectOptions{
		ContentType:  archiveContentType,
		UserMetadata: map[string]string{"order-id": orderID},
	})
	if err != nil {
		return nil, services.Wrap(services.ErrPackaging, "package", "upload archive", key, err)
	}
	return &Upload{Bucket: u.bucket, Key: key, ETag: uploaded.ETag, Size: uploaded.Size}, nil
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
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
