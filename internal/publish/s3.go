// Package publish uploads a generated site to S3-compatible object storage.
package publish

import (
	"context"
	"io/fs"
	"log/slog"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	ferrors "git.home.luguber.info/inful/mdsite/internal/foundation/errors"
	"git.home.luguber.info/inful/mdsite/internal/logfields"
)

// Config selects the bucket and credentials.
type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// Prefix is prepended to every object key, e.g. "docs/".
	Prefix string
	// Prune removes objects under Prefix that are not part of the upload.
	Prune bool
}

// Summary reports what a publish did.
type Summary struct {
	Uploaded int
	Bytes    int64
	Removed  int
}

// objectStore is the subset of *minio.Client used for publishing.
type objectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucket, key, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	RemoveObject(ctx context.Context, bucket, key string, opts minio.RemoveObjectOptions) error
}

// S3Publisher uploads output trees to one bucket.
type S3Publisher struct {
	client objectStore
	cfg    Config
	logger *slog.Logger
}

// Validate checks that the fields needed to connect are present.
func (c Config) Validate() error {
	missing := []string{}
	if strings.TrimSpace(c.Endpoint) == "" {
		missing = append(missing, "publish.endpoint")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		missing = append(missing, "publish.bucket")
	}
	if strings.TrimSpace(c.AccessKey) == "" || strings.TrimSpace(c.SecretKey) == "" {
		missing = append(missing, "publish.access_key/publish.secret_key")
	}
	if len(missing) > 0 {
		return ferrors.ConfigError("publish configuration incomplete").
			WithContext("missing", strings.Join(missing, ", ")).
			Build()
	}
	return nil
}

// NewS3Publisher creates a publisher for cfg.
func NewS3Publisher(cfg Config, logger *slog.Logger) (*S3Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	client, err := minio.New(strings.TrimSpace(cfg.Endpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(cfg.AccessKey), strings.TrimSpace(cfg.SecretKey), ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, ferrors.ConfigError("init s3 client").WithCause(err).WithContext("endpoint", cfg.Endpoint).Build()
	}
	return newS3Publisher(client, cfg, logger), nil
}

func newS3Publisher(client objectStore, cfg Config, logger *slog.Logger) *S3Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Publisher{client: client, cfg: cfg, logger: logger}
}

// Publish uploads every file under outputDir, creating the bucket if needed.
func (p *S3Publisher) Publish(ctx context.Context, outputDir string) (Summary, error) {
	var sum Summary
	if err := p.ensureBucket(ctx); err != nil {
		return sum, err
	}

	uploaded := map[string]struct{}{}
	err := filepath.WalkDir(outputDir, func(filePath string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return ferrors.FileSystemError("walk output directory").WithCause(walkErr).WithContext("path", filePath).Build()
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(outputDir, filePath)
		if err != nil {
			return ferrors.InternalError("relative output path").WithCause(err).WithContext("path", filePath).Build()
		}
		key := ObjectKey(p.cfg.Prefix, rel)
		info, err := p.client.FPutObject(ctx, p.cfg.Bucket, key, filePath, minio.PutObjectOptions{
			ContentType: ContentType(rel),
		})
		if err != nil {
			return ferrors.StorageError("upload object").WithCause(err).WithContext("key", key).Build()
		}
		uploaded[key] = struct{}{}
		sum.Uploaded++
		sum.Bytes += info.Size
		p.logger.Debug("Uploaded object", slog.String("key", key), logfields.Path(filePath))
		return nil
	})
	if err != nil {
		return sum, err
	}

	if p.cfg.Prune {
		removed, err := p.prune(ctx, uploaded)
		sum.Removed = removed
		if err != nil {
			return sum, err
		}
	}
	p.logger.Info("Published site",
		slog.String("bucket", p.cfg.Bucket),
		slog.String("prefix", p.cfg.Prefix),
		slog.Int("uploaded", sum.Uploaded),
		slog.Int("removed", sum.Removed))
	return sum, nil
}

func (p *S3Publisher) ensureBucket(ctx context.Context) error {
	exists, err := p.client.BucketExists(ctx, p.cfg.Bucket)
	if err != nil {
		return ferrors.StorageError("check bucket").WithCause(err).WithContext("bucket", p.cfg.Bucket).Build()
	}
	if exists {
		return nil
	}
	if err := p.client.MakeBucket(ctx, p.cfg.Bucket, minio.MakeBucketOptions{Region: p.cfg.Region}); err != nil {
		return ferrors.StorageError("create bucket").WithCause(err).WithContext("bucket", p.cfg.Bucket).Build()
	}
	p.logger.Info("Created bucket", slog.String("bucket", p.cfg.Bucket))
	return nil
}

// prune removes objects under the prefix that were not just uploaded.
func (p *S3Publisher) prune(ctx context.Context, keep map[string]struct{}) (int, error) {
	removed := 0
	for obj := range p.client.ListObjects(ctx, p.cfg.Bucket, minio.ListObjectsOptions{
		Prefix:    normalizePrefix(p.cfg.Prefix),
		Recursive: true,
	}) {
		if obj.Err != nil {
			return removed, ferrors.StorageError("list objects").WithCause(obj.Err).WithContext("bucket", p.cfg.Bucket).Build()
		}
		if _, ok := keep[obj.Key]; ok || obj.Key == "" {
			continue
		}
		if err := p.client.RemoveObject(ctx, p.cfg.Bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return removed, ferrors.StorageError("remove stale object").WithCause(err).WithContext("key", obj.Key).Build()
		}
		removed++
	}
	return removed, nil
}

// ObjectKey maps a path relative to the output directory to its object key.
func ObjectKey(prefix, rel string) string {
	return normalizePrefix(prefix) + path.Clean(filepath.ToSlash(rel))
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// ContentType picks the object content type from the file extension.
func ContentType(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
