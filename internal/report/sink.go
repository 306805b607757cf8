package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Sink stores rendered reports and returns where each one went.
type Sink interface {
	Save(ctx context.Context, name string, body io.Reader, size int64, contentType string) (string, error)
}

// LocalSink writes reports into a directory served at /reports/.
type LocalSink struct {
	Dir string
}

// NewLocalSink creates dir if needed.
func NewLocalSink(dir string) (*LocalSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create reports dir: %w", err)
	}
	return &LocalSink{Dir: dir}, nil
}

// Save writes the report to Dir/name and returns that path.
func (s *LocalSink) Save(_ context.Context, name string, body io.Reader, _ int64, _ string) (string, error) {
	if name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid report name: %q", name)
	}
	p := filepath.Join(s.Dir, name)
	f, err := os.Create(p)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close report: %w", err)
	}
	return p, nil
}

// S3Config addresses an S3-compatible bucket.
type S3Config struct {
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type objectClient interface {
	PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket, region string) error
}

// S3Sink uploads reports to a bucket.
type S3Sink struct {
	client objectClient
	bucket string
	prefix string
}

// NewS3Sink connects to the bucket, creating it when AutoCreateBucket is set.
func NewS3Sink(ctx context.Context, cfg S3Config) (*S3Sink, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	endpoint, secure, err := parseEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}
	mc, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: strings.TrimSpace(cfg.Region),
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	sink := &S3Sink{client: &minioClient{client: mc}, bucket: strings.TrimSpace(cfg.Bucket), prefix: cleanPrefix(cfg.Prefix)}
	if cfg.AutoCreateBucket {
		if err := sink.ensureBucket(ctx, strings.TrimSpace(cfg.Region)); err != nil {
			return nil, err
		}
	}
	return sink, nil
}

// Save uploads the report and returns its s3:// location.
func (s *S3Sink) Save(ctx context.Context, name string, body io.Reader, size int64, contentType string) (string, error) {
	key := strings.TrimPrefix(path.Clean("/"+name), "/")
	if key == "" || key != name {
		return "", fmt.Errorf("invalid report name: %q", name)
	}
	if s.prefix != "" {
		key = path.Join(s.prefix, key)
	}
	if err := s.client.PutObject(ctx, s.bucket, key, body, size, contentType); err != nil {
		return "", fmt.Errorf("put object %q: %w", key, err)
	}
	return "s3://" + s.bucket + "/" + key, nil
}

func (s *S3Sink) ensureBucket(ctx context.Context, region string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, region); err != nil {
		return fmt.Errorf("create bucket %q: %w", s.bucket, err)
	}
	return nil
}

func cleanPrefix(prefix string) string {
	prefix = strings.TrimSpace(strings.TrimPrefix(prefix, "/"))
	if prefix == "" {
		return ""
	}
	prefix = path.Clean(prefix)
	if prefix == "." {
		return ""
	}
	return prefix
}

func parseEndpoint(raw string, useSSL bool) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		parsed, err := url.Parse(raw)
		if err != nil {
			return "", false, fmt.Errorf("parse endpoint URL: %w", err)
		}
		if parsed.Host == "" {
			return "", false, fmt.Errorf("endpoint host is required")
		}
		return parsed.Host, parsed.Scheme == "https" || useSSL, nil
	}
	return raw, useSSL, nil
}

type minioClient struct {
	client *minio.Client
}

func (m *minioClient) PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, bucket, key, reader, size, minio.PutObjectOptions{ContentType: contentType})
	return err
}

func (m *minioClient) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return m.client.BucketExists(ctx, bucket)
}

func (m *minioClient) MakeBucket(ctx context.Context, bucket, region string) error {
	return m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region})
}

// Artifact describes a stored report.
type Artifact struct {
	Filename string `json:"filename"`
	Format   Format `json:"format"`
	Location string `json:"location"`
	Size     int64  `json:"size"`
}

// Generator renders documents and hands them to a sink.
type Generator struct {
	sink Sink
	now  func() time.Time
}

// NewGenerator returns a Generator writing to sink.
func NewGenerator(sink Sink) *Generator {
	return &Generator{sink: sink, now: time.Now}
}

// Filename returns report_<unix-millis>.<ext>.
func Filename(f Format, t time.Time) string {
	return fmt.Sprintf("report_%d.%s", t.UnixMilli(), f)
}

// Generate renders doc in format f and stores it.
func (g *Generator) Generate(ctx context.Context, f Format, doc Document) (Artifact, error) {
	now := g.now()
	if doc.Generated.IsZero() {
		doc.Generated = now
	}

	var buf bytes.Buffer
	if err := Render(&buf, f, doc); err != nil {
		return Artifact{}, err
	}

	name := Filename(f, now)
	size := int64(buf.Len())
	loc, err := g.sink.Save(ctx, name, &buf, size, f.ContentType())
	if err != nil {
		return Artifact{}, fmt.Errorf("store report: %w", err)
	}
	return Artifact{Filename: name, Format: f, Location: loc, Size: size}, nil
}
