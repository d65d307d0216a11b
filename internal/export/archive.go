package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ninnin76-design/sm-manager/internal/config"
	"github.com/ninnin76-design/sm-manager/internal/logger"
)

var ErrNoFile = errors.New("file not found")

// Archiver keeps a rendered export and returns the URL it can be downloaded from.
type Archiver interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
}

// New picks S3 when a bucket is configured, the local directory otherwise.
func New(ctx context.Context, cfg config.ExportConfig) (Archiver, error) {
	if cfg.S3Bucket != "" {
		return NewS3Archiver(ctx, cfg)
	}
	return NewLocalArchiver(cfg.Dir), nil
}

// LocalArchiver writes exports to a directory. Files are removed after TTL or
// once they have been downloaded.
type LocalArchiver struct {
	Dir string
	TTL time.Duration
}

func NewLocalArchiver(dir string) *LocalArchiver {
	if dir == "" {
		dir = "exports"
	}
	return &LocalArchiver{Dir: dir, TTL: 5 * time.Minute}
}

func (a *LocalArchiver) Put(_ context.Context, name string, data []byte) (string, error) {
	if !validName(name) {
		return "", fmt.Errorf("invalid export name %q", name)
	}
	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	fpath := filepath.Join(a.Dir, name)
	if err := os.WriteFile(fpath, data, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	time.AfterFunc(a.TTL, func() { os.Remove(fpath) })
	return "/api/files/" + name, nil
}

// Open resolves a download name to a path inside Dir.
func (a *LocalArchiver) Open(name string) (string, error) {
	if !validName(name) {
		return "", ErrNoFile
	}
	fpath := filepath.Join(a.Dir, name)
	if _, err := os.Stat(fpath); err != nil {
		return "", ErrNoFile
	}
	return fpath, nil
}

func (a *LocalArchiver) Remove(name string) {
	if validName(name) {
		os.Remove(filepath.Join(a.Dir, name))
	}
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && filepath.Base(name) == name && !strings.ContainsAny(name, `/\`)
}

// S3Archiver uploads exports to a bucket and returns a presigned GET URL.
type S3Archiver struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	prefix  string
	expiry  time.Duration
}

func NewS3Archiver(ctx context.Context, cfg config.ExportConfig) (*S3Archiver, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.S3Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
	})
	return &S3Archiver{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.S3Bucket,
		prefix:  strings.Trim(cfg.S3Prefix, "/"),
		expiry:  15 * time.Minute,
	}, nil
}

func (a *S3Archiver) Key(name string) string {
	if a.prefix == "" {
		return name
	}
	return path.Join(a.prefix, name)
}

func (a *S3Archiver) Put(ctx context.Context, name string, data []byte) (string, error) {
	key := a.Key(name)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(ContentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	out, err := a.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	}, func(po *s3.PresignOptions) { po.Expires = a.expiry })
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	logger.Info("export uploaded", "bucket", a.bucket, "key", key, "bytes", len(data))
	return out.URL, nil
}
