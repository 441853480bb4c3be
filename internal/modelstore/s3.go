package modelstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type s3Config struct {
	Endpoint  string `json:"endpoint"`
	Region    string `json:"region"`
	Bucket    string `json:"bucket"`
	Prefix    string `json:"prefix"`
	SecretID  string `json:"secret_id"`
	SecretKey string `json:"secret_key"`
	LocalDir  string `json:"local_dir"`
}

// s3Store downloads missing GGUF weights into a local models directory.
// Already-present files are used as-is, so the bucket is only hit on first
// run or after a deliberate local cleanup.
type s3Store struct {
	client   *s3.Client
	bucket   string
	prefix   string
	localDir string
}

func createS3Store(args interface{}) (Store, error) {
	cfg := &s3Config{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("model_store.data.bucket is required for s3")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.LocalDir == "" {
		cfg.LocalDir = "./models"
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.SecretID != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.SecretID, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &s3Store{
		client:   client,
		bucket:   cfg.Bucket,
		prefix:   strings.Trim(cfg.Prefix, "/"),
		localDir: cfg.LocalDir,
	}, nil
}

func (s *s3Store) Resolve(ctx context.Context, p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if _, err := os.Stat(p); err == nil {
		return p, nil
	}
	name := filepath.Base(p)
	key := name
	if s.prefix != "" {
		key = path.Join(s.prefix, name)
	}
	local := filepath.Join(s.localDir, name)
	if _, err := os.Stat(local); err == nil {
		return local, nil
	}
	if err := os.MkdirAll(s.localDir, 0o755); err != nil {
		return "", err
	}
	logutil.GetLogger(ctx).Info("downloading model file",
		zap.String("bucket", s.bucket), zap.String("key", key), zap.String("dest", local))
	obj, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("fetch s3://%s/%s: %w", s.bucket, key, err)
	}
	defer obj.Body.Close()

	// Download to a temp name so a crashed transfer never leaves a truncated
	// file that later passes the exists check.
	tmp, err := os.CreateTemp(s.localDir, name+".part-*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, obj.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("download %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), local); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return local, nil
}

func init() {
	Register("s3", createS3Store)
}
