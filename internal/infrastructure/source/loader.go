package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"inflammation-planner/internal/pkg/common"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ObjectGetter S3 讀取介面
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Loader 開啟輸入資料表，支援本機路徑、file://、http(s):// 與 s3://
type Loader struct {
	http   *resty.Client
	region string

	s3Once sync.Once
	s3     ObjectGetter
	s3Err  error
}

// Option 載入器選項
type Option func(*Loader)

// WithS3Client 使用指定的 S3 客戶端
func WithS3Client(getter ObjectGetter) Option {
	return func(l *Loader) {
		l.s3 = getter
		l.s3Once.Do(func() {})
	}
}

// WithHTTPClient 使用指定的 resty 客戶端
func WithHTTPClient(client *resty.Client) Option {
	return func(l *Loader) { l.http = client }
}

// NewLoader 創建載入器
func NewLoader(timeout time.Duration, region string, opts ...Option) *Loader {
	l := &Loader{
		http: resty.New().
			SetTimeout(timeout).
			SetHeader("User-Agent", "inflammation-planner"),
		region: region,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Open 開啟資料表；任何失敗皆為 DataUnavailable
func (l *Loader) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, common.Wrap(common.ErrDataUnavailable, fmt.Errorf("empty data location"))
	}

	start := time.Now()
	var (
		rc  io.ReadCloser
		err error
	)
	switch {
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		rc, err = l.openHTTP(ctx, uri)
	case strings.HasPrefix(uri, "s3://"):
		rc, err = l.openS3(ctx, uri)
	default:
		rc, err = os.Open(strings.TrimPrefix(uri, "file://"))
	}
	if err != nil {
		return nil, common.Wrap(common.ErrDataUnavailable, fmt.Errorf("open %s: %w", uri, err))
	}

	common.LogDebug("資料來源已開啟", zap.String("uri", uri), zap.Duration("耗時", time.Since(start)))
	return rc, nil
}

// Exists 判斷本機檔案是否存在；遠端位置一律視為存在
func (l *Loader) Exists(uri string) bool {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return false
	}
	if strings.Contains(uri, "://") && !strings.HasPrefix(uri, "file://") {
		return true
	}
	_, err := os.Stat(strings.TrimPrefix(uri, "file://"))
	return err == nil
}

func (l *Loader) openHTTP(ctx context.Context, uri string) (io.ReadCloser, error) {
	resp, err := l.http.R().
		SetContext(ctx).
		Get(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode())
	}
	return io.NopCloser(bytes.NewReader(resp.Body())), nil
}

func (l *Loader) openS3(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, key, err := parseS3URI(uri)
	if err != nil {
		return nil, err
	}

	l.s3Once.Do(func() {
		cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(l.region))
		if err != nil {
			l.s3Err = fmt.Errorf("unable to load AWS config for S3: %w", err)
			return
		}
		l.s3 = s3.NewFromConfig(cfg)
	})
	if l.s3Err != nil {
		return nil, l.s3Err
	}

	out, err := l.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	return out.Body, nil
}

// parseS3URI 解析 s3://bucket/key
func parseS3URI(uri string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(uri, "s3://")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid s3 location %q", uri)
	}
	return parts[0], parts[1], nil
}
