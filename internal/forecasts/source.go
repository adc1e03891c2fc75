package forecasts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/zstd"

	"sunpump/internal/types"
)

// zstdSuffix marks forecast objects stored zstd-compressed.
const zstdSuffix = ".zst"

// Source is the origin of a forecast file. Identity is stable for the same
// underlying file and is what the Store caches against.
type Source interface {
	Identity() string
	Open(ctx context.Context) (io.ReadCloser, error)
}

// S3API abstracts the S3 GetObject call for testability.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// HTTPGetter abstracts the resilient HTTP client used for remote sources.
// *external.Client satisfies it.
type HTTPGetter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// SourceDeps carries the clients NewSource may need. Fields are only
// required for the schemes that use them.
type SourceDeps struct {
	S3   S3API
	HTTP HTTPGetter
}

// NewSource resolves a forecast URI into a Source:
//
//	/path/to/72h_forecast_results.csv   local file
//	file:///path/to/forecast.csv.zst    local file, zstd-compressed
//	s3://bucket/key.csv                 S3 object
//	https://host/forecast.csv           HTTP download
func NewSource(uri string, deps SourceDeps) (Source, error) {
	if uri == "" {
		return nil, types.NewAppError(types.ErrCodeValidationInvalidSource, "forecast source is empty", nil)
	}

	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Bare paths, including Windows drive letters.
		return &FileSource{Path: uri}, nil
	}

	switch u.Scheme {
	case "file":
		return &FileSource{Path: u.Path}, nil
	case "s3":
		if deps.S3 == nil {
			return nil, types.NewAppError(types.ErrCodeValidationInvalidSource, "s3 forecast source requires an S3 client", nil)
		}
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return nil, types.NewAppError(types.ErrCodeValidationInvalidSource,
				fmt.Sprintf("s3 forecast source %q must name a bucket and key", uri), nil)
		}
		return &S3Source{Client: deps.S3, Bucket: u.Host, Key: key}, nil
	case "http", "https":
		if deps.HTTP == nil {
			return nil, types.NewAppError(types.ErrCodeValidationInvalidSource, "http forecast source requires an HTTP client", nil)
		}
		return &HTTPSource{Client: deps.HTTP, URL: uri}, nil
	}

	return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidSource,
		fmt.Sprintf("unsupported forecast source scheme %q", u.Scheme), nil,
		map[string]any{"scheme": u.Scheme})
}

// FileSource reads a forecast from the local filesystem.
type FileSource struct {
	Path string
}

func (s *FileSource) Identity() string { return "file://" + s.Path }

func (s *FileSource) Open(_ context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, types.NewAppErrorWithDetails(types.ErrCodeNotFoundForecast,
				"forecast file not found", err, map[string]any{"path": s.Path})
		}
		return nil, types.NewAppError(types.ErrCodeUpstreamForecast, "failed to open forecast file", err)
	}
	return maybeDecompress(s.Path, f)
}

// S3Source reads a forecast object from S3.
type S3Source struct {
	Client S3API
	Bucket string
	Key    string
}

func (s *S3Source) Identity() string { return "s3://" + s.Bucket + "/" + s.Key }

func (s *S3Source) Open(ctx context.Context) (io.ReadCloser, error) {
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Key),
	})
	if err != nil {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeUpstreamForecast,
			"failed to fetch forecast object", err,
			map[string]any{"bucket": s.Bucket, "key": s.Key})
	}
	return maybeDecompress(s.Key, out.Body)
}

// HTTPSource downloads a forecast over HTTP(S).
type HTTPSource struct {
	Client HTTPGetter
	URL    string
}

func (s *HTTPSource) Identity() string { return s.URL }

func (s *HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.Client.Get(ctx, s.URL)
	if err != nil {
		return nil, err
	}
	u, _ := url.Parse(s.URL)
	name := s.URL
	if u != nil {
		name = u.Path
	}
	return maybeDecompress(name, resp.Body)
}

// maybeDecompress wraps body in a zstd decoder when name ends in .zst.
func maybeDecompress(name string, body io.ReadCloser) (io.ReadCloser, error) {
	if !strings.HasSuffix(name, zstdSuffix) {
		return body, nil
	}
	dec, err := zstd.NewReader(body)
	if err != nil {
		body.Close()
		return nil, types.NewAppError(types.ErrCodeValidationMalformed, "failed to initialise zstd decoder", err)
	}
	return &zstdReadCloser{dec: dec, body: body}, nil
}

type zstdReadCloser struct {
	dec  *zstd.Decoder
	body io.Closer
}

func (z *zstdReadCloser) Read(p []byte) (int, error) { return z.dec.Read(p) }

func (z *zstdReadCloser) Close() error {
	z.dec.Close()
	return z.body.Close()
}
