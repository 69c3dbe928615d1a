package refdata

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// mockS3 serves GetObject for a fixed object map, enough to exercise
// S3Source without network access.
type mockS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	gets    []string
}

func (m *mockS3) RoundTrip(req *http.Request) (*http.Response, error) {
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	if req.Method != http.MethodGet {
		return &http.Response{StatusCode: http.StatusNotImplemented, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}, nil
	}

	m.mu.Lock()
	m.gets = append(m.gets, key)
	body, ok := m.objects[key]
	m.mu.Unlock()

	if !ok {
		msg := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message><Key>%s</Key></Error>`, key)
		return &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(strings.NewReader(msg)), Header: http.Header{"Content-Type": {"application/xml"}}}, nil
	}
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(body)), Header: http.Header{
		"Content-Length": {fmt.Sprintf("%d", len(body))},
		"Content-Type":   {"text/csv"},
		"ETag":           {"\"etag\""},
	}}, nil
}

func newMockS3Source(t *testing.T, prefix string, objects map[string][]byte) (*S3Source, *mockS3) {
	t.Helper()
	rt := &mockS3{objects: objects}
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	if err != nil {
		t.Fatalf("cfg: %v", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String("https://mock.s3.local")
		o.HTTPClient = &http.Client{Transport: rt}
		o.UsePathStyle = true
	})
	return newS3SourceWithClient(client, "refdata", prefix), rt
}

func fixtureObjects(t *testing.T, prefix string) map[string][]byte {
	t.Helper()
	out := make(map[string][]byte)
	l := DefaultLayout()
	for _, name := range []string{l.Routes, l.Tariffs, l.Margins, l.Scenarios} {
		b, err := os.ReadFile(filepath.Join("testdata", name))
		if err != nil {
			t.Fatalf("read fixture %s: %v", name, err)
		}
		out[prefix+name] = b
	}
	return out
}

func TestS3Source_Load(t *testing.T) {
	src, rt := newMockS3Source(t, "2024-q3", fixtureObjects(t, "2024-q3/"))

	store, err := Load(context.Background(), src, DefaultLayout(), nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	assertFixtureKB(t, store)

	if len(rt.gets) != 4 {
		t.Fatalf("expected 4 GetObject calls, got %d: %v", len(rt.gets), rt.gets)
	}
	if src.Describe() != "s3://refdata/2024-q3" {
		t.Fatalf("Describe() = %q", src.Describe())
	}
}

func TestS3Source_MissingKey(t *testing.T) {
	src, _ := newMockS3Source(t, "", map[string][]byte{})

	_, err := src.Open(context.Background(), "outbound_routes.csv")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestNewS3Source(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "SECRET")

	if _, err := NewS3Source(context.Background(), S3Config{}); err == nil {
		t.Fatalf("expected error without bucket")
	}
	src, err := NewS3Source(context.Background(), S3Config{Bucket: "bkt", Endpoint: "https://minio.local:9000", PathStyle: true})
	if err != nil {
		t.Fatalf("NewS3Source: %v", err)
	}
	if src.Describe() != "s3://bkt" {
		t.Fatalf("Describe() = %q", src.Describe())
	}
}
