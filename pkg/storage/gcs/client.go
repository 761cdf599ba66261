package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/gcp"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"
)

const (
	pingTimeout         = 5 * time.Second
	defaultPublicBase   = "https://storage.googleapis.com"
	defaultCacheControl = "public, max-age=31536000"
)

var errClientNotInitialized = errors.New("gcs client not initialized")

// Client stores uploaded files in a single bucket through the JSON API.
type Client struct {
	service       *storage.Service
	bucket        string
	publicBaseURL string
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Object describes a stored file.
type Object struct {
	Name        string
	Bucket      string
	URL         string
	ContentType string
	Size        int64
}

// NewClient builds the storage client. Extra options are appended after the
// credential options, so tests can point it at a fake endpoint.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcpCfg config.GCPConfig, logg *logger.Logger, extra ...option.ClientOption) (*Client, error) {
	bucket := strings.TrimSpace(cfg.BucketName)
	if bucket == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	opts := append(gcp.ClientOptions(gcpCfg), extra...)
	svc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage service: %w", err)
	}

	base := strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	if base == "" {
		base = defaultPublicBase
	}

	client := &Client{service: svc, bucket: bucket, publicBaseURL: base}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", bucket), "gcs client initialized")
	}
	return client, nil
}

func (c *Client) Bucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

// Upload writes body to objectName and returns its public URL.
func (c *Client) Upload(ctx context.Context, objectName, contentType string, body io.Reader) (*Object, error) {
	if c == nil || c.service == nil {
		return nil, errClientNotInitialized
	}
	name := strings.TrimLeft(strings.TrimSpace(objectName), "/")
	if name == "" {
		return nil, errors.New("object name is required")
	}

	obj := &storage.Object{
		Name:         name,
		Bucket:       c.bucket,
		ContentType:  contentType,
		CacheControl: defaultCacheControl,
	}
	stored, err := c.service.Objects.Insert(c.bucket, obj).
		Media(body, googleapi.ContentType(contentType)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", name, err)
	}

	return &Object{
		Name:        stored.Name,
		Bucket:      c.bucket,
		URL:         c.PublicURL(stored.Name),
		ContentType: contentType,
		Size:        int64(stored.Size),
	}, nil
}

// Delete removes objectName; a missing object is not an error.
func (c *Client) Delete(ctx context.Context, objectName string) error {
	if c == nil || c.service == nil {
		return errClientNotInitialized
	}
	err := c.service.Objects.Delete(c.bucket, objectName).Context(ctx).Do()
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 404 {
		return nil
	}
	return err
}

// PublicURL returns the browser-facing URL of an object.
func (c *Client) PublicURL(objectName string) string {
	segments := strings.Split(strings.TrimLeft(objectName, "/"), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return fmt.Sprintf("%s/%s/%s", c.publicBaseURL, url.PathEscape(c.bucket), strings.Join(segments, "/"))
}

// Ping verifies the bucket exists and is readable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.service == nil {
		return errClientNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if _, err := c.service.Buckets.Get(c.bucket).Context(ctx).Do(); err != nil {
		return fmt.Errorf("gcs bucket %s unavailable: %w", c.bucket, err)
	}
	return nil
}
