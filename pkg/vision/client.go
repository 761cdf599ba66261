package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/gcp"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"google.golang.org/api/option"
	visionapi "google.golang.org/api/vision/v1"
)

const safeSearchFeature = "SAFE_SEARCH_DETECTION"

// Likelihood values returned by SafeSearch, ordered from least to most likely.
const (
	LikelihoodUnknown      = "UNKNOWN"
	LikelihoodVeryUnlikely = "VERY_UNLIKELY"
	LikelihoodUnlikely     = "UNLIKELY"
	LikelihoodPossible     = "POSSIBLE"
	LikelihoodLikely       = "LIKELY"
	LikelihoodVeryLikely   = "VERY_LIKELY"
)

// SafeSearch is the per-category likelihood for one image.
type SafeSearch struct {
	Adult    string
	Violence string
	Racy     string
	Medical  string
	Spoof    string
}

// ImageError is returned when the API rejects the image itself (bad format,
// too large) rather than failing as a service.
type ImageError struct {
	Code    int64
	Message string
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("vision rejected image (code %d): %s", e.Code, e.Message)
}

// Client wraps the Cloud Vision images:annotate endpoint.
type Client struct {
	service *visionapi.Service
}

// NewClient returns nil, nil when no credentials are configured so callers can
// treat moderation as disabled.
func NewClient(ctx context.Context, gcpCfg config.GCPConfig, logg *logger.Logger, extra ...option.ClientOption) (*Client, error) {
	opts := gcp.ClientOptions(gcpCfg)
	if len(opts) == 0 && len(extra) == 0 {
		if logg != nil {
			logg.Warn(ctx, "vision credentials missing; image moderation disabled")
		}
		return nil, nil
	}
	svc, err := visionapi.NewService(ctx, append(opts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("creating vision service: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, "vision client initialized")
	}
	return &Client{service: svc}, nil
}

// DetectSafeSearch runs SafeSearch detection on the raw image bytes.
func (c *Client) DetectSafeSearch(ctx context.Context, image []byte) (*SafeSearch, error) {
	if c == nil || c.service == nil {
		return nil, errors.New("vision client not initialized")
	}
	req := &visionapi.BatchAnnotateImagesRequest{
		Requests: []*visionapi.AnnotateImageRequest{{
			Image:    &visionapi.Image{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []*visionapi.Feature{{Type: safeSearchFeature}},
		}},
	}
	resp, err := c.service.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("annotate image: %w", err)
	}
	if len(resp.Responses) == 0 {
		return nil, errors.New("annotate image: empty response")
	}
	first := resp.Responses[0]
	if first.Error != nil && first.Error.Code != 0 {
		return nil, &ImageError{Code: first.Error.Code, Message: strings.TrimSpace(first.Error.Message)}
	}
	ann := first.SafeSearchAnnotation
	if ann == nil {
		return &SafeSearch{Adult: LikelihoodUnknown, Violence: LikelihoodUnknown, Racy: LikelihoodUnknown, Medical: LikelihoodUnknown, Spoof: LikelihoodUnknown}, nil
	}
	return &SafeSearch{
		Adult:    ann.Adult,
		Violence: ann.Violence,
		Racy:     ann.Racy,
		Medical:  ann.Medical,
		Spoof:    ann.Spoof,
	}, nil
}

var likelihoodRank = map[string]int{
	LikelihoodVeryUnlikely: 1,
	LikelihoodUnlikely:     2,
	LikelihoodPossible:     3,
	LikelihoodLikely:       4,
	LikelihoodVeryLikely:   5,
}

// AtLeast reports whether likelihood meets threshold. UNKNOWN never does, and
// an unrecognized threshold falls back to LIKELY.
func AtLeast(likelihood, threshold string) bool {
	rank, ok := likelihoodRank[likelihood]
	if !ok {
		return false
	}
	floor, ok := likelihoodRank[threshold]
	if !ok {
		floor = likelihoodRank[LikelihoodLikely]
	}
	return rank >= floor
}
