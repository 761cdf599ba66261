package moderation

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/vision"
)

type safeSearchDetector interface {
	DetectSafeSearch(ctx context.Context, image []byte) (*vision.SafeSearch, error)
}

// Result is the decision for one image plus the categories that triggered a rejection.
type Result struct {
	Decision   enums.ModerationDecision `json:"decision"`
	Categories []string                 `json:"categories,omitempty"`
}

// Moderator screens uploaded images. A Moderator without a detector approves
// everything with decision skipped.
type Moderator struct {
	detector  safeSearchDetector
	threshold string
	metrics   *metrics.ModerationMetrics
	logg      *logger.Logger
}

func NewModerator(detector safeSearchDetector, m *metrics.ModerationMetrics, logg *logger.Logger) *Moderator {
	return &Moderator{detector: detector, threshold: vision.LikelihoodLikely, metrics: m, logg: logg}
}

// WithThreshold sets the lowest likelihood that rejects an image.
func (m *Moderator) WithThreshold(likelihood string) *Moderator {
	if likelihood != "" {
		m.threshold = likelihood
	}
	return m
}

// Enabled reports whether images are actually screened.
func (m *Moderator) Enabled() bool {
	return m != nil && m.detector != nil
}

// Check screens image bytes. Non-image uploads are skipped.
func (m *Moderator) Check(ctx context.Context, data []byte, mimeType string) (Result, error) {
	if !m.Enabled() || !strings.HasPrefix(strings.ToLower(mimeType), "image/") {
		m.record(enums.ModerationSkipped)
		return Result{Decision: enums.ModerationSkipped}, nil
	}

	annotation, err := m.detector.DetectSafeSearch(ctx, data)
	if err != nil {
		m.record("error")
		var imgErr *vision.ImageError
		if errors.As(err, &imgErr) {
			return Result{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "image could not be moderated").
				WithDetails(map[string]any{"reason": imgErr.Message})
		}
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "image moderation unavailable")
	}

	var flagged []string
	for category, likelihood := range map[string]string{
		"adult":    annotation.Adult,
		"violence": annotation.Violence,
		"racy":     annotation.Racy,
	} {
		if vision.AtLeast(likelihood, m.threshold) {
			flagged = append(flagged, category)
		}
	}
	if len(flagged) > 0 {
		slices.Sort(flagged)
		m.record(enums.ModerationRejected)
		if m.logg != nil {
			m.logg.Warn(m.logg.WithField(ctx, "categories", flagged), "image rejected by moderation")
		}
		return Result{Decision: enums.ModerationRejected, Categories: flagged}, nil
	}

	m.record(enums.ModerationApproved)
	return Result{Decision: enums.ModerationApproved}, nil
}

func (m *Moderator) record(decision enums.ModerationDecision) {
	if m == nil {
		return
	}
	m.metrics.IncDecision(string(decision))
}

