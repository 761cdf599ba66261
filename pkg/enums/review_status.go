package enums

import "fmt"

// ReviewStatus tracks moderation of a product review.
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusApproved ReviewStatus = "approved"
	ReviewStatusRejected ReviewStatus = "rejected"
)

var validReviewStatuses = []ReviewStatus{
	ReviewStatusPending,
	ReviewStatusApproved,
	ReviewStatusRejected,
}

// String returns the literal string for the value.
func (v ReviewStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is known.
func (v ReviewStatus) IsValid() bool {
	for _, candidate := range validReviewStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseReviewStatus converts raw input into a ReviewStatus.
func ParseReviewStatus(value string) (ReviewStatus, error) {
	for _, candidate := range validReviewStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid review status %q", value)
}

// IsDecision reports whether the status is a terminal moderation decision.
func (v ReviewStatus) IsDecision() bool {
	return v == ReviewStatusApproved || v == ReviewStatusRejected
}
