package enums

// ModerationDecision is the outcome of screening an uploaded image.
type ModerationDecision string

const (
	ModerationApproved ModerationDecision = "approved"
	ModerationRejected ModerationDecision = "rejected"
	// ModerationSkipped means no moderation client was configured; the upload is treated as approved.
	ModerationSkipped ModerationDecision = "skipped"
)

// Allows reports whether the upload may be stored.
func (d ModerationDecision) Allows() bool {
	return d == ModerationApproved || d == ModerationSkipped
}
