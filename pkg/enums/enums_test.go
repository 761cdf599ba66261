package enums

import "testing"

func TestParseDisplayType(t *testing.T) {
	for _, raw := range []string{"buttons", "dropdown", "colors", "images"} {
		got, err := ParseDisplayType(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got.String() != raw {
			t.Fatalf("expected %q got %q", raw, got)
		}
	}
	if _, err := ParseDisplayType("radio"); err == nil {
		t.Fatalf("expected error for unknown display type")
	}
}

func TestInputTypeValidity(t *testing.T) {
	if !InputTypeImages.IsValid() {
		t.Fatalf("images should be valid")
	}
	if InputType("checkbox").IsValid() {
		t.Fatalf("checkbox should be invalid")
	}
}

func TestReviewStatusDecision(t *testing.T) {
	tests := []struct {
		status   ReviewStatus
		decision bool
	}{
		{ReviewStatusPending, false},
		{ReviewStatusApproved, true},
		{ReviewStatusRejected, true},
		{ReviewStatus("archived"), false},
	}
	for _, tt := range tests {
		if got := tt.status.IsDecision(); got != tt.decision {
			t.Fatalf("%s: expected %v got %v", tt.status, tt.decision, got)
		}
	}
}

func TestModerationDecisionAllows(t *testing.T) {
	if !ModerationSkipped.Allows() || !ModerationApproved.Allows() {
		t.Fatalf("approved and skipped uploads should be allowed")
	}
	if ModerationRejected.Allows() {
		t.Fatalf("rejected uploads must not be allowed")
	}
}
