package model

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		kind     ItemKind
		from, to ItemStatus
		want     bool
	}{
		{KindLost, ItemStatusActive, ItemStatusPending, true},
		{KindFound, ItemStatusPending, ItemStatusActive, true},
		{KindFound, ItemStatusPending, ItemStatusClaimed, true},
		{KindLost, ItemStatusClaimed, ItemStatusReturned, true},
		{KindFound, ItemStatusClaimed, ItemStatusReturned, false},
		{KindLost, ItemStatusReturned, ItemStatusArchived, true},
		{KindLost, ItemStatusArchived, ItemStatusActive, true},
		{KindLost, ItemStatusPending, ItemStatusArchived, false},
		{KindLost, ItemStatusActive, ItemStatusClaimed, false},
		{KindFound, ItemStatusArchived, ItemStatusDeleted, true},
		{KindLost, ItemStatusDeleted, ItemStatusActive, false},
		{KindLost, ItemStatusDeleted, ItemStatusDeleted, false},
	}

	for _, tt := range tests {
		got := CanTransition(tt.kind, tt.from, tt.to)
		if got != tt.want {
			t.Errorf("CanTransition(%s, %s, %s) = %v, want %v", tt.kind, tt.from, tt.to, got, tt.want)
		}
	}
}

func TestParseItemRef(t *testing.T) {
	ref, err := ParseItemRef("lost:12")
	if err != nil {
		t.Fatalf("ParseItemRef: %v", err)
	}
	if ref.Kind != KindLost || ref.ID != 12 {
		t.Errorf("expected lost:12, got %+v", ref)
	}
	if ref.String() != "lost:12" {
		t.Errorf("expected round trip to lost:12, got %q", ref.String())
	}

	for _, bad := range []string{"", "12", "stolen:3", "found:", "found:x", "found:-1", "found:0"} {
		if _, err := ParseItemRef(bad); err == nil {
			t.Errorf("ParseItemRef(%q): expected error", bad)
		}
	}
}
