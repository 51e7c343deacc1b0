package utils

import (
	"errors"
	"testing"

	"daylist/store"
)

func TestValidateTitle(t *testing.T) {
	tests := []struct {
		title   string
		wantErr bool
	}{
		{"Buy milk", false},
		{"  padded  ", false},
		{"", true},
		{"   ", true},
		{"\t\n", true},
	}
	for _, tc := range tests {
		err := ValidateTitle(tc.title)
		if (err != nil) != tc.wantErr {
			t.Errorf("ValidateTitle(%q) error = %v, wantErr %v", tc.title, err, tc.wantErr)
		}
		if err != nil && !errors.Is(err, ErrEmptyTitle) {
			t.Errorf("ValidateTitle(%q) error should wrap ErrEmptyTitle, got %v", tc.title, err)
		}
	}
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in      string
		want    store.Priority
		wantErr bool
	}{
		{"", store.PriorityMedium, false},
		{"l", store.PriorityLow, false},
		{"low", store.PriorityLow, false},
		{"LOW", store.PriorityLow, false},
		{"m", store.PriorityMedium, false},
		{"med", store.PriorityMedium, false},
		{"medium", store.PriorityMedium, false},
		{"h", store.PriorityHigh, false},
		{"High", store.PriorityHigh, false},
		{" high ", store.PriorityHigh, false},
		{"urgent", "", true},
		{"0", "", true},
	}
	for _, tc := range tests {
		got, err := ParsePriority(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParsePriority(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("ParsePriority(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizePriority(t *testing.T) {
	if got := NormalizePriority(store.PriorityHigh); got != store.PriorityHigh {
		t.Errorf("valid priority changed: %q", got)
	}
	if got := NormalizePriority(store.Priority("urgent")); got != store.PriorityMedium {
		t.Errorf("unknown priority = %q, want medium", got)
	}
	if got := NormalizePriority(""); got != store.PriorityMedium {
		t.Errorf("empty priority = %q, want medium", got)
	}
}
