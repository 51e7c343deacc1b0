package utils

import (
	"strings"

	"daylist/store"
)

// ValidateTitle rejects empty or whitespace-only titles.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrTitleRequired()
	}
	return nil
}

// ParsePriority parses a user-supplied priority string. The empty string
// maps to the default (medium). Accepts full names and single-letter
// shorthands, case-insensitive.
func ParsePriority(s string) (store.Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return store.PriorityMedium, nil
	case "l", "low":
		return store.PriorityLow, nil
	case "m", "med", "medium":
		return store.PriorityMedium, nil
	case "h", "high":
		return store.PriorityHigh, nil
	}
	return "", ErrInvalidPriority(s)
}

// NormalizePriority maps unknown stored priority values to medium so a
// hand-edited database cannot break display or sorting.
func NormalizePriority(p store.Priority) store.Priority {
	if !p.Valid() {
		return store.PriorityMedium
	}
	return p
}
