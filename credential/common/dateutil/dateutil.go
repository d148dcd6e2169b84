// Package dateutil parses credential dates and applies the expiry and
// future-date rules.
package dateutil

import (
	"fmt"
	"strings"
	"time"

	"github.com/pilacorp/go-vc-verifier/credential/common/constant"
)

// IsValidFormat reports whether value matches the strict credential date format.
func IsValidFormat(value string) bool {
	return constant.DateRegex.MatchString(value)
}

// Parse parses an ISO-8601 date-time. Lowercase 'z' and leap second 60 are tolerated.
func Parse(value string) (time.Time, error) {
	if !IsValidFormat(value) {
		return time.Time{}, fmt.Errorf("invalid date format: %q", value)
	}
	normalized := value
	if strings.HasSuffix(normalized, "z") {
		normalized = strings.TrimSuffix(normalized, "z") + "Z"
	}
	// time.Parse rejects second 60; clamp leap seconds to 59.
	if len(normalized) > 19 && normalized[17:19] == "60" {
		normalized = normalized[:17] + "59" + normalized[19:]
	}
	t, err := time.Parse(time.RFC3339Nano, normalized)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date %q: %w", value, err)
	}
	return t, nil
}

// IsFutureDate reports whether t lies beyond now plus the allowed clock skew.
// A date exactly at now+3000ms is not future.
func IsFutureDate(t, now time.Time) bool {
	return t.After(now.Add(constant.FutureDateTolerance))
}

// IsPastDate reports whether t is strictly before now.
func IsPastDate(t, now time.Time) bool {
	return t.Before(now)
}

// IsFutureDateString parses value and applies IsFutureDate.
func IsFutureDateString(value string, now time.Time) (bool, error) {
	t, err := Parse(value)
	if err != nil {
		return false, err
	}
	return IsFutureDate(t, now), nil
}

// IsExpired parses value and reports whether it is in the past.
func IsExpired(value string, now time.Time) (bool, error) {
	t, err := Parse(value)
	if err != nil {
		return false, err
	}
	return IsPastDate(t, now), nil
}

// Clock returns the current time. Components take a Clock so tests can pin time.
type Clock func() time.Time

// SystemClock is the default Clock.
func SystemClock() time.Time {
	return time.Now().UTC()
}
