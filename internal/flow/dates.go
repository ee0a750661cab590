package flow

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const isoDate = "2006-01-02"

// dobLayouts are tried in priority order. Day-first numeric forms come
// before ISO; non-padded verbs also accept zero-padded components.
var dobLayouts = []string{
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"2006-1-2",
}

// lenientLayouts are the last-resort natural-language forms, day-first
// where the form is ambiguous.
var lenientLayouts = []string{
	"2 January 2006",
	"2 Jan 2006",
	"January 2 2006",
	"Jan 2 2006",
	"2/1/06",
	"2-1-06",
	"2.1.06",
}

// parseDOB normalizes a birth-date string to ISO YYYY-MM-DD form. Returns
// false when no supported format matches.
func parseDOB(input string) (string, bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", false
	}
	for _, layout := range dobLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(isoDate), true
		}
	}
	return parseLenientDayFirst(s)
}

func parseLenientDayFirst(s string) (string, bool) {
	cleaned := strings.ReplaceAll(s, ",", " ")
	fields := strings.Fields(cleaned)
	for i, f := range fields {
		fields[i] = capitalizeMonth(f)
	}
	normalized := strings.Join(fields, " ")
	for _, layout := range lenientLayouts {
		if t, err := time.Parse(layout, normalized); err == nil {
			return t.Format(isoDate), true
		}
	}
	return "", false
}

// capitalizeMonth title-cases alphabetic tokens so time.Parse month names
// match regardless of input casing.
func capitalizeMonth(token string) string {
	if token == "" || !isAlpha(token) {
		return token
	}
	lower := strings.ToLower(token)
	return strings.ToUpper(lower[:1]) + lower[1:]
}

func isAlpha(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

const (
	minGestationalWeeks = 24
	maxGestationalWeeks = 42
)

var digitRun = regexp.MustCompile(`\d+`)

// extractGestationalWeeks takes the first run of digits anywhere in the
// message and accepts it only within the plausible premature range.
func extractGestationalWeeks(input string) (int, bool) {
	match := digitRun.FindString(input)
	if match == "" {
		return 0, false
	}
	weeks, err := strconv.Atoi(match)
	if err != nil || weeks < minGestationalWeeks || weeks > maxGestationalWeeks {
		return 0, false
	}
	return weeks, true
}
