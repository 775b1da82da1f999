package extraction

import (
	"strings"
	"unicode/utf8"
)

// Warning codes.
const (
	WarnDuplicateText = "duplicate_text"
	WarnPlaceholder   = "placeholder"
	WarnInvalidDate   = "invalid_date"
	WarnUnknownLabel  = "unknown_activity_label"
)

// minOverlapRunes is the shortest sentence treated as a verbatim copy.
const minOverlapRunes = 8

// Warning flags a value for operator review. Warnings never change data.
type Warning struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

var placeholderWords = map[string]struct{}{
	"なし":   {},
	"特になし": {},
	"無し":   {},
	"none": {},
	"n/a":  {},
	"na":   {},
	"-":    {},
	"ー":    {},
	"―":    {},
}

var placeholderFields = []string{
	FieldCurrentIssues,
	FieldCompetitorInfo,
	FieldNextActionDate,
	FieldNextActivityType,
}

// FindOverlaps flags sentences of current_issues and competitor_info that
// also appear verbatim in meeting_summary, and placeholder words written into
// fields that should be left empty instead.
func FindOverlaps(rec ActivityRecord) []Warning {
	var warnings []Warning
	for _, key := range []string{FieldCurrentIssues, FieldCompetitorInfo} {
		for _, sentence := range splitSentences(*rec.field(key)) {
			if utf8.RuneCountInString(sentence) < minOverlapRunes {
				continue
			}
			if strings.Contains(rec.MeetingSummary, sentence) {
				warnings = append(warnings, Warning{
					Field:   key,
					Code:    WarnDuplicateText,
					Message: "repeats meeting_summary verbatim: " + sentence,
				})
			}
		}
	}
	for _, key := range placeholderFields {
		if IsPlaceholder(*rec.field(key)) {
			warnings = append(warnings, Warning{
				Field:   key,
				Code:    WarnPlaceholder,
				Message: "placeholder value should be left empty",
			})
		}
	}
	return warnings
}

// IsPlaceholder reports whether s is a filler word standing in for "nothing".
func IsPlaceholder(s string) bool {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, "。.")
	_, ok := placeholderWords[strings.ToLower(s)]
	return ok
}

func splitSentences(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case '。', '！', '？', '!', '?', '\n':
			return true
		}
		return false
	})
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
