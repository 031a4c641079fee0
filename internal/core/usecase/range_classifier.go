package usecase

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/aravindkv/underwriter-review/internal/core/domain"
)

// InNormalRange reports whether a raw lab value falls inside its reference
// range. Lab report text is noisy, so every parse failure classifies as "not
// in range" instead of raising: same inputs always yield the same answer,
// which keeps reprocessing idempotent.
func InNormalRange(value string, rng domain.ReferenceRange) bool {
	num, ok := parseLabValue(value)
	if !ok {
		return false
	}
	return evalRange(num, rng.Normal)
}

var (
	betweenRe      = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*-\s*(\d+(?:\.\d+)?)$`)
	zeroFloorRe    = regexp.MustCompile(`^0\s*-\s*(\d+(?:\.\d+)?)$`)
	lessThanRe     = regexp.MustCompile(`^<\s*(\d+(?:\.\d+)?)$`)
	greaterEqualRe = regexp.MustCompile(`^>=\s*(\d+(?:\.\d+)?)$`)
	greaterThanRe  = regexp.MustCompile(`^>\s*(\d+(?:\.\d+)?)$`)
)

func evalRange(value float64, expr string) bool {
	rangeStr := strings.TrimSpace(expr)
	if rangeStr == "" {
		return false
	}

	if m := zeroFloorRe.FindStringSubmatch(rangeStr); m != nil {
		max, _ := strconv.ParseFloat(m[1], 64)
		return value >= 0 && value <= max
	}
	if m := betweenRe.FindStringSubmatch(rangeStr); m != nil {
		min, _ := strconv.ParseFloat(m[1], 64)
		max, _ := strconv.ParseFloat(m[2], 64)
		return value >= min && value <= max
	}
	if m := lessThanRe.FindStringSubmatch(rangeStr); m != nil {
		upper, _ := strconv.ParseFloat(m[1], 64)
		return value < upper
	}
	if m := greaterEqualRe.FindStringSubmatch(rangeStr); m != nil {
		min, _ := strconv.ParseFloat(m[1], 64)
		return value >= min
	}
	if m := greaterThanRe.FindStringSubmatch(rangeStr); m != nil {
		min, _ := strconv.ParseFloat(m[1], 64)
		return value > min
	}

	// Unsupported range shape.
	return false
}

// parseLabValue strips stray leading characters ("<0.5", "~120", leading
// zeros) before float parsing.
func parseLabValue(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	start := 0
	for start < len(s) {
		c := s[start]
		if c >= '0' && c <= '9' || c == '.' || c == '-' {
			break
		}
		start++
	}
	s = s[start:]
	s = strings.TrimLeft(s, "0")
	if s == "" || s == "." || s == "-" {
		// All zeros collapsed away; the value was zero.
		if start < len(raw) {
			return 0, strings.ContainsAny(raw, "0123456789")
		}
		return 0, false
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}

	// Drop trailing junk like units glued to the number.
	end := len(s)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c == '.' || (i == 0 && c == '-')) {
			end = i
			break
		}
	}
	num, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return num, true
}
