// Package formatting converts between byte counts and sizes like "10MB",
// and recovers JSON from model output.
package formatting

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

const kib = 1024

// Binary unit suffixes in ascending order. Each step is 1024x the last.
var units = [...]string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}

// FormatBytes renders n in the largest unit that keeps the value at or
// above 1, with the given number of decimals.
func FormatBytes(n int64, precision int) string {
	precision = max(precision, 0)

	v := math.Abs(float64(n))
	i := 0
	for v >= kib && i < len(units)-1 {
		v /= kib
		i++
	}
	if n < 0 {
		v = -v
	}
	if i == 0 {
		return strconv.FormatInt(n, 10) + " B"
	}
	return strconv.FormatFloat(v, 'f', precision, 64) + " " + units[i]
}

// ParseBytes reads a non-negative size such as "512", "1.5 KB" or "50mb".
// A missing unit means bytes.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty byte size")
	}

	split := strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.'
	})
	num, unit := s, ""
	if split >= 0 {
		num, unit = s[:split], strings.TrimSpace(s[split:])
	}
	if num == "" {
		return 0, fmt.Errorf("byte size %q has no number", s)
	}

	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("byte size %q: %w", s, err)
	}

	scale := 1.0
	if unit != "" {
		i := indexUnit(unit)
		if i < 0 {
			return 0, fmt.Errorf("byte size %q: unknown unit %q", s, unit)
		}
		scale = math.Pow(kib, float64(i))
	}

	total := v * scale
	if total > math.MaxInt64 {
		return 0, fmt.Errorf("byte size %q overflows", s)
	}
	return int64(total), nil
}

func indexUnit(unit string) int {
	for i, u := range units {
		if strings.EqualFold(u, unit) {
			return i
		}
	}
	return -1
}
