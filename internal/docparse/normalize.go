package docparse

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidCurrency = errors.New("invalid currency amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidInteger  = errors.New("invalid integer")
)

// Tried in order; the first form found in the input decides.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`),     // YYYY-MM-DD
	regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`), // MM/DD/YYYY
	regexp.MustCompile(`(\d{1,2})-(\d{1,2})-(\d{4})`), // MM-DD-YYYY
}

var currencyStripper = strings.NewReplacer("$", "", ",", "")

// ParseCurrency turns "$77,890.00" into an exact decimal. The dollar sign and
// thousands separators are dropped before parsing.
func ParseCurrency(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(currencyStripper.Replace(s))
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidCurrency, s)
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q: %w", ErrInvalidCurrency, s, err)
	}
	return d, nil
}

// ParseDate accepts YYYY-MM-DD, MM/DD/YYYY and MM-DD-YYYY. The result is a UTC
// calendar date. Impossible dates such as 2024-02-30 are rejected.
func ParseDate(s string) (time.Time, error) {
	for _, re := range datePatterns {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		var y, mo, d int
		if len(m[1]) == 4 {
			y, mo, d = atoi(m[1]), atoi(m[2]), atoi(m[3])
		} else {
			mo, d, y = atoi(m[1]), atoi(m[2]), atoi(m[3])
		}
		t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
		if t.Year() != y || int(t.Month()) != mo || t.Day() != d {
			return time.Time{}, fmt.Errorf("%w: %q is not a calendar date", ErrInvalidDate, s)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// ParseInt parses a whole number, ignoring surrounding whitespace.
func ParseInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidInteger, s)
	}
	return n, nil
}

// atoi is only called on regexp digit groups.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
