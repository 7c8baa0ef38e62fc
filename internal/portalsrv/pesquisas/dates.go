package pesquisas

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	isoDate     = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	brDate      = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	slashedDate = regexp.MustCompile(`^(\d{4})/(\d{1,2})/(\d{1,2})$`)
)

// NormalizeDate accepts YYYY-MM-DD, DD/MM/YYYY and YYYY/MM/DD and returns the
// canonical ISO date string. Any other shape, including an empty value,
// reports ok=false.
func NormalizeDate(raw string) (string, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", false
	}

	if isoDate.MatchString(value) {
		return value, true
	}

	if m := brDate.FindStringSubmatch(value); m != nil {
		return isoString(m[3], m[2], m[1]), true
	}

	if m := slashedDate.FindStringSubmatch(value); m != nil {
		return isoString(m[1], m[2], m[3]), true
	}

	return "", false
}

func isoString(year, month, day string) string {
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	return fmt.Sprintf("%s-%02d-%02d", year, m, d)
}
