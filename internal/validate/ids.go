package validate

import (
	"strconv"
	"strings"

	"github.com/roach88/storefront/internal/domain"
)

// ID parses a positive integer record ID from a path or form value.
func ID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalid("id", "Invalid ID")
	}
	return id, nil
}

// PageNumber parses the ?page= query value; anything unparsable is page 1.
func PageNumber(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func trim(s string) string {
	return strings.TrimSpace(s)
}
