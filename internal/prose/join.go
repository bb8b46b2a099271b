// Package prose joins phrases into English lists.
package prose

import (
	"fmt"
	"strings"

	"github.com/cvickery/rules-archive/internal/models"
)

// Join lists items the way a sentence would: "A", "A and B", "A, B, and C".
func Join(items []string, conjunction string) (string, error) {
	if conjunction != "and" && conjunction != "or" {
		return "", fmt.Errorf("%w: %q", models.ErrInvalidConjunction, conjunction)
	}

	s := strings.Join(items, ", ")
	switch strings.Count(s, ",") {
	case 0:
		return s, nil
	case 1:
		return strings.Replace(s, ",", " "+conjunction, 1), nil
	default:
		i := strings.LastIndex(s, ",")
		return s[:i+1] + " " + conjunction + s[i+1:], nil
	}
}
