package prose

import (
	"testing"

	"github.com/cvickery/rules-archive/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoin(t *testing.T) {
	cases := []struct {
		items       []string
		conjunction string
		want        string
	}{
		{nil, "and", ""},
		{[]string{"A"}, "and", "A"},
		{[]string{"A", "B"}, "and", "A and B"},
		{[]string{"A", "B"}, "or", "A or B"},
		{[]string{"A", "B", "C"}, "or", "A, B, or C"},
		{[]string{"A", "B", "C", "D"}, "and", "A, B, C, and D"},
		{[]string{"CSCI 101", "CSCI 102[Inactive]"}, "and", "CSCI 101 and CSCI 102[Inactive]"},
	}
	for _, c := range cases {
		got, err := Join(c.items, c.conjunction)
		require.NoError(t, err)
		assert.Equal(t, c.want, got)
	}
}

func TestJoin_InvalidConjunction(t *testing.T) {
	for _, conjunction := range []string{"", "nor", "AND"} {
		_, err := Join([]string{"A", "B"}, conjunction)
		assert.ErrorIs(t, err, models.ErrInvalidConjunction)
	}
}
