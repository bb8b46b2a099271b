// Package grades renders grade-point restrictions as short qualifying phrases.
package grades

import (
	"fmt"
	"math"

	"github.com/cvickery/rules-archive/internal/models"
)

const epsilon = 1e-6

type threshold struct {
	points float64
	letter string
}

// letters must stay in ascending order: a value takes the first threshold at or above it.
var letters = []threshold{
	{0.7, "D-"},
	{1.0, "D"},
	{1.3, "D+"},
	{1.7, "C-"},
	{2.0, "C"},
	{2.3, "C+"},
	{2.7, "B-"},
	{3.0, "B"},
	{3.3, "B+"},
	{3.7, "A-"},
	{4.0, "A"},
}

// Letter maps a grade-point value to its letter grade.
func Letter(points float64) (string, error) {
	for _, t := range letters {
		if points <= t.points+epsilon {
			return t.letter, nil
		}
	}
	return "", fmt.Errorf("%w: %.2f is above %s", models.ErrInvalidGradeRange, points, letters[len(letters)-1].letter)
}

// Encode describes the grade range a source course must satisfy, or "" when any grade will do.
func Encode(minGrade, maxGrade float64) (string, error) {
	if math.IsNaN(minGrade) || math.IsNaN(maxGrade) ||
		minGrade < -epsilon || maxGrade > models.MaxGPA+epsilon || minGrade > maxGrade+epsilon {
		return "", fmt.Errorf("%w: min %.2f, max %.2f", models.ErrInvalidGradeRange, minGrade, maxGrade)
	}

	noMin := math.Abs(minGrade) < epsilon
	noMax := math.Abs(maxGrade-models.MaxGPA) < epsilon

	switch {
	case noMin && noMax:
		return "", nil
	case noMin:
		upper, err := Letter(maxGrade)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(" [below %s]", upper), nil
	case noMax:
		lower, err := Letter(minGrade)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(" [%s or above]", lower), nil
	}

	lower, err := Letter(minGrade)
	if err != nil {
		return "", err
	}
	upper, err := Letter(maxGrade)
	if err != nil {
		return "", err
	}
	if lower == upper {
		return fmt.Sprintf(" [exactly %s]", lower), nil
	}
	return fmt.Sprintf(" [between %s and %s]", lower, upper), nil
}
