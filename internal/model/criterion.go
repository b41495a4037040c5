package model

import (
	"errors"
	"fmt"
)

// ErrInvalidCriterion is returned when a sort criterion is not one of the known values.
var ErrInvalidCriterion = errors.New("invalid search criterion")

// Criterion selects the order in which cached repositories are paged.
type Criterion string

const (
	CriterionStars   Criterion = "stars"
	CriterionForks   Criterion = "forks"
	CriterionUpdated Criterion = "updated"
	CriterionName    Criterion = "name"
	// CriterionRank keeps the order in which the remote source returned results.
	CriterionRank Criterion = "rank"

	DefaultCriterion = CriterionStars
)

// Criteria lists every supported criterion.
var Criteria = []Criterion{CriterionStars, CriterionForks, CriterionUpdated, CriterionName, CriterionRank}

// ParseCriterion validates s. An empty string yields DefaultCriterion.
func ParseCriterion(s string) (Criterion, error) {
	if s == "" {
		return DefaultCriterion, nil
	}
	for _, c := range Criteria {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCriterion, s)
}
