package models

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/samber/lo"
)

var labelNumber = regexp.MustCompile(`\d+(\.\d+)?`)

func labelValue(label string) (float64, bool) {
	m := labelNumber.FindString(label)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	return f, err == nil
}

// SortedLabels returns the unit labels in reading order: by the first number
// in the label, then alphabetically. Unnumbered labels come last.
func (t Title) SortedLabels() []string {
	labels := lo.Keys(t.Units)
	sort.Slice(labels, func(i, j int) bool {
		a, aok := labelValue(labels[i])
		b, bok := labelValue(labels[j])
		switch {
		case aok && bok && a != b:
			return a < b
		case aok != bok:
			return aok
		}
		return labels[i] < labels[j]
	})
	return labels
}
