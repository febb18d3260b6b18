package analysis

import (
	"fmt"
	"sort"

	"finpulse/internal/dataset"
	apperrors "finpulse/internal/errors"
)

// Group is the measure values of every record sharing one key value,
// in dataset order.
type Group struct {
	Key    string
	Values []float64
}

// Partition splits the dataset by key and collects measure values per group.
// Groups are sorted by key. Records whose measure is undefined are left out
// and counted in excluded, so the group sizes plus excluded equal ds.Len().
func Partition(ds *dataset.Dataset, key, measure Field) (groups []Group, excluded int, err error) {
	if !key.IsKey() {
		return nil, 0, apperrors.NewAppValidationError(fmt.Sprintf("%q is not a grouping key", key))
	}
	if !measure.IsMeasure() {
		return nil, 0, apperrors.NewAppValidationError(fmt.Sprintf("%q is not a measure", measure))
	}

	byKey := make(map[string][]float64)
	ds.Each(func(_ int, tx dataset.Transaction) bool {
		v, ok := measure.ValueOf(tx)
		if !ok {
			excluded++
			return true
		}
		k := key.KeyOf(tx)
		byKey[k] = append(byKey[k], v)
		return true
	})

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	groups = make([]Group, len(keys))
	for i, k := range keys {
		groups[i] = Group{Key: k, Values: byKey[k]}
	}
	return groups, excluded, nil
}

func groupValues(groups []Group) [][]float64 {
	out := make([][]float64, len(groups))
	for i, g := range groups {
		out[i] = g.Values
	}
	return out
}
