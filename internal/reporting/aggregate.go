package reporting

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"finpulse/internal/analysis"
	"finpulse/internal/dataset"
	apperrors "finpulse/internal/errors"
)

// Aggregation reduces the values of one bucket to a single number
type Aggregation string

const (
	AggSum  Aggregation = "sum"
	AggMean Aggregation = "mean"
)

// MonthLayout labels monthly buckets
const MonthLayout = "2006-01"

// Point is one aggregated bucket
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Count int     `json:"count"`
}

func (a Aggregation) apply(values []float64) float64 {
	if a == AggMean {
		return stat.Mean(values, nil)
	}
	return floats.Sum(values)
}

func (a Aggregation) validate() error {
	if a != AggSum && a != AggMean {
		return apperrors.NewAppValidationError(fmt.Sprintf("unknown aggregation %q", a))
	}
	return nil
}

// MonthlyTrend aggregates measure per calendar month in chronological order.
// Undefined values are skipped and months without any value are omitted.
func MonthlyTrend(ds *dataset.Dataset, measure analysis.Field, agg Aggregation) ([]Point, error) {
	if !measure.IsMeasure() {
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("%q is not a measure", measure))
	}
	if err := agg.validate(); err != nil {
		return nil, err
	}

	byMonth := make(map[string][]float64)
	ds.Each(func(_ int, tx dataset.Transaction) bool {
		if v, ok := measure.ValueOf(tx); ok {
			month := tx.Date.Format(MonthLayout)
			byMonth[month] = append(byMonth[month], v)
		}
		return true
	})

	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	// Zero-padded YYYY-MM sorts chronologically
	sort.Strings(months)

	points := make([]Point, len(months))
	for i, m := range months {
		points[i] = Point{Label: m, Value: agg.apply(byMonth[m]), Count: len(byMonth[m])}
	}
	return points, nil
}

// GroupAggregate aggregates measure per value of key, sorted by key
func GroupAggregate(ds *dataset.Dataset, key, measure analysis.Field, agg Aggregation) ([]Point, error) {
	if err := agg.validate(); err != nil {
		return nil, err
	}
	groups, _, err := analysis.Partition(ds, key, measure)
	if err != nil {
		return nil, err
	}

	points := make([]Point, len(groups))
	for i, g := range groups {
		points[i] = Point{Label: g.Key, Value: agg.apply(g.Values), Count: len(g.Values)}
	}
	return points, nil
}

// SortByValue returns a copy of points in ascending value order.
// Ties keep their label order.
func SortByValue(points []Point) []Point {
	out := make([]Point, len(points))
	copy(out, points)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Value < out[j].Value
	})
	return out
}
