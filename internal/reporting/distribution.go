package reporting

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"finpulse/internal/analysis"
	"finpulse/internal/dataset"
	"finpulse/internal/stats"
)

// whiskerReach is how many interquartile ranges a whisker may extend past a quartile
const whiskerReach = 1.5

// BoxStats is the five-number summary of one group with Tukey whiskers
type BoxStats struct {
	Key          string  `json:"key"`
	N            int     `json:"n"`
	Min          float64 `json:"min"`
	Q1           float64 `json:"q1"`
	Median       float64 `json:"median"`
	Q3           float64 `json:"q3"`
	Max          float64 `json:"max"`
	LowerWhisker float64 `json:"lower_whisker"`
	UpperWhisker float64 `json:"upper_whisker"`
	Outliers     int     `json:"outliers"`
}

// GroupDistribution computes BoxStats of measure for every key group
func GroupDistribution(ds *dataset.Dataset, key, measure analysis.Field) ([]BoxStats, error) {
	groups, _, err := analysis.Partition(ds, key, measure)
	if err != nil {
		return nil, err
	}
	out := make([]BoxStats, len(groups))
	for i, g := range groups {
		out[i] = boxStats(g.Key, g.Values)
	}
	return out, nil
}

func boxStats(key string, values []float64) BoxStats {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	b := BoxStats{
		Key:    key,
		N:      len(sorted),
		Min:    sorted[0],
		Q1:     stat.Quantile(0.25, stat.LinInterp, sorted, nil),
		Median: stats.Median(sorted),
		Q3:     stat.Quantile(0.75, stat.LinInterp, sorted, nil),
		Max:    sorted[len(sorted)-1],
	}

	iqr := b.Q3 - b.Q1
	low, high := b.Q1-whiskerReach*iqr, b.Q3+whiskerReach*iqr
	b.LowerWhisker, b.UpperWhisker = b.Max, b.Min
	for _, v := range sorted {
		if v < low || v > high {
			b.Outliers++
			continue
		}
		if v < b.LowerWhisker {
			b.LowerWhisker = v
		}
		if v > b.UpperWhisker {
			b.UpperWhisker = v
		}
	}
	return b
}
