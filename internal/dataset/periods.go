package dataset

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
)

// Period is one independently seeded slice of a multi-period dataset
type Period struct {
	Label string    `json:"label"`
	Dates DateRange `json:"dates"`
	Seed  int64     `json:"seed"`
}

// YearlyPeriods returns count calendar years starting at firstYear,
// each seeded with its own year number.
func YearlyPeriods(firstYear, count int) []Period {
	periods := make([]Period, 0, count)
	for year := firstYear; year < firstYear+count; year++ {
		periods = append(periods, Period{
			Label: strconv.Itoa(year),
			Dates: DateRange{
				Start: time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
				End:   time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC),
			},
			Seed: int64(year),
		})
	}
	return periods
}

// SynthesizePeriods runs Synthesize once per period with the template's
// domains, ranges and record count, replacing dates and seed with the
// period's own. Periods are generated concurrently and concatenated in
// the order given, so each slice is identical to a standalone run.
func SynthesizePeriods(ctx context.Context, periods []Period, template Params, names NameProvider, maxConcurrency int) (*Dataset, error) {
	if len(periods) == 0 {
		return nil, fmt.Errorf("no periods to synthesize")
	}

	// Reject bad template parameters once, before any goroutine starts
	for _, period := range periods {
		if err := forPeriod(template, period).Validate(); err != nil {
			return nil, fmt.Errorf("period %s: %w", period.Label, err)
		}
	}

	parts := make([]*Dataset, len(periods))
	g, gctx := errgroup.WithContext(ctx)
	if maxConcurrency > 0 {
		g.SetLimit(maxConcurrency)
	}

	for i, period := range periods {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			part, err := Synthesize(forPeriod(template, period), names)
			if err != nil {
				return fmt.Errorf("period %s: %w", period.Label, err)
			}
			parts[i] = part
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Concat(parts...), nil
}

func forPeriod(template Params, period Period) Params {
	p := template
	p.Dates = period.Dates
	p.Seed = period.Seed
	return p
}
