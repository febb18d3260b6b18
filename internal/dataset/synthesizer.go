package dataset

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// pcgIncrement is the fixed second PCG word; the seed supplies the first
const pcgIncrement = 0x9e3779b97f4a7c15

// Synthesize produces exactly p.RecordCount transactions.
//
// Randomness comes from a generator owned by this call and seeded from p.Seed,
// so identical parameters always yield an identical dataset. Draws happen
// column by column (regions, products, revenues, costs), and names come from
// the provider with the same seed without touching the numeric stream.
func Synthesize(p Params, names NameProvider) (*Dataset, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if names == nil {
		names = FakerNames{}
	}

	n := p.RecordCount
	rng := rand.New(rand.NewPCG(uint64(p.Seed), pcgIncrement))

	dates := EvenlySpacedDates(p.Dates, n)
	regions := choose(rng, p.Regions, n)
	products := choose(rng, p.Products, n)
	revenues := uniform(rng, p.Revenue, n)
	costs := uniform(rng, p.Cost, n)

	people := names.Names(uint64(p.Seed), n)
	if len(people) != n {
		return nil, fmt.Errorf("name provider returned %d names, want %d", len(people), n)
	}

	records := make([]Transaction, n)
	for i := range records {
		records[i] = NewTransaction(dates[i], regions[i], products[i], revenues[i], costs[i], people[i])
	}
	return &Dataset{records: records}, nil
}

// EvenlySpacedDates spreads n instants across the inclusive range and
// truncates each to its calendar day. The first equals Start and, for n > 1,
// the last equals End.
func EvenlySpacedDates(r DateRange, n int) []time.Time {
	dates := make([]time.Time, n)
	if n == 0 {
		return dates
	}
	start := r.Start.UTC()
	if n == 1 {
		dates[0] = truncateToDay(start)
		return dates
	}

	total := r.End.UTC().Sub(start)
	intervals := time.Duration(n - 1)
	step := total / intervals
	rem := total % intervals
	for i := range dates {
		k := time.Duration(i)
		// step*k + rem*k/intervals never overflows where total*k could
		offset := step*k + rem*k/intervals
		dates[i] = truncateToDay(start.Add(offset))
	}
	return dates
}

func choose(rng *rand.Rand, domain []string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = domain[rng.IntN(len(domain))]
	}
	return out
}

func uniform(rng *rand.Rand, r Range, n int) []float64 {
	out := make([]float64, n)
	width := r.High - r.Low
	for i := range out {
		out[i] = Round2(r.Low + width*rng.Float64())
	}
	return out
}
