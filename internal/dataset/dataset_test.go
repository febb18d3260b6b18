package dataset

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "finpulse/internal/errors"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TestSynthesize_Deterministic checks the key contract: same seed, same dataset
func TestSynthesize_Deterministic(t *testing.T) {
	params := DefaultParams()

	first, err := Synthesize(params, FakerNames{})
	require.NoError(t, err)
	second, err := Synthesize(params, FakerNames{})
	require.NoError(t, err)

	require.Equal(t, 500, first.Len())
	assert.True(t, first.Equal(second), "same seed must give identical datasets")

	var a, b bytes.Buffer
	require.NoError(t, first.WriteCSV(&a))
	require.NoError(t, second.WriteCSV(&b))
	assert.Equal(t, a.Bytes(), b.Bytes(), "exports must be byte-identical")

	t.Run("seed zero", func(t *testing.T) {
		params := DefaultParams()
		params.Seed = 0

		first, err := Synthesize(params, FakerNames{})
		require.NoError(t, err)
		second, err := Synthesize(params, FakerNames{})
		require.NoError(t, err)

		assert.Equal(t, first.At(0).Salesperson, second.At(0).Salesperson)
		assert.True(t, first.Equal(second))
	})
}

func TestSynthesize_DifferentSeedsDiffer(t *testing.T) {
	params := DefaultParams()
	first, err := Synthesize(params, SequenceNames{})
	require.NoError(t, err)

	params.Seed = 43
	second, err := Synthesize(params, SequenceNames{})
	require.NoError(t, err)

	assert.False(t, first.Equal(second))
}

func TestSynthesize_NoSharedState(t *testing.T) {
	params := DefaultParams()
	baseline, err := Synthesize(params, FakerNames{})
	require.NoError(t, err)

	// An unrelated call in between must not shift the next stream
	other := params
	other.Seed = 7
	_, err = Synthesize(other, FakerNames{})
	require.NoError(t, err)

	again, err := Synthesize(params, FakerNames{})
	require.NoError(t, err)
	assert.True(t, baseline.Equal(again))
}

func TestSynthesize_FieldsWithinDomains(t *testing.T) {
	params := DefaultParams()
	ds, err := Synthesize(params, FakerNames{})
	require.NoError(t, err)

	regions := map[string]bool{}
	for _, r := range params.Regions {
		regions[r] = true
	}
	products := map[string]bool{}
	for _, p := range params.Products {
		products[p] = true
	}

	for i, tx := range ds.Records() {
		assert.True(t, regions[tx.Region], "record %d region %q", i, tx.Region)
		assert.True(t, products[tx.Product], "record %d product %q", i, tx.Product)
		assert.GreaterOrEqual(t, tx.Revenue, params.Revenue.Low)
		assert.LessOrEqual(t, tx.Revenue, params.Revenue.High)
		assert.GreaterOrEqual(t, tx.Cost, params.Cost.Low)
		assert.LessOrEqual(t, tx.Cost, params.Cost.High)
		assert.NotEmpty(t, tx.Salesperson)
		assert.Equal(t, Round2(tx.Revenue), tx.Revenue)
		assert.Equal(t, Round2(tx.Cost), tx.Cost)
	}
}

func TestSynthesize_DerivedFields(t *testing.T) {
	ds, err := Synthesize(DefaultParams(), FakerNames{})
	require.NoError(t, err)

	for i, tx := range ds.Records() {
		assert.InDelta(t, tx.Revenue-tx.Cost, tx.Profit, 1e-9, "record %d profit", i)
		require.True(t, tx.MarginDefined)
		assert.Equal(t, Round2(tx.Profit/tx.Revenue*100), tx.ProfitMargin, "record %d margin", i)
	}
}

func TestSynthesize_NamesDoNotAffectNumbers(t *testing.T) {
	params := DefaultParams()
	faker, err := Synthesize(params, FakerNames{})
	require.NoError(t, err)
	seq, err := Synthesize(params, SequenceNames{})
	require.NoError(t, err)

	for i := 0; i < faker.Len(); i++ {
		a, b := faker.At(i), seq.At(i)
		assert.Equal(t, a.Region, b.Region)
		assert.Equal(t, a.Product, b.Product)
		assert.Equal(t, a.Revenue, b.Revenue)
		assert.Equal(t, a.Cost, b.Cost)
		assert.Equal(t, a.Profit, b.Profit)
	}
}

func TestSynthesize_InvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Params)
		field  string
	}{
		{"zero record count", func(p *Params) { p.RecordCount = 0 }, "record_count"},
		{"negative record count", func(p *Params) { p.RecordCount = -5 }, "record_count"},
		{"empty regions", func(p *Params) { p.Regions = nil }, "regions"},
		{"blank product", func(p *Params) { p.Products = []string{"A", " "} }, "products"},
		{"revenue low equals high", func(p *Params) { p.Revenue = Range{Low: 100, High: 100} }, "revenue"},
		{"cost low above high", func(p *Params) { p.Cost = Range{Low: 500, High: 100} }, "cost"},
		{"negative revenue", func(p *Params) { p.Revenue = Range{Low: -10, High: 100} }, "revenue"},
		{"end before start", func(p *Params) { p.Dates.End = p.Dates.Start.AddDate(0, 0, -1) }, "dates"},
		{"infinite revenue high", func(p *Params) { p.Revenue.High = math.Inf(1) }, "revenue"},
		{"NaN cost low", func(p *Params) { p.Cost.Low = math.NaN() }, "cost"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := DefaultParams()
			tt.mutate(&params)

			ds, err := Synthesize(params, FakerNames{})
			require.Error(t, err)
			assert.Nil(t, ds)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestEvenlySpacedDates(t *testing.T) {
	t.Run("endpoints are inclusive", func(t *testing.T) {
		r := DateRange{Start: day(2023, 1, 1), End: day(2023, 12, 31)}
		dates := EvenlySpacedDates(r, 500)

		require.Len(t, dates, 500)
		assert.Equal(t, day(2023, 1, 1), dates[0])
		assert.Equal(t, day(2023, 12, 31), dates[499])
		for i := 1; i < len(dates); i++ {
			assert.False(t, dates[i].Before(dates[i-1]), "dates must be non-decreasing at %d", i)
		}
	})

	t.Run("one per day when count matches span", func(t *testing.T) {
		r := DateRange{Start: day(2024, 3, 1), End: day(2024, 3, 10)}
		dates := EvenlySpacedDates(r, 10)
		for i, d := range dates {
			assert.Equal(t, day(2024, 3, 1+i), d)
		}
	})

	t.Run("single record takes the start date", func(t *testing.T) {
		r := DateRange{Start: day(2024, 6, 1), End: day(2024, 6, 30)}
		assert.Equal(t, []time.Time{day(2024, 6, 1)}, EvenlySpacedDates(r, 1))
	})

	t.Run("same start and end", func(t *testing.T) {
		r := DateRange{Start: day(2024, 6, 1), End: day(2024, 6, 1)}
		for _, d := range EvenlySpacedDates(r, 5) {
			assert.Equal(t, day(2024, 6, 1), d)
		}
	})
}

func TestProfitMargin_ZeroRevenue(t *testing.T) {
	tx := NewTransaction(day(2023, 5, 1), "North", "Product A", 0, 120.5, "x")

	assert.Equal(t, -120.5, tx.Profit)
	assert.False(t, tx.MarginDefined)

	ds := NewDataset([]Transaction{tx})
	issues := ds.QualityIssues()
	require.Len(t, issues, 1)
	assert.Equal(t, 0, issues[0].Index)
	assert.Equal(t, "profit_margin_pct", issues[0].Field)
}

func TestProfitMargin_Overflow(t *testing.T) {
	margin, ok := ProfitMargin(math.MaxFloat64, math.SmallestNonzeroFloat64)
	assert.False(t, ok)
	assert.Zero(t, margin)
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{1.005, 1.01},
		{2.675, 2.68},
		{-2.675, -2.68},
		{1234.5649, 1234.56},
		{0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Round2(tt.in), "Round2(%v)", tt.in)
	}
}

func TestDataset_Immutable(t *testing.T) {
	ds, err := Synthesize(DefaultParams(), SequenceNames{})
	require.NoError(t, err)

	records := ds.Records()
	original := ds.At(0)
	records[0].Revenue = 1
	records[0].Profit = 999

	assert.Equal(t, original, ds.At(0))
}

func TestNewDataset_RecomputesDerived(t *testing.T) {
	forged := Transaction{Date: day(2023, 1, 1), Region: "North", Product: "A", Revenue: 100, Cost: 40, Profit: 1000}
	ds := NewDataset([]Transaction{forged})

	assert.Equal(t, 60.0, ds.At(0).Profit)
	assert.Equal(t, 60.0, ds.At(0).ProfitMargin)
}

func TestConcat(t *testing.T) {
	a, err := Synthesize(Params{
		RecordCount: 3, Dates: DateRange{Start: day(2020, 1, 1), End: day(2020, 12, 31)},
		Regions: []string{"North"}, Products: []string{"A"},
		Revenue: Range{Low: 1, High: 2}, Cost: Range{Low: 0, High: 1}, Seed: 1,
	}, SequenceNames{})
	require.NoError(t, err)
	b, err := Synthesize(Params{
		RecordCount: 2, Dates: DateRange{Start: day(2021, 1, 1), End: day(2021, 12, 31)},
		Regions: []string{"South"}, Products: []string{"B"},
		Revenue: Range{Low: 1, High: 2}, Cost: Range{Low: 0, High: 1}, Seed: 2,
	}, SequenceNames{})
	require.NoError(t, err)

	joined := Concat(a, b)

	require.Equal(t, 5, joined.Len())
	assert.Equal(t, "North", joined.At(2).Region)
	assert.Equal(t, "South", joined.At(3).Region)
	assert.Equal(t, 3, a.Len(), "inputs are untouched")
}

func TestSynthesizePeriods(t *testing.T) {
	ctx := context.Background()
	template := DefaultParams()
	periods := YearlyPeriods(2020, 3)

	t.Run("yearly periods are seeded by year", func(t *testing.T) {
		require.Len(t, periods, 3)
		assert.Equal(t, "2020", periods[0].Label)
		assert.Equal(t, int64(2022), periods[2].Seed)
		assert.Equal(t, day(2021, 12, 31), periods[1].Dates.End)
	})

	t.Run("each slice matches a standalone run", func(t *testing.T) {
		extended, err := SynthesizePeriods(ctx, periods, template, FakerNames{}, 2)
		require.NoError(t, err)
		require.Equal(t, 1500, extended.Len())

		for i, period := range periods {
			standalone, err := Synthesize(forPeriod(template, period), FakerNames{})
			require.NoError(t, err)
			for j := 0; j < standalone.Len(); j++ {
				assert.True(t, standalone.At(j).Equal(extended.At(i*500+j)),
					"period %s record %d", period.Label, j)
			}
		}
	})

	t.Run("order of periods does not change their content", func(t *testing.T) {
		reversed := []Period{periods[2], periods[1], periods[0]}
		forward, err := SynthesizePeriods(ctx, periods, template, FakerNames{}, 0)
		require.NoError(t, err)
		backward, err := SynthesizePeriods(ctx, reversed, template, FakerNames{}, 0)
		require.NoError(t, err)

		for j := 0; j < 500; j++ {
			assert.True(t, forward.At(j).Equal(backward.At(1000+j)))
		}
	})

	t.Run("invalid template is rejected", func(t *testing.T) {
		bad := template
		bad.RecordCount = 0
		_, err := SynthesizePeriods(ctx, periods, bad, FakerNames{}, 2)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
	})

	t.Run("no periods", func(t *testing.T) {
		_, err := SynthesizePeriods(ctx, nil, template, FakerNames{}, 2)
		assert.Error(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := SynthesizePeriods(cancelled, periods, template, FakerNames{}, 1)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNameProviders(t *testing.T) {
	t.Run("faker names are reproducible", func(t *testing.T) {
		a := FakerNames{}.Names(42, 20)
		b := FakerNames{}.Names(42, 20)
		assert.Equal(t, a, b)
		assert.Len(t, a, 20)
	})

	t.Run("sequence names", func(t *testing.T) {
		assert.Equal(t, []string{"Rep 0001", "Rep 0002"}, SequenceNames{Prefix: "Rep"}.Names(0, 2))
	})

	t.Run("provider lookup", func(t *testing.T) {
		p, err := NameProviderFor("sequence")
		require.NoError(t, err)
		assert.IsType(t, SequenceNames{}, p)

		_, err = NameProviderFor("oracle")
		assert.Error(t, err)
	})
}

func TestCSV_RoundTrip(t *testing.T) {
	ds, err := Synthesize(DefaultParams(), FakerNames{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ds.WriteCSV(&buf))

	firstLine := strings.SplitN(buf.String(), "\n", 2)[0]
	assert.Equal(t, "Date,Region,Product,Revenue,Cost,Salesperson,Profit,Profit Margin (%)", firstLine)

	parsed, err := ReadCSV(&buf)
	require.NoError(t, err)
	require.Equal(t, ds.Len(), parsed.Len())

	for i := 0; i < ds.Len(); i++ {
		want, got := ds.At(i), parsed.At(i)
		assert.True(t, want.Date.Equal(got.Date))
		assert.Equal(t, want.Region, got.Region)
		assert.Equal(t, want.Product, got.Product)
		assert.Equal(t, want.Salesperson, got.Salesperson)
		assert.InDelta(t, want.Revenue, got.Revenue, 0.005)
		assert.InDelta(t, want.Cost, got.Cost, 0.005)
		assert.InDelta(t, want.Profit, got.Profit, 0.005)
		assert.InDelta(t, want.ProfitMargin, got.ProfitMargin, 0.005)
	}
}

func TestReadCSV(t *testing.T) {
	t.Run("BOM and reordered columns", func(t *testing.T) {
		input := "\xEF\xBB\xBFRegion,Date,Revenue,Cost,Product,Salesperson\n" +
			"North,2023-02-01,100.00,25.50,Product A,Ann Lee\n"

		ds, err := ReadCSV(strings.NewReader(input))
		require.NoError(t, err)
		require.Equal(t, 1, ds.Len())

		tx := ds.At(0)
		assert.Equal(t, day(2023, 2, 1), tx.Date)
		assert.Equal(t, 74.5, tx.Profit)
		assert.Equal(t, 74.5, tx.ProfitMargin)
	})

	t.Run("empty margin cell for zero revenue", func(t *testing.T) {
		input := strings.Join(Header, ",") + "\n" +
			"2023-02-01,North,Product A,0.00,10.00,Ann Lee,-10.00,\n"

		ds, err := ReadCSV(strings.NewReader(input))
		require.NoError(t, err)
		assert.False(t, ds.At(0).MarginDefined)
		assert.Len(t, ds.QualityIssues(), 1)
	})

	tests := []struct {
		name  string
		input string
	}{
		{"missing columns", "Date,Region\n2023-01-01,North\n"},
		{"bad date", strings.Join(Header, ",") + "\n01/02/2023,North,A,1.00,0.50,X,0.50,50.00\n"},
		{"bad revenue", strings.Join(Header, ",") + "\n2023-01-02,North,A,abc,0.50,X,0.50,50.00\n"},
		{"NaN revenue", strings.Join(Header, ",") + "\n2023-01-01,North,A,NaN,10.00,Ann,,\n"},
		{"infinite cost", strings.Join(Header, ",") + "\n2023-01-01,North,A,10.00,+Inf,Ann,,\n"},
		{"inconsistent profit", strings.Join(Header, ",") + "\n2023-01-02,North,A,1.00,0.50,X,9.99,50.00\n"},
		{"inconsistent margin", strings.Join(Header, ",") + "\n2023-01-02,North,A,1.00,0.50,X,0.50,12.00\n"},
		{"empty input", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
		})
	}
}
