package dataset

import (
	"time"
)

// DateLayout is the ISO-8601 calendar-date form used on every export
const DateLayout = "2006-01-02"

// Range is a half-open numeric interval [Low, High) for uniform draws
type Range struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// IsValid checks that the range is non-degenerate
func (r Range) IsValid() bool {
	return r.Low < r.High
}

// DateRange is an inclusive calendar range
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// IsValid checks that End is not before Start
func (d DateRange) IsValid() bool {
	return !d.Start.IsZero() && !d.End.IsZero() && !d.End.Before(d.Start)
}

// Params holds everything Synthesize needs to produce a dataset
type Params struct {
	RecordCount int       `json:"record_count"`
	Dates       DateRange `json:"dates"`
	Regions     []string  `json:"regions"`
	Products    []string  `json:"products"`
	Revenue     Range     `json:"revenue"`
	Cost        Range     `json:"cost"`
	Seed        int64     `json:"seed"`
}

// DefaultParams mirrors the single-year dataset of the financial dashboard
func DefaultParams() Params {
	return Params{
		RecordCount: 500,
		Dates: DateRange{
			Start: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
		},
		Regions:  []string{"North", "South", "East", "West"},
		Products: []string{"Product A", "Product B", "Product C", "Product D"},
		Revenue:  Range{Low: 500, High: 5000},
		Cost:     Range{Low: 300, High: 4000},
		Seed:     42,
	}
}

// Transaction is a single synthetic sale.
// Profit and ProfitMargin are always derived from Revenue and Cost.
type Transaction struct {
	Date          time.Time `json:"date"`
	Region        string    `json:"region"`
	Product       string    `json:"product"`
	Revenue       float64   `json:"revenue"`
	Cost          float64   `json:"cost"`
	Salesperson   string    `json:"salesperson"`
	Profit        float64   `json:"profit"`
	ProfitMargin  float64   `json:"profit_margin_pct"`
	MarginDefined bool      `json:"margin_defined"`
}

// NewTransaction builds a transaction and computes its derived fields
func NewTransaction(date time.Time, region, product string, revenue, cost float64, salesperson string) Transaction {
	tx := Transaction{
		Date:        truncateToDay(date),
		Region:      region,
		Product:     product,
		Revenue:     Round2(revenue),
		Cost:        Round2(cost),
		Salesperson: salesperson,
	}
	tx.Profit = Profit(tx.Revenue, tx.Cost)
	tx.ProfitMargin, tx.MarginDefined = ProfitMargin(tx.Profit, tx.Revenue)
	return tx
}

// Equal compares two transactions field by field
func (t Transaction) Equal(o Transaction) bool {
	return t.Date.Equal(o.Date) &&
		t.Region == o.Region &&
		t.Product == o.Product &&
		t.Revenue == o.Revenue &&
		t.Cost == o.Cost &&
		t.Salesperson == o.Salesperson &&
		t.Profit == o.Profit &&
		t.ProfitMargin == o.ProfitMargin &&
		t.MarginDefined == o.MarginDefined
}

// QualityIssue describes a record whose derived value could not be computed
type QualityIssue struct {
	Index  int    `json:"index"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
