package dataset

import (
	"fmt"
)

// Dataset is an ordered, read-only collection of transactions.
// It is never mutated after construction; Concat builds a new one.
type Dataset struct {
	records []Transaction
}

// NewDataset copies the given transactions into a new dataset.
// Derived fields are recomputed so callers cannot smuggle in inconsistent values.
func NewDataset(records []Transaction) *Dataset {
	out := make([]Transaction, len(records))
	for i, r := range records {
		out[i] = NewTransaction(r.Date, r.Region, r.Product, r.Revenue, r.Cost, r.Salesperson)
	}
	return &Dataset{records: out}
}

// Len returns the number of records
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

// At returns the i-th record by value
func (d *Dataset) At(i int) Transaction {
	return d.records[i]
}

// Records returns a copy of all records
func (d *Dataset) Records() []Transaction {
	if d == nil {
		return nil
	}
	out := make([]Transaction, len(d.records))
	copy(out, d.records)
	return out
}

// Each calls fn for every record in order until fn returns false
func (d *Dataset) Each(fn func(i int, tx Transaction) bool) {
	if d == nil {
		return
	}
	for i, tx := range d.records {
		if !fn(i, tx) {
			return
		}
	}
}

// Equal reports whether both datasets hold identical records in the same order
func (d *Dataset) Equal(other *Dataset) bool {
	if d.Len() != other.Len() {
		return false
	}
	for i := range d.records {
		if !d.records[i].Equal(other.records[i]) {
			return false
		}
	}
	return true
}

// QualityIssues lists records whose profit margin is undefined (zero revenue)
func (d *Dataset) QualityIssues() []QualityIssue {
	var issues []QualityIssue
	d.Each(func(i int, tx Transaction) bool {
		if !tx.MarginDefined {
			issues = append(issues, QualityIssue{
				Index:  i,
				Field:  "profit_margin_pct",
				Reason: fmt.Sprintf("revenue is zero on %s, margin undefined", tx.Date.Format(DateLayout)),
			})
		}
		return true
	})
	return issues
}

// Concat joins datasets in argument order into a new dataset
func Concat(parts ...*Dataset) *Dataset {
	total := 0
	for _, p := range parts {
		total += p.Len()
	}
	out := make([]Transaction, 0, total)
	for _, p := range parts {
		if p != nil {
			out = append(out, p.records...)
		}
	}
	return &Dataset{records: out}
}
