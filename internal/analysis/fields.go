package analysis

import (
	"fmt"
	"strconv"
	"strings"

	"finpulse/internal/dataset"
	apperrors "finpulse/internal/errors"
)

// Field names a transaction attribute usable as a grouping key or a measure
type Field string

// Grouping keys
const (
	FieldRegion      Field = "region"
	FieldProduct     Field = "product"
	FieldSalesperson Field = "salesperson"
	FieldYear        Field = "year"
)

// Measures
const (
	FieldRevenue      Field = "revenue"
	FieldCost         Field = "cost"
	FieldProfit       Field = "profit"
	FieldProfitMargin Field = "profit_margin"
)

// KeyFields and MeasureFields list the supported fields in display order
var (
	KeyFields     = []Field{FieldRegion, FieldProduct, FieldSalesperson, FieldYear}
	MeasureFields = []Field{FieldRevenue, FieldCost, FieldProfit, FieldProfitMargin}
)

// ParseField accepts a field name case-insensitively
func ParseField(s string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	if f.IsKey() || f.IsMeasure() {
		return f, nil
	}
	return "", apperrors.NewAppValidationError(fmt.Sprintf("unknown field %q", s))
}

// IsKey reports whether f is a categorical grouping key
func (f Field) IsKey() bool {
	for _, k := range KeyFields {
		if f == k {
			return true
		}
	}
	return false
}

// IsMeasure reports whether f is a numeric measure
func (f Field) IsMeasure() bool {
	for _, m := range MeasureFields {
		if f == m {
			return true
		}
	}
	return false
}

// Label is the column title used in exported reports
func (f Field) Label() string {
	switch f {
	case FieldRegion:
		return dataset.ColRegion
	case FieldProduct:
		return dataset.ColProduct
	case FieldSalesperson:
		return dataset.ColSalesperson
	case FieldYear:
		return "Year"
	case FieldRevenue:
		return dataset.ColRevenue
	case FieldCost:
		return dataset.ColCost
	case FieldProfit:
		return dataset.ColProfit
	case FieldProfitMargin:
		return dataset.ColProfitMargin
	}
	return string(f)
}

// KeyOf returns the grouping label of tx under key f
func (f Field) KeyOf(tx dataset.Transaction) string {
	switch f {
	case FieldRegion:
		return tx.Region
	case FieldProduct:
		return tx.Product
	case FieldSalesperson:
		return tx.Salesperson
	case FieldYear:
		return strconv.Itoa(tx.Date.Year())
	}
	return ""
}

// ValueOf returns the measure f of tx. ok is false when the value is
// undefined, which only happens for the margin of a zero-revenue record.
func (f Field) ValueOf(tx dataset.Transaction) (v float64, ok bool) {
	switch f {
	case FieldRevenue:
		return tx.Revenue, true
	case FieldCost:
		return tx.Cost, true
	case FieldProfit:
		return tx.Profit, true
	case FieldProfitMargin:
		return tx.ProfitMargin, tx.MarginDefined
	}
	return 0, false
}
