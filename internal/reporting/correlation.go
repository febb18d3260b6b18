package reporting

import (
	"fmt"

	"finpulse/internal/analysis"
	"finpulse/internal/dataset"
	apperrors "finpulse/internal/errors"
	"finpulse/internal/stats"
)

// Coefficient is one cell of a correlation matrix. Defined is false when
// fewer than two complete pairs exist or one side is constant.
type Coefficient struct {
	R       float64 `json:"r"`
	N       int     `json:"n"`
	Defined bool    `json:"defined"`
}

// Correlation is a symmetric Pearson matrix over a set of measures
type Correlation struct {
	Fields []analysis.Field `json:"fields"`
	Cells  [][]Coefficient  `json:"cells"`
}

// DefaultCorrelationFields are the measures correlated in the analysis report
var DefaultCorrelationFields = []analysis.Field{
	analysis.FieldRevenue, analysis.FieldCost, analysis.FieldProfit, analysis.FieldProfitMargin,
}

// CorrelationMatrix computes pairwise Pearson coefficients. Each pair uses
// every record where both measures are defined.
func CorrelationMatrix(ds *dataset.Dataset, fields []analysis.Field) (*Correlation, error) {
	if len(fields) == 0 {
		return nil, apperrors.NewAppValidationError("no fields to correlate")
	}
	for _, f := range fields {
		if !f.IsMeasure() {
			return nil, apperrors.NewAppValidationError(fmt.Sprintf("%q is not a measure", f))
		}
	}

	k := len(fields)
	m := &Correlation{Fields: append([]analysis.Field(nil), fields...), Cells: make([][]Coefficient, k)}
	for i := range m.Cells {
		m.Cells[i] = make([]Coefficient, k)
	}

	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			x, y := completePairs(ds, fields[i], fields[j])
			c := Coefficient{N: len(x)}
			c.R, c.Defined = stats.Pearson(x, y)
			if c.Defined && i == j {
				c.R = 1
			}
			m.Cells[i][j] = c
			m.Cells[j][i] = c
		}
	}
	return m, nil
}

// At returns the coefficient between fields a and b
func (m *Correlation) At(a, b analysis.Field) (Coefficient, bool) {
	i, j := m.index(a), m.index(b)
	if i < 0 || j < 0 {
		return Coefficient{}, false
	}
	return m.Cells[i][j], true
}

func (m *Correlation) index(f analysis.Field) int {
	for i, have := range m.Fields {
		if have == f {
			return i
		}
	}
	return -1
}

func completePairs(ds *dataset.Dataset, a, b analysis.Field) (x, y []float64) {
	ds.Each(func(_ int, tx dataset.Transaction) bool {
		va, okA := a.ValueOf(tx)
		vb, okB := b.ValueOf(tx)
		if okA && okB {
			x = append(x, va)
			y = append(y, vb)
		}
		return true
	})
	return x, y
}
