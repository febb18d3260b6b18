package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	apperrors "finpulse/internal/errors"
)

// Column names of the flat export, in order
const (
	ColDate         = "Date"
	ColRegion       = "Region"
	ColProduct      = "Product"
	ColRevenue      = "Revenue"
	ColCost         = "Cost"
	ColSalesperson  = "Salesperson"
	ColProfit       = "Profit"
	ColProfitMargin = "Profit Margin (%)"
)

// Header is the fixed column header of every dataset export
var Header = []string{
	ColDate, ColRegion, ColProduct, ColRevenue, ColCost, ColSalesperson, ColProfit, ColProfitMargin,
}

// derivedTolerance is how far a stored derived value may drift from the recomputed one
const derivedTolerance = 0.01

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Row formats a transaction as an export row. An undefined margin is an empty cell.
func (t Transaction) Row() []string {
	margin := ""
	if t.MarginDefined {
		margin = formatMoney(t.ProfitMargin)
	}
	return []string{
		t.Date.Format(DateLayout),
		t.Region,
		t.Product,
		formatMoney(t.Revenue),
		formatMoney(t.Cost),
		t.Salesperson,
		formatMoney(t.Profit),
		margin,
	}
}

// Rows formats every record for export
func (d *Dataset) Rows() [][]string {
	rows := make([][]string, 0, d.Len())
	d.Each(func(_ int, tx Transaction) bool {
		rows = append(rows, tx.Row())
		return true
	})
	return rows
}

// WriteCSV serializes the dataset with its header
func (d *Dataset) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	if err := writer.WriteAll(d.Rows()); err != nil {
		return fmt.Errorf("write CSV rows: %w", err)
	}
	return nil
}

type columnIndex map[string]int

// ReadCSV parses a dataset export. Columns are located by header name, a
// leading UTF-8 BOM is ignored, and derived columns are checked against the
// values recomputed from revenue and cost.
func ReadCSV(r io.Reader) (*Dataset, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	header, err := reader.Read()
	if err != nil {
		return nil, apperrors.NewParsingError("read header", err)
	}

	cols, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	var records []Transaction
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("read row %d", line), err)
		}

		tx, err := parseRow(row, cols)
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("parse row %d", line), err).
				WithContext("line", line)
		}
		records = append(records, tx)
	}

	return &Dataset{records: records}, nil
}

func indexColumns(header []string) (columnIndex, error) {
	cols := make(columnIndex, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, name := range []string{ColDate, ColRegion, ColProduct, ColRevenue, ColCost, ColSalesperson} {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewParsingError(
			fmt.Sprintf("required columns not found: %v", missing), nil).
			WithContext("header", header)
	}
	return cols, nil
}

func parseRow(row []string, cols columnIndex) (Transaction, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	date, err := time.Parse(DateLayout, field(ColDate))
	if err != nil {
		return Transaction{}, fmt.Errorf("date: %w", err)
	}
	revenue, err := strconv.ParseFloat(field(ColRevenue), 64)
	if err != nil {
		return Transaction{}, fmt.Errorf("revenue: %w", err)
	}
	cost, err := strconv.ParseFloat(field(ColCost), 64)
	if err != nil {
		return Transaction{}, fmt.Errorf("cost: %w", err)
	}
	if !isFinite(revenue) {
		return Transaction{}, fmt.Errorf("revenue: %s is not a finite number", field(ColRevenue))
	}
	if !isFinite(cost) {
		return Transaction{}, fmt.Errorf("cost: %s is not a finite number", field(ColCost))
	}

	tx := NewTransaction(date, field(ColRegion), field(ColProduct), revenue, cost, field(ColSalesperson))

	if stored := field(ColProfit); stored != "" {
		if err := checkDerived(ColProfit, stored, tx.Profit); err != nil {
			return Transaction{}, err
		}
	}
	if stored := field(ColProfitMargin); stored != "" {
		if !tx.MarginDefined {
			return Transaction{}, fmt.Errorf("%s present but revenue is zero", ColProfitMargin)
		}
		if err := checkDerived(ColProfitMargin, stored, tx.ProfitMargin); err != nil {
			return Transaction{}, err
		}
	}
	return tx, nil
}

func checkDerived(name, stored string, want float64) error {
	got, err := strconv.ParseFloat(stored, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if math.Abs(got-want) > derivedTolerance+1e-9 {
		return fmt.Errorf("%s %.2f disagrees with recomputed %.2f", name, got, want)
	}
	return nil
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
