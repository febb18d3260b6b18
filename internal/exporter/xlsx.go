package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"finpulse/internal/dataset"
	apperrors "finpulse/internal/errors"
)

// DatasetSheet is the worksheet holding the exported transactions
const DatasetSheet = "Transactions"

var columnWidths = []float64{12, 10, 12, 12, 12, 24, 12, 18}

// XLSXWriter writes datasets as single-sheet workbooks. Rows go through the
// excelize stream writer so memory stays flat for large datasets.
type XLSXWriter struct {
	logger *slog.Logger
}

// NewXLSXWriter creates a new workbook writer
func NewXLSXWriter(logger *slog.Logger) *XLSXWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXWriter{logger: logger}
}

// WriteDataset writes ds to a workbook at path
func (w *XLSXWriter) WriteDataset(path string, ds *dataset.Dataset) error {
	w.logger.Info("Writing XLSX file",
		slog.String("file_path", path),
		slog.Int("record_count", ds.Len()))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError("failed to create directory", err).WithContext("path", path)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", DatasetSheet); err != nil {
		return apperrors.NewStorageError("failed to name sheet", err)
	}
	if err := w.streamRows(f, ds); err != nil {
		return apperrors.NewStorageError("failed to write rows", err).WithContext("path", path)
	}
	if err := f.SaveAs(path); err != nil {
		return apperrors.NewStorageError("failed to save workbook", err).WithContext("path", path)
	}
	return nil
}

func (w *XLSXWriter) streamRows(f *excelize.File, ds *dataset.Dataset) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	dateFormat := "yyyy-mm-dd"
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateFormat})
	if err != nil {
		return err
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(DatasetSheet)
	if err != nil {
		return err
	}
	for i, width := range columnWidths {
		if err := sw.SetColWidth(i+1, i+1, width); err != nil {
			return err
		}
	}
	if err := sw.SetPanes(&excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	header := make([]interface{}, len(dataset.Header))
	for i, name := range dataset.Header {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: name}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	money := func(v float64) excelize.Cell {
		return excelize.Cell{StyleID: moneyStyle, Value: v}
	}

	var rowErr error
	ds.Each(func(i int, tx dataset.Transaction) bool {
		var margin interface{}
		if tx.MarginDefined {
			margin = money(tx.ProfitMargin)
		}
		row := []interface{}{
			excelize.Cell{StyleID: dateStyle, Value: tx.Date},
			tx.Region,
			tx.Product,
			money(tx.Revenue),
			money(tx.Cost),
			tx.Salesperson,
			money(tx.Profit),
			margin,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			rowErr = err
			return false
		}
		if err := sw.SetRow(cell, row); err != nil {
			rowErr = fmt.Errorf("row %d: %w", i+2, err)
			return false
		}
		return true
	})
	if rowErr != nil {
		return rowErr
	}

	if ds.Len() > 0 {
		lastCell, err := excelize.CoordinatesToCellName(len(dataset.Header), ds.Len()+1)
		if err != nil {
			return err
		}
		if err := sw.AddTable(&excelize.Table{
			Range:     "A1:" + lastCell,
			Name:      "TransactionTable",
			StyleName: "TableStyleLight9",
		}); err != nil {
			return err
		}
	}
	return sw.Flush()
}
