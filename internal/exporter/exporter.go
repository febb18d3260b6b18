package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"finpulse/internal/dataset"
)

// Target names the files one dataset is written to. Empty paths are skipped.
type Target struct {
	CSV  string
	XLSX string
}

// Exporter writes a dataset in every configured format
type Exporter struct {
	csv    *CSVWriter
	xlsx   *XLSXWriter
	logger *slog.Logger
}

// NewExporter creates an exporter whose CSV files carry a BOM when bom is set
func NewExporter(bom bool, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		csv:    NewCSVWriter(bom, logger),
		xlsx:   NewXLSXWriter(logger),
		logger: logger,
	}
}

// Export writes ds to each path in target and returns the files written
func (e *Exporter) Export(ctx context.Context, ds *dataset.Dataset, target Target) ([]string, error) {
	var written []string

	if target.CSV != "" {
		if err := e.csv.WriteDataset(target.CSV, ds); err != nil {
			return written, err
		}
		written = append(written, target.CSV)
	}
	if err := ctx.Err(); err != nil {
		return written, err
	}
	if target.XLSX != "" {
		if err := e.xlsx.WriteDataset(target.XLSX, ds); err != nil {
			return written, err
		}
		written = append(written, target.XLSX)
	}

	e.logger.InfoContext(ctx, "Dataset exported",
		slog.Int("records", ds.Len()),
		slog.Any("files", written))
	return written, nil
}

// ExportByYear splits ds by calendar year and writes one CSV per year next
// to base, named <base>_<year>.csv. Records keep their original order.
func (e *Exporter) ExportByYear(ctx context.Context, ds *dataset.Dataset, base string) ([]string, error) {
	byYear := make(map[int][]dataset.Transaction)
	ds.Each(func(_ int, tx dataset.Transaction) bool {
		byYear[tx.Date.Year()] = append(byYear[tx.Date.Year()], tx)
		return true
	})

	years := make([]int, 0, len(byYear))
	for year := range byYear {
		years = append(years, year)
	}
	sort.Ints(years)

	stem := strings.TrimSuffix(base, filepath.Ext(base))
	written := make([]string, 0, len(years))
	for _, year := range years {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		path := fmt.Sprintf("%s_%d.csv", stem, year)
		if err := e.csv.WriteDataset(path, dataset.NewDataset(byYear[year])); err != nil {
			return written, fmt.Errorf("failed to write %d slice: %w", year, err)
		}
		written = append(written, path)
	}
	return written, nil
}
