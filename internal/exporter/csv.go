package exporter

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"finpulse/internal/dataset"
	apperrors "finpulse/internal/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter writes datasets as flat CSV files
type CSVWriter struct {
	bom    bool
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer. With bom set every file starts
// with a UTF-8 byte order mark so spreadsheet tools detect the encoding.
func NewCSVWriter(bom bool, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{bom: bom, logger: logger}
}

// WriteDataset writes ds to path, replacing any existing file
func (w *CSVWriter) WriteDataset(path string, ds *dataset.Dataset) error {
	w.logger.Info("Writing CSV file",
		slog.String("file_path", path),
		slog.Int("record_count", ds.Len()),
		slog.Bool("bom", w.bom))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError("failed to create directory", err).WithContext("path", path)
	}

	file, err := os.Create(path)
	if err != nil {
		return apperrors.NewStorageError("failed to create file", err).WithContext("path", path)
	}

	buf := bufio.NewWriter(file)
	if err := w.write(buf, ds); err != nil {
		file.Close()
		return apperrors.NewStorageError("failed to write CSV", err).WithContext("path", path)
	}
	if err := buf.Flush(); err != nil {
		file.Close()
		return apperrors.NewStorageError("failed to flush CSV", err).WithContext("path", path)
	}
	if err := file.Close(); err != nil {
		return apperrors.NewStorageError("failed to close file", err).WithContext("path", path)
	}
	return nil
}

func (w *CSVWriter) write(buf *bufio.Writer, ds *dataset.Dataset) error {
	if w.bom {
		if _, err := buf.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}
	return ds.WriteCSV(buf)
}

// ReadDataset loads a dataset previously written by WriteDataset
func ReadDataset(path string) (*dataset.Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open dataset", err).WithContext("path", path)
	}
	defer file.Close()

	ds, err := dataset.ReadCSV(bufio.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ds, nil
}
