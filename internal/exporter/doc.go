// Package exporter writes finpulse datasets to disk.
//
// CSVWriter produces the flat export read back by dataset.ReadCSV, with an
// optional UTF-8 BOM for spreadsheet tools. XLSXWriter streams the same
// columns into a single-sheet workbook with typed date and money cells.
// Exporter combines both for a run and can split a multi-year dataset into
// one CSV per calendar year.
//
// Example usage:
//
//	exp := exporter.NewExporter(cfg.Output.BOM, logger)
//	files, err := exp.Export(ctx, ds, exporter.Target{
//		CSV:  paths.DatasetCSV,
//		XLSX: paths.DatasetXLSX,
//	})
package exporter
