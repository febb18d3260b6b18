package reporting

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"finpulse/internal/analysis"
	apperrors "finpulse/internal/errors"
)

// Workbook sheet names
const (
	SheetSummary     = "Summary"
	SheetNormality   = "Normality"
	SheetGroups      = "Groups"
	SheetTrends      = "Trends"
	SheetRegions     = "Regions"
	SheetCorrelation = "Correlation"
)

type workbook struct {
	f       *excelize.File
	header  int
	number  int
	precise int
}

// WriteWorkbook renders b as an XLSX workbook with one sheet per view.
// Trends and regions carry native charts and the correlation sheet a
// diverging three-color scale.
func (r *Reporter) WriteWorkbook(ctx context.Context, path string, b *Bundle) error {
	r.logger.InfoContext(ctx, "Writing report workbook", slog.String("path", path))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError("failed to create directory for workbook", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	wb, err := newWorkbook(f)
	if err != nil {
		return apperrors.NewStorageError("failed to create workbook styles", err)
	}

	steps := []struct {
		sheet string
		fill  func(string, *Bundle) error
	}{
		{SheetSummary, wb.summary},
		{SheetNormality, wb.normality},
		{SheetGroups, wb.groups},
		{SheetTrends, wb.trends},
		{SheetRegions, wb.regions},
		{SheetCorrelation, wb.correlation},
	}
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i == 0 {
			err = f.SetSheetName("Sheet1", step.sheet)
		} else {
			_, err = f.NewSheet(step.sheet)
		}
		if err != nil {
			return apperrors.NewStorageError("failed to add sheet", err).WithContext("sheet", step.sheet)
		}
		if err := step.fill(step.sheet, b); err != nil {
			return apperrors.NewStorageError("failed to fill sheet", err).WithContext("sheet", step.sheet)
		}
	}
	f.SetActiveSheet(0)

	if err := f.SaveAs(path); err != nil {
		return apperrors.NewStorageError("failed to save workbook", err).WithContext("path", path)
	}
	return nil
}

func newWorkbook(f *excelize.File) (*workbook, error) {
	wb := &workbook{f: f}
	var err error
	if wb.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	}); err != nil {
		return nil, err
	}
	if wb.number, err = f.NewStyle(&excelize.Style{NumFmt: 4}); err != nil {
		return nil, err
	}
	preciseFormat := "0.0000"
	if wb.precise, err = f.NewStyle(&excelize.Style{CustomNumFmt: &preciseFormat}); err != nil {
		return nil, err
	}
	return wb, nil
}

// table writes a header row and data rows starting at A1 and sizes the columns
func (wb *workbook) table(sheet string, header []string, rows [][]interface{}) error {
	hdr := make([]interface{}, len(header))
	for i, h := range header {
		hdr[i] = h
	}
	if err := wb.f.SetSheetRow(sheet, "A1", &hdr); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := wb.f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err := wb.f.SetCellStyle(sheet, "A1", lastCol+"1", wb.header); err != nil {
		return err
	}
	return wb.f.SetColWidth(sheet, "A", lastCol, 16)
}

// styleRange applies style to columns [fromCol, toCol] of the data rows
func (wb *workbook) styleRange(sheet string, fromCol, toCol, rows, style int) error {
	if rows == 0 {
		return nil
	}
	from, err := excelize.CoordinatesToCellName(fromCol, 2)
	if err != nil {
		return err
	}
	to, err := excelize.CoordinatesToCellName(toCol, rows+1)
	if err != nil {
		return err
	}
	return wb.f.SetCellStyle(sheet, from, to, style)
}

func (wb *workbook) summary(sheet string, b *Bundle) error {
	rep := b.Analysis
	rows := [][]interface{}{
		{"Run ID", b.RunID},
		{"Generated", b.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
		{"Records", b.Records},
		{"Excluded", rep.Excluded},
		{"Grouping key", rep.Key.Label()},
		{"Measure", rep.Measure.Label()},
		{"Alpha", rep.Alpha},
		{"Groups", len(rep.Groups)},
	}
	rows = append(rows, outcomeRows("Levene", rep.Levene)...)
	rows = append(rows, outcomeRows("ANOVA", rep.ANOVA)...)
	if rep.ANOVA.Computed() {
		rows = append(rows,
			[]interface{}{"ANOVA df between", rep.ANOVA.Result.DFBetween},
			[]interface{}{"ANOVA df within", rep.ANOVA.Result.DFWithin})
	}
	rows = append(rows,
		[]interface{}{"All groups normal", rep.Verdict.AllNormal},
		[]interface{}{"Equal variances", rep.Verdict.EqualVariances},
		[]interface{}{"Means differ", rep.Verdict.MeansDiffer})
	for _, w := range rep.Warnings {
		rows = append(rows, []interface{}{"Warning", w})
	}

	if err := wb.table(sheet, []string{"Item", "Value"}, rows); err != nil {
		return err
	}
	return wb.f.SetColWidth(sheet, "B", "B", 48)
}

func outcomeRows(name string, o analysis.TestOutcome) [][]interface{} {
	if !o.Computed() {
		return [][]interface{}{{name, fmt.Sprintf("not computed (%s)", o.Condition)}}
	}
	return [][]interface{}{
		{name + " statistic", o.Result.Statistic},
		{name + " p-value", o.Result.PValue},
	}
}

func (wb *workbook) normality(sheet string, b *Bundle) error {
	rep := b.Analysis
	rows := make([][]interface{}, len(rep.Groups))
	for i, g := range rep.Groups {
		row := []interface{}{g.Key, g.Summary.N, nil, nil, nil, string(g.Normality.Condition)}
		if g.Normality.Computed() {
			row[2] = g.Normality.Result.Statistic
			row[3] = g.Normality.Result.PValue
			row[4] = g.Normality.Passes(rep.Alpha)
		}
		rows[i] = row
	}
	if err := wb.table(sheet, []string{rep.Key.Label(), "N", "W", "p-value", "Normal", "Condition"}, rows); err != nil {
		return err
	}
	return wb.styleRange(sheet, 3, 4, len(rows), wb.precise)
}

func (wb *workbook) groups(sheet string, b *Bundle) error {
	rep := b.Analysis
	rows := make([][]interface{}, len(b.Distribution))
	for i, d := range b.Distribution {
		row := []interface{}{d.Key, d.N, nil, nil, d.Min, d.Q1, d.Median, d.Q3, d.Max, d.Outliers}
		if i < len(rep.Groups) && rep.Groups[i].Key == d.Key {
			row[2] = rep.Groups[i].Summary.Mean
			row[3] = rep.Groups[i].Summary.Std
		}
		rows[i] = row
	}
	header := []string{rep.Key.Label(), "N", "Mean", "Std", "Min", "Q1", "Median", "Q3", "Max", "Outliers"}
	if err := wb.table(sheet, header, rows); err != nil {
		return err
	}
	return wb.styleRange(sheet, 3, 9, len(rows), wb.number)
}

func (wb *workbook) trends(sheet string, b *Bundle) error {
	margins := make(map[string]float64, len(b.MarginTrend))
	for _, p := range b.MarginTrend {
		margins[p.Label] = p.Value
	}
	rows := make([][]interface{}, len(b.RevenueTrend))
	for i, p := range b.RevenueTrend {
		row := []interface{}{p.Label, p.Value, nil, p.Count}
		if m, ok := margins[p.Label]; ok {
			row[2] = m
		}
		rows[i] = row
	}
	if err := wb.table(sheet, []string{"Month", "Revenue", "Avg Profit Margin (%)", "Records"}, rows); err != nil {
		return err
	}
	if err := wb.styleRange(sheet, 2, 3, len(rows), wb.number); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	last := len(rows) + 1
	if err := wb.f.AddChart(sheet, "F2", lineChart(sheet, "B", last, "Revenue Trends Over Time", "Revenue")); err != nil {
		return err
	}
	return wb.f.AddChart(sheet, "F20", lineChart(sheet, "C", last, "Profit Margin Trends Over Time", "Profit Margin (%)"))
}

func lineChart(sheet, col string, last int, title, axis string) *excelize.Chart {
	return &excelize.Chart{
		Type: excelize.Line,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("%s!$%s$1", sheet, col),
			Categories: fmt.Sprintf("%s!$A$2:$A$%d", sheet, last),
			Values:     fmt.Sprintf("%s!$%s$2:$%s$%d", sheet, col, col, last),
			Marker:     excelize.ChartMarker{Symbol: "circle", Size: 5},
		}},
		Title:  []excelize.RichTextRun{{Text: title}},
		Legend: excelize.ChartLegend{Position: "none"},
		XAxis:  excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "Month"}}},
		YAxis:  excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: axis}}},
		Dimension: excelize.ChartDimension{
			Width:  720,
			Height: 320,
		},
	}
}

func (wb *workbook) regions(sheet string, b *Bundle) error {
	profits := make(map[string]float64, len(b.RegionProfit))
	for _, p := range b.RegionProfit {
		profits[p.Label] = p.Value
	}
	rows := make([][]interface{}, len(b.RegionRevenue))
	for i, p := range b.RegionRevenue {
		rows[i] = []interface{}{p.Label, p.Value, profits[p.Label], p.Count}
	}
	if err := wb.table(sheet, []string{"Region", "Average Revenue", "Total Profit", "Records"}, rows); err != nil {
		return err
	}
	if err := wb.styleRange(sheet, 2, 3, len(rows), wb.number); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	last := len(rows) + 1
	for _, c := range []struct {
		col, cell, title string
	}{
		{"B", "F2", "Average Revenue by Region"},
		{"C", "F20", "Total Profit by Region"},
	} {
		if err := wb.f.AddChart(sheet, c.cell, &excelize.Chart{
			Type: excelize.Col,
			Series: []excelize.ChartSeries{{
				Name:       fmt.Sprintf("%s!$%s$1", sheet, c.col),
				Categories: fmt.Sprintf("%s!$A$2:$A$%d", sheet, last),
				Values:     fmt.Sprintf("%s!$%s$2:$%s$%d", sheet, c.col, c.col, last),
			}},
			Title:  []excelize.RichTextRun{{Text: c.title}},
			Legend: excelize.ChartLegend{Position: "none"},
			XAxis:  excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "Region"}}},
		}); err != nil {
			return err
		}
	}
	return nil
}

func (wb *workbook) correlation(sheet string, b *Bundle) error {
	m := b.Correlation
	header := make([]string, len(m.Fields)+1)
	rows := make([][]interface{}, len(m.Fields))
	for i, f := range m.Fields {
		header[i+1] = f.Label()
		row := make([]interface{}, len(m.Fields)+1)
		row[0] = f.Label()
		for j, c := range m.Cells[i] {
			if c.Defined {
				row[j+1] = c.R
			}
		}
		rows[i] = row
	}
	if err := wb.table(sheet, header, rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	from, err := excelize.CoordinatesToCellName(2, 2)
	if err != nil {
		return err
	}
	to, err := excelize.CoordinatesToCellName(len(m.Fields)+1, len(m.Fields)+1)
	if err != nil {
		return err
	}
	cells := from + ":" + to
	if err := wb.f.SetCellStyle(sheet, from, to, wb.precise); err != nil {
		return err
	}
	return wb.f.SetConditionalFormat(sheet, cells, []excelize.ConditionalFormatOptions{{
		Type:     "3_color_scale",
		Criteria: "=",
		MinType:  "num",
		MidType:  "num",
		MaxType:  "num",
		MinValue: "-1",
		MidValue: "0",
		MaxValue: "1",
		MinColor: "#3B4CC0",
		MidColor: "#F2F2F2",
		MaxColor: "#B40426",
	}})
}
