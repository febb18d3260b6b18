// Package reporting turns a dataset and its group comparison into the
// artifacts a reader opens: a JSON document, a plain-text summary and an
// XLSX workbook with charts.
//
// The descriptive views are plain functions so they can be used on their
// own:
//
//	trend, err := reporting.MonthlyTrend(ds, analysis.FieldRevenue, reporting.AggSum)
//	byRegion, err := reporting.GroupAggregate(ds, analysis.FieldRegion, analysis.FieldProfit, reporting.AggSum)
//	corr, err := reporting.CorrelationMatrix(ds, reporting.DefaultCorrelationFields)
//
// Reporter.Build collects them into a Bundle next to the analysis report,
// and WriteJSON, WriteSummary and WriteWorkbook render that bundle.
package reporting
