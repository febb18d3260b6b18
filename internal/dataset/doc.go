// Package dataset synthesizes reproducible fake sales transactions and
// serializes them to a flat tabular form.
//
// # Synthesis
//
// Synthesize turns a Params value into exactly RecordCount transactions.
// Every call owns its random generator, seeded from Params.Seed, so the
// same parameters always give the same dataset, names included:
//
//	ds, err := dataset.Synthesize(dataset.DefaultParams(), dataset.FakerNames{})
//	if err != nil {
//	    return err
//	}
//
// Dates are spread evenly over the inclusive date range. Region and product
// are drawn uniformly with replacement, revenue and cost from continuous
// uniform ranges rounded to cents. Profit and profit margin are never drawn;
// they are recomputed from revenue and cost whenever a Transaction is built.
//
// # Multiple periods
//
// SynthesizePeriods generates one independently seeded slice per period and
// concatenates them in period order. YearlyPeriods seeds each calendar year
// with its year number:
//
//	extended, err := dataset.SynthesizePeriods(ctx, dataset.YearlyPeriods(2020, 3), params, names, 4)
//
// # Export
//
// WriteCSV and ReadCSV round-trip a dataset through the fixed header
//
//	Date,Region,Product,Revenue,Cost,Salesperson,Profit,Profit Margin (%)
//
// with two-decimal numbers and ISO-8601 dates. A zero revenue leaves the
// margin undefined; it is exported as an empty cell and listed by
// Dataset.QualityIssues.
package dataset
