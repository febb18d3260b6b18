// Package stats implements the hypothesis tests behind group comparison:
// Shapiro-Wilk normality, Levene (median-centered) variance homogeneity and
// one-way ANOVA, plus descriptive summaries and Pearson correlation.
//
// Distributions come from gonum. Every test returns a TestResult with a
// statistic and a p-value in [0, 1], or an AppError naming why the test is
// undefined for its input:
//
//	ErrTypeInsufficientData  too few observations or groups
//	ErrTypeDataQuality       degenerate input (zero range, zero variance)
//
// No function returns NaN.
package stats
