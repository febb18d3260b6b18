package dataset

import (
	"fmt"
	"strings"

	apperrors "finpulse/internal/errors"
)

// Validate rejects parameters that cannot produce a dataset.
// Every violation is collected so the caller sees the whole picture at once.
func (p Params) Validate() error {
	var v apperrors.ValidationErrors

	if p.RecordCount <= 0 {
		v.Add("record_count", fmt.Sprintf("must be positive, got %d", p.RecordCount))
	}
	if !p.Dates.IsValid() {
		v.Add("dates", fmt.Sprintf("invalid range %s..%s",
			p.Dates.Start.Format(DateLayout), p.Dates.End.Format(DateLayout)))
	}
	validateDomain(&v, "regions", p.Regions)
	validateDomain(&v, "products", p.Products)
	validateRange(&v, "revenue", p.Revenue)
	validateRange(&v, "cost", p.Cost)

	return v.AsConfigError("invalid synthesis parameters")
}

func validateDomain(v *apperrors.ValidationErrors, field string, domain []string) {
	if len(domain) == 0 {
		v.Add(field, "domain must not be empty")
		return
	}
	for i, value := range domain {
		if strings.TrimSpace(value) == "" {
			v.Add(field, fmt.Sprintf("member %d is blank", i))
		}
	}
}

func validateRange(v *apperrors.ValidationErrors, field string, r Range) {
	if !isFinite(r.Low) || !isFinite(r.High) {
		v.Add(field, fmt.Sprintf("bounds %v and %v must be finite", r.Low, r.High))
		return
	}
	if !r.IsValid() {
		v.Add(field, fmt.Sprintf("low %.2f must be below high %.2f", r.Low, r.High))
	}
	if r.Low < 0 {
		v.Add(field, fmt.Sprintf("low %.2f must not be negative", r.Low))
	}
}
