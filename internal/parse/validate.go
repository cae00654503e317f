package parse

// ValidationResult reports whether an extraction is complete enough for
// submission, with one message per missing section.
type ValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors,omitempty"`
}

// Validate checks an extraction for the sections a reviewer must have before
// an application can move forward. It flags gaps; it never rejects data for
// being odd, only for being absent.
func Validate(d ExtractedApplicationData) ValidationResult {
	var errs []string

	if d.ApplicantName == "" {
		errs = append(errs, "Could not extract applicant name")
	}
	// Street and city are the floor for an address; state and zip often fall
	// out of low-quality scans and should not block submission on their own.
	if d.Address.Street == "" || d.Address.City == "" {
		errs = append(errs, "Could not extract complete address")
	}
	if d.IncomeDetails.MonthlyIncome == 0 {
		errs = append(errs, "Could not extract income details")
	}
	if d.LoanAmount == 0 {
		errs = append(errs, "Could not extract loan amount")
	}

	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}
