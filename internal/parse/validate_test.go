package parse

import (
	"slices"
	"testing"
)

func completeData() ExtractedApplicationData {
	return ExtractedApplicationData{
		ApplicantName: "John Smith",
		Address:       Address{Street: "123 Main St", City: "Springfield", State: "IL", ZipCode: "62704"},
		IncomeDetails: IncomeDetails{MonthlyIncome: 4500, EmployerName: "Acme Corp", EmploymentDuration: 24},
		LoanAmount:    250000,
	}
}

func TestValidateComplete(t *testing.T) {
	res := Validate(completeData())
	if !res.IsValid {
		t.Fatalf("complete data should be valid, errors: %v", res.Errors)
	}
	if len(res.Errors) != 0 {
		t.Errorf("errors = %v, want none", res.Errors)
	}
}

func TestValidateMissingSections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ExtractedApplicationData)
		wantErr string
	}{
		{
			name:    "missing name",
			mutate:  func(d *ExtractedApplicationData) { d.ApplicantName = "" },
			wantErr: "Could not extract applicant name",
		},
		{
			name:    "missing street",
			mutate:  func(d *ExtractedApplicationData) { d.Address.Street = "" },
			wantErr: "Could not extract complete address",
		},
		{
			name:    "missing city",
			mutate:  func(d *ExtractedApplicationData) { d.Address.City = "" },
			wantErr: "Could not extract complete address",
		},
		{
			name:    "missing income",
			mutate:  func(d *ExtractedApplicationData) { d.IncomeDetails.MonthlyIncome = 0 },
			wantErr: "Could not extract income details",
		},
		{
			name:    "missing loan amount",
			mutate:  func(d *ExtractedApplicationData) { d.LoanAmount = 0 },
			wantErr: "Could not extract loan amount",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := completeData()
			tt.mutate(&d)
			res := Validate(d)
			if res.IsValid {
				t.Fatal("mutated data should be invalid")
			}
			if !slices.Contains(res.Errors, tt.wantErr) {
				t.Errorf("errors = %v, want to contain %q", res.Errors, tt.wantErr)
			}
		})
	}
}

func TestValidateToleratesPartialAddressAndNoEmployer(t *testing.T) {
	d := ExtractedApplicationData{
		ApplicantName: "John Smith",
		Address:       Address{Street: "123 Main St", City: "Springfield"},
		IncomeDetails: IncomeDetails{MonthlyIncome: 4500},
		LoanAmount:    250000,
	}
	res := Validate(d)
	if !res.IsValid {
		t.Fatalf("street+city and income amount should be enough, errors: %v", res.Errors)
	}
}

func TestValidateEmptyReportsEverySection(t *testing.T) {
	res := Validate(ExtractedApplicationData{})
	if res.IsValid {
		t.Fatal("empty data should be invalid")
	}
	if len(res.Errors) != 4 {
		t.Errorf("got %d errors, want 4: %v", len(res.Errors), res.Errors)
	}
}
