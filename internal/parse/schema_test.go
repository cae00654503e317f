package parse

import (
	"encoding/json"
	"testing"
)

func TestValidateExtractedJSONAcceptsPipelineOutput(t *testing.T) {
	d := Extract(sampleText)
	d.OCRData = OCRData{RawText: sampleText, Confidence: 91.5}

	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := ValidateExtractedJSON(b); err != nil {
		t.Errorf("pipeline output should satisfy the schema: %v", err)
	}
}

func TestValidateExtractedJSONAcceptsZeroValue(t *testing.T) {
	// Failed extractions still serialize to a structurally complete payload.
	b, err := json.Marshal(ExtractedApplicationData{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := ValidateExtractedJSON(b); err != nil {
		t.Errorf("zero value should satisfy the schema: %v", err)
	}
}

func TestValidateExtractedJSONRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"wrong type for loan_amount", `{"applicant_name":"","address":{"street":"","city":"","state":"","zip_code":""},"income_details":{"monthly_income":0,"employer_name":"","employment_duration_months":0},"loan_amount":"a lot","ocr_data":{"raw_text":"","confidence":0}}`},
		{"bad zip format", `{"applicant_name":"","address":{"street":"","city":"","state":"","zip_code":"abcde"},"income_details":{"monthly_income":0,"employer_name":"","employment_duration_months":0},"loan_amount":0,"ocr_data":{"raw_text":"","confidence":0}}`},
		{"missing address", `{"applicant_name":"","income_details":{"monthly_income":0,"employer_name":"","employment_duration_months":0},"loan_amount":0,"ocr_data":{"raw_text":"","confidence":0}}`},
		{"unknown field", `{"applicant_name":"","surprise":true,"address":{"street":"","city":"","state":"","zip_code":""},"income_details":{"monthly_income":0,"employer_name":"","employment_duration_months":0},"loan_amount":0,"ocr_data":{"raw_text":"","confidence":0}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateExtractedJSON([]byte(tt.body)); err == nil {
				t.Error("expected schema violation, got nil")
			}
		})
	}
}
