package parse

// Address is the mailing-address block of an application. Each component is
// independently optional and defaults to "".
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
}

// IncomeDetails holds the income fields parsed from a statement.
type IncomeDetails struct {
	MonthlyIncome      float64 `json:"monthly_income"`
	EmployerName       string  `json:"employer_name"`
	EmploymentDuration int     `json:"employment_duration_months"`
}

// OCRData carries the raw recognition output alongside the parsed fields so
// a human reviewer can check the extraction against its source.
type OCRData struct {
	RawText    string  `json:"raw_text"`
	Confidence float64 `json:"confidence"` // 0-100, diagnostic only
}

// ExtractedApplicationData is the fixed schema the field extractor fills in.
// The shape is always complete: a field that was not found keeps its zero
// value rather than being absent.
type ExtractedApplicationData struct {
	ApplicantName string        `json:"applicant_name"`
	Address       Address       `json:"address"`
	IncomeDetails IncomeDetails `json:"income_details"`
	LoanAmount    float64       `json:"loan_amount"`
	OCRData       OCRData       `json:"ocr_data"`
}
