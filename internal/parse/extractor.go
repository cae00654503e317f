package parse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fintrack-labs/loandocs/constants"
)

// labelStop terminates a free-text capture at the next field label or line
// break. RE2 has no lookahead, so the stop is matched (not asserted) outside
// the capture group and combined with a non-greedy body.
const labelStop = `(?:Applicant|Name|Address|Street|City|State|Zip\s*Code|ZIP|Monthly\s*Income|Income|Employer|Company|Employment\s*Duration|Loan\s*Amount)\s*:|\n|$`

const (
	nameBody   = `[A-Za-z\s]+?`
	streetBody = `[A-Za-z0-9\s,.#]+?`
	moneyBody  = `[\d,]+(?:\.\d{1,2})?`
	zipBody    = `\d{5}(?:-\d{4})?`
)

// rule is one (pattern, extractor) pair. The pattern's first capture group is
// trimmed and handed to assign; a rule whose capture trims to "" is treated
// as a non-match.
type rule struct {
	re     *regexp.Regexp
	assign func(*ExtractedApplicationData, string)
}

// labeledRule captures free text after "<label>:" up to the next label or
// line break.
func labeledRule(label, body string, assign func(*ExtractedApplicationData, string)) rule {
	return rule{
		re:     regexp.MustCompile(`(?i)` + label + `:?\s*(` + body + `)\s*(?:` + labelStop + `)`),
		assign: assign,
	}
}

// fieldChain is the ordered set of alternative rules for one output field.
// Rules are tried in priority order and the first match wins, so reordering a
// chain silently changes extraction results.
type fieldChain struct {
	field string
	types []constants.DocumentType // nil = relevant to every document type
	rules []rule
}

func (c fieldChain) appliesTo(dt constants.DocumentType) bool {
	if c.types == nil || dt == constants.Application {
		return true
	}
	for _, t := range c.types {
		if t == dt {
			return true
		}
	}
	return false
}

var chains = []fieldChain{
	{
		field: "applicant_name",
		types: []constants.DocumentType{constants.IDProof, constants.LoanApplication},
		rules: []rule{
			labeledRule(`Name`, nameBody, func(d *ExtractedApplicationData, v string) { d.ApplicantName = v }),
			labeledRule(`Applicant`, nameBody, func(d *ExtractedApplicationData, v string) { d.ApplicantName = v }),
		},
	},
	{
		field: "address.street",
		types: []constants.DocumentType{constants.IDProof},
		rules: []rule{
			labeledRule(`Address`, streetBody, func(d *ExtractedApplicationData, v string) { d.Address.Street = v }),
			labeledRule(`Street`, streetBody, func(d *ExtractedApplicationData, v string) { d.Address.Street = v }),
		},
	},
	{
		field: "address.city",
		types: []constants.DocumentType{constants.IDProof},
		rules: []rule{
			labeledRule(`City`, nameBody, func(d *ExtractedApplicationData, v string) { d.Address.City = v }),
		},
	},
	{
		field: "address.state",
		types: []constants.DocumentType{constants.IDProof},
		rules: []rule{
			{
				re:     regexp.MustCompile(`(?i)State:?\s*([A-Za-z]{2,})`),
				assign: func(d *ExtractedApplicationData, v string) { d.Address.State = strings.ToUpper(v) },
			},
		},
	},
	{
		field: "address.zip_code",
		types: []constants.DocumentType{constants.IDProof},
		rules: []rule{
			{
				re:     regexp.MustCompile(`(?i)ZIP:?\s*(` + zipBody + `)`),
				assign: func(d *ExtractedApplicationData, v string) { d.Address.ZipCode = v },
			},
			{
				re:     regexp.MustCompile(`(?i)Zip\s*Code:?\s*(` + zipBody + `)`),
				assign: func(d *ExtractedApplicationData, v string) { d.Address.ZipCode = v },
			},
		},
	},
	{
		field: "income_details.monthly_income",
		types: []constants.DocumentType{constants.IncomeStatement, constants.BankStatement},
		rules: []rule{
			{
				re:     regexp.MustCompile(`(?i)Monthly\s*Income:?\s*\$?\s*(` + moneyBody + `)`),
				assign: func(d *ExtractedApplicationData, v string) { d.IncomeDetails.MonthlyIncome = parseAmount(v) },
			},
			{
				re:     regexp.MustCompile(`(?i)Income:?\s*\$?\s*(` + moneyBody + `)`),
				assign: func(d *ExtractedApplicationData, v string) { d.IncomeDetails.MonthlyIncome = parseAmount(v) },
			},
		},
	},
	{
		field: "income_details.employer_name",
		types: []constants.DocumentType{constants.IncomeStatement, constants.BankStatement},
		rules: []rule{
			labeledRule(`Employer`, streetBody, func(d *ExtractedApplicationData, v string) { d.IncomeDetails.EmployerName = v }),
			labeledRule(`Company`, streetBody, func(d *ExtractedApplicationData, v string) { d.IncomeDetails.EmployerName = v }),
		},
	},
	{
		field: "income_details.employment_duration_months",
		types: []constants.DocumentType{constants.IncomeStatement, constants.BankStatement},
		rules: []rule{
			{
				re:     regexp.MustCompile(`(?i)Employment\s*Duration:?\s*(\d+)`),
				assign: func(d *ExtractedApplicationData, v string) { d.IncomeDetails.EmploymentDuration = parseMonths(v) },
			},
			{
				re:     regexp.MustCompile(`(?i)(\d+)\s*months?\b`),
				assign: func(d *ExtractedApplicationData, v string) { d.IncomeDetails.EmploymentDuration = parseMonths(v) },
			},
		},
	},
	{
		field: "loan_amount",
		types: []constants.DocumentType{constants.LoanApplication},
		rules: []rule{
			{
				re:     regexp.MustCompile(`(?i)Loan\s*Amount:?\s*\$?\s*(` + moneyBody + `)`),
				assign: func(d *ExtractedApplicationData, v string) { d.LoanAmount = parseAmount(v) },
			},
			{
				re:     regexp.MustCompile(`(?i)Amount\s*Requested:?\s*\$?\s*(` + moneyBody + `)`),
				assign: func(d *ExtractedApplicationData, v string) { d.LoanAmount = parseAmount(v) },
			},
		},
	},
}

// Extract runs every rule chain against the raw text. Extraction is pure and
// best-effort: unmatched fields keep their zero values and matching never
// fails.
func Extract(text string) ExtractedApplicationData {
	return ExtractForType(text, "")
}

// ExtractForType is Extract with a document-type hint: chains irrelevant to
// the hinted type are skipped. Unknown or empty hints run every chain.
func ExtractForType(text, docType string) ExtractedApplicationData {
	var d ExtractedApplicationData
	dt, _ := constants.CanonicalizeDocType(docType)

	for _, c := range chains {
		if !c.appliesTo(dt) {
			continue
		}
		for _, r := range c.rules {
			m := r.re.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			v := strings.TrimSpace(m[1])
			if v == "" {
				continue
			}
			r.assign(&d, v)
			break
		}
	}

	// OCR output often runs the whole address together after a single label.
	// When only the street slot matched, re-parse it as a combined blob.
	if d.Address.Street != "" && d.Address.City == "" && d.Address.State == "" {
		parsed := parseAddressBlob(d.Address.Street)
		if parsed.ZipCode == "" {
			parsed.ZipCode = d.Address.ZipCode
		}
		d.Address = parsed
	}

	return d
}

// parseAmount converts a matched money token to a float. Currency symbols
// and thousands separators are stripped first; anything still unparsable
// falls back to the zero default rather than failing the extraction.
func parseAmount(s string) float64 {
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(s))
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseMonths(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
