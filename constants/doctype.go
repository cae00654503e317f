package constants

import "strings"

// DocumentType hints which extraction rules are most relevant for a scan.
type DocumentType string

const (
	IDProof         DocumentType = "id-proof"
	IncomeStatement DocumentType = "income-statement"
	LoanApplication DocumentType = "loan-application"
	BankStatement   DocumentType = "bank-statement"
	Application     DocumentType = "application"
)

var allDocumentTypes = []DocumentType{
	IDProof,
	IncomeStatement,
	LoanApplication,
	BankStatement,
	Application,
}

// DocumentTypesAsStrings returns the canonical labels for API responses.
func DocumentTypesAsStrings() []string {
	result := make([]string, len(allDocumentTypes))
	for i, dt := range allDocumentTypes {
		result[i] = string(dt)
	}
	return result
}

// CanonicalizeDocType maps free-form labels onto a canonical document type.
// Unknown or empty input falls back to the generic Application type.
func CanonicalizeDocType(input string) (DocumentType, bool) {
	if input == "" {
		return Application, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	synonyms := map[string]DocumentType{
		"id":               IDProof,
		"identity":         IDProof,
		"id proof":         IDProof,
		"drivers license":  IDProof,
		"passport":         IDProof,
		"income":           IncomeStatement,
		"paystub":          IncomeStatement,
		"pay stub":         IncomeStatement,
		"payslip":          IncomeStatement,
		"salary statement": IncomeStatement,
		"loan":             LoanApplication,
		"loan form":        LoanApplication,
		"bank":             BankStatement,
		"statement":        BankStatement,
	}

	if dt, ok := synonyms[normalized]; ok {
		return dt, true
	}

	for _, dt := range allDocumentTypes {
		if normalized == string(dt) {
			return dt, true
		}
	}

	return Application, false
}
