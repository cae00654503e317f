package parse

import (
	"regexp"
	"strings"
)

var (
	zipToken      = regexp.MustCompile(`\d{5}(?:-\d{4})?`)
	trailingState = regexp.MustCompile(`(?i)[\s,]([A-Za-z]{2})\s*$`)
	wordStart     = regexp.MustCompile(`\b\w`)
)

// parseAddressBlob splits a combined one-line address into components. The
// ZIP code is pulled out first: it is the most reliably shaped token in noisy
// OCR text, so it anchors the rest of the parse. A trailing two-letter token
// is treated as the state only when a ZIP was present, otherwise street
// suffixes like "St" would be misread as states.
func parseAddressBlob(blob string) Address {
	var addr Address
	rest := strings.TrimSpace(blob)

	if m := zipToken.FindString(rest); m != "" {
		addr.ZipCode = m
		rest = strings.TrimSpace(strings.Replace(rest, m, "", 1))
	}

	if addr.ZipCode != "" {
		if m := trailingState.FindStringSubmatch(rest); m != nil {
			addr.State = strings.ToUpper(m[1])
			rest = strings.TrimSpace(trailingState.ReplaceAllString(rest, ""))
		}
	}

	rest = strings.TrimSuffix(strings.TrimSpace(rest), ",")
	if i := strings.LastIndex(rest, ","); i >= 0 {
		addr.City = titleCase(strings.TrimSpace(rest[i+1:]))
		addr.Street = titleCase(strings.TrimSpace(rest[:i]))
	} else {
		addr.Street = titleCase(rest)
	}
	return addr
}

// titleCase uppercases the first letter of each word, leaving the rest of
// the word untouched so OCR'd acronyms survive.
func titleCase(s string) string {
	return wordStart.ReplaceAllStringFunc(s, strings.ToUpper)
}
