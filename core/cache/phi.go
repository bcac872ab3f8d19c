package cache

import "regexp"

// Patient identifiers must never reach cache keys or stored values.
// Redaction happens before hashing and before persisting response text.
var phiPatterns = []*regexp.Regexp{
	// US-style phone numbers
	regexp.MustCompile(`\b(?:\+?1[\s.-]?)?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}\b`),
	// social security numbers
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	// medical record numbers, e.g. "MRN 12345678" or "MRN: 12345678"
	regexp.MustCompile(`(?i)\bmrn[:\s#]*\d{5,10}\b`),
	// dates of birth, e.g. "DOB 01/02/1990" or "born 1990-01-02"
	regexp.MustCompile(`(?i)\b(?:dob|date of birth|born)[:\s]*\d{1,4}[/-]\d{1,2}[/-]\d{1,4}\b`),
	// names following "patient", e.g. "patient John Smith"
	regexp.MustCompile(`(?i)\bpatient\s+(?:[A-Z][a-z]+\s?){1,3}\b`),
}

// ScrubPHI replaces patient-identifying fragments with a redaction marker
func ScrubPHI(text string) string {
	scrubbed := text
	for _, pattern := range phiPatterns {
		scrubbed = pattern.ReplaceAllString(scrubbed, "[REDACTED]")
	}
	return scrubbed
}
