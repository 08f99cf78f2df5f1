// Package inputcheck screens free-text request fields for injection payloads.
package inputcheck

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// Finding describes a field that matched an injection pattern.
type Finding struct {
	Field       string
	IsSQLi      bool
	IsXSS       bool
	Fingerprint string // libinjection fingerprint for SQLi matches
}

// Reason returns a short description suitable for a validation message.
func (f *Finding) Reason() string {
	switch {
	case f.IsXSS && f.IsSQLi:
		return "contains script and SQL injection patterns"
	case f.IsXSS:
		return "contains a script injection pattern"
	default:
		return "contains a SQL injection pattern"
	}
}

// CheckField runs libinjection's XSS and SQLi detectors on a value.
// Returns nil when the value is clean.
func CheckField(field, value string) *Finding {
	if value == "" {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(value)
	isXSS := libinjection.IsXSS(value)
	if !isSQLi && !isXSS {
		return nil
	}

	return &Finding{
		Field:       field,
		IsSQLi:      isSQLi,
		IsXSS:       isXSS,
		Fingerprint: string(fingerprint),
	}
}

// CheckFields checks every field and returns findings in argument order.
// fields alternates name, value.
func CheckFields(fields ...string) []*Finding {
	var findings []*Finding
	for i := 0; i+1 < len(fields); i += 2 {
		if f := CheckField(fields[i], fields[i+1]); f != nil {
			findings = append(findings, f)
		}
	}
	return findings
}
