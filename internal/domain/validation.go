package domain

import (
	"regexp"
	"strings"
)

var hubspotIDPattern = regexp.MustCompile(`^[1-9]\d*$`)

// IsValidHubSpotID reports whether id looks like a HubSpot object id:
// a positive base-10 integer with no leading zeros.
func IsValidHubSpotID(id string) bool {
	return hubspotIDPattern.MatchString(id)
}

// SanitizeString strips characters with HTML or quoting significance.
func SanitizeString(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '"', '\'':
			return -1
		}
		return r
	}, s))
}

// ReportRequestParams are the identifying fields of a report request.
type ReportRequestParams struct {
	ContactID string
	CompanyID string
	PortalID  string
}

// ValidateReportRequest checks a report request's identifying fields and
// returns every problem found, not just the first.
func ValidateReportRequest(params ReportRequestParams) []string {
	var errs []string

	if params.PortalID == "" {
		errs = append(errs, "Portal ID is required")
	} else if !IsValidHubSpotID(params.PortalID) {
		errs = append(errs, "Invalid Portal ID format")
	}

	if params.ContactID == "" && params.CompanyID == "" {
		errs = append(errs, "Either Contact ID or Company ID is required")
	}

	if params.ContactID != "" && !IsValidHubSpotID(params.ContactID) {
		errs = append(errs, "Invalid Contact ID format")
	}

	if params.CompanyID != "" && !IsValidHubSpotID(params.CompanyID) {
		errs = append(errs, "Invalid Company ID format")
	}

	return errs
}
