package domain

// ReportDescriptor describes one discoverable sales intelligence report for a
// contact or company record. Descriptors are never persisted here; they are
// re-fetched from the report backend on demand.
type ReportDescriptor struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	HasData     bool   `json:"hasData"`
	ReportURL   string `json:"reportUrl,omitempty"`
	Slug        string `json:"slug,omitempty"`
	LastUpdated string `json:"lastUpdated,omitempty"`
}

const (
	ObjectTypeContact = "contact"
	ObjectTypeCompany = "company"
)

// ReportContext identifies the CRM record a report request is about.
// It is reconstructed per request from the host platform, never stored.
type ReportContext struct {
	PortalID            string `json:"portalId"`
	ObjectType          string `json:"objectType"`
	ObjectID            string `json:"objectId"`
	AssociatedCompanyID string `json:"associatedCompanyId,omitempty"`
}

// NewReportContext reconstructs the context from the identifying ids the UI
// passes on each call. A contact id makes the contact the subject record,
// with any company id carried as the association; otherwise the company is
// the subject.
func NewReportContext(portalID, contactID, companyID string) ReportContext {
	if contactID != "" {
		return ReportContext{
			PortalID:            portalID,
			ObjectType:          ObjectTypeContact,
			ObjectID:            contactID,
			AssociatedCompanyID: companyID,
		}
	}

	return ReportContext{
		PortalID:   portalID,
		ObjectType: ObjectTypeCompany,
		ObjectID:   companyID,
	}
}

// ContactID returns the contact the context identifies, if any.
func (c ReportContext) ContactID() string {
	if c.ObjectType == ObjectTypeContact {
		return c.ObjectID
	}
	return ""
}

// CompanyID returns the company the context identifies, directly or by
// association.
func (c ReportContext) CompanyID() string {
	if c.ObjectType == ObjectTypeCompany {
		return c.ObjectID
	}
	return c.AssociatedCompanyID
}

// ReportAvailabilityResponse is the payload of the reports/available endpoint.
type ReportAvailabilityResponse struct {
	Reports []ReportDescriptor `json:"reports"`
}

// GenerateReportURLRequest is the body of the reports/generate-url endpoint.
type GenerateReportURLRequest struct {
	Slug      string `json:"slug"`
	ContactID string `json:"contactId,omitempty"`
	CompanyID string `json:"companyId,omitempty"`
	PortalID  string `json:"portalId,omitempty"`
}

// GenerateReportURLResponse carries the signed access URL for a report.
type GenerateReportURLResponse struct {
	URL       string `json:"url"`
	ExpiresAt string `json:"expiresAt"`
	ReportID  string `json:"reportId,omitempty"`
	Slug      string `json:"slug,omitempty"`
}
