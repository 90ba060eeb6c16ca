package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewReportContext(t *testing.T) {
	testCases := []struct {
		name              string
		portalID          string
		contactID         string
		companyID         string
		expectedType      string
		expectedObjectID  string
		expectedContactID string
		expectedCompanyID string
	}{
		{
			name:              "contact record",
			portalID:          "12345",
			contactID:         "777",
			expectedType:      ObjectTypeContact,
			expectedObjectID:  "777",
			expectedContactID: "777",
		},
		{
			name:              "contact with associated company",
			portalID:          "12345",
			contactID:         "777",
			companyID:         "888",
			expectedType:      ObjectTypeContact,
			expectedObjectID:  "777",
			expectedContactID: "777",
			expectedCompanyID: "888",
		},
		{
			name:              "company record",
			portalID:          "12345",
			companyID:         "888",
			expectedType:      ObjectTypeCompany,
			expectedObjectID:  "888",
			expectedCompanyID: "888",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			reportCtx := NewReportContext(tc.portalID, tc.contactID, tc.companyID)

			assert.Equal(t, tc.portalID, reportCtx.PortalID)
			assert.Equal(t, tc.expectedType, reportCtx.ObjectType)
			assert.Equal(t, tc.expectedObjectID, reportCtx.ObjectID)
			assert.Equal(t, tc.expectedContactID, reportCtx.ContactID())
			assert.Equal(t, tc.expectedCompanyID, reportCtx.CompanyID())
		})
	}
}
