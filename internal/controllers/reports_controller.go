package controllers

import (
	"strings"
	"time"

	"github.com/romeoman/hubspot-sales-intelligence-extension/internal/auth"
	"github.com/romeoman/hubspot-sales-intelligence-extension/internal/domain"
	"github.com/romeoman/hubspot-sales-intelligence-extension/internal/salesintel"
	"github.com/romeoman/hubspot-sales-intelligence-extension/internal/tokens"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/rs/zerolog/log"
)

// ReportsController implements report discovery and signed access URL
// generation for the UI extension.
type ReportsController struct {
	tokenStore *tokens.Store
	salesIntel *salesintel.Client
	signer     *auth.URLSigner
}

type ReportsControllerDependencies struct {
	TokenStore       *tokens.Store
	SalesIntelClient *salesintel.Client
	URLSigner        *auth.URLSigner
}

func NewReportsController(deps ReportsControllerDependencies) *ReportsController {
	return &ReportsController{
		tokenStore: deps.TokenStore,
		salesIntel: deps.SalesIntelClient,
		signer:     deps.URLSigner,
	}
}

// Available lists the reports discoverable for a contact or company record.
// Discovery failures degrade to an empty list inside the client; only this
// endpoint's own validation and auth failures surface as errors.
func (c *ReportsController) Available(ctx fiber.Ctx) error {
	contactID := ctx.Query("contactId")
	companyID := ctx.Query("companyId")
	portalID := ctx.Query("portalId")

	validationErrors := domain.ValidateReportRequest(domain.ReportRequestParams{
		ContactID: contactID,
		CompanyID: companyID,
		PortalID:  portalID,
	})
	if len(validationErrors) > 0 {
		log.Warn().
			Strs("errors", validationErrors).
			Str("portal_id", portalID).
			Msg("Invalid report availability request")

		return respondError(ctx, domain.KindInvalidRequest,
			strings.Join(validationErrors, ", "), validationErrors)
	}

	reportCtx := domain.NewReportContext(portalID, contactID, companyID)

	log.Info().
		Str("object_type", reportCtx.ObjectType).
		Str("object_id", reportCtx.ObjectID).
		Str("portal_id", reportCtx.PortalID).
		Msg("Checking report availability")

	token, err := c.tokenStore.Get(ctx.RequestCtx(), portalID)
	if err != nil {
		log.Error().Err(err).Str("portal_id", portalID).Msg("Report availability check failed")
		return respondError(ctx, domain.KindInternal, "Failed to check report availability. Please try again.", nil)
	}
	if token == nil {
		log.Warn().Str("portal_id", portalID).Msg("No valid token found")
		return respondError(ctx, domain.KindUnauthorized,
			"Authentication required. Please reconnect your HubSpot account.", nil)
	}

	if c.tokenStore.IsExpiringSoon(ctx.RequestCtx(), portalID, tokens.DefaultExpiryThreshold) {
		// Refresh is the UI's responsibility via the refresh endpoint; the
		// current token still works for the remainder of its window.
		log.Info().Str("portal_id", portalID).Msg("Token expiring soon")
	}

	reports := c.salesIntel.CheckReportAvailability(ctx.RequestCtx(), salesintel.SearchParams{
		ContactID: reportCtx.ContactID(),
		CompanyID: reportCtx.CompanyID(),
		PortalID:  reportCtx.PortalID,
	})

	return respondOK(ctx, domain.ReportAvailabilityResponse{Reports: reports})
}

// GenerateURL looks up a report by slug and returns its access URL with a
// signed, 24-hour token bound to the requesting record appended.
func (c *ReportsController) GenerateURL(ctx fiber.Ctx) error {
	var req domain.GenerateReportURLRequest
	if err := ctx.Bind().Body(&req); err != nil {
		log.Warn().Err(err).Msg("Invalid generate-url request body")
		return respondError(ctx, domain.KindInvalidRequest, "Invalid request body", nil)
	}

	if req.Slug == "" {
		log.Warn().Msg("Missing required parameter: slug")
		return respondError(ctx, domain.KindInvalidRequest, "Report slug is required", nil)
	}

	log.Info().
		Str("slug", req.Slug).
		Str("contact_id", req.ContactID).
		Str("company_id", req.CompanyID).
		Str("portal_id", req.PortalID).
		Msg("Generating report URL")

	if req.PortalID != "" {
		token, err := c.tokenStore.Get(ctx.RequestCtx(), req.PortalID)
		if err != nil {
			log.Error().Err(err).Str("portal_id", req.PortalID).Msg("Report URL generation failed")
			return respondError(ctx, domain.KindInternal, "Failed to generate report URL. Please try again.", nil)
		}
		if token == nil {
			log.Warn().Str("portal_id", req.PortalID).Msg("No valid token found")
			return respondError(ctx, domain.KindUnauthorized,
				"Authentication required. Please reconnect your HubSpot account.", nil)
		}
	}

	report, err := c.salesIntel.GetReport(ctx.RequestCtx(), req.Slug)
	if err != nil {
		log.Error().Err(err).Str("slug", req.Slug).Msg("Report URL generation failed")
		return respondForError(ctx, err, "Failed to generate report URL. Please try again.")
	}

	rawURL := c.salesIntel.GenerateReportURL(report.Slug, "")

	signedURL, expiresAt, err := c.signer.SignURL(rawURL, auth.URLClaims{
		Slug:      report.Slug,
		ReportID:  report.ID,
		ContactID: req.ContactID,
		CompanyID: req.CompanyID,
		PortalID:  req.PortalID,
		RequestID: requestid.FromContext(ctx),
	})
	if err != nil {
		log.Error().Err(err).Str("slug", req.Slug).Msg("Report URL generation failed")
		return respondError(ctx, domain.KindInternal, "Failed to generate report URL. Please try again.", nil)
	}

	log.Info().
		Str("slug", report.Slug).
		Str("report_id", report.ID).
		Time("expires_at", expiresAt).
		Msg("Report URL generated")

	return respondOK(ctx, domain.GenerateReportURLResponse{
		URL:       signedURL,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
		ReportID:  report.ID,
		Slug:      report.Slug,
	})
}
