package salesintel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/romeoman/hubspot-sales-intelligence-extension/internal/domain"

	"github.com/rs/zerolog/log"
)

// Error is a failed request to the sales intelligence backend. The kind is
// assigned from the response status at the point of failure; nothing later
// re-derives it from the message.
type Error struct {
	StatusCode int
	Kind       domain.ErrorKind
	Message    string
	Body       string
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("sales intel request failed: %d %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("sales intel request failed: %s", e.Message)
}

// AppErrorKind exposes the tagged kind to the handler layer.
func (e *Error) AppErrorKind() domain.ErrorKind {
	return e.Kind
}

// Retryable reports whether re-issuing the request can help: transient
// network failures and 5xx responses only. Client errors never retry.
func (e *Error) Retryable() bool {
	if e.StatusCode == 0 {
		return true
	}

	switch e.StatusCode {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}

	return false
}

// ClientConfig holds the report backend client settings.
type ClientConfig struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	HTTPClient    *http.Client
}

// DefaultConfig returns client defaults matching the backend's documented
// limits: 30s per call, 3 attempts with linear backoff.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		Timeout:       30 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
	}
}

// ClientOption configures a Client.
type ClientOption func(*ClientConfig)

// WithBaseURL sets the backend base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *ClientConfig) {
		c.BaseURL = baseURL
	}
}

// WithAPIKey sets the bearer token sent on every request.
func WithAPIKey(apiKey string) ClientOption {
	return func(c *ClientConfig) {
		c.APIKey = apiKey
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.Timeout = timeout
	}
}

// WithRetry sets the attempt budget and base delay between attempts.
func WithRetry(attempts int, delay time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.RetryAttempts = attempts
		c.RetryDelay = delay
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *ClientConfig) {
		c.HTTPClient = httpClient
	}
}

// Client is a typed HTTP client for the sales intelligence report backend.
// Every response is expected to carry the `{success, data, error}` envelope.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a report backend client with the given options.
func NewClient(options ...ClientOption) *Client {
	config := DefaultConfig()

	for _, option := range options {
		option(config)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// doRequest issues one HTTP call with the retry policy applied: up to
// RetryAttempts attempts, waiting RetryDelay * attempt between them, and only
// when the previous failure was retryable.
func (c *Client) doRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	requestURL := c.config.BaseURL + path

	var lastErr *Error
	for attempt := 1; attempt <= c.config.RetryAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.RetryDelay * time.Duration(attempt-1)):
			}
		}

		respBody, reqErr := c.doAttempt(ctx, method, requestURL, bodyBytes)
		if reqErr == nil {
			return respBody, nil
		}

		lastErr = reqErr
		if !reqErr.Retryable() {
			return nil, reqErr
		}

		log.Warn().
			Int("attempt", attempt).
			Int("status_code", reqErr.StatusCode).
			Str("url", requestURL).
			Msg("Retryable sales intel request failure")
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", c.config.RetryAttempts, lastErr)
}

func (c *Client) doAttempt(ctx context.Context, method, requestURL string, bodyBytes []byte) ([]byte, *Error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var requestBody io.Reader
	if bodyBytes != nil {
		requestBody = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, requestBody)
	if err != nil {
		return nil, &Error{Kind: domain.KindInternal, Message: err.Error()}
	}

	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: domain.KindUpstream, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: domain.KindUpstream, Message: err.Error()}
	}

	if resp.StatusCode >= 400 {
		return nil, classifyStatus(resp.StatusCode, respBody)
	}

	return respBody, nil
}

// classifyStatus maps an upstream HTTP status to a tagged error.
func classifyStatus(statusCode int, body []byte) *Error {
	var env envelope
	message := http.StatusText(statusCode)
	if json.Unmarshal(body, &env) == nil && env.Error != "" {
		message = env.Error
	}

	kind := domain.KindUpstream
	switch {
	case statusCode == http.StatusUnauthorized:
		kind = domain.KindUnauthorized
	case statusCode == http.StatusForbidden:
		kind = domain.KindInsufficientPermissions
	case statusCode == http.StatusNotFound:
		kind = domain.KindReportNotFound
	case statusCode == http.StatusTooManyRequests:
		kind = domain.KindRateLimited
	case statusCode < 500:
		kind = domain.KindInvalidRequest
	}

	return &Error{
		StatusCode: statusCode,
		Kind:       kind,
		Message:    message,
		Body:       string(body),
	}
}

// request performs a call and unwraps the response envelope into result.
func (c *Client) request(ctx context.Context, method, path string, body, result any) error {
	respBody, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !env.Success {
		message := env.Error
		if message == "" {
			message = "invalid response from sales intel backend"
		}
		return &Error{Kind: domain.KindUpstream, Message: message, Body: string(respBody)}
	}

	if result != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("failed to unmarshal response data: %w", err)
		}
	}

	return nil
}

// ReportSummary is one report hit from the search endpoint.
type ReportSummary struct {
	ID        string `json:"id"`
	Slug      string `json:"slug"`
	CreatedAt string `json:"created_at"`
}

// ReportData is a full report record.
type ReportData struct {
	ID               string          `json:"id"`
	Slug             string          `json:"slug"`
	SchemaKey        string          `json:"schemaKey"`
	HubSpotRecordID  string          `json:"hubspotRecordId,omitempty"`
	HubSpotCompanyID string          `json:"hubspotCompanyId,omitempty"`
	HubSpotContactID string          `json:"hubspotContactId,omitempty"`
	Payload          json.RawMessage `json:"payload,omitempty"`
	CreatedAt        string          `json:"created_at"`
	UpdatedAt        string          `json:"updated_at"`
}

// CreateReportRequest is the input to report generation.
type CreateReportRequest struct {
	ContactID  string          `json:"contactId,omitempty"`
	CompanyID  string          `json:"companyId,omitempty"`
	PortalID   string          `json:"portalId,omitempty"`
	SchemaKey  string          `json:"schemaKey,omitempty"`
	ReportData json.RawMessage `json:"reportData"`
}

// CreatedReport is the backend's answer to report generation.
type CreatedReport struct {
	ID               string `json:"id"`
	URL              string `json:"url"`
	Slug             string `json:"slug"`
	CreatedAt        string `json:"created_at"`
	ProcessingTimeMS int64  `json:"processing_time_ms"`
}

// SearchParams identify the CRM records to look up reports for.
type SearchParams struct {
	ContactID string
	CompanyID string
	PortalID  string
}

// FindReportsByHubSpotIDs searches the backend for reports bound to the given
// contact or company. A 404 means no reports exist and is not a failure.
func (c *Client) FindReportsByHubSpotIDs(ctx context.Context, contactID, companyID string) ([]ReportSummary, error) {
	query := url.Values{}
	if contactID != "" {
		query.Set("hubspot_contact_id", contactID)
	}
	if companyID != "" {
		query.Set("hubspot_company_id", companyID)
	}

	var reports []ReportSummary
	err := c.request(ctx, http.MethodGet, "/api/reports/search?"+query.Encode(), nil, &reports)
	if err != nil {
		var reqErr *Error
		if errors.As(err, &reqErr) && reqErr.Kind == domain.KindReportNotFound {
			return nil, nil
		}
		return nil, err
	}

	return reports, nil
}

// CheckReportAvailability lists the discoverable reports for a record. Every
// failure of the underlying search degrades to an empty list: no reports is a
// valid, recoverable UI state while an error is not.
func (c *Client) CheckReportAvailability(ctx context.Context, params SearchParams) []domain.ReportDescriptor {
	reports, err := c.FindReportsByHubSpotIDs(ctx, params.ContactID, params.CompanyID)
	if err != nil {
		log.Warn().
			Err(err).
			Str("contact_id", params.ContactID).
			Str("company_id", params.CompanyID).
			Str("portal_id", params.PortalID).
			Msg("Report search failed, returning no reports")

		return []domain.ReportDescriptor{}
	}

	descriptors := make([]domain.ReportDescriptor, 0, len(reports))
	for _, report := range reports {
		descriptors = append(descriptors, domain.ReportDescriptor{
			ID:          report.ID,
			Name:        "sales-intelligence",
			Description: "AI-powered sales intelligence report with outreach recommendations",
			HasData:     true,
			Slug:        report.Slug,
			ReportURL:   c.GenerateReportURL(report.Slug, ""),
		})
	}

	log.Info().
		Str("portal_id", params.PortalID).
		Int("available_reports", len(descriptors)).
		Msg("Report availability checked")

	return descriptors
}

// GetReport fetches one report by slug.
func (c *Client) GetReport(ctx context.Context, slug string) (*ReportData, error) {
	var report ReportData
	if err := c.request(ctx, http.MethodGet, "/api/report/"+url.PathEscape(slug), nil, &report); err != nil {
		var reqErr *Error
		if errors.As(err, &reqErr) && reqErr.Kind == domain.KindReportNotFound {
			return nil, domain.WrapError(domain.KindReportNotFound, "The requested report could not be found.", err)
		}
		return nil, err
	}

	return &report, nil
}

// CreateReport asks the backend to generate a new report for a record.
func (c *Client) CreateReport(ctx context.Context, req CreateReportRequest) (*CreatedReport, error) {
	if req.SchemaKey == "" {
		req.SchemaKey = "sales-intel-v1"
	}

	payload := map[string]any{
		"schemaKey":        req.SchemaKey,
		"hubspotRecordId":  firstNonEmpty(req.ContactID, req.CompanyID),
		"hubspotCompanyId": req.CompanyID,
		"hubspotContactId": req.ContactID,
		"reportData":       req.ReportData,
	}

	var created CreatedReport
	if err := c.request(ctx, http.MethodPost, "/api/report", payload, &created); err != nil {
		return nil, err
	}

	log.Info().
		Str("report_id", created.ID).
		Str("slug", created.Slug).
		Int64("processing_time_ms", created.ProcessingTimeMS).
		Msg("Report created")

	return &created, nil
}

// ValidateReport reports whether a report slug resolves on the backend.
// It never returns an error; failures count as invalid.
func (c *Client) ValidateReport(ctx context.Context, slug string) bool {
	var result struct {
		IsValid bool `json:"isValid"`
	}

	if err := c.request(ctx, http.MethodGet, "/api/reports/"+url.PathEscape(slug)+"/validate", nil, &result); err != nil {
		log.Warn().Err(err).Str("slug", slug).Msg("Report validation failed")
		return false
	}

	return result.IsValid
}

// CheckHealth probes the backend's health endpoint.
func (c *Client) CheckHealth(ctx context.Context) bool {
	_, err := c.doRequest(ctx, http.MethodGet, "/api/health", nil)
	return err == nil
}

// GenerateReportURL is pure string construction: the public viewer URL for a
// report slug. An empty baseURL falls back to the client's base URL.
func (c *Client) GenerateReportURL(slug, baseURL string) string {
	if baseURL == "" {
		baseURL = c.config.BaseURL
	}

	return baseURL + "/r/" + slug
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
