package federalregister

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/regraph/regraph/helper"
	"github.com/regraph/regraph/ingestion"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public Federal Register API.
const DefaultBaseURL = "https://www.federalregister.gov/api/v1"

// perPage is the maximum page size the API allows.
const perPage = 100

// documentFields are the fields requested per document. Everything the record
// model and the graph projection consume must be listed here, the API returns
// nothing by default.
var documentFields = []string{
	"title",
	"document_number",
	"publication_date",
	"document_type",
	"html_url",
	"pdf_url",
	"agencies",
	"abstract",
	"dates",
	"regulation_id_numbers",
}

// Client fetches documents from the Federal Register API. Requests are rate
// limited client-side; the API throttles aggressively on bursts.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a client against the public API.
func NewClient(logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    DefaultBaseURL,
		limiter:    rate.NewLimiter(rate.Limit(2), 1),
		logger:     logger,
	}
}

// WithBaseURL overrides the API base URL.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

// WithHTTPClient overrides the underlying HTTP client.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	c.httpClient = httpClient
	return c
}

// WithRateLimit overrides the request rate in requests per second.
func (c *Client) WithRateLimit(perSecond float64) *Client {
	c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	return c
}

// page is one response page of the documents endpoint.
type page struct {
	Count       int                     `json:"count"`
	Results     []ingestion.RawDocument `json:"results"`
	NextPageURL string                  `json:"next_page_url"`
}

// FetchDocuments retrieves every document in the window, following the API's
// pagination until the last page.
func (c *Client) FetchDocuments(ctx context.Context, window ingestion.FetchWindow) ([]ingestion.RawDocument, error) {
	requestURL := c.firstPageURL(window)

	var documents []ingestion.RawDocument
	for requestURL != "" {
		current, err := c.fetchPage(ctx, requestURL)
		if err != nil {
			return nil, err
		}
		documents = append(documents, current.Results...)
		requestURL = current.NextPageURL
	}

	c.logger.Info("Fetched documents from Federal Register",
		slog.Int("count", len(documents)),
		slog.String("start_date", window.StartDate.Format("2006-01-02")),
		slog.String("end_date", window.EndDate.Format("2006-01-02")),
	)
	return documents, nil
}

func (c *Client) firstPageURL(window ingestion.FetchWindow) string {
	params := url.Values{}
	for _, field := range documentFields {
		params.Add("fields[]", field)
	}
	params.Set("per_page", fmt.Sprintf("%d", perPage))
	params.Set("order", "newest")
	params.Set("conditions[publication_date][gte]", window.StartDate.Format("2006-01-02"))
	params.Set("conditions[publication_date][lte]", window.EndDate.Format("2006-01-02"))
	if window.DocumentType != "" {
		params.Set("conditions[type]", window.DocumentType)
	}
	return c.baseURL + "/documents?" + params.Encode()
}

func (c *Client) fetchPage(ctx context.Context, requestURL string) (*page, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, helper.NewError("build request", err)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, helper.NewError("fetch page", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, helper.NewError("fetch page", fmt.Errorf("unexpected status %d", response.StatusCode))
	}

	var current page
	if err := json.NewDecoder(response.Body).Decode(&current); err != nil {
		return nil, helper.NewError("decode page", err)
	}
	return &current, nil
}
