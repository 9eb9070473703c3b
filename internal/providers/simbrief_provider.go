package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"infinite-experiment/fmsuplink/internal/constants"
	"infinite-experiment/fmsuplink/internal/metrics"
	"infinite-experiment/fmsuplink/internal/models/dtos"
)

const (
	defaultSimBriefBaseURL = "https://www.simbrief.com/api/xml.fetcher.php"
	fetchStatusSuccess     = "Success"
)

// OFPProvider fetches the latest operational flight plan of a pilot.
type OFPProvider interface {
	FetchOFP(ctx context.Context, pilotID string) (*dtos.OFPDocument, error)
}

// SimBriefProvider implements OFPProvider against the SimBrief OFP fetcher
type SimBriefProvider struct {
	BaseURL string
	Client  *http.Client
	Metrics *metrics.MetricsRegistry
}

// NewSimBriefProvider creates a provider for baseURL. An empty baseURL falls
// back to SIMBRIEF_BASE_URL, then to the public fetcher.
func NewSimBriefProvider(baseURL string, timeout time.Duration, metricsReg *metrics.MetricsRegistry) *SimBriefProvider {
	if baseURL == "" {
		baseURL = os.Getenv("SIMBRIEF_BASE_URL")
	}
	if baseURL == "" {
		baseURL = defaultSimBriefBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &SimBriefProvider{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout: timeout,
		},
		Metrics: metricsReg,
	}
}

// GetProviderType returns the provider type identifier
func (p *SimBriefProvider) GetProviderType() string {
	return "simbrief_ofp"
}

// FetchOFP fetches the latest OFP for pilotID. All-digit ids are sent as a
// numeric user id, anything else as a username.
func (p *SimBriefProvider) FetchOFP(ctx context.Context, pilotID string) (*dtos.OFPDocument, error) {
	pilotID = strings.TrimSpace(pilotID)
	if pilotID == "" {
		return nil, p.record(&ProviderError{
			Code:    constants.ErrCodeInvalidPilotID,
			Message: constants.GetErrorMessage(constants.ErrCodeInvalidPilotID),
		})
	}

	query := url.Values{}
	if isNumericID(pilotID) {
		query.Set("userid", pilotID)
	} else {
		query.Set("username", pilotID)
	}
	query.Set("json", "1")

	var doc dtos.OFPDocument
	if _, err := p.doGET(ctx, query, &doc); err != nil {
		return nil, p.record(err)
	}

	if doc.Fetch.Status != "" && !strings.EqualFold(doc.Fetch.Status, fetchStatusSuccess) {
		return nil, p.record(&ProviderError{
			Code:    constants.ErrCodeFetchRejected,
			Message: constants.GetErrorMessage(constants.ErrCodeFetchRejected),
			Details: doc.Fetch.Status,
		})
	}

	return &doc, nil
}

// doGET performs a GET with query against BaseURL and decodes the JSON body
func (p *SimBriefProvider) doGET(ctx context.Context, query url.Values, result interface{}) (int, error) {
	endpoint := p.BaseURL + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, &ProviderError{
			Code:    constants.ErrCodeNetworkError,
			Message: "Failed to create request",
			Err:     err,
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return 0, &ProviderError{
			Code:    constants.ErrCodeNetworkError,
			Message: constants.GetErrorMessage(constants.ErrCodeNetworkError),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	if err := p.handleHTTPError(resp); err != nil {
		return resp.StatusCode, err
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return resp.StatusCode, &ProviderError{
			Code:    constants.ErrCodeInvalidDataFormat,
			Message: constants.GetErrorMessage(constants.ErrCodeInvalidDataFormat),
			Err:     err,
		}
	}

	return resp.StatusCode, nil
}

// handleHTTPError checks for HTTP errors and returns appropriate ProviderError
func (p *SimBriefProvider) handleHTTPError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return p.buildHTTPError(resp.StatusCode, string(bodyBytes))
}

// buildHTTPError creates appropriate error based on status code
func (p *SimBriefProvider) buildHTTPError(statusCode int, body string) error {
	switch statusCode {
	case http.StatusNotFound:
		return &ProviderError{
			Code:    constants.ErrCodeNotFound,
			Message: constants.GetErrorMessage(constants.ErrCodeNotFound),
			Details: body,
		}
	case http.StatusTooManyRequests:
		return &ProviderError{
			Code:    constants.ErrCodeRateLimited,
			Message: constants.GetErrorMessage(constants.ErrCodeRateLimited),
			Details: body,
		}
	case http.StatusBadRequest:
		return &ProviderError{
			Code:    constants.ErrCodeInvalidDataFormat,
			Message: "Bad request to the OFP fetcher",
			Details: body,
		}
	default:
		return &ProviderError{
			Code:    constants.ErrCodeNetworkError,
			Message: fmt.Sprintf("HTTP %d from the OFP fetcher", statusCode),
			Details: body,
		}
	}
}

func (p *SimBriefProvider) record(err error) error {
	if p.Metrics == nil {
		return err
	}
	if pe, ok := err.(*ProviderError); ok {
		p.Metrics.ProviderFetchErrors.WithLabelValues(pe.Code).Inc()
	}
	return err
}

func isNumericID(id string) bool {
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return id != ""
}

// ProviderError represents a provider-specific error
type ProviderError struct {
	Code    string
	Message string
	Details string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
