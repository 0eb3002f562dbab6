// internal/google/forms.go
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	commonhttp "formsync/internal/common/http"
)

// FormsClient reads form responses and form metadata over the Forms REST API.
type FormsClient struct {
	baseURL    string
	httpClient *commonhttp.Client
}

func NewFormsClient(baseURL, accessToken string, timeout time.Duration) *FormsClient {
	return &FormsClient{
		baseURL:    baseURL,
		httpClient: commonhttp.NewBearerClient(timeout, accessToken),
	}
}

// ListResponses returns all submitted responses for formID. A successful
// call with zero responses returns an empty slice and a nil error; the
// caller decides whether that means "fall back".
func (c *FormsClient) ListResponses(ctx context.Context, formID string) ([]FormResponse, error) {
	endpoint := fmt.Sprintf("%s/forms/%s/responses", c.baseURL, url.PathEscape(formID))

	body, err := c.httpClient.Get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("list responses for form %s: %w", formID, err)
	}

	var result listResponsesResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal responses for form %s: %w", formID, err)
	}

	return result.Responses, nil
}

// LinkedSheet returns the spreadsheet id backing formID, or "" when the
// form has no spreadsheet destination.
func (c *FormsClient) LinkedSheet(ctx context.Context, formID string) (string, error) {
	endpoint := fmt.Sprintf("%s/forms/%s", c.baseURL, url.PathEscape(formID))

	body, err := c.httpClient.Get(ctx, endpoint)
	if err != nil {
		return "", fmt.Errorf("fetch metadata for form %s: %w", formID, err)
	}

	var meta formMetadata
	if err := json.Unmarshal(body, &meta); err != nil {
		return "", fmt.Errorf("unmarshal metadata for form %s: %w", formID, err)
	}

	if meta.ResponseDestination.DestinationType != "SPREADSHEET" {
		return "", nil
	}
	return meta.ResponseDestination.Spreadsheet, nil
}
