// internal/google/sheets.go
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	commonhttp "formsync/internal/common/http"
)

// SheetsClient reads raw cell grids over the Sheets REST API.
type SheetsClient struct {
	baseURL    string
	httpClient *commonhttp.Client
}

func NewSheetsClient(baseURL, accessToken string, timeout time.Duration) *SheetsClient {
	return &SheetsClient{
		baseURL:    baseURL,
		httpClient: commonhttp.NewBearerClient(timeout, accessToken),
	}
}

// FirstSheetGrid reads every cell of the first sheet/tab of spreadsheetID
// as an ordered grid of strings. An empty spreadsheet yields a nil grid.
func (c *SheetsClient) FirstSheetGrid(ctx context.Context, spreadsheetID string) ([][]string, error) {
	metaEndpoint := fmt.Sprintf("%s/spreadsheets/%s", c.baseURL, url.PathEscape(spreadsheetID))

	body, err := c.httpClient.Get(ctx, metaEndpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch spreadsheet %s metadata: %w", spreadsheetID, err)
	}

	var meta spreadsheetMetadata
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal spreadsheet %s metadata: %w", spreadsheetID, err)
	}
	if len(meta.Sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet %s has no sheets", spreadsheetID)
	}

	firstSheet := meta.Sheets[0].Properties.Title
	valuesEndpoint := fmt.Sprintf("%s/spreadsheets/%s/values/%s",
		c.baseURL, url.PathEscape(spreadsheetID), url.PathEscape(firstSheet))

	body, err = c.httpClient.Get(ctx, valuesEndpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch spreadsheet %s values: %w", spreadsheetID, err)
	}

	var values valuesResult
	if err := json.Unmarshal(body, &values); err != nil {
		return nil, fmt.Errorf("unmarshal spreadsheet %s values: %w", spreadsheetID, err)
	}

	return values.Values, nil
}
