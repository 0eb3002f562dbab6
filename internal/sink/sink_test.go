// internal/sink/sink_test.go
package sink

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"formsync/internal/common/config"
	"formsync/internal/common/logger"
	"formsync/internal/tabular"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestTable() tabular.Table {
	return tabular.Table{
		Columns: []string{tabular.ColumnRecordID, tabular.ColumnCreatedAt, "Name", "Score"},
		Rows: []tabular.Row{
			{tabular.ColumnRecordID: "r1", tabular.ColumnCreatedAt: "2024-05-01T10:00:00.000Z", "Name": "Ada", "Score": "10"},
			{tabular.ColumnRecordID: "r2", tabular.ColumnCreatedAt: "2024-05-01T11:00:00.000Z", "Name": "Grace", "Score": "9"},
		},
	}
}

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

// ==========================
// Discord Sink
// ==========================

func TestDiscordSink_Deliver(t *testing.T) {
	var captured discordWebhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewDiscordSink(srv.URL, "#5865F2", 5*time.Second, logger.NewTestLogger(t))

	res, err := s.Deliver(context.Background(), config.SourceConfig{ID: "form-1"}, createTestTable())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rows)

	require.Len(t, captured.Embeds, 1)
	embed := captured.Embeds[0]
	assert.Equal(t, "New Response", embed.Title)
	assert.Equal(t, 0x5865F2, embed.Color)

	// one creation-time line and one line per value column, per row
	assert.Contains(t, embed.Description, "Create Time: <t:")
	assert.Contains(t, embed.Description, "**Name**: Ada")
	assert.Contains(t, embed.Description, "**Score**: 9")
	// reserved columns are never rendered as value lines
	assert.NotContains(t, embed.Description, "record_id")
}

func TestDiscordSink_Deliver_WebhookError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := NewDiscordSink(srv.URL, "#5865F2", 5*time.Second, logger.NewTestLogger(t))

	_, err := s.Deliver(context.Background(), config.SourceConfig{ID: "form-1"}, createTestTable())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestParseEmbedColor(t *testing.T) {
	assert.Equal(t, 0xFF0000, parseEmbedColor("#FF0000"))
	assert.Equal(t, 0xFF0000, parseEmbedColor("FF0000"))
	assert.Equal(t, defaultEmbedColor, parseEmbedColor("not-a-color"))
}

// ==========================
// Email Sink
// ==========================

func TestEmailSink_Deliver(t *testing.T) {
	var sent *ses.SendEmailInput
	mockSES := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			sent = params
			return &ses.SendEmailOutput{}, nil
		},
	}

	s := NewEmailSink(mockSES, "noreply@example.com", []string{"ops@example.com"}, logger.NewTestLogger(t))

	res, err := s.Deliver(context.Background(), config.SourceConfig{ID: "form-1"}, createTestTable())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rows)

	require.NotNil(t, sent)
	assert.Equal(t, "noreply@example.com", *sent.Source)
	assert.Equal(t, "ops@example.com", sent.Destination.ToAddresses[0])
	assert.Contains(t, *sent.Message.Subject.Data, "form-1")
	assert.Contains(t, *sent.Message.Body.Text.Data, "Name: Ada")
	assert.Contains(t, *sent.Message.Body.Text.Data, "May 1, 2024 10:00 UTC")
}

func TestEmailSink_Deliver_SendFailure(t *testing.T) {
	mockSES := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, assert.AnError
		},
	}

	s := NewEmailSink(mockSES, "noreply@example.com", []string{"ops@example.com"}, logger.NewTestLogger(t))

	_, err := s.Deliver(context.Background(), config.SourceConfig{ID: "form-1"}, createTestTable())
	require.Error(t, err)
}

// ==========================
// Export Sink
// ==========================

func TestExportSink_DelimitedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := NewExportSink(dir, logger.NewTestLogger(t))

	src := config.SourceConfig{
		ID:           "form-1",
		ExportFormat: config.FormatDelimitedText,
		FileName:     "responses.csv",
	}

	table := createTestTable()
	res, err := s.Deliver(context.Background(), src, table)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "responses.csv"), res.ArtifactPath)

	f, err := os.Open(res.ArtifactPath)
	require.NoError(t, err)
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	records, err := r.ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, table.Columns, records[0])
	assert.Equal(t, []string{"r1", "2024-05-01T10:00:00.000Z", "Ada", "10"}, records[1])
	assert.Equal(t, []string{"r2", "2024-05-01T11:00:00.000Z", "Grace", "9"}, records[2])
}

func TestExportSink_Workbook(t *testing.T) {
	dir := t.TempDir()
	s := NewExportSink(dir, logger.NewTestLogger(t))

	src := config.SourceConfig{
		ID:           "form-1",
		ExportFormat: config.FormatSpreadsheetBinary,
		FileName:     "responses.xlsx",
	}

	res, err := s.Deliver(context.Background(), src, createTestTable())
	require.NoError(t, err)

	f, err := excelize.OpenFile(res.ArtifactPath)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Name", rows[0][2])
	assert.Equal(t, "Grace", rows[2][2])
}

func TestExportSink_SingleColumnUsesTxtFileName(t *testing.T) {
	dir := t.TempDir()
	s := NewExportSink(dir, logger.NewTestLogger(t))

	src := config.SourceConfig{
		ID:           "form-1",
		ExportFormat: config.FormatDelimitedText,
		FileName:     "full.csv",
		SingleColumn: "Name",
		TxtFileName:  "names.txt",
	}

	table := tabular.Table{
		Columns: []string{"Name"},
		Rows:    []tabular.Row{{"Name": "Ada"}, {"Name": "Grace"}},
	}

	res, err := s.Deliver(context.Background(), src, table)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "names.txt"), res.ArtifactPath)

	// single-column artifacts carry values only, no header line
	data, err := os.ReadFile(res.ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, "Ada\nGrace\n", string(data))
}

func TestExportSink_DuplicateHeadersKeepAllCells(t *testing.T) {
	dir := t.TempDir()
	s := NewExportSink(dir, logger.NewTestLogger(t))

	src := config.SourceConfig{
		ID:           "form-1",
		ExportFormat: config.FormatDelimitedText,
		FileName:     "grid.csv",
	}

	table := tabular.NormalizeFallback([][]string{
		{"Name", "Score", "Name"},
		{"a", "10", "c"},
	})

	res, err := s.Deliver(context.Background(), src, table)
	require.NoError(t, err)

	f, err := os.Open(res.ArtifactPath)
	require.NoError(t, err)
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	records, err := r.ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, []string{"Name", "Score", "Name"}, records[0])
	assert.Equal(t, []string{"a", "10", "c"}, records[1])
}

func TestExportSink_NoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	s := NewExportSink(dir, logger.NewTestLogger(t))

	src := config.SourceConfig{
		ID:           "form-1",
		ExportFormat: config.FormatDelimitedText,
		FileName:     "responses.csv",
	}

	_, err := s.Deliver(context.Background(), src, createTestTable())
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "responses.csv", entries[0].Name())
}
