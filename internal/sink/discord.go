// internal/sink/discord.go
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"formsync/internal/common/config"
	commonerrors "formsync/internal/common/errors"
	commonhttp "formsync/internal/common/http"
	"formsync/internal/common/logger"
	"formsync/internal/tabular"
)

const defaultEmbedColor = 0x5865F2

type discordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
	Timestamp   string `json:"timestamp"`
}

type discordWebhookPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

// DiscordSink posts new rows to a chat webhook as a single embed.
type DiscordSink struct {
	webhookURL string
	color      int
	httpClient *commonhttp.Client
	logger     logger.Logger
	now        func() time.Time
}

func NewDiscordSink(webhookURL, embedColor string, timeout time.Duration, log logger.Logger) *DiscordSink {
	return &DiscordSink{
		webhookURL: webhookURL,
		color:      parseEmbedColor(embedColor),
		httpClient: commonhttp.NewClient(timeout),
		logger:     log,
		now:        time.Now,
	}
}

func (s *DiscordSink) Name() string { return "discord" }

func (s *DiscordSink) Deliver(ctx context.Context, src config.SourceConfig, table tabular.Table) (Result, error) {
	description := renderMessage(table, discordTime, func(col string) string {
		return "**" + col + "**"
	})

	payload := discordWebhookPayload{
		Embeds: []discordEmbed{{
			Title:       "New Response",
			Description: description,
			Color:       s.color,
			Timestamp:   s.now().UTC().Format(time.RFC3339),
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, commonerrors.NewDeliveryFailedError("discord", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return Result{}, commonerrors.NewDeliveryFailedError("discord", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.DoWithContext(ctx, req)
	if err != nil {
		return Result{}, commonerrors.NewDeliveryFailedError("discord", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, commonerrors.NewDeliveryFailedError("discord",
			fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(detail)))
	}

	s.logger.Info("posted notification", map[string]interface{}{
		"source": src.ID,
		"rows":   len(table.Rows),
	})
	return Result{Rows: len(table.Rows)}, nil
}

func parseEmbedColor(hex string) int {
	trimmed := strings.TrimPrefix(hex, "#")
	v, err := strconv.ParseInt(trimmed, 16, 32)
	if err != nil {
		return defaultEmbedColor
	}
	return int(v)
}
