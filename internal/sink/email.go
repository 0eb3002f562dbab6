// internal/sink/email.go
package sink

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"formsync/internal/common/config"
	commonerrors "formsync/internal/common/errors"
	"formsync/internal/common/logger"
	"formsync/internal/tabular"
)

// SESService is the slice of the SES client the email sink needs.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// EmailSink mails new rows as a plain-text digest.
type EmailSink struct {
	sesClient SESService
	from      string
	to        []string
	logger    logger.Logger
}

func NewEmailSink(sesClient SESService, from string, to []string, log logger.Logger) *EmailSink {
	return &EmailSink{sesClient: sesClient, from: from, to: to, logger: log}
}

func (s *EmailSink) Name() string { return "email" }

func (s *EmailSink) Deliver(ctx context.Context, src config.SourceConfig, table tabular.Table) (Result, error) {
	body := renderMessage(table, plainTime, func(col string) string { return col })
	subject := fmt.Sprintf("New responses for %s", src.ID)

	_, err := s.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: s.to,
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(s.from),
	})
	if err != nil {
		return Result{}, commonerrors.NewDeliveryFailedError("email", err)
	}

	s.logger.Info("sent notification email", map[string]interface{}{
		"source":     src.ID,
		"rows":       len(table.Rows),
		"recipients": len(s.to),
	})
	return Result{Rows: len(table.Rows)}, nil
}
