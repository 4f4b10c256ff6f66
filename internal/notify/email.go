// internal/notify/email.go

// Package notify sends the completion e-mail once a validation job produced
// a document. Delivery failures never fail the job.
package notify

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"affiliation-validator/internal/common/config"
	"affiliation-validator/internal/common/logger"
)

type Notifier interface {
	SendCompletion(ctx context.Context, toEmail, orgName, downloadURL string) error
}

type EmailNotifier struct {
	client *ses.Client
	cfg    config.NotificationConfig
	logger logger.Logger
}

// NewEmailNotifier returns nil when e-mail notification is disabled.
func NewEmailNotifier(ctx context.Context, cfg config.NotificationConfig, log logger.Logger) (*EmailNotifier, error) {
	if !cfg.Email.Enabled {
		return nil, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &EmailNotifier{
		client: ses.NewFromConfig(awsCfg),
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "notify"}),
	}, nil
}

func (n *EmailNotifier) SendCompletion(ctx context.Context, toEmail, orgName, downloadURL string) error {
	if toEmail == "" {
		return nil
	}

	subject := fmt.Sprintf("Membership validation complete for %s", orgName)
	body := fmt.Sprintf(
		"The affiliation validation pass for %s has finished and the outcome document is ready.\n\n"+
			"Download (link is single-use and expires):\n%s\n",
		orgName, downloadURL,
	)

	_, err := n.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: &n.cfg.Email.FromEmail,
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: &subject},
			Body: &types.Body{
				Text: &types.Content{Data: &body},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send completion e-mail: %w", err)
	}

	n.logger.Info("completion e-mail sent", map[string]interface{}{
		"organization": orgName,
	})
	return nil
}
