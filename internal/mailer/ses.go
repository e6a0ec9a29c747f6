// Package mailer delivers newsletter confirmation emails through AWS SES.
package mailer

import (
	"context"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	appconfig "github.com/ignite/newsletter-service/internal/config"
)

// SESMailer sends confirmation emails via the SES v2 API. It implements
// subscription.EmailSender.
type SESMailer struct {
	client  *sesv2.Client
	from    string
	siteURL string
}

// NewSESMailer creates an SES mailer. When AccessKey/SecretKey are empty the
// default credential chain is used (IAM role on ECS).
func NewSESMailer(ctx context.Context, cfg appconfig.SESConfig, from, siteURL string) (*SESMailer, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &SESMailer{
		client:  sesv2.NewFromConfig(awsCfg),
		from:    from,
		siteURL: siteURL,
	}, nil
}

// SendConfirmation sends the double-opt-in confirmation email carrying the
// single-use token link.
func (m *SESMailer) SendConfirmation(ctx context.Context, email, token string) error {
	confirmURL := m.confirmationURL(token)

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.from),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data: aws.String("Confirm your newsletter subscription"),
				},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(confirmationHTML(confirmURL))},
					Text: &types.Content{Data: aws.String(confirmationText(confirmURL))},
				},
			},
		},
	}

	if _, err := m.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("sending confirmation email: %w", err)
	}
	return nil
}

func (m *SESMailer) confirmationURL(token string) string {
	return fmt.Sprintf("%s/confirm-subscription?token=%s", m.siteURL, url.QueryEscape(token))
}
