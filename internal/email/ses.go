// internal/email/ses.go
package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/rs/zerolog/log"

	"github.com/codr1/Pawfield/internal/config"
)

var (
	ErrSESNotConfigured  = errors.New("ses credentials, region and sender are required")
	ErrRecipientRequired = errors.New("recipient is required")
)

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESClient sends plain-text mail through SESv2.
type SESClient struct {
	api     sesAPI
	sender  string
	replyTo string
}

// NewSESClient builds a client from static credentials in cfg.
func NewSESClient(ctx context.Context, cfg config.EmailConfig) (*SESClient, error) {
	if !cfg.Enabled() {
		return nil, ErrSESNotConfigured
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &SESClient{
		api:     sesv2.NewFromConfig(awsCfg),
		sender:  cfg.Sender,
		replyTo: cfg.ReplyTo,
	}, nil
}

func (c *SESClient) Send(ctx context.Context, recipient, subject, body string) error {
	if c == nil || c.api == nil {
		return ErrSESNotConfigured
	}
	if recipient == "" {
		return ErrRecipientRequired
	}

	input := &sesv2.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{recipient},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: utf8Content(subject),
				Body:    &types.Body{Text: utf8Content(body)},
			},
		},
		FromEmailAddress: aws.String(c.sender),
	}
	if c.replyTo != "" {
		input.ReplyToAddresses = []string{c.replyTo}
	}

	out, err := c.api.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("send ses email: %w", err)
	}

	log.Ctx(ctx).Debug().
		Str("message_id", aws.ToString(out.MessageId)).
		Str("subject", subject).
		Msg("SES email accepted")
	return nil
}

func utf8Content(data string) *types.Content {
	return &types.Content{Data: aws.String(data), Charset: aws.String("UTF-8")}
}
