package delivery

import (
	"context"
	"fmt"
	"strings"

	"fleetwatch/services/notification/internal/entity"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/ses"
)

// SESAPI is the part of the SES client used for email delivery.
type SESAPI interface {
	SendEmailWithContext(ctx aws.Context, input *ses.SendEmailInput, opts ...request.Option) (*ses.SendEmailOutput, error)
}

type EmailChannel struct {
	client  SESAPI
	from    string
	baseURL string
}

func NewEmailChannel(client SESAPI, from, baseURL string) *EmailChannel {
	return &EmailChannel{client: client, from: from, baseURL: baseURL}
}

func (c *EmailChannel) Name() entity.Channel {
	return entity.ChannelEmail
}

func (c *EmailChannel) Send(ctx context.Context, recipient entity.Recipient, n entity.Notification) error {
	if recipient.Email == "" {
		return ErrNoAddress
	}

	var body strings.Builder
	if recipient.Name != "" {
		fmt.Fprintf(&body, "Hello %s,\n\n", recipient.Name)
	}
	body.WriteString(n.Message)
	if url := link(c.baseURL, n.ActionURL); url != "" {
		fmt.Fprintf(&body, "\n\nView details: %s", url)
	}

	input := &ses.SendEmailInput{
		Source: aws.String(c.from),
		Destination: &ses.Destination{
			ToAddresses: []*string{aws.String(recipient.Email)},
		},
		Message: &ses.Message{
			Subject: &ses.Content{Charset: aws.String("UTF-8"), Data: aws.String(subject(n))},
			Body: &ses.Body{
				Text: &ses.Content{Charset: aws.String("UTF-8"), Data: aws.String(body.String())},
			},
		},
	}

	if _, err := c.client.SendEmailWithContext(ctx, input); err != nil {
		return fmt.Errorf("ses send email: %w", err)
	}
	return nil
}
