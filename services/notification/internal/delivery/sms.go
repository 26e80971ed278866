package delivery

import (
	"context"
	"fmt"

	"fleetwatch/services/notification/internal/entity"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/sns"
)

const smsMaxLength = 320

// SNSAPI is the part of the SNS client used for SMS delivery.
type SNSAPI interface {
	PublishWithContext(ctx aws.Context, input *sns.PublishInput, opts ...request.Option) (*sns.PublishOutput, error)
}

type SMSChannel struct {
	client   SNSAPI
	senderID string
}

func NewSMSChannel(client SNSAPI, senderID string) *SMSChannel {
	return &SMSChannel{client: client, senderID: senderID}
}

func (c *SMSChannel) Name() entity.Channel {
	return entity.ChannelSMS
}

func (c *SMSChannel) Send(ctx context.Context, recipient entity.Recipient, n entity.Notification) error {
	if recipient.Phone == "" {
		return ErrNoAddress
	}

	text := subject(n) + ": " + n.Message
	if r := []rune(text); len(r) > smsMaxLength {
		text = string(r[:smsMaxLength-1]) + "…"
	}

	smsType := "Promotional"
	if n.Priority.Rank() >= entity.PriorityHigh.Rank() {
		smsType = "Transactional"
	}

	attrs := map[string]*sns.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {DataType: aws.String("String"), StringValue: aws.String(smsType)},
	}
	if c.senderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = &sns.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(c.senderID)}
	}

	_, err := c.client.PublishWithContext(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(recipient.Phone),
		Message:           aws.String(text),
		MessageAttributes: attrs,
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
