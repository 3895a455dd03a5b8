// internal/notification/sender.go
package notification

import (
	"context"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	stderrors "matching-platform/internal/common/errors"
	"matching-platform/internal/common/logger"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// EmailAPI is the subset of SES used for delivery.
type EmailAPI interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// SMSAPI is the subset of SNS used for delivery.
type SMSAPI interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

type SenderConfig struct {
	FromEmail   string
	SMSSenderID string
}

// Sender delivers rendered templates. A nil EmailAPI or SMSAPI disables that channel; messages
// for a disabled channel are logged instead of sent.
type Sender struct {
	email     EmailAPI
	sms       SMSAPI
	cfg       SenderConfig
	templates *Registry
	log       logger.Logger
}

func NewSender(cfg SenderConfig, email EmailAPI, sms SMSAPI, templates *Registry, log logger.Logger) *Sender {
	if templates == nil {
		templates = NewRegistry()
	}
	return &Sender{
		email:     email,
		sms:       sms,
		cfg:       cfg,
		templates: templates,
		log:       log.WithFields(map[string]interface{}{"component": "notification"}),
	}
}

// Email renders templateID and sends it to the given address.
func (s *Sender) Email(ctx context.Context, to, templateID string, vars map[string]string) error {
	subject, body, err := s.templates.Render(templateID, vars)
	if err != nil {
		return err
	}

	if s.email == nil {
		s.log.Info("Email delivery disabled, message not sent", map[string]interface{}{
			"template": templateID,
			"to":       to,
		})
		return nil
	}

	_, err = s.email.SendEmail(ctx, &ses.SendEmailInput{
		Source:      sdkaws.String(s.cfg.FromEmail),
		Destination: &sestypes.Destination{ToAddresses: []string{to}},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: sdkaws.String(subject), Charset: sdkaws.String("UTF-8")},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: sdkaws.String(body), Charset: sdkaws.String("UTF-8")},
			},
		},
	})
	if err != nil {
		return stderrors.NewNotificationSendFailedError(ChannelEmail, err)
	}

	s.log.Debug("Email sent", map[string]interface{}{"template": templateID})
	return nil
}

// SMS renders templateID and sends it as a transactional SMS to an E.164 number.
func (s *Sender) SMS(ctx context.Context, phone, templateID string, vars map[string]string) error {
	_, body, err := s.templates.Render(templateID, vars)
	if err != nil {
		return err
	}

	if s.sms == nil {
		s.log.Info("SMS delivery disabled, message not sent", map[string]interface{}{
			"template": templateID,
		})
		return nil
	}

	attrs := map[string]snstypes.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {DataType: sdkaws.String("String"), StringValue: sdkaws.String("Transactional")},
	}
	if s.cfg.SMSSenderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = snstypes.MessageAttributeValue{
			DataType:    sdkaws.String("String"),
			StringValue: sdkaws.String(s.cfg.SMSSenderID),
		}
	}

	_, err = s.sms.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       sdkaws.String(phone),
		Message:           sdkaws.String(body),
		MessageAttributes: attrs,
	})
	if err != nil {
		return stderrors.NewNotificationSendFailedError(ChannelSMS, err)
	}

	s.log.Debug("SMS sent", map[string]interface{}{"template": templateID})
	return nil
}
