// Package notify delivers user invites and account notices over email (SES)
// and SMS (SNS). Both channels are optional; a disabled channel is skipped
// silently.
package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"taqyim/internal/common/config"
	apperrors "taqyim/internal/common/errors"
	"taqyim/internal/common/logger"
	"taqyim/internal/models"
)

// EmailSender is satisfied by the SES client wrapper.
type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// SMSPublisher is satisfied by the SNS client wrapper.
type SMSPublisher interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// Notifier fans user-facing notices out to the configured channels. A nil
// email or sms client disables that channel regardless of configuration.
type Notifier struct {
	email  EmailSender
	sms    SMSPublisher
	cfg    config.NotificationConfig
	logger logger.Logger
}

func NewNotifier(email EmailSender, sms SMSPublisher, cfg config.NotificationConfig, log logger.Logger) *Notifier {
	return &Notifier{
		email:  email,
		sms:    sms,
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "notifier"}),
	}
}

// SendInvite notifies a newly created user on every enabled channel. The
// message language follows the user's preference, defaulting to English.
func (n *Notifier) SendInvite(ctx context.Context, user models.User, loginURL string) error {
	subject, body := inviteMessage(user, loginURL)

	if n.cfg.Email.Enabled && n.email != nil {
		if err := n.sendEmail(ctx, user.Email, subject, body); err != nil {
			return err
		}
	}
	if n.cfg.SMS.Enabled && n.sms != nil && user.Phone != "" {
		if err := n.sendSMS(ctx, user.Phone, body); err != nil {
			return err
		}
	}
	return nil
}

func inviteMessage(user models.User, loginURL string) (subject, body string) {
	if user.Language == "ar" {
		subject = "دعوة للانضمام إلى منصة تقييم"
		body = fmt.Sprintf("مرحباً %s، تم إنشاء حساب لك بدور %s. سجّل الدخول عبر: %s", user.DisplayName, user.Role, loginURL)
		return subject, body
	}
	subject = "You have been invited to Taqyim"
	body = fmt.Sprintf("Hello %s, an account with the %s role was created for you. Sign in at: %s", user.DisplayName, user.Role, loginURL)
	return subject, body
}

func (n *Notifier) sendEmail(ctx context.Context, to, subject, body string) error {
	input := &ses.SendEmailInput{
		Source:      aws.String(n.cfg.Email.FromEmail),
		Destination: &sestypes.Destination{ToAddresses: []string{to}},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
			},
		},
	}

	if _, err := n.email.SendEmail(ctx, input); err != nil {
		n.logger.Error("invite email failed", map[string]interface{}{"to": to, "error": err.Error()})
		return apperrors.NewNotificationFailedError("email", err)
	}
	n.logger.Info("invite email sent", map[string]interface{}{"to": to})
	return nil
}

func (n *Notifier) sendSMS(ctx context.Context, phone, body string) error {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(phone),
		Message:     aws.String(body),
	}
	if n.cfg.SMS.SenderID != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(n.cfg.SMS.SenderID),
			},
		}
	}

	if _, err := n.sms.Publish(ctx, input); err != nil {
		n.logger.Error("invite sms failed", map[string]interface{}{"phone": phone, "error": err.Error()})
		return apperrors.NewNotificationFailedError("sms", err)
	}
	n.logger.Info("invite sms sent", map[string]interface{}{"phone": phone})
	return nil
}
