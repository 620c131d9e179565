// internal/notify/notifier_test.go
package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taqyim/internal/common/config"
	apperrors "taqyim/internal/common/errors"
	"taqyim/internal/common/logger"
	"taqyim/internal/models"
)

type fakeEmail struct {
	inputs []*ses.SendEmailInput
	err    error
}

func (f *fakeEmail) SendEmail(_ context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	f.inputs = append(f.inputs, input)
	return &ses.SendEmailOutput{}, f.err
}

type fakeSMS struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSMS) Publish(_ context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, input)
	return &sns.PublishOutput{}, f.err
}

func notifyConfig(email, sms bool) config.NotificationConfig {
	var cfg config.NotificationConfig
	cfg.Email.Enabled = email
	cfg.Email.FromEmail = "noreply@taqyim.example"
	cfg.SMS.Enabled = sms
	cfg.SMS.SenderID = "TAQYIM"
	return cfg
}

func inviteUser() models.User {
	return models.User{
		Email:       "new@example.com",
		DisplayName: "New Editor",
		Role:        models.RoleEditor,
		Phone:       "+966500000000",
	}
}

func TestNotifier_SendInviteBothChannels(t *testing.T) {
	email := &fakeEmail{}
	sms := &fakeSMS{}
	n := NewNotifier(email, sms, notifyConfig(true, true), logger.NewNoOpLogger())

	require.NoError(t, n.SendInvite(context.Background(), inviteUser(), "https://admin.taqyim.example"))

	require.Len(t, email.inputs, 1)
	assert.Equal(t, "noreply@taqyim.example", *email.inputs[0].Source)
	assert.Equal(t, []string{"new@example.com"}, email.inputs[0].Destination.ToAddresses)

	require.Len(t, sms.inputs, 1)
	assert.Equal(t, "+966500000000", *sms.inputs[0].PhoneNumber)
}

func TestNotifier_DisabledChannelsAreSkipped(t *testing.T) {
	email := &fakeEmail{}
	sms := &fakeSMS{}
	n := NewNotifier(email, sms, notifyConfig(false, false), logger.NewNoOpLogger())

	require.NoError(t, n.SendInvite(context.Background(), inviteUser(), "https://admin.taqyim.example"))
	assert.Empty(t, email.inputs)
	assert.Empty(t, sms.inputs)
}

func TestNotifier_ArabicInvite(t *testing.T) {
	email := &fakeEmail{}
	n := NewNotifier(email, nil, notifyConfig(true, false), logger.NewNoOpLogger())

	user := inviteUser()
	user.Language = "ar"
	require.NoError(t, n.SendInvite(context.Background(), user, "https://admin.taqyim.example"))

	require.Len(t, email.inputs, 1)
	assert.Contains(t, *email.inputs[0].Message.Subject.Data, "دعوة")
}

func TestNotifier_EmailFailureSurfaces(t *testing.T) {
	email := &fakeEmail{err: errors.New("throttled")}
	n := NewNotifier(email, nil, notifyConfig(true, false), logger.NewNoOpLogger())

	err := n.SendInvite(context.Background(), inviteUser(), "https://admin.taqyim.example")
	require.Error(t, err)

	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeNotificationFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

func TestNotifier_NoPhoneSkipsSMS(t *testing.T) {
	sms := &fakeSMS{}
	n := NewNotifier(nil, sms, notifyConfig(false, true), logger.NewNoOpLogger())

	user := inviteUser()
	user.Phone = ""
	require.NoError(t, n.SendInvite(context.Background(), user, "https://admin.taqyim.example"))
	assert.Empty(t, sms.inputs)
}
