package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

func TestTemplatesRender(t *testing.T) {
	tpl, err := NewTemplates()
	require.NoError(t, err)

	subject, body, err := tpl.Render(TemplateAccountVerification, TemplateData{AppName: "BotoApp", OTP: "012345", Minutes: 10})
	require.NoError(t, err)
	assert.Empty(t, subject)
	assert.Equal(t, "Account Verification!\nYour OTP for BotoApp is 012345.\nIt expires in 10 minutes", body)

	_, body, err = tpl.Render(TemplatePasswordReset, TemplateData{OTP: "654321", Minutes: 5})
	require.NoError(t, err)
	assert.Equal(t, "Password Reset!\nUse 654321 to reset your password.\nIt expires in 5 minutes", body)

	subject, body, err = tpl.Render(TemplatePasswordChanged, TemplateData{AppName: "BotoApp", Name: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "BotoApp password changed", subject)
	assert.True(t, strings.HasPrefix(body, "Hello Ada,"))

	_, _, err = tpl.Render("missing", TemplateData{})
	assert.Error(t, err)
}

func TestRouter(t *testing.T) {
	var got Message
	r := Router{ChannelSMS: SenderFunc(func(_ context.Context, msg Message) error {
		got = msg
		return nil
	})}

	require.NoError(t, r.Send(context.Background(), Message{Channel: ChannelSMS, To: "+2348130303030", Body: "hi"}))
	assert.Equal(t, "hi", got.Body)

	err := r.Send(context.Background(), Message{Channel: ChannelEmail})
	assert.ErrorIs(t, err, ErrNoSender)
}

type fakeCreator struct {
	params *twilioApi.CreateMessageParams
	err    error
}

func (f *fakeCreator) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	f.params = params
	return &twilioApi.ApiV2010Message{}, f.err
}

func TestTwilioSMS(t *testing.T) {
	_, err := NewTwilioSMS(TwilioConfig{})
	assert.Error(t, err)

	s, err := NewTwilioSMS(TwilioConfig{AccountSID: "AC123", AuthToken: "tok", PhoneNumber: "+15550001111"})
	require.NoError(t, err)

	fc := &fakeCreator{}
	s.api = fc
	require.NoError(t, s.Send(context.Background(), Message{Channel: ChannelSMS, To: "+2348130303030", Body: "code"}))
	require.NotNil(t, fc.params)
	assert.Equal(t, "+2348130303030", *fc.params.To)
	assert.Equal(t, "+15550001111", *fc.params.From)
	assert.Equal(t, "code", *fc.params.Body)

	fc.err = errors.New("boom")
	assert.Error(t, s.Send(context.Background(), Message{To: "x"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, Message{To: "x"}), context.Canceled)
}

func TestSMTPEmail(t *testing.T) {
	_, err := NewSMTPEmail(SMTPConfig{})
	assert.Error(t, err)

	origSend, origTLS := sendMail, sendTLS
	defer func() { sendMail, sendTLS = origSend, origTLS }()

	var gotAddr string
	var gotMsg []byte
	sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotMsg = msg
		return nil
	}

	e, err := NewSMTPEmail(SMTPConfig{User: "bot@example.com", Pass: "secret"})
	require.NoError(t, err)
	require.NoError(t, e.Send(context.Background(), Message{Channel: ChannelEmail, To: "ada@example.com", Subject: "Hi", Body: "Body"}))
	assert.Equal(t, "smtp.gmail.com:587", gotAddr)
	assert.Contains(t, string(gotMsg), "Subject: Hi\r\n")
	assert.Contains(t, string(gotMsg), "To: ada@example.com\r\n")

	t.Run("implicit tls fallback on 465", func(t *testing.T) {
		sendMail = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("starttls failed") }
		called := false
		sendTLS = func(addr, host string, _ smtp.Auth, from, to string, raw []byte) error {
			called = true
			assert.Equal(t, "mail.example.com:465", addr)
			return nil
		}
		e, err := NewSMTPEmail(SMTPConfig{Host: "mail.example.com", Port: "465", User: "u", Pass: "p"})
		require.NoError(t, err)
		require.NoError(t, e.Send(context.Background(), Message{To: "ada@example.com"}))
		assert.True(t, called)
	})

	t.Run("no fallback on other ports", func(t *testing.T) {
		sendMail = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("refused") }
		assert.Error(t, e.Send(context.Background(), Message{To: "ada@example.com"}))
	})
}
