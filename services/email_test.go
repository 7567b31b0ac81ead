package services

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedMail struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  string
}

func newTestEmailService(host string, captured *[]capturedMail, sendErr error) *EmailService {
	svc := &EmailService{
		smtpHost:  host,
		smtpPort:  "2525",
		fromEmail: "noreply@learn.example.com",
		fromName:  "LearnProof",
		sendMail: func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
			*captured = append(*captured, capturedMail{addr: addr, auth: a, from: from, to: to, msg: string(msg)})
			return sendErr
		},
	}
	_ = svc.loadTemplates()
	return svc
}

func TestSendCertificateEmail(t *testing.T) {
	var sent []capturedMail
	svc := newTestEmailService("smtp.example.com", &sent, nil)
	require.True(t, svc.Enabled())

	err := svc.SendCertificateEmail(context.Background(), "ada@example.com", "Ada", "Intro to Go", "https://learn.example.com/api/v1/certificates/c1/download")
	require.NoError(t, err)

	require.Len(t, sent, 1)
	assert.Equal(t, "smtp.example.com:2525", sent[0].addr)
	assert.Nil(t, sent[0].auth)
	assert.Equal(t, []string{"ada@example.com"}, sent[0].to)
	assert.Contains(t, sent[0].msg, "Subject: Your certificate for Intro to Go")
	assert.Contains(t, sent[0].msg, "Hi Ada,")
	assert.Contains(t, sent[0].msg, "https://learn.example.com/api/v1/certificates/c1/download")
}

func TestSendCertificateEmailDisabled(t *testing.T) {
	var sent []capturedMail
	svc := newTestEmailService("", &sent, nil)

	assert.False(t, svc.Enabled())
	require.NoError(t, svc.SendCertificateEmail(context.Background(), "ada@example.com", "Ada", "Intro", "https://x"))
	assert.Empty(t, sent)

	var nilSvc *EmailService
	assert.False(t, nilSvc.Enabled())
}

func TestSendCertificateEmailFailure(t *testing.T) {
	var sent []capturedMail
	svc := newTestEmailService("smtp.example.com", &sent, errors.New("connection refused"))

	err := svc.SendCertificateEmail(context.Background(), "ada@example.com", "", "Intro", "https://x")
	require.Error(t, err)
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].msg, "Hi there,")
}
